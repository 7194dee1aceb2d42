package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pourline/pourline/internal/domain"
	"github.com/pourline/pourline/internal/platform/logging"
)

// CancellerOptions tunes the credit canceller.
type CancellerOptions struct {
	DefaultPLU  string
	MaxInFlight int
	Timeout     time.Duration
}

// CreditCanceller issues compensating credit cancellations. Every failure is
// logged and emitted as an event; none reaches the caller.
type CreditCanceller struct {
	gateway    domain.DispenserGateway
	sink       domain.EventSink
	logger     *logging.Logger
	defaultPLU string
	timeout    time.Duration
	sem        *semaphore.Weighted
	wg         sync.WaitGroup
}

// NewCreditCanceller creates a CreditCanceller. A nil gateway is allowed and
// makes every cancellation fail with ErrNoTransport.
func NewCreditCanceller(gateway domain.DispenserGateway, sink domain.EventSink, logger *logging.Logger, opts CancellerOptions) *CreditCanceller {
	if sink == nil {
		sink = domain.NopSink{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 4
	}
	return &CreditCanceller{
		gateway:    gateway,
		sink:       sink,
		logger:     logger,
		defaultPLU: opts.DefaultPLU,
		timeout:    opts.Timeout,
		sem:        semaphore.NewWeighted(int64(opts.MaxInFlight)),
	}
}

// RequestCancellation launches CancelCredits in the background and returns
// immediately. Products that are not dispenser-controlled are ignored without
// starting any work; the result tells whether work was started.
func (c *CreditCanceller) RequestCancellation(sessionID string, product domain.Product, quantity int) bool {
	if !domain.ClassifyProduct(&product, c.defaultPLU).Controlled() {
		return false
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("credit cancellation panicked",
					"product", product.Label(), "panic", fmt.Sprint(r))
			}
		}()

		ctx := context.Background()
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer c.sem.Release(1)

		c.CancelCredits(ctx, sessionID, product, quantity)
	}()
	return true
}

// Wait blocks until every cancellation started by RequestCancellation has
// settled.
func (c *CreditCanceller) Wait() { c.wg.Wait() }

// CancelCredits withdraws quantity credits for product and reports what
// happened. It never returns an error.
func (c *CreditCanceller) CancelCredits(ctx context.Context, sessionID string, product domain.Product, quantity int) domain.CancelOutcome {
	cls := domain.ClassifyProduct(&product, c.defaultPLU)
	if !cls.Controlled() {
		return domain.CancelOutcome{Skipped: true, Message: "not dispenser-controlled"}
	}

	ev := domain.Event{
		Kind:      cls.Kind,
		SessionID: sessionID,
		ProductID: cls.ProductID,
		Code:      cls.Code,
		Quantity:  quantity,
	}
	ev.Type = domain.EventCancellationAttempted
	c.sink.Emit(ev)

	res, err := c.call(ctx, sessionID, cls, product, quantity)
	if err == nil && !res.Success {
		err = errors.New(orDefault(res.Message, "cancellation rejected"))
	}

	log := c.logger.With(
		"session", sessionID,
		"product", product.Label(),
		"kind", string(cls.Kind),
		"quantity", quantity,
	)
	if err != nil {
		ev.Type = domain.EventCancellationFailed
		ev.Err = err
		ev.Message = err.Error()
		c.sink.Emit(ev)
		log.WithError(err).Warn("credit cancellation failed")
		return domain.CancelOutcome{Message: err.Error(), Err: err}
	}

	ev.Type = domain.EventCancellationSucceeded
	ev.Message = res.Message
	c.sink.Emit(ev)
	log.Info("credit cancellation done", "message", res.Message)
	return domain.CancelOutcome{Success: true, Message: res.Message}
}

func (c *CreditCanceller) call(ctx context.Context, sessionID string, cls domain.Classification, product domain.Product, quantity int) (domain.RemoteResult, error) {
	if c.gateway == nil {
		return domain.RemoteResult{}, domain.ErrNoTransport
	}
	if sessionID == "" {
		return domain.RemoteResult{}, domain.ErrNoActiveSession
	}
	if quantity <= 0 {
		return domain.RemoteResult{}, fmt.Errorf("cancel %d credits: %w", quantity, domain.ErrInvalidQuantity)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ctx = domain.ContextWithSession(ctx, sessionID)

	if cls.Kind == domain.KindComposite {
		return c.gateway.CancelCompositeCredits(ctx, sessionID, cls.ProductID, quantity)
	}
	return c.gateway.CancelSimpleCredits(ctx, sessionID, cls.Code, quantity, product.Label())
}
