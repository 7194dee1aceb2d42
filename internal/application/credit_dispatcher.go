package application

import (
	"context"
	"fmt"

	"github.com/pourline/pourline/internal/domain"
	"github.com/pourline/pourline/internal/platform/logging"
)

// DispatcherOptions tunes the send-to-dispenser action.
type DispatcherOptions struct {
	DefaultPLU  string
	ServerLabel string
	Probe       bool
}

// CreditDispatcher sends the dispenser-controlled lines of an order to the
// gateway, one item at a time, and aggregates the outcome.
type CreditDispatcher struct {
	auth     domain.Authorizer
	gateway  domain.DispenserGateway
	notifier domain.Notifier
	sink     domain.EventSink
	logger   *logging.Logger
	opts     DispatcherOptions
}

// NewCreditDispatcher creates a CreditDispatcher with all required dependencies.
func NewCreditDispatcher(
	auth domain.Authorizer,
	gateway domain.DispenserGateway,
	notifier domain.Notifier,
	sink domain.EventSink,
	logger *logging.Logger,
	opts DispatcherOptions,
) *CreditDispatcher {
	if notifier == nil {
		notifier = &domain.NotificationLog{}
	}
	if sink == nil {
		sink = domain.NopSink{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.ServerLabel == "" {
		opts.ServerLabel = "Serveur"
	}
	return &CreditDispatcher{
		auth: auth, gateway: gateway, notifier: notifier,
		sink: sink, logger: logger, opts: opts,
	}
}

// Dispatch sends every dispenser-controlled line of o. Item failures are
// recorded in the report and never stop the batch.
func (d *CreditDispatcher) Dispatch(ctx context.Context, o *domain.Order) domain.SessionReport {
	// 1. Authorization gate
	if d.auth == nil || !d.auth.IsAuthorized(ctx) {
		msg := "Access denied: reserved for barmen"
		d.notifier.Notify(msg, domain.SeverityDanger)
		d.logger.Warn("dispatch denied")
		return domain.SessionReport{Status: domain.ReportDenied, Message: msg}
	}

	if o == nil {
		return d.empty("No active order", domain.SeverityWarning)
	}
	lines := o.Lines()
	if len(lines) == 0 {
		return d.empty("No products in the order", domain.SeverityInfo)
	}

	// 2. Classify
	items := make([]domain.DispatchItem, 0, len(lines))
	for _, l := range lines {
		if item, ok := domain.NewDispatchItem(l, d.opts.DefaultPLU); ok {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return d.empty("No dispenser products in this order", domain.SeverityInfo)
	}

	d.notifier.Notify("Sending order to the dispenser...", domain.SeverityInfo)
	report := domain.SessionReport{
		Status:     domain.ReportCompleted,
		TotalCount: len(items),
		Outcomes:   make([]domain.DispatchOutcome, 0, len(items)),
	}

	// 3. Advisory probe
	if d.opts.Probe {
		report.Probe = d.probe(ctx)
	}

	// 4. Sequential sends
	ctx = domain.ContextWithSession(ctx, o.SessionID())
	for _, item := range items {
		outcome := d.send(ctx, o.SessionID(), item)
		if outcome.Success {
			report.SuccessCount++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	// 5. Aggregate
	if report.AllSucceeded() {
		report.Message = fmt.Sprintf("Order sent to the dispenser (%s)", report.Ratio())
		d.notifier.Notify(report.Message, domain.SeveritySuccess)
	} else {
		report.Message = fmt.Sprintf("Errors while sending to the dispenser (%s)", report.Ratio())
		d.notifier.Notify(report.Message, domain.SeverityDanger)
	}

	d.logger.Info("dispatch finished",
		"order", o.ID(),
		"session", o.SessionID(),
		"succeeded", report.SuccessCount,
		"total", report.TotalCount,
	)
	return report
}

func (d *CreditDispatcher) empty(msg string, sev domain.Severity) domain.SessionReport {
	d.notifier.Notify(msg, sev)
	return domain.SessionReport{Status: domain.ReportEmpty, Message: msg}
}

func (d *CreditDispatcher) probe(ctx context.Context) *domain.ProbeResult {
	if d.gateway == nil {
		res := domain.ProbeResult{Message: domain.ErrNoTransport.Error()}
		d.notifier.Notify("Cannot reach the middleware", domain.SeverityWarning)
		return &res
	}

	res, err := d.gateway.ProbeConnectivity(ctx)
	if err != nil {
		res.Success = false
		res.Message = err.Error()
	}
	if res.Success {
		d.notifier.Notify("Connected to the middleware", domain.SeveritySuccess)
	} else {
		d.logger.Warn("middleware probe failed", "message", res.Message)
		d.notifier.Notify("Cannot reach the middleware", domain.SeverityWarning)
	}
	return &res
}

func (d *CreditDispatcher) send(ctx context.Context, sessionID string, item domain.DispatchItem) domain.DispatchOutcome {
	ev := domain.Event{
		Type:      domain.EventDispatchAttempted,
		Kind:      item.Kind,
		SessionID: sessionID,
		ProductID: item.ProductID,
		Code:      item.Code,
		Quantity:  item.Quantity,
	}
	d.sink.Emit(ev)

	var (
		res domain.RemoteResult
		err error
	)
	switch {
	case d.gateway == nil:
		err = domain.ErrNoTransport
	case item.Kind == domain.KindComposite:
		res, err = d.gateway.SendIngredients(ctx, item.ProductID, item.Quantity, d.opts.ServerLabel)
	default:
		res, err = d.gateway.SendCredit(ctx, item)
	}

	outcome := domain.DispatchOutcome{Item: item, Details: res.Details}
	switch {
	case err != nil:
		outcome.Message = "Network error: " + err.Error()
		ev.Err = err
	case res.Success:
		outcome.Success = true
		outcome.Message = orDefault(res.Message, "OK")
	default:
		outcome.Message = orDefault(res.Message, "Unknown error")
	}

	ev.Message = outcome.Message
	if outcome.Success {
		ev.Type = domain.EventDispatchSucceeded
	} else {
		ev.Type = domain.EventDispatchFailed
		d.logger.WithError(err).Warn("dispatch item failed",
			"product", item.Name, "kind", string(item.Kind), "message", outcome.Message)
	}
	d.sink.Emit(ev)
	return outcome
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
