package application

import (
	"context"

	"github.com/pourline/pourline/internal/domain"
)

// DispenserService is the surface exposed to the order editor: keypad input
// goes through the interceptor, "send to dispenser" through the dispatcher.
type DispenserService struct {
	interceptor *QuantityInterceptor
	dispatcher  *CreditDispatcher
	canceller   *CreditCanceller
}

// NewDispenserService creates a DispenserService.
func NewDispenserService(interceptor *QuantityInterceptor, dispatcher *CreditDispatcher, canceller *CreditCanceller) *DispenserService {
	return &DispenserService{interceptor: interceptor, dispatcher: dispatcher, canceller: canceller}
}

// Track attaches the removal guard to an order the editor starts working on.
func (s *DispenserService) Track(o *domain.Order) *domain.Order {
	s.interceptor.Attach(o)
	return o
}

// OnQuantityEditInput applies one keypad input to the order.
func (s *DispenserService) OnQuantityEditInput(o *domain.Order, in Input) EditResult {
	return s.interceptor.OnQuantityEditInput(o, in)
}

// RemoveLine removes a line through the order's removal primitive, which the
// attached guard may turn into a decrement.
func (s *DispenserService) RemoveLine(o *domain.Order, lineID int) (EditResult, error) {
	l, err := o.Line(lineID)
	if err != nil {
		return EditResult{}, err
	}
	target := l.Anchor()
	res := EditResult{LineID: target.ID(), Cancelled: s.interceptor.cancels(target.Product())}
	removed, err := o.RemoveLine(l)
	if err != nil {
		return res, err
	}
	res.Removed = removed
	if removed {
		res.Transition = TransitionRemoveLine
	} else {
		res.Transition = TransitionDecrement
		res.Quantity = target.Quantity()
	}
	return res, nil
}

// OnSendToDispenserRequested dispatches the order's dispenser lines.
func (s *DispenserService) OnSendToDispenserRequested(ctx context.Context, o *domain.Order) domain.SessionReport {
	return s.dispatcher.Dispatch(ctx, o)
}

// CancelCredits runs one cancellation synchronously and reports its outcome.
func (s *DispenserService) CancelCredits(ctx context.Context, sessionID string, p domain.Product, quantity int) domain.CancelOutcome {
	if s.canceller == nil {
		return domain.CancelOutcome{Message: domain.ErrNoTransport.Error(), Err: domain.ErrNoTransport}
	}
	return s.canceller.CancelCredits(ctx, sessionID, p, quantity)
}

// Drain waits for detached cancellations to settle.
func (s *DispenserService) Drain() {
	if s.canceller != nil {
		s.canceller.Wait()
	}
}
