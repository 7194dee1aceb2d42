package application

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pourline/pourline/internal/domain"
	"github.com/pourline/pourline/internal/platform/logging"
)

// InputKind is the kind of keypad event forwarded by the order editor.
type InputKind string

const (
	InputDelete    InputKind = "remove"
	InputBackspace InputKind = "backspace"
	InputNumeric   InputKind = "numeric"
)

// ValidInputKinds enumerates the keypad events the interceptor understands.
var ValidInputKinds = []InputKind{InputDelete, InputBackspace, InputNumeric}

// ParseInputKind maps a surface-level key name to an InputKind.
func ParseInputKind(s string) (InputKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "remove", "delete", "del":
		return InputDelete, nil
	case "backspace", "bksp":
		return InputBackspace, nil
	case "numeric", "digit", "number":
		return InputNumeric, nil
	}
	return "", fmt.Errorf("unknown input kind %q (valid: remove, backspace, numeric)", s)
}

// Input is one keypad event. Buffer is the numeric entry buffer after the key
// was applied.
type Input struct {
	Kind   InputKind `json:"kind"`
	Buffer string    `json:"buffer,omitempty"`
}

// Transition is the interceptor's decision for one input.
type Transition string

const (
	TransitionPassThrough Transition = "pass_through"
	TransitionDecrement   Transition = "decrement"
	TransitionRemoveLine  Transition = "remove_line"
)

// EditResult reports what an input did to the order.
type EditResult struct {
	Transition  Transition `json:"transition"`
	LineID      int        `json:"line_id,omitempty"`
	Quantity    int        `json:"quantity"`
	Removed     bool       `json:"removed,omitempty"`
	Cancelled   bool       `json:"cancellation_requested,omitempty"`
	BufferReset bool       `json:"buffer_reset,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// CancellationRequester launches a best-effort credit cancellation without
// blocking the caller. It reports whether any work was started.
type CancellationRequester interface {
	RequestCancellation(sessionID string, product domain.Product, quantity int) bool
}

// QuantityInterceptor sits between keypad input and the order's quantity
// primitive. It turns "remove" into a one-unit decrement while more than one
// unit is left, keeps combo groups in lockstep, and asks for one credit
// cancellation per unit that leaves the order.
type QuantityInterceptor struct {
	canceller CancellationRequester
	logger    *logging.Logger
}

// NewQuantityInterceptor creates a QuantityInterceptor.
func NewQuantityInterceptor(canceller CancellationRequester, logger *logging.Logger) *QuantityInterceptor {
	if logger == nil {
		logger = logging.Nop()
	}
	return &QuantityInterceptor{canceller: canceller, logger: logger}
}

// Attach installs the interceptor as the order's removal guard so direct
// removals go through the same decrement rule.
func (q *QuantityInterceptor) Attach(o *domain.Order) { o.SetGuard(q) }

// Decide evaluates one input against the order without mutating it. The
// returned line is the effective target, nil when nothing is selected.
func (q *QuantityInterceptor) Decide(o *domain.Order, in Input) (Transition, *domain.Line) {
	// 1. Only the quantity keypad mode is intercepted
	if o.Mode() != domain.ModeQuantity {
		return TransitionPassThrough, nil
	}

	// 2. Combo children are edited through their anchor
	selected := o.Selected()
	if selected == nil {
		return TransitionPassThrough, nil
	}
	target := selected.Anchor()

	// 3. Remove with more than one unit left
	if in.isRemove() && target.Quantity() > 1 {
		return TransitionDecrement, target
	}

	// 4. Last unit, or a numeric entry that drives the quantity to zero
	if in.isRemove() || in.isZero() {
		return TransitionRemoveLine, target
	}

	// 5. Anything else is an ordinary quantity entry
	return TransitionPassThrough, target
}

// OnQuantityEditInput applies one keypad input to the order.
func (q *QuantityInterceptor) OnQuantityEditInput(o *domain.Order, in Input) EditResult {
	transition, target := q.Decide(o, in)
	switch transition {
	case TransitionDecrement:
		return q.decrement(o, target)
	case TransitionRemoveLine:
		return q.remove(o, target)
	default:
		return q.passThrough(o, target, in)
	}
}

// BeforeRemove converts a direct removal of a multi-unit line into a
// decrement. Either way one unit leaves the order and one credit is
// cancelled.
func (q *QuantityInterceptor) BeforeRemove(o *domain.Order, l *domain.Line) domain.RemovalDecision {
	q.requestCancellation(o, l)
	if l.Quantity() > 1 {
		q.logger.Debug("direct removal converted to decrement",
			"order", o.ID(), "line", l.ID(), "quantity", l.Quantity())
		return domain.RemovalDecrement
	}
	return domain.RemovalProceed
}

func (q *QuantityInterceptor) decrement(o *domain.Order, target *domain.Line) EditResult {
	product := snapshot(target)
	newQty := target.Quantity() - 1

	res := EditResult{Transition: TransitionDecrement, LineID: target.ID(), Quantity: target.Quantity()}
	if err := o.SetGroupQuantity(target, newQty); err != nil {
		q.logger.WithError(err).Warn("decrement rejected", "order", o.ID(), "line", target.ID())
		res.BufferReset = true
		res.Error = err.Error()
	} else {
		res.Quantity = newQty
	}

	res.Cancelled = q.cancel(o.SessionID(), product)
	return res
}

func (q *QuantityInterceptor) remove(o *domain.Order, target *domain.Line) EditResult {
	res := EditResult{Transition: TransitionRemoveLine, LineID: target.ID(), Quantity: target.Quantity()}

	res.Cancelled = q.requestCancellation(o, target)

	if err := o.DeleteLine(target); err != nil {
		q.logger.WithError(err).Warn("removal rejected", "order", o.ID(), "line", target.ID())
		res.BufferReset = true
		res.Error = err.Error()
		return res
	}
	res.Quantity = 0
	res.Removed = true
	return res
}

// passThrough is the default numeric handling: the buffer becomes the new
// group quantity. Price and discount entry are not modelled and leave the
// order unchanged.
func (q *QuantityInterceptor) passThrough(o *domain.Order, target *domain.Line, in Input) EditResult {
	res := EditResult{Transition: TransitionPassThrough}
	if target == nil {
		return res
	}
	res.LineID = target.ID()
	res.Quantity = target.Quantity()

	buf := strings.TrimSpace(in.Buffer)
	if buf == "" {
		return res
	}
	qty, err := strconv.Atoi(buf)
	if err == nil && qty < 0 {
		err = domain.ErrInvalidQuantity
	}
	if err == nil {
		err = o.SetGroupQuantity(target, qty)
	}
	if err != nil {
		q.logger.WithError(err).Debug("quantity entry rejected", "order", o.ID(), "buffer", buf)
		res.BufferReset = true
		res.Error = err.Error()
		return res
	}
	res.Quantity = qty
	return res
}

func (q *QuantityInterceptor) requestCancellation(o *domain.Order, l *domain.Line) bool {
	return q.cancel(o.SessionID(), snapshot(l))
}

func (q *QuantityInterceptor) cancel(sessionID string, product domain.Product) bool {
	if q.canceller == nil {
		return false
	}
	return q.canceller.RequestCancellation(sessionID, product, 1)
}

// cancels reports whether removing a unit of p starts a cancellation.
func (q *QuantityInterceptor) cancels(p *domain.Product) bool {
	return q.canceller != nil && domain.ClassifyProduct(p, domain.DefaultPLU).Controlled()
}

// snapshot copies the line's product so the cancellation does not depend on
// the line surviving the mutation.
func snapshot(l *domain.Line) domain.Product {
	if p := l.Product(); p != nil {
		return *p
	}
	return domain.Product{}
}

func (in Input) isRemove() bool {
	switch in.Kind {
	case InputDelete:
		return true
	case InputBackspace:
		return strings.TrimSpace(in.Buffer) == ""
	}
	return false
}

func (in Input) isZero() bool {
	if in.Kind != InputNumeric {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSpace(in.Buffer))
	return err == nil && n == 0
}
