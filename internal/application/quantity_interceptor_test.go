package application

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pourline/pourline/internal/domain"
	"github.com/pourline/pourline/internal/platform/logging"
)

func newInterceptor() (*QuantityInterceptor, *recordingCanceller) {
	rc := &recordingCanceller{}
	return NewQuantityInterceptor(rc, logging.Nop()), rc
}

func cocktailOrder(t *testing.T, qty int) (*domain.Order, *domain.Line, *domain.Line) {
	t.Helper()
	o := domain.NewOrder("o-1", "s-1")
	anchor, err := o.AddLine(mojito, qty)
	require.NoError(t, err)
	child, err := o.AddComboLine(anchor, menthe)
	require.NoError(t, err)
	return o, anchor, child
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		qty  int
		mode domain.EntryMode
		in   Input
		want Transition
	}{
		{name: "delete above one", qty: 3, in: Input{Kind: InputDelete}, want: TransitionDecrement},
		{name: "backspace on empty buffer above one", qty: 2, in: Input{Kind: InputBackspace}, want: TransitionDecrement},
		{name: "delete at one", qty: 1, in: Input{Kind: InputDelete}, want: TransitionRemoveLine},
		{name: "backspace on empty buffer at one", qty: 1, in: Input{Kind: InputBackspace, Buffer: " "}, want: TransitionRemoveLine},
		{name: "numeric zero", qty: 4, in: Input{Kind: InputNumeric, Buffer: "0"}, want: TransitionRemoveLine},
		{name: "numeric double zero", qty: 4, in: Input{Kind: InputNumeric, Buffer: "00"}, want: TransitionRemoveLine},
		{name: "numeric entry", qty: 4, in: Input{Kind: InputNumeric, Buffer: "2"}, want: TransitionPassThrough},
		{name: "backspace editing buffer", qty: 4, in: Input{Kind: InputBackspace, Buffer: "1"}, want: TransitionPassThrough},
		{name: "price mode", qty: 3, mode: domain.ModePrice, in: Input{Kind: InputDelete}, want: TransitionPassThrough},
		{name: "discount mode", qty: 1, mode: domain.ModeDiscount, in: Input{Kind: InputNumeric, Buffer: "0"}, want: TransitionPassThrough},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, rc := newInterceptor()
			o := domain.NewOrder("o-1", "s-1")
			_, err := o.AddLine(pression, tt.qty)
			require.NoError(t, err)
			if tt.mode != "" {
				require.NoError(t, o.SetMode(tt.mode))
			}

			got, _ := q.Decide(o, tt.in)
			assert.Equal(t, tt.want, got)
			assert.Len(t, o.Lines(), 1, "Decide never mutates")
			assert.Empty(t, rc.Requests())
		})
	}
}

func TestDecide_NoSelection(t *testing.T) {
	q, _ := newInterceptor()
	got, target := q.Decide(domain.NewOrder("o-1", "s-1"), Input{Kind: InputDelete})
	assert.Equal(t, TransitionPassThrough, got)
	assert.Nil(t, target)
}

func TestDecrement_KeepsLineAndCancelsOneCredit(t *testing.T) {
	for q0 := 2; q0 <= 6; q0++ {
		q, rc := newInterceptor()
		o := domain.NewOrder("o-1", "s-1")
		l, err := o.AddLine(pression, q0)
		require.NoError(t, err)

		res := q.OnQuantityEditInput(o, Input{Kind: InputDelete})

		assert.Equal(t, TransitionDecrement, res.Transition)
		assert.Equal(t, q0-1, l.Quantity())
		assert.Equal(t, q0-1, res.Quantity)
		assert.Len(t, o.Lines(), 1)
		assert.False(t, res.Removed)

		reqs := rc.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, cancelRequest{SessionID: "s-1", Product: *pression, Quantity: 1}, reqs[0])
	}
}

func TestDecrement_PropagatesToComboChildren(t *testing.T) {
	q, rc := newInterceptor()
	o, anchor, child := cocktailOrder(t, 3)
	require.NoError(t, o.Select(child.ID()))

	res := q.OnQuantityEditInput(o, Input{Kind: InputBackspace})

	assert.Equal(t, TransitionDecrement, res.Transition)
	assert.Equal(t, anchor.ID(), res.LineID, "combo children are edited through the anchor")
	assert.Equal(t, 2, anchor.Quantity())
	assert.Equal(t, 2, child.Quantity())

	reqs := rc.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, int64(42), reqs[0].Product.ID)
}

func TestDecrement_RejectedResetsBuffer(t *testing.T) {
	q, rc := newInterceptor()
	o := domain.NewOrder("o-1", "s-1")
	l, err := o.AddLine(pression, 3)
	require.NoError(t, err)
	o.Finalize()

	res := q.OnQuantityEditInput(o, Input{Kind: InputDelete})

	assert.Equal(t, TransitionDecrement, res.Transition)
	assert.True(t, res.BufferReset)
	assert.Contains(t, res.Error, "finalized")
	assert.Equal(t, 3, l.Quantity())
	assert.Len(t, rc.Requests(), 1)
}

func TestRemoveLine_LastUnit(t *testing.T) {
	q, rc := newInterceptor()
	o := domain.NewOrder("o-1", "s-1")
	_, err := o.AddLine(pression, 1)
	require.NoError(t, err)

	res := q.OnQuantityEditInput(o, Input{Kind: InputBackspace})

	assert.Equal(t, TransitionRemoveLine, res.Transition)
	assert.True(t, res.Removed)
	assert.Empty(t, o.Lines())

	reqs := rc.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 1, reqs[0].Quantity)
	assert.Equal(t, "Pression", reqs[0].Product.Name, "product survives the line")
}

func TestRemoveLine_ComboGroupLeavesTogether(t *testing.T) {
	q, rc := newInterceptor()
	o, _, _ := cocktailOrder(t, 1)

	res := q.OnQuantityEditInput(o, Input{Kind: InputDelete})

	assert.True(t, res.Removed)
	assert.Empty(t, o.Lines())
	assert.Len(t, rc.Requests(), 1)
}

func TestRemoveLine_NumericZeroCancelsOneUnit(t *testing.T) {
	q, rc := newInterceptor()
	o := domain.NewOrder("o-1", "s-1")
	_, err := o.AddLine(pression, 4)
	require.NoError(t, err)

	res := q.OnQuantityEditInput(o, Input{Kind: InputNumeric, Buffer: "0"})

	assert.Equal(t, TransitionRemoveLine, res.Transition)
	assert.Empty(t, o.Lines())
	reqs := rc.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 1, reqs[0].Quantity)
}

func TestPassThrough_SetsGroupQuantity(t *testing.T) {
	q, rc := newInterceptor()
	o, anchor, child := cocktailOrder(t, 2)

	res := q.OnQuantityEditInput(o, Input{Kind: InputNumeric, Buffer: "5"})

	assert.Equal(t, TransitionPassThrough, res.Transition)
	assert.Equal(t, 5, res.Quantity)
	assert.Equal(t, 5, anchor.Quantity())
	assert.Equal(t, 5, child.Quantity())
	assert.Empty(t, rc.Requests())
}

func TestPassThrough_InvalidBufferResets(t *testing.T) {
	q, _ := newInterceptor()
	o := domain.NewOrder("o-1", "s-1")
	l, err := o.AddLine(pression, 2)
	require.NoError(t, err)

	res := q.OnQuantityEditInput(o, Input{Kind: InputNumeric, Buffer: "2x"})
	assert.True(t, res.BufferReset)
	assert.Equal(t, 2, l.Quantity())

	res = q.OnQuantityEditInput(o, Input{Kind: InputNumeric, Buffer: "-3"})
	assert.True(t, res.BufferReset)
	assert.Equal(t, 2, l.Quantity())
}

func TestPassThrough_OtherModesLeaveOrderAlone(t *testing.T) {
	q, rc := newInterceptor()
	o := domain.NewOrder("o-1", "s-1")
	l, err := o.AddLine(pression, 3)
	require.NoError(t, err)
	require.NoError(t, o.SetMode(domain.ModePrice))

	res := q.OnQuantityEditInput(o, Input{Kind: InputDelete})

	assert.Equal(t, TransitionPassThrough, res.Transition)
	assert.Equal(t, 3, l.Quantity())
	assert.Empty(t, rc.Requests())
}

func TestBackupGuard_DirectRemovalDecrements(t *testing.T) {
	q, rc := newInterceptor()
	o, anchor, child := cocktailOrder(t, 3)
	q.Attach(o)

	removed, err := o.RemoveLine(anchor)
	require.NoError(t, err)

	assert.False(t, removed)
	assert.Equal(t, 2, anchor.Quantity())
	assert.Equal(t, 2, child.Quantity())
	assert.Len(t, o.Lines(), 2)
	require.Len(t, rc.Requests(), 1)
}

func TestBackupGuard_LastUnitRemoves(t *testing.T) {
	q, rc := newInterceptor()
	o := domain.NewOrder("o-1", "s-1")
	l, err := o.AddLine(pression, 1)
	require.NoError(t, err)
	q.Attach(o)

	removed, err := o.RemoveLine(l)
	require.NoError(t, err)

	assert.True(t, removed)
	assert.Empty(t, o.Lines())
	assert.Len(t, rc.Requests(), 1)
}

func TestInterceptorDoesNotDoubleCancelWhenGuardAttached(t *testing.T) {
	q, rc := newInterceptor()
	o := domain.NewOrder("o-1", "s-1")
	_, err := o.AddLine(pression, 1)
	require.NoError(t, err)
	q.Attach(o)

	q.OnQuantityEditInput(o, Input{Kind: InputDelete})

	assert.Empty(t, o.Lines())
	assert.Len(t, rc.Requests(), 1)
}

func TestBackspaceOnLastUnit_FailingCancellationNeverEscapes(t *testing.T) {
	gw := newFakeGateway()
	gw.respond = func(gatewayCall) (domain.RemoteResult, error) {
		return domain.RemoteResult{}, errors.New("connection refused")
	}
	sink := &recordingSink{}
	canceller := NewCreditCanceller(gw, sink, logging.Nop(), CancellerOptions{Timeout: time.Second})
	q := NewQuantityInterceptor(canceller, logging.Nop())

	o := domain.NewOrder("o-1", "s-1")
	_, err := o.AddLine(pression, 1)
	require.NoError(t, err)

	res := q.OnQuantityEditInput(o, Input{Kind: InputBackspace})
	canceller.Wait()

	assert.True(t, res.Removed)
	assert.Empty(t, o.Lines())
	calls := gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "CancelSimpleCredits", calls[0].Op)
	assert.Equal(t, 1, calls[0].Quantity)
	assert.Equal(t, "PLU7", calls[0].Code)
	assert.Equal(t, []domain.EventType{domain.EventCancellationAttempted, domain.EventCancellationFailed}, sink.Types())
}

func TestParseInputKind(t *testing.T) {
	for in, want := range map[string]InputKind{
		"remove":    InputDelete,
		"DELETE":    InputDelete,
		"backspace": InputBackspace,
		"numeric":   InputNumeric,
		"digit":     InputNumeric,
	} {
		got, err := ParseInputKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseInputKind("enter")
	assert.Error(t, err)
}

func TestDispenserService_RemoveLine(t *testing.T) {
	q, rc := newInterceptor()
	svc := NewDispenserService(q, nil, nil)
	o := svc.Track(domain.NewOrder("o-1", "s-1"))
	l, err := o.AddLine(pression, 2)
	require.NoError(t, err)

	res, err := svc.RemoveLine(o, l.ID())
	require.NoError(t, err)
	assert.Equal(t, TransitionDecrement, res.Transition)
	assert.Equal(t, 1, res.Quantity)

	res, err = svc.RemoveLine(o, l.ID())
	require.NoError(t, err)
	assert.Equal(t, TransitionRemoveLine, res.Transition)
	assert.True(t, res.Removed)

	_, err = svc.RemoveLine(o, l.ID())
	assert.ErrorIs(t, err, domain.ErrLineNotFound)

	assert.Len(t, rc.Requests(), 2)
}

func TestCancellationFlag_OnlyForDispenserProducts(t *testing.T) {
	q, rc := newInterceptor()
	svc := NewDispenserService(q, nil, nil)
	o := svc.Track(domain.NewOrder("o-1", "s-1"))
	snack, err := o.AddLine(chips, 2)
	require.NoError(t, err)
	beer, err := o.AddLine(pression, 1)
	require.NoError(t, err)

	require.NoError(t, o.Select(snack.ID()))
	res := q.OnQuantityEditInput(o, Input{Kind: InputDelete})
	assert.Equal(t, TransitionDecrement, res.Transition)
	assert.False(t, res.Cancelled)

	res = q.OnQuantityEditInput(o, Input{Kind: InputDelete})
	assert.Equal(t, TransitionRemoveLine, res.Transition)
	assert.False(t, res.Cancelled)

	removed, err := svc.RemoveLine(o, beer.ID())
	require.NoError(t, err)
	assert.True(t, removed.Removed)
	assert.True(t, removed.Cancelled)

	assert.Len(t, rc.Requests(), 3, "the interceptor still asks; the canceller decides")
}
