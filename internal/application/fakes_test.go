package application

import (
	"context"
	"sync"

	"github.com/pourline/pourline/internal/domain"
)

type gatewayCall struct {
	Op          string
	SessionID   string
	ProductID   int64
	Code        string
	Quantity    int
	Name        string
	ServerLabel string
}

// fakeGateway records every call. respond, when set, decides the answer.
type fakeGateway struct {
	mu       sync.Mutex
	calls    []gatewayCall
	respond  func(gatewayCall) (domain.RemoteResult, error)
	probe    domain.ProbeResult
	probeErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{probe: domain.ProbeResult{Success: true, Message: "OK"}}
}

func (f *fakeGateway) do(c gatewayCall) (domain.RemoteResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	respond := f.respond
	f.mu.Unlock()
	if respond != nil {
		return respond(c)
	}
	return domain.RemoteResult{Success: true, Message: "OK"}, nil
}

func (f *fakeGateway) SendIngredients(_ context.Context, productID int64, quantity int, serverLabel string) (domain.RemoteResult, error) {
	return f.do(gatewayCall{Op: "SendIngredients", ProductID: productID, Quantity: quantity, ServerLabel: serverLabel})
}

func (f *fakeGateway) SendCredit(ctx context.Context, item domain.DispatchItem) (domain.RemoteResult, error) {
	return f.do(gatewayCall{
		Op:        "SendCredit",
		SessionID: domain.SessionFromContext(ctx),
		ProductID: item.ProductID,
		Code:      item.Code,
		Quantity:  item.Quantity,
		Name:      item.Name,
	})
}

func (f *fakeGateway) CancelCompositeCredits(_ context.Context, sessionID string, productID int64, quantity int) (domain.RemoteResult, error) {
	return f.do(gatewayCall{Op: "CancelCompositeCredits", SessionID: sessionID, ProductID: productID, Quantity: quantity})
}

func (f *fakeGateway) CancelSimpleCredits(_ context.Context, sessionID, code string, quantity int, displayName string) (domain.RemoteResult, error) {
	return f.do(gatewayCall{Op: "CancelSimpleCredits", SessionID: sessionID, Code: code, Quantity: quantity, Name: displayName})
}

func (f *fakeGateway) ProbeConnectivity(context.Context) (domain.ProbeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, gatewayCall{Op: "ProbeConnectivity"})
	return f.probe, f.probeErr
}

func (f *fakeGateway) Calls() []gatewayCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]gatewayCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// remoteCalls excludes the advisory probe.
func (f *fakeGateway) remoteCalls() []gatewayCall {
	var out []gatewayCall
	for _, c := range f.Calls() {
		if c.Op != "ProbeConnectivity" {
			out = append(out, c)
		}
	}
	return out
}

type cancelRequest struct {
	SessionID string
	Product   domain.Product
	Quantity  int
}

type recordingCanceller struct {
	mu       sync.Mutex
	requests []cancelRequest
}

// RequestCancellation records every request and, like CreditCanceller,
// reports work only for dispenser-controlled products.
func (r *recordingCanceller) RequestCancellation(sessionID string, p domain.Product, qty int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, cancelRequest{SessionID: sessionID, Product: p, Quantity: qty})
	return domain.ClassifyProduct(&p, domain.DefaultPLU).Controlled()
}

func (r *recordingCanceller) Requests() []cancelRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]cancelRequest, len(r.requests))
	copy(out, r.requests)
	return out
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Emit(e domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) Types() []domain.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type staticAuth bool

func (a staticAuth) IsAuthorized(context.Context) bool { return bool(a) }

var (
	pression = &domain.Product{ID: 7, Name: "Pression", DispenserControlled: true, PLUCode: "PLU7"}
	blonde   = &domain.Product{ID: 8, Name: "Blonde", DispenserControlled: true}
	menthe   = &domain.Product{ID: 45, Name: "Menthe"}
	chips    = &domain.Product{ID: 90, Name: "Chips"}
)

var mojito = &domain.Product{
	ID:                  42,
	Name:                "Mojito",
	DispenserControlled: true,
	Composite:           true,
	Ingredients: []domain.Ingredient{
		{ProductID: 43, Name: "Rhum", PLUCode: "PLU3"},
		{ProductID: 44, Name: "Sirop", PLUCode: "PLU4"},
	},
}
