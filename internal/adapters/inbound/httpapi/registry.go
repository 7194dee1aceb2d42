package httpapi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pourline/pourline/internal/domain"
)

// ErrOrderNotFound is returned for an unknown order id.
var ErrOrderNotFound = errors.New("order not found")

// Registry keeps the open orders of the API. Orders carry no lock of their
// own, so every access goes through With. The registry lock only guards the
// map; each order is serialized by its entry's lock.
type Registry struct {
	mu     sync.Mutex
	orders map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	order   *domain.Order
	deleted bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{orders: make(map[string]*entry)}
}

// Add registers o, rejecting a duplicate id.
func (r *Registry) Add(o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.orders[o.ID()]; dup {
		return fmt.Errorf("order %s already exists", o.ID())
	}
	r.orders[o.ID()] = &entry{order: o}
	return nil
}

// With runs fn on the order while holding that order's lock. Other orders
// stay available while fn runs.
func (r *Registry) With(id string, fn func(*domain.Order) error) error {
	r.mu.Lock()
	e, ok := r.orders[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrOrderNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return fmt.Errorf("%s: %w", id, ErrOrderNotFound)
	}
	return fn(e.order)
}

// Delete forgets an order. It waits for a request already running on the
// order to finish.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	e, ok := r.orders[id]
	if ok {
		delete(r.orders, id)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrOrderNotFound)
	}

	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()
	return nil
}

// Len returns the number of open orders.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}
