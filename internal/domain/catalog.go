package domain

import (
	"fmt"
	"strconv"
)

// Catalog indexes product reference data by id and by key.
type Catalog struct {
	byID     map[int64]*Product
	byKey    map[string]*Product
	products []*Product
}

// NewCatalog builds a catalog, rejecting duplicate ids and keys.
func NewCatalog(products ...*Product) (*Catalog, error) {
	c := &Catalog{
		byID:  make(map[int64]*Product, len(products)),
		byKey: make(map[string]*Product, len(products)),
	}
	for _, p := range products {
		if err := c.add(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(p *Product) error {
	if p == nil {
		return fmt.Errorf("nil product")
	}
	if _, dup := c.byID[p.ID]; dup {
		return fmt.Errorf("duplicate product id %d", p.ID)
	}
	if p.Key != "" {
		if _, dup := c.byKey[p.Key]; dup {
			return fmt.Errorf("duplicate product key %q", p.Key)
		}
		c.byKey[p.Key] = p
	}
	c.byID[p.ID] = p
	c.products = append(c.products, p)
	return nil
}

// Product returns the product with the given id.
func (c *Catalog) Product(id int64) (*Product, error) {
	if p, ok := c.byID[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("product %d: %w", id, ErrUnknownProduct)
}

// ByKey returns the product with the given key.
func (c *Catalog) ByKey(key string) (*Product, error) {
	if p, ok := c.byKey[key]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("product %q: %w", key, ErrUnknownProduct)
}

// Products returns every product in load order.
func (c *Catalog) Products() []*Product {
	out := make([]*Product, len(c.products))
	copy(out, c.products)
	return out
}

// Lookup resolves a product by key, falling back to a numeric id.
func (c *Catalog) Lookup(ref string) (*Product, error) {
	if p, ok := c.byKey[ref]; ok {
		return p, nil
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return c.Product(id)
	}
	return nil, fmt.Errorf("product %q: %w", ref, ErrUnknownProduct)
}
