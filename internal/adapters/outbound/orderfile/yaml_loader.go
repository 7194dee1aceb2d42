// Package orderfile reads order documents used by the CLI, the HTTP API and
// the tests.
package orderfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pourline/pourline/internal/domain"
)

// File is the YAML shape of an order fixture. Line references (parent,
// selected) are 1-based positions in Lines.
type File struct {
	ID        string `yaml:"id"        json:"id,omitempty"`
	Session   string `yaml:"session"   json:"session,omitempty"`
	Mode      string `yaml:"mode"      json:"mode,omitempty"`
	Finalized bool   `yaml:"finalized" json:"finalized,omitempty"`
	Lines     []Line `yaml:"lines"     json:"lines"`
	Selected  int    `yaml:"selected"  json:"selected,omitempty"`
}

// Line is one fixture line. Product is a catalog key; ProductID is used when
// the key is empty. A line with a parent joins that line's combo group and
// takes its quantity.
type Line struct {
	Product   string `yaml:"product"    json:"product,omitempty"`
	ProductID int64  `yaml:"product_id" json:"product_id,omitempty"`
	Qty       int    `yaml:"qty"        json:"qty,omitempty"`
	Parent    int    `yaml:"parent"     json:"parent,omitempty"`
}

// Load reads and builds the order fixture at path.
func Load(path string, catalog *domain.Catalog) (*domain.Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading order: %w", err)
	}
	o, err := Parse(data, catalog)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return o, nil
}

// Parse builds an order from fixture YAML.
func Parse(data []byte, catalog *domain.Catalog) (*domain.Order, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing order: %w", err)
	}
	return Build(f, catalog)
}

// Build turns a decoded fixture into an order.
func Build(f File, catalog *domain.Catalog) (*domain.Order, error) {
	if catalog == nil {
		return nil, fmt.Errorf("building order: no catalog")
	}
	id := f.ID
	if id == "" {
		id = "order-1"
	}
	o := domain.NewOrder(id, f.Session)

	built := make([]*domain.Line, 0, len(f.Lines))
	for i, fl := range f.Lines {
		n := i + 1
		p, err := lookup(catalog, fl)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}

		var l *domain.Line
		if fl.Parent != 0 {
			if fl.Parent < 1 || fl.Parent >= n {
				return nil, fmt.Errorf("line %d: parent %d must point at an earlier line", n, fl.Parent)
			}
			l, err = o.AddComboLine(built[fl.Parent-1], p)
		} else {
			qty := fl.Qty
			if qty == 0 {
				qty = 1
			}
			l, err = o.AddLine(p, qty)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		built = append(built, l)
	}

	if f.Selected != 0 {
		if f.Selected < 1 || f.Selected > len(built) {
			return nil, fmt.Errorf("selected line %d out of range", f.Selected)
		}
		if err := o.Select(built[f.Selected-1].ID()); err != nil {
			return nil, err
		}
	}
	if f.Mode != "" {
		if err := o.SetMode(domain.EntryMode(f.Mode)); err != nil {
			return nil, err
		}
	}
	if f.Finalized {
		o.Finalize()
	}
	return o, nil
}

func lookup(c *domain.Catalog, fl Line) (*domain.Product, error) {
	if fl.Product != "" {
		return c.ByKey(fl.Product)
	}
	if fl.ProductID != 0 {
		return c.Product(fl.ProductID)
	}
	return nil, fmt.Errorf("no product: %w", domain.ErrUnknownProduct)
}
