package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPLU is the dispense code used for a simple item whose product has
// no PLU code of its own.
const DefaultPLU = "PLU1"

// Product is read-only reference data describing something that can be sold.
type Product struct {
	ID                  int64        `json:"id"                    yaml:"id"`
	Key                 string       `json:"key,omitempty"         yaml:"key,omitempty"`
	Name                string       `json:"name"                  yaml:"name"`
	DisplayName         string       `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	DispenserControlled bool         `json:"dispenser_controlled"  yaml:"dispenser_controlled"`
	Composite           bool         `json:"composite"             yaml:"composite"`
	PLUCode             string       `json:"plu_code,omitempty"    yaml:"plu_code,omitempty"`
	Ingredients         []Ingredient `json:"ingredients,omitempty" yaml:"ingredients,omitempty"`
}

// Ingredient is one pour of a composite product.
type Ingredient struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	PLUCode   string `json:"plu_code"`
}

// Label returns the name shown to operators.
func (p *Product) Label() string {
	if p == nil {
		return ""
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// DispenseCode returns the product's PLU code, or fallback when it has none.
func (p *Product) DispenseCode(fallback string) string {
	if p != nil {
		if code := strings.TrimSpace(p.PLUCode); code != "" {
			return code
		}
	}
	if fallback == "" {
		return DefaultPLU
	}
	return fallback
}

// AnyFlagSet folds synonym boolean flags into one value, such as the legacy
// dispenser flag names or combo/composite. Unset flags are skipped; any flag
// set to true wins.
func AnyFlagSet(flags ...*bool) bool {
	for _, f := range flags {
		if f != nil && *f {
			return true
		}
	}
	return false
}

// PLUNumber converts a dispense code such as "PLU7" or "7" into the numeric
// PLU the middleware expects.
func PLUNumber(code string) (int, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(code), "PLU")
	n, err := strconv.Atoi(trimmed)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid PLU code %q", code)
	}
	return n, nil
}
