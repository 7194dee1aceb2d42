package domain

// ItemKind tells how a line is handled by the dispenser.
type ItemKind string

const (
	KindNotControlled ItemKind = "not_controlled"
	KindSimple        ItemKind = "simple"
	KindComposite     ItemKind = "composite"
)

// Classification is the result of inspecting a line.
type Classification struct {
	Kind        ItemKind
	Code        string
	ProductID   int64
	Ingredients []Ingredient
}

// Controlled reports whether the line must be mirrored to the dispenser.
func (c Classification) Controlled() bool { return c.Kind != KindNotControlled }

// Classify decides how a line is dispensed. Simple items without a PLU code
// fall back to defaultPLU (DefaultPLU when empty). It has no side effects.
func Classify(line OrderLine, defaultPLU string) Classification {
	if line == nil {
		return Classification{Kind: KindNotControlled}
	}
	return ClassifyProduct(line.Product(), defaultPLU)
}

// ClassifyProduct is Classify for a bare product reference.
func ClassifyProduct(p *Product, defaultPLU string) Classification {
	if p == nil || !p.DispenserControlled {
		return Classification{Kind: KindNotControlled}
	}
	if p.Composite {
		return Classification{
			Kind:        KindComposite,
			ProductID:   p.ID,
			Ingredients: p.Ingredients,
		}
	}
	return Classification{
		Kind:      KindSimple,
		ProductID: p.ID,
		Code:      p.DispenseCode(defaultPLU),
	}
}

// DispatchItem is built from a classified line at dispatch time.
type DispatchItem struct {
	Kind      ItemKind `json:"kind"`
	Code      string   `json:"plu_no,omitempty"`
	ProductID int64    `json:"product_id,omitempty"`
	Quantity  int      `json:"quantity"`
	Name      string   `json:"product_name"`
}

// NewDispatchItem builds the dispatch value for a line. The bool is false
// when the line is not dispenser-controlled.
func NewDispatchItem(line OrderLine, defaultPLU string) (DispatchItem, bool) {
	c := Classify(line, defaultPLU)
	if !c.Controlled() {
		return DispatchItem{}, false
	}
	item := DispatchItem{
		Kind:      c.Kind,
		ProductID: c.ProductID,
		Quantity:  line.Quantity(),
		Name:      line.Product().Label(),
	}
	if c.Kind == KindSimple {
		item.Code = c.Code
	}
	return item, true
}
