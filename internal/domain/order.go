package domain

import "fmt"

// EntryMode is the numeric keypad mode of the order editor.
type EntryMode string

const (
	ModeQuantity EntryMode = "quantity"
	ModePrice    EntryMode = "price"
	ModeDiscount EntryMode = "discount"
)

// ValidEntryModes enumerates the keypad modes the editor understands.
var ValidEntryModes = []EntryMode{ModeQuantity, ModePrice, ModeDiscount}

// Valid reports whether m is a known keypad mode.
func (m EntryMode) Valid() bool {
	for _, v := range ValidEntryModes {
		if m == v {
			return true
		}
	}
	return false
}

// OrderLine is the capability set shared by every line variant: it bears a
// quantity and a product.
type OrderLine interface {
	Quantity() int
	Product() *Product
}

// Line is one product at a given quantity within an Order. A line that
// belongs to a combo group points at the group's anchor through its parent;
// the anchor owns the ordered children.
type Line struct {
	id       int
	product  *Product
	qty      int
	parent   *Line
	children []*Line
}

func (l *Line) ID() int            { return l.id }
func (l *Line) Product() *Product  { return l.product }
func (l *Line) Quantity() int      { return l.qty }
func (l *Line) Parent() *Line      { return l.parent }
func (l *Line) IsComboChild() bool { return l.parent != nil }

// Children returns a copy of the combo children owned by this line.
func (l *Line) Children() []*Line {
	out := make([]*Line, len(l.children))
	copy(out, l.children)
	return out
}

// Anchor returns the line through which the group quantity is edited.
func (l *Line) Anchor() *Line {
	if l.parent != nil {
		return l.parent
	}
	return l
}

// RemovalDecision is what a RemovalGuard tells the order to do with a line
// that is about to be removed.
type RemovalDecision int

const (
	// RemovalProceed lets the line leave the order.
	RemovalProceed RemovalDecision = iota
	// RemovalDecrement keeps the line and lowers its quantity by one.
	RemovalDecrement
)

// RemovalGuard is consulted by Order.RemoveLine before the base removal runs.
type RemovalGuard interface {
	BeforeRemove(o *Order, l *Line) RemovalDecision
}

// Order is the root aggregate of the order editor.
type Order struct {
	id         string
	sessionID  string
	lines      []*Line
	selected   *Line
	mode       EntryMode
	finalized  bool
	nextLineID int
	guard      RemovalGuard
}

// NewOrder creates an empty order in quantity mode. An empty sessionID means
// the order has no active session.
func NewOrder(id, sessionID string) *Order {
	return &Order{
		id:         id,
		sessionID:  sessionID,
		mode:       ModeQuantity,
		nextLineID: 1,
	}
}

func (o *Order) ID() string        { return o.id }
func (o *Order) SessionID() string { return o.sessionID }
func (o *Order) Mode() EntryMode   { return o.mode }
func (o *Order) Selected() *Line   { return o.selected }
func (o *Order) IsFinalized() bool { return o.finalized }

// SetGuard installs the guard consulted by RemoveLine.
func (o *Order) SetGuard(g RemovalGuard) { o.guard = g }

// SetSessionID attaches the order to a session.
func (o *Order) SetSessionID(id string) { o.sessionID = id }

// Finalize freezes the order; further quantity changes are rejected.
func (o *Order) Finalize() { o.finalized = true }

// SetMode switches the keypad mode.
func (o *Order) SetMode(m EntryMode) error {
	if !m.Valid() {
		return fmt.Errorf("unknown entry mode %q (valid: quantity, price, discount)", m)
	}
	o.mode = m
	return nil
}

// Lines returns the order's lines in display order.
func (o *Order) Lines() []*Line {
	out := make([]*Line, len(o.lines))
	copy(out, o.lines)
	return out
}

// Line looks up a line by id.
func (o *Order) Line(id int) (*Line, error) {
	for _, l := range o.lines {
		if l.id == id {
			return l, nil
		}
	}
	return nil, fmt.Errorf("line %d: %w", id, ErrLineNotFound)
}

// Select makes the line with the given id the selected one.
func (o *Order) Select(id int) error {
	l, err := o.Line(id)
	if err != nil {
		return err
	}
	o.selected = l
	return nil
}

// AddLine appends a new line for p and selects it.
func (o *Order) AddLine(p *Product, qty int) (*Line, error) {
	if o.finalized {
		return nil, ErrOrderFinalized
	}
	if p == nil {
		return nil, ErrUnknownProduct
	}
	if qty <= 0 {
		return nil, fmt.Errorf("adding %s with quantity %d: %w", p.Label(), qty, ErrInvalidQuantity)
	}
	l := &Line{id: o.allocID(), product: p, qty: qty}
	o.lines = append(o.lines, l)
	o.selected = l
	return l, nil
}

// AddComboLine attaches a child line for p to anchor. The child starts at the
// anchor's quantity and is placed after the anchor's existing children.
func (o *Order) AddComboLine(anchor *Line, p *Product) (*Line, error) {
	if o.finalized {
		return nil, ErrOrderFinalized
	}
	if p == nil {
		return nil, ErrUnknownProduct
	}
	if !o.contains(anchor) {
		return nil, ErrLineNotFound
	}
	if anchor.parent != nil {
		return nil, fmt.Errorf("line %d is itself a combo child", anchor.id)
	}

	child := &Line{id: o.allocID(), product: p, qty: anchor.qty, parent: anchor}

	last := anchor
	if n := len(anchor.children); n > 0 {
		last = anchor.children[n-1]
	}
	idx := o.indexOf(last) + 1
	o.lines = append(o.lines, nil)
	copy(o.lines[idx+1:], o.lines[idx:])
	o.lines[idx] = child

	anchor.children = append(anchor.children, child)
	return child, nil
}

// SetQuantity is the single place a line's quantity changes. A quantity of
// zero removes the line together with its combo children.
func (o *Order) SetQuantity(l *Line, qty int) error {
	if o.finalized {
		return ErrOrderFinalized
	}
	if !o.contains(l) {
		return ErrLineNotFound
	}
	if qty < 0 {
		return fmt.Errorf("line %d quantity %d: %w", l.id, qty, ErrInvalidQuantity)
	}
	if qty == 0 {
		o.detach(l)
		return nil
	}
	l.qty = qty
	return nil
}

// DeleteLine removes a line without consulting the removal guard.
func (o *Order) DeleteLine(l *Line) error {
	if o.finalized {
		return ErrOrderFinalized
	}
	if !o.contains(l) {
		return ErrLineNotFound
	}
	o.detach(l)
	return nil
}

// RemoveLine is the removal entry point for callers outside the quantity
// editor. It acts on the line's combo group through its anchor. The guard,
// when set, may turn the removal into a decrement of the group; the returned
// bool reports whether the line actually left the order.
func (o *Order) RemoveLine(l *Line) (bool, error) {
	if o.finalized {
		return false, ErrOrderFinalized
	}
	if !o.contains(l) {
		return false, ErrLineNotFound
	}
	target := l.Anchor()
	if o.guard != nil && o.guard.BeforeRemove(o, target) == RemovalDecrement {
		return false, o.SetGroupQuantity(target, target.qty-1)
	}
	o.detach(target)
	return true, nil
}

// SetGroupQuantity sets the quantity of an anchor line and of every combo
// child it owns. A rejected anchor update leaves the children untouched.
func (o *Order) SetGroupQuantity(anchor *Line, qty int) error {
	children := anchor.Children()
	if err := o.SetQuantity(anchor, qty); err != nil {
		return err
	}
	if qty == 0 {
		return nil
	}
	for _, c := range children {
		if err := o.SetQuantity(c, qty); err != nil {
			return fmt.Errorf("combo line %d: %w", c.id, err)
		}
	}
	return nil
}

func (o *Order) allocID() int {
	id := o.nextLineID
	o.nextLineID++
	return id
}

func (o *Order) contains(l *Line) bool {
	return l != nil && o.indexOf(l) >= 0
}

func (o *Order) indexOf(l *Line) int {
	for i, x := range o.lines {
		if x == l {
			return i
		}
	}
	return -1
}

func (o *Order) detach(l *Line) {
	for _, c := range l.children {
		o.drop(c)
	}
	l.children = nil

	if p := l.parent; p != nil {
		for i, c := range p.children {
			if c == l {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	o.drop(l)
}

func (o *Order) drop(l *Line) {
	idx := o.indexOf(l)
	if idx < 0 {
		return
	}
	o.lines = append(o.lines[:idx], o.lines[idx+1:]...)
	if o.selected == l || (o.selected != nil && o.indexOf(o.selected) < 0) {
		o.selected = nil
		if n := len(o.lines); n > 0 {
			o.selected = o.lines[n-1]
		}
	}
}

// OrderView is a serializable snapshot of an order.
type OrderView struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id,omitempty"`
	Mode      EntryMode  `json:"mode"`
	Finalized bool       `json:"finalized,omitempty"`
	Selected  int        `json:"selected,omitempty"`
	Lines     []LineView `json:"lines"`
}

// LineView is a serializable snapshot of a line.
type LineView struct {
	ID        int    `json:"id"`
	ProductID int64  `json:"product_id"`
	Product   string `json:"product"`
	Quantity  int    `json:"quantity"`
	ParentID  int    `json:"parent_id,omitempty"`
}

// View snapshots the order.
func (o *Order) View() OrderView {
	v := OrderView{
		ID:        o.id,
		SessionID: o.sessionID,
		Mode:      o.mode,
		Finalized: o.finalized,
		Lines:     make([]LineView, 0, len(o.lines)),
	}
	if o.selected != nil {
		v.Selected = o.selected.id
	}
	for _, l := range o.lines {
		lv := LineView{
			ID:        l.id,
			ProductID: l.product.ID,
			Product:   l.product.Label(),
			Quantity:  l.qty,
		}
		if l.parent != nil {
			lv.ParentID = l.parent.id
		}
		v.Lines = append(v.Lines, lv)
	}
	return v
}
