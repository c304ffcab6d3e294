// Package cart keeps the sale cart consistent while it is being edited:
// every line holds quantity, discount and final total together, and the
// cart-level discount and received amount follow the same rule.
package cart

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/numfmt"
)

const (
	ReasonEmpty             = "add at least one line"
	ReasonNotFound          = "item not found"
	ReasonInsufficientStock = "insufficient stock"

	minQuantity = 0.001
)

var ErrLineRange = errors.New("cart line out of range")

// Tracking says which of the two cart-level fields the operator typed last.
type Tracking int

const (
	Neutral Tracking = iota
	TrackingReceived
	TrackingDiscount
)

func (t Tracking) String() string {
	switch t {
	case TrackingReceived:
		return "received"
	case TrackingDiscount:
		return "discount"
	default:
		return "neutral"
	}
}

type Line struct {
	Product     domain.Product
	Quantity    float64
	DiscountPct float64
	Total       float64
}

func (l Line) base() float64 {
	return numfmt.Mul2(l.Product.Price, l.Quantity)
}

func (l *Line) recompute() {
	l.Total = numfmt.LineTotal(l.Product.Price, l.Quantity, l.DiscountPct)
}

// StockSnapshot maps a product id to the quantity on hand when the snapshot
// was taken. Missing products count as zero.
type StockSnapshot map[string]float64

type LineError struct {
	Index     int    `json:"index"`
	ProductID string `json:"product_id,omitempty"`
	Reason    string `json:"reason"`
}

// ValidationError lists everything that blocks a submission. Cart is set
// when the cart as a whole is unusable.
type ValidationError struct {
	Cart  string      `json:"cart,omitempty"`
	Lines []LineError `json:"lines,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Cart != "" {
		return e.Cart
	}
	parts := make([]string, 0, len(e.Lines))
	for _, le := range e.Lines {
		parts = append(parts, fmt.Sprintf("line %d: %s", le.Index+1, le.Reason))
	}
	return strings.Join(parts, "; ")
}

// HasReason reports whether any line failed for reason.
func (e *ValidationError) HasReason(reason string) bool {
	if e.Cart == reason {
		return true
	}
	for _, le := range e.Lines {
		if le.Reason == reason {
			return true
		}
	}
	return false
}

// Meta carries the sale fields the cart does not own.
type Meta struct {
	StoreID       string
	UserID        string
	PaymentMethod string
	CustomerID    *string
	CreatedAt     *time.Time
}

// Reconciler is not safe for concurrent use; each counter session owns one.
type Reconciler struct {
	lines      []Line
	overallPct float64
	received   float64
	tracking   Tracking
}

func New() *Reconciler {
	return &Reconciler{}
}

// Add puts qty units of p at the top of the cart, or merges them into the
// line that already holds p.
func (r *Reconciler) Add(p domain.Product, qty float64) {
	qty = sanitizeQty(qty)
	for i := range r.lines {
		if r.lines[i].Product.ID != p.ID {
			continue
		}
		r.lines[i].Quantity = numfmt.Add3(r.lines[i].Quantity, qty)
		r.lines[i].recompute()
		r.sync()
		return
	}
	line := Line{Product: p, Quantity: qty}
	line.recompute()
	r.lines = append([]Line{line}, r.lines...)
	r.sync()
}

func (r *Reconciler) SetQuantity(i int, qty float64) error {
	if !r.inRange(i) {
		return ErrLineRange
	}
	r.lines[i].Quantity = sanitizeQty(qty)
	r.lines[i].recompute()
	r.sync()
	return nil
}

func (r *Reconciler) SetDiscountPct(i int, pct float64) error {
	if !r.inRange(i) {
		return ErrLineRange
	}
	r.lines[i].DiscountPct = numfmt.ClampPct(pct)
	r.lines[i].recompute()
	r.sync()
	return nil
}

// SetLineTotal takes total as authoritative and derives the discount from it.
// A line with a zero base keeps the typed total and a zero discount.
func (r *Reconciler) SetLineTotal(i int, total float64) error {
	if !r.inRange(i) {
		return ErrLineRange
	}
	total = numfmt.Round2(math.Max(0, finiteOrZero(total)))
	line := &r.lines[i]
	base := line.base()
	if base > 0 {
		line.DiscountPct = numfmt.ClampPct(numfmt.PctOff(total, base))
	} else {
		line.DiscountPct = 0
	}
	line.Total = total
	r.sync()
	return nil
}

func (r *Reconciler) Remove(i int) error {
	if !r.inRange(i) {
		return ErrLineRange
	}
	r.lines = append(r.lines[:i], r.lines[i+1:]...)
	r.sync()
	return nil
}

func (r *Reconciler) Clear() {
	r.lines = nil
	r.overallPct = 0
	r.received = 0
	r.tracking = Neutral
}

// SetOverallDiscountPct hands authority back to the discount, so the received
// amount follows the final total again.
func (r *Reconciler) SetOverallDiscountPct(pct float64) {
	r.overallPct = numfmt.ClampPct(pct)
	r.tracking = TrackingDiscount
	r.sync()
}

// SetReceived makes the received amount authoritative: from now on it stays
// put and the overall discount is derived from it.
func (r *Reconciler) SetReceived(amount float64) {
	r.tracking = TrackingReceived
	r.received = numfmt.Round2(math.Max(0, finiteOrZero(amount)))
	sub := r.Subtotal()
	if sub <= 0 {
		r.overallPct = 0
		return
	}
	r.overallPct = numfmt.ClampPct(numfmt.PctOff(r.received, sub))
}

func (r *Reconciler) Subtotal() float64 {
	totals := make([]float64, len(r.lines))
	for i, l := range r.lines {
		totals[i] = l.Total
	}
	return numfmt.Sum2(totals...)
}

func (r *Reconciler) FinalTotal() float64 {
	return numfmt.ApplyPct(r.Subtotal(), r.overallPct)
}

func (r *Reconciler) Received() float64           { return r.received }
func (r *Reconciler) OverallDiscountPct() float64 { return r.overallPct }
func (r *Reconciler) Tracking() Tracking          { return r.tracking }
func (r *Reconciler) Len() int                    { return len(r.lines) }

// Lines returns a copy of the current lines, newest first.
func (r *Reconciler) Lines() []Line {
	out := make([]Line, len(r.lines))
	copy(out, r.lines)
	return out
}

// Validate checks the cart against a stock snapshot. Every offending line is
// reported; a nil error means Submission will succeed. Products are resolved
// against the catalog when a line is added, so the only not-found case left
// here is a line that never carried a product id.
func (r *Reconciler) Validate(stock StockSnapshot) error {
	if len(r.lines) == 0 {
		return &ValidationError{Cart: ReasonEmpty}
	}
	verr := &ValidationError{}
	for i, l := range r.lines {
		if strings.TrimSpace(l.Product.ID) == "" {
			verr.Lines = append(verr.Lines, LineError{Index: i, Reason: ReasonNotFound})
			continue
		}
		if sanitizeQty(l.Quantity) > stock[l.Product.ID] {
			verr.Lines = append(verr.Lines, LineError{Index: i, ProductID: l.Product.ID, Reason: ReasonInsufficientStock})
		}
	}
	if len(verr.Lines) > 0 {
		return verr
	}
	return nil
}

// Submission validates the cart and builds the draft handed to a sale
// ledger. The cart itself is left untouched either way.
func (r *Reconciler) Submission(stock StockSnapshot, meta Meta) (domain.SaleDraft, error) {
	if err := r.Validate(stock); err != nil {
		return domain.SaleDraft{}, err
	}
	items := make([]domain.SaleItem, 0, len(r.lines))
	for _, l := range r.lines {
		items = append(items, domain.SaleItem{
			ProductID:   l.Product.ID,
			Qty:         math.Max(minQuantity, numfmt.Round3(l.Quantity)),
			DiscountPct: numfmt.ClampPct(l.DiscountPct),
			TotalFinal:  numfmt.Round2(l.Total),
		})
	}
	return domain.SaleDraft{
		StoreID:            meta.StoreID,
		UserID:             meta.UserID,
		PaymentMethod:      meta.PaymentMethod,
		Items:              items,
		CustomerID:         meta.CustomerID,
		OverallDiscountPct: r.overallPct,
		ReceivedTotal:      numfmt.Round2(r.received),
		CreatedAt:          meta.CreatedAt,
	}, nil
}

func (r *Reconciler) sync() {
	if r.tracking == TrackingReceived {
		return
	}
	r.received = r.FinalTotal()
}

func (r *Reconciler) inRange(i int) bool {
	return i >= 0 && i < len(r.lines)
}

func sanitizeQty(q float64) float64 {
	return math.Max(minQuantity, finiteOrZero(q))
}

func finiteOrZero(n float64) float64 {
	if !numfmt.Finite(n) {
		return 0
	}
	return n
}
