// Package bulkentry turns a batch of consolidated sale rows, typed after the
// fact from paper notes, into one sale draft per row. A batch is accepted
// only when every row is valid.
package bulkentry

import (
	"errors"
	"math"
	"strings"
	"time"

	"tebaspos/backend/internal/cart"
	"tebaspos/backend/internal/catalog"
	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/numfmt"
)

const (
	ReasonInvalidDate       = "invalid date"
	ReasonNotFound          = cart.ReasonNotFound
	ReasonInsufficientStock = cart.ReasonInsufficientStock
	ReasonUnknownCustomer   = "unknown customer"

	dateLayout = "2006-01-02"
	saleHour   = 12
)

var (
	ErrEmpty    = errors.New(cart.ReasonEmpty)
	ErrRejected = errors.New("fix the marked rows")
)

// Batch holds what rows are checked against. Stock is consumed row by row,
// so two rows of the same product share the quantity on hand.
type Batch struct {
	Products  *catalog.Index
	Customers []domain.Customer
	Stock     cart.StockSnapshot
	Location  *time.Location
}

// RowTotal is the line total of a bulk row: no discounts, price times qty.
func RowTotal(p domain.Product, qty float64) float64 {
	return numfmt.Mul2(p.Price, math.Max(0.001, qty))
}

// Blank reports whether a row carries no product reference at all; such
// rows are placeholders and are skipped.
func Blank(row domain.BulkRow) bool {
	return strings.TrimSpace(row.Product) == ""
}

// Prepare checks every non-blank row and returns one result per row and,
// when nothing failed, the drafts to hand to the sale ledger in row order.
func (b Batch) Prepare(storeID, userID string, rows []domain.BulkRow) ([]domain.BulkRowResult, []domain.SaleDraft, error) {
	loc := b.Location
	if loc == nil {
		loc = time.UTC
	}
	remaining := make(cart.StockSnapshot, len(b.Stock))
	for id, q := range b.Stock {
		remaining[id] = q
	}

	results := make([]domain.BulkRowResult, 0, len(rows))
	drafts := make([]domain.SaleDraft, 0, len(rows))
	failed := false
	for i, row := range rows {
		if Blank(row) {
			continue
		}
		res, draft := b.prepareRow(i, row, storeID, userID, loc, remaining)
		results = append(results, res)
		if res.Error != "" {
			failed = true
			continue
		}
		drafts = append(drafts, draft)
	}

	if len(results) == 0 {
		return nil, nil, ErrEmpty
	}
	if failed {
		return results, nil, ErrRejected
	}
	return results, drafts, nil
}

func (b Batch) prepareRow(i int, row domain.BulkRow, storeID, userID string, loc *time.Location, remaining cart.StockSnapshot) (domain.BulkRowResult, domain.SaleDraft) {
	res := domain.BulkRowResult{Index: i}

	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(row.Date), loc)
	if err != nil {
		res.Error = ReasonInvalidDate
		return res, domain.SaleDraft{}
	}

	if b.Products == nil {
		res.Error = ReasonNotFound
		return res, domain.SaleDraft{}
	}
	p, ok := b.Products.ResolveQuick(row.Product)
	if !ok {
		res.Error = ReasonNotFound
		return res, domain.SaleDraft{}
	}
	res.ProductID = p.ID

	// Unreadable or non-positive quantities fall back to the smallest unit,
	// as on the counter screen.
	qty := 1.0
	if strings.TrimSpace(row.Qty) != "" {
		qty = math.Max(0.001, numfmt.Round3(numfmt.ParseBR(row.Qty)))
	}

	res.Total = RowTotal(p, qty)
	res.Received = res.Total
	if row.ReceivedTouched && strings.TrimSpace(row.Received) != "" {
		res.Received = numfmt.Round2(math.Max(0, numfmt.ParseBR(row.Received)))
	}

	customerID, ok := b.resolveCustomer(row.Customer)
	if !ok {
		res.Error = ReasonUnknownCustomer
		return res, domain.SaleDraft{}
	}

	if qty > remaining[p.ID] {
		res.Error = ReasonInsufficientStock
		return res, domain.SaleDraft{}
	}
	remaining[p.ID] = numfmt.Add3(remaining[p.ID], -qty)

	createdAt := time.Date(day.Year(), day.Month(), day.Day(), saleHour, 0, 0, 0, loc)
	return res, domain.SaleDraft{
		StoreID:       storeID,
		UserID:        userID,
		PaymentMethod: domain.PaymentCash,
		Items: []domain.SaleItem{{
			ProductID:   p.ID,
			Qty:         qty,
			DiscountPct: 0,
			TotalFinal:  res.Total,
		}},
		CustomerID:         customerID,
		OverallDiscountPct: 0,
		ReceivedTotal:      res.Received,
		CreatedAt:          &createdAt,
	}
}

// resolveCustomer accepts a customer id or an exact name (case-insensitive).
// Blank and "Indefinido" mean no customer.
func (b Batch) resolveCustomer(ref string) (*string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.EqualFold(ref, domain.UndefinedCustomer) {
		return nil, true
	}
	for _, c := range b.Customers {
		if c.ID == ref {
			id := c.ID
			return &id, true
		}
	}
	for _, c := range b.Customers {
		if strings.EqualFold(strings.TrimSpace(c.Name), ref) {
			id := c.ID
			return &id, true
		}
	}
	return nil, false
}
