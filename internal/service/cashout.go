package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/logger"
	"tebaspos/backend/internal/numfmt"
	"tebaspos/backend/internal/store"
)

const defaultCashOutDays = 30

// NormalizeCashOutDays accepts 7, 30 or 90; anything else becomes 30.
func NormalizeCashOutDays(days int) int {
	switch days {
	case 7, 30, 90:
		return days
	}
	return defaultCashOutDays
}

// CashOutAmounts derives unit value and total from one another. The total
// is normally q*u; when the total was edited it wins and the unit value is
// back-computed from it.
func CashOutAmounts(qty, unit, total float64, totalEdited bool) (float64, float64) {
	if totalEdited {
		total = numfmt.Round2(total)
		if qty > 0 {
			return numfmt.Div2(total, qty), total
		}
		return 0, total
	}
	unit = numfmt.Round2(unit)
	return unit, numfmt.Mul2(qty, unit)
}

// CreateCashOut records a product purchase or an expense. A purchase stores
// its unit value as the product's last cost and leaves inventory alone.
func (s *Service) CreateCashOut(ctx context.Context, req domain.CashOutRequest) (domain.CashOut, error) {
	storeID, err := s.scopeStore(ctx, req.StoreID)
	if err != nil {
		return domain.CashOut{}, err
	}
	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if kind != domain.CashOutProduct && kind != domain.CashOutExpense {
		return domain.CashOut{}, fmt.Errorf("kind %q: %w", req.Kind, store.ErrInvalidInput)
	}
	day, err := s.parseDay(req.OutDate)
	if err != nil {
		return domain.CashOut{}, err
	}

	qty := numfmt.Round3(req.Quantity.Float())
	if qty < 0 {
		return domain.CashOut{}, store.ErrInvalidInput
	}
	unit, total := CashOutAmounts(qty, req.UnitValue.Float(), req.Total.Float(), req.TotalEdited)
	if unit < 0 || total < 0 {
		return domain.CashOut{}, store.ErrInvalidInput
	}

	entry := domain.CashOut{
		StoreID:   storeID,
		Kind:      kind,
		OutDate:   day,
		Quantity:  qty,
		UnitValue: unit,
		Total:     total,
		CreatedAt: s.now().UTC(),
	}

	var product domain.Product
	if kind == domain.CashOutProduct {
		product, err = s.ResolveProduct(ctx, storeID, req.Product)
		if err != nil {
			return domain.CashOut{}, err
		}
		if qty <= 0 {
			return domain.CashOut{}, fmt.Errorf("quantity must be positive: %w", store.ErrInvalidInput)
		}
		entry.ProductID = &product.ID
		entry.Description = purchaseDescription(product)
	} else {
		entry.Description = strings.TrimSpace(req.Description)
		if entry.Description == "" {
			return domain.CashOut{}, fmt.Errorf("description required: %w", store.ErrInvalidInput)
		}
	}

	created, err := s.repo.CreateCashOut(ctx, entry)
	if err != nil {
		return domain.CashOut{}, err
	}

	if kind == domain.CashOutProduct {
		if err := s.repo.UpdateProductCost(ctx, storeID, product.ID, unit); err != nil {
			logger.L().Warn("last cost update failed", zap.String("product_id", product.ID), zap.Error(err))
		}
	}

	s.logAudit(ctx, storeID, "cash_out_create", "cash_out", created.ID,
		fmt.Sprintf("kind=%s,total=%s", created.Kind, numfmt.FormatMoney(created.Total)))
	s.stats.Invalidate(ctx, storeID)
	return *created, nil
}

// ListCashOuts lists the entries of the last days (7, 30 or 90), today
// included, newest first.
func (s *Service) ListCashOuts(ctx context.Context, storeID string, days int) (domain.CashOutListResponse, error) {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return domain.CashOutListResponse{}, err
	}
	days = NormalizeCashOutDays(days)
	today, _ := s.parseDay("")
	from := today.AddDate(0, 0, -(days - 1))
	to := today.AddDate(0, 0, 1)

	entries, err := s.repo.ListCashOuts(ctx, storeID, from, to)
	if err != nil {
		return domain.CashOutListResponse{}, err
	}
	total := 0.0
	for _, e := range entries {
		total += e.Total
	}
	return domain.CashOutListResponse{Days: days, Entries: entries, Total: numfmt.Round2(total)}, nil
}

func (s *Service) DeleteCashOut(ctx context.Context, storeID string, cashOutID string) error {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCashOut(ctx, storeID, strings.TrimSpace(cashOutID)); err != nil {
		return err
	}
	s.logAudit(ctx, storeID, "cash_out_delete", "cash_out", cashOutID, "")
	s.stats.Invalidate(ctx, storeID)
	return nil
}

func purchaseDescription(p domain.Product) string {
	description := "Compra: " + strings.TrimSpace(p.Description)
	if brand := strings.TrimSpace(p.Brand); brand != "" {
		description += " • " + brand
	}
	return description
}
