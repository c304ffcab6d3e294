package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"tebaspos/backend/internal/catalog"
	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/numfmt"
	"tebaspos/backend/internal/stockalert"
	"tebaspos/backend/internal/store"
)

const defaultUnit = "un"

// Stock list filters.
const (
	FilterAll    = ""
	FilterAlerts = "alerts"
)

// stockItems joins products with their inventory record. Products without a
// record show zero on hand.
func (s *Service) stockItems(ctx context.Context, storeID string, products []domain.Product) ([]stockalert.Item, error) {
	records, err := s.repo.ListInventory(ctx, storeID)
	if err != nil {
		return nil, err
	}
	byProduct := make(map[string]domain.InventoryRecord, len(records))
	for _, rec := range records {
		byProduct[rec.ProductID] = rec
	}

	items := make([]stockalert.Item, 0, len(products))
	for _, p := range products {
		rec, ok := byProduct[p.ID]
		unit := rec.Unit
		if !ok || unit == "" {
			unit = defaultUnit
		}
		items = append(items, stockalert.Item{
			ProductID:   p.ID,
			Code:        p.Code,
			Description: p.Description,
			Brand:       p.Brand,
			Quantity:    rec.Quantity,
			Unit:        unit,
			Minimum:     p.MinimumStock,
		})
	}
	return stockalert.Evaluate(items), nil
}

// StockList returns every product with its stock status. level is one of
// "", "alerts" or a stockalert level; search matches the product label.
// Counts always cover the whole store.
func (s *Service) StockList(ctx context.Context, storeID string, level string, search string) (domain.StockListResponse, error) {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return domain.StockListResponse{}, err
	}
	products, err := s.repo.ListProducts(ctx, storeID)
	if err != nil {
		return domain.StockListResponse{}, err
	}
	items, err := s.stockItems(ctx, storeID, products)
	if err != nil {
		return domain.StockListResponse{}, err
	}

	level = strings.ToLower(strings.TrimSpace(level))
	search = strings.ToLower(strings.TrimSpace(search))
	labels := make(map[string]string, len(products))
	for _, p := range products {
		labels[p.ID] = strings.ToLower(catalog.Label(p))
	}

	filtered := make([]stockalert.Item, 0, len(items))
	for _, item := range items {
		switch level {
		case FilterAll:
		case FilterAlerts:
			if !item.Status.Level.Alerting() {
				continue
			}
		default:
			if string(item.Status.Level) != level {
				continue
			}
		}
		if search != "" && !strings.Contains(labels[item.ProductID], search) {
			continue
		}
		filtered = append(filtered, item)
	}

	return domain.StockListResponse{
		Items:  filtered,
		Counts: stockalert.Count(items),
	}, nil
}

// Alerts lists red and orange products, red first. limit <= 0 returns all.
func (s *Service) Alerts(ctx context.Context, storeID string, limit int) ([]stockalert.Item, error) {
	storeID, err := s.scopeStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx, storeID)
	if err != nil {
		return nil, err
	}
	items, err := s.stockItems(ctx, storeID, products)
	if err != nil {
		return nil, err
	}
	return stockalert.Alerts(items, limit), nil
}

// UpsertInventory sets the quantity on hand. Quantities are whole units:
// fractions are truncated and negatives become zero.
func (s *Service) UpsertInventory(ctx context.Context, req domain.InventoryUpsertRequest) (domain.InventoryRecord, error) {
	storeID, err := s.scopeStore(ctx, req.StoreID)
	if err != nil {
		return domain.InventoryRecord{}, err
	}
	if strings.TrimSpace(req.ProductID) == "" {
		return domain.InventoryRecord{}, store.ErrInvalidInput
	}

	qty := math.Trunc(req.Quantity.Float())
	if qty < 0 || !numfmt.Finite(qty) {
		qty = 0
	}

	saved, err := s.repo.UpsertInventory(ctx, domain.InventoryRecord{
		StoreID:   storeID,
		ProductID: strings.TrimSpace(req.ProductID),
		Quantity:  qty,
		Unit:      defaultString(strings.TrimSpace(req.Unit), defaultUnit),
	})
	if err != nil {
		return domain.InventoryRecord{}, err
	}

	s.logAudit(ctx, storeID, "inventory_set", "product", saved.ProductID,
		fmt.Sprintf("qty=%s,unit=%s", numfmt.FormatQty(saved.Quantity), saved.Unit))
	s.stats.Invalidate(ctx, storeID)
	return *saved, nil
}

// AddStock records a stock entry on top of the current quantity.
func (s *Service) AddStock(ctx context.Context, req domain.StockEntryRequest) (domain.InventoryRecord, error) {
	storeID, err := s.scopeStore(ctx, req.StoreID)
	if err != nil {
		return domain.InventoryRecord{}, err
	}
	qty := numfmt.Round3(req.Quantity.Float())
	if qty <= 0 {
		return domain.InventoryRecord{}, fmt.Errorf("quantity must be positive: %w", store.ErrInvalidInput)
	}

	product, err := s.ResolveProduct(ctx, storeID, req.Product)
	if err != nil {
		return domain.InventoryRecord{}, err
	}

	saved, err := s.repo.AddStock(ctx, storeID, product.ID, qty, req.Unit)
	if err != nil {
		return domain.InventoryRecord{}, err
	}

	s.logAudit(ctx, storeID, "stock_entry", "product", product.ID,
		fmt.Sprintf("added=%s,now=%s", numfmt.FormatQty(qty), numfmt.FormatQty(saved.Quantity)))
	s.stats.Invalidate(ctx, storeID)
	return *saved, nil
}
