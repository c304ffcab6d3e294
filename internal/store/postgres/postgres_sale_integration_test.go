package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/store"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	databaseURL := os.Getenv("TEBASPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set TEBASPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	storeID := fmt.Sprintf("it-store-%d", time.Now().UnixNano())
	if err := s.EnsureStore(ctx, domain.Store{ID: storeID, Name: "Loja IT"}); err != nil {
		t.Fatalf("ensure store: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE store_id = $1`, storeID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_counters WHERE store_id = $1`, storeID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventory WHERE store_id = $1`, storeID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM customers WHERE store_id = $1`, storeID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE store_id = $1`, storeID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, storeID)
	})
	return s, storeID
}

func TestCreateAndReverseSaleMovesInventory(t *testing.T) {
	s, storeID := openTestStore(t)
	ctx := context.Background()

	product, err := s.CreateProduct(ctx, domain.Product{StoreID: storeID, Description: "Produto IT", Brand: "Outros", Price: 12.5})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if product.Code == nil || *product.Code != 1 {
		t.Fatalf("expected first code 1, got %v", product.Code)
	}
	if _, err := s.UpsertInventory(ctx, domain.InventoryRecord{StoreID: storeID, ProductID: product.ID, Quantity: 10}); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	receipt, err := s.CreateSale(ctx, domain.SaleDraft{
		StoreID:       storeID,
		UserID:        "it",
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItem{{ProductID: product.ID, Qty: 3, TotalFinal: 37.5}},
		ReceivedTotal: 37.5,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if receipt.SaleNumber != 1 || receipt.TotalFinal != 37.5 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}

	rec, err := s.GetInventory(ctx, storeID, product.ID)
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	if rec.Quantity != 7 {
		t.Fatalf("expected stock 7 after sale, got %v", rec.Quantity)
	}

	_, err = s.CreateSale(ctx, domain.SaleDraft{
		StoreID:       storeID,
		PaymentMethod: domain.PaymentCash,
		Items: []domain.SaleItem{
			{ProductID: product.ID, Qty: 4, TotalFinal: 50},
			{ProductID: product.ID, Qty: 4, TotalFinal: 50},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock across merged lines, got %v", err)
	}

	reversed, err := s.ReverseSale(ctx, storeID, receipt.SaleID)
	if err != nil {
		t.Fatalf("reverse sale: %v", err)
	}
	if len(reversed.Items) != 1 {
		t.Fatalf("expected reversed items, got %+v", reversed)
	}

	rec, err = s.GetInventory(ctx, storeID, product.ID)
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	if rec.Quantity != 10 {
		t.Fatalf("expected stock 10 after reversal, got %v", rec.Quantity)
	}
	if _, err := s.GetSale(ctx, storeID, receipt.SaleID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected reversed sale gone, got %v", err)
	}
}
