package store

import (
	"context"
	"errors"
	"time"

	"tebaspos/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("forbidden")
)

// SaleLedger records and reverses sales. Both operations are all-or-nothing:
// the sale row, its items and the inventory movement commit together or not
// at all.
type SaleLedger interface {
	// CreateSale assigns the next per-store sale number. A line asking for
	// more than the stock on hand fails the whole sale with
	// ErrInsufficientStock.
	CreateSale(ctx context.Context, draft domain.SaleDraft) (domain.SaleReceipt, error)
	// ReverseSale returns every item to inventory and removes the sale.
	ReverseSale(ctx context.Context, storeID string, saleID string) (*domain.Sale, error)
}

type Repository interface {
	SaleLedger

	GetStore(ctx context.Context, storeID string) (*domain.Store, error)
	ListStores(ctx context.Context) ([]domain.Store, error)

	ListProducts(ctx context.Context, storeID string) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	FindProductByCode(ctx context.Context, storeID string, code int) (*domain.Product, error)
	// CreateProduct assigns the next display code of the store when
	// product.Code is nil.
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, storeID string, productID string) error
	UpdateProductCost(ctx context.Context, storeID string, productID string, cost float64) error

	ListInventory(ctx context.Context, storeID string) ([]domain.InventoryRecord, error)
	GetInventory(ctx context.Context, storeID string, productID string) (*domain.InventoryRecord, error)
	StockSnapshot(ctx context.Context, storeID string) (map[string]float64, error)
	UpsertInventory(ctx context.Context, record domain.InventoryRecord) (*domain.InventoryRecord, error)
	AddStock(ctx context.Context, storeID string, productID string, qty float64, unit string) (*domain.InventoryRecord, error)

	ListCustomers(ctx context.Context, storeID string) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, storeID string, customerID string) error

	GetSale(ctx context.Context, storeID string, saleID string) (*domain.Sale, error)
	ListSales(ctx context.Context, storeID string, filter domain.SaleFilter) ([]domain.SaleRow, error)
	ListSalesBetween(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.Sale, error)
	UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)

	CreateCashOut(ctx context.Context, entry domain.CashOut) (*domain.CashOut, error)
	ListCashOuts(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.CashOut, error)
	DeleteCashOut(ctx context.Context, storeID string, cashOutID string) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
