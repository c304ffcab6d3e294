package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/numfmt"
	"tebaspos/backend/internal/store"
	"tebaspos/backend/internal/xid"
)

//go:embed schema.sql
var schema string

const defaultUnit = "un"

const productColumns = `id, store_id, codigo, tipo, descricao, marca, fornecedor, preco, estoque_minimo, ultimo_custo, created_at`

type Store struct {
	db *sqlx.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates missing tables. It is safe to run on every deploy.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// EnsureStore inserts the shop when it does not exist yet.
func (s *Store) EnsureStore(ctx context.Context, shop domain.Store) error {
	if strings.TrimSpace(shop.ID) == "" {
		return store.ErrInvalidInput
	}
	name := shop.Name
	if strings.TrimSpace(name) == "" {
		name = shop.ID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stores (id, name, city, address, phone)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO NOTHING
	`, shop.ID, name, shop.City, shop.Address, shop.Phone)
	return err
}

func (s *Store) GetStore(ctx context.Context, storeID string) (*domain.Store, error) {
	var shop domain.Store
	err := s.db.GetContext(ctx, &shop, `SELECT id, name, city, address, phone FROM stores WHERE id = $1`, storeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &shop, nil
}

func (s *Store) ListStores(ctx context.Context) ([]domain.Store, error) {
	stores := make([]domain.Store, 0, 8)
	err := s.db.SelectContext(ctx, &stores, `SELECT id, name, city, address, phone FROM stores ORDER BY name, id`)
	return stores, err
}

func (s *Store) ListProducts(ctx context.Context, storeID string) ([]domain.Product, error) {
	products := make([]domain.Product, 0, 128)
	err := s.db.SelectContext(ctx, &products, `
		SELECT `+productColumns+`
		FROM products
		WHERE store_id = $1
		ORDER BY codigo NULLS LAST, descricao
	`, storeID)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].CreatedAt = products[i].CreatedAt.UTC()
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	return s.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, productID)
}

func (s *Store) FindProductByCode(ctx context.Context, storeID string, code int) (*domain.Product, error) {
	return s.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE store_id = $1 AND codigo = $2`, storeID, code)
}

func (s *Store) getProduct(ctx context.Context, query string, args ...any) (*domain.Product, error) {
	var product domain.Product
	if err := s.db.GetContext(ctx, &product, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	product.CreatedAt = product.CreatedAt.UTC()
	return &product, nil
}

// CreateProduct locks the store row so concurrent creates cannot pick the
// same next code.
func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var locked string
	if err := tx.GetContext(ctx, &locked, `SELECT id FROM stores WHERE id = $1 FOR UPDATE`, product.StoreID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if product.Code == nil {
		var next int
		if err := tx.GetContext(ctx, &next, `SELECT COALESCE(MAX(codigo), 0) + 1 FROM products WHERE store_id = $1`, product.StoreID); err != nil {
			return nil, err
		}
		product.Code = &next
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (:id, :store_id, :codigo, :tipo, :descricao, :marca, :fornecedor, :preco, :estoque_minimo, :ultimo_custo, :created_at)
	`, product)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	var updated domain.Product
	err := s.db.GetContext(ctx, &updated, `
		UPDATE products
		SET codigo = COALESCE($3, codigo), tipo = $4, descricao = $5, marca = $6, fornecedor = $7,
		    preco = $8, estoque_minimo = $9, ultimo_custo = COALESCE($10, ultimo_custo)
		WHERE id = $1 AND store_id = $2
		RETURNING `+productColumns,
		product.ID, product.StoreID, product.Code, product.Kind, product.Description, product.Brand,
		product.Supplier, product.Price, product.MinimumStock, product.LastCost)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	updated.CreatedAt = updated.CreatedAt.UTC()
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, storeID string, productID string) error {
	var sold bool
	if err := s.db.GetContext(ctx, &sold, `SELECT EXISTS (SELECT 1 FROM sale_items WHERE product_id = $1)`, productID); err != nil {
		return err
	}
	if sold {
		return fmt.Errorf("product %s has sales: %w", productID, store.ErrInvalidInput)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1 AND store_id = $2`, productID, storeID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) UpdateProductCost(ctx context.Context, storeID string, productID string, cost float64) error {
	if cost < 0 {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET ultimo_custo = $3 WHERE id = $1 AND store_id = $2
	`, productID, storeID, numfmt.Round2(cost))
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) ListInventory(ctx context.Context, storeID string) ([]domain.InventoryRecord, error) {
	records := make([]domain.InventoryRecord, 0, 128)
	err := s.db.SelectContext(ctx, &records, `
		SELECT store_id, product_id, quantidade, unidade, updated_at
		FROM inventory
		WHERE store_id = $1
		ORDER BY product_id
	`, storeID)
	return records, err
}

func (s *Store) GetInventory(ctx context.Context, storeID string, productID string) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := s.db.GetContext(ctx, &rec, `
		SELECT store_id, product_id, quantidade, unidade, updated_at
		FROM inventory
		WHERE store_id = $1 AND product_id = $2
	`, storeID, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

type stockRow struct {
	ProductID string  `db:"product_id"`
	Quantity  float64 `db:"quantidade"`
}

func (s *Store) StockSnapshot(ctx context.Context, storeID string) (map[string]float64, error) {
	rows := make([]stockRow, 0, 128)
	if err := s.db.SelectContext(ctx, &rows, `SELECT product_id, quantidade FROM inventory WHERE store_id = $1`, storeID); err != nil {
		return nil, err
	}
	snapshot := make(map[string]float64, len(rows))
	for _, r := range rows {
		snapshot[r.ProductID] = r.Quantity
	}
	return snapshot, nil
}

func (s *Store) UpsertInventory(ctx context.Context, record domain.InventoryRecord) (*domain.InventoryRecord, error) {
	if record.Quantity < 0 || !numfmt.Finite(record.Quantity) {
		return nil, store.ErrInvalidInput
	}
	if err := s.checkProduct(ctx, record.StoreID, record.ProductID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(record.Unit) == "" {
		record.Unit = defaultUnit
	}

	var saved domain.InventoryRecord
	err := s.db.GetContext(ctx, &saved, `
		INSERT INTO inventory (store_id, product_id, quantidade, unidade, updated_at)
		VALUES ($1,$2,$3,$4,now())
		ON CONFLICT (store_id, product_id)
		DO UPDATE SET quantidade = EXCLUDED.quantidade, unidade = EXCLUDED.unidade, updated_at = now()
		RETURNING store_id, product_id, quantidade, unidade, updated_at
	`, record.StoreID, record.ProductID, numfmt.Round3(record.Quantity), record.Unit)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *Store) AddStock(ctx context.Context, storeID string, productID string, qty float64, unit string) (*domain.InventoryRecord, error) {
	if qty <= 0 || !numfmt.Finite(qty) {
		return nil, store.ErrInvalidInput
	}
	if err := s.checkProduct(ctx, storeID, productID); err != nil {
		return nil, err
	}

	var saved domain.InventoryRecord
	err := s.db.GetContext(ctx, &saved, `
		INSERT INTO inventory (store_id, product_id, quantidade, unidade, updated_at)
		VALUES ($1,$2,$3,COALESCE($4,'un'),now())
		ON CONFLICT (store_id, product_id)
		DO UPDATE SET quantidade = inventory.quantidade + EXCLUDED.quantidade,
		              unidade = COALESCE($4, inventory.unidade),
		              updated_at = now()
		RETURNING store_id, product_id, quantidade, unidade, updated_at
	`, storeID, productID, numfmt.Round3(qty), nullIfEmpty(strings.TrimSpace(unit)))
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *Store) ListCustomers(ctx context.Context, storeID string) ([]domain.Customer, error) {
	customers := make([]domain.Customer, 0, 64)
	err := s.db.SelectContext(ctx, &customers, `
		SELECT id, store_id, name, phone, address, neighborhood, city, created_at
		FROM customers
		WHERE store_id = $1
		ORDER BY name, id
	`, storeID)
	return customers, err
}

func (s *Store) GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.GetContext(ctx, &c, `
		SELECT id, store_id, name, phone, address, neighborhood, city, created_at
		FROM customers
		WHERE id = $1
	`, customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" || customer.StoreID == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO customers (id, store_id, name, phone, address, neighborhood, city, created_at)
		VALUES (:id, :store_id, :name, :phone, :address, :neighborhood, :city, :created_at)
	`, customer)
	if err != nil {
		return nil, err
	}
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	var updated domain.Customer
	err := s.db.GetContext(ctx, &updated, `
		UPDATE customers
		SET name = $3, phone = $4, address = $5, neighborhood = $6, city = $7
		WHERE id = $1 AND store_id = $2
		RETURNING id, store_id, name, phone, address, neighborhood, city, created_at
	`, customer.ID, customer.StoreID, customer.Name, customer.Phone, customer.Address, customer.Neighborhood, customer.City)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, storeID string, customerID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1 AND store_id = $2`, customerID, storeID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// CreateSale runs serializable: the inventory rows of every product in the
// draft are locked before the quantity check.
func (s *Store) CreateSale(ctx context.Context, draft domain.SaleDraft) (domain.SaleReceipt, error) {
	if err := validateDraft(draft); err != nil {
		return domain.SaleReceipt{}, err
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.SaleReceipt{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if draft.CustomerID != nil {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `
			SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1 AND store_id = $2)
		`, *draft.CustomerID, draft.StoreID); err != nil {
			return domain.SaleReceipt{}, err
		}
		if !exists {
			return domain.SaleReceipt{}, fmt.Errorf("customer %s: %w", *draft.CustomerID, store.ErrInvalidInput)
		}
	}

	wanted := make(map[string]float64, len(draft.Items))
	subtotal := 0.0
	for _, item := range draft.Items {
		wanted[item.ProductID] = numfmt.Add3(wanted[item.ProductID], item.Qty)
		subtotal += item.TotalFinal
	}
	productIDs := sortedKeys(wanted)

	query, args, err := sqlx.In(`SELECT id FROM products WHERE store_id = ? AND id IN (?)`, draft.StoreID, productIDs)
	if err != nil {
		return domain.SaleReceipt{}, err
	}
	var known []string
	if err := tx.SelectContext(ctx, &known, tx.Rebind(query), args...); err != nil {
		return domain.SaleReceipt{}, err
	}
	if len(known) != len(productIDs) {
		return domain.SaleReceipt{}, fmt.Errorf("sale references unknown products: %w", store.ErrNotFound)
	}

	stock := make([]stockRow, 0, len(productIDs))
	if err := tx.SelectContext(ctx, &stock, `
		SELECT product_id, quantidade
		FROM inventory
		WHERE store_id = $1 AND product_id = ANY($2)
		ORDER BY product_id
		FOR UPDATE
	`, draft.StoreID, productIDs); err != nil {
		return domain.SaleReceipt{}, err
	}
	onHand := make(map[string]float64, len(stock))
	for _, r := range stock {
		onHand[r.ProductID] = r.Quantity
	}
	for _, productID := range productIDs {
		if wanted[productID] > onHand[productID] {
			return domain.SaleReceipt{}, fmt.Errorf("product %s: %w", productID, store.ErrInsufficientStock)
		}
	}
	for _, productID := range productIDs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE inventory SET quantidade = quantidade - $3, updated_at = now()
			WHERE store_id = $1 AND product_id = $2
		`, draft.StoreID, productID, wanted[productID]); err != nil {
			return domain.SaleReceipt{}, err
		}
	}

	var saleNumber int64
	if err := tx.GetContext(ctx, &saleNumber, `
		INSERT INTO sale_counters (store_id, last_number) VALUES ($1, 1)
		ON CONFLICT (store_id) DO UPDATE SET last_number = sale_counters.last_number + 1
		RETURNING last_number
	`, draft.StoreID); err != nil {
		return domain.SaleReceipt{}, err
	}

	pct := numfmt.ClampPct(draft.OverallDiscountPct)
	subtotal = numfmt.Round2(subtotal)
	total := numfmt.ApplyPct(subtotal, pct)
	createdAt := time.Now().UTC()
	if draft.CreatedAt != nil {
		createdAt = draft.CreatedAt.UTC()
	}

	saleID := xid.New("sale")
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, store_id, sale_number, user_id, customer_id, payment_method, subtotal,
		                   overall_discount_pct, total_final, received_total, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, saleID, draft.StoreID, saleNumber, draft.UserID, nullString(draft.CustomerID), draft.PaymentMethod,
		subtotal, pct, total, numfmt.Round2(draft.ReceivedTotal), createdAt); err != nil {
		return domain.SaleReceipt{}, err
	}

	for i, item := range draft.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, position, product_id, qty, discount_pct, total_final)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, saleID, i, item.ProductID, item.Qty, numfmt.ClampPct(item.DiscountPct), numfmt.Round2(item.TotalFinal)); err != nil {
			return domain.SaleReceipt{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.SaleReceipt{}, err
	}
	return domain.SaleReceipt{SaleID: saleID, SaleNumber: saleNumber, TotalFinal: total}, nil
}

func (s *Store) ReverseSale(ctx context.Context, storeID string, saleID string) (*domain.Sale, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var sale domain.Sale
	if err := tx.GetContext(ctx, &sale, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE id = $1 AND store_id = $2
		FOR UPDATE
	`, saleID, storeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	items, err := loadSaleItems(ctx, tx, saleID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inventory (store_id, product_id, quantidade, unidade, updated_at)
			VALUES ($1,$2,$3,'un',now())
			ON CONFLICT (store_id, product_id)
			DO UPDATE SET quantidade = inventory.quantidade + EXCLUDED.quantidade, updated_at = now()
		`, storeID, item.ProductID, item.Qty); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.Items = items
	return &sale, nil
}

const saleColumns = `id, store_id, sale_number, user_id, customer_id, payment_method, subtotal,
	overall_discount_pct, total_final, received_total, created_at`

func loadSaleItems(ctx context.Context, q sqlx.QueryerContext, saleID string) ([]domain.SaleItem, error) {
	items := make([]domain.SaleItem, 0, 8)
	err := sqlx.SelectContext(ctx, q, &items, `
		SELECT product_id, qty, discount_pct, total_final
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY position
	`, saleID)
	return items, err
}

func (s *Store) GetSale(ctx context.Context, storeID string, saleID string) (*domain.Sale, error) {
	var sale domain.Sale
	if err := s.db.GetContext(ctx, &sale, `
		SELECT `+saleColumns+` FROM sales WHERE id = $1 AND store_id = $2
	`, saleID, storeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	items, err := loadSaleItems(ctx, s.db, saleID)
	if err != nil {
		return nil, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.Items = items
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, storeID string, filter domain.SaleFilter) ([]domain.SaleRow, error) {
	conditions := []string{"s.store_id = $1"}
	args := []any{storeID}
	if filter.From != nil {
		args = append(args, filter.From.UTC())
		conditions = append(conditions, fmt.Sprintf("s.created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, filter.To.UTC())
		conditions = append(conditions, fmt.Sprintf("s.created_at < $%d", len(args)))
	}
	query := `
		SELECT s.id, s.sale_number, s.created_at, s.customer_id,
		       COALESCE(c.name, '` + domain.UndefinedCustomer + `') AS customer_name,
		       s.payment_method,
		       (SELECT COUNT(*) FROM sale_items i WHERE i.sale_id = s.id) AS item_count,
		       s.total_final, s.received_total
		FROM sales s
		LEFT JOIN customers c ON c.id = s.customer_id
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY s.sale_number DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows := make([]domain.SaleRow, 0, 64)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].CreatedAt = rows[i].CreatedAt.UTC()
	}
	return rows, nil
}

func (s *Store) ListSalesBetween(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.Sale, error) {
	sales := make([]domain.Sale, 0, 256)
	err := s.db.SelectContext(ctx, &sales, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE store_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at
	`, storeID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i].CreatedAt = sales[i].CreatedAt.UTC()
	}
	return sales, nil
}

func (s *Store) UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.CustomerID != nil {
		if _, err := s.GetCustomer(ctx, *sale.CustomerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("customer %s: %w", *sale.CustomerID, store.ErrInvalidInput)
			}
			return nil, err
		}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE sales SET customer_id = $3, payment_method = $4, received_total = $5
		WHERE id = $1 AND store_id = $2
	`, sale.ID, sale.StoreID, nullString(sale.CustomerID), sale.PaymentMethod, numfmt.Round2(sale.ReceivedTotal))
	if err != nil {
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return s.GetSale(ctx, sale.StoreID, sale.ID)
}

func (s *Store) CreateCashOut(ctx context.Context, entry domain.CashOut) (*domain.CashOut, error) {
	if entry.ProductID != nil {
		if err := s.checkProduct(ctx, entry.StoreID, *entry.ProductID); err != nil {
			return nil, err
		}
	}
	if entry.ID == "" {
		entry.ID = xid.New("out")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO cash_outs (id, store_id, kind, out_date, descricao, product_id, quantidade, valor_unitario, valor_total, created_at)
		VALUES (:id, :store_id, :kind, :out_date, :descricao, :product_id, :quantidade, :valor_unitario, :valor_total, :created_at)
	`, entry)
	if err != nil {
		return nil, err
	}
	created := entry
	return &created, nil
}

func (s *Store) ListCashOuts(ctx context.Context, storeID string, from time.Time, to time.Time) ([]domain.CashOut, error) {
	entries := make([]domain.CashOut, 0, 64)
	err := s.db.SelectContext(ctx, &entries, `
		SELECT id, store_id, kind, out_date, descricao, product_id, quantidade, valor_unitario, valor_total, created_at
		FROM cash_outs
		WHERE store_id = $1 AND out_date >= $2::date AND out_date < $3::date
		ORDER BY out_date DESC, created_at DESC
	`, storeID, from, to)
	return entries, err
}

func (s *Store) DeleteCashOut(ctx context.Context, storeID string, cashOutID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cash_outs WHERE id = $1 AND store_id = $2`, cashOutID, storeID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO audit_logs (id, store_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES (:id, :store_id, :actor_username, :actor_role, :action, :entity_type, :entity_id, :detail, :created_at)
	`, entry)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	logs := make([]domain.AuditLog, 0, limit)
	err := s.db.SelectContext(ctx, &logs, `
		SELECT id, store_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE ($1 = '' OR store_id = $1) AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, storeID, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, err
	}
	for i := range logs {
		logs[i].CreatedAt = logs[i].CreatedAt.UTC()
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, store_id, active, created_at)
		VALUES ($1,$2,$3,$4,true,now())
	`, username, user.Password, user.Role, user.StoreID)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	users := make([]domain.UserAccount, 0, 16)
	err := s.db.SelectContext(ctx, &users, `
		SELECT username, password_hash, role, store_id, active, created_at
		FROM users
		ORDER BY username
	`)
	return users, err
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE username = $1`, username, password)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) checkProduct(ctx context.Context, storeID string, productID string) error {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND store_id = $2)
	`, productID, storeID); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
	}
	return nil
}

func validateProduct(p domain.Product) error {
	if p.StoreID == "" || strings.TrimSpace(p.Description) == "" {
		return store.ErrInvalidInput
	}
	if p.Price < 0 || !numfmt.Finite(p.Price) {
		return store.ErrInvalidInput
	}
	if p.MinimumStock != nil && *p.MinimumStock < 0 {
		return store.ErrInvalidInput
	}
	return nil
}

func validateDraft(d domain.SaleDraft) error {
	if d.StoreID == "" || strings.TrimSpace(d.PaymentMethod) == "" || len(d.Items) == 0 {
		return store.ErrInvalidInput
	}
	for _, item := range d.Items {
		if item.ProductID == "" || item.Qty <= 0 || item.TotalFinal < 0 {
			return store.ErrInvalidInput
		}
	}
	return nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullString(val *string) any {
	if val == nil {
		return nil
	}
	return *val
}
