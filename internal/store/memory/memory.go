package memory

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/logger"
	"tebaspos/backend/internal/numfmt"
	"tebaspos/backend/internal/store"
	"tebaspos/backend/internal/xid"
)

const DefaultUnit = "un"

type Store struct {
	mu              sync.RWMutex
	stores          map[string]domain.Store
	products        map[string]domain.Product
	inventory       map[string]map[string]domain.InventoryRecord
	customers       map[string]domain.Customer
	sales           map[string]*domain.Sale
	saleCounters    map[string]int64
	cashOuts        map[string]domain.CashOut
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

// New returns an empty store with a single shop, no products and no users.
func New(shop domain.Store) *Store {
	return &Store{
		stores:          map[string]domain.Store{shop.ID: shop},
		products:        make(map[string]domain.Product),
		inventory:       map[string]map[string]domain.InventoryRecord{shop.ID: {}},
		customers:       make(map[string]domain.Customer),
		sales:           make(map[string]*domain.Sale),
		saleCounters:    make(map[string]int64),
		cashOuts:        make(map[string]domain.CashOut),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD; when
// unset, dev defaults are used with a warning. The backend uses PostgreSQL
// when DATABASE_URL is set, so these never reach production.
func seedUsers(storeID string) map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "caixa123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		logger.L().Warn("memory store is using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"caixa", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logger.L().Fatal("failed to hash seed password", zap.String("username", u.username), zap.Error(err))
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			StoreID:   storeID,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intPtr(v int) *int { return &v }

// NewSeeded returns a demo shop with a small catalog, stock levels that
// cover every alert color, one customer and two users.
func NewSeeded(storeID string) *Store {
	if storeID == "" {
		storeID = "main-store"
	}
	s := New(domain.Store{ID: storeID, Name: "Loja Centro", City: "Santos", Address: "Rua XV de Novembro, 120", Phone: "(13) 3222-0000"})

	type seed struct {
		kind, desc, brand, supplier string
		price                       float64
		minimum                     *int
		qty                         float64
	}
	seeds := []seed{
		{"Mercearia", "Arroz 5kg", "Tio João", "Distribuidora Sul", 27.50, intPtr(10), 40},
		{"Mercearia", "Feijão Carioca 1kg", "Camil", "Distribuidora Sul", 8.90, intPtr(12), 14},
		{"Mercearia", "Café 500g", "Pilão", "Atacado Paulista", 18.90, intPtr(8), 3},
		{"Bebidas", "Refrigerante 2L", "Outros", "Atacado Paulista", 9.49, intPtr(6), 30},
		{"Limpeza", "Detergente 500ml", "Ypê", "Limpa Mais", 2.79, nil, 60},
		{"Padaria", "Pão de Forma", "Pullman", "Padaria Central", 8.50, intPtr(5), 5},
		{"Hortifruti", "Banana Prata kg", "Outros", "Ceasa", 6.99, intPtr(0), 12.5},
	}

	now := time.Now().UTC()
	for i, sd := range seeds {
		p := domain.Product{
			ID:           xid.New("prod"),
			StoreID:      storeID,
			Code:         intPtr(i + 1),
			Kind:         sd.kind,
			Description:  sd.desc,
			Brand:        sd.brand,
			Supplier:     sd.supplier,
			Price:        sd.price,
			MinimumStock: sd.minimum,
			CreatedAt:    now,
		}
		s.products[p.ID] = p
		s.inventory[storeID][p.ID] = domain.InventoryRecord{
			StoreID:   storeID,
			ProductID: p.ID,
			Quantity:  sd.qty,
			Unit:      DefaultUnit,
			UpdatedAt: now,
		}
	}

	customer := domain.Customer{ID: xid.New("cust"), StoreID: storeID, Name: "Maria Souza", Phone: "(13) 99123-4567", City: "Santos", CreatedAt: now}
	s.customers[customer.ID] = customer
	s.usersByUsername = seedUsers(storeID)
	return s
}

// AddStore registers another shop; admin overviews iterate over them.
func (s *Store) AddStore(shop domain.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores[shop.ID] = shop
	if _, ok := s.inventory[shop.ID]; !ok {
		s.inventory[shop.ID] = map[string]domain.InventoryRecord{}
	}
}

func (s *Store) GetStore(_ context.Context, storeID string) (*domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shop, ok := s.stores[storeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &shop, nil
}

func (s *Store) ListStores(_ context.Context) ([]domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Store, 0, len(s.stores))
	for _, shop := range s.stores {
		result = append(result, shop)
	}
	slices.SortFunc(result, func(a, b domain.Store) int {
		if a.Name == b.Name {
			return cmpString(a.ID, b.ID)
		}
		return cmpString(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) ListProducts(_ context.Context, storeID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.StoreID != storeID {
			continue
		}
		products = append(products, p)
	}
	slices.SortFunc(products, compareProductCode)
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[productID]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &product, nil
}

func (s *Store) FindProductByCode(_ context.Context, storeID string, code int) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.StoreID == storeID && p.Code != nil && *p.Code == code {
			found := p
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[product.StoreID]; !ok {
		return nil, store.ErrNotFound
	}
	if product.Code == nil {
		product.Code = intPtr(s.nextCodeLocked(product.StoreID))
	} else if s.codeTakenLocked(product.StoreID, *product.Code, "") {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ID]
	if !exists || existing.StoreID != product.StoreID {
		return nil, store.ErrNotFound
	}
	if product.Code != nil && s.codeTakenLocked(product.StoreID, *product.Code, product.ID) {
		return nil, store.ErrInvalidInput
	}
	product.CreatedAt = existing.CreatedAt
	if product.LastCost == nil {
		product.LastCost = existing.LastCost
	}
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, storeID string, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[productID]
	if !exists || existing.StoreID != storeID {
		return store.ErrNotFound
	}
	for _, sale := range s.sales {
		for _, item := range sale.Items {
			if item.ProductID == productID {
				return fmt.Errorf("product %s has sales: %w", productID, store.ErrInvalidInput)
			}
		}
	}
	delete(s.products, productID)
	delete(s.inventory[storeID], productID)
	return nil
}

func (s *Store) UpdateProductCost(_ context.Context, storeID string, productID string, cost float64) error {
	if cost < 0 {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists || product.StoreID != storeID {
		return store.ErrNotFound
	}
	c := numfmt.Round2(cost)
	product.LastCost = &c
	s.products[productID] = product
	return nil
}

func (s *Store) ListInventory(_ context.Context, storeID string) ([]domain.InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.InventoryRecord, 0, len(s.inventory[storeID]))
	for _, rec := range s.inventory[storeID] {
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b domain.InventoryRecord) int {
		return cmpString(a.ProductID, b.ProductID)
	})
	return records, nil
}

func (s *Store) GetInventory(_ context.Context, storeID string, productID string) (*domain.InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.inventory[storeID][productID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (s *Store) StockSnapshot(_ context.Context, storeID string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]float64, len(s.inventory[storeID]))
	for productID, rec := range s.inventory[storeID] {
		snapshot[productID] = rec.Quantity
	}
	return snapshot, nil
}

func (s *Store) UpsertInventory(_ context.Context, record domain.InventoryRecord) (*domain.InventoryRecord, error) {
	if record.Quantity < 0 || !numfmt.Finite(record.Quantity) {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkProductLocked(record.StoreID, record.ProductID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(record.Unit) == "" {
		record.Unit = DefaultUnit
	}
	record.Quantity = numfmt.Round3(record.Quantity)
	record.UpdatedAt = time.Now().UTC()
	s.inventory[record.StoreID][record.ProductID] = record
	saved := record
	return &saved, nil
}

func (s *Store) AddStock(_ context.Context, storeID string, productID string, qty float64, unit string) (*domain.InventoryRecord, error) {
	if qty <= 0 || !numfmt.Finite(qty) {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkProductLocked(storeID, productID); err != nil {
		return nil, err
	}
	rec, ok := s.inventory[storeID][productID]
	if !ok {
		rec = domain.InventoryRecord{StoreID: storeID, ProductID: productID, Unit: DefaultUnit}
	}
	if strings.TrimSpace(unit) != "" {
		rec.Unit = unit
	}
	rec.Quantity = numfmt.Add3(rec.Quantity, qty)
	rec.UpdatedAt = time.Now().UTC()
	s.inventory[storeID][productID] = rec
	saved := rec
	return &saved, nil
}

func (s *Store) ListCustomers(_ context.Context, storeID string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if c.StoreID == storeID {
			result = append(result, c)
		}
	}
	slices.SortFunc(result, func(a, b domain.Customer) int {
		if a.Name == b.Name {
			return cmpString(a.ID, b.ID)
		}
		return cmpString(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) GetCustomer(_ context.Context, customerID string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[customerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" || customer.StoreID == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[customer.StoreID]; !ok {
		return nil, store.ErrNotFound
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok || existing.StoreID != customer.StoreID {
		return nil, store.ErrNotFound
	}
	customer.CreatedAt = existing.CreatedAt
	s.customers[customer.ID] = customer
	updated := customer
	return &updated, nil
}

// DeleteCustomer detaches the customer from past sales, which then show as
// "Indefinido".
func (s *Store) DeleteCustomer(_ context.Context, storeID string, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customerID]
	if !ok || existing.StoreID != storeID {
		return store.ErrNotFound
	}
	for _, sale := range s.sales {
		if sale.CustomerID != nil && *sale.CustomerID == customerID {
			sale.CustomerID = nil
		}
	}
	delete(s.customers, customerID)
	return nil
}

func (s *Store) CreateSale(_ context.Context, draft domain.SaleDraft) (domain.SaleReceipt, error) {
	if err := validateDraft(draft); err != nil {
		return domain.SaleReceipt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	storeStock, ok := s.inventory[draft.StoreID]
	if !ok {
		return domain.SaleReceipt{}, fmt.Errorf("store %s: %w", draft.StoreID, store.ErrNotFound)
	}
	if draft.CustomerID != nil {
		c, ok := s.customers[*draft.CustomerID]
		if !ok || c.StoreID != draft.StoreID {
			return domain.SaleReceipt{}, fmt.Errorf("customer %s: %w", *draft.CustomerID, store.ErrInvalidInput)
		}
	}

	wanted := make(map[string]float64, len(draft.Items))
	subtotal := 0.0
	for _, item := range draft.Items {
		product, exists := s.products[item.ProductID]
		if !exists || product.StoreID != draft.StoreID {
			return domain.SaleReceipt{}, fmt.Errorf("product %s: %w", item.ProductID, store.ErrNotFound)
		}
		wanted[item.ProductID] = numfmt.Add3(wanted[item.ProductID], item.Qty)
		subtotal += item.TotalFinal
	}
	for productID, qty := range wanted {
		if qty > storeStock[productID].Quantity {
			return domain.SaleReceipt{}, fmt.Errorf("product %s: %w", productID, store.ErrInsufficientStock)
		}
	}

	now := time.Now().UTC()
	for productID, qty := range wanted {
		rec := storeStock[productID]
		rec.Quantity = numfmt.Add3(rec.Quantity, -qty)
		rec.UpdatedAt = now
		storeStock[productID] = rec
	}

	s.saleCounters[draft.StoreID]++
	sale := &domain.Sale{
		ID:                 xid.New("sale"),
		StoreID:            draft.StoreID,
		SaleNumber:         s.saleCounters[draft.StoreID],
		UserID:             draft.UserID,
		CustomerID:         cloneString(draft.CustomerID),
		PaymentMethod:      draft.PaymentMethod,
		Subtotal:           numfmt.Round2(subtotal),
		OverallDiscountPct: numfmt.ClampPct(draft.OverallDiscountPct),
		ReceivedTotal:      numfmt.Round2(draft.ReceivedTotal),
		CreatedAt:          now,
		Items:              slices.Clone(draft.Items),
	}
	sale.TotalFinal = numfmt.ApplyPct(sale.Subtotal, sale.OverallDiscountPct)
	if draft.CreatedAt != nil {
		sale.CreatedAt = draft.CreatedAt.UTC()
	}
	s.sales[sale.ID] = sale

	return domain.SaleReceipt{SaleID: sale.ID, SaleNumber: sale.SaleNumber, TotalFinal: sale.TotalFinal}, nil
}

func (s *Store) ReverseSale(_ context.Context, storeID string, saleID string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[saleID]
	if !ok || sale.StoreID != storeID {
		return nil, store.ErrNotFound
	}

	storeStock := s.inventory[storeID]
	now := time.Now().UTC()
	for _, item := range sale.Items {
		rec, ok := storeStock[item.ProductID]
		if !ok {
			rec = domain.InventoryRecord{StoreID: storeID, ProductID: item.ProductID, Unit: DefaultUnit}
		}
		rec.Quantity = numfmt.Add3(rec.Quantity, item.Qty)
		rec.UpdatedAt = now
		storeStock[item.ProductID] = rec
	}
	delete(s.sales, saleID)
	return cloneSale(sale), nil
}

func (s *Store) GetSale(_ context.Context, storeID string, saleID string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[saleID]
	if !ok || sale.StoreID != storeID {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) ListSales(_ context.Context, storeID string, filter domain.SaleFilter) ([]domain.SaleRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.SaleRow, 0, 64)
	for _, sale := range s.sales {
		if sale.StoreID != storeID {
			continue
		}
		if filter.From != nil && sale.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !sale.CreatedAt.Before(*filter.To) {
			continue
		}
		row := domain.SaleRow{
			ID:            sale.ID,
			SaleNumber:    sale.SaleNumber,
			CreatedAt:     sale.CreatedAt,
			CustomerID:    cloneString(sale.CustomerID),
			CustomerName:  domain.UndefinedCustomer,
			PaymentMethod: sale.PaymentMethod,
			ItemCount:     len(sale.Items),
			TotalFinal:    sale.TotalFinal,
			ReceivedTotal: sale.ReceivedTotal,
		}
		if sale.CustomerID != nil {
			if c, ok := s.customers[*sale.CustomerID]; ok {
				row.CustomerName = c.Name
			}
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b domain.SaleRow) int {
		switch {
		case a.SaleNumber > b.SaleNumber:
			return -1
		case a.SaleNumber < b.SaleNumber:
			return 1
		}
		return 0
	})
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}
	return rows, nil
}

func (s *Store) ListSalesBetween(_ context.Context, storeID string, from time.Time, to time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, 64)
	for _, sale := range s.sales {
		if sale.StoreID != storeID || sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		result = append(result, *cloneSale(sale))
	}
	slices.SortFunc(result, func(a, b domain.Sale) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return result, nil
}

func (s *Store) UpdateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sales[sale.ID]
	if !ok || existing.StoreID != sale.StoreID {
		return nil, store.ErrNotFound
	}
	if sale.CustomerID != nil {
		c, ok := s.customers[*sale.CustomerID]
		if !ok || c.StoreID != sale.StoreID {
			return nil, fmt.Errorf("customer %s: %w", *sale.CustomerID, store.ErrInvalidInput)
		}
	}
	existing.CustomerID = cloneString(sale.CustomerID)
	existing.PaymentMethod = sale.PaymentMethod
	existing.ReceivedTotal = numfmt.Round2(sale.ReceivedTotal)
	return cloneSale(existing), nil
}

func (s *Store) CreateCashOut(_ context.Context, entry domain.CashOut) (*domain.CashOut, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[entry.StoreID]; !ok {
		return nil, store.ErrNotFound
	}
	if entry.ProductID != nil {
		if err := s.checkProductLocked(entry.StoreID, *entry.ProductID); err != nil {
			return nil, err
		}
	}
	if entry.ID == "" {
		entry.ID = xid.New("out")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.cashOuts[entry.ID] = entry
	created := entry
	return &created, nil
}

func (s *Store) ListCashOuts(_ context.Context, storeID string, from time.Time, to time.Time) ([]domain.CashOut, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CashOut, 0, 32)
	for _, entry := range s.cashOuts {
		if entry.StoreID != storeID || entry.OutDate.Before(from) || !entry.OutDate.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.CashOut) int {
		if c := b.OutDate.Compare(a.OutDate); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result, nil
}

func (s *Store) DeleteCashOut(_ context.Context, storeID string, cashOutID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cashOuts[cashOutID]
	if !ok || entry.StoreID != storeID {
		return store.ErrNotFound
	}
	delete(s.cashOuts, cashOutID)
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if storeID != "" && entry.StoreID != storeID {
			continue
		}
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) nextCodeLocked(storeID string) int {
	next := 1
	for _, p := range s.products {
		if p.StoreID == storeID && p.Code != nil && *p.Code >= next {
			next = *p.Code + 1
		}
	}
	return next
}

func (s *Store) codeTakenLocked(storeID string, code int, exceptID string) bool {
	for _, p := range s.products {
		if p.ID != exceptID && p.StoreID == storeID && p.Code != nil && *p.Code == code {
			return true
		}
	}
	return false
}

func (s *Store) checkProductLocked(storeID string, productID string) error {
	if _, ok := s.inventory[storeID]; !ok {
		return fmt.Errorf("store %s: %w", storeID, store.ErrNotFound)
	}
	p, ok := s.products[productID]
	if !ok || p.StoreID != storeID {
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

func compareProductCode(a, b domain.Product) int {
	switch {
	case a.Code == nil && b.Code == nil:
		return cmpString(a.Description, b.Description)
	case a.Code == nil:
		return 1
	case b.Code == nil:
		return -1
	case *a.Code != *b.Code:
		return *a.Code - *b.Code
	}
	return cmpString(a.ID, b.ID)
}

func cmpString(a string, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneSale(src *domain.Sale) *domain.Sale {
	dst := *src
	dst.CustomerID = cloneString(src.CustomerID)
	dst.Items = slices.Clone(src.Items)
	return &dst
}
