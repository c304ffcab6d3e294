package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"tebaspos/backend/internal/numfmt"
	"tebaspos/backend/internal/stockalert"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

const (
	PaymentCash = "Dinheiro"
	PaymentCard = "Cartão"
	PaymentPix  = "Pix"
)

const (
	CashOutProduct = "product"
	CashOutExpense = "expense"
)

// UndefinedCustomer is shown for sales without a customer.
const UndefinedCustomer = "Indefinido"

// Decimal accepts a JSON number or pt-BR text ("1.234,50"). Unreadable text
// decodes to zero.
type Decimal float64

func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = 0
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*d = Decimal(numfmt.ParseBR(raw))
		return nil
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	if !numfmt.Finite(n) {
		n = 0
	}
	*d = Decimal(n)
	return nil
}

func (d Decimal) Float() float64 {
	return float64(d)
}

type Store struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	City    string `json:"city" db:"city"`
	Address string `json:"address" db:"address"`
	Phone   string `json:"phone" db:"phone"`
}

type Product struct {
	ID           string    `json:"id" db:"id"`
	StoreID      string    `json:"store_id" db:"store_id"`
	Code         *int      `json:"code" db:"codigo"`
	Kind         string    `json:"kind" db:"tipo"`
	Description  string    `json:"description" db:"descricao"`
	Brand        string    `json:"brand" db:"marca"`
	Supplier     string    `json:"supplier" db:"fornecedor"`
	Price        float64   `json:"price" db:"preco"`
	MinimumStock *int      `json:"minimum_stock" db:"estoque_minimo"`
	LastCost     *float64  `json:"last_cost,omitempty" db:"ultimo_custo"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type ProductCreateRequest struct {
	StoreID      string  `json:"store_id"`
	Kind         string  `json:"kind"`
	Description  string  `json:"description"`
	Brand        string  `json:"brand"`
	Supplier     string  `json:"supplier"`
	Price        Decimal `json:"price"`
	MinimumStock string  `json:"minimum_stock"`
}

type ProductUpdateRequest struct {
	Kind         *string  `json:"kind,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Brand        *string  `json:"brand,omitempty"`
	Supplier     *string  `json:"supplier,omitempty"`
	Price        *Decimal `json:"price,omitempty"`
	MinimumStock *string  `json:"minimum_stock,omitempty"`
}

type InventoryRecord struct {
	StoreID   string    `json:"store_id" db:"store_id"`
	ProductID string    `json:"product_id" db:"product_id"`
	Quantity  float64   `json:"quantity" db:"quantidade"`
	Unit      string    `json:"unit" db:"unidade"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type InventoryUpsertRequest struct {
	StoreID   string  `json:"store_id"`
	ProductID string  `json:"product_id"`
	Quantity  Decimal `json:"quantity"`
	Unit      string  `json:"unit"`
}

// StockEntryRequest adds to the current quantity. Product accepts an id, a
// "12*" code or a product label.
type StockEntryRequest struct {
	StoreID  string  `json:"store_id"`
	Product  string  `json:"product"`
	Quantity Decimal `json:"quantity"`
	Unit     string  `json:"unit"`
}

type Customer struct {
	ID           string    `json:"id" db:"id"`
	StoreID      string    `json:"store_id" db:"store_id"`
	Name         string    `json:"name" db:"name"`
	Phone        string    `json:"phone" db:"phone"`
	Address      string    `json:"address" db:"address"`
	Neighborhood string    `json:"neighborhood" db:"neighborhood"`
	City         string    `json:"city" db:"city"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type CustomerRequest struct {
	StoreID      string `json:"store_id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
}

type SaleItem struct {
	ProductID   string  `json:"product_id" db:"product_id"`
	Qty         float64 `json:"qty" db:"qty"`
	DiscountPct float64 `json:"discount_pct" db:"discount_pct"`
	TotalFinal  float64 `json:"total_final" db:"total_final"`
}

// SaleDraft is what a sale ledger receives. CreatedAt nil means now.
type SaleDraft struct {
	StoreID            string     `json:"store_id"`
	UserID             string     `json:"user_id"`
	PaymentMethod      string     `json:"payment_method"`
	Items              []SaleItem `json:"items"`
	CustomerID         *string    `json:"customer_id"`
	OverallDiscountPct float64    `json:"overall_discount_pct"`
	ReceivedTotal      float64    `json:"received_total"`
	CreatedAt          *time.Time `json:"created_at"`
}

type SaleReceipt struct {
	SaleID     string  `json:"sale_id"`
	SaleNumber int64   `json:"sale_number"`
	TotalFinal float64 `json:"total_final"`
}

type Sale struct {
	ID                 string     `json:"id" db:"id"`
	StoreID            string     `json:"store_id" db:"store_id"`
	SaleNumber         int64      `json:"sale_number" db:"sale_number"`
	UserID             string     `json:"user_id" db:"user_id"`
	CustomerID         *string    `json:"customer_id" db:"customer_id"`
	PaymentMethod      string     `json:"payment_method" db:"payment_method"`
	Subtotal           float64    `json:"subtotal" db:"subtotal"`
	OverallDiscountPct float64    `json:"overall_discount_pct" db:"overall_discount_pct"`
	TotalFinal         float64    `json:"total_final" db:"total_final"`
	ReceivedTotal      float64    `json:"received_total" db:"received_total"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	Items              []SaleItem `json:"items,omitempty" db:"-"`
}

// SaleRow is one line of the sales history.
type SaleRow struct {
	ID            string    `json:"id" db:"id"`
	SaleNumber    int64     `json:"sale_number" db:"sale_number"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	CustomerID    *string   `json:"customer_id" db:"customer_id"`
	CustomerName  string    `json:"customer_name" db:"customer_name"`
	PaymentMethod string    `json:"payment_method" db:"payment_method"`
	ItemCount     int       `json:"item_count" db:"item_count"`
	TotalFinal    float64   `json:"total_final" db:"total_final"`
	ReceivedTotal float64   `json:"received_total" db:"received_total"`
}

type SaleFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

// SaleUpdateRequest edits a sale inline. An empty CustomerID clears it.
type SaleUpdateRequest struct {
	CustomerID    *string  `json:"customer_id,omitempty"`
	PaymentMethod *string  `json:"payment_method,omitempty"`
	ReceivedTotal *Decimal `json:"received_total,omitempty"`
}

// CartEdit is one user edit replayed through the cart reconciler.
// Ops: add, quantity, discount, total, remove, clear, overall_discount, received.
type CartEdit struct {
	Op      string `json:"op"`
	Line    int    `json:"line,omitempty"`
	Product string `json:"product,omitempty"`
	Value   string `json:"value,omitempty"`
}

type CartRequest struct {
	StoreID string     `json:"store_id"`
	Edits   []CartEdit `json:"edits"`
}

type CartLineView struct {
	ProductID   string  `json:"product_id"`
	Label       string  `json:"label"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    float64 `json:"quantity"`
	DiscountPct float64 `json:"discount_pct"`
	Total       float64 `json:"total"`
	Error       string  `json:"error,omitempty"`
}

type CartView struct {
	Lines              []CartLineView `json:"lines"`
	Subtotal           float64        `json:"subtotal"`
	OverallDiscountPct float64        `json:"overall_discount_pct"`
	FinalTotal         float64        `json:"final_total"`
	ReceivedTotal      float64        `json:"received_total"`
	Tracking           string         `json:"tracking"`
	Error              string         `json:"error,omitempty"`
}

type SaleCreateRequest struct {
	StoreID       string     `json:"store_id"`
	PaymentMethod string     `json:"payment_method"`
	CustomerID    *string    `json:"customer_id"`
	CreatedAt     *time.Time `json:"created_at"`
	Edits         []CartEdit `json:"edits"`
}

type SaleCreateResponse struct {
	Receipt SaleReceipt `json:"receipt"`
	Cart    CartView    `json:"cart"`
}

type BulkRow struct {
	Date            string `json:"date"`
	Customer        string `json:"customer"`
	Product         string `json:"product"`
	Qty             string `json:"qty"`
	Received        string `json:"received"`
	ReceivedTouched bool   `json:"received_touched"`
}

type BulkEntryRequest struct {
	StoreID string    `json:"store_id"`
	Rows    []BulkRow `json:"rows"`
}

type BulkRowResult struct {
	Index     int     `json:"index"`
	ProductID string  `json:"product_id,omitempty"`
	Total     float64 `json:"total"`
	Received  float64 `json:"received"`
	Error     string  `json:"error,omitempty"`
}

type BulkEntryResponse struct {
	Rows  []BulkRowResult `json:"rows"`
	Sales []SaleReceipt   `json:"sales,omitempty"`
}

type CashOut struct {
	ID          string    `json:"id" db:"id"`
	StoreID     string    `json:"store_id" db:"store_id"`
	Kind        string    `json:"kind" db:"kind"`
	OutDate     time.Time `json:"out_date" db:"out_date"`
	Description string    `json:"description" db:"descricao"`
	ProductID   *string   `json:"product_id" db:"product_id"`
	Quantity    float64   `json:"quantity" db:"quantidade"`
	UnitValue   float64   `json:"unit_value" db:"valor_unitario"`
	Total       float64   `json:"total" db:"valor_total"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CashOutRequest carries either a unit value or a total. When TotalEdited is
// set the total wins and the unit value is derived from it.
type CashOutRequest struct {
	StoreID     string  `json:"store_id"`
	Kind        string  `json:"kind"`
	OutDate     string  `json:"out_date"`
	Description string  `json:"description"`
	Product     string  `json:"product"`
	Quantity    Decimal `json:"quantity"`
	UnitValue   Decimal `json:"unit_value"`
	Total       Decimal `json:"total"`
	TotalEdited bool    `json:"total_edited"`
}

type CashOutListResponse struct {
	Days    int       `json:"days"`
	Entries []CashOut `json:"entries"`
	Total   float64   `json:"total"`
}

type PeriodStats struct {
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

type DayPoint struct {
	Date    string  `json:"date"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

type MonthPoint struct {
	Month   string  `json:"month"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

type PaymentPoint struct {
	Method string  `json:"method"`
	Count  int     `json:"count"`
	Total  float64 `json:"total"`
}

type Dashboard struct {
	StoreID       string            `json:"store_id"`
	RangeDays     int               `json:"range_days"`
	Today         PeriodStats       `json:"today"`
	Month         PeriodStats       `json:"month"`
	AverageTicket float64           `json:"average_ticket"`
	Customers     int               `json:"customers"`
	Products      int               `json:"products"`
	Alerts        stockalert.Counts `json:"alerts"`
	Daily         []DayPoint        `json:"daily"`
	Monthly       []MonthPoint      `json:"monthly"`
	Payments      []PaymentPoint    `json:"payments"`
	TopDay        *DayPoint         `json:"top_day,omitempty"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

type StoreSummary struct {
	Store         Store             `json:"store"`
	SalesToday    PeriodStats       `json:"sales_today"`
	SalesMonth    PeriodStats       `json:"sales_month"`
	ExpensesMonth float64           `json:"expenses_month"`
	Profit        float64           `json:"profit"`
	Alerts        stockalert.Counts `json:"alerts"`
}

type StoreOverviewRow struct {
	StoreID      string  `json:"store_id"`
	Name         string  `json:"name"`
	SalesCount   int     `json:"sales_count"`
	SalesTotal   float64 `json:"sales_total"`
	CashOutCount int     `json:"cash_out_count"`
	CashOutTotal float64 `json:"cash_out_total"`
	Net          float64 `json:"net"`
}

type StockListResponse struct {
	Items  []stockalert.Item `json:"items"`
	Counts stockalert.Counts `json:"counts"`
}

type StoreDetail struct {
	Store       Store             `json:"store"`
	Alerts      []stockalert.Item `json:"alerts"`
	RecentSales []SaleRow         `json:"recent_sales"`
}

type AdminOverview struct {
	Date         string             `json:"date"`
	Stores       []StoreOverviewRow `json:"stores"`
	SalesCount   int                `json:"sales_count"`
	SalesTotal   float64            `json:"sales_total"`
	CashOutCount int                `json:"cash_out_count"`
	CashOutTotal float64            `json:"cash_out_total"`
	Net          float64            `json:"net"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	StoreID     string `json:"store_id"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
	StoreID  string
}

type UserAccount struct {
	Username  string    `json:"username" db:"username"`
	Password  string    `json:"-" db:"password_hash"`
	Role      string    `json:"role" db:"role"`
	StoreID   string    `json:"store_id" db:"store_id"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	StoreID  string `json:"store_id"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	StoreID   string    `json:"store_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditLog struct {
	ID            string    `json:"id" db:"id"`
	StoreID       string    `json:"store_id" db:"store_id"`
	ActorUsername string    `json:"actor_username" db:"actor_username"`
	ActorRole     string    `json:"actor_role" db:"actor_role"`
	Action        string    `json:"action" db:"action"`
	EntityType    string    `json:"entity_type" db:"entity_type"`
	EntityID      string    `json:"entity_id" db:"entity_id"`
	Detail        string    `json:"detail" db:"detail"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

const (
	SaleEventCreated  = "sale.created"
	SaleEventReversed = "sale.reversed"
)

type SaleEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	StoreID    string    `json:"store_id"`
	SaleID     string    `json:"sale_id"`
	SaleNumber int64     `json:"sale_number"`
	TotalFinal float64   `json:"total_final"`
	Items      int       `json:"items"`
	OccurredAt time.Time `json:"occurred_at"`
}
