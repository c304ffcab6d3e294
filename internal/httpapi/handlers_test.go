package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tebaspos/backend/internal/cache"
	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/events"
	"tebaspos/backend/internal/service"
	"tebaspos/backend/internal/stats"
	"tebaspos/backend/internal/store"
	"tebaspos/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded("main-store")
	engine := stats.NewEngine(cache.NewMemoryStatsCache(), time.Minute)
	svc := service.New(repo, engine, events.Noop{}, "main-store", time.UTC)
	auth := NewAuthManager("test-secret-key-with-enough-bytes", time.Hour, repo, repo)

	return New(svc, auth, "*")
}

// do sends a request through the full handler, adding the bearer token and
// a CSRF token for mutating methods.
func do(t *testing.T, api *API, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if isMutating(method) {
		req.Header.Set("X-CSRF-Token", api.generateCSRFToken())
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := do(t, api, http.MethodGet, "/healthz", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)
	rec := do(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "caixa", Password: "caixa123"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body domain.LoginResponse
	decodeBody(t, rec, &body)
	if body.AccessToken == "" {
		t.Fatalf("expected access_token in response, got %+v", body)
	}
	if body.Role != domain.RoleStaff || body.StoreID != "main-store" {
		t.Fatalf("unexpected login response %+v", body)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	rec := do(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "wrongpassword"})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleProducts_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	rec := do(t, api, http.MethodGet, "/api/v1/products", "", nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleProducts_WithValidToken(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "caixa", "caixa123")

	rec := do(t, api, http.MethodGet, "/api/v1/products", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Products []domain.Product `json:"products"`
	}
	decodeBody(t, rec, &body)
	if len(body.Products) != 7 {
		t.Fatalf("expected 7 seeded products, got %d", len(body.Products))
	}
}

func TestHandleProductResolve_NotFound(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "caixa", "caixa123")

	rec := do(t, api, http.MethodGet, "/api/v1/products/resolve?ref=999", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = do(t, api, http.MethodGet, "/api/v1/products/resolve?ref=1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestStaffCannotReachAdminRoutes(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "caixa", "caixa123")

	for _, path := range []string{"/api/v1/admin/overview", "/api/v1/audit-logs", "/api/v1/users/staff"} {
		rec := do(t, api, http.MethodGet, path, token, nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d", path, rec.Code)
		}
	}

	rec := do(t, api, http.MethodGet, "/api/v1/products?store_id=other-store", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another store, got %d", rec.Code)
	}
}

func TestCreateSaleFlow(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "caixa", "caixa123")

	rec := do(t, api, http.MethodPost, "/api/v1/sales", token, domain.SaleCreateRequest{
		PaymentMethod: "Pix",
		Edits: []domain.CartEdit{
			{Op: "add", Product: "1", Value: "2"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var created domain.SaleCreateResponse
	decodeBody(t, rec, &created)
	if created.Receipt.SaleNumber != 1 {
		t.Fatalf("expected first sale number 1, got %d", created.Receipt.SaleNumber)
	}
	if created.Cart.FinalTotal != 55 {
		t.Fatalf("expected total 55, got %v", created.Cart.FinalTotal)
	}

	rec = do(t, api, http.MethodGet, "/api/v1/sales", token, nil)
	var listed struct {
		Sales []domain.SaleRow `json:"sales"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Sales) != 1 {
		t.Fatalf("expected one listed sale, got %d", len(listed.Sales))
	}

	rec = do(t, api, http.MethodPost, "/api/v1/sales/"+created.Receipt.SaleID+"/reverse", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on reverse, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	rec = do(t, api, http.MethodGet, "/api/v1/sales/"+created.Receipt.SaleID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected reversed sale to be gone, got %d", rec.Code)
	}
}

func TestCreateSaleRejectsShortStock(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "caixa", "caixa123")

	rec := do(t, api, http.MethodPost, "/api/v1/sales", token, domain.SaleCreateRequest{
		PaymentMethod: "Dinheiro",
		Edits: []domain.CartEdit{
			{Op: "add", Product: "3", Value: "5"},
		},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Cart domain.CartView `json:"cart"`
	}
	decodeBody(t, rec, &body)
	if len(body.Cart.Lines) != 1 || body.Cart.Lines[0].Error == "" {
		t.Fatalf("expected the short line to be marked, got %+v", body.Cart)
	}
}

// racingLedger refuses every sale as if another counter took the stock first.
type racingLedger struct {
	*memory.Store
}

func (racingLedger) CreateSale(context.Context, domain.SaleDraft) (domain.SaleReceipt, error) {
	return domain.SaleReceipt{}, store.ErrInsufficientStock
}

func TestCreateSaleRejectedByLedgerKeepsCart(t *testing.T) {
	repo := memory.NewSeeded("main-store")
	recorder := &events.Recorder{}
	engine := stats.NewEngine(cache.NewMemoryStatsCache(), time.Minute)
	svc := service.New(racingLedger{repo}, engine, recorder, "main-store", time.UTC)
	api := New(svc, NewAuthManager("test-secret-key-with-enough-bytes", time.Hour, repo, repo), "*")
	token := loginAs(t, api, "caixa", "caixa123")

	before, err := repo.StockSnapshot(context.Background(), "main-store")
	if err != nil {
		t.Fatalf("stock snapshot: %v", err)
	}

	rec := do(t, api, http.MethodPost, "/api/v1/sales", token, domain.SaleCreateRequest{
		PaymentMethod: "Dinheiro",
		Edits: []domain.CartEdit{
			{Op: "add", Product: "1", Value: "2"},
		},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]json.RawMessage
	decodeBody(t, rec, &body)
	if _, ok := body["validation"]; ok {
		t.Fatalf("expected no local validation payload, got %s", body["validation"])
	}
	var msg string
	if err := json.Unmarshal(body["error"], &msg); err != nil || msg != store.ErrInsufficientStock.Error() {
		t.Fatalf("expected a single insufficient stock message, got %s", body["error"])
	}
	var view domain.CartView
	if err := json.Unmarshal(body["cart"], &view); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if len(view.Lines) != 1 || view.FinalTotal != 55 {
		t.Fatalf("expected the cart to come back intact, got %+v", view)
	}

	after, err := repo.StockSnapshot(context.Background(), "main-store")
	if err != nil {
		t.Fatalf("stock snapshot: %v", err)
	}
	for id, qty := range before {
		if after[id] != qty {
			t.Fatalf("expected stock of %s to stay %v, got %v", id, qty, after[id])
		}
	}
	if len(recorder.Events()) != 0 {
		t.Fatalf("expected no events, got %+v", recorder.Events())
	}
	rows, err := repo.ListSales(context.Background(), "main-store", domain.SaleFilter{})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected nothing recorded, got %d sales", len(rows))
	}
	logs, err := repo.ListAuditLogs(context.Background(), "", time.Time{}, time.Now().Add(time.Hour), 100)
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	for _, entry := range logs {
		if entry.Action == "sale_create" {
			t.Fatalf("expected no sale audit entry, got %+v", entry)
		}
	}
}

func TestBulkEntryRejectedRowsAreReturned(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "caixa", "caixa123")

	rec := do(t, api, http.MethodPost, "/api/v1/sales/bulk", token, domain.BulkEntryRequest{
		Rows: []domain.BulkRow{
			{Date: "2025-03-01", Product: "1", Qty: "1"},
			{Date: "2025-03-01", Product: "999", Qty: "1"},
		},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Rows []domain.BulkRowResult `json:"rows"`
	}
	decodeBody(t, rec, &body)
	if len(body.Rows) != 2 || body.Rows[0].Error != "" || body.Rows[1].Error == "" {
		t.Fatalf("expected only the second row marked, got %+v", body.Rows)
	}
}

func TestExportCustomersSetsAttachment(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "caixa", "caixa123")

	rec := do(t, api, http.MethodGet, "/api/v1/exports/customers", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "clientes-") {
		t.Fatalf("unexpected content disposition %q", got)
	}
	if !strings.Contains(rec.Body.String(), "Maria Souza") {
		t.Fatalf("expected seeded customer in export, got %q", rec.Body.String())
	}
}

func TestStoreSummaryPrintable(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "admin", "admin123")

	rec := do(t, api, http.MethodGet, "/api/v1/stores/summary?store_id=main-store&format=html", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Loja Centro") {
		t.Fatalf("expected store name in page")
	}
}

func TestAdminCreatesStaff(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "admin", "admin123")

	rec := do(t, api, http.MethodPost, "/api/v1/users/staff", token, domain.StaffCreateRequest{
		Username: "balcao2",
		Password: "segredo1",
		StoreID:  "main-store",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	staffToken := loginAs(t, api, "balcao2", "segredo1")
	rec = do(t, api, http.MethodGet, "/api/v1/inventory?level=alerts", staffToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stock domain.StockListResponse
	decodeBody(t, rec, &stock)
	if stock.Counts.Total != 3 || len(stock.Items) != 3 {
		t.Fatalf("expected 3 alerts, got %+v", stock.Counts)
	}
}
