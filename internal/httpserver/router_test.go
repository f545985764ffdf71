package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mmdr-storefront/internal/domain"
	productrepo "mmdr-storefront/internal/repository/product"
	salerepo "mmdr-storefront/internal/repository/sale"
	productsvc "mmdr-storefront/internal/service/product"
	reviewsvc "mmdr-storefront/internal/service/review"
	salesvc "mmdr-storefront/internal/service/sale"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type stubProducts struct {
	items      []domain.Product
	total      int
	err        error
	lastFilter productrepo.ListFilter
}

func (s *stubProducts) List(_ context.Context, f productrepo.ListFilter) ([]domain.Product, int, error) {
	s.lastFilter = f
	return s.items, s.total, s.err
}

func (s *stubProducts) Get(_ context.Context, id string) (*domain.Product, error) {
	for _, p := range s.items {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubProducts) Create(_ context.Context, in productsvc.Input) (*domain.Product, error) {
	if in.Name == nil {
		verr := domain.NewValidationError()
		verr.Add("name", "El nombre del producto es requerido")
		return nil, verr
	}
	return &domain.Product{ID: "new", Name: *in.Name}, nil
}

func (s *stubProducts) Update(_ context.Context, id string, _ productsvc.Input) (*domain.Product, error) {
	return s.Get(context.Background(), id)
}

func (s *stubProducts) Delete(_ context.Context, id string) error {
	_, err := s.Get(context.Background(), id)
	return err
}

func (s *stubProducts) Stats(context.Context) (*domain.ProductStats, error) {
	return &domain.ProductStats{Total: len(s.items)}, nil
}

type stubSales struct {
	createErr   error
	created     *domain.Sale
	periodCalls int
	lastGran    domain.Granularity
	dashNow     time.Time
}

func (s *stubSales) Create(_ context.Context, in domain.Sale) (*domain.Sale, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	in.ID = "s1"
	s.created = &in
	return &in, nil
}

func (s *stubSales) List(context.Context, salerepo.ListFilter) ([]domain.Sale, int, error) {
	return []domain.Sale{}, 21, nil
}

func (s *stubSales) Get(context.Context, string) (*domain.Sale, error) {
	return nil, domain.ErrNotFound
}

func (s *stubSales) GetByOrderNumber(_ context.Context, n string) (*domain.Sale, error) {
	return &domain.Sale{ID: "s1", OrderNumber: n}, nil
}

func (s *stubSales) UpdateStatus(_ context.Context, id string, status domain.SaleStatus, notes string) (*domain.Sale, error) {
	return &domain.Sale{ID: id, Status: status, Notes: notes}, nil
}

func (s *stubSales) Stats(context.Context, salerepo.Range) (*salesvc.StatsReport, error) {
	return &salesvc.StatsReport{SaleStats: domain.SaleStats{Count: 2, Revenue: 10, Average: 5}}, nil
}

func (s *stubSales) TopProducts(context.Context, int, salerepo.Range) ([]domain.TopProduct, error) {
	return []domain.TopProduct{}, nil
}

func (s *stubSales) ByPeriod(_ context.Context, _, _ time.Time, g domain.Granularity) ([]domain.PeriodBucket, error) {
	s.periodCalls++
	s.lastGran = g
	return []domain.PeriodBucket{}, nil
}

func (s *stubSales) Dashboard(_ context.Context, now time.Time) (*domain.Dashboard, error) {
	s.dashNow = now
	return &domain.Dashboard{}, nil
}

type stubReviews struct{}

func (stubReviews) List(context.Context, string) (*reviewsvc.Listing, error) {
	return &reviewsvc.Listing{Reviews: []domain.Review{{ID: "r1", Rating: 4}}, Stats: reviewsvc.Stats{Average: 4, Total: 1}}, nil
}

func (stubReviews) Create(_ context.Context, productID string, in reviewsvc.CreateInput) (*domain.Review, error) {
	return &domain.Review{ID: "r2", ProductID: productID, UserName: in.UserName, Rating: in.Rating}, nil
}

func (stubReviews) Update(context.Context, string, reviewsvc.UpdateInput) (*domain.Review, error) {
	return nil, domain.ErrNotFound
}

func (stubReviews) Delete(context.Context, string) error { return nil }

func (stubReviews) Moderate(_ context.Context, id string, approved bool) (*domain.Review, error) {
	return &domain.Review{ID: id, IsModerated: true, IsApproved: approved}, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type fixture struct {
	router   *gin.Engine
	products *stubProducts
	sales    *stubSales
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	products := &stubProducts{items: []domain.Product{{ID: "p1", Name: "Butaca"}}, total: 1}
	sales := &stubSales{}
	router := buildRouter(zap.NewNop(), stubPinger{}, Deps{
		Products: products,
		Sales:    sales,
		Reviews:  stubReviews{},
		Now:      func() time.Time { return time.Date(2025, 6, 18, 10, 0, 0, 0, time.UTC) },
	}, []string{"http://localhost:3000"})
	return fixture{router: router, products: products, sales: sales}
}

func (f fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	gin.SetMode(gin.TestMode)
	router := buildRouter(zap.NewNop(), stubPinger{err: errors.New("down")}, Deps{}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestListProductsPagination(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/products?category=asientos&page=0&limit=500&isActive=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.products.lastFilter.Page != 1 || f.products.lastFilter.Limit != 100 {
		t.Fatalf("expected normalized paging, got %+v", f.products.lastFilter)
	}
	if f.products.lastFilter.IsActive == nil || !*f.products.lastFilter.IsActive {
		t.Fatalf("expected isActive filter")
	}
	body := decode(t, rec)
	pagination := body["pagination"].(map[string]any)
	if pagination["totalItems"].(float64) != 1 || pagination["hasNextPage"].(bool) {
		t.Fatalf("unexpected pagination %v", pagination)
	}
}

func TestGetProductNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/products/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["success"].(bool) || body["message"] != "Producto no encontrado" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestCreateProductValidation(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/products", `{"price": 10}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode(t, rec)
	errs := body["errors"].(map[string]any)
	if _, ok := errs["name"]; !ok {
		t.Fatalf("expected name error, got %v", body)
	}

	rec = f.do(http.MethodPost, "/api/products", `{"name": "Volante"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestCreateSale(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/sales", `{"numeroOrden":"MMDR-1","cliente":{"nombre":"Ana"},"productos":[],"totales":{},"pago":{"metodo":"paypal"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.sales.created == nil || f.sales.created.OrderNumber != "MMDR-1" {
		t.Fatalf("sale not forwarded: %+v", f.sales.created)
	}
}

func TestCreateSaleErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"stock", &domain.StockError{Name: "Volante", Available: 1}, http.StatusBadRequest, "Stock insuficiente para Volante. Disponible: 1"},
		{"invalid", domain.Invalid("Faltan datos requeridos para crear la venta"), http.StatusBadRequest, "Faltan datos requeridos para crear la venta"},
		{"duplicate", domain.ErrAlreadyExists, http.StatusConflict, "El número de orden ya existe"},
		{"internal", errors.New("db down"), http.StatusInternalServerError, "Error interno del servidor"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.sales.createErr = tc.err
			rec := f.do(http.MethodPost, "/api/sales", `{"numeroOrden":"MMDR-1"}`)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if msg := decode(t, rec)["message"]; msg != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, msg)
			}
		})
	}
}

func TestSaleRoutes(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(http.MethodGet, "/api/sales/orden/MMDR-9", ""); rec.Code != http.StatusOK {
		t.Fatalf("order lookup: expected 200, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/api/sales/abc", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get: expected 404, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPut, "/api/sales/abc/estado", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("status without estado: expected 400, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPut, "/api/sales/abc/estado", `{"estado":"cancelado"}`); rec.Code != http.StatusOK {
		t.Fatalf("status update: expected 200, got %d", rec.Code)
	}

	rec := f.do(http.MethodGet, "/api/sales?pagina=2&limite=10", "")
	pag := decode(t, rec)["paginacion"].(map[string]any)
	if pag["paginas"].(float64) != 3 || pag["pagina"].(float64) != 2 {
		t.Fatalf("unexpected paginacion %v", pag)
	}
}

func TestSalesAnalytics(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(http.MethodGet, "/api/sales/analytics/ventas-por-periodo?fechaInicio=2025-06-01", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without fechaFin, got %d", rec.Code)
	}
	rec := f.do(http.MethodGet, "/api/sales/analytics/ventas-por-periodo?fechaInicio=2025-06-01&fechaFin=2025-06-30&agrupacion=mes", "")
	if rec.Code != http.StatusOK || f.sales.lastGran != domain.GranularityMonth {
		t.Fatalf("unexpected response %d gran=%s", rec.Code, f.sales.lastGran)
	}
	if rec := f.do(http.MethodGet, "/api/sales/analytics/estadisticas?fechaInicio=ayer", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rec.Code)
	}
	rec = f.do(http.MethodGet, "/api/sales/analytics/estadisticas", "")
	data := decode(t, rec)["data"].(map[string]any)
	if data["promedioVenta"].(float64) != 5 {
		t.Fatalf("expected flattened stats, got %v", data)
	}
	if rec := f.do(http.MethodGet, "/api/sales/analytics/dashboard", ""); rec.Code != http.StatusOK || f.sales.dashNow.Day() != 18 {
		t.Fatalf("dashboard: %d now=%v", rec.Code, f.sales.dashNow)
	}
}

func TestReviewRoutes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/reviews/product/p1", "")
	body := decode(t, rec)
	if stats := body["stats"].(map[string]any); stats["totalReviews"].(float64) != 1 {
		t.Fatalf("unexpected stats %v", body)
	}

	if rec := f.do(http.MethodPost, "/api/reviews/product/p1", `{"userName":"Ana","rating":5}`); rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPut, "/api/reviews/r9", `{"rating":3}`); rec.Code != http.StatusNotFound {
		t.Fatalf("update: expected 404, got %d", rec.Code)
	}
	rec = f.do(http.MethodPatch, "/api/reviews/r1/moderate", `{"isApproved":false}`)
	data := decode(t, rec)["data"].(map[string]any)
	if data["isApproved"].(bool) {
		t.Fatalf("expected rejection, got %v", data)
	}
	rec = f.do(http.MethodPatch, "/api/reviews/r1/moderate", "")
	data = decode(t, rec)["data"].(map[string]any)
	if !data["isApproved"].(bool) {
		t.Fatalf("expected approval by default, got %v", data)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected CORS origin header, got %q", got)
	}
}
