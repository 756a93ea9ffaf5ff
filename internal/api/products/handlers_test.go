package products

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/storekit/storekit-backend/internal/config"
	"github.com/storekit/storekit-backend/internal/middleware"
)

const testStoreID = "a81bc81b-dead-4e5d-abff-90865d1e13b1"

var productCols = []string{
	"id", "store_id", "name", "description", "price_cents", "currency", "stock",
	"deleted_at", "created_at", "updated_at",
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newHandlers(t *testing.T) (*Handlers, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Pagination: config.PaginationConfig{DefaultLimit: 25, MaxLimit: 100},
	}
	return NewHandlers(cfg, db), mock
}

func newRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.StoreIDKey, testStoreID)
		c.Next()
	})
	r.GET("/products", h.ListProductsHandler())
	r.GET("/products/:id", h.GetProductHandler())
	r.POST("/products", h.CreateProductHandler())
	r.PUT("/products/:id", h.UpdateProductHandler())
	r.DELETE("/products/:id", h.DeleteProductHandler())
	return r
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var data []byte
	if body != nil {
		data, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	return body.Code
}

func TestListProducts_PaginatesWithinStore(t *testing.T) {
	h, mock := newHandlers(t)
	mock.ExpectQuery("SELECT.*FROM products.*WHERE store_id").
		WithArgs(testStoreID, 10, 10).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("prod-1", testStoreID, "Surfboard", "7ft", 49900, "USD", 3, nil, time.Now(), time.Now()))
	mock.ExpectQuery("SELECT COUNT.*FROM products").
		WithArgs(testStoreID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	w := doJSON(newRouter(h), http.MethodGet, "/products?page=2&per_page=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body struct {
		Products []struct {
			ID string `json:"id"`
		} `json:"products"`
		Pagination struct {
			Page    int `json:"page"`
			PerPage int `json:"per_page"`
			Total   int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(body.Products) != 1 {
		t.Fatalf("len(products) = %d, want 1", len(body.Products))
	}
	if body.Pagination.Page != 2 || body.Pagination.PerPage != 10 || body.Pagination.Total != 11 {
		t.Errorf("pagination = %+v", body.Pagination)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListProducts_ClampsOversizedPerPage(t *testing.T) {
	h, mock := newHandlers(t)
	// per_page beyond the max falls back to the default limit.
	mock.ExpectQuery("SELECT.*FROM products.*WHERE store_id").
		WithArgs(testStoreID, 25, 0).
		WillReturnRows(sqlmock.NewRows(productCols))
	mock.ExpectQuery("SELECT COUNT.*FROM products").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	w := doJSON(newRouter(h), http.MethodGet, "/products?per_page=5000", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// A product that exists under another store scans as no rows, so the handler
// answers 404 rather than revealing it exists.
func TestGetProduct_CrossStoreMissIs404(t *testing.T) {
	h, mock := newHandlers(t)
	mock.ExpectQuery("SELECT.*FROM products.*WHERE store_id").
		WithArgs(testStoreID, "prod-of-other-store").
		WillReturnRows(sqlmock.NewRows(productCols))

	w := doJSON(newRouter(h), http.MethodGet, "/products/prod-of-other-store", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
	if got := errorCode(t, w); got != "STORE_NOT_FOUND" {
		t.Errorf("code = %q, want STORE_NOT_FOUND", got)
	}
}

func TestCreateProduct_ScopesToStore(t *testing.T) {
	h, mock := newHandlers(t)
	mock.ExpectQuery("INSERT INTO products").
		WithArgs(testStoreID, "Surfboard", "7ft", int64(49900), "USD", 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("prod-1", time.Now(), time.Now()))

	w := doJSON(newRouter(h), http.MethodPost, "/products", gin.H{
		"name":        "Surfboard",
		"description": "7ft",
		"price_cents": 49900,
		"currency":    "USD",
		"stock":       3,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var body struct {
		Product struct {
			ID      string `json:"id"`
			StoreID string `json:"store_id"`
		} `json:"product"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Product.ID != "prod-1" {
		t.Errorf("product id = %q", body.Product.ID)
	}
	if body.Product.StoreID != testStoreID {
		t.Errorf("store_id = %q, want %q", body.Product.StoreID, testStoreID)
	}
}

func TestCreateProduct_RejectsUnknownCurrency(t *testing.T) {
	h, _ := newHandlers(t)

	w := doJSON(newRouter(h), http.MethodPost, "/products", gin.H{
		"name":        "Surfboard",
		"price_cents": 49900,
		"currency":    "XYZ",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestUpdateProduct_PartialUpdateKeepsOtherFields(t *testing.T) {
	h, mock := newHandlers(t)
	mock.ExpectQuery("SELECT.*FROM products.*WHERE store_id").
		WithArgs(testStoreID, "prod-1").
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("prod-1", testStoreID, "Surfboard", "7ft", 49900, "USD", 3, nil, time.Now(), time.Now()))
	mock.ExpectExec("UPDATE products").
		WithArgs(testStoreID, "prod-1", "Surfboard", "7ft", int64(39900), "USD", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(newRouter(h), http.MethodPut, "/products/prod-1", gin.H{
		"price_cents": 39900,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdateProduct_RejectsNegativePrice(t *testing.T) {
	h, mock := newHandlers(t)
	mock.ExpectQuery("SELECT.*FROM products.*WHERE store_id").
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("prod-1", testStoreID, "Surfboard", "7ft", 49900, "USD", 3, nil, time.Now(), time.Now()))

	w := doJSON(newRouter(h), http.MethodPut, "/products/prod-1", gin.H{
		"price_cents": -1,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestUpdateProduct_GoneBetweenReadAndWrite(t *testing.T) {
	h, mock := newHandlers(t)
	mock.ExpectQuery("SELECT.*FROM products.*WHERE store_id").
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("prod-1", testStoreID, "Surfboard", "7ft", 49900, "USD", 3, nil, time.Now(), time.Now()))
	mock.ExpectExec("UPDATE products").
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := doJSON(newRouter(h), http.MethodPut, "/products/prod-1", gin.H{
		"stock": 5,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
	if got := errorCode(t, w); got != "STORE_NOT_FOUND" {
		t.Errorf("code = %q, want STORE_NOT_FOUND", got)
	}
}

func TestDeleteProduct_SoftDeletes(t *testing.T) {
	h, mock := newHandlers(t)
	mock.ExpectExec("UPDATE products").
		WithArgs(testStoreID, "prod-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(newRouter(h), http.MethodDelete, "/products/prod-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestDeleteProduct_AlreadyDeleted(t *testing.T) {
	h, mock := newHandlers(t)
	mock.ExpectExec("UPDATE products").
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := doJSON(newRouter(h), http.MethodDelete, "/products/prod-1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
	if got := errorCode(t, w); got != "STORE_NOT_FOUND" {
		t.Errorf("code = %q, want STORE_NOT_FOUND", got)
	}
}
