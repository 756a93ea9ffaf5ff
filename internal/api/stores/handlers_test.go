package stores

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"github.com/storekit/storekit-backend/internal/middleware"
)

const (
	testStoreID = "a81bc81b-dead-4e5d-abff-90865d1e13b1"
	testUserID  = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	testPeerID  = "store_AbC123xyz"
)

var tenantCols = []string{"id", "name", "subdomain", "peer_store_id", "linked_at", "created_at", "updated_at"}

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeCache records reverse-mapping invalidations issued by the handlers.
type fakeCache struct {
	invalidated []string
}

func (f *fakeCache) Invalidate(_ context.Context, peerID string) {
	f.invalidated = append(f.invalidated, peerID)
}

func newHandlers(t *testing.T) (*Handlers, sqlmock.Sqlmock, *fakeCache) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cache := &fakeCache{}
	return NewHandlers(db, cache), mock, cache
}

// newScopedRouter injects the identifiers the scope guard and auth middleware
// would have resolved on a real request.
func newScopedRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.StoreIDKey, testStoreID)
		c.Set("user_id", testUserID)
		c.Next()
	})
	r.POST("/stores", h.CreateStoreHandler())
	r.GET("/store", h.GetStoreHandler())
	r.PUT("/store", h.UpdateStoreHandler())
	r.PUT("/store/peer-mapping", h.SetPeerMappingHandler())
	r.DELETE("/store/peer-mapping", h.DeletePeerMappingHandler())
	r.GET("/store/members", h.ListMembersHandler())
	r.POST("/store/members", h.AddMemberHandler())
	r.PUT("/store/members/:user_id", h.UpdateMemberHandler())
	r.DELETE("/store/members/:user_id", h.RemoveMemberHandler())
	return r
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
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

// ---------------------------------------------------------------------------
// Store creation and profile
// ---------------------------------------------------------------------------

func TestCreateStore_MakesCallerOwner(t *testing.T) {
	h, mock, _ := newHandlers(t)
	mock.ExpectQuery("INSERT INTO tenants").
		WithArgs("Acme Surf", "acme-surf").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(testStoreID, time.Now(), time.Now()))
	mock.ExpectExec("INSERT INTO store_members").
		WithArgs(testUserID, testStoreID, "owner").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(newScopedRouter(h), http.MethodPost, "/stores", gin.H{
		"name":      "Acme Surf",
		"subdomain": "acme-surf",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var body struct {
		Store struct {
			ID        string `json:"id"`
			Subdomain string `json:"subdomain"`
		} `json:"store"`
		Role string `json:"role"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Store.ID != testStoreID {
		t.Errorf("store id = %q", body.Store.ID)
	}
	if body.Role != "owner" {
		t.Errorf("role = %q, want owner", body.Role)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateStore_RejectsBadSubdomain(t *testing.T) {
	h, _, _ := newHandlers(t)

	w := doJSON(newScopedRouter(h), http.MethodPost, "/stores", gin.H{
		"name":      "Acme Surf",
		"subdomain": "Not_A_Subdomain!",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestCreateStore_SubdomainTaken(t *testing.T) {
	h, mock, _ := newHandlers(t)
	mock.ExpectQuery("INSERT INTO tenants").
		WillReturnError(&pq.Error{Code: "23505"})

	w := doJSON(newScopedRouter(h), http.MethodPost, "/stores", gin.H{
		"name":      "Acme Surf",
		"subdomain": "acme-surf",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
	if got := errorCode(t, w); got != "CONFLICT" {
		t.Errorf("code = %q, want CONFLICT", got)
	}
}

func TestGetStore_ReturnsProfile(t *testing.T) {
	h, mock, _ := newHandlers(t)
	mock.ExpectQuery("SELECT.*FROM tenants.*WHERE id").
		WithArgs(testStoreID).
		WillReturnRows(sqlmock.NewRows(tenantCols).
			AddRow(testStoreID, "Acme Surf", "acme-surf", testPeerID, time.Now(), time.Now(), time.Now()))

	w := doJSON(newScopedRouter(h), http.MethodGet, "/store", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body struct {
		Store struct {
			PeerStoreID *string `json:"peer_store_id"`
		} `json:"store"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Store.PeerStoreID == nil || *body.Store.PeerStoreID != testPeerID {
		t.Errorf("peer_store_id = %v, want %q", body.Store.PeerStoreID, testPeerID)
	}
}

func TestGetStore_NotFound(t *testing.T) {
	h, mock, _ := newHandlers(t)
	mock.ExpectQuery("SELECT.*FROM tenants.*WHERE id").
		WillReturnRows(sqlmock.NewRows(tenantCols))

	w := doJSON(newScopedRouter(h), http.MethodGet, "/store", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if got := errorCode(t, w); got != "STORE_NOT_FOUND" {
		t.Errorf("code = %q, want STORE_NOT_FOUND", got)
	}
}

func TestUpdateStore_ChangesName(t *testing.T) {
	h, mock, _ := newHandlers(t)
	mock.ExpectQuery("SELECT.*FROM tenants.*WHERE id").
		WillReturnRows(sqlmock.NewRows(tenantCols).
			AddRow(testStoreID, "Acme Surf", "acme-surf", nil, nil, time.Now(), time.Now()))
	mock.ExpectExec("UPDATE tenants").
		WithArgs(testStoreID, "Acme Surf & Turf").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(newScopedRouter(h), http.MethodPut, "/store", gin.H{
		"name": "Acme Surf & Turf",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Peer mapping
// ---------------------------------------------------------------------------

func TestSetPeerMapping_LinksAndInvalidatesCache(t *testing.T) {
	h, mock, cache := newHandlers(t)
	mock.ExpectExec("UPDATE tenants").
		WithArgs(testStoreID, testPeerID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(newScopedRouter(h), http.MethodPut, "/store/peer-mapping", gin.H{
		"peer_store_id": testPeerID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	if len(cache.invalidated) != 1 || cache.invalidated[0] != testPeerID {
		t.Errorf("cache invalidations = %v, want [%s]", cache.invalidated, testPeerID)
	}
}

func TestSetPeerMapping_RejectsBadPeerIDFormat(t *testing.T) {
	h, _, cache := newHandlers(t)

	w := doJSON(newScopedRouter(h), http.MethodPut, "/store/peer-mapping", gin.H{
		"peer_store_id": "not-a-peer-id",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
	if got := errorCode(t, w); got != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", got)
	}
	if len(cache.invalidated) != 0 {
		t.Errorf("cache invalidated on a rejected request: %v", cache.invalidated)
	}
}

// A store already linked to a different peer id must answer 409, not silently
// relink.
func TestSetPeerMapping_ConflictWhenAlreadyLinkedElsewhere(t *testing.T) {
	h, mock, cache := newHandlers(t)
	mock.ExpectExec("UPDATE tenants").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT.*FROM tenants.*WHERE id").
		WillReturnRows(sqlmock.NewRows(tenantCols).
			AddRow(testStoreID, "Acme Surf", "acme-surf", "store_Other999", time.Now(), time.Now(), time.Now()))

	w := doJSON(newScopedRouter(h), http.MethodPut, "/store/peer-mapping", gin.H{
		"peer_store_id": testPeerID,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
	if got := errorCode(t, w); got != "CONFLICT" {
		t.Errorf("code = %q, want CONFLICT", got)
	}
	if len(cache.invalidated) != 0 {
		t.Errorf("cache invalidated on a conflicting request: %v", cache.invalidated)
	}
}

func TestSetPeerMapping_ConflictWhenPeerIDTaken(t *testing.T) {
	h, mock, _ := newHandlers(t)
	mock.ExpectExec("UPDATE tenants").
		WillReturnError(&pq.Error{Code: "23505"})

	w := doJSON(newScopedRouter(h), http.MethodPut, "/store/peer-mapping", gin.H{
		"peer_store_id": testPeerID,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestDeletePeerMapping_UnlinksAndInvalidatesCache(t *testing.T) {
	h, mock, cache := newHandlers(t)
	mock.ExpectQuery("SELECT peer_store_id FROM tenants").
		WithArgs(testStoreID).
		WillReturnRows(sqlmock.NewRows([]string{"peer_store_id"}).AddRow(testPeerID))
	mock.ExpectExec("UPDATE tenants").
		WithArgs(testStoreID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(newScopedRouter(h), http.MethodDelete, "/store/peer-mapping", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != testPeerID {
		t.Errorf("cache invalidations = %v, want [%s]", cache.invalidated, testPeerID)
	}
}

func TestDeletePeerMapping_NoLinkIsNoOp(t *testing.T) {
	h, mock, cache := newHandlers(t)
	mock.ExpectQuery("SELECT peer_store_id FROM tenants").
		WillReturnRows(sqlmock.NewRows([]string{"peer_store_id"}).AddRow(nil))
	mock.ExpectExec("UPDATE tenants").
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := doJSON(newScopedRouter(h), http.MethodDelete, "/store/peer-mapping", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if len(cache.invalidated) != 0 {
		t.Errorf("cache invalidated for an unlinked store: %v", cache.invalidated)
	}
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

var memberCols = []string{"user_id", "store_id", "role", "is_active", "created_at", "updated_at"}

func TestListMembers_IncludesUserDetails(t *testing.T) {
	h, mock, _ := newHandlers(t)
	cols := []string{"user_id", "store_id", "role", "is_active", "created_at", "user_email", "display_name"}
	mock.ExpectQuery("SELECT.*FROM store_members.*LEFT JOIN users").
		WithArgs(testStoreID).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(testUserID, testStoreID, "owner", true, time.Now(), "alice@example.com", "Alice"))

	w := doJSON(newScopedRouter(h), http.MethodGet, "/store/members", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body struct {
		Members []struct {
			UserEmail string `json:"user_email"`
			Role      string `json:"role"`
		} `json:"members"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(body.Members) != 1 {
		t.Fatalf("len(members) = %d, want 1", len(body.Members))
	}
	if body.Members[0].UserEmail != "alice@example.com" {
		t.Errorf("user_email = %q", body.Members[0].UserEmail)
	}
}

func TestAddMember_Success(t *testing.T) {
	h, mock, _ := newHandlers(t)
	newUser := "new-user-id"
	mock.ExpectExec("INSERT INTO store_members").
		WithArgs(newUser, testStoreID, "member").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT.*FROM store_members.*WHERE store_id").
		WithArgs(testStoreID, newUser).
		WillReturnRows(sqlmock.NewRows(memberCols).
			AddRow(newUser, testStoreID, "member", true, time.Now(), time.Now()))

	w := doJSON(newScopedRouter(h), http.MethodPost, "/store/members", gin.H{
		"user_id": newUser,
		"role":    "member",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
}

func TestAddMember_UnknownRole(t *testing.T) {
	h, _, _ := newHandlers(t)

	w := doJSON(newScopedRouter(h), http.MethodPost, "/store/members", gin.H{
		"user_id": "new-user-id",
		"role":    "superuser",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestAddMember_AlreadyMember(t *testing.T) {
	h, mock, _ := newHandlers(t)
	mock.ExpectExec("INSERT INTO store_members").
		WillReturnError(&pq.Error{Code: "23505"})

	w := doJSON(newScopedRouter(h), http.MethodPost, "/store/members", gin.H{
		"user_id": "new-user-id",
		"role":    "member",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestUpdateMember_DeactivatesMembership(t *testing.T) {
	h, mock, _ := newHandlers(t)
	mock.ExpectExec("UPDATE store_members").
		WithArgs(testStoreID, testUserID, false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT.*FROM store_members.*WHERE store_id").
		WillReturnRows(sqlmock.NewRows(memberCols).
			AddRow(testUserID, testStoreID, "admin", false, time.Now(), time.Now()))

	w := doJSON(newScopedRouter(h), http.MethodPut, "/store/members/"+testUserID, gin.H{
		"is_active": false,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body struct {
		Member struct {
			IsActive bool `json:"is_active"`
		} `json:"member"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Member.IsActive {
		t.Error("is_active = true, want false")
	}
}

func TestUpdateMember_UnknownMember(t *testing.T) {
	h, mock, _ := newHandlers(t)
	mock.ExpectExec("UPDATE store_members").
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := doJSON(newScopedRouter(h), http.MethodPut, "/store/members/nobody", gin.H{
		"role": "viewer",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
	if got := errorCode(t, w); got != "STORE_NOT_FOUND" {
		t.Errorf("code = %q, want STORE_NOT_FOUND", got)
	}
}

// Revoking a membership deactivates the row; nothing is ever deleted from
// store_members.
func TestRemoveMember_DeactivatesMembership(t *testing.T) {
	h, mock, _ := newHandlers(t)
	mock.ExpectExec("UPDATE store_members.*SET is_active").
		WithArgs(testStoreID, testUserID, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(newScopedRouter(h), http.MethodDelete, "/store/members/"+testUserID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRemoveMember_UnknownMember(t *testing.T) {
	h, mock, _ := newHandlers(t)
	mock.ExpectExec("UPDATE store_members.*SET is_active").
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := doJSON(newScopedRouter(h), http.MethodDelete, "/store/members/nobody", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
	if got := errorCode(t, w); got != "STORE_NOT_FOUND" {
		t.Errorf("code = %q, want STORE_NOT_FOUND", got)
	}
}
