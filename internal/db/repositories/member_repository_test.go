package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/storekit/storekit-backend/internal/db/models"
	"github.com/storekit/storekit-backend/internal/tenantauth"
)

var memberCols = []string{"user_id", "store_id", "role", "is_active", "created_at", "updated_at"}

func newMemberRepo(t *testing.T) (*MemberRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewMemberRepository(db), mock
}

// ---------------------------------------------------------------------------
// IsActiveMember
// ---------------------------------------------------------------------------

func TestIsActiveMember_Active(t *testing.T) {
	repo, mock := newMemberRepo(t)
	mock.ExpectQuery("SELECT is_active.*FROM store_members").
		WithArgs("user-1", storeA).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))

	active, err := repo.IsActiveMember(context.Background(), "user-1", storeA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !active {
		t.Error("expected active membership")
	}
}

func TestIsActiveMember_Deactivated(t *testing.T) {
	repo, mock := newMemberRepo(t)
	mock.ExpectQuery("SELECT is_active.*FROM store_members").
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(false))

	active, err := repo.IsActiveMember(context.Background(), "user-1", storeA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active {
		t.Error("deactivated membership must answer false")
	}
}

func TestIsActiveMember_NoRow(t *testing.T) {
	repo, mock := newMemberRepo(t)
	mock.ExpectQuery("SELECT is_active.*FROM store_members").
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}))

	active, err := repo.IsActiveMember(context.Background(), "stranger", storeA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active {
		t.Error("missing membership must answer false")
	}
}

func TestIsActiveMember_DBError(t *testing.T) {
	repo, mock := newMemberRepo(t)
	mock.ExpectQuery("SELECT is_active.*FROM store_members").
		WillReturnError(errDB)

	if _, err := repo.IsActiveMember(context.Background(), "user-1", storeA); err == nil {
		t.Error("expected error")
	}
}

// Membership is always keyed by store UUID; a peer-format id must be rejected
// before any query runs.
func TestIsActiveMember_RejectsPeerID(t *testing.T) {
	repo, _ := newMemberRepo(t)

	if _, err := repo.IsActiveMember(context.Background(), "user-1", peerA); err == nil {
		t.Error("expected error for peer-format store id")
	}
}

// ---------------------------------------------------------------------------
// GetMember / AddMember
// ---------------------------------------------------------------------------

func TestGetMember_Found(t *testing.T) {
	repo, mock := newMemberRepo(t)
	mock.ExpectQuery("SELECT.*FROM store_members").
		WithArgs(storeA, "user-1").
		WillReturnRows(sqlmock.NewRows(memberCols).
			AddRow("user-1", storeA, models.RoleOwner, true, time.Now(), time.Now()))

	m, err := repo.GetMember(context.Background(), storeA, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil {
		t.Fatal("expected member, got nil")
	}
	if !m.CanManageStore() {
		t.Error("active owner should be able to manage the store")
	}
}

func TestGetMember_NotFound(t *testing.T) {
	repo, mock := newMemberRepo(t)
	mock.ExpectQuery("SELECT.*FROM store_members").
		WillReturnRows(sqlmock.NewRows(memberCols))

	m, err := repo.GetMember(context.Background(), storeA, "stranger")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Error("expected nil, got non-nil")
	}
}

func TestAddMember_Success(t *testing.T) {
	repo, mock := newMemberRepo(t)
	mock.ExpectExec("INSERT INTO store_members").
		WithArgs("user-2", storeA, models.RoleMember).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.AddMember(context.Background(), storeA, "user-2", models.RoleMember); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAddMember_AlreadyMember(t *testing.T) {
	repo, mock := newMemberRepo(t)
	mock.ExpectExec("INSERT INTO store_members").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.AddMember(context.Background(), storeA, "user-2", models.RoleMember)
	var authErr *tenantauth.Error
	if !errors.As(err, &authErr) || authErr.Code != tenantauth.CodeConflict {
		t.Errorf("expected CONFLICT, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// UpdateMemberRole / SetMemberActive
// ---------------------------------------------------------------------------

func TestUpdateMemberRole_Success(t *testing.T) {
	repo, mock := newMemberRepo(t)
	mock.ExpectExec("UPDATE store_members.*SET role").
		WithArgs(storeA, "user-1", models.RoleAdmin).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateMemberRole(context.Background(), storeA, "user-1", models.RoleAdmin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateMemberRole_NoSuchMember(t *testing.T) {
	repo, mock := newMemberRepo(t)
	mock.ExpectExec("UPDATE store_members.*SET role").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateMemberRole(context.Background(), storeA, "stranger", models.RoleAdmin)
	var authErr *tenantauth.Error
	if !errors.As(err, &authErr) || authErr.Code != tenantauth.CodeStoreNotFound {
		t.Errorf("expected STORE_NOT_FOUND, got %v", err)
	}
}

func TestSetMemberActive_Deactivate(t *testing.T) {
	repo, mock := newMemberRepo(t)
	mock.ExpectExec("UPDATE store_members.*SET is_active").
		WithArgs(storeA, "user-1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetMemberActive(context.Background(), storeA, "user-1", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetMemberActive_NoSuchMember(t *testing.T) {
	repo, mock := newMemberRepo(t)
	mock.ExpectExec("UPDATE store_members.*SET is_active").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetMemberActive(context.Background(), storeA, "stranger", false)
	var authErr *tenantauth.Error
	if !errors.As(err, &authErr) || authErr.Code != tenantauth.CodeStoreNotFound {
		t.Errorf("expected STORE_NOT_FOUND, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// ListMembersWithUsers / ListUserStores
// ---------------------------------------------------------------------------

var memberWithUserCols = []string{
	"user_id", "store_id", "role", "is_active", "created_at",
	"user_email", "display_name",
}

func TestListMembersWithUsers_Success(t *testing.T) {
	repo, mock := newMemberRepo(t)
	mock.ExpectQuery("SELECT.*FROM store_members.*JOIN users").
		WithArgs(storeA).
		WillReturnRows(sqlmock.NewRows(memberWithUserCols).
			AddRow("user-1", storeA, models.RoleOwner, true, time.Now(), "alice@example.com", "Alice"))

	members, err := repo.ListMembersWithUsers(context.Background(), storeA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("len(members) = %d, want 1", len(members))
	}
	if members[0].UserEmail != "alice@example.com" {
		t.Errorf("UserEmail = %q, want alice@example.com", members[0].UserEmail)
	}
}

var userStoreCols = []string{"store_id", "store_name", "subdomain", "role", "created_at"}

func TestListUserStores_Success(t *testing.T) {
	repo, mock := newMemberRepo(t)
	mock.ExpectQuery("SELECT.*FROM store_members.*JOIN tenants").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(userStoreCols).
			AddRow(storeA, "Acme Store", "acme", models.RoleOwner, time.Now()).
			AddRow(storeB, "Beta Store", "beta", models.RoleViewer, time.Now()))

	stores, err := repo.ListUserStores(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stores) != 2 {
		t.Errorf("len(stores) = %d, want 2", len(stores))
	}
}

func TestListUserStores_DBError(t *testing.T) {
	repo, mock := newMemberRepo(t)
	mock.ExpectQuery("SELECT.*FROM store_members.*JOIN tenants").
		WillReturnError(errDB)

	if _, err := repo.ListUserStores(context.Background(), "user-1"); err == nil {
		t.Error("expected error")
	}
}
