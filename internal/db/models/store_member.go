// Package models - store_member.go defines models for user-to-store membership,
// the authorization source of truth for store-scoped requests.
package models

import "time"

// Member roles. Roles gate administrative operations inside a store; access to
// the store at all is gated by the membership row itself being active.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// StoreMember represents a user's membership in a store
type StoreMember struct {
	UserID    string    `json:"user_id"`
	StoreID   string    `json:"store_id"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanManageStore reports whether the member's role allows administrative
// operations such as member management and peer mapping changes.
func (m *StoreMember) CanManageStore() bool {
	return m.IsActive && (m.Role == RoleOwner || m.Role == RoleAdmin)
}

// StoreMemberWithUser includes user details for member listings
type StoreMemberWithUser struct {
	UserID      string    `json:"user_id"`
	StoreID     string    `json:"store_id"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UserEmail   string    `json:"user_email"`
	DisplayName string    `json:"display_name"`
}

// UserStore includes store details for a user's membership, used by the
// "my stores" listing after login.
type UserStore struct {
	StoreID   string    `json:"store_id"`
	StoreName string    `json:"store_name"`
	Subdomain string    `json:"subdomain"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
