// Package models - tenant.go defines the Tenant model representing a store in
// the system, including its optional link to an external peer platform store.
package models

import "time"

// Tenant represents a store. PeerStoreID is the identifier of the same store
// on the external peer platform ("store_..." format); it is nil until an
// administrator links the two.
type Tenant struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Subdomain   string     `json:"subdomain"` // URL-safe name (used in storefront subdomains)
	PeerStoreID *string    `json:"peer_store_id"`
	LinkedAt    *time.Time `json:"linked_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsLinked reports whether the store has a peer platform mapping.
func (t *Tenant) IsLinked() bool {
	return t.PeerStoreID != nil && *t.PeerStoreID != ""
}
