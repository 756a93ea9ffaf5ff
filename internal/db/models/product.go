// Package models - product.go defines the Product model for store catalogs.
package models

import "time"

// Product represents a catalog item belonging to exactly one store.
// Deleted products are soft-deleted (DeletedAt set) so order history keeps
// resolving.
type Product struct {
	ID          string     `json:"id"`
	StoreID     string     `json:"store_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	PriceCents  int64      `json:"price_cents"`
	Currency    string     `json:"currency"`
	Stock       int        `json:"stock"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
