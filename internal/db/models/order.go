// Package models - order.go defines the Order model and its status lifecycle.
package models

import "time"

// Order statuses. Transitions are enforced in the repository layer.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

// Order represents a customer order placed against a single store.
type Order struct {
	ID            string    `json:"id"`
	StoreID       string    `json:"store_id"`
	CustomerEmail string    `json:"customer_email"`
	Status        string    `json:"status"`
	TotalCents    int64     `json:"total_cents"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}
