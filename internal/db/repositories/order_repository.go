// order_repository.go implements OrderRepository. Like every store-scoped
// repository, all queries carry store_id as their first predicate.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/storekit/storekit-backend/internal/db/models"
	"github.com/storekit/storekit-backend/internal/tenantauth"
)

// OrderRepository handles database operations for customer orders
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// GetByID retrieves an order within a store. An order belonging to a
// different store is reported as not found.
func (r *OrderRepository) GetByID(ctx context.Context, storeID, orderID string) (*models.Order, error) {
	if err := requireStoreID(storeID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, store_id, customer_email, status, total_cents, currency,
		       created_at, updated_at
		FROM orders
		WHERE store_id = $1 AND id = $2
	`

	order := &models.Order{}
	err := r.db.QueryRowContext(ctx, query, storeID, orderID).Scan(
		&order.ID,
		&order.StoreID,
		&order.CustomerEmail,
		&order.Status,
		&order.TotalCents,
		&order.Currency,
		&order.CreatedAt,
		&order.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// Create creates a new order in a store
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := requireStoreID(order.StoreID); err != nil {
		return err
	}
	if !models.ValidOrderStatus(order.Status) {
		return tenantauth.ErrValidation(fmt.Sprintf("invalid order status: %q", order.Status))
	}

	query := `
		INSERT INTO orders (store_id, customer_email, status, total_cents, currency)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		order.StoreID,
		order.CustomerEmail,
		order.Status,
		order.TotalCents,
		order.Currency,
	).Scan(
		&order.ID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// UpdateStatus transitions an order's status within a store. Returns false
// when no order with that id belongs to the store.
func (r *OrderRepository) UpdateStatus(ctx context.Context, storeID, orderID, status string) (bool, error) {
	if err := requireStoreID(storeID); err != nil {
		return false, err
	}
	if !models.ValidOrderStatus(status) {
		return false, tenantauth.ErrValidation(fmt.Sprintf("invalid order status: %q", status))
	}

	query := `
		UPDATE orders
		SET status = $3, updated_at = NOW()
		WHERE store_id = $1 AND id = $2
	`

	result, err := r.db.ExecContext(ctx, query, storeID, orderID, status)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	return rows > 0, nil
}

// List retrieves a paginated list of a store's orders, optionally filtered by
// status ("" means all statuses).
func (r *OrderRepository) List(ctx context.Context, storeID, status string, limit, offset int) ([]*models.Order, error) {
	if err := requireStoreID(storeID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, store_id, customer_email, status, total_cents, currency,
		       created_at, updated_at
		FROM orders
		WHERE store_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, storeID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order := &models.Order{}
		err := rows.Scan(
			&order.ID,
			&order.StoreID,
			&order.CustomerEmail,
			&order.Status,
			&order.TotalCents,
			&order.Currency,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

// Count returns the number of a store's orders matching the status filter
// ("" means all statuses).
func (r *OrderRepository) Count(ctx context.Context, storeID, status string) (int, error) {
	if err := requireStoreID(storeID); err != nil {
		return 0, err
	}

	var count int
	query := `SELECT COUNT(*) FROM orders WHERE store_id = $1 AND ($2 = '' OR status = $2)`
	err := r.db.QueryRowContext(ctx, query, storeID, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return count, nil
}
