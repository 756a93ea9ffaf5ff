// product_repository.go implements ProductRepository. Every query is filtered
// by store_id as its first parameter; lookups that miss within the store
// return nil rather than revealing whether the row exists elsewhere.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/storekit/storekit-backend/internal/db/models"
)

// ProductRepository handles database operations for store catalogs
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID retrieves a product within a store. A product that exists but
// belongs to a different store is reported as not found.
func (r *ProductRepository) GetByID(ctx context.Context, storeID, productID string) (*models.Product, error) {
	if err := requireStoreID(storeID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, store_id, name, description, price_cents, currency, stock,
		       deleted_at, created_at, updated_at
		FROM products
		WHERE store_id = $1 AND id = $2 AND deleted_at IS NULL
	`

	product := &models.Product{}
	err := r.db.QueryRowContext(ctx, query, storeID, productID).Scan(
		&product.ID,
		&product.StoreID,
		&product.Name,
		&product.Description,
		&product.PriceCents,
		&product.Currency,
		&product.Stock,
		&product.DeletedAt,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found (or not this store's)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// Create creates a new product in a store
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := requireStoreID(product.StoreID); err != nil {
		return err
	}

	query := `
		INSERT INTO products (store_id, name, description, price_cents, currency, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		product.StoreID,
		product.Name,
		product.Description,
		product.PriceCents,
		product.Currency,
		product.Stock,
	).Scan(
		&product.ID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates a product within a store. Returns false when no live product
// with that id belongs to the store.
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) (bool, error) {
	if err := requireStoreID(product.StoreID); err != nil {
		return false, err
	}

	query := `
		UPDATE products
		SET name = $3, description = $4, price_cents = $5, currency = $6,
		    stock = $7, updated_at = NOW()
		WHERE store_id = $1 AND id = $2 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		product.StoreID,
		product.ID,
		product.Name,
		product.Description,
		product.PriceCents,
		product.Currency,
		product.Stock,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update product: %w", err)
	}

	return rows > 0, nil
}

// Delete soft-deletes a product within a store. Returns false when no live
// product with that id belongs to the store.
func (r *ProductRepository) Delete(ctx context.Context, storeID, productID string) (bool, error) {
	if err := requireStoreID(storeID); err != nil {
		return false, err
	}

	query := `
		UPDATE products
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE store_id = $1 AND id = $2 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, storeID, productID)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}

	return rows > 0, nil
}

// List retrieves a paginated list of a store's live products
func (r *ProductRepository) List(ctx context.Context, storeID string, limit, offset int) ([]*models.Product, error) {
	if err := requireStoreID(storeID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, store_id, name, description, price_cents, currency, stock,
		       deleted_at, created_at, updated_at
		FROM products
		WHERE store_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, storeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		product := &models.Product{}
		err := rows.Scan(
			&product.ID,
			&product.StoreID,
			&product.Name,
			&product.Description,
			&product.PriceCents,
			&product.Currency,
			&product.Stock,
			&product.DeletedAt,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	return products, rows.Err()
}

// Count returns the number of live products in a store
func (r *ProductRepository) Count(ctx context.Context, storeID string) (int, error) {
	if err := requireStoreID(storeID); err != nil {
		return 0, err
	}

	var count int
	query := `SELECT COUNT(*) FROM products WHERE store_id = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, storeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}

	return count, nil
}
