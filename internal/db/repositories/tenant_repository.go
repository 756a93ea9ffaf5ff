// tenant_repository.go implements TenantRepository, providing database queries
// for store CRUD and the bidirectional peer store mapping.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/storekit/storekit-backend/internal/db/models"
	"github.com/storekit/storekit-backend/internal/scopeid"
	"github.com/storekit/storekit-backend/internal/tenantauth"
)

// TenantRepository handles database operations for stores and their peer
// platform mappings. It satisfies tenantauth.MappingResolver.
type TenantRepository struct {
	db *sql.DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *sql.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// requireStoreID rejects anything that is not a canonical store UUID before it
// can reach query construction. Callers upstream already validate, but every
// query path re-checks so no repository method can be reached with a raw
// header value. The error carries VALIDATION_ERROR so a caller that skipped
// the guard still answers 400, never 500.
func requireStoreID(storeID string) error {
	if !scopeid.IsUUID(storeID) {
		return tenantauth.ErrValidation(fmt.Sprintf("invalid store id: %q", storeID))
	}
	return nil
}

// GetByID retrieves a store by its UUID
func (r *TenantRepository) GetByID(ctx context.Context, storeID string) (*models.Tenant, error) {
	if err := requireStoreID(storeID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, subdomain, peer_store_id, linked_at, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`

	tenant := &models.Tenant{}
	err := r.db.QueryRowContext(ctx, query, storeID).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Subdomain,
		&tenant.PeerStoreID,
		&tenant.LinkedAt,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	return tenant, nil
}

// GetBySubdomain retrieves a store by its subdomain
func (r *TenantRepository) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	query := `
		SELECT id, name, subdomain, peer_store_id, linked_at, created_at, updated_at
		FROM tenants
		WHERE subdomain = $1
	`

	tenant := &models.Tenant{}
	err := r.db.QueryRowContext(ctx, query, subdomain).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Subdomain,
		&tenant.PeerStoreID,
		&tenant.LinkedAt,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	return tenant, nil
}

// Create creates a new store
func (r *TenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (name, subdomain)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, tenant.Name, tenant.Subdomain).Scan(
		&tenant.ID,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return tenantauth.ErrConflict("subdomain is already taken")
		}
		return fmt.Errorf("failed to create store: %w", err)
	}

	return nil
}

// Update updates a store's name
func (r *TenantRepository) Update(ctx context.Context, tenant *models.Tenant) error {
	if err := requireStoreID(tenant.ID); err != nil {
		return err
	}

	query := `
		UPDATE tenants
		SET name = $2, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, tenant.ID, tenant.Name)
	if err != nil {
		return fmt.Errorf("failed to update store: %w", err)
	}

	return nil
}

// === Peer Mapping Operations ===

// PeerIDByStoreID returns the peer store id linked to a store, or "" when the
// store exists but has no peer link.
func (r *TenantRepository) PeerIDByStoreID(ctx context.Context, storeID string) (string, error) {
	if err := requireStoreID(storeID); err != nil {
		return "", err
	}

	query := `SELECT peer_store_id FROM tenants WHERE id = $1`

	var peerID sql.NullString
	err := r.db.QueryRowContext(ctx, query, storeID).Scan(&peerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil // Unknown store: indistinguishable from unlinked
		}
		return "", fmt.Errorf("failed to get peer mapping: %w", err)
	}

	if !peerID.Valid {
		return "", nil
	}
	return peerID.String, nil
}

// StoreIDByPeerID returns the store UUID a peer store id is linked to, or ""
// when no store is linked to it.
func (r *TenantRepository) StoreIDByPeerID(ctx context.Context, peerID string) (string, error) {
	query := `SELECT id FROM tenants WHERE peer_store_id = $1`

	var storeID string
	err := r.db.QueryRowContext(ctx, query, peerID).Scan(&storeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get reverse peer mapping: %w", err)
	}

	return storeID, nil
}

// CreateMapping links a store to a peer store id. Re-linking a store to the
// peer id it already has is a no-op; linking it to a peer id held by another
// store fails with CONFLICT via the partial unique index on peer_store_id.
func (r *TenantRepository) CreateMapping(ctx context.Context, storeID, peerID string) error {
	if err := requireStoreID(storeID); err != nil {
		return err
	}
	if !scopeid.IsPeerID(peerID) {
		return tenantauth.ErrValidation("peer_store_id must be in store_... format")
	}

	query := `
		UPDATE tenants
		SET peer_store_id = $2, linked_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND (peer_store_id IS NULL OR peer_store_id = $2)
	`

	result, err := r.db.ExecContext(ctx, query, storeID, peerID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return tenantauth.ErrConflict("peer store id is already linked to another store")
		}
		return fmt.Errorf("failed to create peer mapping: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create peer mapping: %w", err)
	}
	if rows == 0 {
		// Either the store does not exist or it is already linked to a
		// different peer id. Disambiguate for the caller.
		tenant, err := r.GetByID(ctx, storeID)
		if err != nil {
			return err
		}
		if tenant == nil {
			return tenantauth.ErrStoreNotFound()
		}
		return tenantauth.ErrConflict("store is already linked to a different peer store id")
	}

	return nil
}

// RemoveMapping unlinks a store from its peer store id. Removing a mapping
// that does not exist is a no-op.
func (r *TenantRepository) RemoveMapping(ctx context.Context, storeID string) error {
	if err := requireStoreID(storeID); err != nil {
		return err
	}

	query := `
		UPDATE tenants
		SET peer_store_id = NULL, linked_at = NULL, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, storeID)
	if err != nil {
		return fmt.Errorf("failed to remove peer mapping: %w", err)
	}

	return nil
}

// List retrieves a paginated list of stores
func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	query := `
		SELECT id, name, subdomain, peer_store_id, linked_at, created_at, updated_at
		FROM tenants
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	tenants := make([]*models.Tenant, 0)
	for rows.Next() {
		tenant := &models.Tenant{}
		err := rows.Scan(
			&tenant.ID,
			&tenant.Name,
			&tenant.Subdomain,
			&tenant.PeerStoreID,
			&tenant.LinkedAt,
			&tenant.CreatedAt,
			&tenant.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		tenants = append(tenants, tenant)
	}

	return tenants, rows.Err()
}

// Count returns the total number of stores
func (r *TenantRepository) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tenants`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count stores: %w", err)
	}

	return count, nil
}
