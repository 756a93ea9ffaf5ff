// member_repository.go implements MemberRepository, providing database queries
// for store membership: the authorization source of truth for scoped requests.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/storekit/storekit-backend/internal/db/models"
	"github.com/storekit/storekit-backend/internal/tenantauth"
)

// MemberRepository handles database operations for store memberships. It
// satisfies tenantauth.MembershipChecker.
type MemberRepository struct {
	db *sql.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *sql.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// IsActiveMember reports whether the user holds an active membership in the
// store. Both a missing row and an inactive row answer false.
func (r *MemberRepository) IsActiveMember(ctx context.Context, userID, storeID string) (bool, error) {
	if err := requireStoreID(storeID); err != nil {
		return false, err
	}

	query := `
		SELECT is_active
		FROM store_members
		WHERE user_id = $1 AND store_id = $2
	`

	var active bool
	err := r.db.QueryRowContext(ctx, query, userID, storeID).Scan(&active)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check membership: %w", err)
	}

	return active, nil
}

// GetMember retrieves a user's membership in a store
func (r *MemberRepository) GetMember(ctx context.Context, storeID, userID string) (*models.StoreMember, error) {
	if err := requireStoreID(storeID); err != nil {
		return nil, err
	}

	query := `
		SELECT user_id, store_id, role, is_active, created_at, updated_at
		FROM store_members
		WHERE store_id = $1 AND user_id = $2
	`

	member := &models.StoreMember{}
	err := r.db.QueryRowContext(ctx, query, storeID, userID).Scan(
		&member.UserID,
		&member.StoreID,
		&member.Role,
		&member.IsActive,
		&member.CreatedAt,
		&member.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

// AddMember grants a user membership in a store with the given role
func (r *MemberRepository) AddMember(ctx context.Context, storeID, userID, role string) error {
	if err := requireStoreID(storeID); err != nil {
		return err
	}

	query := `
		INSERT INTO store_members (user_id, store_id, role, is_active)
		VALUES ($1, $2, $3, TRUE)
	`

	_, err := r.db.ExecContext(ctx, query, userID, storeID, role)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return tenantauth.ErrConflict("user is already a member of this store")
		}
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

// UpdateMemberRole changes a user's role in a store
func (r *MemberRepository) UpdateMemberRole(ctx context.Context, storeID, userID, role string) error {
	if err := requireStoreID(storeID); err != nil {
		return err
	}

	query := `
		UPDATE store_members
		SET role = $3, updated_at = NOW()
		WHERE store_id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, storeID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}
	if rows == 0 {
		return tenantauth.ErrStoreNotFound()
	}

	return nil
}

// SetMemberActive activates or deactivates a membership. Deactivation revokes
// store access immediately without losing the role assignment.
func (r *MemberRepository) SetMemberActive(ctx context.Context, storeID, userID string, active bool) error {
	if err := requireStoreID(storeID); err != nil {
		return err
	}

	query := `
		UPDATE store_members
		SET is_active = $3, updated_at = NOW()
		WHERE store_id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, storeID, userID, active)
	if err != nil {
		return fmt.Errorf("failed to update member status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update member status: %w", err)
	}
	if rows == 0 {
		return tenantauth.ErrStoreNotFound()
	}

	return nil
}

// ListMembersWithUsers retrieves all members of a store with user details
func (r *MemberRepository) ListMembersWithUsers(ctx context.Context, storeID string) ([]*models.StoreMemberWithUser, error) {
	if err := requireStoreID(storeID); err != nil {
		return nil, err
	}

	query := `
		SELECT sm.user_id, sm.store_id, sm.role, sm.is_active, sm.created_at,
		       COALESCE(u.email, '') as user_email, COALESCE(u.display_name, '') as display_name
		FROM store_members sm
		LEFT JOIN users u ON sm.user_id = u.id
		WHERE sm.store_id = $1
		ORDER BY sm.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]*models.StoreMemberWithUser, 0)
	for rows.Next() {
		member := &models.StoreMemberWithUser{}
		err := rows.Scan(
			&member.UserID,
			&member.StoreID,
			&member.Role,
			&member.IsActive,
			&member.CreatedAt,
			&member.UserEmail,
			&member.DisplayName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

// ListUserStores retrieves all stores a user holds an active membership in
func (r *MemberRepository) ListUserStores(ctx context.Context, userID string) ([]*models.UserStore, error) {
	query := `
		SELECT sm.store_id, COALESCE(t.name, '') as store_name,
		       COALESCE(t.subdomain, '') as subdomain, sm.role, sm.created_at
		FROM store_members sm
		LEFT JOIN tenants t ON sm.store_id = t.id
		WHERE sm.user_id = $1 AND sm.is_active = TRUE
		ORDER BY sm.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user stores: %w", err)
	}
	defer rows.Close()

	stores := make([]*models.UserStore, 0)
	for rows.Next() {
		store := &models.UserStore{}
		err := rows.Scan(
			&store.StoreID,
			&store.StoreName,
			&store.Subdomain,
			&store.Role,
			&store.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user store: %w", err)
		}
		stores = append(stores, store)
	}

	return stores, rows.Err()
}
