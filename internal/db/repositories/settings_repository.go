// settings_repository.go implements SettingsRepository for per-store
// key/value configuration.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/storekit/storekit-backend/internal/db/models"
)

// SettingsRepository handles database operations for store settings
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves a single setting for a store
func (r *SettingsRepository) Get(ctx context.Context, storeID, key string) (*models.StoreSetting, error) {
	if err := requireStoreID(storeID); err != nil {
		return nil, err
	}

	query := `
		SELECT store_id, key, value, updated_at
		FROM store_settings
		WHERE store_id = $1 AND key = $2
	`

	setting := &models.StoreSetting{}
	var value []byte
	err := r.db.QueryRowContext(ctx, query, storeID, key).Scan(
		&setting.StoreID,
		&setting.Key,
		&value,
		&setting.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}

	setting.Value = json.RawMessage(value)
	return setting, nil
}

// Set upserts a setting for a store
func (r *SettingsRepository) Set(ctx context.Context, storeID, key string, value json.RawMessage) error {
	if err := requireStoreID(storeID); err != nil {
		return err
	}

	query := `
		INSERT INTO store_settings (store_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (store_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query, storeID, key, []byte(value))
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}

	return nil
}

// Delete removes a setting from a store. Returns false when the key was not
// present for the store.
func (r *SettingsRepository) Delete(ctx context.Context, storeID, key string) (bool, error) {
	if err := requireStoreID(storeID); err != nil {
		return false, err
	}

	query := `DELETE FROM store_settings WHERE store_id = $1 AND key = $2`
	result, err := r.db.ExecContext(ctx, query, storeID, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete setting: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete setting: %w", err)
	}

	return rows > 0, nil
}

// List retrieves all settings for a store
func (r *SettingsRepository) List(ctx context.Context, storeID string) ([]*models.StoreSetting, error) {
	if err := requireStoreID(storeID); err != nil {
		return nil, err
	}

	query := `
		SELECT store_id, key, value, updated_at
		FROM store_settings
		WHERE store_id = $1
		ORDER BY key
	`

	rows, err := r.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	settings := make([]*models.StoreSetting, 0)
	for rows.Next() {
		setting := &models.StoreSetting{}
		var value []byte
		err := rows.Scan(
			&setting.StoreID,
			&setting.Key,
			&value,
			&setting.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		setting.Value = json.RawMessage(value)
		settings = append(settings, setting)
	}

	return settings, rows.Err()
}
