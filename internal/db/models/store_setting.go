// Package models - store_setting.go defines per-store key/value configuration.
package models

import (
	"encoding/json"
	"time"
)

// StoreSetting is a single configuration entry for a store. Value is arbitrary
// JSON owned by the caller.
type StoreSetting struct {
	StoreID   string          `json:"store_id"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}
