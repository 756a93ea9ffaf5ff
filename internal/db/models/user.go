// Package models - user.go defines the User model for accounts that sign in to
// the merchant dashboard and API.
package models

import "time"

// User represents an account in the system. A user gains access to stores
// through store_members rows, never directly.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
