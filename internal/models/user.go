package models

import (
	"time"
)

// User is a local account. Only the id is shared with the journal side;
// entries reference it as an opaque string.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`

	// Internal only - never returned in JSON
	PasswordHash string `json:"-"`
}
