package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user entity in the system
// Maps to the CockroachDB users table
type User struct {
	UserID              uuid.UUID `json:"user_id" db:"user_id"`
	Username            string    `json:"username" db:"username"`
	DisplayName         string    `json:"display_name" db:"display_name"`
	AvatarURL           *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	Status              string    `json:"status" db:"status"` // online, offline
	ReadReceiptsEnabled bool      `json:"read_receipts_enabled" db:"read_receipts_enabled"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// Profile is the public subset of a user attached to outbound events
type Profile struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
}

// Profile converts a User to its public representation
func (u *User) Profile() *Profile {
	return &Profile{
		UserID:      u.UserID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}
