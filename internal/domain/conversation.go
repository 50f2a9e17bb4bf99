package domain

import (
	"time"

	"github.com/google/uuid"

	"meshline-backend/pkg/constants"
)

// Conversation represents conversation metadata
// Maps to the CockroachDB conversations table
type Conversation struct {
	ConversationID uuid.UUID `json:"conversation_id" db:"conversation_id"`
	Type           string    `json:"type" db:"type"` // direct, group
	Name           *string   `json:"name,omitempty" db:"name"`
	CreatedBy      uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// IsDirect reports whether the conversation is a two-party conversation
func (c *Conversation) IsDirect() bool {
	return c.Type == constants.ConversationTypeDirect
}

// ConversationParticipant represents a user in a conversation
// Maps to the CockroachDB conversation_participants table
type ConversationParticipant struct {
	ConversationID uuid.UUID `json:"conversation_id" db:"conversation_id"`
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	JoinedAt       time.Time `json:"joined_at" db:"joined_at"`
}
