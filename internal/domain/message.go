package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a chat message entity
// Maps to the Cassandra messages table
type Message struct {
	MessageID        uuid.UUID   `json:"message_id" cql:"message_id"`
	ConversationID   uuid.UUID   `json:"conversation_id" cql:"conversation_id"`
	SenderID         uuid.UUID   `json:"sender_id" cql:"sender_id"`
	Content          string      `json:"content" cql:"content"`
	MessageType      string      `json:"message_type" cql:"message_type"` // text, image, video, file, poll
	ParentMessageID  *uuid.UUID  `json:"parent_message_id,omitempty" cql:"parent_message_id"`
	PollID           *uuid.UUID  `json:"poll_id,omitempty" cql:"poll_id"`
	MentionedUserIDs []uuid.UUID `json:"mentioned_user_ids,omitempty" cql:"mentioned_user_ids"`

	// Deferred-state fields. ScheduledAt hides the message from other
	// subscribers until cleared; ExpiresAt is computed from ViewedAt plus
	// SelfDestructAfterSeconds once the message is first viewed.
	ScheduledAt              *time.Time `json:"scheduled_at,omitempty" cql:"scheduled_at"`
	SelfDestructAfterSeconds *int       `json:"self_destruct_after_seconds,omitempty" cql:"self_destruct_after_seconds"`
	ViewedAt                 *time.Time `json:"viewed_at,omitempty" cql:"viewed_at"`
	ExpiresAt                *time.Time `json:"expires_at,omitempty" cql:"expires_at"`

	IsDeleted bool       `json:"is_deleted" cql:"is_deleted"`
	IsPinned  bool       `json:"is_pinned" cql:"is_pinned"`
	EditedAt  *time.Time `json:"edited_at,omitempty" cql:"edited_at"`
	CreatedAt time.Time  `json:"created_at" cql:"created_at"`
}

// IsScheduledAfter reports whether the message is still scheduled for a
// future release relative to now
func (m *Message) IsScheduledAfter(now time.Time) bool {
	return m.ScheduledAt != nil && m.ScheduledAt.After(now)
}

// MessageCreate represents data needed to send a message
type MessageCreate struct {
	ConversationID           uuid.UUID   `json:"conversation_id" binding:"required"`
	SenderID                 uuid.UUID   `json:"sender_id"`
	Content                  string      `json:"content" binding:"required"`
	MessageType              string      `json:"message_type" binding:"required,oneof=text image video file poll"`
	ParentMessageID          *uuid.UUID  `json:"parent_message_id,omitempty"`
	ScheduledAt              *time.Time  `json:"scheduled_at,omitempty"`
	MentionedUserIDs         []uuid.UUID `json:"mentioned_user_ids,omitempty"`
	SelfDestructAfterSeconds *int        `json:"self_destruct_after_seconds,omitempty"`
}

// ParentPreview is the nested preview of a replied-to message
type ParentPreview struct {
	MessageID  uuid.UUID `json:"message_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
}

// WireMessage is the denormalized message representation broadcast to
// conversation subscribers. Sender name and avatar are snapshots taken at
// render time, not live references.
type WireMessage struct {
	MessageID        uuid.UUID      `json:"message_id"`
	ConversationID   uuid.UUID      `json:"conversation_id"`
	SenderID         uuid.UUID      `json:"sender_id"`
	SenderName       string         `json:"sender_name,omitempty"`
	SenderAvatar     *string        `json:"sender_avatar,omitempty"`
	Content          string         `json:"content"`
	MessageType      string         `json:"message_type"`
	Parent           *ParentPreview `json:"parent,omitempty"`
	Poll             *PollSnapshot  `json:"poll,omitempty"`
	MentionedUserIDs []uuid.UUID    `json:"mentioned_user_ids,omitempty"`
	IsPinned         bool           `json:"is_pinned"`
	EditedAt         *time.Time     `json:"edited_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}
