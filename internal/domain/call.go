package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallSession is the ephemeral record of a one-to-one call tracked by the
// signaling core. Status here is advisory; the authoritative transition
// history is persisted on a separate path by the call repository.
type CallSession struct {
	CallID         string     `json:"call_id"`
	InitiatorID    uuid.UUID  `json:"initiator_id"`
	ReceiverID     uuid.UUID  `json:"receiver_id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	CallType       string     `json:"call_type"` // audio, video
	Status         string     `json:"status"`    // pending, answered, rejected, missed, completed, ended
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	Duration       int        `json:"duration,omitempty"` // seconds
}

// CallRecord is the persisted call row in CockroachDB, written by the
// authoritative path independently of signaling state.
type CallRecord struct {
	CallID         string     `json:"call_id" db:"call_id"`
	ConversationID uuid.UUID  `json:"conversation_id" db:"conversation_id"`
	CallerID       uuid.UUID  `json:"caller_id" db:"caller_id"`
	CallType       string     `json:"call_type" db:"call_type"`
	Status         string     `json:"status" db:"status"`
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	Duration       int        `json:"duration,omitempty" db:"duration"`
}
