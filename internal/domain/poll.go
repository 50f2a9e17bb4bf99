package domain

import (
	"github.com/google/uuid"
)

// PollSnapshot is the denormalized poll state attached to a wire message.
// It is a point-in-time copy; vote business rules live outside this core.
type PollSnapshot struct {
	PollID   uuid.UUID    `json:"poll_id"`
	Question string       `json:"question"`
	Options  []PollOption `json:"options"`
	IsClosed bool         `json:"is_closed"`
}

// PollOption is one choice of a poll with its current vote count
type PollOption struct {
	OptionID  uuid.UUID `json:"option_id"`
	Text      string    `json:"text"`
	VoteCount int       `json:"vote_count"`
}
