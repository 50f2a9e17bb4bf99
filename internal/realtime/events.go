package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"meshline-backend/internal/domain"
)

// Outbound event types
const (
	EventUserOnlineStatusChanged   = "user_online_status_changed"
	EventRegistered                = "registered"
	EventCallInitiated             = "call_initiated"
	EventIncomingCall              = "incoming_call"
	EventIncomingGroupCall         = "incoming_group_call"
	EventCallAccepted              = "call_accepted"
	EventCallRejected              = "call_rejected"
	EventCallEnded                 = "call_ended"
	EventUserJoinedGroupCall       = "user_joined_group_call"
	EventReceiveCallOffer          = "receive_call_offer"
	EventReceiveCallAnswer         = "receive_call_answer"
	EventReceiveIceCandidate       = "receive_ice_candidate"
	EventMediaStateChanged         = "media_state_changed"
	EventConversationJoined        = "conversation_joined"
	EventConversationLeft          = "conversation_left"
	EventUserJoined                = "user_joined"
	EventUserLeft                  = "user_left"
	EventReceiveMessage            = "receive_message"
	EventMessageScheduled          = "message_scheduled"
	EventMessageEdited             = "message_edited"
	EventMessageDeleted            = "message_deleted"
	EventMessagePinnedStatusChange = "message_pinned_status_changed"
	EventReactionAdded             = "reaction_added"
	EventReactionRemoved           = "reaction_removed"
	EventMessageRead               = "message_read"
	EventUserMentioned             = "user_mentioned"
	EventUserTyping                = "user_typing"
	EventUserStoppedTyping         = "user_stopped_typing"
	EventError                     = "error"
)

// Event is the envelope for every outbound payload
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent wraps a payload in an envelope stamped with the current time
func NewEvent(eventType string, payload any) Event {
	return Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// OnlineStatusPayload announces a presence change
type OnlineStatusPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"` // online, offline
}

// RegisteredPayload acknowledges a successful presence registration
type RegisteredPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

// CallInitiatedPayload acknowledges the caller after a call is set up
type CallInitiatedPayload struct {
	CallID  string `json:"call_id"`
	Status  string `json:"status"` // always "ringing"
	IsGroup bool   `json:"is_group,omitempty"`
}

// IncomingCallPayload rings the receiver of a one-to-one or group call
type IncomingCallPayload struct {
	CallID         string    `json:"call_id"`
	CallerID       uuid.UUID `json:"caller_id"`
	CallerName     string    `json:"caller_name,omitempty"`
	CallerAvatar   *string   `json:"caller_avatar,omitempty"`
	ConversationID uuid.UUID `json:"conversation_id"`
	CallType       string    `json:"call_type"`
	IsGroup        bool      `json:"is_group,omitempty"`
}

// CallLifecyclePayload carries accept/reject/end notifications
type CallLifecyclePayload struct {
	ActorID  uuid.UUID `json:"actor_id"`
	Duration int       `json:"duration,omitempty"` // seconds, end only
}

// GroupCallJoinPayload tells an existing participant to offer toward a newcomer
type GroupCallJoinPayload struct {
	CallID      string    `json:"call_id"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
}

// SignalPayload relays an opaque SDP offer/answer or ICE candidate
type SignalPayload struct {
	SenderID uuid.UUID       `json:"sender_id"`
	Signal   json.RawMessage `json:"signal"`
}

// MediaStatePayload relays a participant's mute/camera state
type MediaStatePayload struct {
	UserID         uuid.UUID `json:"user_id"`
	IsAudioEnabled bool      `json:"is_audio_enabled"`
	IsVideoEnabled bool      `json:"is_video_enabled"`
}

// ConversationPresencePayload announces membership changes inside a conversation
type ConversationPresencePayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Status         string    `json:"status"`
}

// MessageScheduledPayload acknowledges the sender of a deferred message
type MessageScheduledPayload struct {
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	ScheduledAt    time.Time `json:"scheduled_at"`
}

// MessageDeletedPayload announces a removal, live or reconciled
type MessageDeletedPayload struct {
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Reason         string    `json:"reason,omitempty"`
}

// MessagePinnedPayload announces a pin state change
type MessagePinnedPayload struct {
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	IsPinned       bool      `json:"is_pinned"`
}

// ReactionPayload announces an added or removed reaction
type ReactionPayload struct {
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Emoji          string    `json:"emoji"`
}

// MessageReadPayload announces a read receipt
type MessageReadPayload struct {
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
}

// MentionPayload notifies a mentioned user directly
type MentionPayload struct {
	Message *domain.WireMessage `json:"message"`
}

// TypingPayload announces typing state inside a conversation
type TypingPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Username       string    `json:"username,omitempty"`
}

// ErrorPayload reports a failed action back to the invoking connection
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
