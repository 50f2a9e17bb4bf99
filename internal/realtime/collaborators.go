package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"

	"meshline-backend/internal/domain"
)

// UserDirectory resolves user profiles and privacy preferences
type UserDirectory interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	ReadReceiptsEnabled(ctx context.Context, userID uuid.UUID) (bool, error)
}

// BlockChecker answers whether a block relationship exists in either direction
type BlockChecker interface {
	IsBlockedEither(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// ConversationStore resolves conversation metadata and membership
type ConversationStore interface {
	Get(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error)
	Participants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
}

// MessageStore owns message persistence. The core only reads and writes the
// subset needed to decide what and when to broadcast; validation and
// canonicalization happen behind this interface.
type MessageStore interface {
	Append(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	Get(ctx context.Context, conversationID, messageID uuid.UUID) (*domain.Message, error)
	SetContent(ctx context.Context, conversationID, messageID uuid.UUID, content string, editedAt time.Time) error
	MarkDeleted(ctx context.Context, conversationID, messageID uuid.UUID) error
	AddReaction(ctx context.Context, conversationID, messageID, userID uuid.UUID, emoji string) error
	RemoveReaction(ctx context.Context, conversationID, messageID, userID uuid.UUID, emoji string) error
	SetPinned(ctx context.Context, conversationID, messageID uuid.UUID, pinned bool) error
	MarkRead(ctx context.Context, conversationID, messageID, userID uuid.UUID) error
}

// PollReader resolves a point-in-time poll snapshot for message rendering
type PollReader interface {
	GetSnapshot(ctx context.Context, pollID uuid.UUID) (*domain.PollSnapshot, error)
}

// MemberDirectory is the service-level record of which user is online in
// which conversation through which connection. It exists alongside the
// in-core broadcast groups and both are kept in step behind the Broadcaster.
type MemberDirectory interface {
	AddMember(ctx context.Context, userID, conversationID uuid.UUID, connID string) error
	RemoveMember(ctx context.Context, userID, conversationID uuid.UUID) error
	// ReleaseConn drops every association held by one closing connection.
	ReleaseConn(ctx context.Context, connID string) error
}

// PresenceMirror reflects registry state into an external store so HTTP
// surfaces can answer presence queries without touching the hub. All calls
// are best-effort. Mirror entries lease-expire, so a connected user's entry
// must be refreshed on the transport's keepalive cadence.
type PresenceMirror interface {
	SetOnline(ctx context.Context, userID uuid.UUID) error
	SetOffline(ctx context.Context, userID uuid.UUID) error
	Refresh(ctx context.Context, userID uuid.UUID) error
}

// CallRecorder persists authoritative call rows on a path separate from
// signaling. Signaling never waits on it and never reads it back.
type CallRecorder interface {
	Create(ctx context.Context, record *domain.CallRecord) error
	UpdateStatus(ctx context.Context, callID, status string) error
	End(ctx context.Context, callID string, duration int) error
}

// EventPublisher forwards conversation events to out-of-process subscribers
// such as the notification dispatcher. Failures are logged, never surfaced.
type EventPublisher interface {
	Publish(ctx context.Context, conversationID uuid.UUID, ev Event) error
}
