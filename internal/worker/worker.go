// Package worker runs the background reconciliation loops that promote
// scheduled messages and retire self-destructing ones. Both loops share the
// broadcaster's normal fan-out path, so a reconciled event reaches clients
// through the same channel as a live one.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"meshline-backend/internal/domain"
	"meshline-backend/internal/realtime"
)

// ConversationPublisher is the slice of the broadcaster the workers need
type ConversationPublisher interface {
	Broadcast(ctx context.Context, conversationID uuid.UUID, ev realtime.Event)
	RenderMessage(ctx context.Context, msg *domain.Message) *domain.WireMessage
}

// ScheduledStore scans and settles messages with a future release time
type ScheduledStore interface {
	// DueScheduled returns messages whose release time has passed but whose
	// scheduled marker is still set.
	DueScheduled(ctx context.Context, now time.Time) ([]*domain.Message, error)
	// ClearScheduled removes the scheduled marker from released messages.
	ClearScheduled(ctx context.Context, msgs []*domain.Message) error
}

// EphemeralStore scans and settles viewed self-destructing messages
type EphemeralStore interface {
	// ExpiredEphemeral returns viewed self-destructing messages whose
	// expiry has passed and that are not yet deleted.
	ExpiredEphemeral(ctx context.Context, now time.Time) ([]*domain.Message, error)
	// MarkSelfDestructed tombstones the given messages.
	MarkSelfDestructed(ctx context.Context, msgs []*domain.Message) error
}

// runLoop drives a tick function on a fixed interval until the context is
// cancelled. The loop observes shutdown within one interval.
func runLoop(ctx context.Context, interval time.Duration, tick func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}
