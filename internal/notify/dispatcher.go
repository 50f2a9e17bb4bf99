// Package notify turns conversation events into push notifications for
// participants who are not connected. It consumes the same Redis pub/sub
// stream the broadcaster publishes, so it needs no coupling to the hub.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meshline-backend/internal/domain"
	"meshline-backend/internal/realtime"
	redisrepo "meshline-backend/internal/repository/redis"
	"meshline-backend/pkg/metrics"
	"meshline-backend/pkg/push"
)

// ParticipantLister resolves conversation membership
type ParticipantLister interface {
	Participants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
}

// PresenceChecker answers whether a user has a live connection anywhere
type PresenceChecker interface {
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
}

// TokenSource lists a user's registered device tokens and retires the ones
// the provider reports invalid.
type TokenSource interface {
	Tokens(ctx context.Context, userID uuid.UUID) ([]redisrepo.DeviceToken, error)
	Unregister(ctx context.Context, userID uuid.UUID, token string) error
}

// Dispatcher consumes the conversation event stream and pushes new-message
// notifications to offline participants.
type Dispatcher struct {
	publisher    *redisrepo.EventPublisher
	participants ParticipantLister
	presence     PresenceChecker
	tokens       TokenSource
	provider     push.Provider
	metrics      *metrics.Metrics // may be nil
	log          *zap.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(publisher *redisrepo.EventPublisher, participants ParticipantLister, presence PresenceChecker, tokens TokenSource, provider push.Provider, m *metrics.Metrics, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		publisher:    publisher,
		participants: participants,
		presence:     presence,
		tokens:       tokens,
		provider:     provider,
		metrics:      m,
		log:          log,
	}
}

// Run consumes events until the context is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	sub := d.publisher.Subscribe(ctx)
	defer sub.Close()

	d.log.Info("notification dispatcher started", zap.String("provider", d.provider.Name()))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			d.log.Info("notification dispatcher stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				d.log.Warn("notification subscription closed")
				return
			}
			d.handle(ctx, msg.Channel, []byte(msg.Payload))
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, channel string, payload []byte) {
	conversationID, err := redisrepo.ParseChannel(channel)
	if err != nil {
		d.log.Warn("unparseable event channel", zap.String("channel", channel), zap.Error(err))
		return
	}

	var ev realtime.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		d.log.Warn("unparseable event payload", zap.String("channel", channel), zap.Error(err))
		return
	}

	// Only fresh messages warrant a push; presence churn, typing and
	// receipt events do not.
	if ev.Type != realtime.EventReceiveMessage {
		return
	}

	raw, err := json.Marshal(ev.Payload)
	if err != nil {
		return
	}
	var wire domain.WireMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		d.log.Warn("unparseable wire message", zap.Error(err))
		return
	}

	if err := d.notifyOffline(ctx, conversationID, &wire); err != nil {
		d.log.Error("push dispatch failed",
			zap.String("conversation_id", conversationID.String()),
			zap.Error(err))
	}
}

// notifyOffline pushes one message notification to every offline
// participant except the sender.
func (d *Dispatcher) notifyOffline(ctx context.Context, conversationID uuid.UUID, wire *domain.WireMessage) error {
	participants, err := d.participants.Participants(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}

	notification := &push.Notification{
		Title:    wire.SenderName,
		Body:     previewBody(wire),
		Priority: "high",
		Data: map[string]string{
			"conversation_id": conversationID.String(),
			"message_id":      wire.MessageID.String(),
		},
	}

	for _, userID := range participants {
		if userID == wire.SenderID {
			continue
		}

		online, err := d.presence.IsOnline(ctx, userID)
		if err != nil {
			d.log.Warn("presence check failed, skipping push",
				zap.String("user_id", userID.String()),
				zap.Error(err))
			continue
		}
		if online {
			continue
		}

		tokens, err := d.tokens.Tokens(ctx, userID)
		if err != nil {
			d.log.Warn("token lookup failed",
				zap.String("user_id", userID.String()),
				zap.Error(err))
			continue
		}
		if len(tokens) == 0 {
			continue
		}

		targets := make([]string, 0, len(tokens))
		for _, t := range tokens {
			targets = append(targets, t.Token)
		}

		sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		result, err := d.provider.Send(sendCtx, notification, targets)
		cancel()
		if d.metrics != nil {
			d.metrics.RecordPush(d.provider.Name(), err)
		}
		if err != nil {
			d.log.Warn("push send failed",
				zap.String("user_id", userID.String()),
				zap.String("provider", d.provider.Name()),
				zap.Error(err))
			continue
		}

		for _, invalid := range result.InvalidTokens {
			if err := d.tokens.Unregister(ctx, userID, invalid); err != nil {
				d.log.Warn("failed to retire invalid token",
					zap.String("user_id", userID.String()),
					zap.Error(err))
			}
		}

		if result.FailureCount > 0 {
			d.log.Debug("partial push delivery",
				zap.String("user_id", userID.String()),
				zap.Int("success", result.SuccessCount),
				zap.Int("failed", result.FailureCount))
		}
	}

	return nil
}

// previewBody renders the notification body for a message
func previewBody(wire *domain.WireMessage) string {
	switch wire.MessageType {
	case "image":
		return "Sent a photo"
	case "video":
		return "Sent a video"
	case "file":
		return "Sent a file"
	case "poll":
		return "Started a poll"
	default:
		if len(wire.Content) > 120 {
			return wire.Content[:117] + "..."
		}
		return wire.Content
	}
}
