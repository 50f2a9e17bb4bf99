package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"meshline-backend/internal/realtime"
)

// conversationChannelPrefix namespaces per-conversation pub/sub channels
const conversationChannelPrefix = "conv:"

// EventPublisher bridges conversation events onto Redis pub/sub so
// out-of-process consumers, the notification dispatcher in particular, see
// the same stream the connected clients do.
type EventPublisher struct {
	client *redis.Client
}

// NewEventPublisher creates a new EventPublisher
func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// ConversationChannel returns the pub/sub channel name for a conversation
func ConversationChannel(conversationID uuid.UUID) string {
	return conversationChannelPrefix + conversationID.String()
}

// Publish forwards one event onto the conversation's channel
func (p *EventPublisher) Publish(ctx context.Context, conversationID uuid.UUID, ev realtime.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, ConversationChannel(conversationID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe opens a pattern subscription over every conversation channel.
// The caller owns the returned subscription and must close it.
func (p *EventPublisher) Subscribe(ctx context.Context) *redis.PubSub {
	return p.client.PSubscribe(ctx, conversationChannelPrefix+"*")
}

// ParseChannel extracts the conversation ID from a channel name
func ParseChannel(channel string) (uuid.UUID, error) {
	if len(channel) <= len(conversationChannelPrefix) {
		return uuid.Nil, fmt.Errorf("malformed conversation channel: %s", channel)
	}
	return uuid.Parse(channel[len(conversationChannelPrefix):])
}
