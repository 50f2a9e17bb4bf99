package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DeviceToken is one registered push target for a user
type DeviceToken struct {
	Token    string `json:"token"`
	Platform string `json:"platform"` // fcm, apns
}

// PushTokenRepository stores device push tokens in Redis keyed by user
type PushTokenRepository struct {
	client *redis.Client
}

// NewPushTokenRepository creates a new PushTokenRepository
func NewPushTokenRepository(client *redis.Client) *PushTokenRepository {
	return &PushTokenRepository{client: client}
}

func tokensKey(userID uuid.UUID) string {
	return fmt.Sprintf("push:tokens:%s", userID)
}

// Register stores a device token for a user. Re-registering an existing
// token updates its platform.
func (r *PushTokenRepository) Register(ctx context.Context, userID uuid.UUID, token, platform string) error {
	if err := r.client.HSet(ctx, tokensKey(userID), token, platform).Err(); err != nil {
		return fmt.Errorf("failed to register push token: %w", err)
	}
	return nil
}

// Unregister removes a device token, typically after the provider reported
// it invalid.
func (r *PushTokenRepository) Unregister(ctx context.Context, userID uuid.UUID, token string) error {
	if err := r.client.HDel(ctx, tokensKey(userID), token).Err(); err != nil {
		return fmt.Errorf("failed to unregister push token: %w", err)
	}
	return nil
}

// Tokens lists every device token registered for a user
func (r *PushTokenRepository) Tokens(ctx context.Context, userID uuid.UUID) ([]DeviceToken, error) {
	raw, err := r.client.HGetAll(ctx, tokensKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list push tokens: %w", err)
	}

	tokens := make([]DeviceToken, 0, len(raw))
	for token, platform := range raw {
		tokens = append(tokens, DeviceToken{Token: token, Platform: platform})
	}
	return tokens, nil
}
