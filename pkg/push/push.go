// Package push sends offline notifications through FCM or APNs.
package push

import (
	"context"
)

// Provider defines the interface for sending push notifications
type Provider interface {
	// Name identifies the provider in logs and metrics
	Name() string
	// Send delivers a notification to a set of device tokens
	Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error)
}

// Notification represents a push notification payload
type Notification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Priority string            `json:"priority,omitempty"` // high, normal
	Sound    string            `json:"sound,omitempty"`
	Category string            `json:"category,omitempty"`
}

// SendResult contains the result of a push notification send operation
type SendResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
	Errors        []error
}

// NoopProvider discards notifications. Used when no push backend is configured.
type NoopProvider struct{}

// Name implements Provider
func (NoopProvider) Name() string { return "noop" }

// Send implements Provider
func (NoopProvider) Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error) {
	return &SendResult{}, nil
}

// maskToken shortens a device token for logging
func maskToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
