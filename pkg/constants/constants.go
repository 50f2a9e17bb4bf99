// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// DefaultTimeout is the default timeout for most operations
	DefaultTimeout = 30 * time.Second

	// WebSocketPingInterval is the interval for WebSocket ping/pong
	WebSocketPingInterval = 60 * time.Second

	// WebSocketPongWait is how long a connection may stay silent before the
	// read side gives up. Must exceed the ping interval.
	WebSocketPongWait = 75 * time.Second

	// WebSocketWriteTimeout is the per-message write deadline
	WebSocketWriteTimeout = 10 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second
)

// Worker constants
const (
	// ScheduledReleaseInterval is the period of the scheduled message release worker
	ScheduledReleaseInterval = 30 * time.Second

	// SelfDestructSweepInterval is the period of the self-destruct sweeper
	SelfDestructSweepInterval = 5 * time.Second
)

// Presence constants
const (
	// PresenceTTL is how long a presence mirror entry survives without a refresh
	PresenceTTL = 5 * time.Minute

	// StatusOnline indicates a user is currently connected
	StatusOnline = "online"

	// StatusOffline indicates a user has no live connection
	StatusOffline = "offline"
)

// Call-related constants
const (
	// CallStatusPending indicates a call is waiting to be answered
	CallStatusPending = "pending"

	// CallStatusAnswered indicates a call was accepted
	CallStatusAnswered = "answered"

	// CallStatusRejected indicates a call was declined
	CallStatusRejected = "rejected"

	// CallStatusMissed indicates the receiver never answered
	CallStatusMissed = "missed"

	// CallStatusCompleted indicates a call finished normally
	CallStatusCompleted = "completed"

	// CallStatusEnded indicates a call was hung up
	CallStatusEnded = "ended"

	// CallTypeAudio indicates an audio-only call
	CallTypeAudio = "audio"

	// CallTypeVideo indicates a video call
	CallTypeVideo = "video"
)

// Conversation constants
const (
	// ConversationTypeDirect is a two-party conversation
	ConversationTypeDirect = "direct"

	// ConversationTypeGroup is a multi-party conversation
	ConversationTypeGroup = "group"
)

// Message constants
const (
	// MaxMessageLength is the maximum allowed message length
	MaxMessageLength = 10000

	// MessageDeleteReasonSelfDestruct marks deletions produced by the sweeper
	MessageDeleteReasonSelfDestruct = "self_destruct"
)

// Pagination constants
const (
	// DefaultPageSize is the default number of items per page
	DefaultPageSize = 20

	// MaxPageSize is the maximum number of items per page
	MaxPageSize = 100
)
