package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meshline-backend/internal/domain"
	"meshline-backend/pkg/constants"
	"meshline-backend/pkg/errors"
)

// CallManager tracks one-to-one call sessions and relays lifecycle events
// between the two parties. Status transitions are mirrored to the
// CallRecorder best-effort; relay delivery never waits on the store.
// Sessions are never removed from the table.
type CallManager struct {
	presence *PresenceRegistry
	users    UserDirectory
	blocks   BlockChecker
	recorder CallRecorder // may be nil

	mu       sync.RWMutex
	sessions map[string]*domain.CallSession

	log *zap.Logger
}

// NewCallManager creates a call manager. recorder may be nil when no
// authoritative store is attached.
func NewCallManager(presence *PresenceRegistry, users UserDirectory, blocks BlockChecker, recorder CallRecorder, log *zap.Logger) *CallManager {
	return &CallManager{
		presence: presence,
		users:    users,
		blocks:   blocks,
		recorder: recorder,
		sessions: make(map[string]*domain.CallSession),
		log:      log,
	}
}

// newCallID derives a call id from a high-resolution timestamp. Uniqueness
// under concurrent initiation is assumed, not proven.
func newCallID() string {
	return fmt.Sprintf("call_%d", time.Now().UnixNano())
}

func validCallType(callType string) bool {
	return callType == constants.CallTypeAudio || callType == constants.CallTypeVideo
}

// InitiateCall validates and sets up a one-to-one call. On success the
// receiver gets IncomingCall and the caller is acknowledged with
// CallInitiated{status:"ringing"}. Soft failures (unknown type, block
// relationship, offline receiver) create no session.
func (m *CallManager) InitiateCall(ctx context.Context, caller Conn, initiatorID, receiverID, conversationID uuid.UUID, callType string) (string, error) {
	if !validCallType(callType) {
		return "", errors.InvalidInputError(fmt.Sprintf("unknown call type %q", callType))
	}

	blocked, err := m.blocks.IsBlockedEither(ctx, initiatorID, receiverID)
	if err != nil {
		return "", errors.DatabaseError(err)
	}
	if blocked {
		return "", errors.BlockedError()
	}

	receiverConn, online := m.presence.Lookup(receiverID)
	if !online {
		return "", errors.ReceiverOfflineError()
	}

	callID := newCallID()
	session := &domain.CallSession{
		CallID:         callID,
		InitiatorID:    initiatorID,
		ReceiverID:     receiverID,
		ConversationID: conversationID,
		CallType:       callType,
		Status:         constants.CallStatusPending,
		StartedAt:      time.Now(),
	}

	m.mu.Lock()
	m.sessions[callID] = session
	m.mu.Unlock()

	if m.recorder != nil {
		record := &domain.CallRecord{
			CallID:         callID,
			ConversationID: conversationID,
			CallerID:       initiatorID,
			CallType:       callType,
			Status:         constants.CallStatusPending,
			StartedAt:      session.StartedAt,
		}
		if err := m.recorder.Create(ctx, record); err != nil {
			m.log.Warn("failed to persist call record",
				zap.String("call_id", callID),
				zap.Error(err))
		}
	}

	profile := m.profileOrEmpty(ctx, initiatorID)

	incoming := NewEvent(EventIncomingCall, IncomingCallPayload{
		CallID:         callID,
		CallerID:       initiatorID,
		CallerName:     profile.DisplayName,
		CallerAvatar:   profile.AvatarURL,
		ConversationID: conversationID,
		CallType:       callType,
	})
	if err := receiverConn.Send(incoming); err != nil {
		m.log.Warn("failed to ring receiver",
			zap.String("call_id", callID),
			zap.String("receiver_id", receiverID.String()),
			zap.Error(err))
	}

	ack := NewEvent(EventCallInitiated, CallInitiatedPayload{
		CallID: callID,
		Status: "ringing",
	})
	if err := caller.Send(ack); err != nil {
		m.log.Warn("failed to acknowledge caller",
			zap.String("call_id", callID),
			zap.Error(err))
	}

	return callID, nil
}

// AcceptCall relays acceptance to the original caller and settles the
// pending session as answered. If the caller has gone offline the relay is
// a silent no-op and the session stays pending for EndCall to close.
func (m *CallManager) AcceptCall(ctx context.Context, accepterID, callerID uuid.UUID) {
	callerConn, ok := m.presence.Lookup(callerID)
	if !ok {
		m.log.Debug("accept ignored, caller offline",
			zap.String("caller_id", callerID.String()))
		return
	}

	ev := NewEvent(EventCallAccepted, CallLifecyclePayload{ActorID: accepterID})
	if err := callerConn.Send(ev); err != nil {
		m.log.Warn("failed to relay call acceptance",
			zap.String("caller_id", callerID.String()),
			zap.Error(err))
	}

	m.settleSession(ctx, accepterID, callerID, constants.CallStatusAnswered)
}

// RejectCall relays rejection to the original caller and settles the
// pending session as rejected; the relay is a no-op when the caller is
// offline.
func (m *CallManager) RejectCall(ctx context.Context, rejecterID, callerID uuid.UUID) {
	callerConn, ok := m.presence.Lookup(callerID)
	if !ok {
		m.log.Debug("reject ignored, caller offline",
			zap.String("caller_id", callerID.String()))
		return
	}

	ev := NewEvent(EventCallRejected, CallLifecyclePayload{ActorID: rejecterID})
	if err := callerConn.Send(ev); err != nil {
		m.log.Warn("failed to relay call rejection",
			zap.String("caller_id", callerID.String()),
			zap.Error(err))
	}

	m.settleSession(ctx, rejecterID, callerID, constants.CallStatusRejected)
}

// settleSession moves the pending session between the two parties to an
// answer state and persists the transition best-effort. Only pending
// sessions settle; a session already answered or ended is left alone.
func (m *CallManager) settleSession(ctx context.Context, a, b uuid.UUID, status string) {
	m.mu.Lock()
	var settled *domain.CallSession
	for _, s := range m.sessions {
		if s.Status != constants.CallStatusPending {
			continue
		}
		if (s.InitiatorID == a && s.ReceiverID == b) || (s.InitiatorID == b && s.ReceiverID == a) {
			s.Status = status
			settled = s
			break
		}
	}
	m.mu.Unlock()

	if settled == nil || m.recorder == nil {
		return
	}
	if err := m.recorder.UpdateStatus(ctx, settled.CallID, status); err != nil {
		m.log.Warn("failed to persist call transition",
			zap.String("call_id", settled.CallID),
			zap.String("status", status),
			zap.Error(err))
	}
}

// EndCall relays a hang-up to the other party and echoes the same event to
// the ender's own connection so multiple devices of the same user stay in
// step. The matching session, if still pending or answered, is closed with
// the reported duration.
func (m *CallManager) EndCall(ctx context.Context, ender Conn, enderID, recipientID uuid.UUID, durationSeconds int) {
	ev := NewEvent(EventCallEnded, CallLifecyclePayload{
		ActorID:  enderID,
		Duration: durationSeconds,
	})

	if recipientConn, ok := m.presence.Lookup(recipientID); ok {
		if err := recipientConn.Send(ev); err != nil {
			m.log.Warn("failed to relay call end",
				zap.String("recipient_id", recipientID.String()),
				zap.Error(err))
		}
	}
	if err := ender.Send(ev); err != nil {
		m.log.Debug("failed to echo call end",
			zap.String("ender_id", enderID.String()),
			zap.Error(err))
	}

	m.closeSession(ctx, enderID, recipientID, durationSeconds)
}

// closeSession finds the live session between the two parties, marks it
// ended and persists the close best-effort.
func (m *CallManager) closeSession(ctx context.Context, a, b uuid.UUID, durationSeconds int) {
	now := time.Now()

	m.mu.Lock()
	var ended *domain.CallSession
	for _, s := range m.sessions {
		if s.EndedAt != nil {
			continue
		}
		if (s.InitiatorID == a && s.ReceiverID == b) || (s.InitiatorID == b && s.ReceiverID == a) {
			s.Status = constants.CallStatusEnded
			s.EndedAt = &now
			s.Duration = durationSeconds
			ended = s
			break
		}
	}
	m.mu.Unlock()

	if ended == nil || m.recorder == nil {
		return
	}
	if err := m.recorder.End(ctx, ended.CallID, durationSeconds); err != nil {
		m.log.Warn("failed to persist call end",
			zap.String("call_id", ended.CallID),
			zap.Error(err))
	}
}

// UpdateMediaState relays mute/camera changes best-effort. Nothing is
// stored and an offline recipient is a silent no-op.
func (m *CallManager) UpdateMediaState(ctx context.Context, senderID, recipientID uuid.UUID, audioEnabled, videoEnabled bool) {
	recipientConn, ok := m.presence.Lookup(recipientID)
	if !ok {
		return
	}

	ev := NewEvent(EventMediaStateChanged, MediaStatePayload{
		UserID:         senderID,
		IsAudioEnabled: audioEnabled,
		IsVideoEnabled: videoEnabled,
	})
	if err := recipientConn.Send(ev); err != nil {
		m.log.Debug("failed to relay media state",
			zap.String("recipient_id", recipientID.String()),
			zap.Error(err))
	}
}

// GetCallInfo returns a copy of the tracked session for a call id
func (m *CallManager) GetCallInfo(callID string) (*domain.CallSession, error) {
	m.mu.RLock()
	session, ok := m.sessions[callID]
	m.mu.RUnlock()

	if !ok {
		return nil, errors.CallNotFoundError()
	}

	copied := *session
	return &copied, nil
}

func (m *CallManager) profileOrEmpty(ctx context.Context, userID uuid.UUID) *domain.Profile {
	profile, err := m.users.GetProfile(ctx, userID)
	if err != nil {
		m.log.Warn("caller profile lookup failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return &domain.Profile{UserID: userID}
	}
	return profile
}
