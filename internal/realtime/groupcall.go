package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meshline-backend/internal/domain"
	"meshline-backend/pkg/errors"
)

// memberSet is a guarded participant set exposing only the two atomic
// operations the tracker needs. The snapshot-then-append in SnapshotAndAdd
// happens under one critical section so a join never misses a concurrent
// joiner and never notifies a member who already left.
type memberSet struct {
	mu      sync.Mutex
	members map[uuid.UUID]struct{}
}

func newMemberSet(seed ...uuid.UUID) *memberSet {
	s := &memberSet{members: make(map[uuid.UUID]struct{}, len(seed))}
	for _, id := range seed {
		s.members[id] = struct{}{}
	}
	return s
}

// SnapshotAndAdd returns the members present before the add, then inserts
// the joining user. The returned slice excludes the joiner even if they
// were already present.
func (s *memberSet) SnapshotAndAdd(userID uuid.UUID) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]uuid.UUID, 0, len(s.members))
	for id := range s.members {
		if id != userID {
			snapshot = append(snapshot, id)
		}
	}
	s.members[userID] = struct{}{}
	return snapshot
}

// RemoveIfPresent deletes the user from the set, reporting whether it was there
func (s *memberSet) RemoveIfPresent(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[userID]; !ok {
		return false
	}
	delete(s.members, userID)
	return true
}

// Snapshot returns the current members
func (s *memberSet) Snapshot() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]uuid.UUID, 0, len(s.members))
	for id := range s.members {
		out = append(out, id)
	}
	return out
}

// GroupCallTracker tracks participant sets for mesh group calls and
// orchestrates newcomer introduction. Entries are never removed, only
// pruned of disconnecting users.
type GroupCallTracker struct {
	presence *PresenceRegistry
	users    UserDirectory

	mu    sync.RWMutex
	calls map[string]*memberSet

	log *zap.Logger
}

// NewGroupCallTracker creates an empty tracker
func NewGroupCallTracker(presence *PresenceRegistry, users UserDirectory, log *zap.Logger) *GroupCallTracker {
	return &GroupCallTracker{
		presence: presence,
		users:    users,
		calls:    make(map[string]*memberSet),
		log:      log,
	}
}

// newGroupCallID derives a group call id from the conversation and the
// current time, matching the one-to-one generator's uniqueness caveat.
func newGroupCallID(conversationID uuid.UUID) string {
	return fmt.Sprintf("group_call_%s_%d", conversationID, time.Now().Unix())
}

// InitiateGroupCall seeds membership with the initiator and rings every
// currently-online target. There is no cap on participants: signaling is
// O(n) per join and the resulting mesh is O(n²) connections.
func (t *GroupCallTracker) InitiateGroupCall(ctx context.Context, caller Conn, initiatorID, conversationID uuid.UUID, callType string, memberIDs []uuid.UUID) (string, error) {
	if !validCallType(callType) {
		return "", errors.InvalidInputError(fmt.Sprintf("unknown call type %q", callType))
	}

	callID := newGroupCallID(conversationID)

	t.mu.Lock()
	t.calls[callID] = newMemberSet(initiatorID)
	t.mu.Unlock()

	profile := t.profileOrEmpty(ctx, initiatorID)

	for _, memberID := range memberIDs {
		if memberID == initiatorID {
			continue
		}
		memberConn, online := t.presence.Lookup(memberID)
		if !online {
			continue
		}
		ev := NewEvent(EventIncomingGroupCall, IncomingCallPayload{
			CallID:         callID,
			CallerID:       initiatorID,
			CallerName:     profile.DisplayName,
			CallerAvatar:   profile.AvatarURL,
			ConversationID: conversationID,
			CallType:       callType,
			IsGroup:        true,
		})
		if err := memberConn.Send(ev); err != nil {
			t.log.Warn("failed to ring group call member",
				zap.String("call_id", callID),
				zap.String("member_id", memberID.String()),
				zap.Error(err))
		}
	}

	ack := NewEvent(EventCallInitiated, CallInitiatedPayload{
		CallID:  callID,
		Status:  "ringing",
		IsGroup: true,
	})
	if err := caller.Send(ack); err != nil {
		t.log.Warn("failed to acknowledge group call initiator",
			zap.String("call_id", callID),
			zap.Error(err))
	}

	return callID, nil
}

// JoinGroupCall appends the joining user to the call's membership and tells
// every pre-existing member to initiate a fresh offer toward the newcomer
// (star-of-offers join: the newcomer receives one offer per existing peer).
// An unknown call id is recreated lazily with only the joiner; this is
// best-effort recovery after a restart, not a true rejoin.
func (t *GroupCallTracker) JoinGroupCall(ctx context.Context, joinerID, conversationID uuid.UUID, callID string) {
	t.mu.RLock()
	set, ok := t.calls[callID]
	t.mu.RUnlock()

	if !ok {
		t.mu.Lock()
		set, ok = t.calls[callID]
		if !ok {
			set = newMemberSet()
			t.calls[callID] = set
			t.log.Info("group call membership recreated on join",
				zap.String("call_id", callID),
				zap.String("conversation_id", conversationID.String()),
				zap.String("user_id", joinerID.String()))
		}
		t.mu.Unlock()
	}

	snapshot := set.SnapshotAndAdd(joinerID)

	profile := t.profileOrEmpty(ctx, joinerID)
	ev := NewEvent(EventUserJoinedGroupCall, GroupCallJoinPayload{
		CallID:      callID,
		UserID:      joinerID,
		DisplayName: profile.DisplayName,
	})

	// Fan-out to the snapshot happens outside the membership lock.
	for _, memberID := range snapshot {
		memberConn, online := t.presence.Lookup(memberID)
		if !online {
			continue
		}
		if err := memberConn.Send(ev); err != nil {
			t.log.Warn("failed to notify group call member of join",
				zap.String("call_id", callID),
				zap.String("member_id", memberID.String()),
				zap.Error(err))
		}
	}
}

// Members returns the current participant set of a call
func (t *GroupCallTracker) Members(callID string) ([]uuid.UUID, bool) {
	t.mu.RLock()
	set, ok := t.calls[callID]
	t.mu.RUnlock()

	if !ok {
		return nil, false
	}
	return set.Snapshot(), true
}

// RemoveUser prunes a disconnecting user from every tracked call
func (t *GroupCallTracker) RemoveUser(userID uuid.UUID) {
	t.mu.RLock()
	tracked := make(map[string]*memberSet, len(t.calls))
	for callID, set := range t.calls {
		tracked[callID] = set
	}
	t.mu.RUnlock()

	for callID, set := range tracked {
		if set.RemoveIfPresent(userID) {
			t.log.Info("removed user from group call",
				zap.String("call_id", callID),
				zap.String("user_id", userID.String()))
		}
	}
}

func (t *GroupCallTracker) profileOrEmpty(ctx context.Context, userID uuid.UUID) *domain.Profile {
	profile, err := t.users.GetProfile(ctx, userID)
	if err != nil {
		t.log.Warn("profile lookup failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return &domain.Profile{UserID: userID}
	}
	return profile
}
