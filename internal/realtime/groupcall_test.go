package realtime

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"meshline-backend/internal/domain"
	"meshline-backend/pkg/constants"
	"meshline-backend/pkg/errors"
)

type groupCallFixture struct {
	registry *PresenceRegistry
	users    *MockUserDirectory
	tracker  *GroupCallTracker
}

func newGroupCallFixture() *groupCallFixture {
	f := &groupCallFixture{
		registry: NewPresenceRegistry(zap.NewNop()),
		users:    new(MockUserDirectory),
	}
	f.tracker = NewGroupCallTracker(f.registry, f.users, zap.NewNop())
	return f
}

func TestGroupCallTracker_InitiateRingsOnlineMembers(t *testing.T) {
	f := newGroupCallFixture()
	initiatorID := uuid.New()
	onlineID := uuid.New()
	offlineID := uuid.New()
	conversationID := uuid.New()
	initiatorConn := newFakeConn()
	onlineConn := newFakeConn()
	f.registry.Register(initiatorID, initiatorConn)
	f.registry.Register(onlineID, onlineConn)

	f.users.On("GetProfile", mock.Anything, initiatorID).Return(&domain.Profile{
		UserID:      initiatorID,
		DisplayName: "Bob",
	}, nil)

	callID, err := f.tracker.InitiateGroupCall(context.Background(), initiatorConn, initiatorID, conversationID,
		constants.CallTypeVideo, []uuid.UUID{initiatorID, onlineID, offlineID})

	assert.NoError(t, err)
	assert.NotEmpty(t, callID)

	rings := onlineConn.eventsOfType(EventIncomingGroupCall)
	assert.Len(t, rings, 1)
	payload := rings[0].Payload.(IncomingCallPayload)
	assert.Equal(t, callID, payload.CallID)
	assert.Equal(t, initiatorID, payload.CallerID)
	assert.Equal(t, "Bob", payload.CallerName)
	assert.True(t, payload.IsGroup)

	// The initiator is acked, not rung.
	assert.Empty(t, initiatorConn.eventsOfType(EventIncomingGroupCall))
	acks := initiatorConn.eventsOfType(EventCallInitiated)
	assert.Len(t, acks, 1)
	ack := acks[0].Payload.(CallInitiatedPayload)
	assert.Equal(t, "ringing", ack.Status)
	assert.True(t, ack.IsGroup)

	members, ok := f.tracker.Members(callID)
	assert.True(t, ok)
	assert.Equal(t, []uuid.UUID{initiatorID}, members)
}

func TestGroupCallTracker_InitiateInvalidType(t *testing.T) {
	f := newGroupCallFixture()

	callID, err := f.tracker.InitiateGroupCall(context.Background(), newFakeConn(), uuid.New(), uuid.New(), "screen", nil)

	assert.Empty(t, callID)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetAppError(err).Code)
}

func TestGroupCallTracker_JoinNotifiesExistingMembers(t *testing.T) {
	f := newGroupCallFixture()
	initiatorID := uuid.New()
	secondID := uuid.New()
	thirdID := uuid.New()
	conversationID := uuid.New()
	initiatorConn := newFakeConn()
	secondConn := newFakeConn()
	thirdConn := newFakeConn()
	f.registry.Register(initiatorID, initiatorConn)
	f.registry.Register(secondID, secondConn)
	f.registry.Register(thirdID, thirdConn)

	f.users.On("GetProfile", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(&domain.Profile{}, nil)

	callID, err := f.tracker.InitiateGroupCall(context.Background(), initiatorConn, initiatorID, conversationID,
		constants.CallTypeAudio, []uuid.UUID{secondID, thirdID})
	assert.NoError(t, err)

	f.tracker.JoinGroupCall(context.Background(), secondID, conversationID, callID)

	// Only the pre-existing member is told to offer toward the newcomer.
	assert.Equal(t, 1, initiatorConn.countOfType(EventUserJoinedGroupCall))
	assert.Equal(t, 0, secondConn.countOfType(EventUserJoinedGroupCall))

	f.tracker.JoinGroupCall(context.Background(), thirdID, conversationID, callID)

	// Both earlier members now offer toward the third; the third gets nothing.
	assert.Equal(t, 2, initiatorConn.countOfType(EventUserJoinedGroupCall))
	assert.Equal(t, 1, secondConn.countOfType(EventUserJoinedGroupCall))
	assert.Equal(t, 0, thirdConn.countOfType(EventUserJoinedGroupCall))

	joins := secondConn.eventsOfType(EventUserJoinedGroupCall)
	payload := joins[0].Payload.(GroupCallJoinPayload)
	assert.Equal(t, callID, payload.CallID)
	assert.Equal(t, thirdID, payload.UserID)

	members, ok := f.tracker.Members(callID)
	assert.True(t, ok)
	assert.ElementsMatch(t, []uuid.UUID{initiatorID, secondID, thirdID}, members)
}

func TestGroupCallTracker_JoinUnknownCallRecreatesMembership(t *testing.T) {
	f := newGroupCallFixture()
	joinerID := uuid.New()

	f.users.On("GetProfile", mock.Anything, joinerID).Return(&domain.Profile{UserID: joinerID}, nil)

	f.tracker.JoinGroupCall(context.Background(), joinerID, uuid.New(), "group_call_missing")

	members, ok := f.tracker.Members("group_call_missing")
	assert.True(t, ok)
	assert.Equal(t, []uuid.UUID{joinerID}, members)
}

func TestGroupCallTracker_RemoveUserPrunesAllCalls(t *testing.T) {
	f := newGroupCallFixture()
	initiatorID := uuid.New()
	leaverID := uuid.New()
	initiatorConn := newFakeConn()
	f.registry.Register(initiatorID, initiatorConn)

	f.users.On("GetProfile", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(&domain.Profile{}, nil)

	callID, err := f.tracker.InitiateGroupCall(context.Background(), initiatorConn, initiatorID, uuid.New(),
		constants.CallTypeAudio, nil)
	assert.NoError(t, err)
	f.tracker.JoinGroupCall(context.Background(), leaverID, uuid.New(), callID)

	f.tracker.RemoveUser(leaverID)

	members, ok := f.tracker.Members(callID)
	assert.True(t, ok)
	assert.Equal(t, []uuid.UUID{initiatorID}, members)

	// Removing an absent user is a no-op.
	f.tracker.RemoveUser(leaverID)
	members, _ = f.tracker.Members(callID)
	assert.Len(t, members, 1)
}

func TestMemberSet_SnapshotAndAddExcludesJoiner(t *testing.T) {
	existing := uuid.New()
	joiner := uuid.New()
	set := newMemberSet(existing, joiner)

	snapshot := set.SnapshotAndAdd(joiner)

	assert.Equal(t, []uuid.UUID{existing}, snapshot)
	assert.ElementsMatch(t, []uuid.UUID{existing, joiner}, set.Snapshot())
}
