package realtime

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"meshline-backend/pkg/constants"
)

type hubFixture struct {
	registry *PresenceRegistry
	users    *MockUserDirectory
	mirror   *MockPresenceMirror
	members  *MockMemberDirectory
	hub      *Hub
}

func newHubFixture() *hubFixture {
	log := zap.NewNop()
	f := &hubFixture{
		registry: NewPresenceRegistry(log),
		users:    new(MockUserDirectory),
		mirror:   new(MockPresenceMirror),
		members:  new(MockMemberDirectory),
	}
	blocks := new(MockBlockChecker)
	calls := NewCallManager(f.registry, f.users, blocks, nil, log)
	groups := NewGroupCallTracker(f.registry, f.users, log)
	signaling := NewSignalingRelay(f.registry, log)
	conversations := NewBroadcaster(BroadcasterDeps{
		Presence:      f.registry,
		Users:         f.users,
		Blocks:        blocks,
		Conversations: new(MockConversationStore),
		Messages:      new(MockMessageStore),
		Members:       f.members,
	}, log)
	f.hub = NewHub(f.registry, calls, groups, signaling, conversations, f.mirror, log)
	return f
}

func TestHub_ConnectAnnouncesOnline(t *testing.T) {
	f := newHubFixture()
	observerConn := newFakeConn()
	f.registry.Register(uuid.New(), observerConn)

	userID := uuid.New()
	conn := newFakeConn()
	f.mirror.On("SetOnline", mock.Anything, userID).Return(nil)

	f.hub.Connect(context.Background(), conn, userID)

	changes := observerConn.eventsOfType(EventUserOnlineStatusChanged)
	assert.Len(t, changes, 1)
	payload := changes[0].Payload.(OnlineStatusPayload)
	assert.Equal(t, userID, payload.UserID)
	assert.Equal(t, constants.StatusOnline, payload.Status)

	// The connecting user does not hear its own announcement.
	assert.Equal(t, 0, conn.countOfType(EventUserOnlineStatusChanged))
	f.mirror.AssertExpectations(t)
}

func TestHub_ReconnectSkipsOnlineAnnouncement(t *testing.T) {
	f := newHubFixture()
	userID := uuid.New()
	first := newFakeConn()
	f.mirror.On("SetOnline", mock.Anything, userID).Return(nil)
	f.hub.Connect(context.Background(), first, userID)

	observerConn := newFakeConn()
	f.registry.Register(uuid.New(), observerConn)

	second := newFakeConn()
	f.hub.Connect(context.Background(), second, userID)

	assert.Equal(t, 0, observerConn.countOfType(EventUserOnlineStatusChanged))
	got, ok := f.registry.Lookup(userID)
	assert.True(t, ok)
	assert.Equal(t, second.ID(), got.ID())
}

func TestHub_RefreshPresenceRenewsMirrorLease(t *testing.T) {
	f := newHubFixture()
	userID := uuid.New()
	f.mirror.On("Refresh", mock.Anything, userID).Return(nil)

	f.hub.RefreshPresence(context.Background(), userID)

	f.mirror.AssertCalled(t, "Refresh", mock.Anything, userID)
}

func TestHub_RefreshPresenceSurvivesMirrorFailure(t *testing.T) {
	f := newHubFixture()
	userID := uuid.New()
	f.mirror.On("Refresh", mock.Anything, userID).Return(assert.AnError)

	// Renewal is best-effort; a mirror error must not panic or propagate.
	f.hub.RefreshPresence(context.Background(), userID)

	f.mirror.AssertCalled(t, "Refresh", mock.Anything, userID)
}

func TestHub_DisconnectAnnouncesOffline(t *testing.T) {
	f := newHubFixture()
	userID := uuid.New()
	conn := newFakeConn()
	f.mirror.On("SetOnline", mock.Anything, userID).Return(nil)
	f.mirror.On("SetOffline", mock.Anything, userID).Return(nil)
	f.members.On("ReleaseConn", mock.Anything, conn.ID()).Return(nil)
	f.hub.Connect(context.Background(), conn, userID)

	observerConn := newFakeConn()
	f.registry.Register(uuid.New(), observerConn)

	f.hub.Disconnect(context.Background(), conn)

	changes := observerConn.eventsOfType(EventUserOnlineStatusChanged)
	assert.Len(t, changes, 1)
	assert.Equal(t, constants.StatusOffline, changes[0].Payload.(OnlineStatusPayload).Status)
	_, ok := f.registry.Lookup(userID)
	assert.False(t, ok)
	f.mirror.AssertCalled(t, "SetOffline", mock.Anything, userID)
	f.members.AssertCalled(t, "ReleaseConn", mock.Anything, conn.ID())
}

func TestHub_DisconnectStaleConnectionKeepsUserOnline(t *testing.T) {
	// The old socket of a reconnecting user must not broadcast offline or
	// touch the mirror; it only releases its own subscriptions.
	f := newHubFixture()
	userID := uuid.New()
	stale := newFakeConn()
	current := newFakeConn()
	f.mirror.On("SetOnline", mock.Anything, userID).Return(nil)
	f.members.On("ReleaseConn", mock.Anything, stale.ID()).Return(nil)
	f.hub.Connect(context.Background(), stale, userID)
	f.hub.Connect(context.Background(), current, userID)

	observerConn := newFakeConn()
	f.registry.Register(uuid.New(), observerConn)

	f.hub.Disconnect(context.Background(), stale)

	assert.Equal(t, 0, observerConn.countOfType(EventUserOnlineStatusChanged))
	got, ok := f.registry.Lookup(userID)
	assert.True(t, ok)
	assert.Equal(t, current.ID(), got.ID())
	f.mirror.AssertNotCalled(t, "SetOffline", mock.Anything, mock.Anything)
	f.members.AssertCalled(t, "ReleaseConn", mock.Anything, stale.ID())
}

func TestHub_DisconnectPrunesGroupCalls(t *testing.T) {
	f := newHubFixture()
	userID := uuid.New()
	conn := newFakeConn()
	f.mirror.On("SetOnline", mock.Anything, userID).Return(nil)
	f.mirror.On("SetOffline", mock.Anything, userID).Return(nil)
	f.members.On("ReleaseConn", mock.Anything, conn.ID()).Return(nil)
	f.users.On("GetProfile", mock.Anything, userID).Return(nil, assert.AnError)
	f.hub.Connect(context.Background(), conn, userID)

	f.hub.Groups.JoinGroupCall(context.Background(), userID, uuid.New(), "group_call_test")

	f.hub.Disconnect(context.Background(), conn)

	members, ok := f.hub.Groups.Members("group_call_test")
	assert.True(t, ok)
	assert.Empty(t, members)
}
