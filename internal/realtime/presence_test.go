package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPresenceRegistry_RegisterFirstConnection(t *testing.T) {
	registry := NewPresenceRegistry(zap.NewNop())
	userID := uuid.New()
	conn := newFakeConn()

	replaced := registry.Register(userID, conn)

	assert.False(t, replaced)
	got, ok := registry.Lookup(userID)
	assert.True(t, ok)
	assert.Equal(t, conn.ID(), got.ID())
}

func TestPresenceRegistry_RegisterLastWins(t *testing.T) {
	registry := NewPresenceRegistry(zap.NewNop())
	userID := uuid.New()
	first := newFakeConn()
	second := newFakeConn()

	assert.False(t, registry.Register(userID, first))
	replaced := registry.Register(userID, second)

	assert.True(t, replaced)
	got, ok := registry.Lookup(userID)
	assert.True(t, ok)
	assert.Equal(t, second.ID(), got.ID())
	assert.Len(t, registry.ListOnline(), 1)
}

func TestPresenceRegistry_UnregisterRemovesUser(t *testing.T) {
	registry := NewPresenceRegistry(zap.NewNop())
	userID := uuid.New()
	conn := newFakeConn()
	registry.Register(userID, conn)

	gotUserID, found := registry.Unregister(conn)

	assert.True(t, found)
	assert.Equal(t, userID, gotUserID)
	_, ok := registry.Lookup(userID)
	assert.False(t, ok)
	assert.Empty(t, registry.ListOnline())
}

func TestPresenceRegistry_UnregisterStaleConnection(t *testing.T) {
	// A connection replaced by a newer registration must not evict the
	// newer handle when it finally closes.
	registry := NewPresenceRegistry(zap.NewNop())
	userID := uuid.New()
	stale := newFakeConn()
	current := newFakeConn()
	registry.Register(userID, stale)
	registry.Register(userID, current)

	_, found := registry.Unregister(stale)

	assert.False(t, found)
	got, ok := registry.Lookup(userID)
	assert.True(t, ok)
	assert.Equal(t, current.ID(), got.ID())
}

func TestPresenceRegistry_UnregisterUnknownConnection(t *testing.T) {
	registry := NewPresenceRegistry(zap.NewNop())

	gotUserID, found := registry.Unregister(newFakeConn())

	assert.False(t, found)
	assert.Equal(t, uuid.Nil, gotUserID)
}

func TestPresenceRegistry_BroadcastExcept(t *testing.T) {
	registry := NewPresenceRegistry(zap.NewNop())
	sender := uuid.New()
	senderConn := newFakeConn()
	otherConnA := newFakeConn()
	otherConnB := newFakeConn()
	registry.Register(sender, senderConn)
	registry.Register(uuid.New(), otherConnA)
	registry.Register(uuid.New(), otherConnB)

	ev := NewEvent(EventUserOnlineStatusChanged, OnlineStatusPayload{UserID: sender, Status: "online"})
	registry.BroadcastExcept(ev, sender)

	assert.Empty(t, senderConn.eventTypes())
	assert.Equal(t, 1, otherConnA.countOfType(EventUserOnlineStatusChanged))
	assert.Equal(t, 1, otherConnB.countOfType(EventUserOnlineStatusChanged))
}

func TestPresenceRegistry_BroadcastSurvivesSendFailure(t *testing.T) {
	registry := NewPresenceRegistry(zap.NewNop())
	failing := newFakeConn()
	failing.failSend = true
	healthy := newFakeConn()
	registry.Register(uuid.New(), failing)
	registry.Register(uuid.New(), healthy)

	registry.BroadcastExcept(NewEvent(EventUserOnlineStatusChanged, nil), uuid.Nil)

	assert.Equal(t, 1, healthy.countOfType(EventUserOnlineStatusChanged))
}

func TestPresenceRegistry_ListOnline(t *testing.T) {
	registry := NewPresenceRegistry(zap.NewNop())
	userA := uuid.New()
	userB := uuid.New()
	registry.Register(userA, newFakeConn())
	registry.Register(userB, newFakeConn())

	online := registry.ListOnline()

	assert.Len(t, online, 2)
	assert.ElementsMatch(t, []uuid.UUID{userA, userB}, online)
}
