package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"meshline-backend/pkg/errors"
)

func TestSignalingRelay_SendOffer(t *testing.T) {
	registry := NewPresenceRegistry(zap.NewNop())
	relay := NewSignalingRelay(registry, zap.NewNop())
	senderID := uuid.New()
	receiverID := uuid.New()
	receiverConn := newFakeConn()
	registry.Register(receiverID, receiverConn)

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	err := relay.SendOffer(senderID, receiverID, offer)

	assert.NoError(t, err)
	relayed := receiverConn.eventsOfType(EventReceiveCallOffer)
	assert.Len(t, relayed, 1)
	payload := relayed[0].Payload.(SignalPayload)
	assert.Equal(t, senderID, payload.SenderID)
	assert.JSONEq(t, string(offer), string(payload.Signal))
}

func TestSignalingRelay_SendOfferRecipientOffline(t *testing.T) {
	registry := NewPresenceRegistry(zap.NewNop())
	relay := NewSignalingRelay(registry, zap.NewNop())

	err := relay.SendOffer(uuid.New(), uuid.New(), json.RawMessage(`{}`))

	assert.Equal(t, errors.ErrCodeNotFound, errors.GetAppError(err).Code)
}

func TestSignalingRelay_SendOfferDeliveryFailure(t *testing.T) {
	registry := NewPresenceRegistry(zap.NewNop())
	relay := NewSignalingRelay(registry, zap.NewNop())
	receiverID := uuid.New()
	receiverConn := newFakeConn()
	receiverConn.failSend = true
	registry.Register(receiverID, receiverConn)

	err := relay.SendOffer(uuid.New(), receiverID, json.RawMessage(`{}`))

	assert.Equal(t, errors.ErrCodeInternal, errors.GetAppError(err).Code)
}

func TestSignalingRelay_SendAnswer(t *testing.T) {
	registry := NewPresenceRegistry(zap.NewNop())
	relay := NewSignalingRelay(registry, zap.NewNop())
	senderID := uuid.New()
	callerID := uuid.New()
	callerConn := newFakeConn()
	registry.Register(callerID, callerConn)

	err := relay.SendAnswer(senderID, callerID, json.RawMessage(`{"type":"answer"}`))

	assert.NoError(t, err)
	relayed := callerConn.eventsOfType(EventReceiveCallAnswer)
	assert.Len(t, relayed, 1)
	assert.Equal(t, senderID, relayed[0].Payload.(SignalPayload).SenderID)
}

func TestSignalingRelay_SendAnswerCallerOffline(t *testing.T) {
	registry := NewPresenceRegistry(zap.NewNop())
	relay := NewSignalingRelay(registry, zap.NewNop())

	err := relay.SendAnswer(uuid.New(), uuid.New(), json.RawMessage(`{}`))

	assert.Equal(t, errors.ErrCodeNotFound, errors.GetAppError(err).Code)
}

func TestSignalingRelay_SendIceCandidate(t *testing.T) {
	registry := NewPresenceRegistry(zap.NewNop())
	relay := NewSignalingRelay(registry, zap.NewNop())
	senderID := uuid.New()
	recipientID := uuid.New()
	recipientConn := newFakeConn()
	registry.Register(recipientID, recipientConn)

	relay.SendIceCandidate(senderID, recipientID, json.RawMessage(`{"candidate":"..."}`))

	relayed := recipientConn.eventsOfType(EventReceiveIceCandidate)
	assert.Len(t, relayed, 1)
	assert.Equal(t, senderID, relayed[0].Payload.(SignalPayload).SenderID)
}

func TestSignalingRelay_SendIceCandidateIsBestEffort(t *testing.T) {
	registry := NewPresenceRegistry(zap.NewNop())
	relay := NewSignalingRelay(registry, zap.NewNop())

	// An offline recipient and a failing send are both swallowed.
	relay.SendIceCandidate(uuid.New(), uuid.New(), json.RawMessage(`{}`))

	recipientID := uuid.New()
	failing := newFakeConn()
	failing.failSend = true
	registry.Register(recipientID, failing)
	relay.SendIceCandidate(uuid.New(), recipientID, json.RawMessage(`{}`))
}
