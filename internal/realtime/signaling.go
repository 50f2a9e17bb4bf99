package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meshline-backend/pkg/errors"
)

// SignalingRelay forwards opaque WebRTC negotiation payloads between two
// specific connections without inspecting their contents. Offers and
// answers surface delivery failures to the sender because a lost one stalls
// negotiation; ICE candidates are numerous and best-effort, so their
// failures are logged and swallowed. The asymmetry is deliberate.
type SignalingRelay struct {
	presence *PresenceRegistry
	log      *zap.Logger
}

// NewSignalingRelay creates a signaling relay over the given registry
func NewSignalingRelay(presence *PresenceRegistry, log *zap.Logger) *SignalingRelay {
	return &SignalingRelay{presence: presence, log: log}
}

// SendOffer relays an SDP offer to the receiver. An offline receiver is a
// visible error to the sender.
func (r *SignalingRelay) SendOffer(senderID, receiverID uuid.UUID, offer json.RawMessage) error {
	receiverConn, ok := r.presence.Lookup(receiverID)
	if !ok {
		return errors.NotFoundError("recipient")
	}

	ev := NewEvent(EventReceiveCallOffer, SignalPayload{
		SenderID: senderID,
		Signal:   offer,
	})
	if err := receiverConn.Send(ev); err != nil {
		return errors.InternalError("failed to relay offer")
	}
	return nil
}

// SendAnswer relays an SDP answer back to the caller. An offline caller is
// a visible error to the sender.
func (r *SignalingRelay) SendAnswer(senderID, callerID uuid.UUID, answer json.RawMessage) error {
	callerConn, ok := r.presence.Lookup(callerID)
	if !ok {
		return errors.NotFoundError("caller")
	}

	ev := NewEvent(EventReceiveCallAnswer, SignalPayload{
		SenderID: senderID,
		Signal:   answer,
	})
	if err := callerConn.Send(ev); err != nil {
		return errors.InternalError("failed to relay answer")
	}
	return nil
}

// SendIceCandidate relays an ICE candidate. Failures are never surfaced to
// the sender.
func (r *SignalingRelay) SendIceCandidate(senderID, recipientID uuid.UUID, candidate json.RawMessage) {
	recipientConn, ok := r.presence.Lookup(recipientID)
	if !ok {
		r.log.Debug("ice candidate dropped, recipient offline",
			zap.String("sender_id", senderID.String()),
			zap.String("recipient_id", recipientID.String()))
		return
	}

	ev := NewEvent(EventReceiveIceCandidate, SignalPayload{
		SenderID: senderID,
		Signal:   candidate,
	})
	if err := recipientConn.Send(ev); err != nil {
		r.log.Debug("ice candidate relay failed",
			zap.String("recipient_id", recipientID.String()),
			zap.Error(err))
	}
}
