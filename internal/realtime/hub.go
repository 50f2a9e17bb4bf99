package realtime

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meshline-backend/pkg/constants"
)

// Hub ties the realtime components together behind the two lifecycle
// operations every transport needs: Connect and Disconnect. Handlers talk
// to the individual components directly for everything else.
type Hub struct {
	Presence      *PresenceRegistry
	Calls         *CallManager
	Groups        *GroupCallTracker
	Signaling     *SignalingRelay
	Conversations *Broadcaster

	mirror PresenceMirror // may be nil
	log    *zap.Logger
}

// NewHub wires a hub from its already-constructed components
func NewHub(presence *PresenceRegistry, calls *CallManager, groups *GroupCallTracker, signaling *SignalingRelay, conversations *Broadcaster, mirror PresenceMirror, log *zap.Logger) *Hub {
	return &Hub{
		Presence:      presence,
		Calls:         calls,
		Groups:        groups,
		Signaling:     signaling,
		Conversations: conversations,
		mirror:        mirror,
		log:           log,
	}
}

// Connect registers a connection as the user's active one and announces the
// user online to everyone else. When the user reconnects the previous
// registration is displaced without an offline announcement in between.
func (h *Hub) Connect(ctx context.Context, conn Conn, userID uuid.UUID) {
	replaced := h.Presence.Register(userID, conn)
	if replaced {
		h.log.Info("connection replaced existing registration",
			zap.String("user_id", userID.String()),
			zap.String("conn_id", conn.ID()))
	} else {
		h.Presence.BroadcastExcept(NewEvent(EventUserOnlineStatusChanged, OnlineStatusPayload{
			UserID: userID,
			Status: constants.StatusOnline,
		}), userID)
	}

	if h.mirror != nil {
		if err := h.mirror.SetOnline(ctx, userID); err != nil {
			h.log.Warn("presence mirror set online failed",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}
}

// RefreshPresence extends the mirror's lease for a still-connected user.
// The transport calls this on its keepalive cadence so the mirror entry
// outlives its TTL for as long as the connection does.
func (h *Hub) RefreshPresence(ctx context.Context, userID uuid.UUID) {
	if h.mirror == nil {
		return
	}
	if err := h.mirror.Refresh(ctx, userID); err != nil {
		h.log.Warn("presence mirror refresh failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}

// Disconnect tears down everything a closing connection holds. A stale
// connection that was already displaced by a newer registration releases
// only its conversation subscriptions; the user stays online.
func (h *Hub) Disconnect(ctx context.Context, conn Conn) {
	userID, found := h.Presence.Unregister(conn)
	if found {
		h.Presence.BroadcastExcept(NewEvent(EventUserOnlineStatusChanged, OnlineStatusPayload{
			UserID: userID,
			Status: constants.StatusOffline,
		}), userID)
		h.Groups.RemoveUser(userID)

		if h.mirror != nil {
			if err := h.mirror.SetOffline(ctx, userID); err != nil {
				h.log.Warn("presence mirror set offline failed",
					zap.String("user_id", userID.String()),
					zap.Error(err))
			}
		}
	}

	h.Conversations.ReleaseConn(ctx, conn)
}
