package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PresenceRegistry maps a user identity to its current live connection.
// A user has at most one entry; a new registration for the same user
// overwrites the previous handle (last registration wins).
type PresenceRegistry struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]Conn
	log    *zap.Logger
}

// NewPresenceRegistry creates an empty presence registry
func NewPresenceRegistry(log *zap.Logger) *PresenceRegistry {
	return &PresenceRegistry{
		byUser: make(map[uuid.UUID]Conn),
		log:    log,
	}
}

// Register upserts the connection handle for a user and reports whether a
// prior handle was replaced.
func (r *PresenceRegistry) Register(userID uuid.UUID, conn Conn) bool {
	r.mu.Lock()
	prev, replaced := r.byUser[userID]
	r.byUser[userID] = conn
	r.mu.Unlock()

	if replaced && prev.ID() != conn.ID() {
		r.log.Debug("presence handle replaced",
			zap.String("user_id", userID.String()),
			zap.String("old_conn", prev.ID()),
			zap.String("new_conn", conn.ID()))
	}
	return replaced
}

// Unregister resolves the user owning a connection by reverse lookup and
// removes the entry. It returns the resolved user id, or false when the
// connection is not the current handle for any user (already replaced by a
// newer registration). The scan is linear in the number of online users.
func (r *PresenceRegistry) Unregister(conn Conn) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, c := range r.byUser {
		if c.ID() == conn.ID() {
			delete(r.byUser, userID)
			return userID, true
		}
	}
	return uuid.Nil, false
}

// Lookup returns the current connection handle for a user, if any
func (r *PresenceRegistry) Lookup(userID uuid.UUID) (Conn, bool) {
	r.mu.RLock()
	conn, ok := r.byUser[userID]
	r.mu.RUnlock()
	return conn, ok
}

// ListOnline returns the ids of all currently registered users
func (r *PresenceRegistry) ListOnline() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(r.byUser))
	for userID := range r.byUser {
		ids = append(ids, userID)
	}
	return ids
}

// BroadcastExcept delivers an event to every registered connection other
// than the excluded user's. Sends happen outside the registry lock and are
// independent, order-insensitive deliveries.
func (r *PresenceRegistry) BroadcastExcept(ev Event, except uuid.UUID) {
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.byUser))
	for userID, conn := range r.byUser {
		if userID != except {
			targets = append(targets, conn)
		}
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.Send(ev); err != nil {
			r.log.Debug("presence broadcast send failed",
				zap.String("conn_id", conn.ID()),
				zap.String("event", ev.Type),
				zap.Error(err))
		}
	}
}
