// Package realtime implements the in-memory coordination core of the
// messaging service: presence, call signaling, group call membership and
// conversation fan-out. All registries are constructed explicitly and
// injected, so tests can run against isolated instances.
package realtime

// Conn is the minimal transport handle the core needs to reach one live
// connection. It is owned by the transport layer; the core only references
// it and never closes it.
type Conn interface {
	// ID uniquely identifies the underlying socket for the lifetime of the
	// connection.
	ID() string
	// Send queues an event for delivery. It must be safe for concurrent use
	// and must not block on the peer.
	Send(ev Event) error
}
