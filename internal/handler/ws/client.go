package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"meshline-backend/internal/realtime"
	"meshline-backend/pkg/constants"
)

// sendBufferSize bounds the per-client outbound queue. A client that falls
// this far behind is disconnected rather than allowed to stall fan-out.
const sendBufferSize = 256

// Client is one WebSocket connection bound to an authenticated user. It
// implements realtime.Conn: the hub hands it events, the write pump drains
// them to the socket.
type Client struct {
	id      string
	userID  uuid.UUID
	conn    *websocket.Conn
	send    chan []byte
	handler *Handler
	log     *zap.Logger

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn, userID uuid.UUID, handler *Handler, log *zap.Logger) *Client {
	return &Client{
		id:      uuid.NewString(),
		userID:  userID,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		handler: handler,
		log:     log,
	}
}

// ID returns the connection's unique identifier
func (c *Client) ID() string {
	return c.id
}

// UserID returns the authenticated user behind this connection
func (c *Client) UserID() uuid.UUID {
	return c.userID
}

// Send queues an event for delivery. It never blocks; a full buffer fails
// the send and the slow client is torn down by the pumps.
func (c *Client) Send(ev realtime.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("connection closed")
	}

	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

// close marks the client closed and releases the write pump. Safe to call
// more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump reads inbound frames until the connection dies, dispatching each
// one. It owns disconnect: when it returns the client is torn down.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.handler.hub.Disconnect(ctx, c)
		c.close()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed",
					zap.String("conn_id", c.id),
					zap.String("user_id", c.userID.String()),
					zap.Error(err))
			}
			return
		}

		c.handler.dispatch(ctx, c, data)
	}
}

// writePump drains the send queue to the socket and keeps the connection
// alive with periodic pings. Each ping also renews the user's presence
// mirror lease, which would otherwise expire under a long-lived connection.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(constants.WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.handler.hub.RefreshPresence(ctx, c.userID)
		}
	}
}
