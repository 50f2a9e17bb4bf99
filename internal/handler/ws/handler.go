package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"meshline-backend/internal/middleware"
	"meshline-backend/internal/realtime"
	"meshline-backend/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev, restrict in production
	},
}

// Handler upgrades authenticated HTTP requests to WebSocket connections and
// routes inbound client actions to the realtime hub.
type Handler struct {
	hub     *realtime.Hub
	metrics *metrics.Metrics // may be nil
	log     *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *realtime.Hub, m *metrics.Metrics, log *zap.Logger) *Handler {
	return &Handler{hub: hub, metrics: m, log: log}
}

// registeredPayload acknowledges a successful connection
type registeredPayload struct {
	ConnID string    `json:"conn_id"`
	UserID uuid.UUID `json:"user_id"`
}

// ServeWS handles WebSocket upgrade requests. Authentication happens in
// middleware before this runs; the user ID is read from the request context.
func (h *Handler) ServeWS(c *gin.Context) {
	userIDVal, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user identity"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return
	}

	client := newClient(conn, userID, h, h.log)
	ctx := context.Background()

	h.hub.Connect(ctx, client, userID)
	if h.metrics != nil {
		h.metrics.ConnectionOpened()
	}

	if err := client.Send(realtime.NewEvent(realtime.EventRegistered, registeredPayload{
		ConnID: client.ID(),
		UserID: userID,
	})); err != nil {
		h.log.Debug("registered ack failed", zap.String("conn_id", client.ID()), zap.Error(err))
	}

	go client.writePump(ctx)
	go func() {
		client.readPump(ctx)
		if h.metrics != nil {
			h.metrics.ConnectionClosed()
		}
	}()
}
