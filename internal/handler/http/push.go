package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"meshline-backend/internal/middleware"
	redisrepo "meshline-backend/internal/repository/redis"
)

// PushTokenStore persists device push tokens per user.
type PushTokenStore interface {
	Register(ctx context.Context, userID uuid.UUID, token, platform string) error
	Unregister(ctx context.Context, userID uuid.UUID, token string) error
	Tokens(ctx context.Context, userID uuid.UUID) ([]redisrepo.DeviceToken, error)
}

// PushHandler manages the caller's registered push targets. Registration is
// what makes the offline dispatcher able to reach a device at all.
type PushHandler struct {
	tokens PushTokenStore
	log    *zap.Logger
}

// NewPushHandler creates a new PushHandler
func NewPushHandler(tokens PushTokenStore, log *zap.Logger) *PushHandler {
	return &PushHandler{tokens: tokens, log: log}
}

// RegisterTokenRequest is the body of POST /push/tokens
type RegisterTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" binding:"required,oneof=fcm apns"`
}

// UnregisterTokenRequest is the body of DELETE /push/tokens
type UnregisterTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RegisterToken stores a device token for the authenticated user
func (h *PushHandler) RegisterToken(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	var req RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tokens.Register(c.Request.Context(), userID, req.Token, req.Platform); err != nil {
		h.log.Error("failed to register push token",
			zap.String("user_id", userID.String()),
			zap.String("platform", req.Platform),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token registered"})
}

// UnregisterToken removes a device token for the authenticated user
func (h *PushHandler) UnregisterToken(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	var req UnregisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tokens.Unregister(c.Request.Context(), userID, req.Token); err != nil {
		h.log.Error("failed to unregister push token",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unregister token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token unregistered"})
}

// ListTokens returns the authenticated user's registered device tokens
func (h *PushHandler) ListTokens(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	tokens, err := h.tokens.Tokens(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("failed to list push tokens",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(tokens),
		"tokens": tokens,
	})
}

// callerID reads the authenticated user ID placed by the auth middleware
func callerID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := v.(uuid.UUID)
	return userID, ok
}
