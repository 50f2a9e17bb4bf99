package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meshline-backend/internal/domain"
)

// CallReader looks up persisted call records.
type CallReader interface {
	GetByID(ctx context.Context, callID string) (*domain.CallRecord, error)
}

// CallHandler serves call history lookups
type CallHandler struct {
	calls CallReader
	log   *zap.Logger
}

// NewCallHandler creates a new CallHandler
func NewCallHandler(calls CallReader, log *zap.Logger) *CallHandler {
	return &CallHandler{calls: calls, log: log}
}

// GetCall returns the persisted record for a single call
func (h *CallHandler) GetCall(c *gin.Context) {
	callID := c.Param("call_id")
	if callID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "call_id is required"})
		return
	}

	record, err := h.calls.GetByID(c.Request.Context(), callID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return
		}
		h.log.Error("failed to load call record",
			zap.String("call_id", callID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load call"})
		return
	}

	c.JSON(http.StatusOK, record)
}
