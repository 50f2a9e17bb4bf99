package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"meshline-backend/internal/middleware"
	redisrepo "meshline-backend/internal/repository/redis"
)

type MockPushTokenStore struct {
	mock.Mock
}

func (m *MockPushTokenStore) Register(ctx context.Context, userID uuid.UUID, token, platform string) error {
	args := m.Called(ctx, userID, token, platform)
	return args.Error(0)
}

func (m *MockPushTokenStore) Unregister(ctx context.Context, userID uuid.UUID, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *MockPushTokenStore) Tokens(ctx context.Context, userID uuid.UUID) ([]redisrepo.DeviceToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]redisrepo.DeviceToken), args.Error(1)
}

// authAs injects the authenticated identity the way the auth middleware does
func authAs(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, userID)
		c.Next()
	}
}

func newPushRouter(store *MockPushTokenStore, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewPushHandler(store, zap.NewNop())
	router := gin.New()
	group := router.Group("/v1")
	if userID != uuid.Nil {
		group.Use(authAs(userID))
	}
	group.POST("/push/tokens", handler.RegisterToken)
	group.DELETE("/push/tokens", handler.UnregisterToken)
	group.GET("/push/tokens", handler.ListTokens)
	return router
}

func TestPushHandler_RegisterToken(t *testing.T) {
	store := new(MockPushTokenStore)
	userID := uuid.New()
	router := newPushRouter(store, userID)

	store.On("Register", mock.Anything, userID, "device-token-1", "fcm").Return(nil)

	body, _ := json.Marshal(gin.H{"token": "device-token-1", "platform": "fcm"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/push/tokens", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	store.AssertExpectations(t)
}

func TestPushHandler_RegisterTokenUnknownPlatform(t *testing.T) {
	store := new(MockPushTokenStore)
	router := newPushRouter(store, uuid.New())

	body, _ := json.Marshal(gin.H{"token": "device-token-1", "platform": "smoke-signal"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/push/tokens", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	store.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPushHandler_RegisterTokenMissingToken(t *testing.T) {
	store := new(MockPushTokenStore)
	router := newPushRouter(store, uuid.New())

	body, _ := json.Marshal(gin.H{"platform": "apns"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/push/tokens", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPushHandler_RegisterTokenUnauthenticated(t *testing.T) {
	store := new(MockPushTokenStore)
	router := newPushRouter(store, uuid.Nil)

	body, _ := json.Marshal(gin.H{"token": "device-token-1", "platform": "fcm"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/push/tokens", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	store.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPushHandler_RegisterTokenStoreFailure(t *testing.T) {
	store := new(MockPushTokenStore)
	userID := uuid.New()
	router := newPushRouter(store, userID)

	store.On("Register", mock.Anything, userID, "device-token-1", "apns").Return(assert.AnError)

	body, _ := json.Marshal(gin.H{"token": "device-token-1", "platform": "apns"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/push/tokens", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPushHandler_UnregisterToken(t *testing.T) {
	store := new(MockPushTokenStore)
	userID := uuid.New()
	router := newPushRouter(store, userID)

	store.On("Unregister", mock.Anything, userID, "device-token-1").Return(nil)

	body, _ := json.Marshal(gin.H{"token": "device-token-1"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/push/tokens", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	store.AssertExpectations(t)
}

func TestPushHandler_ListTokens(t *testing.T) {
	store := new(MockPushTokenStore)
	userID := uuid.New()
	router := newPushRouter(store, userID)

	store.On("Tokens", mock.Anything, userID).Return([]redisrepo.DeviceToken{
		{Token: "device-token-1", Platform: "fcm"},
		{Token: "device-token-2", Platform: "apns"},
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/push/tokens", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count  int                     `json:"count"`
		Tokens []redisrepo.DeviceToken `json:"tokens"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Tokens, 2)
}
