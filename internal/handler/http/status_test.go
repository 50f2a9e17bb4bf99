package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockOnlineDirectory struct {
	mock.Mock
}

func (m *MockOnlineDirectory) GetOnlineUsers(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func newStatusRouter(online *MockOnlineDirectory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewStatusHandler("realtime-test", online, nil, nil)
	router := gin.New()
	router.GET("/healthz", handler.Healthz)
	router.GET("/v1/online", handler.Online)
	return router
}

func TestStatusHandler_OnlineServesSharedDirectory(t *testing.T) {
	online := new(MockOnlineDirectory)
	router := newStatusRouter(online)

	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	online.On("GetOnlineUsers", mock.Anything).Return(users, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/online", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int         `json:"count"`
		Users []uuid.UUID `json:"users"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.ElementsMatch(t, users, resp.Users)
}

func TestStatusHandler_OnlineDirectoryFailure(t *testing.T) {
	online := new(MockOnlineDirectory)
	router := newStatusRouter(online)

	online.On("GetOnlineUsers", mock.Anything).Return(nil, assert.AnError)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/online", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStatusHandler_HealthzWithoutDependencies(t *testing.T) {
	router := newStatusRouter(new(MockOnlineDirectory))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "realtime-test", resp.Service)
}
