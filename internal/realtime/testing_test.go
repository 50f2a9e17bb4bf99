package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"meshline-backend/internal/domain"
)

// fakeConn records every event delivered to it
type fakeConn struct {
	id       string
	failSend bool

	mu     sync.Mutex
	events []Event
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.NewString()}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(ev Event) error {
	if c.failSend {
		return fmt.Errorf("send failed")
	}
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) eventTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		types = append(types, ev.Type)
	}
	return types
}

func (c *fakeConn) eventsOfType(eventType string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (c *fakeConn) countOfType(eventType string) int {
	return len(c.eventsOfType(eventType))
}

// Mocks

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockUserDirectory) ReadReceiptsEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type MockBlockChecker struct {
	mock.Mock
}

func (m *MockBlockChecker) IsBlockedEither(ctx context.Context, a, b uuid.UUID) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

type MockCallRecorder struct {
	mock.Mock
}

func (m *MockCallRecorder) Create(ctx context.Context, record *domain.CallRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockCallRecorder) UpdateStatus(ctx context.Context, callID, status string) error {
	args := m.Called(ctx, callID, status)
	return args.Error(0)
}

func (m *MockCallRecorder) End(ctx context.Context, callID string, duration int) error {
	args := m.Called(ctx, callID, duration)
	return args.Error(0)
}

type MockConversationStore struct {
	mock.Mock
}

func (m *MockConversationStore) Get(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationStore) Participants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageStore) Get(ctx context.Context, conversationID, messageID uuid.UUID) (*domain.Message, error) {
	args := m.Called(ctx, conversationID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageStore) SetContent(ctx context.Context, conversationID, messageID uuid.UUID, content string, editedAt time.Time) error {
	args := m.Called(ctx, conversationID, messageID, content, editedAt)
	return args.Error(0)
}

func (m *MockMessageStore) MarkDeleted(ctx context.Context, conversationID, messageID uuid.UUID) error {
	args := m.Called(ctx, conversationID, messageID)
	return args.Error(0)
}

func (m *MockMessageStore) AddReaction(ctx context.Context, conversationID, messageID, userID uuid.UUID, emoji string) error {
	args := m.Called(ctx, conversationID, messageID, userID, emoji)
	return args.Error(0)
}

func (m *MockMessageStore) RemoveReaction(ctx context.Context, conversationID, messageID, userID uuid.UUID, emoji string) error {
	args := m.Called(ctx, conversationID, messageID, userID, emoji)
	return args.Error(0)
}

func (m *MockMessageStore) SetPinned(ctx context.Context, conversationID, messageID uuid.UUID, pinned bool) error {
	args := m.Called(ctx, conversationID, messageID, pinned)
	return args.Error(0)
}

func (m *MockMessageStore) MarkRead(ctx context.Context, conversationID, messageID, userID uuid.UUID) error {
	args := m.Called(ctx, conversationID, messageID, userID)
	return args.Error(0)
}

type MockMemberDirectory struct {
	mock.Mock
}

func (m *MockMemberDirectory) AddMember(ctx context.Context, userID, conversationID uuid.UUID, connID string) error {
	args := m.Called(ctx, userID, conversationID, connID)
	return args.Error(0)
}

func (m *MockMemberDirectory) RemoveMember(ctx context.Context, userID, conversationID uuid.UUID) error {
	args := m.Called(ctx, userID, conversationID)
	return args.Error(0)
}

func (m *MockMemberDirectory) ReleaseConn(ctx context.Context, connID string) error {
	args := m.Called(ctx, connID)
	return args.Error(0)
}

type MockPresenceMirror struct {
	mock.Mock
}

func (m *MockPresenceMirror) SetOnline(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockPresenceMirror) SetOffline(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockPresenceMirror) Refresh(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
