package app

import (
	"context"
	"sync"
	"time"

	"realtime_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockChatRepository Mock ChatRepository
type MockChatRepository struct {
	mock.Mock
}

// CreateChat mock create chat
func (m *MockChatRepository) CreateChat(ctx context.Context, chat *domain.Chat) error {
	args := m.Called(ctx, chat)
	return args.Error(0)
}

// FindByID mock find chat by id
func (m *MockChatRepository) FindByID(ctx context.Context, chatID string) (*domain.Chat, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Chat), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindPrivateChatBetween mock find private chat by unordered pair
func (m *MockChatRepository) FindPrivateChatBetween(ctx context.Context, userA, userB string) (*domain.Chat, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Chat), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListChatsOf mock list chats of a user
func (m *MockChatRepository) ListChatsOf(ctx context.Context, userID string) ([]domain.Chat, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Chat), args.Error(1)
	}
	return nil, args.Error(1)
}

// ChatIDsOf mock chat ids of a user
func (m *MockChatRepository) ChatIDsOf(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// ParticipantIDs mock membership snapshot
func (m *MockChatRepository) ParticipantIDs(ctx context.Context, chatID string) ([]string, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// RoleOf mock role lookup
func (m *MockChatRepository) RoleOf(ctx context.Context, chatID, userID string) (domain.ParticipantRole, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Get(0).(domain.ParticipantRole), args.Error(1)
}

// IsParticipant mock membership check
func (m *MockChatRepository) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

// AddParticipants mock add edges
func (m *MockChatRepository) AddParticipants(ctx context.Context, chatID string, participants []domain.Participant) ([]string, error) {
	args := m.Called(ctx, chatID, participants)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// RemoveParticipant mock remove edge
func (m *MockChatRepository) RemoveParticipant(ctx context.Context, chatID, userID string) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

// UpdateName mock rename
func (m *MockChatRepository) UpdateName(ctx context.Context, chatID, name string) error {
	args := m.Called(ctx, chatID, name)
	return args.Error(0)
}

// DeleteChat mock delete
func (m *MockChatRepository) DeleteChat(ctx context.Context, chatID string) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Insert mock insert message
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindByID mock find message by id
func (m *MockMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// History mock chronological history
func (m *MockMessageRepository) History(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, chatID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkOneRead mock advance one message
func (m *MockMessageRepository) MarkOneRead(ctx context.Context, messageID string, at time.Time) (*domain.Message, error) {
	args := m.Called(ctx, messageID, at)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkAllRead mock bulk mark read
func (m *MockMessageRepository) MarkAllRead(ctx context.Context, chatID, readerID string, at time.Time) ([]domain.ReadReceipt, error) {
	args := m.Called(ctx, chatID, readerID, at)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ReadReceipt), args.Error(1)
	}
	return nil, args.Error(1)
}

// CountUnread mock unread count
func (m *MockMessageRepository) CountUnread(ctx context.Context, chatID, userID string) (int64, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockBroadcaster Mock Broadcaster
type MockBroadcaster struct {
	mock.Mock
}

// Broadcast mock fan out to a chat
func (m *MockBroadcaster) Broadcast(ctx context.Context, chatID string, frame domain.OutboundFrame, excludeUserID string) {
	m.Called(ctx, chatID, frame, excludeUserID)
}

// BroadcastTo mock fan out to explicit recipients
func (m *MockBroadcaster) BroadcastTo(userIDs []string, frame domain.OutboundFrame) {
	m.Called(userIDs, frame)
}

// SendToUser mock routing to one user
func (m *MockBroadcaster) SendToUser(userID string, frame domain.OutboundFrame) {
	m.Called(userID, frame)
}

// MockUserDirectory Mock UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

// Exists mock account existence check
func (m *MockUserDirectory) Exists(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// UsernameOf mock username lookup
func (m *MockUserDirectory) UsernameOf(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

// MockIdentityResolver mock of IdentityResolver
type MockIdentityResolver struct {
	mock.Mock
}

// Resolve mock credential resolution
func (m *MockIdentityResolver) Resolve(ctx context.Context, credential string) (string, error) {
	args := m.Called(ctx, credential)
	return args.String(0), args.Error(1)
}

// stubPresenceStore no-op PresenceStore
type stubPresenceStore struct{}

func (stubPresenceStore) SetOnline(context.Context, string) error             { return nil }
func (stubPresenceStore) SetOffline(context.Context, string, time.Time) error { return nil }

// stubPresence fixed answers for PresenceReader
type stubPresence struct {
	online   map[string]bool
	lastSeen map[string]*time.Time
}

func (s *stubPresence) Presence(_ context.Context, userID string) (bool, *time.Time, error) {
	return s.online[userID], s.lastSeen[userID], nil
}

// recordingSink EventSink collecting frames for assertions
type recordingSink struct {
	userID string
	mu     sync.Mutex
	frames []domain.OutboundFrame
	full   bool
}

func newRecordingSink(userID string) *recordingSink {
	return &recordingSink{userID: userID}
}

func (s *recordingSink) UserID() string { return s.userID }

func (s *recordingSink) Enqueue(frame domain.OutboundFrame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.frames = append(s.frames, frame)
	return true
}

func (s *recordingSink) received() []domain.OutboundFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OutboundFrame, len(s.frames))
	copy(out, s.frames)
	return out
}
