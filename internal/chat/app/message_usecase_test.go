package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"realtime_chat_service/internal/chat/domain"
	errprocess "realtime_chat_service/pkg/err"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSend_BroadcastsToWholeChat(t *testing.T) {
	ctx := context.Background()
	chatID := uuid.New().String()
	sender := uuid.New().String()

	chatRepo := new(MockChatRepository)
	msgRepo := new(MockMessageRepository)
	broadcaster := new(MockBroadcaster)

	chatRepo.On("IsParticipant", ctx, chatID, sender).Return(true, nil)
	msgRepo.On("Insert", ctx, mock.Anything).Return(nil)
	// sender's other devices receive message.new too, nobody is excluded
	broadcaster.On("Broadcast", ctx, chatID, mock.MatchedBy(func(f domain.OutboundFrame) bool {
		return f.Type == domain.EventMessageNew
	}), "").Return()

	uc := NewMessageUseCase(chatRepo, msgRepo, broadcaster)
	msg, err := uc.Send(ctx, sender, domain.SendMessagePayload{
		ChatID:  chatID,
		Content: "hello",
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.MessageStatusSent, msg.Status)
	assert.Equal(t, domain.MessageTypeText, msg.MessageType)
	broadcaster.AssertExpectations(t)
}

func TestSend_NonParticipantDenied(t *testing.T) {
	ctx := context.Background()
	chatID := uuid.New().String()
	outsider := uuid.New().String()

	chatRepo := new(MockChatRepository)
	msgRepo := new(MockMessageRepository)

	chatRepo.On("IsParticipant", ctx, chatID, outsider).Return(false, nil)

	uc := NewMessageUseCase(chatRepo, msgRepo, new(MockBroadcaster))
	_, err := uc.Send(ctx, outsider, domain.SendMessagePayload{
		ChatID:  chatID,
		Content: "hello",
	})

	assert.ErrorIs(t, err, errprocess.ErrPermissionDenied)
	msgRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSend_ValidatesPayload(t *testing.T) {
	ctx := context.Background()
	chatID := uuid.New().String()
	sender := uuid.New().String()

	chatRepo := new(MockChatRepository)
	chatRepo.On("IsParticipant", ctx, chatID, sender).Return(true, nil)

	uc := NewMessageUseCase(chatRepo, new(MockMessageRepository), new(MockBroadcaster))

	_, err := uc.Send(ctx, sender, domain.SendMessagePayload{ChatID: chatID, Content: "   "})
	assert.ErrorIs(t, err, errprocess.ErrInvalidOperation)

	_, err = uc.Send(ctx, sender, domain.SendMessagePayload{ChatID: chatID, MessageType: "file"})
	assert.ErrorIs(t, err, errprocess.ErrInvalidOperation)

	_, err = uc.Send(ctx, sender, domain.SendMessagePayload{ChatID: chatID, MessageType: "hologram", Content: "x"})
	assert.ErrorIs(t, err, errprocess.ErrInvalidOperation)
}

func TestMarkOneRead_NotifiesSender(t *testing.T) {
	ctx := context.Background()
	chatID := uuid.New().String()
	reader := uuid.New().String()
	sender := uuid.New().String()
	messageID := uuid.New().String()

	chatRepo := new(MockChatRepository)
	msgRepo := new(MockMessageRepository)
	broadcaster := new(MockBroadcaster)

	chatRepo.On("IsParticipant", ctx, chatID, reader).Return(true, nil)
	msgRepo.On("FindByID", ctx, messageID).Return(&domain.Message{
		ID:       messageID,
		ChatID:   chatID,
		SenderID: sender,
		Status:   domain.MessageStatusSent,
	}, nil)
	msgRepo.On("MarkOneRead", ctx, messageID, mock.Anything).Return(&domain.Message{
		ID:       messageID,
		ChatID:   chatID,
		SenderID: sender,
		Status:   domain.MessageStatusRead,
	}, nil)
	broadcaster.On("SendToUser", sender, mock.MatchedBy(func(f domain.OutboundFrame) bool {
		payload, ok := f.Payload.(domain.ReadEventPayload)
		return f.Type == domain.EventMessageRead && ok &&
			payload.ReaderID == reader && !payload.ReadAt.IsZero()
	})).Return()

	uc := NewMessageUseCase(chatRepo, msgRepo, broadcaster)
	err := uc.MarkOneRead(ctx, reader, chatID, messageID)

	assert.NoError(t, err)
	broadcaster.AssertExpectations(t)
}

func TestMarkOneRead_ReceiptCarriesReadTime(t *testing.T) {
	ctx := context.Background()
	chatID := uuid.New().String()
	reader := uuid.New().String()
	sender := uuid.New().String()
	messageID := uuid.New().String()

	chatRepo := new(MockChatRepository)
	msgRepo := new(MockMessageRepository)
	broadcaster := new(MockBroadcaster)

	chatRepo.On("IsParticipant", ctx, chatID, reader).Return(true, nil)
	msgRepo.On("FindByID", ctx, messageID).Return(&domain.Message{
		ID:       messageID,
		ChatID:   chatID,
		SenderID: sender,
		Status:   domain.MessageStatusSent,
	}, nil)
	msgRepo.On("MarkOneRead", ctx, messageID, mock.Anything).Return(&domain.Message{
		ID:       messageID,
		ChatID:   chatID,
		SenderID: sender,
		Status:   domain.MessageStatusRead,
	}, nil)

	var sent domain.OutboundFrame
	broadcaster.On("SendToUser", sender, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(domain.OutboundFrame)
	}).Return()

	uc := NewMessageUseCase(chatRepo, msgRepo, broadcaster)
	assert.NoError(t, uc.MarkOneRead(ctx, reader, chatID, messageID))

	raw, err := json.Marshal(sent.Payload)
	assert.NoError(t, err)

	var decoded map[string]interface{}
	assert.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "read_at")

	readAt, err := time.Parse(time.RFC3339Nano, decoded["read_at"].(string))
	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now(), readAt, time.Minute)
}

func TestMarkOneRead_OwnMessageRejected(t *testing.T) {
	ctx := context.Background()
	chatID := uuid.New().String()
	sender := uuid.New().String()
	messageID := uuid.New().String()

	chatRepo := new(MockChatRepository)
	msgRepo := new(MockMessageRepository)

	chatRepo.On("IsParticipant", ctx, chatID, sender).Return(true, nil)
	msgRepo.On("FindByID", ctx, messageID).Return(&domain.Message{
		ID:       messageID,
		ChatID:   chatID,
		SenderID: sender,
		Status:   domain.MessageStatusSent,
	}, nil)

	uc := NewMessageUseCase(chatRepo, msgRepo, new(MockBroadcaster))
	err := uc.MarkOneRead(ctx, sender, chatID, messageID)

	assert.ErrorIs(t, err, errprocess.ErrInvalidOperation)
	msgRepo.AssertNotCalled(t, "MarkOneRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkOneRead_AlreadyReadIsNoop(t *testing.T) {
	ctx := context.Background()
	chatID := uuid.New().String()
	reader := uuid.New().String()
	messageID := uuid.New().String()
	at := time.Now()

	chatRepo := new(MockChatRepository)
	msgRepo := new(MockMessageRepository)
	broadcaster := new(MockBroadcaster)

	chatRepo.On("IsParticipant", ctx, chatID, reader).Return(true, nil)
	msgRepo.On("FindByID", ctx, messageID).Return(&domain.Message{
		ID:       messageID,
		ChatID:   chatID,
		SenderID: uuid.New().String(),
		Status:   domain.MessageStatusRead,
		ReadAt:   &at,
	}, nil)

	uc := NewMessageUseCase(chatRepo, msgRepo, broadcaster)
	err := uc.MarkOneRead(ctx, reader, chatID, messageID)

	assert.NoError(t, err)
	msgRepo.AssertNotCalled(t, "MarkOneRead", mock.Anything, mock.Anything, mock.Anything)
	broadcaster.AssertNotCalled(t, "SendToUser", mock.Anything, mock.Anything)
}

func TestMarkAllRead_OneEventPerSender(t *testing.T) {
	ctx := context.Background()
	chatID := uuid.New().String()
	reader := uuid.New().String()
	senderA := uuid.New().String()
	senderB := uuid.New().String()

	chatRepo := new(MockChatRepository)
	msgRepo := new(MockMessageRepository)
	broadcaster := new(MockBroadcaster)

	chatRepo.On("IsParticipant", ctx, chatID, reader).Return(true, nil)
	msgRepo.On("MarkAllRead", ctx, chatID, reader, mock.Anything).Return([]domain.ReadReceipt{
		{MessageID: "m1", SenderID: senderA},
		{MessageID: "m2", SenderID: senderB},
		{MessageID: "m3", SenderID: senderA},
	}, nil)

	broadcaster.On("SendToUser", senderA, mock.MatchedBy(func(f domain.OutboundFrame) bool {
		payload, ok := f.Payload.(domain.ReadEventPayload)
		return ok && len(payload.MessageIDs) == 2 && !payload.ReadAt.IsZero()
	})).Return().Once()
	broadcaster.On("SendToUser", senderB, mock.MatchedBy(func(f domain.OutboundFrame) bool {
		payload, ok := f.Payload.(domain.ReadEventPayload)
		return ok && len(payload.MessageIDs) == 1 && !payload.ReadAt.IsZero()
	})).Return().Once()

	uc := NewMessageUseCase(chatRepo, msgRepo, broadcaster)
	affected, err := uc.MarkAllRead(ctx, reader, chatID)

	assert.NoError(t, err)
	assert.Equal(t, 3, affected)
	broadcaster.AssertExpectations(t)
}

func TestMarkAllRead_NothingToMark(t *testing.T) {
	ctx := context.Background()
	chatID := uuid.New().String()
	reader := uuid.New().String()

	chatRepo := new(MockChatRepository)
	msgRepo := new(MockMessageRepository)
	broadcaster := new(MockBroadcaster)

	chatRepo.On("IsParticipant", ctx, chatID, reader).Return(true, nil)
	msgRepo.On("MarkAllRead", ctx, chatID, reader, mock.Anything).Return([]domain.ReadReceipt{}, nil)

	uc := NewMessageUseCase(chatRepo, msgRepo, broadcaster)
	affected, err := uc.MarkAllRead(ctx, reader, chatID)

	assert.NoError(t, err)
	assert.Zero(t, affected)
	broadcaster.AssertNotCalled(t, "SendToUser", mock.Anything, mock.Anything)
}

func TestTyping_ExcludesTheTypist(t *testing.T) {
	ctx := context.Background()
	chatID := uuid.New().String()
	typist := uuid.New().String()

	chatRepo := new(MockChatRepository)
	broadcaster := new(MockBroadcaster)

	chatRepo.On("IsParticipant", ctx, chatID, typist).Return(true, nil)
	broadcaster.On("Broadcast", ctx, chatID, mock.MatchedBy(func(f domain.OutboundFrame) bool {
		return f.Type == domain.EventTypingStart
	}), typist).Return()

	uc := NewMessageUseCase(chatRepo, new(MockMessageRepository), broadcaster)
	err := uc.Typing(ctx, typist, chatID, true)

	assert.NoError(t, err)
	broadcaster.AssertExpectations(t)
}

func TestHistory_NonParticipantDenied(t *testing.T) {
	ctx := context.Background()
	chatID := uuid.New().String()
	outsider := uuid.New().String()

	chatRepo := new(MockChatRepository)
	chatRepo.On("IsParticipant", ctx, chatID, outsider).Return(false, nil)

	uc := NewMessageUseCase(chatRepo, new(MockMessageRepository), new(MockBroadcaster))
	_, err := uc.History(ctx, outsider, chatID, 50)

	assert.ErrorIs(t, err, errprocess.ErrPermissionDenied)
}

func TestMessageStatus_ForwardOnly(t *testing.T) {
	assert.True(t, domain.MessageStatusSent.CanAdvanceTo(domain.MessageStatusDelivered))
	assert.True(t, domain.MessageStatusSent.CanAdvanceTo(domain.MessageStatusRead))
	assert.True(t, domain.MessageStatusDelivered.CanAdvanceTo(domain.MessageStatusRead))
	assert.False(t, domain.MessageStatusRead.CanAdvanceTo(domain.MessageStatusDelivered))
	assert.False(t, domain.MessageStatusRead.CanAdvanceTo(domain.MessageStatusSent))
	assert.False(t, domain.MessageStatusDelivered.CanAdvanceTo(domain.MessageStatusDelivered))
}
