package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	errprocess "realtime_chat_service/pkg/err"
)

// MessageUseCase message send, history and delivery-state operations.
// Both the websocket loop and the REST handlers call through here, so
// side effects are identical on either surface.
type MessageUseCase interface {
	Send(ctx context.Context, senderID string, payload domain.SendMessagePayload) (*domain.Message, error)
	History(ctx context.Context, viewerID, chatID string, limit int) ([]domain.Message, error)
	MarkOneRead(ctx context.Context, readerID, chatID, messageID string) error
	MarkAllRead(ctx context.Context, readerID, chatID string) (int, error)
	Typing(ctx context.Context, userID, chatID string, started bool) error
}

type messageUseCase struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	broadcaster Broadcaster
}

// NewMessageUseCase create MessageUseCase
func NewMessageUseCase(
	chatRepo repository.ChatRepository,
	messageRepo repository.MessageRepository,
	broadcaster Broadcaster,
) MessageUseCase {
	return &messageUseCase{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		broadcaster: broadcaster,
	}
}

// Send validate, persist and fan out one message. Every current
// participant receives message.new, the sender included so their other
// devices stay in sync.
func (uc *messageUseCase) Send(ctx context.Context, senderID string, payload domain.SendMessagePayload) (*domain.Message, error) {
	if payload.ChatID == "" {
		return nil, errprocess.Wrap(errprocess.ErrInvalidOperation, "chat_id is required")
	}

	member, err := uc.chatRepo.IsParticipant(ctx, payload.ChatID, senderID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, errprocess.Wrap(errprocess.ErrPermissionDenied, "not a participant of this chat")
	}

	msg := &domain.Message{
		ID:       uuid.NewString(),
		ChatID:   payload.ChatID,
		SenderID: senderID,
		Status:   domain.MessageStatusSent,
	}

	switch domain.MessageType(payload.MessageType) {
	case domain.MessageTypeText, domain.MessageType(""):
		if strings.TrimSpace(payload.Content) == "" {
			return nil, errprocess.Wrap(errprocess.ErrInvalidOperation, "text message requires content")
		}
		msg.MessageType = domain.MessageTypeText
		msg.Content = payload.Content
	case domain.MessageTypeFile:
		if payload.FileID == "" {
			return nil, errprocess.Wrap(errprocess.ErrInvalidOperation, "file message requires file_id")
		}
		msg.MessageType = domain.MessageTypeFile
		msg.FileID = payload.FileID
		msg.FileName = payload.FileName
		msg.FileSize = payload.FileSize
		msg.MimeType = payload.MimeType
	default:
		return nil, errprocess.Wrap(errprocess.ErrInvalidOperation, "unknown message type")
	}

	if err := uc.messageRepo.Insert(ctx, msg); err != nil {
		return nil, err
	}

	uc.broadcaster.Broadcast(ctx, payload.ChatID, domain.OutboundFrame{
		Type:    domain.EventMessageNew,
		Payload: msg,
	}, "")

	return msg, nil
}

// History chronological message history, participants only
func (uc *messageUseCase) History(ctx context.Context, viewerID, chatID string, limit int) ([]domain.Message, error) {
	member, err := uc.chatRepo.IsParticipant(ctx, chatID, viewerID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, errprocess.Wrap(errprocess.ErrPermissionDenied, "not a participant of this chat")
	}
	return uc.messageRepo.History(ctx, chatID, limit)
}

// MarkOneRead advance one message to read and notify its sender.
// Readers cannot read their own messages, the transition is forward
// only.
func (uc *messageUseCase) MarkOneRead(ctx context.Context, readerID, chatID, messageID string) error {
	member, err := uc.chatRepo.IsParticipant(ctx, chatID, readerID)
	if err != nil {
		return err
	}
	if !member {
		return errprocess.Wrap(errprocess.ErrPermissionDenied, "not a participant of this chat")
	}

	msg, err := uc.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.ChatID != chatID {
		return errprocess.Wrap(errprocess.ErrNotFound, "message does not belong to this chat")
	}
	if msg.SenderID == readerID {
		return errprocess.Wrap(errprocess.ErrInvalidOperation, "cannot mark own message as read")
	}
	if msg.Status == domain.MessageStatusRead {
		return nil
	}

	readAt := time.Now().UTC()
	updated, err := uc.messageRepo.MarkOneRead(ctx, messageID, readAt)
	if err != nil {
		return err
	}

	uc.broadcaster.SendToUser(updated.SenderID, domain.OutboundFrame{
		Type: domain.EventMessageRead,
		Payload: domain.ReadEventPayload{
			ChatID:     chatID,
			ReaderID:   readerID,
			MessageIDs: []string{messageID},
			ReadAt:     readAt,
		},
	})
	return nil
}

// MarkAllRead mark every unread message the reader received in the
// chat. Receipts collapse to one message.read event per distinct
// sender. Returns the number of messages affected.
func (uc *messageUseCase) MarkAllRead(ctx context.Context, readerID, chatID string) (int, error) {
	member, err := uc.chatRepo.IsParticipant(ctx, chatID, readerID)
	if err != nil {
		return 0, err
	}
	if !member {
		return 0, errprocess.Wrap(errprocess.ErrPermissionDenied, "not a participant of this chat")
	}

	readAt := time.Now().UTC()
	receipts, err := uc.messageRepo.MarkAllRead(ctx, chatID, readerID, readAt)
	if err != nil {
		return 0, err
	}
	if len(receipts) == 0 {
		return 0, nil
	}

	bySender := make(map[string][]string)
	order := make([]string, 0)
	for _, r := range receipts {
		if _, seen := bySender[r.SenderID]; !seen {
			order = append(order, r.SenderID)
		}
		bySender[r.SenderID] = append(bySender[r.SenderID], r.MessageID)
	}
	for _, senderID := range order {
		uc.broadcaster.SendToUser(senderID, domain.OutboundFrame{
			Type: domain.EventMessageRead,
			Payload: domain.ReadEventPayload{
				ChatID:     chatID,
				ReaderID:   readerID,
				MessageIDs: bySender[senderID],
				ReadAt:     readAt,
			},
		})
	}
	return len(receipts), nil
}

// Typing relay a typing indicator to the other participants. Nothing
// is persisted.
func (uc *messageUseCase) Typing(ctx context.Context, userID, chatID string, started bool) error {
	member, err := uc.chatRepo.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !member {
		return errprocess.Wrap(errprocess.ErrPermissionDenied, "not a participant of this chat")
	}

	event := domain.EventTypingStop
	if started {
		event = domain.EventTypingStart
	}
	uc.broadcaster.Broadcast(ctx, chatID, domain.OutboundFrame{
		Type: event,
		Payload: domain.TypingPayload{
			ChatID: chatID,
			UserID: userID,
		},
	}, userID)
	return nil
}
