package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"realtime_chat_service/internal/chat/domain"
	errprocess "realtime_chat_service/pkg/err"
)

// MessageRepository storage contract for messages and their delivery
// state. Status only ever advances sent -> delivered -> read.
type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.Message) error
	FindByID(ctx context.Context, messageID string) (*domain.Message, error)
	History(ctx context.Context, chatID string, limit int) ([]domain.Message, error)
	MarkOneRead(ctx context.Context, messageID string, at time.Time) (*domain.Message, error)
	MarkAllRead(ctx context.Context, chatID, readerID string, at time.Time) ([]domain.ReadReceipt, error)
	CountUnread(ctx context.Context, chatID, userID string) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository create a gorm backed MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errprocess.ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// History messages of the chat in chronological order, oldest first
func (r *messageRepository) History(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	var msgs []domain.Message
	q := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&msgs).Error
	return msgs, err
}

// MarkOneRead advance a single message to read. Messages already read
// are returned unchanged, the transition never runs backwards.
func (r *messageRepository) MarkOneRead(ctx context.Context, messageID string, at time.Time) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&msg, "id = ?", messageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errprocess.ErrNotFound
			}
			return err
		}
		if !msg.Status.CanAdvanceTo(domain.MessageStatusRead) {
			return nil
		}
		msg.Status = domain.MessageStatusRead
		msg.ReadAt = &at
		if msg.DeliveredAt == nil {
			msg.DeliveredAt = &at
		}
		return tx.Model(&domain.Message{}).
			Where("id = ?", messageID).
			Updates(map[string]interface{}{
				"status":       msg.Status,
				"read_at":      msg.ReadAt,
				"delivered_at": msg.DeliveredAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkAllRead mark every not-yet-read message in the chat that the
// reader did not send. Returns one receipt per affected message so the
// caller can notify each sender.
func (r *messageRepository) MarkAllRead(ctx context.Context, chatID, readerID string, at time.Time) ([]domain.ReadReceipt, error) {
	var receipts []domain.ReadReceipt
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending []domain.Message
		if err := tx.Where("chat_id = ? AND sender_id <> ? AND status <> ?",
			chatID, readerID, domain.MessageStatusRead).
			Find(&pending).Error; err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		ids := make([]string, 0, len(pending))
		for _, m := range pending {
			ids = append(ids, m.ID)
			receipts = append(receipts, domain.ReadReceipt{
				MessageID: m.ID,
				SenderID:  m.SenderID,
			})
		}

		return tx.Model(&domain.Message{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":       domain.MessageStatusRead,
				"read_at":      at,
				"delivered_at": gorm.Expr("COALESCE(delivered_at, ?)", at),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// CountUnread messages addressed to the user that are not yet read
func (r *messageRepository) CountUnread(ctx context.Context, chatID, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND status <> ?",
			chatID, userID, domain.MessageStatusRead).
		Count(&count).Error
	return count, err
}
