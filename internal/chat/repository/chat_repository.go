package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"realtime_chat_service/internal/chat/domain"
	errprocess "realtime_chat_service/pkg/err"
)

// ChatRepository storage contract for chats and membership edges.
// Mutations of the participant set are serialized per chat through a
// row lock on the chat record, so concurrent admin actions on the same
// chat can never double-count or lose an edge.
type ChatRepository interface {
	CreateChat(ctx context.Context, chat *domain.Chat) error
	FindByID(ctx context.Context, chatID string) (*domain.Chat, error)
	FindPrivateChatBetween(ctx context.Context, userA, userB string) (*domain.Chat, error)
	ListChatsOf(ctx context.Context, userID string) ([]domain.Chat, error)
	ChatIDsOf(ctx context.Context, userID string) ([]string, error)
	ParticipantIDs(ctx context.Context, chatID string) ([]string, error)
	RoleOf(ctx context.Context, chatID, userID string) (domain.ParticipantRole, error)
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
	AddParticipants(ctx context.Context, chatID string, participants []domain.Participant) ([]string, error)
	RemoveParticipant(ctx context.Context, chatID, userID string) error
	UpdateName(ctx context.Context, chatID, name string) error
	DeleteChat(ctx context.Context, chatID string) error
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository create a gorm backed ChatRepository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// CreateChat insert chat and its initial participant edges in one tx
func (r *chatRepository) CreateChat(ctx context.Context, chat *domain.Chat) error {
	return r.db.WithContext(ctx).Create(chat).Error
}

// FindByID load chat with participants
func (r *chatRepository) FindByID(ctx context.Context, chatID string) (*domain.Chat, error) {
	var chat domain.Chat
	err := r.db.WithContext(ctx).Preload("Participants").First(&chat, "id = ?", chatID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errprocess.ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}

// FindPrivateChatBetween look up the private chat for the unordered
// pair {userA, userB}. Private-chat creation is idempotent by this
// lookup.
func (r *chatRepository) FindPrivateChatBetween(ctx context.Context, userA, userB string) (*domain.Chat, error) {
	var chat domain.Chat
	err := r.db.WithContext(ctx).
		Joins("JOIN chat_participants pa ON pa.chat_id = chats.id AND pa.user_id = ?", userA).
		Joins("JOIN chat_participants pb ON pb.chat_id = chats.id AND pb.user_id = ?", userB).
		Where("chats.kind = ?", domain.ChatKindPrivate).
		Preload("Participants").
		First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errprocess.ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}

// ListChatsOf chats the user currently participates in, newest first
func (r *chatRepository) ListChatsOf(ctx context.Context, userID string) ([]domain.Chat, error) {
	var chats []domain.Chat
	err := r.db.WithContext(ctx).
		Joins("JOIN chat_participants p ON p.chat_id = chats.id AND p.user_id = ?", userID).
		Preload("Participants").
		Order("chats.created_at DESC").
		Find(&chats).Error
	return chats, err
}

// ChatIDsOf ids of the chats the user participates in
func (r *chatRepository) ChatIDsOf(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("user_id = ?", userID).
		Pluck("chat_id", &ids).Error
	return ids, err
}

// ParticipantIDs point-in-time snapshot of the membership set. The
// router fans out to exactly this snapshot.
func (r *chatRepository) ParticipantIDs(ctx context.Context, chatID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("chat_id = ?", chatID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// RoleOf current role of the user in the chat, ErrNotFound when the
// user is not a participant
func (r *chatRepository) RoleOf(ctx context.Context, chatID, userID string) (domain.ParticipantRole, error) {
	var p domain.Participant
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errprocess.ErrNotFound
		}
		return "", err
	}
	return p.Role, nil
}

// IsParticipant membership check, always against current state
func (r *chatRepository) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&count).Error
	return count > 0, err
}

// AddParticipants insert edges for users not yet present, skipping
// existing members silently. Returns the ids actually newly added.
func (r *chatRepository) AddParticipants(ctx context.Context, chatID string, participants []domain.Participant) ([]string, error) {
	var added []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat domain.Chat
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&chat, "id = ?", chatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errprocess.ErrNotFound
			}
			return err
		}

		var existing []string
		if err := tx.Model(&domain.Participant{}).
			Where("chat_id = ?", chatID).
			Pluck("user_id", &existing).Error; err != nil {
			return err
		}
		present := make(map[string]struct{}, len(existing))
		for _, id := range existing {
			present[id] = struct{}{}
		}

		for _, p := range participants {
			if _, ok := present[p.UserID]; ok {
				continue
			}
			p.ChatID = chatID
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			added = append(added, p.UserID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// RemoveParticipant delete one membership edge
func (r *chatRepository) RemoveParticipant(ctx context.Context, chatID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat domain.Chat
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&chat, "id = ?", chatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errprocess.ErrNotFound
			}
			return err
		}

		res := tx.Where("chat_id = ? AND user_id = ?", chatID, userID).
			Delete(&domain.Participant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errprocess.ErrNotFound
		}
		return nil
	})
}

// UpdateName rename the chat
func (r *chatRepository) UpdateName(ctx context.Context, chatID, name string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ?", chatID).
		Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errprocess.ErrNotFound
	}
	return nil
}

// DeleteChat delete the chat, its edges and its messages
func (r *chatRepository) DeleteChat(ctx context.Context, chatID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat domain.Chat
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&chat, "id = ?", chatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errprocess.ErrNotFound
			}
			return err
		}

		if err := tx.Where("chat_id = ?", chatID).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&domain.Participant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Chat{}, "id = ?", chatID).Error
	})
}
