package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
)

// UserDirectory minimal view of the account package needed here,
// wired to the account repository at startup.
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
	UsernameOf(ctx context.Context, userID string) (string, error)
}

// PresenceReader presence snapshot reads, served from the presence
// cache with the accounts table as fallback
type PresenceReader interface {
	Presence(ctx context.Context, userID string) (online bool, lastSeen *time.Time, err error)
}

// ChatUseCase chat lifecycle and membership operations. Every
// mutation ends with the matching event fan-out, the broadcast set is
// snapshotted per operation.
type ChatUseCase interface {
	CreateChat(ctx context.Context, creatorID string, kind domain.ChatKind, name string, participantIDs []string) (*domain.Chat, bool, error)
	GetChat(ctx context.Context, viewerID, chatID string) (*domain.Chat, error)
	ListChats(ctx context.Context, viewerID string) ([]domain.ChatSummary, error)
	UpdateChat(ctx context.Context, actorID, chatID, name string) (*domain.Chat, error)
	DeleteChat(ctx context.Context, actorID, chatID string) error
	AddParticipants(ctx context.Context, actorID, chatID string, userIDs []string) (*domain.Chat, error)
	RemoveParticipant(ctx context.Context, actorID, chatID, targetID string) error
	Leave(ctx context.Context, userID, chatID string) error
}

type chatUseCase struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	broadcaster Broadcaster
	presence    PresenceReader
	directory   UserDirectory
}

// NewChatUseCase create ChatUseCase
func NewChatUseCase(
	chatRepo repository.ChatRepository,
	messageRepo repository.MessageRepository,
	broadcaster Broadcaster,
	presence PresenceReader,
	directory UserDirectory,
) ChatUseCase {
	return &chatUseCase{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		broadcaster: broadcaster,
		presence:    presence,
		directory:   directory,
	}
}

// CreateChat create a private or group chat. Creating a private chat
// for a pair that already has one returns the existing chat; the bool
// result reports whether a chat was actually created.
func (uc *chatUseCase) CreateChat(ctx context.Context, creatorID string, kind domain.ChatKind, name string, participantIDs []string) (*domain.Chat, bool, error) {
	others := dedupeExcluding(participantIDs, creatorID)

	switch kind {
	case domain.ChatKindPrivate:
		if len(others) != 1 {
			return nil, false, errprocess.Wrap(errprocess.ErrInvalidOperation, "private chat requires exactly one other participant")
		}
	case domain.ChatKindGroup:
		if len(others) == 0 {
			return nil, false, errprocess.Wrap(errprocess.ErrInvalidOperation, "group chat requires at least one other participant")
		}
	default:
		return nil, false, errprocess.Wrap(errprocess.ErrInvalidOperation, "unknown chat kind")
	}

	for _, id := range others {
		ok, err := uc.directory.Exists(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, errprocess.Wrap(errprocess.ErrNotFound, "participant not found")
		}
	}

	if kind == domain.ChatKindPrivate {
		existing, err := uc.chatRepo.FindPrivateChatBetween(ctx, creatorID, others[0])
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, errprocess.ErrNotFound) {
			return nil, false, err
		}
	}

	chat := &domain.Chat{
		ID:        uuid.NewString(),
		Kind:      kind,
		Name:      name,
		CreatedBy: creatorID,
		Participants: []domain.Participant{
			{ID: uuid.NewString(), UserID: creatorID, Role: domain.RoleAdmin},
		},
	}
	memberRole := domain.RoleMember
	if kind == domain.ChatKindPrivate {
		// both sides of a private chat act as admins of it
		memberRole = domain.RoleAdmin
	}
	for _, id := range others {
		chat.Participants = append(chat.Participants, domain.Participant{
			ID:     uuid.NewString(),
			UserID: id,
			Role:   memberRole,
		})
	}
	for i := range chat.Participants {
		chat.Participants[i].ChatID = chat.ID
	}

	if err := uc.chatRepo.CreateChat(ctx, chat); err != nil {
		return nil, false, err
	}

	uc.broadcaster.Broadcast(ctx, chat.ID, domain.OutboundFrame{
		Type:    domain.EventChatNew,
		Payload: domain.ChatEventPayload{Chat: chat},
	}, creatorID)

	return chat, true, nil
}

// GetChat load one chat, participants only
func (uc *chatUseCase) GetChat(ctx context.Context, viewerID, chatID string) (*domain.Chat, error) {
	chat, err := uc.chatRepo.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(viewerID) {
		return nil, errprocess.Wrap(errprocess.ErrPermissionDenied, "not a participant of this chat")
	}
	return chat, nil
}

// ListChats the viewer's chats with unread counts and, for private
// chats, the counterpart's name and live presence.
func (uc *chatUseCase) ListChats(ctx context.Context, viewerID string) ([]domain.ChatSummary, error) {
	chats, err := uc.chatRepo.ListChatsOf(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary := domain.ChatSummary{Chat: chat, DisplayName: chat.Name}

		unread, err := uc.messageRepo.CountUnread(ctx, chat.ID, viewerID)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread

		if chat.Kind == domain.ChatKindPrivate {
			for _, p := range chat.Participants {
				if p.UserID == viewerID {
					continue
				}
				online, lastSeen, err := uc.presence.Presence(ctx, p.UserID)
				if err != nil {
					logger.Log.Warnf("list chats: presence of user(%s) unavailable: %v", p.UserID, err)
				} else {
					summary.OtherUserOnline = online
					summary.OtherUserLastSeen = lastSeen
				}
				name, err := uc.directory.UsernameOf(ctx, p.UserID)
				if err != nil {
					logger.Log.Warnf("list chats: resolve username of user(%s) failed: %v", p.UserID, err)
				} else {
					summary.DisplayName = name
				}
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// UpdateChat rename a group chat, admin only
func (uc *chatUseCase) UpdateChat(ctx context.Context, actorID, chatID, name string) (*domain.Chat, error) {
	chat, err := uc.chatRepo.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Kind != domain.ChatKindGroup {
		return nil, errprocess.Wrap(errprocess.ErrInvalidOperation, "only group chats can be renamed")
	}
	if err := uc.requireAdmin(ctx, chatID, actorID); err != nil {
		return nil, err
	}

	if err := uc.chatRepo.UpdateName(ctx, chatID, name); err != nil {
		return nil, err
	}
	chat.Name = name

	uc.broadcaster.Broadcast(ctx, chatID, domain.OutboundFrame{
		Type:    domain.EventChatUpdated,
		Payload: domain.ChatEventPayload{Chat: chat},
	}, actorID)

	return chat, nil
}

// DeleteChat delete a chat, admin only. The fan-out targets the
// membership snapshot taken before the delete.
func (uc *chatUseCase) DeleteChat(ctx context.Context, actorID, chatID string) error {
	chat, err := uc.chatRepo.FindByID(ctx, chatID)
	if err != nil {
		return err
	}
	if err := uc.requireAdmin(ctx, chatID, actorID); err != nil {
		return err
	}

	recipients := make([]string, 0, len(chat.Participants))
	for _, p := range chat.Participants {
		if p.UserID == actorID {
			continue
		}
		recipients = append(recipients, p.UserID)
	}

	if err := uc.chatRepo.DeleteChat(ctx, chatID); err != nil {
		return err
	}

	uc.broadcaster.BroadcastTo(recipients, domain.OutboundFrame{
		Type:    domain.EventChatDeleted,
		Payload: domain.ChatEventPayload{Chat: chat},
	})
	return nil
}

// AddParticipants add users to a group chat, admin only. Users already
// in the chat are skipped; newly added users get chat.new, everyone
// already present gets participant.added per new user.
func (uc *chatUseCase) AddParticipants(ctx context.Context, actorID, chatID string, userIDs []string) (*domain.Chat, error) {
	chat, err := uc.chatRepo.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Kind != domain.ChatKindGroup {
		return nil, errprocess.Wrap(errprocess.ErrInvalidOperation, "participants can only be added to group chats")
	}
	if err := uc.requireAdmin(ctx, chatID, actorID); err != nil {
		return nil, err
	}

	candidates := dedupeExcluding(userIDs, "")
	if len(candidates) == 0 {
		return chat, nil
	}
	for _, id := range candidates {
		ok, err := uc.directory.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errprocess.Wrap(errprocess.ErrNotFound, "participant not found")
		}
	}

	existingIDs := make([]string, 0, len(chat.Participants))
	for _, p := range chat.Participants {
		existingIDs = append(existingIDs, p.UserID)
	}

	edges := make([]domain.Participant, 0, len(candidates))
	for _, id := range candidates {
		edges = append(edges, domain.Participant{
			ID:     uuid.NewString(),
			UserID: id,
			Role:   domain.RoleMember,
		})
	}
	added, err := uc.chatRepo.AddParticipants(ctx, chatID, edges)
	if err != nil {
		return nil, err
	}

	updated, err := uc.chatRepo.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	newFrame := domain.OutboundFrame{
		Type:    domain.EventChatNew,
		Payload: domain.ChatEventPayload{Chat: updated},
	}
	uc.broadcaster.BroadcastTo(added, newFrame)

	for _, id := range added {
		uc.broadcaster.BroadcastTo(existingIDs, domain.OutboundFrame{
			Type: domain.EventParticipantAdded,
			Payload: domain.ParticipantEventPayload{
				ChatID: chatID,
				UserID: id,
				Role:   string(domain.RoleMember),
			},
		})
	}
	return updated, nil
}

// RemoveParticipant remove a user from a group chat, admin only.
// Admins cannot remove themselves, they leave instead.
func (uc *chatUseCase) RemoveParticipant(ctx context.Context, actorID, chatID, targetID string) error {
	chat, err := uc.chatRepo.FindByID(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.Kind != domain.ChatKindGroup {
		return errprocess.Wrap(errprocess.ErrInvalidOperation, "participants can only be removed from group chats")
	}
	if actorID == targetID {
		return errprocess.Wrap(errprocess.ErrInvalidOperation, "use leave to remove yourself")
	}
	if err := uc.requireAdmin(ctx, chatID, actorID); err != nil {
		return err
	}
	if !chat.HasParticipant(targetID) {
		return errprocess.Wrap(errprocess.ErrNotFound, "user is not a participant of this chat")
	}

	if err := uc.chatRepo.RemoveParticipant(ctx, chatID, targetID); err != nil {
		return err
	}

	uc.broadcaster.SendToUser(targetID, domain.OutboundFrame{
		Type:    domain.EventChatDeleted,
		Payload: domain.ChatEventPayload{Chat: chat},
	})
	uc.broadcaster.Broadcast(ctx, chatID, domain.OutboundFrame{
		Type: domain.EventParticipantRemoved,
		Payload: domain.ParticipantEventPayload{
			ChatID: chatID,
			UserID: targetID,
		},
	}, "")
	return nil
}

// Leave leave a group chat voluntarily. Private chats cannot be left,
// they are deleted.
func (uc *chatUseCase) Leave(ctx context.Context, userID, chatID string) error {
	chat, err := uc.chatRepo.FindByID(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.Kind != domain.ChatKindGroup {
		return errprocess.Wrap(errprocess.ErrInvalidOperation, "private chats cannot be left")
	}
	if !chat.HasParticipant(userID) {
		return errprocess.Wrap(errprocess.ErrPermissionDenied, "not a participant of this chat")
	}

	if err := uc.chatRepo.RemoveParticipant(ctx, chatID, userID); err != nil {
		return err
	}

	uc.broadcaster.Broadcast(ctx, chatID, domain.OutboundFrame{
		Type: domain.EventParticipantLeft,
		Payload: domain.ParticipantEventPayload{
			ChatID: chatID,
			UserID: userID,
		},
	}, "")
	return nil
}

func (uc *chatUseCase) requireAdmin(ctx context.Context, chatID, userID string) error {
	role, err := uc.chatRepo.RoleOf(ctx, chatID, userID)
	if err != nil {
		if errors.Is(err, errprocess.ErrNotFound) {
			return errprocess.Wrap(errprocess.ErrPermissionDenied, "not a participant of this chat")
		}
		return err
	}
	if role != domain.RoleAdmin {
		return errprocess.Wrap(errprocess.ErrPermissionDenied, "admin role required")
	}
	return nil
}

// dedupeExcluding unique ids preserving order, dropping skip
func dedupeExcluding(ids []string, skip string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == skip {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
