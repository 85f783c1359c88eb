package app

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"realtime_chat_service/internal/chat/domain"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"
)

// ChatHTTPHandler REST surface of the chat package. It calls the same
// use cases as the websocket loop, so the event fan-out is identical
// either way.
type ChatHTTPHandler struct {
	ChatUC    ChatUseCase
	MessageUC MessageUseCase
}

// NewChatHTTPHandler create ChatHTTPHandler
func NewChatHTTPHandler(chatUC ChatUseCase, messageUC MessageUseCase) *ChatHTTPHandler {
	return &ChatHTTPHandler{ChatUC: chatUC, MessageUC: messageUC}
}

type createChatRequest struct {
	Kind           string   `json:"kind"`
	Name           string   `json:"name"`
	ParticipantIDs []string `json:"participant_ids"`
}

type updateChatRequest struct {
	Name string `json:"name"`
}

type addParticipantsRequest struct {
	UserIDs []string `json:"user_ids"`
}

// CreateChat POST /api/chats
func (h *ChatHTTPHandler) CreateChat(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)

	var req createChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	chat, created, err := h.ChatUC.CreateChat(c.Context(), userID, domain.ChatKind(req.Kind), req.Name, req.ParticipantIDs)
	if err != nil {
		logger.Log.Error("create chat failed", zap.String("user", userID), zap.Error(err))
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(chat)
}

// ListChats GET /api/chats
func (h *ChatHTTPHandler) ListChats(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)

	summaries, err := h.ChatUC.ListChats(c.Context(), userID)
	if err != nil {
		logger.Log.Error("list chats failed", zap.String("user", userID), zap.Error(err))
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"chats": summaries})
}

// GetChat GET /api/chats/:id
func (h *ChatHTTPHandler) GetChat(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	chatID := c.Params("id")

	chat, err := h.ChatUC.GetChat(c.Context(), userID, chatID)
	if err != nil {
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(chat)
}

// UpdateChat PATCH /api/chats/:id
func (h *ChatHTTPHandler) UpdateChat(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	chatID := c.Params("id")

	var req updateChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	chat, err := h.ChatUC.UpdateChat(c.Context(), userID, chatID, req.Name)
	if err != nil {
		logger.Log.Error("update chat failed", zap.String("chat", chatID), zap.Error(err))
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(chat)
}

// DeleteChat DELETE /api/chats/:id
func (h *ChatHTTPHandler) DeleteChat(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	chatID := c.Params("id")

	if err := h.ChatUC.DeleteChat(c.Context(), userID, chatID); err != nil {
		logger.Log.Error("delete chat failed", zap.String("chat", chatID), zap.Error(err))
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "delete success"})
}

// AddParticipants POST /api/chats/:id/participants
func (h *ChatHTTPHandler) AddParticipants(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	chatID := c.Params("id")

	var req addParticipantsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if len(req.UserIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_ids is required"})
	}

	chat, err := h.ChatUC.AddParticipants(c.Context(), userID, chatID, req.UserIDs)
	if err != nil {
		logger.Log.Error("add participants failed", zap.String("chat", chatID), zap.Error(err))
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(chat)
}

// RemoveParticipant DELETE /api/chats/:id/participants/:userID
func (h *ChatHTTPHandler) RemoveParticipant(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	chatID := c.Params("id")
	targetID := c.Params("userID")

	if err := h.ChatUC.RemoveParticipant(c.Context(), userID, chatID, targetID); err != nil {
		logger.Log.Error("remove participant failed", zap.String("chat", chatID), zap.Error(err))
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "remove success"})
}

// Leave POST /api/chats/:id/leave
func (h *ChatHTTPHandler) Leave(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	chatID := c.Params("id")

	if err := h.ChatUC.Leave(c.Context(), userID, chatID); err != nil {
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "leave success"})
}

// History GET /api/chats/:id/messages
func (h *ChatHTTPHandler) History(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	chatID := c.Params("id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid limit"})
		}
		limit = n
	}

	msgs, err := h.MessageUC.History(c.Context(), userID, chatID, limit)
	if err != nil {
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

// SendMessage POST /api/chats/:id/messages
func (h *ChatHTTPHandler) SendMessage(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	chatID := c.Params("id")

	var payload domain.SendMessagePayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	payload.ChatID = chatID

	msg, err := h.MessageUC.Send(c.Context(), userID, payload)
	if err != nil {
		logger.Log.Error("send message failed", zap.String("chat", chatID), zap.Error(err))
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// MarkAllRead POST /api/chats/:id/read
func (h *ChatHTTPHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	chatID := c.Params("id")

	affected, err := h.MessageUC.MarkAllRead(c.Context(), userID, chatID)
	if err != nil {
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"marked": affected})
}

// statusFromErr maps the domain error taxonomy onto HTTP status codes.
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, errprocess.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, errprocess.ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, errprocess.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, errprocess.ErrInvalidOperation):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
