package app

import (
	"errors"

	"realtime_chat_service/internal/account/domain"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AccountHTTPHandler REST boundary for registration and login
type AccountHTTPHandler struct {
	Usecase AccountUseCase
}

// NewAccountHTTPHandler create AccountHTTPHandler
func NewAccountHTTPHandler(uc AccountUseCase) *AccountHTTPHandler {
	return &AccountHTTPHandler{Usecase: uc}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	IsOnline   bool   `json:"is_online"`
	LastSeenAt string `json:"last_seen_at,omitempty"`
}

func toAccountResponse(a domain.Account) accountResponse {
	resp := accountResponse{
		UserID:    a.UserID,
		Username:  a.Username,
		AvatarURL: a.AvatarURL,
		IsOnline:  a.IsOnline,
	}
	if a.LastSeenAt != nil {
		resp.LastSeenAt = a.LastSeenAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// Register POST /api/auth/register
func (h *AccountHTTPHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing required fields"})
	}

	if err := h.Usecase.Register(c.Context(), req.Username, req.Email, req.Phone, req.Password); err != nil {
		logger.Log.Error("register failed", zap.String("email", req.Email), zap.Error(err))
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "create success"})
}

// Login POST /api/auth/login
func (h *AccountHTTPHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	token, err := h.Usecase.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		logger.Log.Error("login failed", zap.String("email", req.Email), zap.Error(err))
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"token": token})
}

// Search GET /api/users/search?q=
func (h *AccountHTTPHandler) Search(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return c.JSON([]accountResponse{})
	}

	accounts, err := h.Usecase.Search(c.Context(), q)
	if err != nil {
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}

	resp := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, toAccountResponse(a))
	}
	return c.JSON(resp)
}

// Me GET /api/users/me
func (h *AccountHTTPHandler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	account, err := h.Usecase.FindAccount(c.Context(), &domain.AccountQuery{UserID: &userID})
	if err != nil {
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(toAccountResponse(*account))
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
	case errors.Is(err, errprocess.ErrInvalidOperation), errors.Is(err, errprocess.ErrChecksumMismatch):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
