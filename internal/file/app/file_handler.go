package app

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"
)

// FileHTTPHandler REST boundary for chunked uploads
type FileHTTPHandler struct {
	Usecase UploadUseCase
}

// NewFileHTTPHandler create FileHTTPHandler
func NewFileHTTPHandler(uc UploadUseCase) *FileHTTPHandler {
	return &FileHTTPHandler{Usecase: uc}
}

type initiateRequest struct {
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
}

type completeRequest struct {
	FileID   string `json:"file_id"`
	Checksum string `json:"checksum"`
}

// Upload protocol headers
const (
	HeaderFileID     = "X-File-Id"
	HeaderChunkIndex = "X-Chunk-Index"
)

// Initiate POST /api/files/init
func (h *FileHTTPHandler) Initiate(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)

	var req initiateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	upload, err := h.Usecase.Initiate(c.Context(), userID, req.FileName, req.MimeType, req.FileSize)
	if err != nil {
		logger.Log.Error("initiate upload failed", zap.String("user", userID), zap.Error(err))
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(upload)
}

// UploadChunk POST /api/files/chunk
// The upload and chunk position ride in X-File-Id and X-Chunk-Index
// headers, the body is the raw chunk bytes.
func (h *FileHTTPHandler) UploadChunk(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)

	fileID := c.Get(HeaderFileID)
	if fileID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing " + HeaderFileID + " header"})
	}
	index, err := strconv.Atoi(c.Get(HeaderChunkIndex))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid " + HeaderChunkIndex + " header"})
	}

	if err := h.Usecase.SaveChunk(c.Context(), userID, fileID, index, bytes.NewReader(c.Body())); err != nil {
		logger.Log.Error("save chunk failed",
			zap.String("file", fileID), zap.Int("index", index), zap.Error(err))
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "chunk accepted"})
}

// Complete POST /api/files/complete
func (h *FileHTTPHandler) Complete(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)

	var req completeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if req.FileID == "" || req.Checksum == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file_id and checksum are required"})
	}

	upload, err := h.Usecase.Complete(c.Context(), userID, req.FileID, req.Checksum)
	if err != nil {
		logger.Log.Error("complete upload failed", zap.String("file", req.FileID), zap.Error(err))
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(upload)
}

// DownloadURL GET /api/files/:id/url
func (h *FileHTTPHandler) DownloadURL(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	fileID := c.Params("id")

	url, err := h.Usecase.DownloadURL(c.Context(), userID, fileID)
	if err != nil {
		return c.Status(statusFromErr(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"url": url})
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
