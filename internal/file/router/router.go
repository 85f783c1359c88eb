package router

import (
	"realtime_chat_service/internal/file/app"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes register file upload routes
func RegisterRoutes(r *fiber.App, handler *app.FileHTTPHandler) {
	files := r.Group("/api/files", middlewares.JWTMiddleware())
	files.Post("/init", handler.Initiate)
	files.Post("/chunk", handler.UploadChunk)
	files.Post("/complete", handler.Complete)
	files.Get("/:id/url", handler.DownloadURL)
}
