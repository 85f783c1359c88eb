package router

import (
	"realtime_chat_service/internal/account/app"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes register account routes
func RegisterRoutes(r *fiber.App, handler *app.AccountHTTPHandler) {
	auth := r.Group("/api/auth")
	auth.Post("/register", handler.Register)
	auth.Post("/login", handler.Login)

	users := r.Group("/api/users", middlewares.JWTMiddleware())
	users.Get("/search", handler.Search)
	users.Get("/me", handler.Me)
}
