package router

import (
	"realtime_chat_service/internal/chat/app"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes register chat REST routes and the websocket endpoint
func RegisterRoutes(r *fiber.App, handler *app.ChatHTTPHandler, gateway *app.WSGateway) {
	chats := r.Group("/api/chats", middlewares.JWTMiddleware())
	chats.Post("/", handler.CreateChat)
	chats.Get("/", handler.ListChats)
	chats.Get("/:id", handler.GetChat)
	chats.Patch("/:id", handler.UpdateChat)
	chats.Delete("/:id", handler.DeleteChat)
	chats.Post("/:id/participants", handler.AddParticipants)
	chats.Delete("/:id/participants/:userID", handler.RemoveParticipant)
	chats.Post("/:id/leave", handler.Leave)
	chats.Get("/:id/messages", handler.History)
	chats.Post("/:id/messages", handler.SendMessage)
	chats.Post("/:id/read", handler.MarkAllRead)

	ws := r.Group("/ws", middlewares.JWTMiddleware(), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	ws.Get("/", websocket.New(gateway.HandleConnection))
}
