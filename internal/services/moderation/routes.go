package moderation

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты админ-панели
func (s *ModerationService) SetupRoutes(app *fiber.App, auth, adminOnly fiber.Handler) {
	// Группа для API администратора
	api := app.Group("/api/admin", auth, adminOnly)

	api.Get("/items/pending", s.GetPendingItems)
	api.Get("/items", s.GetAllItems)
	api.Put("/items/:id/status", s.UpdateItemStatus)
	api.Get("/stats", s.GetStats)
}
