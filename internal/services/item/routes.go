package item

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты каталога вещей
func (s *ItemService) SetupRoutes(app *fiber.App, auth, optionalAuth fiber.Handler) {
	// Публичные маршруты
	app.Get("/api/items", s.BrowseItems)
	app.Get("/api/tags", s.GetTags)
	app.Get("/api/users/:id/items", s.GetUserItems)

	// Защищенные маршруты (требуют авторизации)
	app.Post("/api/items", auth, s.CreateItem)
	app.Get("/api/items/my", auth, s.GetMyItems)

	// Неодобренную вещь видит только владелец
	app.Get("/api/items/:id", optionalAuth, s.GetItem)
}
