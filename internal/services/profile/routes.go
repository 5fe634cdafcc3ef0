package profile

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты профиля
func (s *ProfileService) SetupRoutes(app *fiber.App, auth fiber.Handler) {
	// Публичная карточка пользователя
	app.Get("/api/users/:id", s.GetUser)

	// Защищенные маршруты
	api := app.Group("/api/profile", auth)
	api.Get("/", s.GetProfile)
	api.Put("/", s.UpdateProfile)
	api.Get("/points", s.GetPoints)
}
