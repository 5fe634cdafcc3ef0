package favorite

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты для API избранного
func (s *FavoriteService) SetupRoutes(app *fiber.App, auth fiber.Handler) {
	// Группа для API избранного, все маршруты требуют авторизации
	api := app.Group("/api/favorites", auth)

	// Маршрут для получения списка избранных вещей
	api.Get("/", s.GetFavorites)

	// Маршрут для добавления вещи в избранное
	api.Post("/", s.AddToFavorites)

	// Маршрут для удаления вещи из избранного
	api.Delete("/:id", s.RemoveFromFavorites)

	// Маршрут для проверки, находится ли вещь в избранном
	api.Get("/:id/check", s.CheckFavorite)
}
