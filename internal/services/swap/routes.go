package swap

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты для API обменов
func (s *SwapService) SetupRoutes(app *fiber.App, auth fiber.Handler) {
	// Группа для API обменов, все маршруты требуют авторизации
	api := app.Group("/api/swaps", auth)

	api.Post("/", s.CreateSwap)
	api.Get("/", s.GetMySwaps)
	api.Put("/:id/status", s.UpdateSwapStatus)
}
