package upload

import "github.com/gofiber/fiber/v3"

// SetupRoutes настраивает маршруты загрузки изображений
func (s *UploadService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	// Загрузка через сервер
	app.Post("/api/uploads/images", authMiddleware, s.UploadImages)

	// Параметры для загрузки напрямую в Cloudinary
	app.Get("/api/upload/params", authMiddleware, s.GenerateUploadParams)
}
