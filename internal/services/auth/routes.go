package auth

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes регистрирует маршруты в Fiber. limiter ограничивает частоту входов по IP.
func (s *AuthService) SetupRoutes(app *fiber.App, limiter fiber.Handler) {
	api := app.Group("/api/auth")

	api.Post("/signup", limiter, s.SignUpHandler)
	api.Post("/signin", limiter, s.SignInHandler)
	api.Post("/telegram", limiter, s.TelegramAuthHandler)
	api.Post("/signout", s.SignOutHandler)
	api.Get("/session", s.SessionHandler)
}
