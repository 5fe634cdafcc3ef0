package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/rewear-api/internal/config"
	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
	"github.com/rajivgeraev/rewear-api/internal/session"
)

// Ключи c.Locals
const (
	localUserID  = "userID"
	localSession = "session"
)

// AuthMiddleware требует действующую сессию
func AuthMiddleware(manager *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, err := BearerToken(c)
		if err != nil {
			return err
		}

		sess, err := manager.Hydrate(c.Context(), token)
		if err != nil {
			return err
		}

		// Добавляем пользователя в контекст
		c.Locals(localUserID, sess.User.ID)
		c.Locals(localSession, sess)

		return c.Next()
	}
}

// OptionalAuth подгружает сессию, если токен передан и действителен
func OptionalAuth(manager *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, err := BearerToken(c)
		if err != nil {
			return c.Next()
		}
		if sess, err := manager.Hydrate(c.Context(), token); err == nil {
			c.Locals(localUserID, sess.User.ID)
			c.Locals(localSession, sess)
		}
		return c.Next()
	}
}

// AdminOnly пропускает только администраторов из ADMIN_USERNAMES.
// Ставится после AuthMiddleware.
func AdminOnly(cfg *config.Config) fiber.Handler {
	return func(c fiber.Ctx) error {
		sess := CurrentSession(c)
		if sess == nil {
			return domainerrors.Unauthorized("Пользователь не авторизован")
		}
		if !cfg.IsAdmin(sess.Profile.Username) {
			return domainerrors.Forbidden("Доступ только для администраторов")
		}
		return c.Next()
	}
}

// BearerToken извлекает токен из заголовка Authorization
func BearerToken(c fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", domainerrors.Unauthorized("Отсутствует заголовок авторизации")
	}

	// Проверяем Bearer токен
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", domainerrors.Unauthorized("Неверный формат заголовка авторизации")
	}
	return parts[1], nil
}

// UserID возвращает ID текущего пользователя
func UserID(c fiber.Ctx) (uuid.UUID, error) {
	id, ok := c.Locals(localUserID).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, domainerrors.Unauthorized("Пользователь не авторизован")
	}
	return id, nil
}

// CurrentSession возвращает сессию или nil для анонимного запроса
func CurrentSession(c fiber.Ctx) *session.Session {
	sess, _ := c.Locals(localSession).(*session.Session)
	return sess
}

// IsAdmin сообщает, что запрос выполняет администратор
func IsAdmin(c fiber.Ctx, cfg *config.Config) bool {
	sess := CurrentSession(c)
	return sess != nil && cfg.IsAdmin(sess.Profile.Username)
}
