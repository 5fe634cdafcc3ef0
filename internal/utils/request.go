package utils

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
)

// ParamUUID разбирает UUID из параметра маршрута
func ParamUUID(c fiber.Ctx, name string) (uuid.UUID, error) {
	raw := c.Params(name)
	if raw == "" {
		return uuid.Nil, domainerrors.Validation("ID не указан")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domainerrors.Validation("Неверный формат ID")
	}
	return id, nil
}

// QueryInt читает целое из строки запроса; некорректное значение заменяется значением по умолчанию
func QueryInt(c fiber.Ctx, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// QueryList читает список через запятую, поддерживая и повтор параметра
func QueryList(c fiber.Ctx, key string) []string {
	var out []string
	c.Request().URI().QueryArgs().VisitAll(func(k, v []byte) {
		if string(k) != key {
			return
		}
		for _, part := range strings.Split(string(v), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	})
	return out
}

// BindBody разбирает тело запроса в dst
func BindBody(c fiber.Ctx, dst any) error {
	if err := c.Bind().Body(dst); err != nil {
		return domainerrors.Validation("Неверный формат данных")
	}
	return nil
}
