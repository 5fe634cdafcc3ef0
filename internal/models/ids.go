package models

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// namespace пространство имён для детерминированных идентификаторов
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://rewear.app"))

// UserIDForEmail возвращает один и тот же ID для одного e-mail (без учёта регистра)
func UserIDForEmail(email string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("email:"+strings.ToLower(strings.TrimSpace(email))))
}

// UserIDForTelegram возвращает ID пользователя Telegram
func UserIDForTelegram(telegramID int64) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("telegram:"+strconv.FormatInt(telegramID, 10)))
}

// FixtureID возвращает ID демо-записи по её имени
func FixtureID(name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("fixture:"+name))
}
