// Package logger настраивает zerolog для сервиса.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Ключи полей логов
const (
	SERVICE = "svc"
	EVENT   = "event"
	ID      = "id"
	USER    = "user"
	CODE    = "code"
	STATE   = "state"
)

// Config параметры логгера
type Config struct {
	Writer      io.Writer
	Level       string
	Environment string
}

// New создаёт логгер: консольный вывод для разработки, JSON для production
func New(cfg Config) zerolog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	if cfg.Environment == "development" || cfg.Environment == "dev" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// Setup создаёт логгер и делает его глобальным
func Setup(cfg Config) zerolog.Logger {
	l := New(cfg)
	log.Logger = l
	return l
}

// ParseLevel разбирает уровень логирования, по умолчанию info
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// For возвращает логгер сервиса: svc={name}
func For(name string) zerolog.Logger {
	return log.With().Str(SERVICE, name).Logger()
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
