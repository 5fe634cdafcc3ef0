package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/rajivgeraev/rewear-api/internal/config"
)

//go:embed schema.sql
var schema string

// Connect создаёт пул соединений с базой данных и проверяет подключение
func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	log.Info().
		Str("host", cfg.DatabaseConfig.Host).
		Str("database", cfg.DatabaseConfig.Name).
		Msg("Подключение к базе данных")

	// Создаем контекст с таймаутом для подключения
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка при разборе URL базы данных: %w", err)
	}

	// Дополнительная настройка пула соединений
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании пула соединений: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка при проверке соединения: %w", err)
	}

	log.Info().Msg("Успешное подключение к базе данных")
	return pool, nil
}

// Migrate создаёт таблицы, если их ещё нет
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ошибка применения схемы: %w", err)
	}
	return nil
}

// GetContext возвращает контекст с таймаутом для запросов к базе данных
func GetContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 5*time.Second)
}
