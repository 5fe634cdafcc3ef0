// Package postgres реализует store.Store поверх pgx и squirrel.
package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajivgeraev/rewear-api/internal/db"
	"github.com/rajivgeraev/rewear-api/internal/store"
)

// Коды ошибок PostgreSQL
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// dbtx общий интерфейс пула и транзакции
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queries выполняет запросы через пул или внутри транзакции
type queries struct {
	db dbtx
}

var _ store.Repository = (*queries)(nil)

// Store хранилище PostgreSQL
type Store struct {
	*queries
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New создаёт хранилище поверх пула соединений
func New(pool *pgxpool.Pool) *Store {
	return &Store{queries: &queries{db: pool}, pool: pool}
}

// InTx выполняет fn в транзакции
func (s *Store) InTx(ctx context.Context, fn func(r store.Repository) error) error {
	ctx, cancel := db.GetContext(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) // Откатываем транзакцию в случае ошибки

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Close закрывает пул соединений
func (s *Store) Close() {
	s.pool.Close()
}

// translate переводит ошибки pgx в ошибки хранилища
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s", store.ErrNotFound, pgErr.ConstraintName)
		case checkViolation:
			if pgErr.ConstraintName == "profiles_points_check" {
				return store.ErrInsufficientPoints
			}
		}
	}
	return err
}

// exists проверяет наличие строки по id; нужен, чтобы отличить NOT_FOUND от конфликта
func (q *queries) exists(ctx context.Context, table, id any) (bool, error) {
	var ok bool
	err := q.db.QueryRow(ctx, fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)", table), id).Scan(&ok)
	return ok, err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
