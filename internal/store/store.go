// Package store описывает слой доступа к данным.
//
// Реализации: store/postgres (pgx + squirrel) и store/memory (демо и тесты).
// Все изменения статусов условные: если строка уже изменена другим запросом,
// метод возвращает ErrVersionConflict или ErrStaleState вместо тихой перезаписи.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rajivgeraev/rewear-api/internal/models"
)

var (
	ErrNotFound           = errors.New("store: not found")
	ErrDuplicate          = errors.New("store: duplicate")
	ErrVersionConflict    = errors.New("store: version conflict")
	ErrStaleState         = errors.New("store: stale state")
	ErrInsufficientPoints = errors.New("store: insufficient points")
)

// Repository операции над таблицами profiles, items, tags, swap_requests, points_log, favorites
type Repository interface {
	// Профили
	CreateProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetProfileByTelegramID(ctx context.Context, telegramID int64) (*models.Profile, error)
	GetProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Profile, error)
	UpdateProfile(ctx context.Context, p *models.Profile) error
	CountProfiles(ctx context.Context) (int, error)
	// AdjustPoints меняет баланс на delta и возвращает новый баланс.
	// Баланс не может стать отрицательным: ErrInsufficientPoints.
	AdjustPoints(ctx context.Context, userID uuid.UUID, delta int) (int, error)

	// Вещи
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	GetItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Item, error)
	// ListItems применяет фильтр, сортировку и пагинацию; total без учёта пагинации
	ListItems(ctx context.Context, q models.ItemQuery) (items []models.Item, total int, err error)
	// UpdateItemStatus меняет статус, если версия совпадает с expectedVersion
	UpdateItemStatus(ctx context.Context, id uuid.UUID, to models.ItemStatus, expectedVersion int) (*models.Item, error)
	// MarkItemSwapped переводит одобренную доступную вещь в swapped и снимает доступность
	MarkItemSwapped(ctx context.Context, id uuid.UUID) error
	CountItems(ctx context.Context, status models.ItemStatus) (int, error)
	ListTags(ctx context.Context) ([]models.Tag, error)

	// Обмены
	CreateSwap(ctx context.Context, s *models.SwapRequest) error
	GetSwap(ctx context.Context, id uuid.UUID) (*models.SwapRequest, error)
	ListSwaps(ctx context.Context, q models.SwapQuery) ([]models.SwapRequest, error)
	HasPendingSwap(ctx context.Context, requesterID, requestedItemID uuid.UUID) (bool, error)
	// UpdateSwapStatus меняет статус только если текущий равен from
	UpdateSwapStatus(ctx context.Context, id uuid.UUID, from, to models.SwapStatus) (*models.SwapRequest, error)
	CountSwaps(ctx context.Context, status models.SwapStatus) (int, error)

	// Журнал баллов
	AddPointsEntry(ctx context.Context, e *models.PointsEntry) error
	ListPoints(ctx context.Context, userID uuid.UUID) ([]models.PointsEntry, error)

	// Избранное
	AddFavorite(ctx context.Context, userID, itemID uuid.UUID) error
	RemoveFavorite(ctx context.Context, userID, itemID uuid.UUID) error
	IsFavorite(ctx context.Context, userID, itemID uuid.UUID) (bool, error)
	ListFavorites(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Favorite, int, error)
}

// Store хранилище с транзакциями
type Store interface {
	Repository
	// InTx выполняет fn в одной транзакции; ошибка fn откатывает все изменения
	InTx(ctx context.Context, fn func(r Repository) error) error
	Close()
}

// RecordPoints меняет баланс и пишет запись в журнал.
// Вызывать внутри InTx, чтобы сумма журнала всегда совпадала с балансом.
func RecordPoints(ctx context.Context, r Repository, e *models.PointsEntry) (int, error) {
	balance, err := r.AdjustPoints(ctx, e.UserID, e.Amount)
	if err != nil {
		return 0, err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := r.AddPointsEntry(ctx, e); err != nil {
		return 0, err
	}
	return balance, nil
}
