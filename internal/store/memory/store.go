// Package memory хранит данные в памяти процесса.
//
// Используется для демо-режима (STORAGE_DRIVER=memory) и в тестах сервисов.
// Каждая запись выполняется как транзакция над копией снимка; читатели видят
// только зафиксированные снимки.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/store"
)

// Store хранилище в памяти
type Store struct {
	mu   sync.RWMutex // защищает указатель data
	txMu sync.Mutex   // сериализует записи
	data *dataset
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// Option настройка хранилища
type Option func(*Store)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New создаёт пустое хранилище
func New(opts ...Option) *Store {
	s := &Store{data: newDataset(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InTx выполняет fn над копией данных и публикует её только при успехе
func (s *Store) InTx(_ context.Context, fn func(r store.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	draft := s.data.clone()
	s.mu.RUnlock()

	if err := fn(&repo{d: draft, now: s.now}); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = draft
	s.mu.Unlock()
	return nil
}

// Close ничего не освобождает
func (s *Store) Close() {}

func (s *Store) read() *repo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &repo{d: s.data, now: s.now}
}

func (s *Store) write(ctx context.Context, fn func(r store.Repository) error) error {
	return s.InTx(ctx, fn)
}

func (s *Store) CreateProfile(ctx context.Context, p *models.Profile) error {
	return s.write(ctx, func(r store.Repository) error { return r.CreateProfile(ctx, p) })
}

func (s *Store) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return s.read().GetProfile(ctx, id)
}

func (s *Store) GetProfileByTelegramID(ctx context.Context, telegramID int64) (*models.Profile, error) {
	return s.read().GetProfileByTelegramID(ctx, telegramID)
}

func (s *Store) GetProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Profile, error) {
	return s.read().GetProfiles(ctx, ids)
}

func (s *Store) UpdateProfile(ctx context.Context, p *models.Profile) error {
	return s.write(ctx, func(r store.Repository) error { return r.UpdateProfile(ctx, p) })
}

func (s *Store) CountProfiles(ctx context.Context) (int, error) {
	return s.read().CountProfiles(ctx)
}

func (s *Store) AdjustPoints(ctx context.Context, userID uuid.UUID, delta int) (balance int, err error) {
	err = s.write(ctx, func(r store.Repository) error {
		balance, err = r.AdjustPoints(ctx, userID, delta)
		return err
	})
	return balance, err
}

func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	return s.write(ctx, func(r store.Repository) error { return r.CreateItem(ctx, item) })
}

func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return s.read().GetItem(ctx, id)
}

func (s *Store) GetItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Item, error) {
	return s.read().GetItems(ctx, ids)
}

func (s *Store) ListItems(ctx context.Context, q models.ItemQuery) ([]models.Item, int, error) {
	return s.read().ListItems(ctx, q)
}

func (s *Store) UpdateItemStatus(ctx context.Context, id uuid.UUID, to models.ItemStatus, expectedVersion int) (item *models.Item, err error) {
	err = s.write(ctx, func(r store.Repository) error {
		item, err = r.UpdateItemStatus(ctx, id, to, expectedVersion)
		return err
	})
	return item, err
}

func (s *Store) MarkItemSwapped(ctx context.Context, id uuid.UUID) error {
	return s.write(ctx, func(r store.Repository) error { return r.MarkItemSwapped(ctx, id) })
}

func (s *Store) CountItems(ctx context.Context, status models.ItemStatus) (int, error) {
	return s.read().CountItems(ctx, status)
}

func (s *Store) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.read().ListTags(ctx)
}

func (s *Store) CreateSwap(ctx context.Context, sw *models.SwapRequest) error {
	return s.write(ctx, func(r store.Repository) error { return r.CreateSwap(ctx, sw) })
}

func (s *Store) GetSwap(ctx context.Context, id uuid.UUID) (*models.SwapRequest, error) {
	return s.read().GetSwap(ctx, id)
}

func (s *Store) ListSwaps(ctx context.Context, q models.SwapQuery) ([]models.SwapRequest, error) {
	return s.read().ListSwaps(ctx, q)
}

func (s *Store) HasPendingSwap(ctx context.Context, requesterID, requestedItemID uuid.UUID) (bool, error) {
	return s.read().HasPendingSwap(ctx, requesterID, requestedItemID)
}

func (s *Store) UpdateSwapStatus(ctx context.Context, id uuid.UUID, from, to models.SwapStatus) (sw *models.SwapRequest, err error) {
	err = s.write(ctx, func(r store.Repository) error {
		sw, err = r.UpdateSwapStatus(ctx, id, from, to)
		return err
	})
	return sw, err
}

func (s *Store) CountSwaps(ctx context.Context, status models.SwapStatus) (int, error) {
	return s.read().CountSwaps(ctx, status)
}

func (s *Store) AddPointsEntry(ctx context.Context, e *models.PointsEntry) error {
	return s.write(ctx, func(r store.Repository) error { return r.AddPointsEntry(ctx, e) })
}

func (s *Store) ListPoints(ctx context.Context, userID uuid.UUID) ([]models.PointsEntry, error) {
	return s.read().ListPoints(ctx, userID)
}

func (s *Store) AddFavorite(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.write(ctx, func(r store.Repository) error { return r.AddFavorite(ctx, userID, itemID) })
}

func (s *Store) RemoveFavorite(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.write(ctx, func(r store.Repository) error { return r.RemoveFavorite(ctx, userID, itemID) })
}

func (s *Store) IsFavorite(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	return s.read().IsFavorite(ctx, userID, itemID)
}

func (s *Store) ListFavorites(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Favorite, int, error) {
	return s.read().ListFavorites(ctx, userID, limit, offset)
}
