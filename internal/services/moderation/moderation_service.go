package moderation

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
	"github.com/rajivgeraev/rewear-api/internal/events"
	"github.com/rajivgeraev/rewear-api/internal/metrics"
	"github.com/rajivgeraev/rewear-api/internal/middleware"
	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/store"
	"github.com/rajivgeraev/rewear-api/internal/utils"
)

// StatusInput решение модератора
type StatusInput struct {
	Status  models.ItemStatus `json:"status"`
	Version int               `json:"version"`
}

// ModerationService сервис модерации вещей
type ModerationService struct {
	store   store.Store
	events  events.Publisher
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewModerationService создает новый экземпляр ModerationService
func NewModerationService(st store.Store, pub events.Publisher, m *metrics.Metrics, log zerolog.Logger) *ModerationService {
	return &ModerationService{store: st, events: pub, metrics: m, log: log}
}

// UpdateStatus одобряет или отклоняет вещь.
// Повтор текущего статуса ничего не меняет. expectedVersion = 0 означает версию,
// прочитанную в начале операции.
func (s *ModerationService) UpdateStatus(ctx context.Context, moderatorID, itemID uuid.UUID, target models.ItemStatus, expectedVersion int) (*models.Item, bool, error) {
	if target != models.ItemApproved && target != models.ItemRejected {
		return nil, false, domainerrors.Validation("Статус должен быть approved или rejected")
	}

	it, err := s.store.GetItem(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, domainerrors.NotFound("Вещь не найдена")
	}
	if err != nil {
		return nil, false, domainerrors.Internal("Ошибка получения вещи", err)
	}

	if it.Status == target {
		return it, false, nil
	}
	if expectedVersion == 0 {
		expectedVersion = it.Version
	}
	if expectedVersion != it.Version {
		return nil, false, domainerrors.VersionConflict("Вещь уже изменена другим модератором")
	}
	if !it.Status.CanTransition(target) {
		return nil, false, domainerrors.InvalidTransition("Недопустимый переход статуса: " + string(it.Status) + " -> " + string(target))
	}

	updated, err := s.store.UpdateItemStatus(ctx, itemID, target, expectedVersion)
	switch {
	case errors.Is(err, store.ErrVersionConflict):
		return nil, false, domainerrors.VersionConflict("Вещь уже изменена другим модератором")
	case errors.Is(err, store.ErrNotFound):
		return nil, false, domainerrors.NotFound("Вещь не найдена")
	case err != nil:
		return nil, false, domainerrors.Internal("Ошибка обновления статуса", err)
	}

	s.metrics.ModerationDecisions.WithLabelValues(string(target)).Inc()
	e := events.New(events.ItemModerated, itemID, moderatorID, map[string]any{"status": target, "version": updated.Version})
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("id", itemID.String()).Msg("Не удалось опубликовать событие модерации")
	}
	s.log.Info().Str("event", "item_moderated").Str("id", itemID.String()).Str("state", string(target)).Msg("Статус вещи изменён")
	return updated, true, nil
}

// PendingItems возвращает вещи, ожидающие модерации, старые первыми
func (s *ModerationService) PendingItems(ctx context.Context, limit, offset int) (*models.ItemPage, error) {
	return s.list(ctx, models.ItemQuery{Status: models.ItemPending, Sort: models.SortOldest, Limit: limit, Offset: offset})
}

// AllItems возвращает вещи в любом статусе с фильтром и поиском
func (s *ModerationService) AllItems(ctx context.Context, q models.ItemQuery) (*models.ItemPage, error) {
	return s.list(ctx, q)
}

// Stats сводка для админ-панели
func (s *ModerationService) Stats(ctx context.Context) (*models.Stats, error) {
	var st models.Stats
	var err error
	if st.ApprovedItems, err = s.store.CountItems(ctx, models.ItemApproved); err != nil {
		return nil, domainerrors.Internal("Ошибка подсчёта вещей", err)
	}
	if st.PendingItems, err = s.store.CountItems(ctx, models.ItemPending); err != nil {
		return nil, domainerrors.Internal("Ошибка подсчёта вещей", err)
	}
	if st.Users, err = s.store.CountProfiles(ctx); err != nil {
		return nil, domainerrors.Internal("Ошибка подсчёта пользователей", err)
	}
	if st.CompletedSwaps, err = s.store.CountSwaps(ctx, models.SwapCompleted); err != nil {
		return nil, domainerrors.Internal("Ошибка подсчёта обменов", err)
	}
	return &st, nil
}

func (s *ModerationService) list(ctx context.Context, q models.ItemQuery) (*models.ItemPage, error) {
	q = q.Normalize()
	items, total, err := s.store.ListItems(ctx, q)
	if err != nil {
		return nil, domainerrors.Internal("Ошибка получения вещей", err)
	}
	if err := store.AttachOwners(ctx, s.store, items); err != nil {
		return nil, domainerrors.Internal("Ошибка получения владельцев", err)
	}
	return &models.ItemPage{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

// UpdateItemStatus обрабатывает решение модератора
func (s *ModerationService) UpdateItemStatus(c fiber.Ctx) error {
	moderatorID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	itemID, err := utils.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	var in StatusInput
	if err := utils.BindBody(c, &in); err != nil {
		return err
	}

	it, changed, err := s.UpdateStatus(c.Context(), moderatorID, itemID, in.Status, in.Version)
	if err != nil {
		return err
	}

	message := "Статус вещи обновлён"
	if !changed {
		message = "Статус не изменился"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"changed": changed,
		"item":    it,
		"message": message,
	})
}

// GetPendingItems возвращает очередь модерации
func (s *ModerationService) GetPendingItems(c fiber.Ctx) error {
	page, err := s.PendingItems(c.Context(), utils.QueryInt(c, "limit", models.DefaultPageLimit), utils.QueryInt(c, "offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// GetAllItems возвращает все вещи для админ-панели
func (s *ModerationService) GetAllItems(c fiber.Ctx) error {
	q := models.ItemQuery{
		Search: c.Query("search"),
		Sort:   models.SortOrder(c.Query("sort")),
		Limit:  utils.QueryInt(c, "limit", models.DefaultPageLimit),
		Offset: utils.QueryInt(c, "offset", 0),
	}
	if status := c.Query("status", "all"); status != "all" {
		q.Status = models.ItemStatus(status)
		if !q.Status.Valid() {
			return domainerrors.Validation("Неизвестный статус")
		}
	}

	page, err := s.AllItems(c.Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// GetStats возвращает сводку
func (s *ModerationService) GetStats(c fiber.Ctx) error {
	st, err := s.Stats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(st)
}
