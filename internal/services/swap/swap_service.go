package swap

import (
	"context"
	"errors"
	"fmt"

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
	"github.com/rajivgeraev/rewear-api/internal/validation"
)

// CreateSwapInput данные предложения обмена: либо своя вещь, либо баллы
type CreateSwapInput struct {
	RequestedItemID uuid.UUID  `json:"requested_item_id" validate:"required"`
	OfferedItemID   *uuid.UUID `json:"offered_item_id"`
	PointsOffered   int        `json:"points_offered" validate:"gte=0"`
	Message         string     `json:"message" validate:"max=1000"`
}

// StatusInput новый статус обмена
type StatusInput struct {
	Status models.SwapStatus `json:"status"`
}

// SwapService представляет сервис для работы с обменами
type SwapService struct {
	store    store.Store
	events   events.Publisher
	metrics  *metrics.Metrics
	validate *validation.Validator
	log      zerolog.Logger
}

// NewSwapService создает новый экземпляр SwapService
func NewSwapService(st store.Store, pub events.Publisher, m *metrics.Metrics, v *validation.Validator, log zerolog.Logger) *SwapService {
	return &SwapService{store: st, events: pub, metrics: m, validate: v, log: log}
}

// Create создаёт предложение обмена со статусом pending
func (s *SwapService) Create(ctx context.Context, requesterID uuid.UUID, in CreateSwapInput) (*models.SwapRequest, error) {
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}
	if (in.OfferedItemID != nil) == (in.PointsOffered > 0) {
		return nil, domainerrors.Validation("Предложите либо свою вещь, либо баллы")
	}

	sw := &models.SwapRequest{
		ID:              uuid.New(),
		RequesterID:     requesterID,
		RequestedItemID: in.RequestedItemID,
		OfferedItemID:   in.OfferedItemID,
		PointsOffered:   in.PointsOffered,
		Message:         in.Message,
		Status:          models.SwapPending,
	}

	err := s.store.InTx(ctx, func(r store.Repository) error {
		requested, err := availableItem(ctx, r, in.RequestedItemID, "Запрошенная вещь")
		if err != nil {
			return err
		}
		if requested.UserID == requesterID {
			return domainerrors.Validation("Вы не можете предложить обмен самому себе")
		}
		sw.OwnerID = requested.UserID

		if in.OfferedItemID != nil {
			if *in.OfferedItemID == in.RequestedItemID {
				return domainerrors.Validation("Нельзя обменять вещь саму на себя")
			}
			offered, err := availableItem(ctx, r, *in.OfferedItemID, "Предложенная вещь")
			if err != nil {
				return err
			}
			if offered.UserID != requesterID {
				return domainerrors.Forbidden("Вы не можете предложить чужую вещь для обмена")
			}
		} else if err := ensureBalance(ctx, r, requesterID, in.PointsOffered); err != nil {
			return err
		}

		pending, err := r.HasPendingSwap(ctx, requesterID, in.RequestedItemID)
		if err != nil {
			return err
		}
		if pending {
			return domainerrors.AlreadyExists("Такое предложение обмена уже существует")
		}
		return r.CreateSwap(ctx, sw)
	})
	if err != nil {
		return nil, translate(err, "Ошибка сохранения предложения обмена")
	}

	s.transitioned(ctx, sw, requesterID)
	return sw, nil
}

// UpdateStatus меняет статус обмена от имени участника.
// Владелец принимает и отклоняет, инициатор отменяет, завершить может любой участник.
func (s *SwapService) UpdateStatus(ctx context.Context, actorID, swapID uuid.UUID, target models.SwapStatus) (*models.SwapRequest, error) {
	if !target.Valid() || target == models.SwapPending {
		return nil, domainerrors.Validation("Неизвестный статус обмена")
	}

	sw, err := s.store.GetSwap(ctx, swapID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("Предложение обмена не найдено")
	}
	if err != nil {
		return nil, domainerrors.Internal("Ошибка получения обмена", err)
	}
	if !sw.IsParticipant(actorID) {
		return nil, domainerrors.Forbidden("У вас нет доступа к этому обмену")
	}
	if err := authorize(sw, actorID, target); err != nil {
		return nil, err
	}
	if sw.Status.IsFinal() {
		return nil, domainerrors.InvalidTransition(fmt.Sprintf("Обмен уже закрыт со статусом %s", sw.Status))
	}
	if !sw.Status.CanTransition(target) {
		return nil, domainerrors.InvalidTransition(fmt.Sprintf("Недопустимый переход статуса: %s -> %s", sw.Status, target))
	}

	if target == models.SwapCompleted {
		return s.complete(ctx, actorID, sw)
	}

	var updated *models.SwapRequest
	err = s.store.InTx(ctx, func(r store.Repository) error {
		if target == models.SwapAccepted {
			if err := recheck(ctx, r, sw); err != nil {
				return err
			}
		}
		var err error
		updated, err = r.UpdateSwapStatus(ctx, sw.ID, sw.Status, target)
		return err
	})
	if err != nil {
		return nil, translate(err, "Ошибка обновления статуса обмена")
	}

	s.transitioned(ctx, updated, actorID)
	return updated, nil
}

// complete завершает принятый обмен одной транзакцией: статус, вещи, баллы и журнал
func (s *SwapService) complete(ctx context.Context, actorID uuid.UUID, sw *models.SwapRequest) (*models.SwapRequest, error) {
	var (
		updated *models.SwapRequest
		ledger  []models.PointsEntry
	)
	swapID := sw.ID

	err := s.store.InTx(ctx, func(r store.Repository) error {
		var err error
		updated, err = r.UpdateSwapStatus(ctx, sw.ID, models.SwapAccepted, models.SwapCompleted)
		if err != nil {
			return err
		}

		if err := r.MarkItemSwapped(ctx, sw.RequestedItemID); err != nil {
			return itemGone(err)
		}
		if sw.OfferedItemID != nil {
			if err := r.MarkItemSwapped(ctx, *sw.OfferedItemID); err != nil {
				return itemGone(err)
			}
		}

		entries := make([]models.PointsEntry, 0, 4)
		if sw.IsPointsOffer() {
			entries = append(entries,
				models.PointsEntry{UserID: sw.RequesterID, Amount: -sw.PointsOffered, TransactionType: models.TransactionSpent, Description: "Оплата обмена баллами"},
				models.PointsEntry{UserID: sw.OwnerID, Amount: sw.PointsOffered, TransactionType: models.TransactionEarned, Description: "Получены баллы за обмен"},
			)
		}
		entries = append(entries,
			models.PointsEntry{UserID: sw.RequesterID, Amount: models.SwapCompletionBonus, TransactionType: models.TransactionEarned, Description: "Бонус за завершённый обмен"},
			models.PointsEntry{UserID: sw.OwnerID, Amount: models.SwapCompletionBonus, TransactionType: models.TransactionEarned, Description: "Бонус за завершённый обмен"},
		)

		for i := range entries {
			entries[i].SwapRequestID = &swapID
			if _, err := store.RecordPoints(ctx, r, &entries[i]); err != nil {
				return err
			}
			ledger = append(ledger, entries[i])
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "Ошибка завершения обмена")
	}

	s.transitioned(ctx, updated, actorID)
	s.publish(ctx, events.New(events.ItemSwapped, sw.RequestedItemID, actorID, map[string]any{"swap_id": swapID}))
	if sw.OfferedItemID != nil {
		s.publish(ctx, events.New(events.ItemSwapped, *sw.OfferedItemID, actorID, map[string]any{"swap_id": swapID}))
	}
	for _, e := range ledger {
		amount := e.Amount
		if amount < 0 {
			amount = -amount
		}
		s.metrics.PointsMoved.WithLabelValues(string(e.TransactionType)).Add(float64(amount))
		s.publish(ctx, events.New(events.PointsChanged, e.UserID, actorID, map[string]any{
			"amount": e.Amount, "type": e.TransactionType, "swap_id": swapID,
		}))
	}
	return updated, nil
}

// List возвращает обмены пользователя, новые первыми, с вещами и профилями участников
func (s *SwapService) List(ctx context.Context, q models.SwapQuery) ([]models.SwapRequest, error) {
	swaps, err := s.store.ListSwaps(ctx, q)
	if err != nil {
		return nil, domainerrors.Internal("Ошибка получения обменов", err)
	}
	if err := s.enrich(ctx, swaps); err != nil {
		return nil, domainerrors.Internal("Ошибка получения данных обменов", err)
	}
	return swaps, nil
}

func (s *SwapService) enrich(ctx context.Context, swaps []models.SwapRequest) error {
	if len(swaps) == 0 {
		return nil
	}
	var itemIDs, userIDs []uuid.UUID
	for _, sw := range swaps {
		itemIDs = append(itemIDs, sw.RequestedItemID)
		if sw.OfferedItemID != nil {
			itemIDs = append(itemIDs, *sw.OfferedItemID)
		}
		userIDs = append(userIDs, sw.RequesterID, sw.OwnerID)
	}

	items, err := s.store.GetItems(ctx, itemIDs)
	if err != nil {
		return err
	}
	profiles, err := s.store.GetProfiles(ctx, userIDs)
	if err != nil {
		return err
	}

	for i := range swaps {
		sw := &swaps[i]
		sw.RequestedItem = items[sw.RequestedItemID]
		if sw.OfferedItemID != nil {
			sw.OfferedItem = items[*sw.OfferedItemID]
		}
		if p, ok := profiles[sw.RequesterID]; ok {
			sw.Requester = p.Summary()
		}
		if p, ok := profiles[sw.OwnerID]; ok {
			sw.Owner = p.Summary()
		}
	}
	return nil
}

func (s *SwapService) transitioned(ctx context.Context, sw *models.SwapRequest, actorID uuid.UUID) {
	s.metrics.SwapTransitions.WithLabelValues(string(sw.Status)).Inc()
	s.publish(ctx, events.New(events.SwapEvent(string(sw.Status)), sw.ID, actorID, map[string]any{
		"requester_id":      sw.RequesterID,
		"owner_id":          sw.OwnerID,
		"requested_item_id": sw.RequestedItemID,
	}))
	s.log.Info().Str("event", "swap_"+string(sw.Status)).Str("id", sw.ID.String()).Str("user", actorID.String()).Msg("Статус обмена изменён")
}

func (s *SwapService) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("event", string(e.Type)).Msg("Не удалось опубликовать событие")
	}
}

// authorize проверяет, кто из участников может выполнить переход
func authorize(sw *models.SwapRequest, actorID uuid.UUID, target models.SwapStatus) error {
	switch target {
	case models.SwapAccepted, models.SwapRejected:
		if sw.OwnerID != actorID {
			return domainerrors.Forbidden("Только владелец вещи может принять или отклонить обмен")
		}
	case models.SwapCancelled:
		if sw.RequesterID != actorID {
			return domainerrors.Forbidden("Только инициатор может отменить обмен")
		}
	}
	return nil
}

// recheck повторяет проверки создания перед принятием обмена
func recheck(ctx context.Context, r store.Repository, sw *models.SwapRequest) error {
	if _, err := availableItem(ctx, r, sw.RequestedItemID, "Запрошенная вещь"); err != nil {
		return err
	}
	if sw.OfferedItemID != nil {
		_, err := availableItem(ctx, r, *sw.OfferedItemID, "Предложенная вещь")
		return err
	}
	if sw.IsPointsOffer() {
		return ensureBalance(ctx, r, sw.RequesterID, sw.PointsOffered)
	}
	return nil
}

func availableItem(ctx context.Context, r store.Repository, id uuid.UUID, what string) (*models.Item, error) {
	it, err := r.GetItem(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound(what + " не найдена")
	}
	if err != nil {
		return nil, err
	}
	if !it.IsBrowsable() {
		return nil, domainerrors.Conflict(what + " недоступна для обмена")
	}
	return it, nil
}

func ensureBalance(ctx context.Context, r store.Repository, userID uuid.UUID, points int) error {
	p, err := r.GetProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound("Профиль не найден")
	}
	if err != nil {
		return err
	}
	if p.Points < points {
		return domainerrors.InsufficientPoints(fmt.Sprintf("Недостаточно баллов: нужно %d, доступно %d", points, p.Points))
	}
	return nil
}

func itemGone(err error) error {
	if errors.Is(err, store.ErrStaleState) || errors.Is(err, store.ErrNotFound) {
		return domainerrors.Conflict("Вещь уже недоступна для обмена")
	}
	return err
}

// translate превращает ошибки хранилища в доменные
func translate(err error, msg string) error {
	var de *domainerrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, store.ErrStaleState):
		return domainerrors.Conflict("Статус обмена уже изменён")
	case errors.Is(err, store.ErrInsufficientPoints):
		return domainerrors.InsufficientPoints("Недостаточно баллов для завершения обмена")
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound("Предложение обмена не найдено")
	}
	return domainerrors.Internal(msg, err)
}

// CreateSwap обрабатывает создание предложения обмена
func (s *SwapService) CreateSwap(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var in CreateSwapInput
	if err := utils.BindBody(c, &in); err != nil {
		return err
	}

	sw, err := s.Create(c.Context(), userID, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"swap":    sw,
		"message": "Предложение обмена успешно создано",
	})
}

// GetMySwaps возвращает входящие и исходящие предложения обмена
func (s *SwapService) GetMySwaps(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	q := models.SwapQuery{UserID: userID, Direction: models.SwapDirection(c.Query("type", "all"))}
	switch q.Direction {
	case models.SwapIncoming, models.SwapOutgoing, models.SwapAll:
	default:
		return domainerrors.Validation("Тип должен быть incoming, outgoing или all")
	}
	if status := c.Query("status", "all"); status != "all" {
		q.Status = models.SwapStatus(status)
		if !q.Status.Valid() {
			return domainerrors.Validation("Неизвестный статус обмена")
		}
	}

	swaps, err := s.List(c.Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"swaps": swaps})
}

// UpdateSwapStatus обрабатывает изменение статуса обмена
func (s *SwapService) UpdateSwapStatus(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	swapID, err := utils.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	var in StatusInput
	if err := utils.BindBody(c, &in); err != nil {
		return err
	}

	sw, err := s.UpdateStatus(c.Context(), userID, swapID, in.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"swap":    sw,
		"message": "Статус обмена обновлён",
	})
}
