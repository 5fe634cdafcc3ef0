package item

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rajivgeraev/rewear-api/internal/cache"
	"github.com/rajivgeraev/rewear-api/internal/config"
	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
	"github.com/rajivgeraev/rewear-api/internal/events"
	"github.com/rajivgeraev/rewear-api/internal/metrics"
	"github.com/rajivgeraev/rewear-api/internal/middleware"
	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/store"
	"github.com/rajivgeraev/rewear-api/internal/utils"
	"github.com/rajivgeraev/rewear-api/internal/validation"
)

// CreateItemInput данные для публикации вещи
type CreateItemInput struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	Category    models.Category  `json:"category" validate:"required,category"`
	Size        models.Size      `json:"size" validate:"omitempty,size"`
	Condition   models.Condition `json:"condition" validate:"required,condition"`
	PointValue  int              `json:"point_value" validate:"omitempty,min=1,max=1000"`
	ImageURLs   []string         `json:"image_urls" validate:"max=5,dive,url"`
	Tags        []string         `json:"tags" validate:"max=10,dive,max=50"`
}

// ItemService представляет сервис каталога вещей
type ItemService struct {
	cfg      *config.Config
	store    store.Store
	cache    *cache.BrowseCache
	events   events.Publisher
	metrics  *metrics.Metrics
	validate *validation.Validator
	log      zerolog.Logger
}

// NewItemService создает новый экземпляр ItemService. browseCache может быть nil.
func NewItemService(cfg *config.Config, st store.Store, browseCache *cache.BrowseCache, pub events.Publisher, m *metrics.Metrics, v *validation.Validator, log zerolog.Logger) *ItemService {
	return &ItemService{
		cfg:      cfg,
		store:    st,
		cache:    browseCache,
		events:   pub,
		metrics:  m,
		validate: v,
		log:      log,
	}
}

// Browse возвращает страницу публичного каталога: только одобренные и доступные вещи
func (s *ItemService) Browse(ctx context.Context, q models.ItemQuery) (*models.ItemPage, error) {
	q = q.BrowseQuery().Normalize()

	gen := int64(-1)
	if s.cache != nil {
		page, g, ok := s.cache.Get(ctx, q)
		if ok {
			return page, nil
		}
		gen = g
	}

	page, err := s.list(ctx, q)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, gen, q, page)
	}
	return page, nil
}

// Get возвращает вещь. Неодобренные вещи видят только владелец и администраторы.
func (s *ItemService) Get(ctx context.Context, viewerID uuid.UUID, isAdmin bool, id uuid.UUID) (*models.Item, error) {
	it, err := s.store.GetItem(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("Вещь не найдена")
	}
	if err != nil {
		return nil, domainerrors.Internal("Ошибка получения вещи", err)
	}

	if it.Status != models.ItemApproved && it.UserID != viewerID && !isAdmin {
		return nil, domainerrors.NotFound("Вещь не найдена")
	}

	items := []models.Item{*it}
	if err := store.AttachOwners(ctx, s.store, items); err != nil {
		s.log.Warn().Err(err).Str("id", id.String()).Msg("Не удалось загрузить владельца вещи")
	}
	return &items[0], nil
}

// Create публикует вещь. Без AUTO_APPROVE_ITEMS вещь ждёт модерации.
func (s *ItemService) Create(ctx context.Context, ownerID uuid.UUID, in CreateItemInput) (*models.Item, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Tags = models.NormalizeTags(in.Tags)
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	status := models.ItemPending
	if s.cfg.AutoApproveItems {
		status = models.ItemApproved
	}
	pointValue := in.PointValue
	if pointValue == 0 {
		pointValue = models.DefaultItemValue
	}

	it := &models.Item{
		ID:          uuid.New(),
		UserID:      ownerID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Size:        in.Size,
		Condition:   in.Condition,
		PointValue:  pointValue,
		ImageURLs:   in.ImageURLs,
		Status:      status,
		IsAvailable: true,
		Version:     1,
		Tags:        in.Tags,
	}

	err := s.store.CreateItem(ctx, it)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("Профиль не найден")
	}
	if err != nil {
		return nil, domainerrors.Internal("Ошибка сохранения вещи", err)
	}

	s.metrics.ItemsCreated.Inc()
	s.publish(ctx, events.New(events.ItemCreated, it.ID, ownerID, map[string]any{"status": it.Status}))
	s.log.Info().Str("event", "item_created").Str("id", it.ID.String()).Str("state", string(it.Status)).Msg("Вещь создана")
	return it, nil
}

// ListMine возвращает вещи пользователя в любом статусе
func (s *ItemService) ListMine(ctx context.Context, ownerID uuid.UUID, q models.ItemQuery) (*models.ItemPage, error) {
	q.OwnerID = ownerID
	q.Available = nil
	return s.list(ctx, q.Normalize())
}

// ListByOwner возвращает публичные вещи пользователя
func (s *ItemService) ListByOwner(ctx context.Context, ownerID uuid.UUID, q models.ItemQuery) (*models.ItemPage, error) {
	if _, err := s.store.GetProfile(ctx, ownerID); errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("Пользователь не найден")
	} else if err != nil {
		return nil, domainerrors.Internal("Ошибка получения пользователя", err)
	}
	q = q.BrowseQuery()
	q.OwnerID = ownerID
	return s.list(ctx, q.Normalize())
}

// Tags возвращает словарь тегов
func (s *ItemService) Tags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, domainerrors.Internal("Ошибка получения тегов", err)
	}
	return tags, nil
}

func (s *ItemService) list(ctx context.Context, q models.ItemQuery) (*models.ItemPage, error) {
	items, total, err := s.store.ListItems(ctx, q)
	if err != nil {
		return nil, domainerrors.Internal("Ошибка получения вещей", err)
	}
	if err := store.AttachOwners(ctx, s.store, items); err != nil {
		return nil, domainerrors.Internal("Ошибка получения владельцев", err)
	}
	return &models.ItemPage{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

func (s *ItemService) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("event", string(e.Type)).Msg("Не удалось опубликовать событие")
	}
}

// BrowseItems обрабатывает публичный каталог
func (s *ItemService) BrowseItems(c fiber.Ctx) error {
	q, err := ParseQuery(c)
	if err != nil {
		return err
	}
	page, err := s.Browse(c.Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// GetItem возвращает вещь по ID
func (s *ItemService) GetItem(c fiber.Ctx) error {
	id, err := utils.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	viewerID, _ := middleware.UserID(c)

	it, err := s.Get(c.Context(), viewerID, middleware.IsAdmin(c, s.cfg), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"item":     it,
		"is_owner": viewerID != uuid.Nil && it.UserID == viewerID,
	})
}

// CreateItem обрабатывает публикацию вещи
func (s *ItemService) CreateItem(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var in CreateItemInput
	if err := utils.BindBody(c, &in); err != nil {
		return err
	}

	it, err := s.Create(c.Context(), userID, in)
	if err != nil {
		return err
	}

	message := "Вещь отправлена на модерацию"
	if it.Status == models.ItemApproved {
		message = "Вещь опубликована"
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"item":    it,
		"message": message,
	})
}

// GetMyItems возвращает вещи текущего пользователя
func (s *ItemService) GetMyItems(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	q, err := ParseQuery(c)
	if err != nil {
		return err
	}
	if status := models.ItemStatus(c.Query("status")); status != "" {
		if !status.Valid() {
			return domainerrors.Validation("Неизвестный статус")
		}
		q.Status = status
	}

	page, err := s.ListMine(c.Context(), userID, q)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// GetUserItems возвращает публичные вещи пользователя
func (s *ItemService) GetUserItems(c fiber.Ctx) error {
	ownerID, err := utils.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	q, err := ParseQuery(c)
	if err != nil {
		return err
	}
	page, err := s.ListByOwner(c.Context(), ownerID, q)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// GetTags возвращает все теги
func (s *ItemService) GetTags(c fiber.Ctx) error {
	tags, err := s.Tags(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tags": tags})
}

// ParseQuery читает фильтры каталога из строки запроса
func ParseQuery(c fiber.Ctx) (models.ItemQuery, error) {
	q := models.ItemQuery{
		Category:  models.Category(c.Query("category")),
		Size:      models.Size(c.Query("size")),
		Condition: models.Condition(c.Query("condition")),
		Tags:      utils.QueryList(c, "tags"),
		Search:    c.Query("search", c.Query("q")),
		Sort:      models.SortOrder(c.Query("sort")),
		Limit:     utils.QueryInt(c, "limit", models.DefaultPageLimit),
		Offset:    utils.QueryInt(c, "offset", 0),
	}

	details := map[string]string{}
	if q.Category != "" && !q.Category.Valid() {
		details["category"] = "неизвестная категория"
	}
	if q.Size != "" && !q.Size.Valid() {
		details["size"] = "неизвестный размер"
	}
	if q.Condition != "" && !q.Condition.Valid() {
		details["condition"] = "неизвестное состояние"
	}
	if q.Sort != "" && !q.Sort.Valid() {
		details["sort"] = "допустимые значения: newest, oldest, points_low, points_high"
	}
	if len(details) > 0 {
		return q, domainerrors.ValidationWithDetails("Неверные параметры фильтра", details)
	}
	return q, nil
}
