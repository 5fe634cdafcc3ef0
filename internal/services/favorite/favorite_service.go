package favorite

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
	"github.com/rajivgeraev/rewear-api/internal/middleware"
	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/store"
	"github.com/rajivgeraev/rewear-api/internal/utils"
)

// FavoriteService представляет сервис для работы с избранными вещами
type FavoriteService struct {
	store store.Store
	log   zerolog.Logger
}

// NewFavoriteService создает новый экземпляр FavoriteService
func NewFavoriteService(st store.Store, log zerolog.Logger) *FavoriteService {
	return &FavoriteService{store: st, log: log}
}

// Add добавляет вещь в избранное. Добавить можно только вещь из каталога.
func (s *FavoriteService) Add(ctx context.Context, userID, itemID uuid.UUID) error {
	err := s.store.InTx(ctx, func(r store.Repository) error {
		it, err := r.GetItem(ctx, itemID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !it.IsBrowsable()) {
			return domainerrors.NotFound("Вещь не найдена или недоступна")
		}
		if err != nil {
			return err
		}
		return r.AddFavorite(ctx, userID, itemID)
	})
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return domainerrors.AlreadyExists("Вещь уже добавлена в избранное")
	case errors.As(err, new(*domainerrors.Error)):
		return err
	case err != nil:
		return domainerrors.Internal("Ошибка добавления в избранное", err)
	}
	return nil
}

// Remove удаляет вещь из избранного
func (s *FavoriteService) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	err := s.store.RemoveFavorite(ctx, userID, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound("Вещь не найдена в избранном")
	}
	if err != nil {
		return domainerrors.Internal("Ошибка удаления из избранного", err)
	}
	return nil
}

// List возвращает избранные вещи, которые всё ещё есть в каталоге
func (s *FavoriteService) List(ctx context.Context, userID uuid.UUID, limit, offset int) (*models.FavoriteResponse, error) {
	q := models.ItemQuery{Limit: limit, Offset: offset}.Normalize()

	favs, total, err := s.store.ListFavorites(ctx, userID, q.Limit, q.Offset)
	if err != nil {
		return nil, domainerrors.Internal("Ошибка получения избранного", err)
	}

	items := make([]models.Item, 0, len(favs))
	for _, f := range favs {
		if f.Item != nil {
			items = append(items, *f.Item)
		}
	}
	if err := store.AttachOwners(ctx, s.store, items); err != nil {
		s.log.Warn().Err(err).Msg("Не удалось загрузить владельцев избранных вещей")
	}
	owners := make(map[uuid.UUID]*models.User, len(items))
	for _, it := range items {
		owners[it.ID] = it.Owner
	}
	for i := range favs {
		if favs[i].Item != nil {
			favs[i].Item.Owner = owners[favs[i].ItemID]
		}
	}

	return &models.FavoriteResponse{Favorites: favs, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

// IsFavorite проверяет, есть ли вещь в избранном
func (s *FavoriteService) IsFavorite(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	ok, err := s.store.IsFavorite(ctx, userID, itemID)
	if err != nil {
		return false, domainerrors.Internal("Ошибка проверки избранного", err)
	}
	return ok, nil
}

// AddToFavorites добавляет вещь в избранное
func (s *FavoriteService) AddToFavorites(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	// Извлекаем ID вещи из запроса
	var requestData struct {
		ItemID string `json:"item_id"`
	}
	if err := utils.BindBody(c, &requestData); err != nil {
		return err
	}
	if requestData.ItemID == "" {
		return domainerrors.Validation("ID вещи не указан")
	}
	itemID, err := uuid.Parse(requestData.ItemID)
	if err != nil {
		return domainerrors.Validation("Неверный формат ID вещи")
	}

	if err := s.Add(c.Context(), userID, itemID); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"item_id": itemID,
		"message": "Вещь успешно добавлена в избранное",
	})
}

// RemoveFromFavorites удаляет вещь из избранного
func (s *FavoriteService) RemoveFromFavorites(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	itemID, err := utils.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	if err := s.Remove(c.Context(), userID, itemID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Вещь успешно удалена из избранного",
	})
}

// GetFavorites возвращает список избранных вещей
func (s *FavoriteService) GetFavorites(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	resp, err := s.List(c.Context(), userID, utils.QueryInt(c, "limit", models.DefaultPageLimit), utils.QueryInt(c, "offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// CheckFavorite проверяет, добавлена ли вещь в избранное
func (s *FavoriteService) CheckFavorite(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	itemID, err := utils.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ok, err := s.IsFavorite(c.Context(), userID, itemID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"is_favorite": ok})
}
