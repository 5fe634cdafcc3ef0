package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
	"github.com/rajivgeraev/rewear-api/internal/middleware"
	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/store"
	"github.com/rajivgeraev/rewear-api/internal/utils"
	"github.com/rajivgeraev/rewear-api/internal/validation"
)

// View профиль с уровнем, как на дашборде
type View struct {
	models.Profile
	Level         int `json:"level"`
	LevelProgress int `json:"level_progress"`
	PointsToNext  int `json:"points_to_next_level"`
}

// PublicView публичная карточка пользователя
type PublicView struct {
	models.User
	Bio       string `json:"bio,omitempty"`
	Level     int    `json:"level"`
	ItemCount int    `json:"item_count"`
}

func newView(p *models.Profile) *View {
	return &View{
		Profile:       *p,
		Level:         p.Level(),
		LevelProgress: p.LevelProgress(),
		PointsToNext:  models.PointsPerLevel - p.LevelProgress(),
	}
}

// ProfileService сервис профиля и журнала баллов
type ProfileService struct {
	store    store.Store
	validate *validation.Validator
	log      zerolog.Logger
}

// NewProfileService создает новый экземпляр ProfileService
func NewProfileService(st store.Store, v *validation.Validator, log zerolog.Logger) *ProfileService {
	return &ProfileService{store: st, validate: v, log: log}
}

// Get возвращает профиль с уровнем
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newView(p), nil
}

// Update меняет редактируемые поля профиля
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*View, error) {
	trim(upd.FullName)
	trim(upd.Bio)
	trim(upd.Location)
	trim(upd.AvatarURL)
	if err := s.validate.Validate(upd); err != nil {
		return nil, err
	}

	var updated *models.Profile
	err := s.store.InTx(ctx, func(r store.Repository) error {
		p, err := r.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		upd.Apply(p)
		if err := r.UpdateProfile(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("Профиль не найден")
	}
	if err != nil {
		return nil, domainerrors.Internal("Ошибка обновления профиля", err)
	}

	s.log.Info().Str("event", "profile_updated").Str("user", userID.String()).Msg("Профиль обновлён")
	return newView(updated), nil
}

// Points возвращает журнал баллов, новые записи первыми
func (s *ProfileService) Points(ctx context.Context, userID uuid.UUID) ([]models.PointsEntry, error) {
	entries, err := s.store.ListPoints(ctx, userID)
	if err != nil {
		return nil, domainerrors.Internal("Ошибка получения журнала баллов", err)
	}
	return entries, nil
}

// Public возвращает публичную карточку пользователя
func (s *ProfileService) Public(ctx context.Context, userID uuid.UUID) (*PublicView, error) {
	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	_, count, err := s.store.ListItems(ctx, models.ItemQuery{OwnerID: userID, Limit: 1}.BrowseQuery())
	if err != nil {
		return nil, domainerrors.Internal("Ошибка подсчёта вещей", err)
	}
	return &PublicView{User: *p.Summary(), Bio: p.Bio, Level: p.Level(), ItemCount: count}, nil
}

func (s *ProfileService) load(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("Пользователь не найден")
	}
	if err != nil {
		return nil, domainerrors.Internal("Ошибка получения профиля", err)
	}
	return p, nil
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// GetProfile возвращает профиль текущего пользователя
func (s *ProfileService) GetProfile(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	view, err := s.Get(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// UpdateProfile обновляет профиль текущего пользователя
func (s *ProfileService) UpdateProfile(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var upd models.ProfileUpdate
	if err := utils.BindBody(c, &upd); err != nil {
		return err
	}

	view, err := s.Update(c.Context(), userID, upd)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// GetPoints возвращает журнал баллов текущего пользователя
func (s *ProfileService) GetPoints(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	entries, err := s.Points(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"entries": entries})
}

// GetUser возвращает публичную карточку пользователя
func (s *ProfileService) GetUser(c fiber.Ctx) error {
	userID, err := utils.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	view, err := s.Public(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(view)
}
