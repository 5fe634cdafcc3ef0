package auth

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"github.com/rajivgeraev/rewear-api/internal/config"
	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
	"github.com/rajivgeraev/rewear-api/internal/middleware"
	"github.com/rajivgeraev/rewear-api/internal/session"
	"github.com/rajivgeraev/rewear-api/internal/utils"
	"github.com/rajivgeraev/rewear-api/internal/validation"
)

// initDataTTL срок годности initData от Telegram
const initDataTTL = 24 * time.Hour

// SignUpInput данные регистрации. Пароль не проверяется, но обязателен.
type SignUpInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Username string `json:"username" validate:"omitempty,min=3,max=30"`
}

// SignInInput данные входа
type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TelegramUser пользователь из проверенного initData
type TelegramUser struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	PhotoURL  string
}

// TelegramVerifier проверяет подпись initData и возвращает пользователя
type TelegramVerifier func(initData string) (*TelegramUser, error)

// AuthService – структура для обработки авторизации
type AuthService struct {
	cfg      *config.Config
	sessions *session.Manager
	validate *validation.Validator
	telegram TelegramVerifier
	log      zerolog.Logger
}

// NewAuthService – конструктор AuthService
func NewAuthService(cfg *config.Config, sessions *session.Manager, v *validation.Validator, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:      cfg,
		sessions: sessions,
		validate: v,
		telegram: InitDataVerifier(cfg.TelegramBotToken),
		log:      log,
	}
}

// WithTelegramVerifier подменяет проверку initData
func (s *AuthService) WithTelegramVerifier(v TelegramVerifier) *AuthService {
	s.telegram = v
	return s
}

// InitDataVerifier проверяет initData ключом бота
func InitDataVerifier(botToken string) TelegramVerifier {
	return func(raw string) (*TelegramUser, error) {
		if botToken == "" {
			return nil, domainerrors.Unauthorized("Вход через Telegram не настроен")
		}
		if err := initdata.Validate(raw, botToken, initDataTTL); err != nil {
			return nil, domainerrors.Unauthorized("Неверные данные Telegram")
		}
		data, err := initdata.Parse(raw)
		if err != nil {
			return nil, domainerrors.Validation("Не удалось разобрать initData")
		}
		return &TelegramUser{
			ID:        data.User.ID,
			Username:  data.User.Username,
			FirstName: data.User.FirstName,
			LastName:  data.User.LastName,
			PhotoURL:  data.User.PhotoURL,
		}, nil
	}
}

// SignUpHandler регистрирует пользователя
func (s *AuthService) SignUpHandler(c fiber.Ctx) error {
	var in SignUpInput
	if err := s.bind(c, &in); err != nil {
		return err
	}

	res, err := s.sessions.SignUp(c.Context(), in.Email, in.Password, in.Username)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// SignInHandler открывает сессию по e-mail
func (s *AuthService) SignInHandler(c fiber.Ctx) error {
	var in SignInInput
	if err := s.bind(c, &in); err != nil {
		return err
	}

	res, err := s.sessions.SignIn(c.Context(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// SignOutHandler завершает сессию
func (s *AuthService) SignOutHandler(c fiber.Ctx) error {
	if token, err := middleware.BearerToken(c); err == nil {
		if err := s.sessions.SignOut(c.Context(), token); err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{"success": true})
}

// SessionHandler восстанавливает сессию по токену и возвращает актуальный профиль
func (s *AuthService) SessionHandler(c fiber.Ctx) error {
	token, err := middleware.BearerToken(c)
	if err != nil {
		return err
	}

	sess, err := s.sessions.Restore(c.Context(), token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"session":  sess,
		"is_admin": s.cfg.IsAdmin(sess.Profile.Username),
	})
}

// TelegramAuthHandler проверяет initData и открывает сессию
func (s *AuthService) TelegramAuthHandler(c fiber.Ctx) error {
	var payload struct {
		InitData string `json:"init_data"`
	}
	if err := utils.BindBody(c, &payload); err != nil {
		return err
	}
	if payload.InitData == "" {
		return domainerrors.Validation("Не передан init_data")
	}

	res, err := s.telegramSignIn(c.Context(), payload.InitData)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *AuthService) telegramSignIn(ctx context.Context, raw string) (*session.Result, error) {
	user, err := s.telegram(raw)
	if err != nil {
		return nil, err
	}

	fullName := user.FirstName
	if user.LastName != "" {
		fullName += " " + user.LastName
	}
	return s.sessions.SignInTelegram(ctx, user.ID, user.Username, fullName, user.PhotoURL)
}

func (s *AuthService) bind(c fiber.Ctx, dst any) error {
	if err := utils.BindBody(c, dst); err != nil {
		return err
	}
	return s.validate.Validate(dst)
}
