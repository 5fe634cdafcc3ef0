// Package session управляет сессиями пользователей.
//
// Manager явно создаётся в main и передаётся обработчикам и middleware.
// Жизненный цикл: SignUp/SignIn создают сессию, Hydrate проверяет токен
// и загружает запись, Restore дополнительно обновляет профиль, SignOut удаляет запись.
// Пароль не проверяется: вход по e-mail остаётся демонстрационным.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
	"github.com/rajivgeraev/rewear-api/internal/events"
	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/store"
	"github.com/rajivgeraev/rewear-api/internal/utils"
)

// Провайдеры входа
const (
	ProviderEmail    = "email"
	ProviderTelegram = "telegram"
)

// User учётная запись, от имени которой открыта сессия
type User struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email,omitempty"`
	TelegramID int64     `json:"telegram_id,omitempty"`
	Provider   string    `json:"provider"`
}

// Session запись сессии
type Session struct {
	ID        string         `json:"id"`
	User      User           `json:"user"`
	Profile   models.Profile `json:"profile"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// normalize приводит время к UTC без монотонной части, как после чтения из хранилища
func (s *Session) normalize() {
	s.CreatedAt = s.CreatedAt.UTC().Round(0)
	s.ExpiresAt = s.ExpiresAt.UTC().Round(0)
	s.Profile.CreatedAt = s.Profile.CreatedAt.UTC().Round(0)
	s.Profile.UpdatedAt = s.Profile.UpdatedAt.UTC().Round(0)
}

// Result ответ на вход: токен и сессия
type Result struct {
	Token     string   `json:"access_token"`
	TokenType string   `json:"token_type"`
	ExpiresIn int      `json:"expires_in"`
	Session   *Session `json:"session"`
}

// Counter считает операции с сессиями
type Counter interface {
	Inc(op string)
}

// Manager создаёт и восстанавливает сессии
type Manager struct {
	sessions Store
	data     store.Store
	jwt      *utils.JWTService
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger
	counter  Counter
	pub      events.Publisher
}

// Option настройка Manager
type Option func(*Manager)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger задаёт логгер
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithCounter задаёт счётчик операций
func WithCounter(c Counter) Option {
	return func(m *Manager) { m.counter = c }
}

// WithPublisher задаёт издателя событий о новых профилях
func WithPublisher(p events.Publisher) Option {
	return func(m *Manager) { m.pub = p }
}

// NewManager создаёт менеджер сессий
func NewManager(sessions Store, data store.Store, jwt *utils.JWTService, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{
		sessions: sessions,
		data:     data,
		jwt:      jwt,
		ttl:      ttl,
		now:      time.Now,
		log:      zerolog.Nop(),
		pub:      events.Noop{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SignUp регистрирует пользователя с начальными баллами и открывает сессию
func (m *Manager) SignUp(ctx context.Context, email, password, username string) (*Result, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domainerrors.Validation("Укажите e-mail и пароль")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = localPart(email)
	}

	userID := models.UserIDForEmail(email)
	profile := &models.Profile{ID: userID, Username: username}

	err := m.data.InTx(ctx, func(r store.Repository) error {
		if _, err := r.GetProfile(ctx, userID); err == nil {
			return domainerrors.AlreadyExists("Пользователь с таким e-mail уже зарегистрирован")
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return createWithStartingPoints(ctx, r, profile)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domainerrors.AlreadyExists("Имя пользователя уже занято")
		}
		return nil, wrapInternal(err, "Ошибка регистрации")
	}

	m.log.Info().Str("event", "signup").Str("id", userID.String()).Msg("Зарегистрирован пользователь")
	m.profileCreated(ctx, profile)
	return m.start(ctx, User{ID: userID, Email: email, Provider: ProviderEmail}, profile, "signup")
}

// SignIn открывает сессию по e-mail; профиль создаётся, если его ещё нет
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Result, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domainerrors.Validation("Укажите e-mail и пароль")
	}

	userID := models.UserIDForEmail(email)
	profile, err := m.ensureProfile(ctx, userID, localPart(email), nil)
	if err != nil {
		return nil, err
	}
	return m.start(ctx, User{ID: userID, Email: email, Provider: ProviderEmail}, profile, "signin")
}

// SignInTelegram открывает сессию для пользователя Telegram
func (m *Manager) SignInTelegram(ctx context.Context, telegramID int64, username, fullName, photoURL string) (*Result, error) {
	userID := models.UserIDForTelegram(telegramID)
	if username == "" {
		username = fmt.Sprintf("tg%d", telegramID)
	}

	profile, err := m.ensureProfile(ctx, userID, username, func(p *models.Profile) {
		p.TelegramID = telegramID
		p.FullName = fullName
		p.AvatarURL = photoURL
	})
	if err != nil {
		return nil, err
	}
	return m.start(ctx, User{ID: userID, TelegramID: telegramID, Provider: ProviderTelegram}, profile, "telegram")
}

// Hydrate проверяет токен и загружает сессию
func (m *Manager) Hydrate(ctx context.Context, token string) (*Session, error) {
	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("Недействительный или просроченный токен")
	}

	sess, err := m.sessions.Load(ctx, claims.SessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, domainerrors.Unauthorized("Сессия не найдена или истекла")
	}
	if err != nil {
		return nil, wrapInternal(err, "Ошибка чтения сессии")
	}
	if !sess.ExpiresAt.After(m.now()) {
		_ = m.sessions.Delete(ctx, sess.ID)
		return nil, domainerrors.Unauthorized("Сессия истекла")
	}
	if sess.User.ID.String() != claims.Subject {
		return nil, domainerrors.Unauthorized("Токен не соответствует сессии")
	}
	return sess, nil
}

// Restore восстанавливает сессию и подтягивает актуальный профиль
func (m *Manager) Restore(ctx context.Context, token string) (*Session, error) {
	sess, err := m.Hydrate(ctx, token)
	if err != nil {
		return nil, err
	}

	profile, err := m.data.GetProfile(ctx, sess.User.ID)
	if errors.Is(err, store.ErrNotFound) {
		_ = m.sessions.Delete(ctx, sess.ID)
		return nil, domainerrors.Unauthorized("Профиль не найден")
	}
	if err != nil {
		return nil, wrapInternal(err, "Ошибка загрузки профиля")
	}

	fresh := *sess
	fresh.Profile = *profile
	fresh.normalize()
	if fresh.Profile != sess.Profile {
		sess = &fresh
		if err := m.sessions.Save(ctx, sess); err != nil {
			m.log.Warn().Err(err).Str("id", sess.ID).Msg("Не удалось обновить профиль в сессии")
		}
	}
	m.inc("restore")
	return sess, nil
}

// SignOut удаляет сессию. Недействительный токен не считается ошибкой.
func (m *Manager) SignOut(ctx context.Context, token string) error {
	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		return nil
	}
	if err := m.sessions.Delete(ctx, claims.SessionID); err != nil {
		return wrapInternal(err, "Ошибка завершения сессии")
	}
	m.inc("signout")
	return nil
}

func (m *Manager) start(ctx context.Context, user User, profile *models.Profile, op string) (*Result, error) {
	now := m.now()
	sess := &Session{
		ID:        uuid.NewString(),
		User:      user,
		Profile:   *profile,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	sess.normalize()

	if err := m.sessions.Save(ctx, sess); err != nil {
		return nil, wrapInternal(err, "Ошибка сохранения сессии")
	}

	token, err := m.jwt.GenerateToken(user.ID, sess.ID, sess.ExpiresAt)
	if err != nil {
		return nil, wrapInternal(err, "Ошибка генерации токена")
	}

	m.inc(op)
	return &Result{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(m.ttl.Seconds()),
		Session:   sess,
	}, nil
}

// ensureProfile возвращает профиль или создаёт его с начальными баллами
func (m *Manager) ensureProfile(ctx context.Context, userID uuid.UUID, username string, fill func(*models.Profile)) (*models.Profile, error) {
	profile, err := m.loadOrCreate(ctx, userID, username, fill)
	if errors.Is(err, store.ErrDuplicate) {
		// Имя занято другим пользователем: повторяем в новой транзакции с суффиксом из ID
		profile, err = m.loadOrCreate(ctx, userID, username+"_"+userID.String()[:6], fill)
	}
	if err != nil {
		return nil, wrapInternal(err, "Ошибка загрузки профиля")
	}
	return profile, nil
}

func (m *Manager) loadOrCreate(ctx context.Context, userID uuid.UUID, username string, fill func(*models.Profile)) (*models.Profile, error) {
	var (
		profile *models.Profile
		created bool
	)
	err := m.data.InTx(ctx, func(r store.Repository) error {
		p, err := r.GetProfile(ctx, userID)
		if err == nil {
			profile = p
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		profile = &models.Profile{ID: userID, Username: username}
		if fill != nil {
			fill(profile)
		}
		created = true
		return createWithStartingPoints(ctx, r, profile)
	})
	if err == nil && created {
		m.profileCreated(ctx, profile)
	}
	return profile, err
}

// profileCreated сообщает о новом профиле после фиксации транзакции
func (m *Manager) profileCreated(ctx context.Context, p *models.Profile) {
	e := events.New(events.ProfileCreated, p.ID, p.ID, map[string]any{
		"username": p.Username,
		"points":   p.Points,
	})
	if err := m.pub.Publish(ctx, e); err != nil {
		m.log.Warn().Err(err).Str("id", p.ID.String()).Msg("Не удалось опубликовать событие профиля")
	}
}

// createWithStartingPoints создаёт профиль и начисляет стартовые баллы через журнал
func createWithStartingPoints(ctx context.Context, r store.Repository, p *models.Profile) error {
	p.Points = 0
	if err := r.CreateProfile(ctx, p); err != nil {
		return err
	}
	balance, err := store.RecordPoints(ctx, r, &models.PointsEntry{
		UserID:          p.ID,
		Amount:          models.StartingPoints,
		TransactionType: models.TransactionEarned,
		Description:     "Стартовые баллы",
	})
	if err != nil {
		return err
	}
	fresh, err := r.GetProfile(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *fresh
	p.Points = balance
	return nil
}

func (m *Manager) inc(op string) {
	if m.counter != nil {
		m.counter.Inc(op)
	}
}

func wrapInternal(err error, msg string) error {
	var de *domainerrors.Error
	if errors.As(err, &de) {
		return err
	}
	return domainerrors.Internal(msg, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
