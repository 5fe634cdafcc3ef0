// Package testenv собирает окружение для тестов HTTP-обработчиков:
// хранилище в памяти, менеджер сессий и приложение Fiber с обработчиком ошибок.
package testenv

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/rewear-api/internal/config"
	"github.com/rajivgeraev/rewear-api/internal/events"
	"github.com/rajivgeraev/rewear-api/internal/metrics"
	"github.com/rajivgeraev/rewear-api/internal/middleware"
	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/session"
	"github.com/rajivgeraev/rewear-api/internal/store/memory"
	"github.com/rajivgeraev/rewear-api/internal/utils"
	"github.com/rajivgeraev/rewear-api/internal/validation"
)

// AdminUsername имя администратора в тестовой конфигурации
const AdminUsername = "admin"

// Env тестовое окружение
type Env struct {
	Config    *config.Config
	Store     *memory.Store
	Sessions  *session.Manager
	Metrics   *metrics.Metrics
	Events    *events.Recorder
	Validator *validation.Validator
	App       *fiber.App
}

// New создаёт окружение с пустым хранилищем
func New(t *testing.T) *Env {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:      "test-secret",
		StorageDriver:  config.StorageMemory,
		AdminUsernames: []string{AdminUsername},
		SessionTTL:     time.Hour,
		AppEnv:         "test",
	}
	st := memory.New()
	return &Env{
		Config:    cfg,
		Store:     st,
		Sessions:  session.NewManager(session.NewMemoryStore(), st, utils.NewJWTService(cfg.JWTSecret), cfg.SessionTTL),
		Metrics:   metrics.New(),
		Events:    &events.Recorder{},
		Validator: validation.New(),
		App:       fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(zerolog.Nop())}),
	}
}

// Auth middleware, требующий сессию
func (e *Env) Auth() fiber.Handler {
	return middleware.AuthMiddleware(e.Sessions)
}

// OptionalAuth middleware с необязательной сессией
func (e *Env) OptionalAuth() fiber.Handler {
	return middleware.OptionalAuth(e.Sessions)
}

// User пользователь с токеном
type User struct {
	ID      uuid.UUID
	Token   string
	Profile models.Profile
}

// SignUp регистрирует пользователя со стартовыми баллами
func (e *Env) SignUp(t *testing.T, username string) User {
	t.Helper()
	res, err := e.Sessions.SignUp(context.Background(), username+"@example.com", "password", username)
	require.NoError(t, err)
	return User{ID: res.Session.User.ID, Token: res.Token, Profile: res.Session.Profile}
}

// AddItem добавляет вещь напрямую в хранилище
func (e *Env) AddItem(t *testing.T, owner uuid.UUID, title string, status models.ItemStatus, mutate ...func(*models.Item)) *models.Item {
	t.Helper()
	it := &models.Item{
		ID:          uuid.New(),
		UserID:      owner,
		Title:       title,
		Category:    models.CategoryTops,
		Size:        models.SizeM,
		Condition:   models.ConditionGood,
		PointValue:  models.DefaultItemValue,
		Status:      status,
		IsAvailable: true,
	}
	for _, fn := range mutate {
		fn(it)
	}
	require.NoError(t, e.Store.CreateItem(context.Background(), it))
	return it
}

// Do выполняет запрос и разбирает JSON-ответ в out (если out не nil)
func (e *Env) Do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return e.Send(t, req, out)
}

// Send выполняет готовый запрос
func (e *Env) Send(t *testing.T, req *http.Request, out any) int {
	t.Helper()
	resp, err := e.App.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// ErrorBody ответ с ошибкой
type ErrorBody = middleware.ErrorResponse

// Get короткая запись для GET
func (e *Env) Get(t *testing.T, path, token string, out any) int {
	t.Helper()
	return e.Do(t, http.MethodGet, path, token, nil, out)
}
