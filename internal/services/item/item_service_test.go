package item

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/rewear-api/internal/cache"
	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
	"github.com/rajivgeraev/rewear-api/internal/events"
	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/testenv"
)

func setup(t *testing.T, browseCache *cache.BrowseCache) (*testenv.Env, *ItemService) {
	t.Helper()
	env := testenv.New(t)
	svc := NewItemService(env.Config, env.Store, browseCache, env.Events, env.Metrics, env.Validator, zerolog.Nop())
	svc.SetupRoutes(env.App, env.Auth(), env.OptionalAuth())
	return env, svc
}

func TestBrowse_OnlyApprovedAndAvailable(t *testing.T) {
	env, _ := setup(t, nil)
	owner := env.SignUp(t, "owner")

	env.AddItem(t, owner.ID, "Pending", models.ItemPending)
	visible := env.AddItem(t, owner.ID, "Visible", models.ItemApproved)
	env.AddItem(t, owner.ID, "Taken", models.ItemApproved, func(it *models.Item) { it.IsAvailable = false })

	var page models.ItemPage
	require.Equal(t, http.StatusOK, env.Get(t, "/api/items", "", &page))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, visible.ID, page.Items[0].ID)
	require.NotNil(t, page.Items[0].Owner)
	assert.Equal(t, "owner", page.Items[0].Owner.Username)
}

func TestBrowse_Filters(t *testing.T) {
	env, _ := setup(t, nil)
	owner := env.SignUp(t, "owner")

	env.AddItem(t, owner.ID, "Denim jacket", models.ItemApproved, func(it *models.Item) {
		it.Category = models.CategoryOuterwear
		it.Tags = []string{"denim", "vintage"}
	})
	env.AddItem(t, owner.ID, "Silk dress", models.ItemApproved, func(it *models.Item) {
		it.Category = models.CategoryDresses
		it.Description = "vintage evening dress"
		it.Tags = []string{"vintage"}
	})

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"category", "?category=outerwear", []string{"Denim jacket"}},
		{"tags all", "?tags=denim,vintage", []string{"Denim jacket"}},
		{"tag shared", "?tags=vintage&sort=oldest", []string{"Denim jacket", "Silk dress"}},
		{"search description", "?search=EVENING", []string{"Silk dress"}},
		{"no match", "?category=shoes", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var page models.ItemPage
			require.Equal(t, http.StatusOK, env.Get(t, "/api/items"+tt.query, "", &page))
			var titles []string
			for _, it := range page.Items {
				titles = append(titles, it.Title)
			}
			assert.ElementsMatch(t, tt.want, titles)
		})
	}
}

func TestBrowse_InvalidFilter(t *testing.T) {
	env, _ := setup(t, nil)

	var body testenv.ErrorBody
	assert.Equal(t, http.StatusBadRequest, env.Get(t, "/api/items?category=hats", "", &body))
	assert.Equal(t, domainerrors.CodeValidation, body.Code)
}

func TestBrowse_CacheInvalidatedByEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := testenv.New(t)
	browseCache := cache.NewBrowseCache(rdb, time.Minute, zerolog.Nop(), env.Metrics.CacheCounter())
	svc := NewItemService(env.Config, env.Store, browseCache, events.Fanout{env.Events, browseCache.Invalidator()}, env.Metrics, env.Validator, zerolog.Nop())
	ctx := context.Background()
	owner := env.SignUp(t, "owner")

	env.AddItem(t, owner.ID, "First", models.ItemApproved)
	page, err := svc.Browse(ctx, models.ItemQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	// Запись в обход сервиса: кэш отдаёт старую страницу
	env.AddItem(t, owner.ID, "Second", models.ItemApproved)
	page, err = svc.Browse(ctx, models.ItemQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	// Создание через сервис публикует item.created и сбрасывает кэш
	_, err = svc.Create(ctx, owner.ID, CreateItemInput{Title: "Third", Category: models.CategoryTops, Condition: models.ConditionNew})
	require.NoError(t, err)
	page, err = svc.Browse(ctx, models.ItemQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestCreateItem(t *testing.T) {
	env, _ := setup(t, nil)
	user := env.SignUp(t, "seller")

	var resp struct {
		Item models.Item `json:"item"`
	}
	status := env.Do(t, http.MethodPost, "/api/items", user.Token, map[string]any{
		"title":     "  Wool coat ",
		"category":  "outerwear",
		"condition": "like_new",
		"size":      "l",
		"tags":      []string{"Wool", "wool ", "winter"},
	}, &resp)
	require.Equal(t, http.StatusCreated, status)

	assert.Equal(t, "Wool coat", resp.Item.Title)
	assert.Equal(t, models.ItemPending, resp.Item.Status)
	assert.Equal(t, models.DefaultItemValue, resp.Item.PointValue)
	assert.True(t, resp.Item.IsAvailable)
	assert.Equal(t, 1, resp.Item.Version)
	assert.ElementsMatch(t, []string{"wool", "winter"}, resp.Item.Tags)
	assert.Equal(t, 1, env.Events.Count(events.ItemCreated))

	// Вещь на модерации не видна в каталоге
	var page models.ItemPage
	require.Equal(t, http.StatusOK, env.Get(t, "/api/items", "", &page))
	assert.Equal(t, 0, page.Total)
}

func TestCreateItem_AutoApprove(t *testing.T) {
	env, svc := setup(t, nil)
	env.Config.AutoApproveItems = true
	user := env.SignUp(t, "seller")

	it, err := svc.Create(context.Background(), user.ID, CreateItemInput{
		Title: "Scarf", Category: models.CategoryAccessories, Condition: models.ConditionNew, PointValue: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ItemApproved, it.Status)
	assert.Equal(t, 30, it.PointValue)
}

func TestCreateItem_Validation(t *testing.T) {
	env, _ := setup(t, nil)
	user := env.SignUp(t, "seller")

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"missing title", map[string]any{"category": "tops", "condition": "good"}, "title"},
		{"bad category", map[string]any{"title": "x", "category": "hats", "condition": "good"}, "category"},
		{"bad condition", map[string]any{"title": "x", "category": "tops", "condition": "broken"}, "condition"},
		{"bad size", map[string]any{"title": "x", "category": "tops", "condition": "good", "size": "huge"}, "size"},
		{"negative value", map[string]any{"title": "x", "category": "tops", "condition": "good", "point_value": -5}, "point_value"},
		{"too many images", map[string]any{"title": "x", "category": "tops", "condition": "good",
			"image_urls": []string{"https://a/1", "https://a/2", "https://a/3", "https://a/4", "https://a/5", "https://a/6"}}, "image_urls"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body struct {
				Code    domainerrors.Code `json:"code"`
				Details map[string]string `json:"details"`
			}
			require.Equal(t, http.StatusBadRequest, env.Do(t, http.MethodPost, "/api/items", user.Token, tt.body, &body))
			assert.Equal(t, domainerrors.CodeValidation, body.Code)
			assert.Contains(t, body.Details, tt.field)
		})
	}
}

func TestCreateItem_RequiresAuth(t *testing.T) {
	env, _ := setup(t, nil)
	status := env.Do(t, http.MethodPost, "/api/items", "", map[string]any{"title": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestGetItem_Visibility(t *testing.T) {
	env, _ := setup(t, nil)
	owner := env.SignUp(t, "owner")
	stranger := env.SignUp(t, "stranger")
	admin := env.SignUp(t, testenv.AdminUsername)

	pending := env.AddItem(t, owner.ID, "Pending", models.ItemPending)
	approved := env.AddItem(t, owner.ID, "Approved", models.ItemApproved)

	assert.Equal(t, http.StatusOK, env.Get(t, "/api/items/"+approved.ID.String(), "", nil))
	assert.Equal(t, http.StatusNotFound, env.Get(t, "/api/items/"+pending.ID.String(), "", nil))
	assert.Equal(t, http.StatusNotFound, env.Get(t, "/api/items/"+pending.ID.String(), stranger.Token, nil))
	assert.Equal(t, http.StatusOK, env.Get(t, "/api/items/"+pending.ID.String(), admin.Token, nil))

	var resp struct {
		Item    models.Item `json:"item"`
		IsOwner bool        `json:"is_owner"`
	}
	require.Equal(t, http.StatusOK, env.Get(t, "/api/items/"+pending.ID.String(), owner.Token, &resp))
	assert.True(t, resp.IsOwner)

	assert.Equal(t, http.StatusNotFound, env.Get(t, "/api/items/"+uuid.NewString(), "", nil))
	assert.Equal(t, http.StatusBadRequest, env.Get(t, "/api/items/not-a-uuid", "", nil))
}

func TestMyAndUserItems(t *testing.T) {
	env, _ := setup(t, nil)
	owner := env.SignUp(t, "owner")

	env.AddItem(t, owner.ID, "Pending", models.ItemPending)
	env.AddItem(t, owner.ID, "Approved", models.ItemApproved)
	env.AddItem(t, owner.ID, "Rejected", models.ItemRejected)

	var mine models.ItemPage
	require.Equal(t, http.StatusOK, env.Get(t, "/api/items/my", owner.Token, &mine))
	assert.Equal(t, 3, mine.Total)

	require.Equal(t, http.StatusOK, env.Get(t, "/api/items/my?status=rejected", owner.Token, &mine))
	assert.Equal(t, 1, mine.Total)

	var public models.ItemPage
	require.Equal(t, http.StatusOK, env.Get(t, "/api/users/"+owner.ID.String()+"/items", "", &public))
	assert.Equal(t, 1, public.Total)

	assert.Equal(t, http.StatusNotFound, env.Get(t, "/api/users/"+uuid.NewString()+"/items", "", nil))
}

func TestTags(t *testing.T) {
	env, _ := setup(t, nil)
	owner := env.SignUp(t, "owner")
	env.AddItem(t, owner.ID, "Tagged", models.ItemApproved, func(it *models.Item) { it.Tags = []string{"summer", "cotton"} })

	var resp struct {
		Tags []models.Tag `json:"tags"`
	}
	require.Equal(t, http.StatusOK, env.Get(t, "/api/tags", "", &resp))
	require.Len(t, resp.Tags, 2)
	assert.Equal(t, "cotton", resp.Tags[0].Name)
}
