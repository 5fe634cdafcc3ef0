package favorite

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/testenv"
)

func setup(t *testing.T) (*testenv.Env, *FavoriteService) {
	t.Helper()
	env := testenv.New(t)
	svc := NewFavoriteService(env.Store, zerolog.Nop())
	svc.SetupRoutes(env.App, env.Auth())
	return env, svc
}

func TestFavoritesFlow(t *testing.T) {
	env, _ := setup(t)
	owner := env.SignUp(t, "owner")
	viewer := env.SignUp(t, "viewer")
	it := env.AddItem(t, owner.ID, "Boots", models.ItemApproved)
	path := "/api/favorites/" + it.ID.String()

	require.Equal(t, http.StatusCreated, env.Do(t, http.MethodPost, "/api/favorites", viewer.Token, map[string]string{"item_id": it.ID.String()}, nil))

	var body testenv.ErrorBody
	require.Equal(t, http.StatusConflict, env.Do(t, http.MethodPost, "/api/favorites", viewer.Token, map[string]string{"item_id": it.ID.String()}, &body))
	assert.Equal(t, domainerrors.CodeAlreadyExists, body.Code)

	var check struct {
		IsFavorite bool `json:"is_favorite"`
	}
	require.Equal(t, http.StatusOK, env.Get(t, path+"/check", viewer.Token, &check))
	assert.True(t, check.IsFavorite)

	var list models.FavoriteResponse
	require.Equal(t, http.StatusOK, env.Get(t, "/api/favorites", viewer.Token, &list))
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Favorites, 1)
	require.NotNil(t, list.Favorites[0].Item)
	require.NotNil(t, list.Favorites[0].Item.Owner)
	assert.Equal(t, "owner", list.Favorites[0].Item.Owner.Username)

	require.Equal(t, http.StatusOK, env.Do(t, http.MethodDelete, path, viewer.Token, nil, nil))
	assert.Equal(t, http.StatusNotFound, env.Do(t, http.MethodDelete, path, viewer.Token, nil, nil))

	require.Equal(t, http.StatusOK, env.Get(t, path+"/check", viewer.Token, &check))
	assert.False(t, check.IsFavorite)
}

func TestAdd_OnlyBrowsable(t *testing.T) {
	env, svc := setup(t)
	ctx := context.Background()
	owner := env.SignUp(t, "owner")
	pending := env.AddItem(t, owner.ID, "Pending", models.ItemPending)

	assert.ErrorIs(t, svc.Add(ctx, owner.ID, pending.ID), domainerrors.ErrNotFound)
	assert.ErrorIs(t, svc.Add(ctx, owner.ID, uuid.New()), domainerrors.ErrNotFound)
}

func TestAdd_BadRequest(t *testing.T) {
	env, _ := setup(t)
	viewer := env.SignUp(t, "viewer")

	assert.Equal(t, http.StatusBadRequest, env.Do(t, http.MethodPost, "/api/favorites", viewer.Token, map[string]string{}, nil))
	assert.Equal(t, http.StatusBadRequest, env.Do(t, http.MethodPost, "/api/favorites", viewer.Token, map[string]string{"item_id": "nope"}, nil))
	assert.Equal(t, http.StatusUnauthorized, env.Get(t, "/api/favorites", "", nil))
}
