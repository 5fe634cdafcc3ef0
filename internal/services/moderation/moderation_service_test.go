package moderation

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
	"github.com/rajivgeraev/rewear-api/internal/events"
	"github.com/rajivgeraev/rewear-api/internal/middleware"
	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/testenv"
)

func setup(t *testing.T) (*testenv.Env, *ModerationService) {
	t.Helper()
	env := testenv.New(t)
	svc := NewModerationService(env.Store, env.Events, env.Metrics, zerolog.Nop())
	svc.SetupRoutes(env.App, env.Auth(), middleware.AdminOnly(env.Config))
	return env, svc
}

func TestUpdateStatus_Approve(t *testing.T) {
	env, svc := setup(t)
	owner := env.SignUp(t, "owner")
	it := env.AddItem(t, owner.ID, "Coat", models.ItemPending)

	updated, changed, err := svc.UpdateStatus(context.Background(), uuid.New(), it.ID, models.ItemApproved, 0)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.ItemApproved, updated.Status)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, 1, env.Events.Count(events.ItemModerated))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.Metrics.ModerationDecisions.WithLabelValues("approved")))
}

func TestUpdateStatus_RepeatIsNoop(t *testing.T) {
	env, svc := setup(t)
	ctx := context.Background()
	owner := env.SignUp(t, "owner")
	it := env.AddItem(t, owner.ID, "Coat", models.ItemApproved)

	got, changed, err := svc.UpdateStatus(ctx, uuid.New(), it.ID, models.ItemApproved, 0)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, it.Version, got.Version)

	stored, err := env.Store.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, it.Version, stored.Version)
	assert.Equal(t, it.UpdatedAt, stored.UpdatedAt)
	assert.Empty(t, env.Events.Events())
	assert.Equal(t, 0.0, testutil.ToFloat64(env.Metrics.ModerationDecisions.WithLabelValues("approved")))
}

func TestUpdateStatus_Errors(t *testing.T) {
	env, svc := setup(t)
	ctx := context.Background()
	owner := env.SignUp(t, "owner")
	rejected := env.AddItem(t, owner.ID, "Rejected", models.ItemRejected)
	pending := env.AddItem(t, owner.ID, "Pending", models.ItemPending)

	_, _, err := svc.UpdateStatus(ctx, uuid.New(), rejected.ID, models.ItemApproved, 0)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)

	_, _, err = svc.UpdateStatus(ctx, uuid.New(), pending.ID, models.ItemSwapped, 0)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, _, err = svc.UpdateStatus(ctx, uuid.New(), pending.ID, models.ItemPending, 0)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, _, err = svc.UpdateStatus(ctx, uuid.New(), pending.ID, models.ItemApproved, 7)
	assert.ErrorIs(t, err, domainerrors.ErrVersionConflict)

	_, _, err = svc.UpdateStatus(ctx, uuid.New(), uuid.New(), models.ItemApproved, 0)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestUpdateStatus_ConcurrentModerators(t *testing.T) {
	env, svc := setup(t)
	owner := env.SignUp(t, "owner")
	it := env.AddItem(t, owner.ID, "Coat", models.ItemPending)

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := models.ItemApproved
			if i%2 == 1 {
				target = models.ItemRejected
			}
			_, _, errs[i] = svc.UpdateStatus(context.Background(), uuid.New(), it.ID, target, it.Version)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err == nil {
			continue
		}
		assert.ErrorIs(t, err, domainerrors.ErrVersionConflict)
	}
	assert.Equal(t, 1, env.Events.Count(events.ItemModerated))
}

func TestAdminRoutes(t *testing.T) {
	env, _ := setup(t)
	owner := env.SignUp(t, "owner")
	admin := env.SignUp(t, testenv.AdminUsername)
	it := env.AddItem(t, owner.ID, "Coat", models.ItemPending)
	env.AddItem(t, owner.ID, "Shirt", models.ItemApproved)

	assert.Equal(t, http.StatusForbidden, env.Get(t, "/api/admin/stats", owner.Token, nil))
	assert.Equal(t, http.StatusUnauthorized, env.Get(t, "/api/admin/stats", "", nil))

	var pending models.ItemPage
	require.Equal(t, http.StatusOK, env.Get(t, "/api/admin/items/pending", admin.Token, &pending))
	require.Equal(t, 1, pending.Total)
	assert.Equal(t, it.ID, pending.Items[0].ID)

	var resp struct {
		Changed bool        `json:"changed"`
		Item    models.Item `json:"item"`
	}
	status := env.Do(t, http.MethodPut, "/api/admin/items/"+it.ID.String()+"/status", admin.Token,
		StatusInput{Status: models.ItemApproved, Version: it.Version}, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Changed)

	var body testenv.ErrorBody
	status = env.Do(t, http.MethodPut, "/api/admin/items/"+it.ID.String()+"/status", admin.Token,
		StatusInput{Status: models.ItemRejected, Version: it.Version}, &body)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, domainerrors.CodeVersionConflict, body.Code)

	var stats models.Stats
	require.Equal(t, http.StatusOK, env.Get(t, "/api/admin/stats", admin.Token, &stats))
	assert.Equal(t, models.Stats{ApprovedItems: 2, Users: 2, PendingItems: 0}, stats)

	var all models.ItemPage
	require.Equal(t, http.StatusOK, env.Get(t, "/api/admin/items?search=coat", admin.Token, &all))
	assert.Equal(t, 1, all.Total)
	assert.Equal(t, http.StatusBadRequest, env.Get(t, "/api/admin/items?status=lost", admin.Token, nil))
}
