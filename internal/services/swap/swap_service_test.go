package swap

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
	"github.com/rajivgeraev/rewear-api/internal/events"
	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/testenv"
)

type fixture struct {
	env       *testenv.Env
	svc       *SwapService
	owner     testenv.User
	requester testenv.User
	wanted    *models.Item
	offered   *models.Item
}

func setup(t *testing.T) *fixture {
	t.Helper()
	env := testenv.New(t)
	svc := NewSwapService(env.Store, env.Events, env.Metrics, env.Validator, zerolog.Nop())
	svc.SetupRoutes(env.App, env.Auth())

	f := &fixture{env: env, svc: svc}
	f.owner = env.SignUp(t, "owner")
	f.requester = env.SignUp(t, "requester")
	f.wanted = env.AddItem(t, f.owner.ID, "Wanted", models.ItemApproved)
	f.offered = env.AddItem(t, f.requester.ID, "Offered", models.ItemApproved)
	return f
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := f.env.Store.GetProfile(context.Background(), id)
	require.NoError(t, err)
	return p.Points
}

func (f *fixture) ledgerSum(t *testing.T, id uuid.UUID) int {
	t.Helper()
	entries, err := f.env.Store.ListPoints(context.Background(), id)
	require.NoError(t, err)
	sum := 0
	for _, e := range entries {
		sum += e.Amount
	}
	return sum
}

func TestCreate_StoresSuppliedFields(t *testing.T) {
	f := setup(t)
	offered := f.offered.ID

	sw, err := f.svc.Create(context.Background(), f.requester.ID, CreateSwapInput{
		RequestedItemID: f.wanted.ID,
		OfferedItemID:   &offered,
		Message:         "  trade? ",
	})
	require.NoError(t, err)

	stored, err := f.env.Store.GetSwap(context.Background(), sw.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapPending, stored.Status)
	assert.Equal(t, f.requester.ID, stored.RequesterID)
	assert.Equal(t, f.owner.ID, stored.OwnerID)
	assert.Equal(t, f.wanted.ID, stored.RequestedItemID)
	require.NotNil(t, stored.OfferedItemID)
	assert.Equal(t, offered, *stored.OfferedItemID)
	assert.Equal(t, 0, stored.PointsOffered)
	assert.Equal(t, "  trade? ", stored.Message)
	assert.Equal(t, 1, f.env.Events.Count(events.SwapCreated))
}

func TestCreate_Rules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	offered := f.offered.ID
	ownersOther := f.env.AddItem(t, f.owner.ID, "Owner other", models.ItemApproved).ID
	pending := f.env.AddItem(t, f.owner.ID, "Pending", models.ItemPending).ID

	tests := []struct {
		name      string
		requester uuid.UUID
		in        CreateSwapInput
		want      error
	}{
		{"both offers", f.requester.ID, CreateSwapInput{RequestedItemID: f.wanted.ID, OfferedItemID: &offered, PointsOffered: 10}, domainerrors.ErrValidation},
		{"no offer", f.requester.ID, CreateSwapInput{RequestedItemID: f.wanted.ID}, domainerrors.ErrValidation},
		{"negative points", f.requester.ID, CreateSwapInput{RequestedItemID: f.wanted.ID, PointsOffered: -5}, domainerrors.ErrValidation},
		{"own item", f.owner.ID, CreateSwapInput{RequestedItemID: f.wanted.ID, PointsOffered: 10}, domainerrors.ErrValidation},
		{"unknown item", f.requester.ID, CreateSwapInput{RequestedItemID: uuid.New(), PointsOffered: 10}, domainerrors.ErrNotFound},
		{"not approved", f.requester.ID, CreateSwapInput{RequestedItemID: pending, PointsOffered: 10}, domainerrors.ErrConflict},
		{"foreign offered item", f.requester.ID, CreateSwapInput{RequestedItemID: f.wanted.ID, OfferedItemID: &ownersOther}, domainerrors.ErrForbidden},
		{"too many points", f.requester.ID, CreateSwapInput{RequestedItemID: f.wanted.ID, PointsOffered: 101}, domainerrors.ErrInsufficientPoints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.requester, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	swaps, err := f.env.Store.ListSwaps(ctx, models.SwapQuery{UserID: f.owner.ID})
	require.NoError(t, err)
	assert.Empty(t, swaps)
}

func TestCreate_DuplicatePending(t *testing.T) {
	f := setup(t)

	body := CreateSwapInput{RequestedItemID: f.wanted.ID, PointsOffered: 20}
	require.Equal(t, http.StatusCreated, f.env.Do(t, http.MethodPost, "/api/swaps", f.requester.Token, body, nil))

	var errBody testenv.ErrorBody
	require.Equal(t, http.StatusConflict, f.env.Do(t, http.MethodPost, "/api/swaps", f.requester.Token, body, &errBody))
	assert.Equal(t, domainerrors.CodeAlreadyExists, errBody.Code)
}

func TestUpdateStatus_Permissions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sw, err := f.svc.Create(ctx, f.requester.ID, CreateSwapInput{RequestedItemID: f.wanted.ID, PointsOffered: 20})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.requester.ID, sw.ID, models.SwapAccepted)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = f.svc.UpdateStatus(ctx, f.owner.ID, sw.ID, models.SwapCancelled)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = f.svc.UpdateStatus(ctx, uuid.New(), sw.ID, models.SwapRejected)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = f.svc.UpdateStatus(ctx, f.owner.ID, sw.ID, models.SwapCompleted)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, f.owner.ID, sw.ID, "lost")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	cancelled, err := f.svc.UpdateStatus(ctx, f.requester.ID, sw.ID, models.SwapCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.SwapCancelled, cancelled.Status)

	_, err = f.svc.UpdateStatus(ctx, f.owner.ID, sw.ID, models.SwapAccepted)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)
}

func TestAccept_RechecksBalance(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sw, err := f.svc.Create(ctx, f.requester.ID, CreateSwapInput{RequestedItemID: f.wanted.ID, PointsOffered: 90})
	require.NoError(t, err)

	_, err = f.env.Store.AdjustPoints(ctx, f.requester.ID, -50)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.owner.ID, sw.ID, models.SwapAccepted)
	assert.ErrorIs(t, err, domainerrors.ErrInsufficientPoints)

	stored, err := f.env.Store.GetSwap(ctx, sw.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapPending, stored.Status)
}

func TestComplete_PointsOffer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sw, err := f.svc.Create(ctx, f.requester.ID, CreateSwapInput{RequestedItemID: f.wanted.ID, PointsOffered: 40})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, f.owner.ID, sw.ID, models.SwapAccepted)
	require.NoError(t, err)

	done, err := f.svc.UpdateStatus(ctx, f.requester.ID, sw.ID, models.SwapCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.SwapCompleted, done.Status)

	it, err := f.env.Store.GetItem(ctx, f.wanted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemSwapped, it.Status)
	assert.False(t, it.IsAvailable)

	assert.Equal(t, 100-40+10, f.balance(t, f.requester.ID))
	assert.Equal(t, 100+40+10, f.balance(t, f.owner.ID))
	assert.Equal(t, f.balance(t, f.requester.ID), f.ledgerSum(t, f.requester.ID))
	assert.Equal(t, f.balance(t, f.owner.ID), f.ledgerSum(t, f.owner.ID))

	assert.Equal(t, 1, f.env.Events.Count(events.SwapCompleted))
	assert.Equal(t, 1, f.env.Events.Count(events.ItemSwapped))
	assert.Equal(t, 4, f.env.Events.Count(events.PointsChanged))
	assert.Equal(t, 40.0, testutil.ToFloat64(f.env.Metrics.PointsMoved.WithLabelValues("spent")))

	_, err = f.svc.UpdateStatus(ctx, f.owner.ID, sw.ID, models.SwapCompleted)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)
}

func TestComplete_ItemOffer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	offered := f.offered.ID

	sw, err := f.svc.Create(ctx, f.requester.ID, CreateSwapInput{RequestedItemID: f.wanted.ID, OfferedItemID: &offered})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, f.owner.ID, sw.ID, models.SwapAccepted)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, f.owner.ID, sw.ID, models.SwapCompleted)
	require.NoError(t, err)

	for _, id := range []uuid.UUID{f.wanted.ID, f.offered.ID} {
		it, err := f.env.Store.GetItem(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.ItemSwapped, it.Status)
	}
	assert.Equal(t, 110, f.balance(t, f.requester.ID))
	assert.Equal(t, 110, f.balance(t, f.owner.ID))
}

func TestComplete_RollsBackWhenItemGone(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.requester.ID, CreateSwapInput{RequestedItemID: f.wanted.ID, PointsOffered: 10})
	require.NoError(t, err)
	other := f.env.SignUp(t, "other")
	second, err := f.svc.Create(ctx, other.ID, CreateSwapInput{RequestedItemID: f.wanted.ID, PointsOffered: 10})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.owner.ID, first.ID, models.SwapAccepted)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, f.owner.ID, second.ID, models.SwapAccepted)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.owner.ID, first.ID, models.SwapCompleted)
	require.NoError(t, err)
	ownerBalance := f.balance(t, f.owner.ID)

	_, err = f.svc.UpdateStatus(ctx, f.owner.ID, second.ID, models.SwapCompleted)
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	stored, err := f.env.Store.GetSwap(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapAccepted, stored.Status)
	assert.Equal(t, ownerBalance, f.balance(t, f.owner.ID))
	assert.Equal(t, 100, f.balance(t, other.ID))
}

func TestListSwaps(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	offered := f.offered.ID

	_, err := f.svc.Create(ctx, f.requester.ID, CreateSwapInput{RequestedItemID: f.wanted.ID, OfferedItemID: &offered})
	require.NoError(t, err)

	var resp struct {
		Swaps []models.SwapRequest `json:"swaps"`
	}
	require.Equal(t, http.StatusOK, f.env.Get(t, "/api/swaps?type=incoming", f.owner.Token, &resp))
	require.Len(t, resp.Swaps, 1)
	sw := resp.Swaps[0]
	require.NotNil(t, sw.RequestedItem)
	require.NotNil(t, sw.OfferedItem)
	require.NotNil(t, sw.Requester)
	assert.Equal(t, "Wanted", sw.RequestedItem.Title)
	assert.Equal(t, "Offered", sw.OfferedItem.Title)
	assert.Equal(t, "requester", sw.Requester.Username)
	assert.Equal(t, "owner", sw.Owner.Username)

	require.Equal(t, http.StatusOK, f.env.Get(t, "/api/swaps?type=outgoing", f.owner.Token, &resp))
	assert.Empty(t, resp.Swaps)

	require.Equal(t, http.StatusOK, f.env.Get(t, "/api/swaps?status=pending", f.requester.Token, &resp))
	assert.Len(t, resp.Swaps, 1)

	assert.Equal(t, http.StatusBadRequest, f.env.Get(t, "/api/swaps?type=sideways", f.owner.Token, nil))
}

func TestUpdateSwapStatus_Route(t *testing.T) {
	f := setup(t)

	sw, err := f.svc.Create(context.Background(), f.requester.ID, CreateSwapInput{RequestedItemID: f.wanted.ID, PointsOffered: 5})
	require.NoError(t, err)

	var resp struct {
		Swap models.SwapRequest `json:"swap"`
	}
	status := f.env.Do(t, http.MethodPut, "/api/swaps/"+sw.ID.String()+"/status", f.owner.Token, StatusInput{Status: models.SwapRejected}, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.SwapRejected, resp.Swap.Status)
}

func TestUpdateStatus_ClosedSwapStaysClosed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sw, err := f.svc.Create(ctx, f.requester.ID, CreateSwapInput{RequestedItemID: f.wanted.ID, PointsOffered: 10})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, f.owner.ID, sw.ID, models.SwapRejected)
	require.NoError(t, err)

	for _, target := range []models.SwapStatus{models.SwapCancelled, models.SwapCompleted} {
		_, err = f.svc.UpdateStatus(ctx, f.requester.ID, sw.ID, target)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition, target)
	}

	stored, err := f.env.Store.GetSwap(ctx, sw.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapRejected, stored.Status)
}
