package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/store"
)

func newProfile(t *testing.T, s *Store, username string, points int) *models.Profile {
	t.Helper()
	p := &models.Profile{ID: uuid.New(), Username: username, Points: points}
	require.NoError(t, s.CreateProfile(context.Background(), p))
	return p
}

func newItem(t *testing.T, s *Store, owner uuid.UUID, status models.ItemStatus, available bool) *models.Item {
	t.Helper()
	it := &models.Item{
		ID:          uuid.New(),
		UserID:      owner,
		Title:       "Item",
		Category:    models.CategoryTops,
		Condition:   models.ConditionGood,
		PointValue:  models.DefaultItemValue,
		Status:      status,
		IsAvailable: available,
	}
	require.NoError(t, s.CreateItem(context.Background(), it))
	return it
}

func TestInTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newProfile(t, s, "alice", 100)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(r store.Repository) error {
		if _, err := r.AdjustPoints(ctx, p.ID, -40); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Points)
}

func TestAdjustPoints_NeverNegative(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newProfile(t, s, "bob", 30)

	_, err := s.AdjustPoints(ctx, p.ID, -31)
	assert.ErrorIs(t, err, store.ErrInsufficientPoints)

	balance, err := s.AdjustPoints(ctx, p.ID, -30)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)

	_, err = s.AdjustPoints(ctx, uuid.New(), 5)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateItemStatus_VersionCheck(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := newProfile(t, s, "carol", 0)
	it := newItem(t, s, owner.ID, models.ItemPending, true)
	require.Equal(t, 1, it.Version)

	updated, err := s.UpdateItemStatus(ctx, it.ID, models.ItemApproved, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ItemApproved, updated.Status)
	assert.Equal(t, 2, updated.Version)

	_, err = s.UpdateItemStatus(ctx, it.ID, models.ItemRejected, 1)
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	_, err = s.UpdateItemStatus(ctx, uuid.New(), models.ItemRejected, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateItemStatus_ConcurrentModeratorsOneWins(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := newProfile(t, s, "dave", 0)
	it := newItem(t, s, owner.ID, models.ItemPending, true)

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := models.ItemApproved
			if i%2 == 1 {
				target = models.ItemRejected
			}
			_, results[i] = s.UpdateItemStatus(ctx, it.ID, target, it.Version)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, store.ErrVersionConflict)
	}
	assert.Equal(t, 1, wins)
}

func TestMarkItemSwapped(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := newProfile(t, s, "erin", 0)
	it := newItem(t, s, owner.ID, models.ItemApproved, true)

	require.NoError(t, s.MarkItemSwapped(ctx, it.ID))
	got, err := s.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemSwapped, got.Status)
	assert.False(t, got.IsAvailable)

	assert.ErrorIs(t, s.MarkItemSwapped(ctx, it.ID), store.ErrStaleState)
}

func TestUpdateSwapStatus_FromCheck(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := newProfile(t, s, "frank", 0)
	requester := newProfile(t, s, "gina", 100)
	it := newItem(t, s, owner.ID, models.ItemApproved, true)

	sw := &models.SwapRequest{
		ID:              uuid.New(),
		RequesterID:     requester.ID,
		OwnerID:         owner.ID,
		RequestedItemID: it.ID,
		PointsOffered:   20,
		Status:          models.SwapPending,
	}
	require.NoError(t, s.CreateSwap(ctx, sw))

	pending, err := s.HasPendingSwap(ctx, requester.ID, it.ID)
	require.NoError(t, err)
	assert.True(t, pending)

	_, err = s.UpdateSwapStatus(ctx, sw.ID, models.SwapPending, models.SwapAccepted)
	require.NoError(t, err)

	_, err = s.UpdateSwapStatus(ctx, sw.ID, models.SwapPending, models.SwapRejected)
	assert.ErrorIs(t, err, store.ErrStaleState)

	list, err := s.ListSwaps(ctx, models.SwapQuery{UserID: owner.ID, Direction: models.SwapIncoming})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.SwapAccepted, list[0].Status)
}

func TestListItems_BrowseExample(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := newProfile(t, s, "hana", 0)
	newItem(t, s, owner.ID, models.ItemPending, true)
	visible := newItem(t, s, owner.ID, models.ItemApproved, true)
	newItem(t, s, owner.ID, models.ItemApproved, false)

	items, total, err := s.ListItems(ctx, models.ItemQuery{}.BrowseQuery().Normalize())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, visible.ID, items[0].ID)
}

func TestReturnedItemsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := newProfile(t, s, "ivan", 0)
	it := newItem(t, s, owner.ID, models.ItemApproved, true)

	got, err := s.GetItem(ctx, it.ID)
	require.NoError(t, err)
	got.Status = models.ItemRejected
	got.Tags = append(got.Tags, "mutated")

	again, err := s.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemApproved, again.Status)
	assert.Empty(t, again.Tags)
}

func TestFavorites(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := newProfile(t, s, "jane", 0)
	viewer := newProfile(t, s, "kate", 0)
	visible := newItem(t, s, owner.ID, models.ItemApproved, true)
	hidden := newItem(t, s, owner.ID, models.ItemApproved, true)

	require.NoError(t, s.AddFavorite(ctx, viewer.ID, visible.ID))
	require.NoError(t, s.AddFavorite(ctx, viewer.ID, hidden.ID))
	assert.ErrorIs(t, s.AddFavorite(ctx, viewer.ID, visible.ID), store.ErrDuplicate)
	require.NoError(t, s.MarkItemSwapped(ctx, hidden.ID))

	favs, total, err := s.ListFavorites(ctx, viewer.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, favs, 1)
	assert.Equal(t, visible.ID, favs[0].ItemID)

	require.NoError(t, s.RemoveFavorite(ctx, viewer.ID, visible.ID))
	assert.ErrorIs(t, s.RemoveFavorite(ctx, viewer.ID, visible.ID), store.ErrNotFound)
}

func TestSeedDemo_IdempotentAndLedgerBalanced(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, store.SeedDemo(ctx, s))
	require.NoError(t, store.SeedDemo(ctx, s))

	users, err := s.CountProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, users)

	approved, err := s.CountItems(ctx, models.ItemApproved)
	require.NoError(t, err)
	assert.Equal(t, 10, approved)

	id := store.DemoUserID("fashionista_sarah")
	p, err := s.GetProfile(ctx, id)
	require.NoError(t, err)
	entries, err := s.ListPoints(ctx, id)
	require.NoError(t, err)

	sum := 0
	for _, e := range entries {
		sum += e.Amount
	}
	assert.Equal(t, 250, p.Points)
	assert.Equal(t, p.Points, sum)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tags)
}
