package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/store"
	"github.com/rajivgeraev/rewear-api/internal/store/memory"
)

var errTxAborted = errors.New("current transaction is aborted")

// strictTxStore ведёт себя как PostgreSQL: после ошибки уникальности
// любой следующий запрос в транзакции завершается ошибкой.
type strictTxStore struct {
	*memory.Store
}

func (s strictTxStore) InTx(ctx context.Context, fn func(r store.Repository) error) error {
	return s.Store.InTx(ctx, func(r store.Repository) error {
		return fn(&strictRepo{Repository: r})
	})
}

type strictRepo struct {
	store.Repository
	aborted bool
}

func (r *strictRepo) track(err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		r.aborted = true
	}
	return err
}

func (r *strictRepo) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	if r.aborted {
		return nil, errTxAborted
	}
	return r.Repository.GetProfile(ctx, id)
}

func (r *strictRepo) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	if r.aborted {
		return nil, errTxAborted
	}
	return r.Repository.GetItem(ctx, id)
}

func (r *strictRepo) CreateProfile(ctx context.Context, p *models.Profile) error {
	if r.aborted {
		return errTxAborted
	}
	return r.track(r.Repository.CreateProfile(ctx, p))
}

func (r *strictRepo) CreateItem(ctx context.Context, item *models.Item) error {
	if r.aborted {
		return errTxAborted
	}
	return r.track(r.Repository.CreateItem(ctx, item))
}

func (r *strictRepo) AdjustPoints(ctx context.Context, userID uuid.UUID, delta int) (int, error) {
	if r.aborted {
		return 0, errTxAborted
	}
	return r.Repository.AdjustPoints(ctx, userID, delta)
}

func (r *strictRepo) AddPointsEntry(ctx context.Context, e *models.PointsEntry) error {
	if r.aborted {
		return errTxAborted
	}
	return r.track(r.Repository.AddPointsEntry(ctx, e))
}

func TestSeedDemo_RepeatedRunNeverHitsDuplicates(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	s := strictTxStore{Store: mem}

	require.NoError(t, store.SeedDemo(ctx, s))
	require.NoError(t, store.SeedDemo(ctx, s))

	users, err := mem.CountProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, users)

	approved, err := mem.CountItems(ctx, models.ItemApproved)
	require.NoError(t, err)
	assert.Equal(t, 10, approved)

	entries, err := mem.ListPoints(ctx, store.DemoUserID("fashionista_sarah"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
