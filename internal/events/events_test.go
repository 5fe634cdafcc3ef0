package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failing struct{ err error }

func (f failing) Publish(context.Context, Event) error { return f.err }

func TestSubject(t *testing.T) {
	assert.Equal(t, "rewear.item.moderated", Subject(ItemModerated))
	assert.Equal(t, "rewear.swap.completed", Subject(SwapEvent("completed")))
}

func TestAffectsBrowse(t *testing.T) {
	assert.True(t, ItemModerated.AffectsBrowse())
	assert.True(t, SwapCompleted.AffectsBrowse())
	assert.False(t, SwapCreated.AffectsBrowse())
	assert.False(t, PointsChanged.AffectsBrowse())
}

func TestFanout_DeliversToAllAndJoinsErrors(t *testing.T) {
	rec1, rec2 := &Recorder{}, &Recorder{}
	boom := errors.New("boom")
	f := Fanout{rec1, failing{boom}, nil, rec2}

	err := f.Publish(context.Background(), New(ItemCreated, uuid.New(), uuid.Nil, nil))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, rec1.Count(ItemCreated))
	assert.Equal(t, 1, rec2.Count(ItemCreated))
}

func TestNew(t *testing.T) {
	id := uuid.New()
	e := New(SwapCreated, id, uuid.Nil, map[string]any{"points": 10})
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, id, e.EntityID)
	assert.False(t, e.At.IsZero())
}
