package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/rewear-api/internal/models"
)

func TestListItemsQuery_BrowseFilters(t *testing.T) {
	q := models.ItemQuery{
		Category: models.CategoryTops,
		Size:     models.SizeM,
		Tags:     []string{"vintage", "denim"},
		Search:   "50%_off",
		Sort:     models.SortPointsHigh,
		Limit:    20,
		Offset:   40,
	}.BrowseQuery()

	list, count := listItemsQuery(q)

	sql, args, err := list.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "i.status = $1")
	assert.Contains(t, sql, "i.is_available = $2")
	assert.Contains(t, sql, "i.category = $3")
	assert.Contains(t, sql, "i.size = $4")
	assert.Contains(t, sql, "HAVING COUNT(DISTINCT t.name) = $6")
	assert.Contains(t, sql, "i.title ILIKE $7")
	assert.Contains(t, sql, "i.description ILIKE $8")
	assert.Contains(t, sql, "ORDER BY i.point_value DESC, i.id ASC")
	assert.Contains(t, sql, "LIMIT 20 OFFSET 40")

	require.Len(t, args, 8)
	assert.Equal(t, "approved", args[0])
	assert.Equal(t, true, args[1])
	assert.Equal(t, []string{"vintage", "denim"}, args[4])
	assert.Equal(t, 2, args[5])
	assert.Equal(t, `%50\%\_off%`, args[6])

	countSQL, countArgs, err := count.ToSql()
	require.NoError(t, err)
	assert.Contains(t, countSQL, "SELECT COUNT(*) FROM items i WHERE")
	assert.NotContains(t, countSQL, "LIMIT")
	assert.Len(t, countArgs, 8)
}

func TestListItemsQuery_NoFilters(t *testing.T) {
	list, _ := listItemsQuery(models.ItemQuery{})
	sql, args, err := list.ToSql()
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.Contains(t, sql, "ORDER BY i.created_at DESC, i.id ASC")
	assert.NotContains(t, sql, "LIMIT")
}

func TestItemWhere_Owner(t *testing.T) {
	owner := uuid.New()
	sql, args, err := itemWhere(models.ItemQuery{OwnerID: owner}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(i.user_id = ?)", sql)
	assert.Equal(t, []any{owner}, args)
}

func TestSwapWhere(t *testing.T) {
	user := uuid.New()

	tests := []struct {
		name      string
		query     models.SwapQuery
		wantSQL   string
		wantCount int
	}{
		{"incoming", models.SwapQuery{UserID: user, Direction: models.SwapIncoming}, "(owner_id = ?)", 1},
		{"outgoing pending", models.SwapQuery{UserID: user, Direction: models.SwapOutgoing, Status: models.SwapPending},
			"(requester_id = ? AND status = ?)", 2},
		{"all", models.SwapQuery{UserID: user, Direction: models.SwapAll}, "((requester_id = ? OR owner_id = ?))", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := swapWhere(tt.query).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Len(t, args, tt.wantCount)
		})
	}
}
