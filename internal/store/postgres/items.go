package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/store"
)

var itemColumns = []string{
	"i.id", "i.user_id", "i.title", "i.description", "i.category", "i.size", "i.condition",
	"i.point_value", "i.image_urls", "i.status", "i.is_available", "i.version",
	"i.created_at", "i.updated_at",
	`COALESCE((SELECT array_agg(t.name ORDER BY t.name) FROM item_tags it JOIN tags t ON t.id = it.tag_id WHERE it.item_id = i.id), '{}') AS tags`,
}

const tagsFilter = `i.id IN (
	SELECT it.item_id FROM item_tags it JOIN tags t ON t.id = it.tag_id
	WHERE t.name = ANY(?)
	GROUP BY it.item_id
	HAVING COUNT(DISTINCT t.name) = ?)`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func scanItem(row pgx.Row, extra ...any) (*models.Item, error) {
	var it models.Item
	var category, condition, status string
	var size pgtype.Text

	dest := append(extra, &it.ID, &it.UserID, &it.Title, &it.Description, &category, &size, &condition,
		&it.PointValue, &it.ImageURLs, &status, &it.IsAvailable, &it.Version,
		&it.CreatedAt, &it.UpdatedAt, &it.Tags)
	if err := row.Scan(dest...); err != nil {
		return nil, translate(err)
	}

	it.Category = models.Category(category)
	it.Condition = models.Condition(condition)
	it.Status = models.ItemStatus(status)
	if size.Valid {
		it.Size = models.Size(size.String)
	}
	if it.ImageURLs == nil {
		it.ImageURLs = []string{}
	}
	return &it, nil
}

// itemWhere строит условия выборки по ItemQuery
func itemWhere(q models.ItemQuery) sq.And {
	where := sq.And{}
	if q.Status != "" {
		where = append(where, sq.Eq{"i.status": string(q.Status)})
	}
	if q.Available != nil {
		where = append(where, sq.Eq{"i.is_available": *q.Available})
	}
	if q.OwnerID != uuid.Nil {
		where = append(where, sq.Expr("i.user_id = ?", q.OwnerID))
	}
	if q.Category != "" {
		where = append(where, sq.Eq{"i.category": string(q.Category)})
	}
	if q.Size != "" {
		where = append(where, sq.Eq{"i.size": string(q.Size)})
	}
	if q.Condition != "" {
		where = append(where, sq.Eq{"i.condition": string(q.Condition)})
	}
	if len(q.Tags) > 0 {
		where = append(where, sq.Expr(tagsFilter, q.Tags, len(q.Tags)))
	}
	if q.Search != "" {
		pattern := "%" + likeEscaper.Replace(q.Search) + "%"
		where = append(where, sq.Or{
			sq.ILike{"i.title": pattern},
			sq.ILike{"i.description": pattern},
		})
	}
	return where
}

func itemOrder(order models.SortOrder) []string {
	switch order {
	case models.SortOldest:
		return []string{"i.created_at ASC", "i.id ASC"}
	case models.SortPointsLow:
		return []string{"i.point_value ASC", "i.id ASC"}
	case models.SortPointsHigh:
		return []string{"i.point_value DESC", "i.id ASC"}
	default:
		return []string{"i.created_at DESC", "i.id ASC"}
	}
}

// listItemsQuery строит запрос выборки и запрос количества
func listItemsQuery(q models.ItemQuery) (sq.SelectBuilder, sq.SelectBuilder) {
	where := itemWhere(q)

	list := psql.Select(itemColumns...).
		From("items i").
		Where(where).
		OrderBy(itemOrder(q.Sort)...)
	if q.Limit > 0 {
		list = list.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		list = list.Offset(uint64(q.Offset))
	}

	count := psql.Select("COUNT(*)").From("items i").Where(where)
	return list, count
}

// CreateItem сохраняет вещь и её теги. Вызывать внутри InTx.
func (q *queries) CreateItem(ctx context.Context, item *models.Item) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	if item.Version == 0 {
		item.Version = 1
	}
	if item.ImageURLs == nil {
		item.ImageURLs = []string{}
	}
	item.Tags = models.NormalizeTags(item.Tags)

	err := q.db.QueryRow(ctx, `
		INSERT INTO items (id, user_id, title, description, category, size, condition,
		                   point_value, image_urls, status, is_available, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
		RETURNING updated_at
	`, item.ID, item.UserID, item.Title, item.Description, string(item.Category), nullIfEmpty(string(item.Size)),
		string(item.Condition), item.PointValue, item.ImageURLs, string(item.Status), item.IsAvailable,
		item.Version, item.CreatedAt).Scan(&item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("создание вещи: %w", translate(err))
	}

	for _, name := range item.Tags {
		var tagID uuid.UUID
		err = q.db.QueryRow(ctx, `
			INSERT INTO tags (id, name) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, uuid.New(), name).Scan(&tagID)
		if err != nil {
			return fmt.Errorf("сохранение тега %q: %w", name, err)
		}

		_, err = q.db.Exec(ctx, `
			INSERT INTO item_tags (item_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING
		`, item.ID, tagID)
		if err != nil {
			return fmt.Errorf("привязка тега %q: %w", name, err)
		}
	}
	return nil
}

func (q *queries) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	query, args, err := psql.Select(itemColumns...).From("items i").Where(sq.Expr("i.id = ?", id)).ToSql()
	if err != nil {
		return nil, err
	}
	return scanItem(q.db.QueryRow(ctx, query, args...))
}

func (q *queries) GetItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Item, error) {
	out := make(map[uuid.UUID]*models.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := psql.Select(itemColumns...).From("items i").Where(sq.Expr("i.id = ANY(?)", ids)).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("запрос вещей: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[it.ID] = it
	}
	return out, rows.Err()
}

func (q *queries) ListItems(ctx context.Context, iq models.ItemQuery) ([]models.Item, int, error) {
	listQ, countQ := listItemsQuery(iq)

	query, args, err := countQ.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := q.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("подсчёт вещей: %w", err)
	}

	query, args, err = listQ.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("выборка вещей: %w", err)
	}
	defer rows.Close()

	items := make([]models.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *it)
	}
	return items, total, rows.Err()
}

func (q *queries) UpdateItemStatus(ctx context.Context, id uuid.UUID, to models.ItemStatus, expectedVersion int) (*models.Item, error) {
	var updatedID uuid.UUID
	err := q.db.QueryRow(ctx, `
		UPDATE items
		SET status = $2, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $3
		RETURNING id
	`, id, string(to), expectedVersion).Scan(&updatedID)

	if errors.Is(err, pgx.ErrNoRows) {
		ok, exErr := q.exists(ctx, "items", id)
		if exErr != nil {
			return nil, exErr
		}
		if !ok {
			return nil, store.ErrNotFound
		}
		return nil, store.ErrVersionConflict
	}
	if err != nil {
		return nil, fmt.Errorf("обновление статуса вещи: %w", translate(err))
	}
	return q.GetItem(ctx, updatedID)
}

func (q *queries) MarkItemSwapped(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE items
		SET status = 'swapped', is_available = false, version = version + 1, updated_at = now()
		WHERE id = $1 AND status = 'approved' AND is_available
	`, id)
	if err != nil {
		return fmt.Errorf("отметка обмена вещи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		ok, err := q.exists(ctx, "items", id)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrNotFound
		}
		return store.ErrStaleState
	}
	return nil
}

func (q *queries) CountItems(ctx context.Context, status models.ItemStatus) (int, error) {
	b := psql.Select("COUNT(*)").From("items")
	if status != "" {
		b = b.Where(sq.Eq{"status": string(status)})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	err = q.db.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

func (q *queries) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("запрос тегов: %w", err)
	}
	defer rows.Close()

	tags := make([]models.Tag, 0)
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
