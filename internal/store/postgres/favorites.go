package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/store"
)

func (q *queries) AddFavorite(ctx context.Context, userID, itemID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO favorites (user_id, item_id) VALUES ($1, $2)
	`, userID, itemID)
	if err != nil {
		return fmt.Errorf("добавление в избранное: %w", translate(err))
	}
	return nil
}

func (q *queries) RemoveFavorite(ctx context.Context, userID, itemID uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM favorites WHERE user_id = $1 AND item_id = $2
	`, userID, itemID)
	if err != nil {
		return fmt.Errorf("удаление из избранного: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *queries) IsFavorite(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	var ok bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = $1 AND item_id = $2)
	`, userID, itemID).Scan(&ok)
	return ok, err
}

// ListFavorites возвращает только вещи, видимые в каталоге
func (q *queries) ListFavorites(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Favorite, int, error) {
	var total int
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM favorites f
		JOIN items i ON i.id = f.item_id
		WHERE f.user_id = $1 AND i.status = 'approved' AND i.is_available
	`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт избранного: %w", err)
	}

	b := psql.Select(append([]string{"f.created_at"}, itemColumns...)...).
		From("favorites f").
		Join("items i ON i.id = f.item_id").
		Where("f.user_id = ? AND i.status = 'approved' AND i.is_available", userID).
		OrderBy("f.created_at DESC", "i.id ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	if offset > 0 {
		b = b.Offset(uint64(offset))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("запрос избранного: %w", err)
	}
	defer rows.Close()

	favs := make([]models.Favorite, 0)
	for rows.Next() {
		var addedAt time.Time
		it, err := scanItem(rows, &addedAt)
		if err != nil {
			return nil, 0, err
		}
		favs = append(favs, models.Favorite{UserID: userID, ItemID: it.ID, CreatedAt: addedAt, Item: it})
	}
	return favs, total, rows.Err()
}
