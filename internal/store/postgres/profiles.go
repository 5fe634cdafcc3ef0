package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/store"
)

const profileColumns = `id, username, full_name, avatar_url, bio, location, points, telegram_id, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	var username pgtype.Text
	var telegramID pgtype.Int8

	err := row.Scan(&p.ID, &username, &p.FullName, &p.AvatarURL, &p.Bio, &p.Location,
		&p.Points, &telegramID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}

	// Преобразуем nullable поля
	if username.Valid {
		p.Username = username.String
	}
	if telegramID.Valid {
		p.TelegramID = telegramID.Int64
	}
	return &p, nil
}

func (q *queries) CreateProfile(ctx context.Context, p *models.Profile) error {
	var telegramID any
	if p.TelegramID != 0 {
		telegramID = p.TelegramID
	}

	err := q.db.QueryRow(ctx, `
		INSERT INTO profiles (id, username, full_name, avatar_url, bio, location, points, telegram_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, p.ID, nullIfEmpty(p.Username), p.FullName, p.AvatarURL, p.Bio, p.Location, p.Points, telegramID).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("создание профиля: %w", translate(err))
	}
	return nil
}

func (q *queries) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return scanProfile(q.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

func (q *queries) GetProfileByTelegramID(ctx context.Context, telegramID int64) (*models.Profile, error) {
	return scanProfile(q.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE telegram_id = $1`, telegramID))
}

func (q *queries) GetProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Profile, error) {
	out := make(map[uuid.UUID]*models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := q.db.Query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("запрос профилей: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (q *queries) UpdateProfile(ctx context.Context, p *models.Profile) error {
	updated, err := scanProfile(q.db.QueryRow(ctx, `
		UPDATE profiles
		SET full_name = $2, bio = $3, location = $4, avatar_url = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+profileColumns, p.ID, p.FullName, p.Bio, p.Location, p.AvatarURL))
	if err != nil {
		return err
	}
	*p = *updated
	return nil
}

func (q *queries) CountProfiles(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n)
	return n, err
}

func (q *queries) AdjustPoints(ctx context.Context, userID uuid.UUID, delta int) (int, error) {
	var balance int
	err := q.db.QueryRow(ctx, `
		UPDATE profiles
		SET points = points + $2, updated_at = now()
		WHERE id = $1 AND points + $2 >= 0
		RETURNING points
	`, userID, delta).Scan(&balance)

	if errors.Is(err, pgx.ErrNoRows) {
		ok, exErr := q.exists(ctx, "profiles", userID)
		if exErr != nil {
			return 0, exErr
		}
		if !ok {
			return 0, store.ErrNotFound
		}
		return 0, store.ErrInsufficientPoints
	}
	if err != nil {
		return 0, fmt.Errorf("изменение баланса: %w", translate(err))
	}
	return balance, nil
}
