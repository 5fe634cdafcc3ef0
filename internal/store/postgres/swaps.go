package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/store"
)

var swapColumns = []string{
	"id", "requester_id", "owner_id", "requested_item_id", "offered_item_id",
	"points_offered", "message", "status", "created_at", "updated_at",
}

func scanSwap(row pgx.Row) (*models.SwapRequest, error) {
	var s models.SwapRequest
	var offered pgtype.UUID
	var status string

	err := row.Scan(&s.ID, &s.RequesterID, &s.OwnerID, &s.RequestedItemID, &offered,
		&s.PointsOffered, &s.Message, &status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}

	s.Status = models.SwapStatus(status)
	if offered.Valid {
		id := uuid.UUID(offered.Bytes)
		s.OfferedItemID = &id
	}
	return &s, nil
}

// swapWhere строит условия выборки обменов пользователя
func swapWhere(q models.SwapQuery) sq.And {
	where := sq.And{}
	switch q.Direction {
	case models.SwapIncoming:
		where = append(where, sq.Expr("owner_id = ?", q.UserID))
	case models.SwapOutgoing:
		where = append(where, sq.Expr("requester_id = ?", q.UserID))
	default:
		where = append(where, sq.Expr("(requester_id = ? OR owner_id = ?)", q.UserID, q.UserID))
	}
	if q.Status != "" {
		where = append(where, sq.Eq{"status": string(q.Status)})
	}
	return where
}

func (q *queries) CreateSwap(ctx context.Context, s *models.SwapRequest) error {
	var offered any
	if s.OfferedItemID != nil {
		offered = *s.OfferedItemID
	}

	err := q.db.QueryRow(ctx, `
		INSERT INTO swap_requests (id, requester_id, owner_id, requested_item_id, offered_item_id,
		                           points_offered, message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, s.ID, s.RequesterID, s.OwnerID, s.RequestedItemID, offered,
		s.PointsOffered, s.Message, string(s.Status)).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("создание обмена: %w", translate(err))
	}
	return nil
}

func (q *queries) GetSwap(ctx context.Context, id uuid.UUID) (*models.SwapRequest, error) {
	query, args, err := psql.Select(swapColumns...).From("swap_requests").Where(sq.Expr("id = ?", id)).ToSql()
	if err != nil {
		return nil, err
	}
	return scanSwap(q.db.QueryRow(ctx, query, args...))
}

func (q *queries) ListSwaps(ctx context.Context, sqy models.SwapQuery) ([]models.SwapRequest, error) {
	query, args, err := psql.Select(swapColumns...).
		From("swap_requests").
		Where(swapWhere(sqy)).
		OrderBy("created_at DESC", "id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("запрос обменов: %w", err)
	}
	defer rows.Close()

	swaps := make([]models.SwapRequest, 0)
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		swaps = append(swaps, *s)
	}
	return swaps, rows.Err()
}

func (q *queries) HasPendingSwap(ctx context.Context, requesterID, requestedItemID uuid.UUID) (bool, error) {
	var ok bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM swap_requests
			WHERE requester_id = $1 AND requested_item_id = $2 AND status = 'pending'
		)
	`, requesterID, requestedItemID).Scan(&ok)
	return ok, err
}

func (q *queries) UpdateSwapStatus(ctx context.Context, id uuid.UUID, from, to models.SwapStatus) (*models.SwapRequest, error) {
	s, err := scanSwap(q.db.QueryRow(ctx, `
		UPDATE swap_requests
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+strings.Join(swapColumns, ", "), id, string(to), string(from)))

	if errors.Is(err, store.ErrNotFound) {
		ok, exErr := q.exists(ctx, "swap_requests", id)
		if exErr != nil {
			return nil, exErr
		}
		if ok {
			return nil, store.ErrStaleState
		}
		return nil, store.ErrNotFound
	}
	return s, err
}

func (q *queries) CountSwaps(ctx context.Context, status models.SwapStatus) (int, error) {
	b := psql.Select("COUNT(*)").From("swap_requests")
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
