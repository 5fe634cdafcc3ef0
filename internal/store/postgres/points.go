package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rajivgeraev/rewear-api/internal/models"
)

func (q *queries) AddPointsEntry(ctx context.Context, e *models.PointsEntry) error {
	var swapID any
	if e.SwapRequestID != nil {
		swapID = *e.SwapRequestID
	}

	err := q.db.QueryRow(ctx, `
		INSERT INTO points_log (id, user_id, amount, transaction_type, swap_request_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, e.ID, e.UserID, e.Amount, string(e.TransactionType), swapID, e.Description).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("запись в журнал баллов: %w", translate(err))
	}
	return nil
}

func (q *queries) ListPoints(ctx context.Context, userID uuid.UUID) ([]models.PointsEntry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, amount, transaction_type, swap_request_id, description, created_at
		FROM points_log
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("запрос журнала баллов: %w", err)
	}
	defer rows.Close()

	entries := make([]models.PointsEntry, 0)
	for rows.Next() {
		var e models.PointsEntry
		var txType string
		var swapID pgtype.UUID
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &txType, &swapID, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.TransactionType = models.TransactionType(txType)
		if swapID.Valid {
			id := uuid.UUID(swapID.Bytes)
			e.SwapRequestID = &id
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
