package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/rajivgeraev/rewear-api/internal/models"
)

// AttachOwners заполняет Owner у вещей одним запросом профилей
func AttachOwners(ctx context.Context, r Repository, items []models.Item) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.UserID)
	}
	profiles, err := r.GetProfiles(ctx, ids)
	if err != nil {
		return err
	}
	for i := range items {
		if p, ok := profiles[items[i].UserID]; ok {
			items[i].Owner = p.Summary()
		}
	}
	return nil
}
