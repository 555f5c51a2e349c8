package repository

import (
	"context"

	"github.com/Haiikyu/reveelbox-sub002/internal/features/audit/models"
)

// AuditRepository persists the append-only event trail.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.Entry) error
	ListByGiveaway(ctx context.Context, giveawayID string) ([]*models.Entry, error)
}
