package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Haiikyu/reveelbox-sub002/internal/common/logger"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/audit/models"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/audit/repository"
)

// Recorder appends entries to the audit trail. A failed write is logged but
// never propagated: the audit trail must not break the request it documents.
type Recorder interface {
	Record(ctx context.Context, entry models.Entry)
}

type recorder struct {
	repo repository.AuditRepository
}

func NewRecorder(repo repository.AuditRepository) Recorder {
	return &recorder{repo: repo}
}

func (r *recorder) Record(ctx context.Context, entry models.Entry) {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()

	if err := r.repo.Create(ctx, &entry); err != nil {
		logger.Error().
			Err(err).
			Str("action", string(entry.Action)).
			Int64("actor_id", entry.ActorID).
			Msg("Failed to write audit entry")
		return
	}

	logger.Debug().
		Str("action", string(entry.Action)).
		Int64("actor_id", entry.ActorID).
		Msg("Audit entry recorded")
}
