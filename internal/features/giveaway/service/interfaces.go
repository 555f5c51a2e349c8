package service

import (
	"context"

	auditmodels "github.com/Haiikyu/reveelbox-sub002/internal/features/audit/models"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/models"
	usermodels "github.com/Haiikyu/reveelbox-sub002/internal/features/user/models"
)

// RequestMeta carries the client fingerprint recorded with audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// GiveawayService orchestrates the giveaway lifecycle: creation, admission,
// completion and cancellation.
type GiveawayService interface {
	Create(ctx context.Context, caller *usermodels.Profile, input *models.CreateRequest, meta RequestMeta) (*models.CreateResponse, error)
	Join(ctx context.Context, caller *usermodels.Profile, input *models.JoinRequest, meta RequestMeta) (*models.JoinResponse, error)
	Complete(ctx context.Context, caller *usermodels.Profile, giveawayID string, meta RequestMeta) (*models.CompleteResponse, error)
	Cancel(ctx context.Context, caller *usermodels.Profile, giveawayID string, meta RequestMeta) error
	Get(ctx context.Context, giveawayID string) (*models.DetailsResponse, error)

	// AuditTrail returns the giveaway's audit entries in write order.
	// Admin only.
	AuditTrail(ctx context.Context, caller *usermodels.Profile, giveawayID string) ([]*auditmodels.Entry, error)

	// FinalizeExpired runs the system-actor path over one overdue giveaway:
	// the same completion as Complete when enough eligible participants
	// exist, cancellation otherwise. No per-call capability check.
	FinalizeExpired(ctx context.Context, giveawayID string) (*models.SweepOutcome, error)
}

// Sweeper finalizes every overdue giveaway in one invoked pass.
type Sweeper interface {
	Sweep(ctx context.Context) []models.SweepOutcome
}
