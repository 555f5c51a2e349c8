package service

import (
	"context"
	"time"

	"github.com/Haiikyu/reveelbox-sub002/internal/common/logger"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/models"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/repository"
)

type sweeper struct {
	svc  GiveawayService
	repo repository.GiveawayRepository
}

// NewSweeper builds the expiry sweeper. It is an invoked job, not a loop:
// each Sweep call processes whatever is overdue at that moment and returns.
func NewSweeper(svc GiveawayService, repo repository.GiveawayRepository) Sweeper {
	return &sweeper{svc: svc, repo: repo}
}

func (s *sweeper) Sweep(ctx context.Context) []models.SweepOutcome {
	overdue, err := s.repo.ListExpiredActive(ctx, time.Now())
	if err != nil {
		logger.Error().Err(err).Msg("Sweep failed to list expired giveaways")
		return nil
	}
	if len(overdue) == 0 {
		return []models.SweepOutcome{}
	}

	logger.Info().Int("count", len(overdue)).Msg("Sweeping expired giveaways")

	// Each giveaway is finalized independently; one failure never blocks
	// the rest of the sweep.
	outcomes := make([]models.SweepOutcome, 0, len(overdue))
	for _, g := range overdue {
		outcome, err := s.svc.FinalizeExpired(ctx, g.ID)
		if err != nil {
			logger.Error().
				Err(err).
				Str("giveaway_id", g.ID).
				Msg("Failed to finalize expired giveaway")
			outcomes = append(outcomes, models.SweepOutcome{
				GiveawayID: g.ID,
				Outcome:    "failed",
				Err:        err.Error(),
			})
			continue
		}
		outcomes = append(outcomes, *outcome)
	}
	return outcomes
}
