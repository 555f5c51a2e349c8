package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/Haiikyu/reveelbox-sub002/internal/common/errors"
	"github.com/Haiikyu/reveelbox-sub002/internal/common/logger"
	"github.com/Haiikyu/reveelbox-sub002/internal/common/permissions"
	"github.com/Haiikyu/reveelbox-sub002/internal/common/ratelimit"
	auditmodels "github.com/Haiikyu/reveelbox-sub002/internal/features/audit/models"
	auditrepo "github.com/Haiikyu/reveelbox-sub002/internal/features/audit/repository"
	auditservice "github.com/Haiikyu/reveelbox-sub002/internal/features/audit/service"
	chatmodels "github.com/Haiikyu/reveelbox-sub002/internal/features/chat/models"
	chatservice "github.com/Haiikyu/reveelbox-sub002/internal/features/chat/service"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/models"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/repository"
	usermodels "github.com/Haiikyu/reveelbox-sub002/internal/features/user/models"
	userrepo "github.com/Haiikyu/reveelbox-sub002/internal/features/user/repository"
	"github.com/Haiikyu/reveelbox-sub002/internal/platform/captcha"
)

const prizeCreditReason = "giveaway_prize"

type giveawayService struct {
	repo     repository.GiveawayRepository
	profiles userrepo.ProfileRepository
	chat     chatservice.ChatService
	audit    auditservice.Recorder
	auditLog auditrepo.AuditRepository
	captcha  captcha.Verifier
	limiter  ratelimit.Limiter
}

func NewGiveawayService(
	repo repository.GiveawayRepository,
	profiles userrepo.ProfileRepository,
	chat chatservice.ChatService,
	audit auditservice.Recorder,
	auditLog auditrepo.AuditRepository,
	captchaVerifier captcha.Verifier,
	limiter ratelimit.Limiter,
) GiveawayService {
	return &giveawayService{
		repo:     repo,
		profiles: profiles,
		chat:     chat,
		audit:    audit,
		auditLog: auditLog,
		captcha:  captchaVerifier,
		limiter:  limiter,
	}
}

func (s *giveawayService) Create(ctx context.Context, caller *usermodels.Profile, input *models.CreateRequest, meta RequestMeta) (*models.CreateResponse, error) {
	if !permissions.Can(caller, permissions.CapCreateGiveaway) {
		return nil, apperrors.NewPermissionError(string(permissions.CapCreateGiveaway)).WithUserID(caller.ID)
	}
	if err := s.limiter.Allow(ctx, caller.ID, "create_giveaway"); err != nil {
		return nil, err
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	now := time.Now()
	giveaway := &models.Giveaway{
		ID:              uuid.New().String(),
		RoomID:          input.RoomID,
		CreatorID:       caller.ID,
		Title:           strings.TrimSpace(input.Title),
		TotalAmount:     input.TotalAmount,
		WinnersCount:    input.WinnersCount,
		DurationMinutes: input.DurationMinutes,
		Status:          models.GiveawayStatusActive,
		CreatedAt:       now,
		EndsAt:          now.Add(time.Duration(input.DurationMinutes) * time.Minute),
	}

	if err := s.repo.Create(ctx, giveaway); err != nil {
		return nil, apperrors.NewDatabaseError("create giveaway", err)
	}

	// The payout tiers are computed here only for the announcement text; the
	// authoritative distribution is recomputed at completion time.
	dist := Distribute(giveaway.TotalAmount, giveaway.WinnersCount)
	announcement, err := s.chat.PostSystem(ctx, caller.ID, giveaway.RoomID,
		announcementText(giveaway, dist), chatmodels.MessageTypeGiveawayAnnouncement)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetAnnouncementMessage(ctx, giveaway.ID, announcement.ID); err != nil {
		return nil, apperrors.NewDatabaseError("set announcement message", err)
	}
	giveaway.AnnouncementMsg = &announcement.ID

	s.audit.Record(ctx, auditmodels.Entry{
		GiveawayID: &giveaway.ID,
		Action:     auditmodels.ActionGiveawayCreated,
		ActorID:    caller.ID,
		Details: map[string]interface{}{
			"title":            giveaway.Title,
			"total_amount":     giveaway.TotalAmount,
			"winners_count":    giveaway.WinnersCount,
			"duration_minutes": giveaway.DurationMinutes,
			"ends_at":          giveaway.EndsAt,
		},
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})

	logger.Info().
		Str("giveaway_id", giveaway.ID).
		Int64("creator_id", caller.ID).
		Int64("total_amount", giveaway.TotalAmount).
		Msg("Giveaway created")

	return &models.CreateResponse{Giveaway: giveaway, AnnouncementMessageID: announcement.ID}, nil
}

func (s *giveawayService) Join(ctx context.Context, caller *usermodels.Profile, input *models.JoinRequest, meta RequestMeta) (*models.JoinResponse, error) {
	if !permissions.Can(caller, permissions.CapJoinGiveaway) {
		return nil, apperrors.NewPermissionError(string(permissions.CapJoinGiveaway)).WithUserID(caller.ID)
	}
	if err := s.limiter.Allow(ctx, caller.ID, "join_giveaway"); err != nil {
		return nil, err
	}

	giveaway, err := s.getGiveaway(ctx, input.GiveawayID)
	if err != nil {
		return nil, err
	}
	if !giveaway.IsActive() {
		return nil, apperrors.NewInvalidStateError(giveaway.ID, string(giveaway.Status))
	}
	if giveaway.HasEnded() {
		return nil, apperrors.NewInvalidStateError(giveaway.ID, string(giveaway.Status)).
			WithDetail("reason", "giveaway has ended")
	}

	ok, err := s.captcha.Verify(ctx, input.CaptchaToken)
	if err != nil {
		return nil, apperrors.NewExternalAPIError("captcha", err)
	}
	if !ok {
		// The failed attempt stays on record even though no participant row
		// is created.
		s.audit.Record(ctx, auditmodels.Entry{
			GiveawayID: &giveaway.ID,
			Action:     auditmodels.ActionCaptchaFailed,
			ActorID:    caller.ID,
			IPAddress:  meta.IPAddress,
			UserAgent:  meta.UserAgent,
		})
		return nil, apperrors.NewCaptchaError("token rejected by provider").WithUserID(caller.ID)
	}

	now := time.Now()
	participant := &models.Participant{
		ID:              uuid.New().String(),
		GiveawayID:      giveaway.ID,
		UserID:          caller.ID,
		CaptchaVerified: true,
		CaptchaToken:    input.CaptchaToken,
		VerifiedAt:      &now,
		IPAddress:       meta.IPAddress,
		UserAgent:       meta.UserAgent,
		CreatedAt:       now,
	}

	// Concurrent joins from the same user race; the unique index on
	// (giveaway_id, user_id) is the arbiter, not a check-then-insert.
	if err := s.repo.AddParticipant(ctx, participant); err != nil {
		if errors.Is(err, repository.ErrAlreadyJoined) {
			return nil, apperrors.New(apperrors.ErrCodeAlreadyJoined, "Already joined this giveaway").
				WithDetail("giveaway_id", giveaway.ID).
				WithUserID(caller.ID)
		}
		return nil, apperrors.NewDatabaseError("add participant", err)
	}

	s.audit.Record(ctx, auditmodels.Entry{
		GiveawayID: &giveaway.ID,
		Action:     auditmodels.ActionParticipantJoined,
		ActorID:    caller.ID,
		Details:    map[string]interface{}{"participant_id": participant.ID},
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	})

	count, err := s.repo.CountVerifiedParticipants(ctx, giveaway.ID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("count participants", err)
	}

	return &models.JoinResponse{
		ParticipantID:    participant.ID,
		ParticipantCount: count,
		EndsAt:           giveaway.EndsAt,
	}, nil
}

func (s *giveawayService) Complete(ctx context.Context, caller *usermodels.Profile, giveawayID string, meta RequestMeta) (*models.CompleteResponse, error) {
	if !permissions.Can(caller, permissions.CapCompleteGiveaway) {
		return nil, apperrors.NewPermissionError(string(permissions.CapCompleteGiveaway)).WithUserID(caller.ID)
	}
	return s.finalize(ctx, giveawayID, caller.ID, false, meta)
}

func (s *giveawayService) Cancel(ctx context.Context, caller *usermodels.Profile, giveawayID string, meta RequestMeta) error {
	if !permissions.Can(caller, permissions.CapCancelGiveaway) {
		return apperrors.NewPermissionError(string(permissions.CapCancelGiveaway)).WithUserID(caller.ID)
	}

	giveaway, err := s.getGiveaway(ctx, giveawayID)
	if err != nil {
		return err
	}
	return s.cancel(ctx, giveaway, caller.ID, "cancelled_by_admin", meta)
}

func (s *giveawayService) Get(ctx context.Context, giveawayID string) (*models.DetailsResponse, error) {
	giveaway, err := s.getGiveaway(ctx, giveawayID)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountVerifiedParticipants(ctx, giveawayID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("count participants", err)
	}

	resp := &models.DetailsResponse{Giveaway: giveaway, ParticipantCount: count}
	if giveaway.Status == models.GiveawayStatusCompleted {
		winners, err := s.repo.ListWinners(ctx, giveawayID)
		if err != nil {
			return nil, apperrors.NewDatabaseError("list winners", err)
		}
		resp.Winners = winners
	}
	return resp, nil
}

func (s *giveawayService) AuditTrail(ctx context.Context, caller *usermodels.Profile, giveawayID string) ([]*auditmodels.Entry, error) {
	if !permissions.Can(caller, permissions.CapViewAudit) {
		return nil, apperrors.NewPermissionError(string(permissions.CapViewAudit)).WithUserID(caller.ID)
	}
	if _, err := s.getGiveaway(ctx, giveawayID); err != nil {
		return nil, err
	}

	entries, err := s.auditLog.ListByGiveaway(ctx, giveawayID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list audit entries", err)
	}
	return entries, nil
}

func (s *giveawayService) FinalizeExpired(ctx context.Context, giveawayID string) (*models.SweepOutcome, error) {
	meta := RequestMeta{}
	resp, err := s.finalize(ctx, giveawayID, auditmodels.SystemActorID, true, meta)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		// Not enough eligible participants; the giveaway was cancelled.
		return &models.SweepOutcome{
			GiveawayID: giveawayID,
			Outcome:    "cancelled",
			Reason:     "insufficient_participants",
		}, nil
	}
	return &models.SweepOutcome{
		GiveawayID: giveawayID,
		Outcome:    "completed",
		Winners:    len(resp.Winners),
	}, nil
}

// finalize is the single completion path shared by the admin call and the
// sweeper. asSystem switches the insufficient-participants behavior from
// failing to cancelling; a nil response with nil error means "cancelled".
func (s *giveawayService) finalize(ctx context.Context, giveawayID string, actorID int64, asSystem bool, meta RequestMeta) (*models.CompleteResponse, error) {
	giveaway, err := s.getGiveaway(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	if !giveaway.IsActive() {
		return nil, apperrors.NewInvalidStateError(giveaway.ID, string(giveaway.Status))
	}

	eligible, err := s.repo.ListEligibleParticipants(ctx, giveaway.ID, permissions.MinJoinLevel)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list eligible participants", err)
	}

	if len(eligible) < giveaway.WinnersCount {
		if !asSystem {
			return nil, apperrors.NewInsufficientParticipantsError(giveaway.ID, len(eligible), giveaway.WinnersCount)
		}
		if err := s.cancel(ctx, giveaway, actorID, "insufficient_participants", meta); err != nil {
			return nil, err
		}
		return nil, nil
	}

	// Selection and distribution are fully computed before any money moves.
	seed, drawn, err := drawWinners(giveaway.ID, eligible, giveaway.WinnersCount)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "winner selection failed")
	}
	dist := Distribute(giveaway.TotalAmount, giveaway.WinnersCount)

	// The conditional flip is the serialization point: of N concurrent
	// completion attempts exactly one proceeds past this line, so payouts
	// can never be issued twice.
	completedAt := time.Now()
	flipped, err := s.repo.MarkCompleted(ctx, giveaway.ID, completedAt)
	if err != nil {
		return nil, apperrors.NewDatabaseError("mark completed", err)
	}
	if !flipped {
		return nil, apperrors.NewInvalidStateError(giveaway.ID, "already finalized")
	}
	giveaway.Status = models.GiveawayStatusCompleted
	giveaway.CompletedAt = &completedAt

	winners := make([]*models.Winner, 0, len(drawn))
	for i, d := range drawn {
		winners = append(winners, &models.Winner{
			ID:            uuid.New().String(),
			GiveawayID:    giveaway.ID,
			UserID:        d.Participant.UserID,
			AmountWon:     dist.Amounts[i],
			Position:      d.Position,
			SelectionHash: d.SelectionHash,
			SelectionSeed: seed,
			CreatedAt:     completedAt,
		})
	}

	// Winner rows go in before any balance moves so a committed payout
	// always has its seed and hash on record.
	if err := s.repo.CreateWinners(ctx, winners); err != nil {
		return nil, apperrors.NewDatabaseError("create winners", err)
	}

	for _, w := range winners {
		if err := s.profiles.CreditBalance(ctx, w.UserID, w.AmountWon, prizeCreditReason, giveaway.ID); err != nil {
			return nil, apperrors.NewDatabaseError("credit winner balance", err).
				WithDetail("user_id", w.UserID).
				WithDetail("position", w.Position)
		}
	}

	results, err := s.chat.PostSystem(ctx, actorID, giveaway.RoomID,
		resultsText(giveaway, winners, seed, dist.TotalDistributed), chatmodels.MessageTypeGiveawayResults)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetResultsMessage(ctx, giveaway.ID, results.ID); err != nil {
		return nil, apperrors.NewDatabaseError("set results message", err)
	}
	giveaway.ResultsMsg = &results.ID

	winnerIDs := make([]int64, 0, len(winners))
	amounts := make([]int64, 0, len(winners))
	for _, w := range winners {
		winnerIDs = append(winnerIDs, w.UserID)
		amounts = append(amounts, w.AmountWon)
	}
	// The seed goes on record so the draw stays publicly reproducible.
	s.audit.Record(ctx, auditmodels.Entry{
		GiveawayID: &giveaway.ID,
		Action:     auditmodels.ActionGiveawayCompleted,
		ActorID:    actorID,
		Details: map[string]interface{}{
			"selection_seed":    seed,
			"winner_ids":        winnerIDs,
			"amounts":           amounts,
			"eligible_count":    len(eligible),
			"total_amount":      giveaway.TotalAmount,
			"total_distributed": dist.TotalDistributed,
		},
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})

	logger.Info().
		Str("giveaway_id", giveaway.ID).
		Int("winners", len(winners)).
		Int64("total_distributed", dist.TotalDistributed).
		Msg("Giveaway completed")

	return &models.CompleteResponse{
		Giveaway:         giveaway,
		Winners:          winners,
		SelectionSeed:    seed,
		TotalDistributed: dist.TotalDistributed,
	}, nil
}

// cancel flips an active giveaway to cancelled. Pools are admin-funded, so
// cancellation moves no money.
func (s *giveawayService) cancel(ctx context.Context, giveaway *models.Giveaway, actorID int64, reason string, meta RequestMeta) error {
	flipped, err := s.repo.MarkCancelled(ctx, giveaway.ID)
	if err != nil {
		return apperrors.NewDatabaseError("mark cancelled", err)
	}
	if !flipped {
		return apperrors.NewInvalidStateError(giveaway.ID, string(giveaway.Status))
	}
	giveaway.Status = models.GiveawayStatusCancelled

	if _, err := s.chat.PostSystem(ctx, actorID, giveaway.RoomID,
		cancellationText(giveaway, reason), chatmodels.MessageTypeSystem); err != nil {
		return err
	}

	s.audit.Record(ctx, auditmodels.Entry{
		GiveawayID: &giveaway.ID,
		Action:     auditmodels.ActionGiveawayCancelled,
		ActorID:    actorID,
		Details:    map[string]interface{}{"reason": reason},
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	})

	logger.Info().
		Str("giveaway_id", giveaway.ID).
		Str("reason", reason).
		Msg("Giveaway cancelled")
	return nil
}

func (s *giveawayService) getGiveaway(ctx context.Context, giveawayID string) (*models.Giveaway, error) {
	if giveawayID == "" {
		return nil, apperrors.NewValidationError("giveaway_id", "cannot be empty")
	}
	giveaway, err := s.repo.GetByID(ctx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return nil, apperrors.NewGiveawayNotFoundError(giveawayID)
		}
		return nil, apperrors.NewDatabaseError("get giveaway", err)
	}
	return giveaway, nil
}

func validateCreate(input *models.CreateRequest) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return apperrors.NewValidationError("title", "cannot be empty")
	}
	if utf8.RuneCountInString(title) > models.MaxTitleLength {
		return apperrors.NewValidationError("title", fmt.Sprintf("cannot exceed %d characters", models.MaxTitleLength))
	}
	if input.RoomID == "" {
		return apperrors.NewValidationError("room_id", "cannot be empty")
	}
	if input.TotalAmount < models.MinTotalAmount || input.TotalAmount > models.MaxTotalAmount {
		return apperrors.NewValidationError("total_amount",
			fmt.Sprintf("must be between %d and %d", models.MinTotalAmount, models.MaxTotalAmount))
	}
	if input.WinnersCount < models.MinWinnersCount || input.WinnersCount > models.MaxWinnersCount {
		return apperrors.NewValidationError("winners_count",
			fmt.Sprintf("must be between %d and %d", models.MinWinnersCount, models.MaxWinnersCount))
	}
	if input.DurationMinutes < models.MinDurationMinutes || input.DurationMinutes > models.MaxDurationMinutes {
		return apperrors.NewValidationError("duration_minutes",
			fmt.Sprintf("must be between %d and %d", models.MinDurationMinutes, models.MaxDurationMinutes))
	}
	return nil
}
