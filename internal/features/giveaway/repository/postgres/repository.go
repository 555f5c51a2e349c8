package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/models"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/repository"
)

// uniqueViolation is the postgres error code for a unique-index conflict.
const uniqueViolation = "23505"

type giveawayRepository struct {
	db *sql.DB
}

func NewGiveawayRepository(db *sql.DB) repository.GiveawayRepository {
	return &giveawayRepository{db: db}
}

func (r *giveawayRepository) Create(ctx context.Context, g *models.Giveaway) error {
	const query = `
		INSERT INTO giveaways (id, room_id, creator_id, title, total_amount, winners_count,
			duration_minutes, status, created_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		g.ID, g.RoomID, g.CreatorID, g.Title, g.TotalAmount, g.WinnersCount,
		g.DurationMinutes, g.Status, g.CreatedAt, g.EndsAt)
	if err != nil {
		return fmt.Errorf("failed to create giveaway: %w", err)
	}
	return nil
}

func (r *giveawayRepository) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	const query = `
		SELECT id, room_id, creator_id, title, total_amount, winners_count, duration_minutes,
			status, created_at, ends_at, announcement_message_id, results_message_id, completed_at
		FROM giveaways
		WHERE id = $1`

	g := &models.Giveaway{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&g.ID, &g.RoomID, &g.CreatorID, &g.Title, &g.TotalAmount, &g.WinnersCount,
		&g.DurationMinutes, &g.Status, &g.CreatedAt, &g.EndsAt,
		&g.AnnouncementMsg, &g.ResultsMsg, &g.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway: %w", err)
	}
	return g, nil
}

func (r *giveawayRepository) SetAnnouncementMessage(ctx context.Context, id, messageID string) error {
	const query = `UPDATE giveaways SET announcement_message_id = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, messageID); err != nil {
		return fmt.Errorf("failed to set announcement message: %w", err)
	}
	return nil
}

func (r *giveawayRepository) SetResultsMessage(ctx context.Context, id, messageID string) error {
	const query = `UPDATE giveaways SET results_message_id = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, messageID); err != nil {
		return fmt.Errorf("failed to set results message: %w", err)
	}
	return nil
}

func (r *giveawayRepository) AddParticipant(ctx context.Context, p *models.Participant) error {
	const query = `
		INSERT INTO giveaway_participants (id, giveaway_id, user_id, captcha_verified,
			captcha_token, verified_at, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.GiveawayID, p.UserID, p.CaptchaVerified,
		p.CaptchaToken, p.VerifiedAt, p.IPAddress, p.UserAgent, p.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrAlreadyJoined
		}
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

func (r *giveawayRepository) CountVerifiedParticipants(ctx context.Context, giveawayID string) (int64, error) {
	const query = `
		SELECT COUNT(*)
		FROM giveaway_participants
		WHERE giveaway_id = $1 AND captcha_verified`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, giveawayID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

func (r *giveawayRepository) ListEligibleParticipants(ctx context.Context, giveawayID string, minLevel int) ([]models.EligibleParticipant, error) {
	const query = `
		SELECT gp.id, gp.user_id
		FROM giveaway_participants gp
		JOIN profiles p ON p.id = gp.user_id
		WHERE gp.giveaway_id = $1
		  AND gp.captcha_verified
		  AND p.level >= $2
		  AND NOT p.is_banned
		ORDER BY gp.created_at ASC, gp.id ASC`

	rows, err := r.db.QueryContext(ctx, query, giveawayID, minLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible participants: %w", err)
	}
	defer rows.Close()

	var participants []models.EligibleParticipant
	for rows.Next() {
		var p models.EligibleParticipant
		if err := rows.Scan(&p.ParticipantID, &p.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *giveawayRepository) MarkCompleted(ctx context.Context, id string, completedAt time.Time) (bool, error) {
	const query = `
		UPDATE giveaways
		SET status = $2, completed_at = $3
		WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id,
		models.GiveawayStatusCompleted, completedAt, models.GiveawayStatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to mark completed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *giveawayRepository) MarkCancelled(ctx context.Context, id string) (bool, error) {
	const query = `
		UPDATE giveaways
		SET status = $2
		WHERE id = $1 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, id,
		models.GiveawayStatusCancelled, models.GiveawayStatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to mark cancelled: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *giveawayRepository) CreateWinners(ctx context.Context, winners []*models.Winner) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO giveaway_winners (id, giveaway_id, user_id, amount_won, position,
			selection_hash, selection_seed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, w := range winners {
		if _, err := tx.ExecContext(ctx, query,
			w.ID, w.GiveawayID, w.UserID, w.AmountWon, w.Position,
			w.SelectionHash, w.SelectionSeed, w.CreatedAt); err != nil {
			return fmt.Errorf("failed to create winner row: %w", err)
		}
	}
	return tx.Commit()
}

func (r *giveawayRepository) ListWinners(ctx context.Context, giveawayID string) ([]*models.Winner, error) {
	const query = `
		SELECT id, giveaway_id, user_id, amount_won, position, selection_hash, selection_seed, created_at
		FROM giveaway_winners
		WHERE giveaway_id = $1
		ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to list winners: %w", err)
	}
	defer rows.Close()

	var winners []*models.Winner
	for rows.Next() {
		w := &models.Winner{}
		if err := rows.Scan(&w.ID, &w.GiveawayID, &w.UserID, &w.AmountWon, &w.Position,
			&w.SelectionHash, &w.SelectionSeed, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		winners = append(winners, w)
	}
	return winners, rows.Err()
}

func (r *giveawayRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]*models.Giveaway, error) {
	const query = `
		SELECT id, room_id, creator_id, title, total_amount, winners_count, duration_minutes,
			status, created_at, ends_at, announcement_message_id, results_message_id, completed_at
		FROM giveaways
		WHERE status = $1 AND ends_at <= $2
		ORDER BY ends_at ASC`

	rows, err := r.db.QueryContext(ctx, query, models.GiveawayStatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired giveaways: %w", err)
	}
	defer rows.Close()

	var giveaways []*models.Giveaway
	for rows.Next() {
		g := &models.Giveaway{}
		if err := rows.Scan(&g.ID, &g.RoomID, &g.CreatorID, &g.Title, &g.TotalAmount,
			&g.WinnersCount, &g.DurationMinutes, &g.Status, &g.CreatedAt, &g.EndsAt,
			&g.AnnouncementMsg, &g.ResultsMsg, &g.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan giveaway: %w", err)
		}
		giveaways = append(giveaways, g)
	}
	return giveaways, rows.Err()
}
