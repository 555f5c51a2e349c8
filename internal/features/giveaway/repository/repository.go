package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/models"
)

var (
	ErrGiveawayNotFound = errors.New("giveaway not found")

	// ErrAlreadyJoined surfaces the (giveaway_id, user_id) unique-index
	// violation. Concurrent joins race; the constraint, not the
	// application, decides the winner.
	ErrAlreadyJoined = errors.New("user already joined this giveaway")
)

// GiveawayRepository persists giveaways, participants and winners.
type GiveawayRepository interface {
	Create(ctx context.Context, giveaway *models.Giveaway) error
	GetByID(ctx context.Context, id string) (*models.Giveaway, error)
	SetAnnouncementMessage(ctx context.Context, id, messageID string) error
	SetResultsMessage(ctx context.Context, id, messageID string) error

	// AddParticipant inserts a participant row, returning ErrAlreadyJoined
	// when the unique index rejects a duplicate entry.
	AddParticipant(ctx context.Context, participant *models.Participant) error
	CountVerifiedParticipants(ctx context.Context, giveawayID string) (int64, error)

	// ListEligibleParticipants returns captcha-verified participants whose
	// profile level is at least minLevel and who are not banned, in join
	// order. The ordering is part of the published selection input.
	ListEligibleParticipants(ctx context.Context, giveawayID string, minLevel int) ([]models.EligibleParticipant, error)

	// MarkCompleted conditionally flips active -> completed. It reports
	// false when the row was no longer active, which callers treat as
	// "already finalized, abort".
	MarkCompleted(ctx context.Context, id string, completedAt time.Time) (bool, error)

	// MarkCancelled conditionally flips active -> cancelled with the same
	// zero-rows-affected contract as MarkCompleted.
	MarkCancelled(ctx context.Context, id string) (bool, error)

	CreateWinners(ctx context.Context, winners []*models.Winner) error
	ListWinners(ctx context.Context, giveawayID string) ([]*models.Winner, error)

	// ListExpiredActive returns active giveaways whose deadline has passed.
	ListExpiredActive(ctx context.Context, now time.Time) ([]*models.Giveaway, error)
}
