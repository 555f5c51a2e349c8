package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Haiikyu/reveelbox-sub002/internal/features/user/models"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/user/repository"
)

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByID(ctx context.Context, userID int64) (*models.Profile, error) {
	const query = `
		SELECT id, username, level, is_admin, is_banned, coins_balance
		FROM profiles
		WHERE id = $1`

	p := &models.Profile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.ID, &p.Username, &p.Level, &p.IsAdmin, &p.IsBanned, &p.CoinsBalance)
	if err == sql.ErrNoRows {
		return nil, repository.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (r *profileRepository) CreditBalance(ctx context.Context, userID int64, amount int64, reason string, giveawayID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const qBalance = `UPDATE profiles SET coins_balance = coins_balance + $1 WHERE id = $2`
	res, err := tx.ExecContext(ctx, qBalance, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrProfileNotFound
	}

	const qLedger = `
		INSERT INTO transactions (user_id, amount, type, reference_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())`
	if _, err := tx.ExecContext(ctx, qLedger, userID, amount, reason, giveawayID); err != nil {
		return fmt.Errorf("failed to append ledger row: %w", err)
	}

	return tx.Commit()
}
