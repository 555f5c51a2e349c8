package repository

import (
	"context"
	"errors"

	"github.com/Haiikyu/reveelbox-sub002/internal/features/user/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository reads caller profiles and credits prize payouts. The
// profiles table and the transaction ledger belong to the platform's currency
// service; this core only increments balances and appends ledger rows.
type ProfileRepository interface {
	GetByID(ctx context.Context, userID int64) (*models.Profile, error)

	// CreditBalance increments the user's coins balance and appends a ledger
	// row describing the credit, atomically.
	CreditBalance(ctx context.Context, userID int64, amount int64, reason string, giveawayID string) error
}
