package models

// Profile is the caller's account as resolved by the identity layer. The
// platform's user service owns it; this core reads it for permission checks
// and credits the coins balance on payout.
type Profile struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Level        int    `json:"level"`
	IsAdmin      bool   `json:"is_admin"`
	IsBanned     bool   `json:"is_banned"`
	CoinsBalance int64  `json:"coins_balance"`
}
