package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/models"
)

// announcementText builds the room message posted when a giveaway opens,
// summarizing pool, winner slots, payout tiers and deadline.
func announcementText(g *models.Giveaway, dist Distribution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 Giveaway: %s\n", g.Title)
	fmt.Fprintf(&b, "Prize pool: %d coins for %d winner(s)\n", g.TotalAmount, g.WinnersCount)

	tiers := make([]string, 0, len(dist.Amounts))
	for i, amount := range dist.Amounts {
		tiers = append(tiers, fmt.Sprintf("#%d: %d", i+1, amount))
	}
	fmt.Fprintf(&b, "Payouts: %s\n", strings.Join(tiers, ", "))
	fmt.Fprintf(&b, "Ends at %s, join now!", g.EndsAt.UTC().Format(time.RFC3339))
	return b.String()
}

// resultsText builds the room message posted when a giveaway completes. The
// seed is included so the draw can be replayed by anyone.
func resultsText(g *models.Giveaway, winners []*models.Winner, seed string, totalDistributed int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Giveaway finished: %s\n", g.Title)
	for _, w := range winners {
		fmt.Fprintf(&b, "#%d: user %d won %d coins\n", w.Position, w.UserID, w.AmountWon)
	}
	fmt.Fprintf(&b, "Distributed %d of %d coins\n", totalDistributed, g.TotalAmount)
	fmt.Fprintf(&b, "Verification seed: %s", seed)
	return b.String()
}

// cancellationText builds the room message posted when a giveaway is
// cancelled.
func cancellationText(g *models.Giveaway, reason string) string {
	if reason == "insufficient_participants" {
		return fmt.Sprintf("Giveaway \"%s\" was cancelled: not enough eligible participants.", g.Title)
	}
	return fmt.Sprintf("Giveaway \"%s\" was cancelled by an administrator.", g.Title)
}
