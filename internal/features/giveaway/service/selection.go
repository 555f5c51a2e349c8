package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/models"
	"github.com/Haiikyu/reveelbox-sub002/internal/utils/random"
)

// drawnWinner is one selected participant together with the hash binding the
// draw to its inputs.
type drawnWinner struct {
	Participant   models.EligibleParticipant
	Position      int
	SelectionHash string
}

// drawWinners selects winnersCount participants with a fresh CSPRNG seed and
// returns the seed alongside the ordered winners. The seed is published so
// anyone holding it and the eligible list can replay the draw.
func drawWinners(giveawayID string, eligible []models.EligibleParticipant, winnersCount int) (string, []drawnWinner, error) {
	seed, err := random.NewSeed()
	if err != nil {
		return "", nil, err
	}
	winners, err := drawWinnersSeeded(giveawayID, eligible, winnersCount, seed)
	if err != nil {
		return "", nil, err
	}
	return seed, winners, nil
}

// drawWinnersSeeded is the deterministic core of the selection engine: a
// seeded Fisher-Yates shuffle over the eligible list, first winnersCount
// entries win in order. The shuffle runs even when every eligible participant
// wins, so a trivial draw is indistinguishable from a contested one.
func drawWinnersSeeded(giveawayID string, eligible []models.EligibleParticipant, winnersCount int, seed string) ([]drawnWinner, error) {
	shuffled := make([]models.EligibleParticipant, len(eligible))
	copy(shuffled, eligible)

	if err := random.SeededShuffle(shuffled, seed); err != nil {
		return nil, fmt.Errorf("failed to shuffle participants: %w", err)
	}

	if winnersCount > len(shuffled) {
		winnersCount = len(shuffled)
	}

	winners := make([]drawnWinner, 0, winnersCount)
	for i := 0; i < winnersCount; i++ {
		winners = append(winners, drawnWinner{
			Participant:   shuffled[i],
			Position:      i + 1,
			SelectionHash: selectionHash(giveawayID, eligible, seed, i),
		})
	}
	return winners, nil
}

// selectionHash binds a draw outcome to the giveaway, the exact ordered
// eligible set, the seed and the winner's index. Recomputable by any third
// party holding the published seed and participant list.
func selectionHash(giveawayID string, eligible []models.EligibleParticipant, seed string, winnerIndex int) string {
	ids := make([]string, 0, len(eligible))
	for _, p := range eligible {
		ids = append(ids, p.ParticipantID)
	}

	payload := giveawayID + ":" + strings.Join(ids, ",") + ":" + seed + ":" + strconv.Itoa(winnerIndex)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
