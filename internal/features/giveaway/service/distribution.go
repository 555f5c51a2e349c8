package service

// Distribution is the computed payout plan for a prize pool. TotalDistributed
// can be less than the pool: with three or fewer winners the fixed tiers leave
// a remainder that is deliberately not paid out, and auditors compare the two
// figures.
type Distribution struct {
	Amounts          []int64
	TotalDistributed int64
}

// Tier percentages for the top three positions.
const (
	firstPlaceShare  = 40
	secondPlaceShare = 25
	thirdPlaceShare  = 15
)

// Distribute splits a prize pool across winner positions. Pure and
// deterministic: position 1 takes 40%, position 2 takes 25%, position 3 takes
// 15% (integer floor), and whatever remains is floor-divided evenly across the
// positions past third place. A single winner takes the whole pool.
func Distribute(totalAmount int64, winnersCount int) Distribution {
	if winnersCount <= 0 {
		return Distribution{Amounts: []int64{}}
	}
	if winnersCount == 1 {
		return Distribution{Amounts: []int64{totalAmount}, TotalDistributed: totalAmount}
	}

	amounts := make([]int64, 0, winnersCount)
	tiers := []int64{firstPlaceShare, secondPlaceShare, thirdPlaceShare}

	assigned := len(tiers)
	if winnersCount < assigned {
		assigned = winnersCount
	}

	var tierTotal int64
	for i := 0; i < assigned; i++ {
		amount := totalAmount * tiers[i] / 100
		amounts = append(amounts, amount)
		tierTotal += amount
	}

	remaining := winnersCount - assigned
	if remaining > 0 {
		share := (totalAmount - tierTotal) / int64(remaining)
		for i := 0; i < remaining; i++ {
			amounts = append(amounts, share)
		}
	}

	var distributed int64
	for _, a := range amounts {
		distributed += a
	}
	return Distribution{Amounts: amounts, TotalDistributed: distributed}
}
