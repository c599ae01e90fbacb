package domain

import (
	"sort"

	"github.com/auctionx-lab/backend/internal/entity"
)

type rankedBet struct {
	Rank int
	Bet  entity.Bet
}

// rankBets orders bets by amount descending, breaking ties by earliest
// placement and finally by bet id so the result is deterministic for equal
// timestamps. Bets are grouped by user first, keeping only each user's best
// bet, so one user can never hold two slots. At most limit entries are
// returned, ranked from 1.
func rankBets(bets []entity.Bet, limit int) []rankedBet {
	best := map[string]entity.Bet{}
	for _, bet := range bets {
		current, ok := best[bet.UserID]
		if !ok || betBefore(bet, current) {
			best[bet.UserID] = bet
		}
	}

	sorted := make([]entity.Bet, 0, len(best))
	for _, bet := range best {
		sorted = append(sorted, bet)
	}

	sort.Slice(sorted, func(i, j int) bool {
		return betBefore(sorted[i], sorted[j])
	})

	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	ranked := make([]rankedBet, 0, len(sorted))
	for i, bet := range sorted {
		ranked = append(ranked, rankedBet{Rank: i + 1, Bet: bet})
	}

	return ranked
}

func betBefore(a, b entity.Bet) bool {
	if a.Amount != b.Amount {
		return a.Amount > b.Amount
	}

	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}

	return a.ID < b.ID
}
