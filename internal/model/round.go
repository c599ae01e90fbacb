package model

import "time"

type Round struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auction_id"`
	Number    int       `json:"number"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type CreateNextRoundRequest struct {
	AuctionID string `json:"auction_id"`
}

type CreateNextRoundResponse struct {
	// Round is nil when no round was due: auction inactive, a round is
	// already running, or the total-rounds limit is reached.
	Round *Round `json:"round,omitempty"`
}

type EndRoundRequest struct {
	RoundID string `json:"round_id"`
}

type EndRoundResponse struct {
	Round Round `json:"round"`
}

type ExtendRoundRequest struct {
	RoundID string `json:"round_id"`
	DeltaMs int64  `json:"delta_ms"`
}

type ExtendRoundResponse struct {
	Round Round `json:"round"`
}

type GetCurrentRoundRequest struct{}

type GetCurrentRoundResponse struct {
	Round Round `json:"round"`
}
