package model

import "time"

type Auction struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	PrizeAmount          int64      `json:"prize_amount"`
	WinnersPerRound      int        `json:"winners_per_round"`
	TotalRounds          int        `json:"total_rounds"`
	RoundDurationMinutes int        `json:"round_duration_minutes"`
	Status               string     `json:"status"`
	CreatedAt            time.Time  `json:"created_at"`
	EndedAt              *time.Time `json:"ended_at,omitempty"`
	RefundsProcessed     bool       `json:"refunds_processed"`
}

type CreateAuctionRequest struct {
	Name                 string `json:"name"`
	PrizeAmount          int64  `json:"prize_amount"`
	WinnersPerRound      int    `json:"winners_per_round"`
	TotalRounds          int    `json:"total_rounds"`
	RoundDurationMinutes int    `json:"round_duration_minutes"`
}

type CreateAuctionResponse struct {
	Auction Auction `json:"auction"`
}

type StartAuctionRequest struct {
	AuctionID string `json:"auction_id"`
}

type StartAuctionResponse struct {
	Auction Auction `json:"auction"`
}

type EndAuctionRequest struct {
	AuctionID string `json:"auction_id"`
}

type EndAuctionResponse struct {
	Auction Auction `json:"auction"`
}

// UpdateAuctionRequest patches a draft auction. Zero-valued fields are left
// unchanged.
type UpdateAuctionRequest struct {
	AuctionID            string `json:"auction_id"`
	Name                 string `json:"name"`
	PrizeAmount          int64  `json:"prize_amount"`
	WinnersPerRound      int    `json:"winners_per_round"`
	TotalRounds          int    `json:"total_rounds"`
	RoundDurationMinutes int    `json:"round_duration_minutes"`
}

type UpdateAuctionResponse struct {
	Auction Auction `json:"auction"`
}

type GetCurrentAuctionRequest struct{}

type GetCurrentAuctionResponse struct {
	Auction Auction `json:"auction"`
}
