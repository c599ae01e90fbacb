package model

import "time"

type Bet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	RoundID   string    `json:"round_id"`
	Amount    int64     `json:"amount"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

type PlaceBetRequest struct {
	RoundID        string `json:"round_id"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

type PlaceBetResponse struct {
	Bet Bet `json:"bet"`
}

type GetUserBetRequest struct {
	RoundID string `json:"round_id" form:"round_id"`
}

type GetUserBetResponse struct {
	Bet *Bet `json:"bet,omitempty"`
}

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
}

type GetLeaderboardRequest struct {
	RoundID string `json:"round_id" form:"round_id"`
	Limit   int    `json:"limit" form:"limit"`
}

type GetLeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}
