package model

import "time"

type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"`
	Amount      int64     `json:"amount"`
	RoundID     string    `json:"round_id,omitempty"`
	BetID       string    `json:"bet_id,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type DepositRequest struct {
	UserID         string `json:"user_id"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

type DepositResponse struct {
	Transaction Transaction `json:"transaction"`
}

type GetMyTransactionsRequest struct{}

type GetMyTransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}
