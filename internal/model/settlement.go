package model

type Winner struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	RoundID     string `json:"round_id"`
	BetID       string `json:"bet_id"`
	Rank        int    `json:"rank"`
	PrizeAmount int64  `json:"prize_amount"`
}

type ProcessRoundWinnersRequest struct {
	RoundID string `json:"round_id"`
	// NextRoundID may be empty; the auction's current active round is used
	// instead, and if none exists losing bets stay on the ended round for
	// the auction-end refund pass.
	NextRoundID string `json:"next_round_id"`
}

type ProcessRoundWinnersResponse struct {
	Winners        []Winner `json:"winners"`
	CarriedForward int      `json:"carried_forward"`
	Errors         int      `json:"errors"`
}

type ProcessRefundsRequest struct {
	AuctionID string `json:"auction_id"`
}

type ProcessRefundsResponse struct {
	Refunded int `json:"refunded"`
	Errors   int `json:"errors"`
}
