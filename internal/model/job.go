package model

const (
	JobTypeProcessRoundWinners = "process_round_winners"
	JobTypeProcessRefunds      = "process_refunds"
)

// SettlementJob is the payload carried on the settlement topic. Jobs are
// delivered at least once; every money movement they trigger is
// idempotency-keyed, so redelivery is harmless.
type SettlementJob struct {
	Type        string `json:"type"`
	RoundID     string `json:"round_id,omitempty"`
	NextRoundID string `json:"next_round_id,omitempty"`
	AuctionID   string `json:"auction_id,omitempty"`
}
