package entity

// Winner records a top-N ranked bidder of a settled round. Uniqueness of
// (user, round) and of (round, rank) is enforced by the store; the paired
// prize transaction is idempotency-keyed, so re-running a settlement pass
// cannot pay twice.
type Winner struct {
	Base

	UserID string `gorm:"uniqueIndex:idx_winners_user_round"`
	User   User   `gorm:"foreignKey:UserID"`

	RoundID string `gorm:"uniqueIndex:idx_winners_user_round;uniqueIndex:idx_winners_round_rank"`
	Round   Round  `gorm:"foreignKey:RoundID"`

	BetID string

	Rank        int `gorm:"uniqueIndex:idx_winners_round_rank"`
	PrizeAmount int64
}
