package entity

// Bet is a user's single active stake in a round. The composite unique index
// is the concurrency guard for the one-bet-per-user-per-round invariant;
// concurrent duplicate inserts collapse into a raise against the surviving
// row. Amount only ever increases while the bet stays in its round.
type Bet struct {
	Base

	UserID string `gorm:"uniqueIndex:idx_bets_user_round"`
	User   User   `gorm:"foreignKey:UserID"`

	RoundID string `gorm:"uniqueIndex:idx_bets_user_round"`
	Round   Round  `gorm:"foreignKey:RoundID"`

	Amount int64

	// Version is an optimistic-concurrency counter bumped on every mutation.
	Version int
}
