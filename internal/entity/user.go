package entity

// User carries the two ledger balances. Balance is spendable currency in
// minor units; RewardPoints is the prize currency. Both change only through
// transaction records.
type User struct {
	Base

	Name         string `gorm:"unique"`
	Balance      int64
	RewardPoints int64
}
