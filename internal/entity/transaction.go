package entity

import (
	"database/sql"

	"github.com/auctionx-lab/backend/pkg/enum"
)

type TransactionType string

var (
	TransactionBet     = enum.New(TransactionType("bet"))
	TransactionRefund  = enum.New(TransactionType("refund"))
	TransactionPrize   = enum.New(TransactionType("prize"))
	TransactionDeposit = enum.New(TransactionType("deposit"))
)

// Transaction is an append-only ledger entry. Exactly one row exists per
// logical balance mutation; rows are never updated or deleted.
type Transaction struct {
	Base

	UserID string `gorm:"index"`
	User   User   `gorm:"foreignKey:UserID"`

	Type   TransactionType
	Amount int64

	RoundID sql.NullString
	BetID   sql.NullString

	Description    string
	IdempotencyKey sql.NullString `gorm:"index"`
}
