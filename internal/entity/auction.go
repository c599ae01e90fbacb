package entity

import (
	"database/sql"
	"time"

	"github.com/auctionx-lab/backend/pkg/enum"
)

type AuctionStatusType string

var (
	AuctionDraft  = enum.New(AuctionStatusType("draft"))
	AuctionActive = enum.New(AuctionStatusType("active"))
	AuctionEnded  = enum.New(AuctionStatusType("ended"))
)

// Auction is the top-level bidding event. At most one auction may exist in
// draft or active status system-wide.
type Auction struct {
	Base

	Name            string
	PrizeAmount     int64
	WinnersPerRound int
	TotalRounds     int
	RoundDuration   time.Duration

	Status  AuctionStatusType `gorm:"index"`
	EndedAt sql.NullTime

	// RefundsProcessed guards the auction-end refund pass so it runs at
	// most once even if End is invoked twice concurrently.
	RefundsProcessed bool
}
