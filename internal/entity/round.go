package entity

import (
	"time"

	"github.com/auctionx-lab/backend/pkg/enum"
)

type RoundStatusType string

var (
	RoundPending = enum.New(RoundStatusType("pending"))
	RoundActive  = enum.New(RoundStatusType("active"))
	RoundEnded   = enum.New(RoundStatusType("ended"))
)

type Round struct {
	Base

	AuctionID string  `gorm:"uniqueIndex:idx_rounds_auction_number"`
	Auction   Auction `gorm:"foreignKey:AuctionID"`

	// Number is 1-based and strictly increasing per auction, bounded by the
	// auction's TotalRounds. The unique (auction_id, number) index collapses
	// concurrent round creation into a single winner.
	Number int `gorm:"uniqueIndex:idx_rounds_auction_number"`

	Status    RoundStatusType `gorm:"index"`
	StartTime time.Time
	EndTime   time.Time
}
