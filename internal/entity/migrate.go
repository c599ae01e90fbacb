package entity

import (
	"context"

	"github.com/auctionx-lab/backend/pkg/xcontext"
)

func MigrateTable(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&User{},
		&Auction{},
		&Round{},
		&Bet{},
		&Transaction{},
		&Winner{},
		&IdempotencyRecord{},
	)
}
