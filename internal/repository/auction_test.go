package repository_test

import (
	"testing"
	"time"

	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/internal/repository"
	"github.com/auctionx-lab/backend/pkg/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func Test_auctionRepository_CreateIfNoneInProgress(t *testing.T) {
	ctx := testutil.MockContext()
	auctionRepo := repository.NewAuctionRepository()

	first := &entity.Auction{
		Base:            entity.Base{ID: uuid.NewString()},
		Name:            "first",
		PrizeAmount:     1000,
		WinnersPerRound: 2,
		TotalRounds:     3,
		RoundDuration:   time.Minute,
		Status:          entity.AuctionDraft,
	}
	require.NoError(t, auctionRepo.CreateIfNoneInProgress(ctx, first))

	got, err := auctionRepo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "first", got.Name)
	require.Equal(t, int64(1000), got.PrizeAmount)
	require.Equal(t, time.Minute, got.RoundDuration)
	require.Equal(t, entity.AuctionDraft, got.Status)

	// The guard is part of the insert, so a second auction is refused while
	// the first is still in progress.
	second := &entity.Auction{
		Base:   entity.Base{ID: uuid.NewString()},
		Name:   "second",
		Status: entity.AuctionDraft,
	}
	require.ErrorIs(t, auctionRepo.CreateIfNoneInProgress(ctx, second), gorm.ErrRecordNotFound)

	require.NoError(t, auctionRepo.UpdateStatus(ctx, first.ID, entity.AuctionDraft, entity.AuctionActive))
	require.ErrorIs(t, auctionRepo.CreateIfNoneInProgress(ctx, second), gorm.ErrRecordNotFound)

	// An ended auction no longer blocks creation.
	require.NoError(t, auctionRepo.SetEnded(ctx, first.ID, time.Now()))
	require.NoError(t, auctionRepo.CreateIfNoneInProgress(ctx, second))
}
