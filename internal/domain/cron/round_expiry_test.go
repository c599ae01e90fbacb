package cron

import (
	"testing"
	"time"

	"github.com/auctionx-lab/backend/internal/domain"
	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/internal/repository"
	"github.com/auctionx-lab/backend/pkg/testutil"
	"github.com/auctionx-lab/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func newTestRoundExpiryCronJob() *RoundExpiryCronJob {
	auctionRepo := repository.NewAuctionRepository()
	roundRepo := repository.NewRoundRepository()
	betRepo := repository.NewBetRepository()
	winnerRepo := repository.NewWinnerRepository()

	ledgerDomain := domain.NewLedgerDomain(
		repository.NewUserRepository(),
		repository.NewTransactionRepository(),
		repository.NewIdempotencyRepository(),
	)
	roundDomain := domain.NewRoundDomain(roundRepo, auctionRepo, &testutil.MockRedisClient{})
	settlementDomain := domain.NewSettlementDomain(
		auctionRepo, roundRepo, betRepo, winnerRepo, ledgerDomain)
	auctionDomain := domain.NewAuctionDomain(
		auctionRepo, roundRepo, roundDomain, settlementDomain, nil, &testutil.MockRedisClient{})

	// No publisher: every job the scheduler would queue runs inline.
	return NewRoundExpiryCronJob(
		time.Second,
		auctionRepo,
		roundRepo,
		roundDomain,
		auctionDomain,
		settlementDomain,
		nil,
	)
}

func Test_RoundExpiryCronJob_DrivesAuctionToCompletion(t *testing.T) {
	ctx := testutil.MockContext()

	auction, err := testutil.SampleAuction(ctx, &entity.Auction{
		WinnersPerRound: 1,
		TotalRounds:     2,
		PrizeAmount:     1000,
		RoundDuration:   time.Minute,
	})
	require.NoError(t, err)

	round1, err := testutil.SampleRound(ctx, &entity.Round{
		AuctionID: auction.ID,
		Number:    1,
		StartTime: time.Now().Add(-2 * time.Minute),
		EndTime:   time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	userA, err := testutil.SampleUser(ctx, &entity.User{Balance: 1000})
	require.NoError(t, err)
	userB, err := testutil.SampleUser(ctx, &entity.User{Balance: 1000})
	require.NoError(t, err)
	userC, err := testutil.SampleUser(ctx, &entity.User{Balance: 1000})
	require.NoError(t, err)

	for _, bet := range []entity.Bet{
		{UserID: userA.ID, RoundID: round1.ID, Amount: 500},
		{UserID: userB.ID, RoundID: round1.ID, Amount: 300},
		{UserID: userC.ID, RoundID: round1.ID, Amount: 200},
	} {
		bet := bet
		_, err := testutil.SampleBet(ctx, &bet)
		require.NoError(t, err)
	}

	job := newTestRoundExpiryCronJob()
	roundRepo := repository.NewRoundRepository()
	userRepo := repository.NewUserRepository()

	// First tick: round 1 closes, round 2 opens, round 1 settles.
	job.Do(ctx)

	gotRound1, err := roundRepo.GetByID(ctx, round1.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RoundEnded, gotRound1.Status)

	round2, err := roundRepo.GetActiveByAuctionID(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, 2, round2.Number)

	gotA, err := userRepo.GetByID(ctx, userA.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1000), gotA.RewardPoints)

	// The losing stakes of B and C moved to round 2.
	betRepo := repository.NewBetRepository()
	for _, loser := range []struct {
		id     string
		amount int64
	}{{userB.ID, 300}, {userC.ID, 200}} {
		moved, err := betRepo.GetByUserAndRound(ctx, loser.id, round2.ID)
		require.NoError(t, err)
		require.Equal(t, loser.amount, moved.Amount)
	}

	// Let round 2 expire as well.
	err = xcontext.DB(ctx).
		Model(&entity.Round{}).
		Where("id=?", round2.ID).
		Update("end_time", time.Now().Add(-time.Minute)).Error
	require.NoError(t, err)

	// Second tick: final round settles and the auction ends with refunds.
	job.Do(ctx)

	gotAuction, err := repository.NewAuctionRepository().GetByID(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, entity.AuctionEnded, gotAuction.Status)
	require.True(t, gotAuction.RefundsProcessed)

	gotB, err := userRepo.GetByID(ctx, userB.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1000), gotB.RewardPoints)

	// C lost both rounds and gets the full stake back.
	gotC, err := userRepo.GetByID(ctx, userC.ID)
	require.NoError(t, err)
	require.Zero(t, gotC.RewardPoints)
	require.Equal(t, int64(1200), gotC.Balance)
}

func Test_RoundExpiryCronJob_RepairsAuctionWithoutActiveRound(t *testing.T) {
	ctx := testutil.MockContext()

	auction, err := testutil.SampleAuction(ctx, &entity.Auction{TotalRounds: 3})
	require.NoError(t, err)

	job := newTestRoundExpiryCronJob()
	job.Do(ctx)

	round, err := repository.NewRoundRepository().GetActiveByAuctionID(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, 1, round.Number)
}
