package repository_test

import (
	"testing"

	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/internal/repository"
	"github.com/auctionx-lab/backend/pkg/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func Test_betRepository_OneBetPerUserPerRound(t *testing.T) {
	ctx := testutil.MockContext()
	auction, err := testutil.SampleAuction(ctx, nil)
	require.NoError(t, err)
	round, err := testutil.SampleRound(ctx, &entity.Round{AuctionID: auction.ID})
	require.NoError(t, err)

	betRepo := repository.NewBetRepository()

	bet := entity.Bet{
		Base:    entity.Base{ID: uuid.NewString()},
		UserID:  "user",
		RoundID: round.ID,
		Amount:  100,
	}
	require.NoError(t, betRepo.Create(ctx, &bet))

	dup := entity.Bet{
		Base:    entity.Base{ID: uuid.NewString()},
		UserID:  "user",
		RoundID: round.ID,
		Amount:  200,
	}
	err = betRepo.Create(ctx, &dup)
	require.Error(t, err)
	require.True(t, repository.IsDuplicateKeyError(err))

	// Deleting frees the (user, round) pair again.
	require.NoError(t, betRepo.Delete(ctx, bet.ID))
	require.NoError(t, betRepo.Create(ctx, &dup))
}

func Test_betRepository_UpdateAmount_ChecksVersion(t *testing.T) {
	ctx := testutil.MockContext()
	auction, err := testutil.SampleAuction(ctx, nil)
	require.NoError(t, err)
	round, err := testutil.SampleRound(ctx, &entity.Round{AuctionID: auction.ID})
	require.NoError(t, err)
	bet, err := testutil.SampleBet(ctx, &entity.Bet{RoundID: round.ID, Amount: 100})
	require.NoError(t, err)

	betRepo := repository.NewBetRepository()

	require.NoError(t, betRepo.UpdateAmount(ctx, bet.ID, 200, 0))

	// A stale version no longer matches.
	err = betRepo.UpdateAmount(ctx, bet.ID, 300, 0)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	got, err := betRepo.GetByID(ctx, bet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(200), got.Amount)
	require.Equal(t, 1, got.Version)
}

func Test_betRepository_GetTotalAmountPerUser(t *testing.T) {
	ctx := testutil.MockContext()
	auction, err := testutil.SampleAuction(ctx, nil)
	require.NoError(t, err)
	round1, err := testutil.SampleRound(ctx, &entity.Round{AuctionID: auction.ID, Number: 1})
	require.NoError(t, err)
	round2, err := testutil.SampleRound(ctx, &entity.Round{AuctionID: auction.ID, Number: 2})
	require.NoError(t, err)

	// A second auction whose bets must not leak into the totals.
	other, err := testutil.SampleAuction(ctx, &entity.Auction{Status: entity.AuctionEnded})
	require.NoError(t, err)
	otherRound, err := testutil.SampleRound(ctx, &entity.Round{AuctionID: other.ID})
	require.NoError(t, err)

	_, err = testutil.SampleBet(ctx, &entity.Bet{UserID: "u1", RoundID: round1.ID, Amount: 100})
	require.NoError(t, err)
	_, err = testutil.SampleBet(ctx, &entity.Bet{UserID: "u1", RoundID: round2.ID, Amount: 250})
	require.NoError(t, err)
	_, err = testutil.SampleBet(ctx, &entity.Bet{UserID: "u2", RoundID: round2.ID, Amount: 50})
	require.NoError(t, err)
	_, err = testutil.SampleBet(ctx, &entity.Bet{UserID: "u1", RoundID: otherRound.ID, Amount: 999})
	require.NoError(t, err)

	totals, err := repository.NewBetRepository().GetTotalAmountPerUser(ctx, auction.ID)
	require.NoError(t, err)

	byUser := map[string]int64{}
	for _, total := range totals {
		byUser[total.UserID] = total.Total
	}
	require.Equal(t, int64(350), byUser["u1"])
	require.Equal(t, int64(50), byUser["u2"])
}

func Test_userRepository_DecreaseBalance_GuardsAgainstOverdraft(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, &entity.User{Balance: 100})
	require.NoError(t, err)

	userRepo := repository.NewUserRepository()

	err = userRepo.DecreaseBalance(ctx, user.ID, 101)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, userRepo.DecreaseBalance(ctx, user.ID, 100))

	got, err := userRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, got.Balance)
}
