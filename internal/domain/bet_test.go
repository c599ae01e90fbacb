package domain

import (
	"testing"
	"time"

	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/internal/model"
	"github.com/auctionx-lab/backend/internal/repository"
	"github.com/auctionx-lab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func newTestBetDomain() *betDomain {
	return NewBetDomain(
		repository.NewBetRepository(),
		repository.NewRoundRepository(),
		repository.NewIdempotencyRepository(),
		newTestLedgerDomain(),
		&testutil.MockRedisClient{},
	)
}

func Test_betDomain_PlaceBet_NewThenRaise(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, &entity.User{Balance: 10000})
	require.NoError(t, err)
	auction, err := testutil.SampleAuction(ctx, nil)
	require.NoError(t, err)
	round, err := testutil.SampleRound(ctx, &entity.Round{AuctionID: auction.ID, Number: 2})
	require.NoError(t, err)

	ctx = testutil.MockContextWithUserID(ctx, user.ID)
	betDomain := newTestBetDomain()

	resp, err := betDomain.PlaceBet(ctx, &model.PlaceBetRequest{RoundID: round.ID, Amount: 3000})
	require.NoError(t, err)
	require.Equal(t, int64(3000), resp.Bet.Amount)

	got, err := repository.NewUserRepository().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(7000), got.Balance)

	// Raising to 5000 charges only the 2000 difference.
	resp2, err := betDomain.PlaceBet(ctx, &model.PlaceBetRequest{RoundID: round.ID, Amount: 5000})
	require.NoError(t, err)
	require.Equal(t, resp.Bet.ID, resp2.Bet.ID)
	require.Equal(t, int64(5000), resp2.Bet.Amount)

	got, err = repository.NewUserRepository().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5000), got.Balance)

	// Lowering is rejected and nothing is charged.
	_, err = betDomain.PlaceBet(ctx, &model.PlaceBetRequest{RoundID: round.ID, Amount: 4000})
	require.Error(t, err)
	require.Equal(t, "Bid amount must be greater than the current bid of 5000", err.Error())

	got, err = repository.NewUserRepository().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5000), got.Balance)
}

func Test_betDomain_PlaceBet_InsufficientFundsIsExact(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, &entity.User{Balance: 100})
	require.NoError(t, err)
	auction, err := testutil.SampleAuction(ctx, nil)
	require.NoError(t, err)
	round, err := testutil.SampleRound(ctx, &entity.Round{AuctionID: auction.ID, Number: 2})
	require.NoError(t, err)

	ctx = testutil.MockContextWithUserID(ctx, user.ID)
	betDomain := newTestBetDomain()

	// One unit over the balance fails, the balance itself succeeds.
	_, err = betDomain.PlaceBet(ctx, &model.PlaceBetRequest{RoundID: round.ID, Amount: 101})
	require.Error(t, err)
	require.Equal(t, "Insufficient funds: required 101, available 100", err.Error())

	_, err = betDomain.PlaceBet(ctx, &model.PlaceBetRequest{RoundID: round.ID, Amount: 100})
	require.NoError(t, err)

	got, err := repository.NewUserRepository().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), got.Balance)
}

func Test_betDomain_PlaceBet_IdempotentReplay(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, &entity.User{Balance: 1000})
	require.NoError(t, err)
	auction, err := testutil.SampleAuction(ctx, nil)
	require.NoError(t, err)
	round, err := testutil.SampleRound(ctx, &entity.Round{AuctionID: auction.ID, Number: 2})
	require.NoError(t, err)

	ctx = testutil.MockContextWithUserID(ctx, user.ID)
	betDomain := newTestBetDomain()

	resp, err := betDomain.PlaceBet(ctx, &model.PlaceBetRequest{
		RoundID: round.ID, Amount: 400, IdempotencyKey: "place-1",
	})
	require.NoError(t, err)

	// The same key returns the same bet and charges nothing.
	resp2, err := betDomain.PlaceBet(ctx, &model.PlaceBetRequest{
		RoundID: round.ID, Amount: 400, IdempotencyKey: "place-1",
	})
	require.NoError(t, err)
	require.Equal(t, resp.Bet.ID, resp2.Bet.ID)

	// A different key at the same resulting amount also replays.
	resp3, err := betDomain.PlaceBet(ctx, &model.PlaceBetRequest{
		RoundID: round.ID, Amount: 400, IdempotencyKey: "place-2",
	})
	require.NoError(t, err)
	require.Equal(t, resp.Bet.ID, resp3.Bet.ID)

	got, err := repository.NewUserRepository().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(600), got.Balance)
}

func Test_betDomain_PlaceBet_RejectsClosedRounds(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	auction, err := testutil.SampleAuction(ctx, nil)
	require.NoError(t, err)

	ended, err := testutil.SampleRound(ctx, &entity.Round{
		AuctionID: auction.ID, Number: 2, Status: entity.RoundEnded,
	})
	require.NoError(t, err)

	expired, err := testutil.SampleRound(ctx, &entity.Round{
		AuctionID: auction.ID,
		Number:    3,
		StartTime: time.Now().Add(-10 * time.Minute),
		EndTime:   time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	ctx = testutil.MockContextWithUserID(ctx, user.ID)
	betDomain := newTestBetDomain()

	_, err = betDomain.PlaceBet(ctx, &model.PlaceBetRequest{RoundID: ended.ID, Amount: 10})
	require.Error(t, err)
	require.Equal(t, "Round is not accepting bids", err.Error())

	// An overdue round past its window gets no extension, it is not round 1.
	_, err = betDomain.PlaceBet(ctx, &model.PlaceBetRequest{RoundID: expired.ID, Amount: 10})
	require.Error(t, err)
	require.Equal(t, "Round is not accepting bids", err.Error())

	_, err = betDomain.PlaceBet(ctx, &model.PlaceBetRequest{RoundID: "missing", Amount: 10})
	require.Error(t, err)
	require.Equal(t, "Not found round", err.Error())
}

func Test_betDomain_PlaceBet_ReplaysAfterRoundClosed(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, &entity.User{Balance: 1000})
	require.NoError(t, err)
	auction, err := testutil.SampleAuction(ctx, nil)
	require.NoError(t, err)
	round, err := testutil.SampleRound(ctx, &entity.Round{AuctionID: auction.ID, Number: 2})
	require.NoError(t, err)

	ctx = testutil.MockContextWithUserID(ctx, user.ID)
	betDomain := newTestBetDomain()

	resp, err := betDomain.PlaceBet(ctx, &model.PlaceBetRequest{
		RoundID: round.ID, Amount: 400, IdempotencyKey: "late-retry",
	})
	require.NoError(t, err)

	require.NoError(t, repository.NewRoundRepository().End(ctx, round.ID))

	// A retry of the applied placement is answered after the round closed,
	// and charges nothing.
	resp2, err := betDomain.PlaceBet(ctx, &model.PlaceBetRequest{
		RoundID: round.ID, Amount: 400, IdempotencyKey: "late-retry",
	})
	require.NoError(t, err)
	require.Equal(t, resp.Bet.ID, resp2.Bet.ID)

	got, err := repository.NewUserRepository().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(600), got.Balance)

	// A fresh bid against the closed round is still refused.
	_, err = betDomain.PlaceBet(ctx, &model.PlaceBetRequest{
		RoundID: round.ID, Amount: 500, IdempotencyKey: "late-new",
	})
	require.Error(t, err)
	require.Equal(t, "Round is not accepting bids", err.Error())
}

func Test_betDomain_PlaceBet_AntiSnipingOnFirstRoundOnly(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	auction, err := testutil.SampleAuction(ctx, nil)
	require.NoError(t, err)

	firstEnd := time.Now().Add(5 * time.Second)
	first, err := testutil.SampleRound(ctx, &entity.Round{
		AuctionID: auction.ID,
		Number:    1,
		StartTime: time.Now().Add(-time.Minute),
		EndTime:   firstEnd,
	})
	require.NoError(t, err)

	secondEnd := time.Now().Add(5 * time.Second)
	second, err := testutil.SampleRound(ctx, &entity.Round{
		AuctionID: auction.ID,
		Number:    2,
		StartTime: time.Now().Add(-time.Minute),
		EndTime:   secondEnd,
	})
	require.NoError(t, err)

	ctx = testutil.MockContextWithUserID(ctx, user.ID)
	betDomain := newTestBetDomain()
	roundRepo := repository.NewRoundRepository()

	// A late bid on round 1 extends the round.
	_, err = betDomain.PlaceBet(ctx, &model.PlaceBetRequest{RoundID: first.ID, Amount: 10})
	require.NoError(t, err)

	gotFirst, err := roundRepo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, gotFirst.EndTime.After(firstEnd.Add(20*time.Second)))

	// The same late bid on round 2 is accepted but extends nothing.
	_, err = betDomain.PlaceBet(ctx, &model.PlaceBetRequest{RoundID: second.ID, Amount: 10})
	require.NoError(t, err)

	gotSecond, err := roundRepo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.WithinDuration(t, secondEnd, gotSecond.EndTime, time.Second)
}

func Test_betDomain_GetUserBet_And_Leaderboard(t *testing.T) {
	ctx := testutil.MockContext()
	auction, err := testutil.SampleAuction(ctx, nil)
	require.NoError(t, err)
	round, err := testutil.SampleRound(ctx, &entity.Round{AuctionID: auction.ID, Number: 2})
	require.NoError(t, err)

	betDomain := newTestBetDomain()

	users := []int64{500, 900, 700}
	var firstUser string
	for _, amount := range users {
		user, err := testutil.SampleUser(ctx, nil)
		require.NoError(t, err)
		if firstUser == "" {
			firstUser = user.ID
		}

		userCtx := testutil.MockContextWithUserID(ctx, user.ID)
		_, err = betDomain.PlaceBet(userCtx, &model.PlaceBetRequest{RoundID: round.ID, Amount: amount})
		require.NoError(t, err)
	}

	userCtx := testutil.MockContextWithUserID(ctx, firstUser)
	betResp, err := betDomain.GetUserBet(userCtx, &model.GetUserBetRequest{RoundID: round.ID})
	require.NoError(t, err)
	require.NotNil(t, betResp.Bet)
	require.Equal(t, int64(500), betResp.Bet.Amount)

	lb, err := betDomain.GetLeaderboard(ctx, &model.GetLeaderboardRequest{RoundID: round.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, lb.Entries, 2)
	require.Equal(t, int64(900), lb.Entries[0].Amount)
	require.Equal(t, 1, lb.Entries[0].Rank)
	require.Equal(t, int64(700), lb.Entries[1].Amount)
	require.Equal(t, 2, lb.Entries[1].Rank)
}
