package domain

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/internal/model"
	"github.com/auctionx-lab/backend/internal/repository"
	"github.com/auctionx-lab/backend/pkg/pubsub"
	"github.com/auctionx-lab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func newTestAuctionDomain(publisher pubsub.Publisher) *auctionDomain {
	return NewAuctionDomain(
		repository.NewAuctionRepository(),
		repository.NewRoundRepository(),
		newTestRoundDomain(),
		newTestSettlementDomain(),
		publisher,
		&testutil.MockRedisClient{},
	)
}

func Test_auctionDomain_Create_Validation(t *testing.T) {
	ctx := testutil.MockContext()
	auctionDomain := newTestAuctionDomain(nil)

	_, err := auctionDomain.Create(ctx, &model.CreateAuctionRequest{
		PrizeAmount: 100, WinnersPerRound: 1, TotalRounds: 1, RoundDurationMinutes: 1,
	})
	require.Error(t, err)
	require.Equal(t, "Name must not be empty", err.Error())

	_, err = auctionDomain.Create(ctx, &model.CreateAuctionRequest{
		Name: "weekly", PrizeAmount: 100, WinnersPerRound: 0, TotalRounds: 1, RoundDurationMinutes: 1,
	})
	require.Error(t, err)

	resp, err := auctionDomain.Create(ctx, &model.CreateAuctionRequest{
		Name: "weekly", PrizeAmount: 100, WinnersPerRound: 1, TotalRounds: 1, RoundDurationMinutes: 1,
	})
	require.NoError(t, err)
	require.Equal(t, string(entity.AuctionDraft), resp.Auction.Status)

	// Only one auction may be in progress at a time.
	_, err = auctionDomain.Create(ctx, &model.CreateAuctionRequest{
		Name: "another", PrizeAmount: 100, WinnersPerRound: 1, TotalRounds: 1, RoundDurationMinutes: 1,
	})
	require.Error(t, err)
	require.Equal(t, "Another auction is already in progress", err.Error())
}

func Test_auctionDomain_Start_SpawnsFirstRound(t *testing.T) {
	ctx := testutil.MockContext()
	auctionDomain := newTestAuctionDomain(nil)

	created, err := auctionDomain.Create(ctx, &model.CreateAuctionRequest{
		Name: "weekly", PrizeAmount: 100, WinnersPerRound: 1, TotalRounds: 3, RoundDurationMinutes: 1,
	})
	require.NoError(t, err)

	started, err := auctionDomain.Start(ctx, &model.StartAuctionRequest{AuctionID: created.Auction.ID})
	require.NoError(t, err)
	require.Equal(t, string(entity.AuctionActive), started.Auction.Status)

	round, err := repository.NewRoundRepository().GetActiveByAuctionID(ctx, created.Auction.ID)
	require.NoError(t, err)
	require.Equal(t, 1, round.Number)

	// Starting twice is refused.
	_, err = auctionDomain.Start(ctx, &model.StartAuctionRequest{AuctionID: created.Auction.ID})
	require.Error(t, err)
	require.Equal(t, "Auction is not in draft", err.Error())
}

func Test_auctionDomain_Update_DraftOnly(t *testing.T) {
	ctx := testutil.MockContext()
	auctionDomain := newTestAuctionDomain(nil)

	created, err := auctionDomain.Create(ctx, &model.CreateAuctionRequest{
		Name: "weekly", PrizeAmount: 100, WinnersPerRound: 1, TotalRounds: 3, RoundDurationMinutes: 1,
	})
	require.NoError(t, err)

	updated, err := auctionDomain.Update(ctx, &model.UpdateAuctionRequest{
		AuctionID:   created.Auction.ID,
		PrizeAmount: 999,
	})
	require.NoError(t, err)
	require.Equal(t, int64(999), updated.Auction.PrizeAmount)
	require.Equal(t, "weekly", updated.Auction.Name)

	_, err = auctionDomain.Start(ctx, &model.StartAuctionRequest{AuctionID: created.Auction.ID})
	require.NoError(t, err)

	_, err = auctionDomain.Update(ctx, &model.UpdateAuctionRequest{
		AuctionID: created.Auction.ID,
		Name:      "too late",
	})
	require.Error(t, err)
	require.Equal(t, "Only a draft auction can be updated", err.Error())
}

func Test_auctionDomain_End_PublishesRefundJob(t *testing.T) {
	ctx := testutil.MockContext()

	var published []model.SettlementJob
	publisher := &testutil.MockPublisher{
		PublishFunc: func(ctx context.Context, topic string, pack *pubsub.Pack) error {
			var job model.SettlementJob
			require.NoError(t, json.Unmarshal(pack.Msg, &job))
			published = append(published, job)
			return nil
		},
	}
	auctionDomain := newTestAuctionDomain(publisher)

	auction, err := testutil.SampleAuction(ctx, nil)
	require.NoError(t, err)
	round, err := testutil.SampleRound(ctx, &entity.Round{AuctionID: auction.ID})
	require.NoError(t, err)

	_, err = auctionDomain.End(ctx, &model.EndAuctionRequest{AuctionID: auction.ID})
	require.NoError(t, err)

	// The running round is closed and the refund pass is queued.
	gotRound, err := repository.NewRoundRepository().GetByID(ctx, round.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RoundEnded, gotRound.Status)

	require.Len(t, published, 1)
	require.Equal(t, model.JobTypeProcessRefunds, published[0].Type)
	require.Equal(t, auction.ID, published[0].AuctionID)

	_, err = auctionDomain.End(ctx, &model.EndAuctionRequest{AuctionID: auction.ID})
	require.Error(t, err)
	require.Equal(t, "Auction already ended", err.Error())
}

func Test_auctionDomain_End_RunsRefundsInlineWithoutBroker(t *testing.T) {
	ctx := testutil.MockContext()
	auctionDomain := newTestAuctionDomain(nil)

	auction, err := testutil.SampleAuction(ctx, nil)
	require.NoError(t, err)

	_, err = auctionDomain.End(ctx, &model.EndAuctionRequest{AuctionID: auction.ID})
	require.NoError(t, err)

	got, err := repository.NewAuctionRepository().GetByID(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, entity.AuctionEnded, got.Status)
	require.True(t, got.RefundsProcessed)
}

func Test_auctionDomain_GetCurrent(t *testing.T) {
	ctx := testutil.MockContext()
	auctionDomain := newTestAuctionDomain(nil)

	_, err := auctionDomain.GetCurrent(ctx, &model.GetCurrentAuctionRequest{})
	require.Error(t, err)
	require.Equal(t, "No current auction", err.Error())

	auction, err := testutil.SampleAuction(ctx, nil)
	require.NoError(t, err)

	resp, err := auctionDomain.GetCurrent(ctx, &model.GetCurrentAuctionRequest{})
	require.NoError(t, err)
	require.Equal(t, auction.ID, resp.Auction.ID)
}
