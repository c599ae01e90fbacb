package domain

import (
	"testing"

	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/internal/model"
	"github.com/auctionx-lab/backend/internal/repository"
	"github.com/auctionx-lab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func newTestLedgerDomain() *ledgerDomain {
	return NewLedgerDomain(
		repository.NewUserRepository(),
		repository.NewTransactionRepository(),
		repository.NewIdempotencyRepository(),
	)
}

func Test_ledgerDomain_Apply_AppliesEachKeyOnce(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, &entity.User{Balance: 500})
	require.NoError(t, err)

	ledgerDomain := newTestLedgerDomain()

	tx1, err := ledgerDomain.Apply(ctx, ApplyInput{
		UserID:         user.ID,
		Type:           entity.TransactionDeposit,
		Amount:         100,
		IdempotencyKey: "deposit-1",
	})
	require.NoError(t, err)

	// A retry with the same key returns the original transaction and does
	// not touch the balance again.
	tx2, err := ledgerDomain.Apply(ctx, ApplyInput{
		UserID:         user.ID,
		Type:           entity.TransactionDeposit,
		Amount:         100,
		IdempotencyKey: "deposit-1",
	})
	require.NoError(t, err)
	require.Equal(t, tx1.ID, tx2.ID)

	got, err := repository.NewUserRepository().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(600), got.Balance)
}

func Test_ledgerDomain_Apply_FailedKeyCanBeRetried(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, &entity.User{Balance: 100})
	require.NoError(t, err)

	ledgerDomain := newTestLedgerDomain()

	_, err = ledgerDomain.Apply(ctx, ApplyInput{
		UserID:         user.ID,
		Type:           entity.TransactionBet,
		Amount:         150,
		IdempotencyKey: "bet-1",
	})
	require.Error(t, err)
	require.Equal(t, "Insufficient funds: required 150, available 100", err.Error())

	// Top the account up, then retry with the same key.
	_, err = ledgerDomain.Apply(ctx, ApplyInput{
		UserID: user.ID,
		Type:   entity.TransactionDeposit,
		Amount: 100,
	})
	require.NoError(t, err)

	_, err = ledgerDomain.Apply(ctx, ApplyInput{
		UserID:         user.ID,
		Type:           entity.TransactionBet,
		Amount:         150,
		IdempotencyKey: "bet-1",
	})
	require.NoError(t, err)

	got, err := repository.NewUserRepository().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(50), got.Balance)
}

func Test_ledgerDomain_Apply_PrizeGoesToRewardPoints(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, &entity.User{Balance: 100})
	require.NoError(t, err)

	ledgerDomain := newTestLedgerDomain()

	_, err = ledgerDomain.Apply(ctx, ApplyInput{
		UserID: user.ID,
		Type:   entity.TransactionPrize,
		Amount: 1000,
	})
	require.NoError(t, err)

	got, err := repository.NewUserRepository().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100), got.Balance)
	require.Equal(t, int64(1000), got.RewardPoints)
}

func Test_ledgerDomain_Apply_UnknownUser(t *testing.T) {
	ctx := testutil.MockContext()
	ledgerDomain := newTestLedgerDomain()

	_, err := ledgerDomain.Apply(ctx, ApplyInput{
		UserID: "no-one",
		Type:   entity.TransactionBet,
		Amount: 10,
	})
	require.Error(t, err)
	require.Equal(t, "Not found user", err.Error())
}

func Test_ledgerDomain_Deposit_And_GetMyTransactions(t *testing.T) {
	ctx := testutil.MockContext()
	user, err := testutil.SampleUser(ctx, nil)
	require.NoError(t, err)
	ctx = testutil.MockContextWithUserID(ctx, user.ID)

	ledgerDomain := newTestLedgerDomain()

	_, err = ledgerDomain.Deposit(ctx, &model.DepositRequest{Amount: 250})
	require.NoError(t, err)

	resp, err := ledgerDomain.GetMyTransactions(ctx, &model.GetMyTransactionsRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Transactions, 1)
	require.Equal(t, string(entity.TransactionDeposit), resp.Transactions[0].Type)
	require.Equal(t, int64(250), resp.Transactions[0].Amount)
}
