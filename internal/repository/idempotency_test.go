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

func Test_idempotencyRepository_Lifecycle(t *testing.T) {
	ctx := testutil.MockContext()
	idempotencyRepo := repository.NewIdempotencyRepository()

	record := &entity.IdempotencyRecord{
		Base:   entity.Base{ID: uuid.NewString()},
		Key:    "op-1",
		OpType: "apply_transaction",
		Status: entity.IdempotencyPending,
	}
	require.NoError(t, idempotencyRepo.Create(ctx, record))

	// The same key under another op type is a different operation.
	other := &entity.IdempotencyRecord{
		Base:   entity.Base{ID: uuid.NewString()},
		Key:    "op-1",
		OpType: "place_bet",
		Status: entity.IdempotencyPending,
	}
	require.NoError(t, idempotencyRepo.Create(ctx, other))

	dup := &entity.IdempotencyRecord{
		Base:   entity.Base{ID: uuid.NewString()},
		Key:    "op-1",
		OpType: "apply_transaction",
		Status: entity.IdempotencyPending,
	}
	err := idempotencyRepo.Create(ctx, dup)
	require.Error(t, err)
	require.True(t, repository.IsDuplicateKeyError(err))

	require.NoError(t, idempotencyRepo.MarkFailed(ctx, "op-1", "apply_transaction", "boom"))

	got, err := idempotencyRepo.Get(ctx, "op-1", "apply_transaction")
	require.NoError(t, err)
	require.Equal(t, entity.IdempotencyFailed, got.Status)
	require.Equal(t, "boom", got.ErrorInfo.String)

	// Only a failed record can be reopened, and only once.
	require.NoError(t, idempotencyRepo.Reopen(ctx, "op-1", "apply_transaction"))
	require.ErrorIs(t, idempotencyRepo.Reopen(ctx, "op-1", "apply_transaction"), gorm.ErrRecordNotFound)

	require.NoError(t, idempotencyRepo.MarkSucceeded(ctx, "op-1", "apply_transaction", "tx-1"))

	got, err = idempotencyRepo.Get(ctx, "op-1", "apply_transaction")
	require.NoError(t, err)
	require.Equal(t, entity.IdempotencySucceeded, got.Status)
	require.Equal(t, "tx-1", got.ResultRef.String)

	// A succeeded record is final.
	require.ErrorIs(t,
		idempotencyRepo.MarkFailed(ctx, "op-1", "apply_transaction", "late"),
		gorm.ErrRecordNotFound)
}
