package repository

import (
	"context"
	"database/sql"

	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type IdempotencyRepository interface {
	// Create is the insert-if-absent guard; a duplicate (key, op_type)
	// insert fails with a unique-constraint error.
	Create(ctx context.Context, record *entity.IdempotencyRecord) error
	Get(ctx context.Context, key, opType string) (*entity.IdempotencyRecord, error)
	MarkSucceeded(ctx context.Context, key, opType, resultRef string) error
	MarkFailed(ctx context.Context, key, opType, errorInfo string) error
	// Reopen flips a failed record back to pending so the operation can be
	// retried under the same key. Exactly one concurrent retrier wins.
	Reopen(ctx context.Context, key, opType string) error
}

type idempotencyRepository struct{}

func NewIdempotencyRepository() *idempotencyRepository {
	return &idempotencyRepository{}
}

func (r *idempotencyRepository) Create(ctx context.Context, record *entity.IdempotencyRecord) error {
	return xcontext.DB(ctx).Create(record).Error
}

func (r *idempotencyRepository) Get(ctx context.Context, key, opType string) (*entity.IdempotencyRecord, error) {
	var result entity.IdempotencyRecord
	err := xcontext.DB(ctx).
		Where("op_key=? AND op_type=?", key, opType).
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *idempotencyRepository) MarkSucceeded(ctx context.Context, key, opType, resultRef string) error {
	return r.transition(ctx, key, opType, entity.IdempotencyPending, map[string]any{
		"status":     entity.IdempotencySucceeded,
		"result_ref": sql.NullString{String: resultRef, Valid: true},
	})
}

func (r *idempotencyRepository) MarkFailed(ctx context.Context, key, opType, errorInfo string) error {
	return r.transition(ctx, key, opType, entity.IdempotencyPending, map[string]any{
		"status":     entity.IdempotencyFailed,
		"error_info": sql.NullString{String: errorInfo, Valid: true},
	})
}

func (r *idempotencyRepository) Reopen(ctx context.Context, key, opType string) error {
	return r.transition(ctx, key, opType, entity.IdempotencyFailed, map[string]any{
		"status":     entity.IdempotencyPending,
		"error_info": sql.NullString{},
	})
}

func (r *idempotencyRepository) transition(
	ctx context.Context, key, opType string, from entity.IdempotencyStatusType, updates map[string]any,
) error {
	tx := xcontext.DB(ctx).
		Model(&entity.IdempotencyRecord{}).
		Where("op_key=? AND op_type=? AND status=?", key, opType, from).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
