package repository

import (
	"context"
	"time"

	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type RoundRepository interface {
	Create(ctx context.Context, round *entity.Round) error
	GetByID(ctx context.Context, id string) (*entity.Round, error)
	GetActiveByAuctionID(ctx context.Context, auctionID string) (*entity.Round, error)
	GetLastByAuctionID(ctx context.Context, auctionID string) (*entity.Round, error)
	GetByAuctionID(ctx context.Context, auctionID string) ([]entity.Round, error)
	GetExpiredActive(ctx context.Context, now time.Time) ([]entity.Round, error)
	End(ctx context.Context, id string) error
	ExtendEndTime(ctx context.Context, id string, endTime time.Time) error
}

type roundRepository struct{}

func NewRoundRepository() *roundRepository {
	return &roundRepository{}
}

func (r *roundRepository) Create(ctx context.Context, round *entity.Round) error {
	return xcontext.DB(ctx).Create(round).Error
}

func (r *roundRepository) GetByID(ctx context.Context, id string) (*entity.Round, error) {
	var result entity.Round
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *roundRepository) GetActiveByAuctionID(ctx context.Context, auctionID string) (*entity.Round, error) {
	var result entity.Round
	err := xcontext.DB(ctx).
		Where("auction_id=? AND status=?", auctionID, entity.RoundActive).
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *roundRepository) GetLastByAuctionID(ctx context.Context, auctionID string) (*entity.Round, error) {
	var result entity.Round
	err := xcontext.DB(ctx).
		Where("auction_id=?", auctionID).
		Order("number DESC").
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *roundRepository) GetByAuctionID(ctx context.Context, auctionID string) ([]entity.Round, error) {
	var result []entity.Round
	err := xcontext.DB(ctx).
		Where("auction_id=?", auctionID).
		Order("number ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *roundRepository) GetExpiredActive(ctx context.Context, now time.Time) ([]entity.Round, error) {
	var result []entity.Round
	err := xcontext.DB(ctx).
		Where("status=? AND end_time <= ?", entity.RoundActive, now).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// End transitions an active round to ended. Ending a round that is not
// active affects no rows and returns gorm.ErrRecordNotFound; the caller
// decides whether that is an idempotent no-op.
func (r *roundRepository) End(ctx context.Context, id string) error {
	tx := xcontext.DB(ctx).
		Model(&entity.Round{}).
		Where("id=? AND status=?", id, entity.RoundActive).
		Update("status", entity.RoundEnded)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *roundRepository) ExtendEndTime(ctx context.Context, id string, endTime time.Time) error {
	tx := xcontext.DB(ctx).
		Model(&entity.Round{}).
		Where("id=? AND status=?", id, entity.RoundActive).
		Update("end_time", endTime)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
