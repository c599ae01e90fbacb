package repository

import (
	"context"
	"time"

	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type AuctionRepository interface {
	Create(ctx context.Context, auction *entity.Auction) error
	// CreateIfNoneInProgress inserts the auction only while no other auction
	// is in draft or active status. Check and insert are one statement, so
	// two concurrent creates cannot both pass; the loser gets
	// gorm.ErrRecordNotFound.
	CreateIfNoneInProgress(ctx context.Context, auction *entity.Auction) error
	GetByID(ctx context.Context, id string) (*entity.Auction, error)
	GetCurrent(ctx context.Context) (*entity.Auction, error)
	GetCurrentActive(ctx context.Context) (*entity.Auction, error)
	GetEndedUnrefunded(ctx context.Context) ([]entity.Auction, error)
	UpdateStatus(ctx context.Context, id string, from, to entity.AuctionStatusType) error
	UpdateDraft(ctx context.Context, id string, updates map[string]any) error
	SetEnded(ctx context.Context, id string, endedAt time.Time) error
	MarkRefundsProcessed(ctx context.Context, id string) error
}

type auctionRepository struct{}

func NewAuctionRepository() *auctionRepository {
	return &auctionRepository{}
}

func (r *auctionRepository) Create(ctx context.Context, auction *entity.Auction) error {
	return xcontext.DB(ctx).Create(auction).Error
}

func (r *auctionRepository) CreateIfNoneInProgress(ctx context.Context, auction *entity.Auction) error {
	now := time.Now()
	auction.CreatedAt = now
	auction.UpdatedAt = now

	tx := xcontext.DB(ctx).Exec(`
		INSERT INTO auctions
			(id, created_at, updated_at, name, prize_amount, winners_per_round,
			 total_rounds, round_duration, status, refunds_processed)
		SELECT * FROM (
			SELECT ? AS id, ? AS created_at, ? AS updated_at, ? AS name,
			       ? AS prize_amount, ? AS winners_per_round, ? AS total_rounds,
			       ? AS round_duration, ? AS status, ? AS refunds_processed
		) AS candidate
		WHERE NOT EXISTS (
			SELECT 1 FROM auctions
			WHERE status IN (?, ?) AND deleted_at IS NULL
		)`,
		auction.ID, auction.CreatedAt, auction.UpdatedAt, auction.Name,
		auction.PrizeAmount, auction.WinnersPerRound, auction.TotalRounds,
		int64(auction.RoundDuration), string(auction.Status), auction.RefundsProcessed,
		entity.AuctionDraft, entity.AuctionActive,
	)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *auctionRepository) GetByID(ctx context.Context, id string) (*entity.Auction, error) {
	var result entity.Auction
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

// GetCurrent returns the single auction in draft or active status, if any.
func (r *auctionRepository) GetCurrent(ctx context.Context) (*entity.Auction, error) {
	var result entity.Auction
	err := xcontext.DB(ctx).
		Where("status IN (?)", []entity.AuctionStatusType{entity.AuctionDraft, entity.AuctionActive}).
		Order("created_at DESC").
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *auctionRepository) GetCurrentActive(ctx context.Context) (*entity.Auction, error) {
	var result entity.Auction
	err := xcontext.DB(ctx).
		Where("status=?", entity.AuctionActive).
		Order("created_at DESC").
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// GetEndedUnrefunded returns ended auctions whose refund pass has not
// completed yet. The scheduler uses it as a safety net when the refund job
// published at auction end was lost.
func (r *auctionRepository) GetEndedUnrefunded(ctx context.Context) ([]entity.Auction, error) {
	var result []entity.Auction
	err := xcontext.DB(ctx).
		Where("status=? AND refunds_processed=?", entity.AuctionEnded, false).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *auctionRepository) UpdateStatus(
	ctx context.Context, id string, from, to entity.AuctionStatusType,
) error {
	tx := xcontext.DB(ctx).
		Model(&entity.Auction{}).
		Where("id=? AND status=?", id, from).
		Update("status", to)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// UpdateDraft applies field updates only while the auction is still draft.
func (r *auctionRepository) UpdateDraft(ctx context.Context, id string, updates map[string]any) error {
	tx := xcontext.DB(ctx).
		Model(&entity.Auction{}).
		Where("id=? AND status=?", id, entity.AuctionDraft).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *auctionRepository) SetEnded(ctx context.Context, id string, endedAt time.Time) error {
	tx := xcontext.DB(ctx).
		Model(&entity.Auction{}).
		Where("id=? AND status<>?", id, entity.AuctionEnded).
		Updates(map[string]any{"status": entity.AuctionEnded, "ended_at": endedAt})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// MarkRefundsProcessed flips the at-most-once refund guard. A second caller
// gets gorm.ErrRecordNotFound and knows the pass already completed.
func (r *auctionRepository) MarkRefundsProcessed(ctx context.Context, id string) error {
	tx := xcontext.DB(ctx).
		Model(&entity.Auction{}).
		Where("id=? AND refunds_processed=?", id, false).
		Update("refunds_processed", true)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
