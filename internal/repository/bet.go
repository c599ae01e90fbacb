package repository

import (
	"context"

	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type UserBetTotal struct {
	UserID string
	Total  int64
}

type BetRepository interface {
	Create(ctx context.Context, bet *entity.Bet) error
	GetByID(ctx context.Context, id string) (*entity.Bet, error)
	GetByUserAndRound(ctx context.Context, userID, roundID string) (*entity.Bet, error)
	GetByRoundID(ctx context.Context, roundID string) ([]entity.Bet, error)
	UpdateAmount(ctx context.Context, id string, amount int64, expectedVersion int) error
	AddAmount(ctx context.Context, id string, delta int64) error
	MoveToRound(ctx context.Context, id, roundID string) error
	Delete(ctx context.Context, id string) error
	GetTotalAmountPerUser(ctx context.Context, auctionID string) ([]UserBetTotal, error)
}

type betRepository struct{}

func NewBetRepository() *betRepository {
	return &betRepository{}
}

func (r *betRepository) Create(ctx context.Context, bet *entity.Bet) error {
	return xcontext.DB(ctx).Create(bet).Error
}

func (r *betRepository) GetByID(ctx context.Context, id string) (*entity.Bet, error) {
	var result entity.Bet
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *betRepository) GetByUserAndRound(ctx context.Context, userID, roundID string) (*entity.Bet, error) {
	var result entity.Bet
	err := xcontext.DB(ctx).
		Where("user_id=? AND round_id=?", userID, roundID).
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// GetByRoundID returns the round's bets in canonical settlement order:
// amount descending, ties broken by earliest creation.
func (r *betRepository) GetByRoundID(ctx context.Context, roundID string) ([]entity.Bet, error) {
	var result []entity.Bet
	err := xcontext.DB(ctx).
		Where("round_id=?", roundID).
		Order("amount DESC").
		Order("created_at ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateAmount raises the bet amount guarded by the optimistic version
// counter. A concurrent mutation bumps the version first and the guard
// fails with gorm.ErrRecordNotFound.
func (r *betRepository) UpdateAmount(ctx context.Context, id string, amount int64, expectedVersion int) error {
	tx := xcontext.DB(ctx).
		Model(&entity.Bet{}).
		Where("id=? AND version=?", id, expectedVersion).
		Updates(map[string]any{
			"amount":  amount,
			"version": gorm.Expr("version+1"),
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *betRepository) AddAmount(ctx context.Context, id string, delta int64) error {
	tx := xcontext.DB(ctx).
		Model(&entity.Bet{}).
		Where("id=?", id).
		Updates(map[string]any{
			"amount":  gorm.Expr("amount+?", delta),
			"version": gorm.Expr("version+1"),
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// MoveToRound re-points a bet at another round with the version reset. The
// unique (user_id, round_id) index rejects the move if the user already has
// a bet in the target round; callers merge instead.
func (r *betRepository) MoveToRound(ctx context.Context, id, roundID string) error {
	tx := xcontext.DB(ctx).
		Model(&entity.Bet{}).
		Where("id=?", id).
		Updates(map[string]any{
			"round_id": roundID,
			"version":  0,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// Delete removes the row for good. Soft deletion would leave the unique
// (user_id, round_id) pair occupied at the store level.
func (r *betRepository) Delete(ctx context.Context, id string) error {
	return xcontext.DB(ctx).Unscoped().Delete(&entity.Bet{}, "id=?", id).Error
}

// GetTotalAmountPerUser sums every live bet of the auction per user across
// all of its rounds. This is the refund base amount.
func (r *betRepository) GetTotalAmountPerUser(ctx context.Context, auctionID string) ([]UserBetTotal, error) {
	var result []UserBetTotal
	err := xcontext.DB(ctx).
		Model(&entity.Bet{}).
		Select("bets.user_id AS user_id, SUM(bets.amount) AS total").
		Joins("JOIN rounds ON rounds.id = bets.round_id").
		Where("rounds.auction_id = ?", auctionID).
		Group("bets.user_id").
		Order("bets.user_id ASC").
		Scan(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
