package repository

import (
	"context"

	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/pkg/xcontext"
)

type WinnerRepository interface {
	Create(ctx context.Context, winner *entity.Winner) error
	GetByRoundID(ctx context.Context, roundID string) ([]entity.Winner, error)
	GetByUserAndRound(ctx context.Context, userID, roundID string) (*entity.Winner, error)
	GetUserIDsByAuctionID(ctx context.Context, auctionID string) ([]string, error)
}

type winnerRepository struct{}

func NewWinnerRepository() *winnerRepository {
	return &winnerRepository{}
}

func (r *winnerRepository) Create(ctx context.Context, winner *entity.Winner) error {
	return xcontext.DB(ctx).Create(winner).Error
}

func (r *winnerRepository) GetByRoundID(ctx context.Context, roundID string) ([]entity.Winner, error) {
	var result []entity.Winner
	err := xcontext.DB(ctx).
		Where("round_id=?", roundID).
		Order("`rank` ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *winnerRepository) GetByUserAndRound(ctx context.Context, userID, roundID string) (*entity.Winner, error) {
	var result entity.Winner
	err := xcontext.DB(ctx).
		Where("user_id=? AND round_id=?", userID, roundID).
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// GetUserIDsByAuctionID returns every user who won any round of the
// auction. These users are excluded from the auction-end refund pass.
func (r *winnerRepository) GetUserIDsByAuctionID(ctx context.Context, auctionID string) ([]string, error) {
	var result []string
	err := xcontext.DB(ctx).
		Model(&entity.Winner{}).
		Joins("JOIN rounds ON rounds.id = winners.round_id").
		Where("rounds.auction_id = ?", auctionID).
		Distinct().
		Pluck("winners.user_id", &result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
