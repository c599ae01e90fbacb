package domain

import (
	"time"

	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/internal/model"
)

func convertAuction(auction *entity.Auction) model.Auction {
	var endedAt *time.Time
	if auction.EndedAt.Valid {
		t := auction.EndedAt.Time
		endedAt = &t
	}

	return model.Auction{
		ID:                   auction.ID,
		Name:                 auction.Name,
		PrizeAmount:          auction.PrizeAmount,
		WinnersPerRound:      auction.WinnersPerRound,
		TotalRounds:          auction.TotalRounds,
		RoundDurationMinutes: int(auction.RoundDuration / time.Minute),
		Status:               string(auction.Status),
		CreatedAt:            auction.CreatedAt,
		EndedAt:              endedAt,
		RefundsProcessed:     auction.RefundsProcessed,
	}
}

func convertRound(round *entity.Round) model.Round {
	return model.Round{
		ID:        round.ID,
		AuctionID: round.AuctionID,
		Number:    round.Number,
		Status:    string(round.Status),
		StartTime: round.StartTime,
		EndTime:   round.EndTime,
	}
}

func convertBet(bet *entity.Bet) model.Bet {
	return model.Bet{
		ID:        bet.ID,
		UserID:    bet.UserID,
		RoundID:   bet.RoundID,
		Amount:    bet.Amount,
		Version:   bet.Version,
		CreatedAt: bet.CreatedAt,
	}
}

func convertWinner(winner *entity.Winner) model.Winner {
	return model.Winner{
		ID:          winner.ID,
		UserID:      winner.UserID,
		RoundID:     winner.RoundID,
		BetID:       winner.BetID,
		Rank:        winner.Rank,
		PrizeAmount: winner.PrizeAmount,
	}
}

func convertTransaction(tx *entity.Transaction) model.Transaction {
	return model.Transaction{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Type:        string(tx.Type),
		Amount:      tx.Amount,
		RoundID:     tx.RoundID.String,
		BetID:       tx.BetID.String,
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt,
	}
}

func convertUser(user *entity.User) model.User {
	return model.User{
		ID:           user.ID,
		Name:         user.Name,
		Balance:      user.Balance,
		RewardPoints: user.RewardPoints,
	}
}
