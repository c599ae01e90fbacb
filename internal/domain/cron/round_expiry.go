package cron

import (
	"context"
	"errors"
	"time"

	"github.com/auctionx-lab/backend/internal/domain"
	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/internal/model"
	"github.com/auctionx-lab/backend/internal/repository"
	"github.com/auctionx-lab/backend/pkg/pubsub"
	"github.com/auctionx-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// RoundExpiryCronJob drives the auction clock. Every tick it closes overdue
// rounds, opens the next one, hands the ended round to settlement, and ends
// the auction after its final round. It also repairs auctions that lost
// their active round or their refund pass to a crash.
type RoundExpiryCronJob struct {
	interval time.Duration

	auctionRepo repository.AuctionRepository
	roundRepo   repository.RoundRepository

	roundDomain      domain.RoundDomain
	auctionDomain    domain.AuctionDomain
	settlementDomain domain.SettlementDomain

	publisher pubsub.Publisher
}

func NewRoundExpiryCronJob(
	interval time.Duration,
	auctionRepo repository.AuctionRepository,
	roundRepo repository.RoundRepository,
	roundDomain domain.RoundDomain,
	auctionDomain domain.AuctionDomain,
	settlementDomain domain.SettlementDomain,
	publisher pubsub.Publisher,
) *RoundExpiryCronJob {
	return &RoundExpiryCronJob{
		interval:         interval,
		auctionRepo:      auctionRepo,
		roundRepo:        roundRepo,
		roundDomain:      roundDomain,
		auctionDomain:    auctionDomain,
		settlementDomain: settlementDomain,
		publisher:        publisher,
	}
}

func (job *RoundExpiryCronJob) Do(ctx context.Context) {
	job.closeExpiredRounds(ctx)
	job.repairActiveAuction(ctx)
	job.retryPendingRefunds(ctx)
}

func (job *RoundExpiryCronJob) closeExpiredRounds(ctx context.Context) {
	expired, err := job.roundRepo.GetExpiredActive(ctx, time.Now())
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get expired rounds: %v", err)
		return
	}

	for i := range expired {
		round := &expired[i]

		auction, err := job.auctionRepo.GetByID(ctx, round.AuctionID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot get auction of round %s: %v", round.ID, err)
			continue
		}

		if _, err := job.roundDomain.EndRound(ctx, &model.EndRoundRequest{RoundID: round.ID}); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot end round %s: %v", round.ID, err)
			continue
		}

		isLast := round.Number >= auction.TotalRounds

		nextRoundID := ""
		if !isLast {
			next, err := job.roundDomain.CreateNextRound(ctx, auction)
			if err != nil {
				xcontext.Logger(ctx).Errorf("Cannot create next round: %v", err)
			} else if next != nil {
				nextRoundID = next.ID
			}
		}

		if isLast {
			// Settle synchronously so winners are on record before the
			// auction-end refund pass can run.
			if _, err := job.settlementDomain.ProcessRoundWinners(ctx, &model.ProcessRoundWinnersRequest{
				RoundID: round.ID,
			}); err != nil {
				xcontext.Logger(ctx).Errorf("Cannot settle final round %s: %v", round.ID, err)
				continue
			}

			if _, err := job.auctionDomain.End(ctx, &model.EndAuctionRequest{AuctionID: auction.ID}); err != nil {
				xcontext.Logger(ctx).Errorf("Cannot end auction %s: %v", auction.ID, err)
			}
			continue
		}

		settleJob := model.SettlementJob{
			Type:        model.JobTypeProcessRoundWinners,
			RoundID:     round.ID,
			NextRoundID: nextRoundID,
		}
		if err := domain.PublishSettlementJob(ctx, job.publisher, settleJob); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot publish settlement job, running inline: %v", err)
			if _, err := job.settlementDomain.ProcessRoundWinners(ctx, &model.ProcessRoundWinnersRequest{
				RoundID:     round.ID,
				NextRoundID: nextRoundID,
			}); err != nil {
				xcontext.Logger(ctx).Errorf("Cannot settle round %s: %v", round.ID, err)
			}
		}
	}
}

// repairActiveAuction recovers an active auction that has no running round,
// which happens if the process crashed between ending one round and opening
// the next.
func (job *RoundExpiryCronJob) repairActiveAuction(ctx context.Context) {
	auction, err := job.auctionRepo.GetCurrentActive(ctx)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot get active auction: %v", err)
		}
		return
	}

	if _, err := job.roundRepo.GetActiveByAuctionID(ctx, auction.ID); err == nil {
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get active round: %v", err)
		return
	}

	last, err := job.roundRepo.GetLastByAuctionID(ctx, auction.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get last round: %v", err)
		return
	}

	if last != nil && last.Number >= auction.TotalRounds && last.Status == entity.RoundEnded {
		if _, err := job.auctionDomain.End(ctx, &model.EndAuctionRequest{AuctionID: auction.ID}); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot end finished auction %s: %v", auction.ID, err)
		}
		return
	}

	if _, err := job.roundDomain.CreateNextRound(ctx, auction); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot repair auction %s: %v", auction.ID, err)
	}
}

// retryPendingRefunds re-runs the refund pass for ended auctions whose
// refund job never completed.
func (job *RoundExpiryCronJob) retryPendingRefunds(ctx context.Context) {
	auctions, err := job.auctionRepo.GetEndedUnrefunded(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get unrefunded auctions: %v", err)
		return
	}

	for i := range auctions {
		if _, err := job.settlementDomain.ProcessRefunds(ctx, &model.ProcessRefundsRequest{
			AuctionID: auctions[i].ID,
		}); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot refund auction %s: %v", auctions[i].ID, err)
		}
	}
}

func (job *RoundExpiryCronJob) RunNow() bool {
	return true
}

func (job *RoundExpiryCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}
