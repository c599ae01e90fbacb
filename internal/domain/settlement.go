package domain

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/auctionx-lab/backend/internal/common"
	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/internal/model"
	"github.com/auctionx-lab/backend/internal/repository"
	"github.com/auctionx-lab/backend/pkg/errorx"
	"github.com/auctionx-lab/backend/pkg/xcontext"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type SettlementDomain interface {
	// ProcessRoundWinners settles an ended round: records the top bets as
	// winners, pays prizes, and carries losing stakes to the next round.
	// Safe to run more than once for the same round.
	ProcessRoundWinners(ctx context.Context, req *model.ProcessRoundWinnersRequest) (*model.ProcessRoundWinnersResponse, error)

	// ProcessRefunds returns every non-winning stake of an ended auction to
	// user balances. The pass runs at most once per auction.
	ProcessRefunds(ctx context.Context, req *model.ProcessRefundsRequest) (*model.ProcessRefundsResponse, error)
}

type settlementDomain struct {
	auctionRepo  repository.AuctionRepository
	roundRepo    repository.RoundRepository
	betRepo      repository.BetRepository
	winnerRepo   repository.WinnerRepository
	ledgerDomain LedgerDomain
}

func NewSettlementDomain(
	auctionRepo repository.AuctionRepository,
	roundRepo repository.RoundRepository,
	betRepo repository.BetRepository,
	winnerRepo repository.WinnerRepository,
	ledgerDomain LedgerDomain,
) *settlementDomain {
	return &settlementDomain{
		auctionRepo:  auctionRepo,
		roundRepo:    roundRepo,
		betRepo:      betRepo,
		winnerRepo:   winnerRepo,
		ledgerDomain: ledgerDomain,
	}
}

func (d *settlementDomain) ProcessRoundWinners(
	ctx context.Context, req *model.ProcessRoundWinnersRequest,
) (*model.ProcessRoundWinnersResponse, error) {
	round, err := d.roundRepo.GetByID(ctx, req.RoundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found round")
		}

		xcontext.Logger(ctx).Errorf("Cannot get round: %v", err)
		return nil, errorx.Unknown
	}

	if round.Status != entity.RoundEnded {
		return nil, errorx.New(errorx.Conflict, "Round is not ended yet")
	}

	auction, err := d.auctionRepo.GetByID(ctx, round.AuctionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found auction")
		}

		xcontext.Logger(ctx).Errorf("Cannot get auction: %v", err)
		return nil, errorx.Unknown
	}

	bets, err := d.betRepo.GetByRoundID(ctx, round.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get bets of round: %v", err)
		return nil, errorx.Unknown
	}

	// The full winner snapshot is taken before any stake moves so the
	// ranking cannot observe carried-forward amounts.
	ranked := rankBets(bets, auction.WinnersPerRound)

	resp := &model.ProcessRoundWinnersResponse{Winners: []model.Winner{}}
	winnerUsers := map[string]bool{}
	for _, rb := range ranked {
		winnerUsers[rb.Bet.UserID] = true

		winner, err := d.settleWinner(ctx, auction, round, rb)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot settle winner %s of round %s: %v",
				rb.Bet.UserID, round.ID, err)
			resp.Errors++
			continue
		}

		resp.Winners = append(resp.Winners, convertWinner(winner))
	}

	nextRoundID, err := d.resolveNextRound(ctx, auction, req.NextRoundID)
	if err != nil {
		return nil, err
	}

	for i := range bets {
		bet := &bets[i]
		if winnerUsers[bet.UserID] {
			continue
		}

		if nextRoundID == "" {
			// No next round: the stake stays on the ended round and is
			// returned by the auction-end refund pass.
			continue
		}

		if err := d.carryForward(ctx, bet, nextRoundID); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot carry bet of %s forward: %v", bet.UserID, err)
			resp.Errors++
			continue
		}

		resp.CarriedForward++
	}

	return resp, nil
}

func (d *settlementDomain) settleWinner(
	ctx context.Context, auction *entity.Auction, round *entity.Round, rb rankedBet,
) (*entity.Winner, error) {
	winner := &entity.Winner{
		Base:        entity.Base{ID: uuid.NewString()},
		UserID:      rb.Bet.UserID,
		RoundID:     round.ID,
		BetID:       rb.Bet.ID,
		Rank:        rb.Rank,
		PrizeAmount: auction.PrizeAmount,
	}

	if err := d.winnerRepo.Create(ctx, winner); err != nil {
		if !repository.IsDuplicateKeyError(err) {
			return nil, err
		}

		// Already recorded by a previous run.
		existing, getErr := d.winnerRepo.GetByUserAndRound(ctx, rb.Bet.UserID, round.ID)
		if getErr != nil {
			return nil, getErr
		}
		winner = existing
	}

	_, err := d.ledgerDomain.Apply(ctx, ApplyInput{
		UserID:         winner.UserID,
		Type:           entity.TransactionPrize,
		Amount:         winner.PrizeAmount,
		RoundID:        round.ID,
		BetID:          winner.BetID,
		Description:    "Round prize",
		IdempotencyKey: common.PrizeIdempotencyKey(round.ID, winner.UserID, winner.Rank),
	})
	if err != nil {
		return nil, err
	}

	return winner, nil
}

func (d *settlementDomain) resolveNextRound(
	ctx context.Context, auction *entity.Auction, explicit string,
) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	next, err := d.roundRepo.GetActiveByAuctionID(ctx, auction.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}

		xcontext.Logger(ctx).Errorf("Cannot get active round: %v", err)
		return "", errorx.Unknown
	}

	return next.ID, nil
}

func (d *settlementDomain) carryForward(ctx context.Context, bet *entity.Bet, nextRoundID string) error {
	dest, err := d.betRepo.GetByUserAndRound(ctx, bet.UserID, nextRoundID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err := d.betRepo.MoveToRound(ctx, bet.ID, nextRoundID)
		if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
			// Not-found means the bet was already moved by a previous run.
			return nil
		}

		if !repository.IsDuplicateKeyError(err) {
			return err
		}

		// The user placed a bet on the next round concurrently, merge.
		dest, err = d.betRepo.GetByUserAndRound(ctx, bet.UserID, nextRoundID)
		if err != nil {
			return err
		}
	}

	return d.mergeBets(ctx, bet, dest)
}

// mergeBets folds the carried stake into the user's existing bet on the next
// round and removes the source row.
func (d *settlementDomain) mergeBets(ctx context.Context, src, dest *entity.Bet) error {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.betRepo.AddAmount(ctx, dest.ID, src.Amount); err != nil {
		return err
	}

	if err := d.betRepo.Delete(ctx, src.ID); err != nil {
		return err
	}

	xcontext.WithCommitDBTransaction(ctx)
	return nil
}

func (d *settlementDomain) ProcessRefunds(
	ctx context.Context, req *model.ProcessRefundsRequest,
) (*model.ProcessRefundsResponse, error) {
	auction, err := d.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found auction")
		}

		xcontext.Logger(ctx).Errorf("Cannot get auction: %v", err)
		return nil, errorx.Unknown
	}

	if auction.Status != entity.AuctionEnded {
		return nil, errorx.New(errorx.Conflict, "Auction is not ended yet")
	}

	if auction.RefundsProcessed {
		return &model.ProcessRefundsResponse{}, nil
	}

	totals, err := d.betRepo.GetTotalAmountPerUser(ctx, auction.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot total bets of auction: %v", err)
		return nil, errorx.Unknown
	}

	winnerIDs, err := d.winnerRepo.GetUserIDsByAuctionID(ctx, auction.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get winners of auction: %v", err)
		return nil, errorx.Unknown
	}

	winnerSet := map[string]bool{}
	for _, id := range winnerIDs {
		winnerSet[id] = true
	}

	pending := []repository.UserBetTotal{}
	for _, total := range totals {
		if !winnerSet[total.UserID] && total.Total > 0 {
			pending = append(pending, total)
		}
	}

	cfg := xcontext.Configs(ctx).Auction
	batchSize := cfg.RefundBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	var refunded, failed int64
	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, total := range pending[start:end] {
			total := total
			g.Go(func() error {
				_, err := d.ledgerDomain.Apply(gctx, ApplyInput{
					UserID:         total.UserID,
					Type:           entity.TransactionRefund,
					Amount:         total.Total,
					Description:    "Auction refund",
					IdempotencyKey: common.RefundIdempotencyKey(auction.ID, total.UserID),
				})
				if err != nil {
					xcontext.Logger(ctx).Errorf("Cannot refund user %s: %v", total.UserID, err)
					atomic.AddInt64(&failed, 1)
					return nil
				}

				atomic.AddInt64(&refunded, 1)
				return nil
			})
		}
		_ = g.Wait()

		if end < len(pending) && cfg.RefundBatchDelay > 0 {
			time.Sleep(cfg.RefundBatchDelay)
		}
	}

	// The flag records that the pass ran to completion, success or partial
	// failure, so it does not silently repeat. Per-user failures stay in the
	// response counts and remain retryable through their idempotency keys.
	if err := d.auctionRepo.MarkRefundsProcessed(ctx, auction.ID); err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot mark refunds as processed: %v", err)
	}

	return &model.ProcessRefundsResponse{
		Refunded: int(refunded),
		Errors:   int(failed),
	}, nil
}
