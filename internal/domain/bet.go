package domain

import (
	"context"
	"errors"
	"time"

	"github.com/auctionx-lab/backend/internal/common"
	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/internal/model"
	"github.com/auctionx-lab/backend/internal/repository"
	"github.com/auctionx-lab/backend/pkg/errorx"
	"github.com/auctionx-lab/backend/pkg/xcontext"
	"github.com/auctionx-lab/backend/pkg/xredis"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const opTypePlaceBet = "place_bet"

// errRetryPlacement signals that the optimistic insert or raise lost a race
// and the whole attempt must be replayed against fresh state.
var errRetryPlacement = errors.New("placement raced, retry")

type BetDomain interface {
	PlaceBet(ctx context.Context, req *model.PlaceBetRequest) (*model.PlaceBetResponse, error)
	GetUserBet(ctx context.Context, req *model.GetUserBetRequest) (*model.GetUserBetResponse, error)
	GetLeaderboard(ctx context.Context, req *model.GetLeaderboardRequest) (*model.GetLeaderboardResponse, error)
}

type betDomain struct {
	betRepo         repository.BetRepository
	roundRepo       repository.RoundRepository
	idempotencyRepo repository.IdempotencyRepository
	ledgerDomain    LedgerDomain
	redisClient     xredis.Client
}

func NewBetDomain(
	betRepo repository.BetRepository,
	roundRepo repository.RoundRepository,
	idempotencyRepo repository.IdempotencyRepository,
	ledgerDomain LedgerDomain,
	redisClient xredis.Client,
) *betDomain {
	return &betDomain{
		betRepo:         betRepo,
		roundRepo:       roundRepo,
		idempotencyRepo: idempotencyRepo,
		ledgerDomain:    ledgerDomain,
		redisClient:     redisClient,
	}
}

func (d *betDomain) PlaceBet(ctx context.Context, req *model.PlaceBetRequest) (*model.PlaceBetResponse, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, errorx.New(errorx.Unauthenticated, "Not authenticated")
	}

	if req.Amount <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Amount must be a positive number")
	}

	if req.IdempotencyKey != "" {
		// A retry of an already-applied placement is answered even after the
		// round has closed.
		if bet, ok, err := d.replayPlacement(ctx, req.IdempotencyKey); err != nil {
			return nil, err
		} else if ok {
			return &model.PlaceBetResponse{Bet: convertBet(bet)}, nil
		}
	}

	round, err := d.roundRepo.GetByID(ctx, req.RoundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found round")
		}

		xcontext.Logger(ctx).Errorf("Cannot get round: %v", err)
		return nil, errorx.Unknown
	}

	if round.Status != entity.RoundActive {
		return nil, errorx.New(errorx.Conflict, "Round is not accepting bids")
	}

	now := time.Now()
	d.extendForSniping(ctx, round, now)

	if now.Before(round.StartTime) || now.After(round.EndTime) {
		return nil, errorx.New(errorx.Conflict, "Round is not accepting bids")
	}

	if req.IdempotencyKey != "" {
		if bet, done, err := d.claimKey(ctx, req.IdempotencyKey); done {
			if err != nil {
				return nil, err
			}
			return &model.PlaceBetResponse{Bet: convertBet(bet)}, nil
		}
	}

	bet, err := d.placeWithRetry(ctx, userID, round, req)

	if req.IdempotencyKey != "" {
		if err != nil {
			if merr := d.idempotencyRepo.MarkFailed(
				ctx, req.IdempotencyKey, opTypePlaceBet, err.Error(),
			); merr != nil {
				xcontext.Logger(ctx).Errorf("Cannot mark idempotency record as failed: %v", merr)
			}
		} else {
			if merr := d.idempotencyRepo.MarkSucceeded(
				ctx, req.IdempotencyKey, opTypePlaceBet, bet.ID,
			); merr != nil {
				xcontext.Logger(ctx).Errorf("Cannot mark idempotency record as succeeded: %v", merr)
			}
		}
	}

	if err != nil {
		return nil, err
	}

	d.invalidateLeaderboard(ctx, round.ID)
	return &model.PlaceBetResponse{Bet: convertBet(bet)}, nil
}

// extendForSniping pushes out the end of the first round when a bid arrives
// inside the anti-sniping threshold. Later rounds keep their hard deadline so
// the auction stays bounded in time. The extension is anchored at
// max(endTime, now) and applies before the bid is checked against the window.
func (d *betDomain) extendForSniping(ctx context.Context, round *entity.Round, now time.Time) {
	if round.Number != 1 {
		return
	}

	cfg := xcontext.Configs(ctx).Auction
	if round.EndTime.Sub(now) > cfg.SnipingThreshold {
		return
	}

	newEnd := round.EndTime
	if now.After(newEnd) {
		newEnd = now
	}
	newEnd = newEnd.Add(cfg.SnipingExtension)

	if err := d.roundRepo.ExtendEndTime(ctx, round.ID, newEnd); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot extend round end time: %v", err)
		}
		return
	}

	round.EndTime = newEnd
}

func (d *betDomain) placeWithRetry(
	ctx context.Context, userID string, round *entity.Round, req *model.PlaceBetRequest,
) (*entity.Bet, error) {
	retryLimit := xcontext.Configs(ctx).Auction.RaiseRetryLimit

	var bet *entity.Bet
	var err error
	for attempt := 0; attempt <= retryLimit; attempt++ {
		bet, err = d.tryPlace(ctx, userID, round, req)
		if !errors.Is(err, errRetryPlacement) {
			break
		}
	}

	if errors.Is(err, errRetryPlacement) {
		return nil, errorx.New(errorx.Conflict, "Bet is being modified concurrently, try again")
	}

	return bet, err
}

func (d *betDomain) tryPlace(
	ctx context.Context, userID string, round *entity.Round, req *model.PlaceBetRequest,
) (*entity.Bet, error) {
	existing, err := d.betRepo.GetByUserAndRound(ctx, userID, round.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get bet: %v", err)
		return nil, errorx.Unknown
	}

	if existing == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return d.insertBet(ctx, userID, round, req)
	}

	return d.raiseBet(ctx, userID, round, req, existing)
}

func (d *betDomain) insertBet(
	ctx context.Context, userID string, round *entity.Round, req *model.PlaceBetRequest,
) (*entity.Bet, error) {
	bet := &entity.Bet{
		Base:    entity.Base{ID: uuid.NewString()},
		UserID:  userID,
		RoundID: round.ID,
		Amount:  req.Amount,
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if _, err := d.ledgerDomain.ApplyInTransaction(ctx, ApplyInput{
		UserID:         userID,
		Type:           entity.TransactionBet,
		Amount:         req.Amount,
		RoundID:        round.ID,
		BetID:          bet.ID,
		Description:    "Bet placed",
		IdempotencyKey: req.IdempotencyKey,
	}); err != nil {
		return nil, err
	}

	if err := d.betRepo.Create(ctx, bet); err != nil {
		if repository.IsDuplicateKeyError(err) {
			// Someone else inserted first, replay as a raise.
			return nil, errRetryPlacement
		}

		xcontext.Logger(ctx).Errorf("Cannot create bet: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)
	return bet, nil
}

func (d *betDomain) raiseBet(
	ctx context.Context, userID string, round *entity.Round,
	req *model.PlaceBetRequest, existing *entity.Bet,
) (*entity.Bet, error) {
	if req.Amount == existing.Amount && req.IdempotencyKey != "" {
		// Retry of an already-applied placement.
		return existing, nil
	}

	if req.Amount <= existing.Amount {
		return nil, errorx.New(errorx.BadRequest,
			"Bid amount must be greater than the current bid of %d", existing.Amount)
	}

	diff := req.Amount - existing.Amount

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if _, err := d.ledgerDomain.ApplyInTransaction(ctx, ApplyInput{
		UserID:         userID,
		Type:           entity.TransactionBet,
		Amount:         diff,
		RoundID:        round.ID,
		BetID:          existing.ID,
		Description:    "Bet raised",
		IdempotencyKey: req.IdempotencyKey,
	}); err != nil {
		return nil, err
	}

	if err := d.betRepo.UpdateAmount(ctx, existing.ID, req.Amount, existing.Version); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The version moved under us, replay against fresh state.
			return nil, errRetryPlacement
		}

		xcontext.Logger(ctx).Errorf("Cannot update bet amount: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)

	raised := *existing
	raised.Amount = req.Amount
	raised.Version = existing.Version + 1
	return &raised, nil
}

// replayPlacement answers a retry whose placement already succeeded. All
// other record states are resolved by claimKey once the bid has passed the
// round checks.
func (d *betDomain) replayPlacement(ctx context.Context, key string) (*entity.Bet, bool, error) {
	record, err := d.idempotencyRepo.Get(ctx, key, opTypePlaceBet)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}

		xcontext.Logger(ctx).Errorf("Cannot get idempotency record: %v", err)
		return nil, false, errorx.Unknown
	}

	if record.Status != entity.IdempotencySucceeded {
		return nil, false, nil
	}

	bet, err := d.betRepo.GetByID(ctx, record.ResultRef.String)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot load bet of replayed placement: %v", err)
		return nil, false, errorx.Unknown
	}

	return bet, true, nil
}

// claimKey resolves the placement idempotency record. When done is true the
// placement must not run: bet carries the previously created bet for a
// replay, err carries the verdict otherwise.
func (d *betDomain) claimKey(ctx context.Context, key string) (*entity.Bet, bool, error) {
	record, err := d.idempotencyRepo.Get(ctx, key, opTypePlaceBet)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot get idempotency record: %v", err)
			return nil, true, errorx.Unknown
		}

		createErr := d.idempotencyRepo.Create(ctx, &entity.IdempotencyRecord{
			Base:   entity.Base{ID: uuid.NewString()},
			Key:    key,
			OpType: opTypePlaceBet,
			Status: entity.IdempotencyPending,
		})
		if createErr != nil {
			if repository.IsDuplicateKeyError(createErr) {
				return nil, true, errorx.New(errorx.Conflict, "Another identical placement is in flight")
			}

			xcontext.Logger(ctx).Errorf("Cannot create idempotency record: %v", createErr)
			return nil, true, errorx.Unknown
		}

		return nil, false, nil
	}

	switch record.Status {
	case entity.IdempotencySucceeded:
		bet, err := d.betRepo.GetByID(ctx, record.ResultRef.String)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot load bet of replayed placement: %v", err)
			return nil, true, errorx.Unknown
		}
		return bet, true, nil

	case entity.IdempotencyPending:
		return nil, true, errorx.New(errorx.Conflict, "Another identical placement is in flight")

	case entity.IdempotencyFailed:
		if err := d.idempotencyRepo.Reopen(ctx, key, opTypePlaceBet); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, true, errorx.New(errorx.Conflict, "Another identical placement is in flight")
			}

			xcontext.Logger(ctx).Errorf("Cannot reopen idempotency record: %v", err)
			return nil, true, errorx.Unknown
		}
		return nil, false, nil

	default:
		xcontext.Logger(ctx).Errorf("Invalid idempotency record status %s", record.Status)
		return nil, true, errorx.Unknown
	}
}

func (d *betDomain) GetUserBet(ctx context.Context, req *model.GetUserBetRequest) (*model.GetUserBetResponse, error) {
	bet, err := d.betRepo.GetByUserAndRound(ctx, xcontext.RequestUserID(ctx), req.RoundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.GetUserBetResponse{}, nil
		}

		xcontext.Logger(ctx).Errorf("Cannot get bet: %v", err)
		return nil, errorx.Unknown
	}

	converted := convertBet(bet)
	return &model.GetUserBetResponse{Bet: &converted}, nil
}

func (d *betDomain) GetLeaderboard(
	ctx context.Context, req *model.GetLeaderboardRequest,
) (*model.GetLeaderboardResponse, error) {
	cfg := xcontext.Configs(ctx).Auction

	limit := req.Limit
	if limit <= 0 || limit > cfg.LeaderboardLimit {
		limit = cfg.LeaderboardLimit
	}

	if _, err := d.roundRepo.GetByID(ctx, req.RoundID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found round")
		}

		xcontext.Logger(ctx).Errorf("Cannot get round: %v", err)
		return nil, errorx.Unknown
	}

	entries, err := d.loadLeaderboard(ctx, req.RoundID, cfg.LeaderboardLimit, cfg.LeaderboardCacheTTL)
	if err != nil {
		return nil, err
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}

	return &model.GetLeaderboardResponse{Entries: entries}, nil
}

func (d *betDomain) loadLeaderboard(
	ctx context.Context, roundID string, limit int, ttl time.Duration,
) ([]model.LeaderboardEntry, error) {
	key := common.RedisKeyLeaderboard(roundID)

	if d.redisClient != nil {
		var cached []model.LeaderboardEntry
		if err := d.redisClient.GetObj(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	bets, err := d.betRepo.GetByRoundID(ctx, roundID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get bets of round: %v", err)
		return nil, errorx.Unknown
	}

	entries := []model.LeaderboardEntry{}
	for _, rb := range rankBets(bets, limit) {
		entries = append(entries, model.LeaderboardEntry{
			Rank:   rb.Rank,
			UserID: rb.Bet.UserID,
			Amount: rb.Bet.Amount,
		})
	}

	if d.redisClient != nil {
		if err := d.redisClient.SetObj(ctx, key, entries, ttl); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot cache leaderboard: %v", err)
		}
	}

	return entries, nil
}

func (d *betDomain) invalidateLeaderboard(ctx context.Context, roundID string) {
	if d.redisClient == nil {
		return
	}

	if err := d.redisClient.Del(ctx, common.RedisKeyLeaderboard(roundID)); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot invalidate leaderboard cache: %v", err)
	}
}
