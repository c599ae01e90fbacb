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

type RoundDomain interface {
	CreateNext(ctx context.Context, req *model.CreateNextRoundRequest) (*model.CreateNextRoundResponse, error)
	EndRound(ctx context.Context, req *model.EndRoundRequest) (*model.EndRoundResponse, error)
	ExtendTime(ctx context.Context, req *model.ExtendRoundRequest) (*model.ExtendRoundResponse, error)
	GetCurrent(ctx context.Context, req *model.GetCurrentRoundRequest) (*model.GetCurrentRoundResponse, error)

	// CreateNextRound opens the next round of an active auction. It returns
	// nil without error when no round is due: the auction is not active, a
	// round is already running, or all rounds have been played.
	CreateNextRound(ctx context.Context, auction *entity.Auction) (*entity.Round, error)
}

type roundDomain struct {
	roundRepo   repository.RoundRepository
	auctionRepo repository.AuctionRepository
	redisClient xredis.Client
}

func NewRoundDomain(
	roundRepo repository.RoundRepository,
	auctionRepo repository.AuctionRepository,
	redisClient xredis.Client,
) *roundDomain {
	return &roundDomain{
		roundRepo:   roundRepo,
		auctionRepo: auctionRepo,
		redisClient: redisClient,
	}
}

func (d *roundDomain) CreateNext(
	ctx context.Context, req *model.CreateNextRoundRequest,
) (*model.CreateNextRoundResponse, error) {
	auction, err := d.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found auction")
		}

		xcontext.Logger(ctx).Errorf("Cannot get auction: %v", err)
		return nil, errorx.Unknown
	}

	round, err := d.CreateNextRound(ctx, auction)
	if err != nil {
		return nil, err
	}

	resp := &model.CreateNextRoundResponse{}
	if round != nil {
		converted := convertRound(round)
		resp.Round = &converted
	}

	return resp, nil
}

func (d *roundDomain) CreateNextRound(ctx context.Context, auction *entity.Auction) (*entity.Round, error) {
	if auction.Status != entity.AuctionActive {
		return nil, nil
	}

	if _, err := d.roundRepo.GetActiveByAuctionID(ctx, auction.ID); err == nil {
		return nil, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get active round: %v", err)
		return nil, errorx.Unknown
	}

	number := 1
	last, err := d.roundRepo.GetLastByAuctionID(ctx, auction.ID)
	if err == nil {
		number = last.Number + 1
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get last round: %v", err)
		return nil, errorx.Unknown
	}

	if number > auction.TotalRounds {
		return nil, nil
	}

	now := time.Now()
	round := &entity.Round{
		Base:      entity.Base{ID: uuid.NewString()},
		AuctionID: auction.ID,
		Number:    number,
		Status:    entity.RoundActive,
		StartTime: now,
		EndTime:   now.Add(auction.RoundDuration),
	}

	if err := d.roundRepo.Create(ctx, round); err != nil {
		if repository.IsDuplicateKeyError(err) {
			// Another creator won the race for this round number.
			return nil, nil
		}

		xcontext.Logger(ctx).Errorf("Cannot create round: %v", err)
		return nil, errorx.Unknown
	}

	d.invalidateCurrent(ctx)
	return round, nil
}

func (d *roundDomain) EndRound(ctx context.Context, req *model.EndRoundRequest) (*model.EndRoundResponse, error) {
	round, err := d.roundRepo.GetByID(ctx, req.RoundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found round")
		}

		xcontext.Logger(ctx).Errorf("Cannot get round: %v", err)
		return nil, errorx.Unknown
	}

	if round.Status == entity.RoundEnded {
		return &model.EndRoundResponse{Round: convertRound(round)}, nil
	}

	if err := d.roundRepo.End(ctx, round.ID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot end round: %v", err)
			return nil, errorx.Unknown
		}

		// The guarded update matched nothing, re-read to tell a
		// concurrent end from an unstartable round.
		round, err = d.roundRepo.GetByID(ctx, round.ID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot get round: %v", err)
			return nil, errorx.Unknown
		}

		if round.Status != entity.RoundEnded {
			return nil, errorx.New(errorx.Conflict, "Round is not active")
		}
	}

	round.Status = entity.RoundEnded
	d.invalidateCurrent(ctx)
	return &model.EndRoundResponse{Round: convertRound(round)}, nil
}

func (d *roundDomain) ExtendTime(ctx context.Context, req *model.ExtendRoundRequest) (*model.ExtendRoundResponse, error) {
	if req.DeltaMs <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Delta must be a positive number of milliseconds")
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
		return nil, errorx.New(errorx.Conflict, "Round is not active")
	}

	// Anchor at max(endTime, now) so extending an overdue round yields a
	// usable window instead of one already in the past.
	base := round.EndTime
	if now := time.Now(); now.After(base) {
		base = now
	}
	newEnd := base.Add(time.Duration(req.DeltaMs) * time.Millisecond)

	if err := d.roundRepo.ExtendEndTime(ctx, round.ID, newEnd); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.Conflict, "Round is not active")
		}

		xcontext.Logger(ctx).Errorf("Cannot extend round end time: %v", err)
		return nil, errorx.Unknown
	}

	round.EndTime = newEnd
	d.invalidateCurrent(ctx)
	return &model.ExtendRoundResponse{Round: convertRound(round)}, nil
}

func (d *roundDomain) GetCurrent(
	ctx context.Context, req *model.GetCurrentRoundRequest,
) (*model.GetCurrentRoundResponse, error) {
	if d.redisClient != nil {
		var cached model.Round
		if err := d.redisClient.GetObj(ctx, common.RedisKeyCurrentRound(), &cached); err == nil {
			return &model.GetCurrentRoundResponse{Round: cached}, nil
		}
	}

	auction, err := d.auctionRepo.GetCurrentActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "No active auction")
		}

		xcontext.Logger(ctx).Errorf("Cannot get active auction: %v", err)
		return nil, errorx.Unknown
	}

	round, err := d.roundRepo.GetActiveByAuctionID(ctx, auction.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "No active round")
		}

		xcontext.Logger(ctx).Errorf("Cannot get active round: %v", err)
		return nil, errorx.Unknown
	}

	converted := convertRound(round)
	if d.redisClient != nil {
		ttl := xcontext.Configs(ctx).Auction.CurrentCacheTTL
		if err := d.redisClient.SetObj(ctx, common.RedisKeyCurrentRound(), converted, ttl); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot cache current round: %v", err)
		}
	}

	return &model.GetCurrentRoundResponse{Round: converted}, nil
}

func (d *roundDomain) invalidateCurrent(ctx context.Context) {
	if d.redisClient == nil {
		return
	}

	if err := d.redisClient.Del(ctx, common.RedisKeyCurrentRound()); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot invalidate current round cache: %v", err)
	}
}
