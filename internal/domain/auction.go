package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/auctionx-lab/backend/internal/common"
	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/auctionx-lab/backend/internal/model"
	"github.com/auctionx-lab/backend/internal/repository"
	"github.com/auctionx-lab/backend/pkg/errorx"
	"github.com/auctionx-lab/backend/pkg/pubsub"
	"github.com/auctionx-lab/backend/pkg/xcontext"
	"github.com/auctionx-lab/backend/pkg/xredis"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuctionDomain interface {
	Create(ctx context.Context, req *model.CreateAuctionRequest) (*model.CreateAuctionResponse, error)
	Start(ctx context.Context, req *model.StartAuctionRequest) (*model.StartAuctionResponse, error)
	End(ctx context.Context, req *model.EndAuctionRequest) (*model.EndAuctionResponse, error)
	Update(ctx context.Context, req *model.UpdateAuctionRequest) (*model.UpdateAuctionResponse, error)
	GetCurrent(ctx context.Context, req *model.GetCurrentAuctionRequest) (*model.GetCurrentAuctionResponse, error)
}

type auctionDomain struct {
	auctionRepo      repository.AuctionRepository
	roundRepo        repository.RoundRepository
	roundDomain      RoundDomain
	settlementDomain SettlementDomain
	publisher        pubsub.Publisher
	redisClient      xredis.Client
}

func NewAuctionDomain(
	auctionRepo repository.AuctionRepository,
	roundRepo repository.RoundRepository,
	roundDomain RoundDomain,
	settlementDomain SettlementDomain,
	publisher pubsub.Publisher,
	redisClient xredis.Client,
) *auctionDomain {
	return &auctionDomain{
		auctionRepo:      auctionRepo,
		roundRepo:        roundRepo,
		roundDomain:      roundDomain,
		settlementDomain: settlementDomain,
		publisher:        publisher,
		redisClient:      redisClient,
	}
}

func (d *auctionDomain) Create(ctx context.Context, req *model.CreateAuctionRequest) (*model.CreateAuctionResponse, error) {
	if req.Name == "" {
		return nil, errorx.New(errorx.BadRequest, "Name must not be empty")
	}

	if req.PrizeAmount <= 0 || req.WinnersPerRound <= 0 ||
		req.TotalRounds <= 0 || req.RoundDurationMinutes <= 0 {
		return nil, errorx.New(errorx.BadRequest, "All auction numbers must be positive")
	}

	auction := &entity.Auction{
		Base:            entity.Base{ID: uuid.NewString()},
		Name:            req.Name,
		PrizeAmount:     req.PrizeAmount,
		WinnersPerRound: req.WinnersPerRound,
		TotalRounds:     req.TotalRounds,
		RoundDuration:   time.Duration(req.RoundDurationMinutes) * time.Minute,
		Status:          entity.AuctionDraft,
	}

	// The insert carries the single-in-progress check, so two concurrent
	// creates cannot both succeed.
	if err := d.auctionRepo.CreateIfNoneInProgress(ctx, auction); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.Conflict, "Another auction is already in progress")
		}

		xcontext.Logger(ctx).Errorf("Cannot create auction: %v", err)
		return nil, errorx.Unknown
	}

	d.invalidateCurrent(ctx)
	return &model.CreateAuctionResponse{Auction: convertAuction(auction)}, nil
}

func (d *auctionDomain) Start(ctx context.Context, req *model.StartAuctionRequest) (*model.StartAuctionResponse, error) {
	auction, err := d.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found auction")
		}

		xcontext.Logger(ctx).Errorf("Cannot get auction: %v", err)
		return nil, errorx.Unknown
	}

	if auction.Status != entity.AuctionDraft {
		return nil, errorx.New(errorx.Conflict, "Auction is not in draft")
	}

	err = d.auctionRepo.UpdateStatus(ctx, auction.ID, entity.AuctionDraft, entity.AuctionActive)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.Conflict, "Auction is not in draft")
		}

		xcontext.Logger(ctx).Errorf("Cannot start auction: %v", err)
		return nil, errorx.Unknown
	}

	auction.Status = entity.AuctionActive
	d.invalidateCurrent(ctx)

	// Open round 1 immediately. The scheduler repairs the auction if this
	// fails, so the error is not surfaced.
	if _, err := d.roundDomain.CreateNextRound(ctx, auction); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot create the first round: %v", err)
	}

	return &model.StartAuctionResponse{Auction: convertAuction(auction)}, nil
}

func (d *auctionDomain) End(ctx context.Context, req *model.EndAuctionRequest) (*model.EndAuctionResponse, error) {
	auction, err := d.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found auction")
		}

		xcontext.Logger(ctx).Errorf("Cannot get auction: %v", err)
		return nil, errorx.Unknown
	}

	if auction.Status == entity.AuctionEnded {
		return nil, errorx.New(errorx.Conflict, "Auction already ended")
	}

	endedAt := time.Now()
	if err := d.auctionRepo.SetEnded(ctx, auction.ID, endedAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.Conflict, "Auction already ended")
		}

		xcontext.Logger(ctx).Errorf("Cannot end auction: %v", err)
		return nil, errorx.Unknown
	}

	auction.Status = entity.AuctionEnded
	auction.EndedAt.Valid = true
	auction.EndedAt.Time = endedAt

	// Force-close any still-running round so no more bids are accepted.
	rounds, err := d.roundRepo.GetByAuctionID(ctx, auction.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot list rounds of ended auction: %v", err)
	} else {
		for _, round := range rounds {
			if round.Status != entity.RoundActive {
				continue
			}

			if err := d.roundRepo.End(ctx, round.ID); err != nil &&
				!errors.Is(err, gorm.ErrRecordNotFound) {
				xcontext.Logger(ctx).Errorf("Cannot end round %s: %v", round.ID, err)
			}
		}
	}

	d.invalidateCurrent(ctx)

	job := model.SettlementJob{Type: model.JobTypeProcessRefunds, AuctionID: auction.ID}
	if err := PublishSettlementJob(ctx, d.publisher, job); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot publish refund job, running inline: %v", err)
		if _, err := d.settlementDomain.ProcessRefunds(
			ctx, &model.ProcessRefundsRequest{AuctionID: auction.ID},
		); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot process refunds inline: %v", err)
		}
	}

	return &model.EndAuctionResponse{Auction: convertAuction(auction)}, nil
}

func (d *auctionDomain) Update(ctx context.Context, req *model.UpdateAuctionRequest) (*model.UpdateAuctionResponse, error) {
	auction, err := d.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found auction")
		}

		xcontext.Logger(ctx).Errorf("Cannot get auction: %v", err)
		return nil, errorx.Unknown
	}

	if auction.Status != entity.AuctionDraft {
		return nil, errorx.New(errorx.Conflict, "Only a draft auction can be updated")
	}

	if req.PrizeAmount < 0 || req.WinnersPerRound < 0 ||
		req.TotalRounds < 0 || req.RoundDurationMinutes < 0 {
		return nil, errorx.New(errorx.BadRequest, "All auction numbers must be positive")
	}

	updates := map[string]any{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.PrizeAmount > 0 {
		updates["prize_amount"] = req.PrizeAmount
	}
	if req.WinnersPerRound > 0 {
		updates["winners_per_round"] = req.WinnersPerRound
	}
	if req.TotalRounds > 0 {
		updates["total_rounds"] = req.TotalRounds
	}
	if req.RoundDurationMinutes > 0 {
		updates["round_duration"] = time.Duration(req.RoundDurationMinutes) * time.Minute
	}

	if len(updates) > 0 {
		if err := d.auctionRepo.UpdateDraft(ctx, auction.ID, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errorx.New(errorx.Conflict, "Only a draft auction can be updated")
			}

			xcontext.Logger(ctx).Errorf("Cannot update auction: %v", err)
			return nil, errorx.Unknown
		}

		auction, err = d.auctionRepo.GetByID(ctx, auction.ID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot get auction: %v", err)
			return nil, errorx.Unknown
		}
	}

	d.invalidateCurrent(ctx)
	return &model.UpdateAuctionResponse{Auction: convertAuction(auction)}, nil
}

func (d *auctionDomain) GetCurrent(
	ctx context.Context, req *model.GetCurrentAuctionRequest,
) (*model.GetCurrentAuctionResponse, error) {
	if d.redisClient != nil {
		var cached model.Auction
		if err := d.redisClient.GetObj(ctx, common.RedisKeyCurrentAuction(), &cached); err == nil {
			return &model.GetCurrentAuctionResponse{Auction: cached}, nil
		}
	}

	auction, err := d.auctionRepo.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "No current auction")
		}

		xcontext.Logger(ctx).Errorf("Cannot get current auction: %v", err)
		return nil, errorx.Unknown
	}

	converted := convertAuction(auction)
	if d.redisClient != nil {
		ttl := xcontext.Configs(ctx).Auction.CurrentCacheTTL
		if err := d.redisClient.SetObj(ctx, common.RedisKeyCurrentAuction(), converted, ttl); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot cache current auction: %v", err)
		}
	}

	return &model.GetCurrentAuctionResponse{Auction: converted}, nil
}

func (d *auctionDomain) invalidateCurrent(ctx context.Context) {
	if d.redisClient == nil {
		return
	}

	if err := d.redisClient.Del(ctx, common.RedisKeyCurrentAuction()); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot invalidate current auction cache: %v", err)
	}
}

// PublishSettlementJob puts a job on the settlement topic. Callers fall back
// to running the job inline when the broker is unavailable.
func PublishSettlementJob(ctx context.Context, publisher pubsub.Publisher, job model.SettlementJob) error {
	if publisher == nil {
		return errors.New("no publisher configured")
	}

	msg, err := json.Marshal(job)
	if err != nil {
		return err
	}

	topic := xcontext.Configs(ctx).Kafka.SettlementTopic
	return publisher.Publish(ctx, topic, &pubsub.Pack{
		Key: []byte(job.Type),
		Msg: msg,
	})
}
