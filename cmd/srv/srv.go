package main

import (
	"context"
	"net/http"

	"github.com/auctionx-lab/backend/config"
	"github.com/auctionx-lab/backend/internal/domain"
	"github.com/auctionx-lab/backend/internal/domain/cron"
	"github.com/auctionx-lab/backend/internal/repository"
	"github.com/auctionx-lab/backend/pkg/kafka"
	"github.com/auctionx-lab/backend/pkg/logger"
	"github.com/auctionx-lab/backend/pkg/pubsub"
	"github.com/auctionx-lab/backend/pkg/router"
	"github.com/auctionx-lab/backend/pkg/xcontext"
	"github.com/auctionx-lab/backend/pkg/xredis"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type srv struct {
	app *cli.App

	configs *config.Configs
	logger  logger.Logger
	db      *gorm.DB

	redisClient xredis.Client
	publisher   pubsub.Publisher
	subscriber  pubsub.Subscriber

	userRepo        repository.UserRepository
	auctionRepo     repository.AuctionRepository
	roundRepo       repository.RoundRepository
	betRepo         repository.BetRepository
	transactionRepo repository.TransactionRepository
	winnerRepo      repository.WinnerRepository
	idempotencyRepo repository.IdempotencyRepository

	userDomain       domain.UserDomain
	ledgerDomain     domain.LedgerDomain
	betDomain        domain.BetDomain
	roundDomain      domain.RoundDomain
	auctionDomain    domain.AuctionDomain
	settlementDomain domain.SettlementDomain

	cronManager *cron.CronJobManager

	router *router.Router
	server *http.Server
}

func (s *srv) loadConfig(ct *cli.Context) {
	configs, err := config.Load(ct.String("config"))
	if err != nil {
		panic(err)
	}

	s.configs = &configs
}

func (s *srv) loadLogger() {
	level := logger.INFO
	if s.configs.Env == "local" {
		level = logger.DEBUG
	}

	s.logger = logger.NewLogger(level)
}

func (s *srv) loadDatabase() {
	var err error
	s.db, err = gorm.Open(mysql.Open(s.configs.Database.ConnectionString()), &gorm.Config{})
	if err != nil {
		panic(err)
	}
}

// baseContext carries everything domains resolve through xcontext when a
// call does not come in through the router.
func (s *srv) baseContext() context.Context {
	ctx := xcontext.WithDB(context.Background(), s.db)
	ctx = xcontext.WithConfigs(ctx, *s.configs)
	ctx = xcontext.WithLogger(ctx, s.logger)
	return ctx
}

func (s *srv) loadRedis(ctx context.Context) {
	redisClient, err := xredis.NewClient(ctx)
	if err != nil {
		// The cache is an accelerator only, run without it.
		s.logger.Warnf("Cannot connect to redis, caching is disabled: %v", err)
		return
	}

	s.redisClient = redisClient
}

func (s *srv) loadPublisher() {
	publisher, err := kafka.NewPublisher("auctionx", []string{s.configs.Kafka.Addr})
	if err != nil {
		// Jobs are run inline when the broker is unreachable.
		s.logger.Warnf("Cannot connect to kafka, jobs will run inline: %v", err)
		return
	}

	s.publisher = publisher
}

func (s *srv) loadRepos() {
	s.userRepo = repository.NewUserRepository()
	s.auctionRepo = repository.NewAuctionRepository()
	s.roundRepo = repository.NewRoundRepository()
	s.betRepo = repository.NewBetRepository()
	s.transactionRepo = repository.NewTransactionRepository()
	s.winnerRepo = repository.NewWinnerRepository()
	s.idempotencyRepo = repository.NewIdempotencyRepository()
}

func (s *srv) loadDomains() {
	s.userDomain = domain.NewUserDomain(s.userRepo)
	s.ledgerDomain = domain.NewLedgerDomain(s.userRepo, s.transactionRepo, s.idempotencyRepo)
	s.betDomain = domain.NewBetDomain(
		s.betRepo, s.roundRepo, s.idempotencyRepo, s.ledgerDomain, s.redisClient)
	s.roundDomain = domain.NewRoundDomain(s.roundRepo, s.auctionRepo, s.redisClient)
	s.settlementDomain = domain.NewSettlementDomain(
		s.auctionRepo, s.roundRepo, s.betRepo, s.winnerRepo, s.ledgerDomain)
	s.auctionDomain = domain.NewAuctionDomain(
		s.auctionRepo, s.roundRepo, s.roundDomain, s.settlementDomain, s.publisher, s.redisClient)
}
