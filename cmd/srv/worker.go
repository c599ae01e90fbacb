package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/auctionx-lab/backend/internal/model"
	"github.com/auctionx-lab/backend/pkg/kafka"
	"github.com/auctionx-lab/backend/pkg/pubsub"
	"github.com/auctionx-lab/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startWorker(ct *cli.Context) error {
	s.loadConfig(ct)
	s.loadLogger()
	s.loadDatabase()
	s.loadRedis(s.baseContext())
	s.loadPublisher()
	s.loadRepos()
	s.loadDomains()

	subscriber, err := kafka.NewSubscriber(
		s.configs.Kafka.ConsumerGroup,
		[]string{s.configs.Kafka.Addr},
		[]string{s.configs.Kafka.SettlementTopic},
		s.handleSettlementJob,
	)
	if err != nil {
		panic(err)
	}

	s.subscriber = subscriber
	s.subscriber.Subscribe(s.baseContext())
	s.logger.Infof("Settlement worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return s.subscriber.Stop(s.baseContext())
}

func (s *srv) handleSettlementJob(ctx context.Context, pack *pubsub.Pack, t time.Time) {
	var job model.SettlementJob
	if err := json.Unmarshal(pack.Msg, &job); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot unmarshal settlement job: %v", err)
		return
	}

	switch job.Type {
	case model.JobTypeProcessRoundWinners:
		_, err := s.settlementDomain.ProcessRoundWinners(ctx, &model.ProcessRoundWinnersRequest{
			RoundID:     job.RoundID,
			NextRoundID: job.NextRoundID,
		})
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot settle round %s: %v", job.RoundID, err)
		}

	case model.JobTypeProcessRefunds:
		_, err := s.settlementDomain.ProcessRefunds(ctx, &model.ProcessRefundsRequest{
			AuctionID: job.AuctionID,
		})
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot refund auction %s: %v", job.AuctionID, err)
		}

	default:
		xcontext.Logger(ctx).Errorf("Unknown settlement job type %s", job.Type)
	}
}
