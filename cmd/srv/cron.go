package main

import (
	"github.com/auctionx-lab/backend/internal/domain/cron"
	"github.com/urfave/cli/v2"
)

func (s *srv) startCron(ct *cli.Context) error {
	s.loadConfig(ct)
	s.loadLogger()
	s.loadDatabase()
	s.loadRedis(s.baseContext())
	s.loadPublisher()
	s.loadRepos()
	s.loadDomains()

	s.cronManager = cron.NewCronJobManager()
	s.cronManager.Register(cron.NewRoundExpiryCronJob(
		s.configs.Auction.ScheduleInterval,
		s.auctionRepo,
		s.roundRepo,
		s.roundDomain,
		s.auctionDomain,
		s.settlementDomain,
		s.publisher,
	))

	s.cronManager.Start(s.baseContext())
	return nil
}
