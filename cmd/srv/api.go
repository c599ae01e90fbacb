package main

import (
	"fmt"
	"net/http"

	"github.com/auctionx-lab/backend/pkg/router"
	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(ct *cli.Context) error {
	s.loadConfig(ct)
	s.loadLogger()
	s.loadDatabase()
	s.loadRedis(s.baseContext())
	s.loadPublisher()
	s.loadRepos()
	s.loadDomains()
	s.loadRouter()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", s.configs.ApiServer.Port),
		Handler: s.router.Handler(),
	}

	s.logger.Infof("Starting server on port %s", s.configs.ApiServer.Port)
	if err := s.server.ListenAndServe(); err != nil {
		panic(err)
	}

	return nil
}

func (s *srv) loadRouter() {
	s.router = router.New(s.db, *s.configs, s.logger)

	// User API
	router.POST(s.router, "/createUser", s.userDomain.Create)
	router.GET(s.router, "/getMe", s.userDomain.GetMe)

	// Ledger API
	router.POST(s.router, "/deposit", s.ledgerDomain.Deposit)
	router.GET(s.router, "/getMyTransactions", s.ledgerDomain.GetMyTransactions)

	// Auction API
	router.POST(s.router, "/createAuction", s.auctionDomain.Create)
	router.POST(s.router, "/startAuction", s.auctionDomain.Start)
	router.POST(s.router, "/endAuction", s.auctionDomain.End)
	router.POST(s.router, "/updateAuction", s.auctionDomain.Update)
	router.GET(s.router, "/getCurrentAuction", s.auctionDomain.GetCurrent)

	// Round API
	router.POST(s.router, "/createNextRound", s.roundDomain.CreateNext)
	router.POST(s.router, "/endRound", s.roundDomain.EndRound)
	router.POST(s.router, "/extendRound", s.roundDomain.ExtendTime)
	router.GET(s.router, "/getCurrentRound", s.roundDomain.GetCurrent)

	// Bet API
	router.POST(s.router, "/placeBet", s.betDomain.PlaceBet)
	router.GET(s.router, "/getMyBet", s.betDomain.GetUserBet)
	router.GET(s.router, "/getLeaderboard", s.betDomain.GetLeaderboard)

	// Settlement API, normally driven by the scheduler and the worker.
	// Exposed for operational intervention only.
	router.POST(s.router, "/processRoundWinners", s.settlementDomain.ProcessRoundWinners)
	router.POST(s.router, "/processRefunds", s.settlementDomain.ProcessRefunds)
}
