package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	app := cli.NewApp()
	app.Action = cli.ShowAppHelp
	app.Name = "AuctionX"
	app.Usage = ""
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path of the configuration file",
			EnvVars: []string{"CONFIG_PATH"},
		},
	}
	app.Commands = []*cli.Command{
		{
			Action:      server.startApi,
			Name:        "api",
			Usage:       "Start the api service",
			Category:    "Api",
			Description: `The main service with all auction, bidding, and ledger apis.`,
		},
		{
			Action:      server.startCron,
			Name:        "cron",
			Usage:       "Start the scheduler",
			Category:    "Worker",
			Description: `Closes expired rounds, opens the next one, and hands ended rounds to settlement.`,
		},
		{
			Action:      server.startWorker,
			Name:        "worker",
			Usage:       "Start the settlement worker",
			Category:    "Worker",
			Description: `Consumes settlement and refund jobs from the message queue.`,
		},
		{
			Action:      server.migrate,
			Name:        "migrate",
			Usage:       "Migrate the database schema",
			Category:    "Database",
			Description: `Creates or updates all tables of this service.`,
		},
	}

	s.app = app
}
