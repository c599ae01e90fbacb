package main

import (
	"github.com/auctionx-lab/backend/internal/entity"
	"github.com/urfave/cli/v2"
)

func (s *srv) migrate(ct *cli.Context) error {
	s.loadConfig(ct)
	s.loadLogger()
	s.loadDatabase()

	if err := entity.MigrateTable(s.baseContext()); err != nil {
		return err
	}

	s.logger.Infof("Migration completed")
	return nil
}
