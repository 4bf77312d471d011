package main

import (
	"flag"

	"github.com/OlegKumachev/kiout-test-backend/internal/bootstrap"
	"github.com/OlegKumachev/kiout-test-backend/internal/config"
	"github.com/OlegKumachev/kiout-test-backend/internal/migrations"

	"go.uber.org/zap"
)

func main() {
	flag.Parse()

	action := "up"
	if flag.NArg() > 0 {
		action = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := bootstrap.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := migrations.Run(action, cfg.Database.URL()); err != nil {
		logger.Fatal("migration failed", zap.String("action", action), zap.Error(err))
	}
}
