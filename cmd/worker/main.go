package main

import (
	"github.com/OlegKumachev/kiout-test-backend/internal/app"
	"github.com/OlegKumachev/kiout-test-backend/internal/bootstrap"
	"github.com/OlegKumachev/kiout-test-backend/internal/config"

	"go.uber.org/zap"
)

func main() {
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

	if err := app.RunWorker(cfg); err != nil {
		logger.Fatal("run worker failed", zap.Error(err))
	}
}
