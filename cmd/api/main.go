package main

import (
	"github.com/OlegKumachev/kiout-test-backend/internal/app"
	"github.com/OlegKumachev/kiout-test-backend/internal/bootstrap"
	"github.com/OlegKumachev/kiout-test-backend/internal/config"
	"github.com/OlegKumachev/kiout-test-backend/internal/shared/apperror"

	"github.com/gin-gonic/gin"
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

	apperror.Init()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	auditLogger := bootstrap.NewStdoutAuditLogger()

	// build dependency + routes
	if err := app.BuildApp(r, cfg, auditLogger); err != nil {
		logger.Fatal("build app failed", zap.Error(err))
	}

	if err := bootstrap.StartHTTPServer(r, cfg.HTTP, auditLogger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}
