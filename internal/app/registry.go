package app

import (
	"database/sql"

	"github.com/OlegKumachev/kiout-test-backend/internal/auth"
	"github.com/OlegKumachev/kiout-test-backend/internal/bootstrap"
	"github.com/OlegKumachev/kiout-test-backend/internal/config"
	"github.com/OlegKumachev/kiout-test-backend/internal/messaging/kafka"
	"github.com/OlegKumachev/kiout-test-backend/internal/middleware"
	"github.com/OlegKumachev/kiout-test-backend/internal/rbac"
	"github.com/OlegKumachev/kiout-test-backend/internal/rbac/infra"
	"github.com/OlegKumachev/kiout-test-backend/internal/user"
	"github.com/OlegKumachev/kiout-test-backend/internal/worker"
	"github.com/OlegKumachev/kiout-test-backend/internal/workerimport"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	cfg *config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	audit bootstrap.AuditLogger,
) error {
	logger := zap.L()

	// --- Repositories ---
	rbacRepo := rbac.NewRepository(gormDB)
	userRepo := user.NewRepository(gormDB)
	workerRepo := worker.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer()
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(rbacRepo, enforcer, logger)

	// --- Services ---
	authService := auth.NewService(userRepo, cfg.Auth)
	userService := user.NewService(userRepo)
	workerService := worker.NewService(db, workerRepo, outboxRepo, rdb,
		worker.WithLogger(logger),
		worker.WithListTTL(cfg.Redis.ListTTL),
	)

	pipelineOpts := []workerimport.PipelineOption{workerimport.WithPipelineLogger(logger)}
	if cfg.Import.FallbackCreator {
		pipelineOpts = append(pipelineOpts, workerimport.WithFallbackCreator(userService))
	}
	importService := workerimport.NewService(
		db,
		workerimport.NewPipeline(workerService, pipelineOpts...),
		workerService,
		outboxRepo,
		audit,
		workerimport.WithLogger(logger),
	)

	// --- Handlers ---
	authHandler := auth.NewHandler(authService, cfg.Auth, cfg.IsProduction(), logger)
	userHandler := user.NewHandler(userService, logger)
	workerHandler := worker.NewHandler(workerService, logger)
	importHandler := workerimport.NewHandler(importService, rdb, cfg.Import.MaxFileBytes, logger)
	rbacHandler := rbac.NewHandler(rbacService)

	// --- Routes Registration ---
	router.Use(middleware.RequestID())

	api := router.Group("/api/v1")
	{
		auth.RegisterRoutes(api, authHandler, cfg.Auth.JWTSecret)
		user.RegisterRoutes(api, userHandler, rbacService, cfg.Auth.JWTSecret, logger)
		workerimport.RegisterRoutes(api, importHandler, rbacService, rdb, cfg.Auth.JWTSecret, logger)
		worker.RegisterRoutes(api, workerHandler, rbacService, cfg.Auth.JWTSecret, logger)
		rbac.RegisterRoutes(api, rbacHandler, cfg.Auth.JWTSecret)
	}

	return nil
}
