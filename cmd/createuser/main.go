package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/OlegKumachev/kiout-test-backend/internal/bootstrap"
	"github.com/OlegKumachev/kiout-test-backend/internal/config"
	"github.com/OlegKumachev/kiout-test-backend/internal/shared/connection"
	"github.com/OlegKumachev/kiout-test-backend/internal/user"

	"go.uber.org/zap"
)

func main() {
	var (
		username = flag.String("username", "", "login name")
		email    = flag.String("email", "", "email address")
		password = flag.String("password", "", "plain password, hashed before storing")
		staff    = flag.Bool("staff", false, "grant staff (write) access")
	)
	flag.Parse()
	if *username == "" {
		flag.Usage()
		os.Exit(2)
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

	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database, cfg.Database.MaxRetries)
	if err != nil {
		logger.Fatal("connect database failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc := user.NewService(user.NewRepository(gormDB))
	created, err := svc.Create(ctx, user.CreateUserRequest{
		Username: *username,
		Email:    *email,
		Password: *password,
		IsStaff:  *staff,
	})
	if err != nil {
		logger.Fatal("create user failed", zap.Error(err))
	}

	logger.Info("user created",
		zap.String("id", created.ID),
		zap.String("username", created.Username),
		zap.Bool("is_staff", created.IsStaff),
	)
}
