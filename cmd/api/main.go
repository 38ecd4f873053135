package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"content-api/internal/bootstrap"
	"content-api/internal/core/config"
	"content-api/internal/core/database"
	"content-api/internal/core/server"
	"content-api/internal/service"
	"content-api/internal/transport/http/handler"
	"content-api/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))
	log, cleanup := bootstrap.Logger(cfg)
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.DB(cfg, log)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	blobs, err := bootstrap.Blobs(ctx, cfg)
	if err != nil {
		log.Fatal("blob store", zap.Error(err))
	}
	log.Info("blob store ready", zap.String("driver", cfg.Blob.Driver), zap.Strings("containers", cfg.Blob.Containers))

	users, articles, closeCache, err := bootstrap.Repos(ctx, cfg, db, log)
	if err != nil {
		log.Fatal("cache", zap.Error(err))
	}
	defer closeCache()

	coord := service.NewCoordinator(users, articles, blobs, cfg.Blob.ArticleAssets, log)
	reg := (&router.Registry{}).Register(
		handler.NewUserHandler(coord),
		handler.NewArticleHandler(coord),
	)
	r := router.NewAPIEngine(log, bootstrap.RouterOptions(cfg, bootstrap.Checks(db)), reg)

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("content api starting",
		zap.String("addr", addr),
		zap.String("health", baseURL+"/health"),
		zap.String("api", baseURL+"/api"),
	)

	if err := server.Run(ctx, srv, log, 10*time.Second); err != nil {
		log.Error("content api stopped with error", zap.Error(err))
	}
}
