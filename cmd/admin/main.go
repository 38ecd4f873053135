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
	"content-api/internal/repo"
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

	blobs, err := bootstrap.Blobs(ctx, cfg)
	if err != nil {
		log.Fatal("blob store", zap.Error(err))
	}

	// the sweep must see committed rows, so it reads past the cache
	sweeper := service.NewSweeper(
		repo.NewArticleRepo(db),
		blobs,
		cfg.Blob.ArticleAssets,
		time.Duration(cfg.Sweep.GraceMin)*time.Minute,
		log,
	)
	reg := (&router.Registry{}).Register(handler.NewAdminHandler(sweeper))
	r := router.NewAdminEngine(log, bootstrap.RouterOptions(cfg, bootstrap.Checks(db)), reg)

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 5*time.Second, 5*time.Minute, 60*time.Second)

	host4human := cfg.App.Admin.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("health", baseURL+"/health"),
		zap.String("orphans", baseURL+"/admin/v1/blobs/orphans"),
	)

	if err := server.Run(ctx, srv, log, 10*time.Second); err != nil {
		log.Error("admin api stopped with error", zap.Error(err))
	}
}
