// Package bootstrap builds the clients both binaries share from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"content-api/internal/blobstore"
	"content-api/internal/core/cache"
	"content-api/internal/core/config"
	"content-api/internal/core/database"
	"content-api/internal/core/logger"
	"content-api/internal/domain"
	"content-api/internal/repo"
	"content-api/internal/transport/http/router"
)

func Logger(cfg *config.Config) (*zap.Logger, func()) {
	if cfg.Log.File.Enable {
		return logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, logger.FileRotate{
			Filename:   cfg.Log.File.Filename,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		})
	}
	return logger.New(cfg.Log.Level, cfg.Log.JSON)
}

// DB opens the relational store and migrates the schema when configured.
func DB(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             l,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if cfg.DB.AutoMigrate {
		if err := repo.AutoMigrate(db); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}
	return db, nil
}

// Blobs opens the configured blob store and provisions its containers.
func Blobs(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	var (
		store blobstore.Store
		err   error
	)
	switch cfg.Blob.Driver {
	case "s3":
		store, err = blobstore.DialS3(ctx, blobstore.S3Options{
			Region:          cfg.Blob.S3.Region,
			Endpoint:        cfg.Blob.S3.Endpoint,
			AccessKeyID:     cfg.Blob.S3.AccessKeyID,
			SecretAccessKey: cfg.Blob.S3.SecretAccessKey,
			UsePathStyle:    cfg.Blob.S3.UsePathStyle,
		})
	case "local":
		store, err = blobstore.NewLocal(cfg.Blob.Local.Root)
	default:
		err = fmt.Errorf("unsupported blob driver %q", cfg.Blob.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := store.EnsureContainers(ctx, cfg.Blob.Containers...); err != nil {
		return nil, fmt.Errorf("ensure containers: %w", err)
	}
	return store, nil
}

// Repos wraps the gorm repositories in the redis read-through cache when it
// is enabled. The returned close func is a no-op without redis.
func Repos(ctx context.Context, cfg *config.Config, db *gorm.DB, l *zap.Logger) (domain.UserRepository, domain.ArticleRepository, func(), error) {
	var (
		users    domain.UserRepository    = repo.NewUserRepo(db)
		articles domain.ArticleRepository = repo.NewArticleRepo(db)
	)
	if !cfg.Redis.Enabled {
		return users, articles, func() {}, nil
	}
	c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, time.Duration(cfg.Redis.TTLSec)*time.Second)
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	l.Info("redis cache enabled", zap.String("addr", cfg.Redis.Addr))
	return repo.NewCachedUsers(users, c, l), repo.NewCachedArticles(articles, c, l), func() { _ = c.Close() }, nil
}

// Checks are the readiness probes served on /health.
func Checks(db *gorm.DB) map[string]router.Check {
	return map[string]router.Check{
		"db": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
}

func RouterOptions(cfg *config.Config, checks map[string]router.Check) router.Options {
	return router.Options{
		RateRPS:       cfg.Limits.RateRPS,
		RateBurst:     cfg.Limits.RateBurst,
		MaxConcurrent: cfg.Limits.MaxConcurrent,
		MaxBodyBytes:  cfg.Limits.MaxBodyMB << 20,
		Timeout:       time.Duration(cfg.Limits.TimeoutSec) * time.Second,
		Checks:        checks,
	}
}
