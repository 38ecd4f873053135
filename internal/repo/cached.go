package repo

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"content-api/internal/core/cache"
	"content-api/internal/domain"
)

// CachedUsers serves Get from redis and drops the entry on every write to it.
// Deleted rows leave a tombstone so a read that raced the delete cannot put
// the row back.
type CachedUsers struct {
	domain.UserRepository
	c   *cache.Cache
	log *zap.Logger
}

func NewCachedUsers(next domain.UserRepository, c *cache.Cache, log *zap.Logger) *CachedUsers {
	return &CachedUsers{UserRepository: next, c: c, log: log}
}

func userKey(id uint) string { return fmt.Sprintf("content:user:%d", id) }

func (r *CachedUsers) Create(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	u, err := r.UserRepository.Create(ctx, in)
	if err == nil {
		// some drivers reuse the id of a deleted row
		forget(ctx, r.c, r.log, userKey(u.ID))
	}
	return u, err
}

func (r *CachedUsers) Get(ctx context.Context, id uint) (*domain.User, error) {
	u, err := cache.GetOrLoadJSON(r.c, ctx, userKey(id), 0, func(ctx context.Context) (*domain.User, error) {
		return r.UserRepository.Get(ctx, id)
	})
	if errors.Is(err, cache.ErrGone) {
		return nil, domain.NotFoundf("user %d not found", id)
	}
	return u, err
}

func (r *CachedUsers) Update(ctx context.Context, id uint, patch domain.UserPatch) (*domain.User, error) {
	u, err := r.UserRepository.Update(ctx, id, patch)
	forget(ctx, r.c, r.log, userKey(id))
	return u, err
}

func (r *CachedUsers) Delete(ctx context.Context, id uint) (*domain.User, error) {
	u, err := r.UserRepository.Delete(ctx, id)
	bury(ctx, r.c, r.log, userKey(id), err)
	return u, err
}

// CachedArticles is the article counterpart of CachedUsers.
type CachedArticles struct {
	domain.ArticleRepository
	c   *cache.Cache
	log *zap.Logger
}

func NewCachedArticles(next domain.ArticleRepository, c *cache.Cache, log *zap.Logger) *CachedArticles {
	return &CachedArticles{ArticleRepository: next, c: c, log: log}
}

func articleKey(id uint) string { return fmt.Sprintf("content:article:%d", id) }

func (r *CachedArticles) Create(ctx context.Context, in domain.NewArticle) (*domain.Article, error) {
	a, err := r.ArticleRepository.Create(ctx, in)
	if err == nil {
		forget(ctx, r.c, r.log, articleKey(a.ID))
	}
	return a, err
}

func (r *CachedArticles) Get(ctx context.Context, id uint) (*domain.Article, error) {
	a, err := cache.GetOrLoadJSON(r.c, ctx, articleKey(id), 0, func(ctx context.Context) (*domain.Article, error) {
		return r.ArticleRepository.Get(ctx, id)
	})
	if errors.Is(err, cache.ErrGone) {
		return nil, domain.NotFoundf("article %d not found", id)
	}
	return a, err
}

func (r *CachedArticles) Update(ctx context.Context, id uint, patch domain.ArticlePatch) (*domain.Article, error) {
	a, err := r.ArticleRepository.Update(ctx, id, patch)
	forget(ctx, r.c, r.log, articleKey(id))
	return a, err
}

func (r *CachedArticles) Delete(ctx context.Context, id uint) (*domain.Article, error) {
	a, err := r.ArticleRepository.Delete(ctx, id)
	bury(ctx, r.c, r.log, articleKey(id), err)
	return a, err
}

func forget(ctx context.Context, c *cache.Cache, log *zap.Logger, key string) {
	if err := c.Invalidate(ctx, key); err != nil {
		log.Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
	}
}

// bury tombstones key once the row is known to be gone. Any other delete
// failure leaves the row in place, so the entry is only dropped.
func bury(ctx context.Context, c *cache.Cache, log *zap.Logger, key string, deleteErr error) {
	if deleteErr != nil && !errors.Is(deleteErr, domain.ErrNotFound) {
		forget(ctx, c, log, key)
		return
	}
	if err := c.Tombstone(ctx, key); err != nil {
		log.Warn("cache tombstone failed", zap.String("key", key), zap.Error(err))
	}
}
