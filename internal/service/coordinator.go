package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"content-api/internal/core/logger"
	"content-api/internal/domain"
)

// Blobs is the part of the blob store the coordinator writes through.
type Blobs interface {
	Upload(ctx context.Context, container string, r io.Reader, filename string) (string, error)
	Delete(ctx context.Context, container, name string) error
}

// cascade runs before the row of the owning entity is deleted.
type cascade func(ctx context.Context, ownerID uint) error

// Coordinator orders writes across the relational store and the blob store.
// It holds no per request state and is safe for concurrent use.
type Coordinator struct {
	users    domain.UserRepository
	articles domain.ArticleRepository
	blobs    Blobs
	assets   string
	log      *zap.Logger

	onDelete map[domain.Kind][]cascade
}

func NewCoordinator(users domain.UserRepository, articles domain.ArticleRepository, blobs Blobs, assetContainer string, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Coordinator{
		users:    users,
		articles: articles,
		blobs:    blobs,
		assets:   assetContainer,
		log:      log.Named("coordinator"),
	}
	c.onDelete = map[domain.Kind][]cascade{
		domain.KindUser: {c.deleteArticlesOf},
	}
	return c
}

// CreateArticle uploads img (when present) and then inserts the row naming it.
// An upload failure leaves the relational store untouched. An insert failure
// removes the uploaded blob again.
func (c *Coordinator) CreateArticle(ctx context.Context, in domain.NewArticle, img *domain.Image) (*domain.Article, error) {
	var (
		blobName string
		created  *domain.Article
	)
	in.ImageFilename = nil

	var steps []step
	if img != nil {
		steps = append(steps, step{
			name: "upload-image",
			do: func(ctx context.Context) error {
				name, err := c.blobs.Upload(ctx, c.assets, img.Body, img.Filename)
				if err != nil {
					if !errors.Is(err, domain.ErrUpload) {
						err = fmt.Errorf("%w: %v", domain.ErrUpload, err)
					}
					return err
				}
				blobName = name
				return nil
			},
			compensation: "delete-uploaded-image",
			compensate: func(ctx context.Context) error {
				err := c.blobs.Delete(ctx, c.assets, blobName)
				if err != nil && !errors.Is(err, domain.ErrNotFound) {
					orphanedBlobs.WithLabelValues(c.assets, "create").Inc()
					logger.For(ctx, c.log).Error("orphaned blob",
						zap.String("container", c.assets),
						zap.String("blob", blobName),
						zap.Error(err),
					)
					return err
				}
				return nil
			},
		})
	}
	steps = append(steps, step{
		name: "insert-article",
		do: func(ctx context.Context) error {
			if blobName != "" {
				in.ImageFilename = &blobName
			}
			a, err := c.articles.Create(ctx, in)
			if err != nil {
				return err
			}
			created = a
			return nil
		},
	})

	if err := (saga{name: "create-article", log: c.log}).run(ctx, steps...); err != nil {
		return nil, err
	}
	return created, nil
}

// DeleteArticle removes the row first and then its blob. The row is never
// restored: a blob that cannot be removed is reported as a PartialDeleteError
// next to the deleted article. A blob that is already gone counts as removed.
func (c *Coordinator) DeleteArticle(ctx context.Context, id uint) (*domain.Article, error) {
	a, err := c.articles.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.HasImage() {
		return a, nil
	}
	blob := *a.ImageFilename
	err = c.blobs.Delete(ctx, c.assets, blob)
	switch {
	case err == nil:
		return a, nil
	case errors.Is(err, domain.ErrNotFound):
		logger.For(ctx, c.log).Warn("article blob already absent",
			zap.Uint("article_id", a.ID),
			zap.String("container", c.assets),
			zap.String("blob", blob),
		)
		return a, nil
	default:
		orphanedBlobs.WithLabelValues(c.assets, "delete").Inc()
		logger.For(ctx, c.log).Error("orphaned blob",
			zap.Uint("article_id", a.ID),
			zap.String("container", c.assets),
			zap.String("blob", blob),
			zap.Error(err),
		)
		return a, &domain.PartialDeleteError{ArticleID: a.ID, Container: c.assets, Blob: blob, Err: err}
	}
}

// DeleteUser runs the user's on-delete cascade and then removes the user row.
// Every cascade failure is returned. Orphaned blobs do not keep the user, but
// an article row that could not be deleted does. Rows created for the user
// while the cascade ran make the row delete conflict; the cascade is then run
// once more.
func (c *Coordinator) DeleteUser(ctx context.Context, id uint) (*domain.User, error) {
	if _, err := c.users.Get(ctx, id); err != nil {
		return nil, err
	}

	var errs error
	for attempt := 0; ; attempt++ {
		if err := c.cascade(ctx, domain.KindUser, id); err != nil {
			errs = multierr.Append(errs, err)
			if !onlyPartial(err) {
				logger.For(ctx, c.log).Error("user kept, owned rows remain", zap.Uint("user_id", id), zap.Error(errs))
				return nil, errs
			}
		}
		u, err := c.users.Delete(ctx, id)
		if err == nil {
			return u, errs
		}
		if !errors.Is(err, domain.ErrConflict) || attempt > 0 {
			return nil, multierr.Append(errs, err)
		}
		logger.For(ctx, c.log).Warn("user gained rows during delete, rerunning cascade", zap.Uint("user_id", id))
	}
}

func (c *Coordinator) cascade(ctx context.Context, kind domain.Kind, id uint) error {
	var errs error
	for _, run := range c.onDelete[kind] {
		errs = multierr.Append(errs, run(ctx, id))
	}
	return errs
}

func onlyPartial(errs error) bool {
	for _, err := range multierr.Errors(errs) {
		var partial *domain.PartialDeleteError
		if !errors.As(err, &partial) {
			return false
		}
	}
	return true
}

func (c *Coordinator) deleteArticlesOf(ctx context.Context, userID uint) error {
	owned, err := c.articles.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	var errs error
	for _, a := range owned {
		_, err := c.DeleteArticle(ctx, a.ID)
		if errors.Is(err, domain.ErrNotFound) {
			// removed concurrently
			continue
		}
		errs = multierr.Append(errs, err)
	}
	return errs
}

func (c *Coordinator) CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	return c.users.Create(ctx, in)
}

func (c *Coordinator) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	return c.users.Get(ctx, id)
}

func (c *Coordinator) ListUsers(ctx context.Context) ([]domain.User, error) {
	return c.users.All(ctx)
}

func (c *Coordinator) UpdateUser(ctx context.Context, id uint, patch domain.UserPatch) (*domain.User, error) {
	return c.users.Update(ctx, id, patch)
}

func (c *Coordinator) GetArticle(ctx context.Context, id uint) (*domain.Article, error) {
	return c.articles.Get(ctx, id)
}

func (c *Coordinator) ListArticles(ctx context.Context) ([]domain.Article, error) {
	return c.articles.All(ctx)
}

func (c *Coordinator) ListArticlesByUser(ctx context.Context, userID uint) ([]domain.Article, error) {
	return c.articles.ListByUser(ctx, userID)
}

func (c *Coordinator) UpdateArticle(ctx context.Context, id uint, patch domain.ArticlePatch) (*domain.Article, error) {
	return c.articles.Update(ctx, id, patch)
}
