// Package handler holds the HTTP modules mounted by the router registry.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"content-api/internal/domain"
	"content-api/internal/service"
	"content-api/internal/transport/http/router"
)

// Content is the write coordinator as seen by the API surface.
type Content interface {
	CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, error)
	GetUser(ctx context.Context, id uint) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, id uint, patch domain.UserPatch) (*domain.User, error)
	DeleteUser(ctx context.Context, id uint) (*domain.User, error)

	CreateArticle(ctx context.Context, in domain.NewArticle, img *domain.Image) (*domain.Article, error)
	GetArticle(ctx context.Context, id uint) (*domain.Article, error)
	ListArticles(ctx context.Context) ([]domain.Article, error)
	ListArticlesByUser(ctx context.Context, userID uint) ([]domain.Article, error)
	UpdateArticle(ctx context.Context, id uint, patch domain.ArticlePatch) (*domain.Article, error)
	DeleteArticle(ctx context.Context, id uint) (*domain.Article, error)
}

var _ Content = (*service.Coordinator)(nil)

type deleted struct {
	ID uint `json:"id"`
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, router.BadRequest(fmt.Sprintf("invalid id %q", c.Param("id")))
	}
	return uint(id), nil
}

// bind reads JSON or form params into in. An empty body binds nothing so the
// missing params check can name every field.
func bind(c *gin.Context, in any) error {
	if err := c.ShouldBind(in); err != nil && !errors.Is(err, io.EOF) {
		return router.BadRequest("invalid request: " + err.Error())
	}
	return nil
}

type param struct {
	name    string
	present bool
}

func requireParams(ps ...param) error {
	var missing []string
	for _, p := range ps {
		if !p.present {
			missing = append(missing, p.name)
		}
	}
	if len(missing) > 0 {
		return domain.Validationf("Missing required params: %v", missing)
	}
	return nil
}
