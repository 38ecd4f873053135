package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"content-api/internal/domain"
	"content-api/internal/transport/http/router"
)

type ArticleHandler struct{ svc Content }

func NewArticleHandler(svc Content) *ArticleHandler { return &ArticleHandler{svc: svc} }

func (h *ArticleHandler) Priority() int { return 20 }

type articleIn struct {
	Title   *string `json:"title"   form:"title"`
	Content *string `json:"content" form:"content"`
	UserID  *uint   `json:"user_id" form:"user_id"`
}

type articleQuery struct {
	UserID *uint `form:"user_id"`
}

func (h *ArticleHandler) MountAPI(g *gin.RouterGroup) {
	ez := router.New(g)

	router.RegisterAction(ez, router.Action[articleQuery, []domain.Article]{
		Method: http.MethodGet,
		Path:   "/articles",
		Binder: router.BindQuery,
		Handler: func(c *gin.Context, q *articleQuery) ([]domain.Article, error) {
			if q.UserID != nil {
				return h.svc.ListArticlesByUser(c.Request.Context(), *q.UserID)
			}
			return h.svc.ListArticles(c.Request.Context())
		},
	})

	router.RegisterAction(ez, router.Action[struct{}, *domain.Article]{
		Method:  http.MethodPost,
		Path:    "/articles",
		Binder:  router.BindNone,
		Handler: h.create,
	})

	router.RegisterAction(ez, router.Action[struct{}, *domain.Article]{
		Method: http.MethodGet,
		Path:   "/articles/:id",
		Binder: router.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Article, error) {
			id, err := parseID(c)
			if err != nil {
				return nil, err
			}
			return h.svc.GetArticle(c.Request.Context(), id)
		},
	})

	router.RegisterAction(ez, router.Action[domain.ArticlePatch, *domain.Article]{
		Method: http.MethodPatch,
		Path:   "/articles/:id",
		Binder: router.BindJSON,
		Handler: func(c *gin.Context, in *domain.ArticlePatch) (*domain.Article, error) {
			id, err := parseID(c)
			if err != nil {
				return nil, err
			}
			return h.svc.UpdateArticle(c.Request.Context(), id, *in)
		},
	})

	router.RegisterAction(ez, router.Action[struct{}, deleted]{
		Method: http.MethodDelete,
		Path:   "/articles/:id",
		Binder: router.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (deleted, error) {
			id, err := parseID(c)
			if err != nil {
				return deleted{}, err
			}
			if _, err := h.svc.DeleteArticle(c.Request.Context(), id); err != nil {
				return deleted{}, err
			}
			return deleted{ID: id}, nil
		},
	})
}

// create accepts JSON, or a multipart form when an image is attached.
func (h *ArticleHandler) create(c *gin.Context, _ *struct{}) (*domain.Article, error) {
	var in articleIn
	if err := bind(c, &in); err != nil {
		return nil, err
	}
	if err := requireParams(param{"user_id", in.UserID != nil}, param{"title", in.Title != nil}); err != nil {
		return nil, err
	}

	var img *domain.Image
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return nil, router.BadRequest("invalid image: " + err.Error())
		default:
			f, err := fh.Open()
			if err != nil {
				return nil, router.BadRequest("invalid image: " + err.Error())
			}
			defer f.Close()
			img = imageFrom(fh, f)
		}
	}

	return h.svc.CreateArticle(c.Request.Context(), domain.NewArticle{
		Title:   *in.Title,
		Content: in.Content,
		UserID:  *in.UserID,
	}, img)
}

func imageFrom(fh *multipart.FileHeader, f multipart.File) *domain.Image {
	// only the base name of what the client sent is kept
	name := filepath.Base(strings.ReplaceAll(fh.Filename, `\`, "/"))
	return &domain.Image{Filename: name, Body: f}
}
