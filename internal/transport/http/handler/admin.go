package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"content-api/internal/service"
	"content-api/internal/transport/http/router"
)

type Sweeper interface {
	Sweep(ctx context.Context, apply bool) (service.SweepResult, error)
}

// AdminHandler exposes the orphaned blob reconciliation.
type AdminHandler struct{ sweeper Sweeper }

func NewAdminHandler(s Sweeper) *AdminHandler { return &AdminHandler{sweeper: s} }

func (h *AdminHandler) MountAdmin(g *gin.RouterGroup) {
	ez := router.New(g)

	router.RegisterAction(ez, router.Action[struct{}, service.SweepResult]{
		Method: http.MethodGet,
		Path:   "/blobs/orphans",
		Binder: router.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (service.SweepResult, error) {
			return h.sweeper.Sweep(c.Request.Context(), false)
		},
	})

	router.RegisterAction(ez, router.Action[struct{}, service.SweepResult]{
		Method: http.MethodPost,
		Path:   "/blobs/sweep",
		Binder: router.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (service.SweepResult, error) {
			return h.sweeper.Sweep(c.Request.Context(), true)
		},
	})
}
