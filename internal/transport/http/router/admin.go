package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewAdminEngine serves maintenance endpoints under /admin/v1. It has no
// authentication and is meant to listen on a private address only.
func NewAdminEngine(l *zap.Logger, o Options, reg *Registry) *gin.Engine {
	r := newEngine(l, o)
	reg.mountAdmin(r.Group("/admin/v1"))
	return r
}
