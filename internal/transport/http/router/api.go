package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	mdw "content-api/internal/transport/http/middleware"
	resp "content-api/internal/transport/http/response"
)

// Check is a named readiness probe run by /health.
type Check func(ctx context.Context) error

type Options struct {
	RateRPS       float64
	RateBurst     int
	MaxConcurrent int64
	MaxBodyBytes  int64
	Timeout       time.Duration
	Checks        map[string]Check
}

func (o Options) withDefaults() Options {
	if o.RateRPS <= 0 {
		o.RateRPS = 200
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 400
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 300
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 16 << 20
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

func newEngine(l *zap.Logger, o Options) *gin.Engine {
	o = o.withDefaults()
	r := gin.New()
	r.Use(
		mdw.RequestID(),
		mdw.RateLimitPerIP(rate.Limit(o.RateRPS), o.RateBurst),
		mdw.ConcurrencyLimit(o.MaxConcurrent),
		mdw.MaxBodyBytes(o.MaxBodyBytes),
		mdw.Timeout(o.Timeout),
		mdw.Recovery(l),
		mdw.Metrics(),
		mdw.AccessLog(l),
		cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:    []string{"Origin", "Content-Type", mdw.KeyRequestID},
			ExposeHeaders:   []string{mdw.KeyRequestID},
			MaxAge:          12 * time.Hour,
		}),
	)
	r.NoRoute(func(c *gin.Context) { resp.Abort(c, http.StatusNotFound, "route not found") })

	r.GET("/health", health(o.Checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func health(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := map[string]string{}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				status[name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		if code != http.StatusOK {
			c.JSON(code, resp.Body{Error: "unhealthy", Data: status})
			return
		}
		resp.JSON(c, code, gin.H{"status": "ok", "checks": status})
	}
}

// NewAPIEngine serves the public content API under /api.
func NewAPIEngine(l *zap.Logger, o Options, reg *Registry) *gin.Engine {
	r := newEngine(l, o)
	reg.mountAPI(r.Group("/api"))
	return r
}
