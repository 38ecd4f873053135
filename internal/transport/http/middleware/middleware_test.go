package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"content-api/internal/core/logger"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDKeepsCallerValue(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(KeyRequestID, "abc")
	w := serve(r, req)
	assert.Equal(t, "abc", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get(KeyRequestID))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(KeyRequestID), 36)
}

func TestRequestIDReplacesMalformedValue(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, logger.RequestID(c.Request.Context())) })

	for _, bad := range []string{"a b", "x\nlevel=error", strings.Repeat("a", 65)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(KeyRequestID, bad)
		w := serve(r, req)
		rid := w.Header().Get(KeyRequestID)
		assert.Len(t, rid, 36, bad)
		assert.Equal(t, rid, w.Body.String(), "context carries the same id")
	}
}

func TestRateLimitRejectsOverBurst(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitPerIP(0.001, 1))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"too many requests"}`, w.Body.String())
}

func (l *ipLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func TestRateLimitDropsIdleBuckets(t *testing.T) {
	now := time.Unix(1000, 0)
	l := newIPLimiter(1, 1, time.Minute, func() time.Time { return now })

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	now = now.Add(30 * time.Second)
	assert.True(t, l.allow("10.0.0.2"))
	assert.Equal(t, 2, l.size())

	now = now.Add(40 * time.Second)
	assert.True(t, l.allow("10.0.0.3"))
	assert.Equal(t, 2, l.size(), "10.0.0.1 idle past a minute")

	now = now.Add(2 * time.Minute)
	assert.True(t, l.allow("10.0.0.1"))
	assert.Equal(t, 1, l.size())
}

func TestMaxBodyRejectsLargeDeclaredBody(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodyBytes(4))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestTimeoutWritesGatewayTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/", func(c *gin.Context) { <-c.Request.Context().Done() })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.JSONEq(t, `{"error":"timeout"}`, w.Body.String())
}

func TestRecoveryAnswersWithEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/", func(c *gin.Context) { panic("kaboom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}

func TestAccessLogMasksSecrets(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.New(core)))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	serve(r, httptest.NewRequest(http.MethodGet, "/x?token=s3cret&q=1", nil))
	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, int64(http.StatusNoContent), ctx["status"])
		q, ok := ctx["query"].(map[string][]string)
		if assert.True(t, ok) {
			assert.Equal(t, []string{"****"}, q["token"])
			assert.Equal(t, []string{"1"}, q["q"])
		}
	}
}
