package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"content-api/internal/blobstore"
	"content-api/internal/domain"
	"content-api/internal/repo"
	"content-api/internal/service"
	"content-api/internal/transport/http/router"
)

const assets = "article-assets"

func init() { gin.SetMode(gin.TestMode) }

type memBlobs struct {
	mu        sync.Mutex
	blobs     map[string]blobstore.Info
	deletes   int
	uploads   int
	deleteErr error
}

func (m *memBlobs) Upload(_ context.Context, _ string, r io.Reader, filename string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
	name := blobstore.NewName(filename)
	m.blobs[name] = blobstore.Info{Name: name, LastModified: time.Now().Add(-time.Hour)}
	return name, nil
}

func (m *memBlobs) Delete(_ context.Context, _ string, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.blobs[name]; !ok {
		return domain.NotFoundf("blob %s", name)
	}
	delete(m.blobs, name)
	return nil
}

func (m *memBlobs) List(context.Context, string) ([]blobstore.Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []blobstore.Info{}
	for _, b := range m.blobs {
		out = append(out, b)
	}
	return out, nil
}

type env struct {
	api   *gin.Engine
	admin *gin.Engine
	blobs *memBlobs
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dsn := fmt.Sprintf("file:h_%s?mode=memory&cache=shared&_foreign_keys=1", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.AutoMigrate(db))

	blobs := &memBlobs{blobs: map[string]blobstore.Info{}}
	users, articles := repo.NewUserRepo(db), repo.NewArticleRepo(db)
	coord := service.NewCoordinator(users, articles, blobs, assets, zap.NewNop())
	sweeper := service.NewSweeper(articles, blobs, assets, time.Minute, zap.NewNop())

	reg := (&router.Registry{}).Register(NewUserHandler(coord), NewArticleHandler(coord), NewAdminHandler(sweeper))
	opts := router.Options{Checks: map[string]router.Check{"db": func(ctx context.Context) error { return sqlDB.PingContext(ctx) }}}
	return &env{
		api:   router.NewAPIEngine(zap.NewNop(), opts, reg),
		admin: router.NewAdminEngine(zap.NewNop(), opts, reg),
		blobs: blobs,
	}
}

func do(t *testing.T, h http.Handler, method, path string, body io.Reader, contentType string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return do(t, h, method, path, r, "application/json")
}

func createUser(t *testing.T, e *env, email string) uint {
	code, out := doJSON(t, e.api, http.MethodPost, "/api/users", fmt.Sprintf(`{"name":"Ana","email":%q}`, email))
	require.Equal(t, http.StatusOK, code, out)
	return uint(out["data"].(map[string]any)["id"].(float64))
}

func multipartArticle(t *testing.T, fields map[string]string, filename string, img []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(img)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUserEndpoints(t *testing.T) {
	e := newEnv(t)
	id := createUser(t, e, "ana@x.com")
	assert.Equal(t, uint(1), id)

	code, out := doJSON(t, e.api, http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, out["data"], 1)

	code, out = doJSON(t, e.api, http.MethodPatch, "/api/users/1", `{"name":"Ana B"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Ana B", out["data"].(map[string]any)["name"])

	code, out = doJSON(t, e.api, http.MethodGet, "/api/users/1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ana@x.com", out["data"].(map[string]any)["email"])

	code, out = doJSON(t, e.api, http.MethodDelete, "/api/users/1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), out["data"].(map[string]any)["id"])

	code, out = doJSON(t, e.api, http.MethodGet, "/api/users/1", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotEmpty(t, out["error"])
}

func TestCreateUserMissingParams(t *testing.T) {
	e := newEnv(t)
	code, out := doJSON(t, e.api, http.MethodPost, "/api/users", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, out["error"], "Missing required params: [name email]")
	assert.NotContains(t, out, "data")
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	e := newEnv(t)
	createUser(t, e, "ana@x.com")
	code, _ := doJSON(t, e.api, http.MethodPost, "/api/users", `{"name":"Other","email":"ana@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestInvalidID(t *testing.T) {
	e := newEnv(t)
	code, out := doJSON(t, e.api, http.MethodDelete, "/api/articles/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, out["error"], "invalid id")
}

func TestCreateArticleJSON(t *testing.T) {
	e := newEnv(t)
	uid := createUser(t, e, "ana@x.com")

	code, out := doJSON(t, e.api, http.MethodPost, "/api/articles", fmt.Sprintf(`{"title":"Hi","user_id":%d}`, uid))
	require.Equal(t, http.StatusOK, code, out)
	data := out["data"].(map[string]any)
	assert.Nil(t, data["image_filename"])
	assert.Equal(t, float64(uid), data["user_id"])
	assert.NotEmpty(t, data["created_at"])
	assert.Zero(t, e.blobs.uploads)
}

func TestListArticlesByUser(t *testing.T) {
	e := newEnv(t)
	ana, bob := createUser(t, e, "ana@x.com"), createUser(t, e, "bob@x.com")
	for _, uid := range []uint{ana, bob, bob} {
		code, out := doJSON(t, e.api, http.MethodPost, "/api/articles", fmt.Sprintf(`{"title":"Hi","user_id":%d}`, uid))
		require.Equal(t, http.StatusOK, code, out)
	}

	code, out := doJSON(t, e.api, http.MethodGet, fmt.Sprintf("/api/articles?user_id=%d", bob), "")
	require.Equal(t, http.StatusOK, code, out)
	list := out["data"].([]any)
	require.Len(t, list, 2)
	for _, a := range list {
		assert.Equal(t, float64(bob), a.(map[string]any)["user_id"])
	}

	code, out = doJSON(t, e.api, http.MethodGet, "/api/articles", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["data"].([]any), 3)

	code, _ = doJSON(t, e.api, http.MethodGet, "/api/articles?user_id=abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreateArticleMissingParams(t *testing.T) {
	e := newEnv(t)
	code, out := doJSON(t, e.api, http.MethodPost, "/api/articles", `{"content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, out["error"], "Missing required params: [user_id title]")
}

func TestCreateArticleUnknownUser(t *testing.T) {
	e := newEnv(t)
	code, _ := doJSON(t, e.api, http.MethodPost, "/api/articles", `{"title":"Hi","user_id":77}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreateArticleMultipartWithImageThenDelete(t *testing.T) {
	e := newEnv(t)
	uid := createUser(t, e, "ana@x.com")

	body, ct := multipartArticle(t, map[string]string{"title": "Pic", "user_id": fmt.Sprint(uid)}, "../../Cat.JPG", []byte("jpeg"))
	code, out := do(t, e.api, http.MethodPost, "/api/articles", body, ct)
	require.Equal(t, http.StatusOK, code, out)
	data := out["data"].(map[string]any)
	name, _ := data["image_filename"].(string)
	assert.True(t, strings.HasSuffix(name, ".jpg"), name)
	assert.Contains(t, e.blobs.blobs, name)

	id := uint(data["id"].(float64))
	code, out = doJSON(t, e.api, http.MethodDelete, fmt.Sprintf("/api/articles/%d", id), "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(id), out["data"].(map[string]any)["id"])
	assert.Empty(t, e.blobs.blobs)

	code, _ = doJSON(t, e.api, http.MethodDelete, fmt.Sprintf("/api/articles/%d", id), "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 1, e.blobs.deletes)
}

func TestCreateArticleMultipartWithoutImage(t *testing.T) {
	e := newEnv(t)
	uid := createUser(t, e, "ana@x.com")

	body, ct := multipartArticle(t, map[string]string{"title": "Text", "content": "body", "user_id": fmt.Sprint(uid)}, "", nil)
	code, out := do(t, e.api, http.MethodPost, "/api/articles", body, ct)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "body", out["data"].(map[string]any)["content"])
	assert.Zero(t, e.blobs.uploads)
}

func TestDeleteArticlePartialFailureIs500(t *testing.T) {
	e := newEnv(t)
	uid := createUser(t, e, "ana@x.com")
	body, ct := multipartArticle(t, map[string]string{"title": "Pic", "user_id": fmt.Sprint(uid)}, "a.png", []byte("png"))
	code, out := do(t, e.api, http.MethodPost, "/api/articles", body, ct)
	require.Equal(t, http.StatusOK, code, out)
	e.blobs.deleteErr = errors.New("storage offline")

	code, out = doJSON(t, e.api, http.MethodDelete, "/api/articles/1", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, out["error"], "storage offline")

	code, _ = doJSON(t, e.api, http.MethodGet, "/api/articles/1", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUpdateArticle(t *testing.T) {
	e := newEnv(t)
	uid := createUser(t, e, "ana@x.com")
	code, _ := doJSON(t, e.api, http.MethodPost, "/api/articles", fmt.Sprintf(`{"title":"Hi","user_id":%d}`, uid))
	require.Equal(t, http.StatusOK, code)

	code, out := doJSON(t, e.api, http.MethodPatch, "/api/articles/1", `{"content":"new body"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "new body", out["data"].(map[string]any)["content"])
	assert.Equal(t, "Hi", out["data"].(map[string]any)["title"])

	code, _ = doJSON(t, e.api, http.MethodPatch, "/api/articles/9", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDeleteUserCascadesOverHTTP(t *testing.T) {
	e := newEnv(t)
	uid := createUser(t, e, "ana@x.com")
	for i := 0; i < 2; i++ {
		body, ct := multipartArticle(t, map[string]string{"title": "Pic", "user_id": fmt.Sprint(uid)}, "a.png", []byte("png"))
		code, out := do(t, e.api, http.MethodPost, "/api/articles", body, ct)
		require.Equal(t, http.StatusOK, code, out)
	}

	code, _ := doJSON(t, e.api, http.MethodDelete, fmt.Sprintf("/api/users/%d", uid), "")
	assert.Equal(t, http.StatusOK, code)

	code, out := doJSON(t, e.api, http.MethodGet, "/api/articles", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, out["data"])
	assert.Empty(t, e.blobs.blobs)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	e := newEnv(t)
	code, out := doJSON(t, e.api, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out["data"].(map[string]any)["status"])

	code, out = doJSON(t, e.api, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "route not found", out["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	e.api.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestAdminSweep(t *testing.T) {
	e := newEnv(t)
	e.blobs.blobs["stale.png"] = blobstore.Info{Name: "stale.png", SizeBytes: 4, LastModified: time.Now().Add(-time.Hour)}

	code, out := doJSON(t, e.admin, http.MethodGet, "/admin/v1/blobs/orphans", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"stale.png"}, out["data"].(map[string]any)["orphans"])
	assert.Contains(t, e.blobs.blobs, "stale.png")

	code, out = doJSON(t, e.admin, http.MethodPost, "/admin/v1/blobs/sweep", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), out["data"].(map[string]any)["deleted_count"])
	assert.Empty(t, e.blobs.blobs)

	code, _ = doJSON(t, e.api, http.MethodPost, "/admin/v1/blobs/sweep", "")
	assert.Equal(t, http.StatusNotFound, code)
}
