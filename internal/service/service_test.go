package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"content-api/internal/blobstore"
	"content-api/internal/domain"
	"content-api/internal/repo"
)

const assets = "article-assets"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_foreign_keys=1", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

// recordingBlobs is an in-memory blob store that logs every call.
type recordingBlobs struct {
	mu        sync.Mutex
	calls     []string
	blobs     map[string]blobstore.Info
	seq       int
	uploadErr error
	deleteErr error
}

func newRecordingBlobs() *recordingBlobs {
	return &recordingBlobs{blobs: map[string]blobstore.Info{}}
}

func (b *recordingBlobs) Upload(_ context.Context, container string, r io.Reader, filename string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "upload "+container+"/"+filename)
	if b.uploadErr != nil {
		return "", b.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	b.seq++
	name := fmt.Sprintf("blob-%d.png", b.seq)
	b.blobs[name] = blobstore.Info{Name: name, SizeBytes: int64(len(data)), LastModified: time.Now()}
	return name, nil
}

func (b *recordingBlobs) Delete(_ context.Context, container, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "delete "+container+"/"+name)
	if b.deleteErr != nil {
		return b.deleteErr
	}
	if _, ok := b.blobs[name]; !ok {
		return domain.NotFoundf("blob %s", name)
	}
	delete(b.blobs, name)
	return nil
}

func (b *recordingBlobs) List(_ context.Context, container string) ([]blobstore.Info, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "list "+container)
	out := make([]blobstore.Info, 0, len(b.blobs))
	for _, info := range b.blobs {
		out = append(out, info)
	}
	return out, nil
}

func (b *recordingBlobs) log() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *recordingBlobs) count(prefix string) int {
	n := 0
	for _, c := range b.log() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// flakyArticles injects failures into an otherwise real article repository.
type flakyArticles struct {
	domain.ArticleRepository
	createErr error
	deleteErr map[uint]error
	// afterList runs once ListByUser has read its rows
	afterList func(userID uint)
}

func (f *flakyArticles) ListByUser(ctx context.Context, userID uint) ([]domain.Article, error) {
	out, err := f.ArticleRepository.ListByUser(ctx, userID)
	if err == nil && f.afterList != nil {
		f.afterList(userID)
	}
	return out, err
}

func (f *flakyArticles) Create(ctx context.Context, in domain.NewArticle) (*domain.Article, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.ArticleRepository.Create(ctx, in)
}

func (f *flakyArticles) Delete(ctx context.Context, id uint) (*domain.Article, error) {
	if err := f.deleteErr[id]; err != nil {
		return nil, err
	}
	return f.ArticleRepository.Delete(ctx, id)
}

type fixture struct {
	db       *gorm.DB
	users    *repo.UserRepo
	articles *flakyArticles
	blobs    *recordingBlobs
	c        *Coordinator
}

func newFixture(t *testing.T) *fixture {
	db := newTestDB(t)
	f := &fixture{
		db:       db,
		users:    repo.NewUserRepo(db),
		articles: &flakyArticles{ArticleRepository: repo.NewArticleRepo(db), deleteErr: map[uint]error{}},
		blobs:    newRecordingBlobs(),
	}
	f.c = NewCoordinator(f.users, f.articles, f.blobs, assets, nil)
	return f
}

func (f *fixture) user(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := f.c.CreateUser(context.Background(), domain.NewUser{Name: "Ana", Email: email})
	require.NoError(t, err)
	return u
}

func image(name string) *domain.Image {
	return &domain.Image{Filename: name, Body: bytes.NewBufferString("img")}
}

var errBoom = errors.New("boom")
