package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"content-api/internal/blobstore"
	"content-api/internal/domain"
)

// SweepStore lists and removes blobs of one container.
type SweepStore interface {
	List(ctx context.Context, container string) ([]blobstore.Info, error)
	Delete(ctx context.Context, container, name string) error
}

// SweepResult summarizes one reconciliation pass.
type SweepResult struct {
	Container      string   `json:"container"`
	DryRun         bool     `json:"dry_run"`
	Scanned        int      `json:"scanned"`
	Referenced     int      `json:"referenced"`
	TooRecent      int      `json:"too_recent"`
	Orphans        []string `json:"orphans"`
	DeletedCount   int      `json:"deleted_count"`
	FailedCount    int      `json:"failed_count"`
	ReclaimedBytes int64    `json:"reclaimed_bytes"`
}

// Sweeper removes blobs in the asset container that no article row names.
// Blobs younger than the grace period are skipped: an article create may have
// uploaded them and not yet committed its row.
type Sweeper struct {
	articles  domain.ArticleRepository
	blobs     SweepStore
	container string
	grace     time.Duration
	now       func() time.Time
	log       *zap.Logger
}

func NewSweeper(articles domain.ArticleRepository, blobs SweepStore, container string, grace time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		articles:  articles,
		blobs:     blobs,
		container: container,
		grace:     grace,
		now:       time.Now,
		log:       log.Named("sweeper"),
	}
}

// Sweep lists orphans and deletes them when apply is set.
func (s *Sweeper) Sweep(ctx context.Context, apply bool) (SweepResult, error) {
	res := SweepResult{Container: s.container, DryRun: !apply, Orphans: []string{}}

	// blobs first: a row committed after this listing only adds references
	infos, err := s.blobs.List(ctx, s.container)
	if err != nil {
		return res, err
	}
	names, err := s.articles.ImageFilenames(ctx)
	if err != nil {
		return res, err
	}
	referenced := make(map[string]struct{}, len(names))
	for _, n := range names {
		referenced[n] = struct{}{}
	}

	cutoff := s.now().Add(-s.grace)
	res.Scanned = len(infos)
	for _, info := range infos {
		if _, ok := referenced[info.Name]; ok {
			res.Referenced++
			continue
		}
		if info.LastModified.After(cutoff) {
			res.TooRecent++
			continue
		}
		res.Orphans = append(res.Orphans, info.Name)
		if !apply {
			res.ReclaimedBytes += info.SizeBytes
			continue
		}
		if err := s.blobs.Delete(ctx, s.container, info.Name); err != nil && !errors.Is(err, domain.ErrNotFound) {
			res.FailedCount++
			s.log.Warn("sweep delete failed", zap.String("container", s.container), zap.String("blob", info.Name), zap.Error(err))
			continue
		}
		res.DeletedCount++
		res.ReclaimedBytes += info.SizeBytes
		sweptBlobs.Inc()
	}

	s.log.Info("sweep finished",
		zap.String("container", s.container),
		zap.Bool("dry_run", res.DryRun),
		zap.Int("scanned", res.Scanned),
		zap.Int("orphans", len(res.Orphans)),
		zap.Int("deleted", res.DeletedCount),
		zap.Int("failed", res.FailedCount),
	)
	return res, nil
}
