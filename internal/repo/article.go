package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"content-api/internal/domain"
)

type ArticleRepo struct {
	db *gorm.DB
	t  table[articleModel]
}

var _ domain.ArticleRepository = (*ArticleRepo)(nil)

func NewArticleRepo(db *gorm.DB) *ArticleRepo {
	return &ArticleRepo{db: db, t: table[articleModel]{db: db}}
}

// Create checks the owner inside the insert transaction so a missing user is
// a validation error on every driver, foreign keys enabled or not.
func (r *ArticleRepo) Create(ctx context.Context, in domain.NewArticle) (*domain.Article, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	m := articleModel{
		Title:         in.Title,
		Content:       in.Content,
		ImageFilename: in.ImageFilename,
		CreatedAt:     time.Now().UTC(),
		UserID:        in.UserID,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&userModel{}).Where("id = ?", in.UserID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return domain.Validationf("user %d does not exist", in.UserID)
		}
		return table[articleModel]{db: tx}.insert(ctx, &m)
	})
	if err != nil {
		return nil, translate(err, "article", 0)
	}
	a := m.toDomain()
	return &a, nil
}

func (r *ArticleRepo) Get(ctx context.Context, id uint) (*domain.Article, error) {
	m, err := r.t.get(ctx, id)
	if err != nil {
		return nil, translate(err, "article", id)
	}
	a := m.toDomain()
	return &a, nil
}

func (r *ArticleRepo) All(ctx context.Context) ([]domain.Article, error) {
	ms, err := r.t.list(ctx)
	if err != nil {
		return nil, translate(err, "article", 0)
	}
	return mapSlice(ms, articleModel.toDomain), nil
}

func (r *ArticleRepo) ListByUser(ctx context.Context, userID uint) ([]domain.Article, error) {
	ms, err := r.t.list(ctx, func(q *gorm.DB) *gorm.DB { return q.Where("user_id = ?", userID) })
	if err != nil {
		return nil, translate(err, "article", 0)
	}
	return mapSlice(ms, articleModel.toDomain), nil
}

// ImageFilenames lists every blob name referenced by an article row.
func (r *ArticleRepo) ImageFilenames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&articleModel{}).
		Where("image_filename IS NOT NULL").
		Pluck("image_filename", &names).Error
	if err != nil {
		return nil, translate(err, "article", 0)
	}
	return names, nil
}

func (r *ArticleRepo) Update(ctx context.Context, id uint, patch domain.ArticlePatch) (*domain.Article, error) {
	if err := check(patch); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Content != nil {
		fields["content"] = *patch.Content
	}
	m, err := r.t.update(ctx, id, fields)
	if err != nil {
		return nil, translate(err, "article", id)
	}
	a := m.toDomain()
	return &a, nil
}

func (r *ArticleRepo) Delete(ctx context.Context, id uint) (*domain.Article, error) {
	m, err := r.t.delete(ctx, id)
	if err != nil {
		return nil, translate(err, "article", id)
	}
	a := m.toDomain()
	return &a, nil
}
