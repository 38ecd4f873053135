package domain

import "context"

// Kind names an entity type; the coordinator keys its on-delete table by it.
type Kind string

const KindUser Kind = "user"

type UserRepository interface {
	Create(ctx context.Context, in NewUser) (*User, error)
	Get(ctx context.Context, id uint) (*User, error)
	All(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id uint, patch UserPatch) (*User, error)
	Delete(ctx context.Context, id uint) (*User, error)
}

type ArticleRepository interface {
	Create(ctx context.Context, in NewArticle) (*Article, error)
	Get(ctx context.Context, id uint) (*Article, error)
	All(ctx context.Context) ([]Article, error)
	ListByUser(ctx context.Context, userID uint) ([]Article, error)
	ImageFilenames(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id uint, patch ArticlePatch) (*Article, error)
	Delete(ctx context.Context, id uint) (*Article, error)
}
