package repo

import (
	"time"

	"gorm.io/gorm"

	"content-api/internal/domain"
)

// Persistence models stay private; callers only see domain types.

type userModel struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"size:50;not null"`
	Email string `gorm:"size:255;not null;uniqueIndex"`
}

func (userModel) TableName() string { return "users" }

func (m userModel) toDomain() domain.User {
	return domain.User{ID: m.ID, Name: m.Name, Email: m.Email}
}

type articleModel struct {
	ID            uint       `gorm:"primaryKey"`
	Title         string     `gorm:"size:255;not null"`
	Content       *string    `gorm:"type:text"`
	ImageFilename *string    `gorm:"size:42"`
	CreatedAt     time.Time  `gorm:"not null"`
	UserID        uint       `gorm:"not null;index"`
	User          *userModel `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (articleModel) TableName() string { return "articles" }

func (m articleModel) toDomain() domain.Article {
	return domain.Article{
		ID:            m.ID,
		Title:         m.Title,
		Content:       m.Content,
		ImageFilename: m.ImageFilename,
		CreatedAt:     m.CreatedAt.UTC(),
		UserID:        m.UserID,
	}
}

// AutoMigrate creates or updates the tables; users first so the article
// foreign key has a target.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&userModel{}, &articleModel{})
}

func mapSlice[M any, E any](in []M, f func(M) E) []E {
	out := make([]E, 0, len(in))
	for _, m := range in {
		out = append(out, f(m))
	}
	return out
}
