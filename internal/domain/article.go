package domain

import (
	"io"
	"time"
)

type Article struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Content       *string   `json:"content"`
	ImageFilename *string   `json:"image_filename"`
	CreatedAt     time.Time `json:"created_at"`
	UserID        uint      `json:"user_id"`
}

// HasImage reports whether the article references a blob in the asset container.
func (a *Article) HasImage() bool {
	return a != nil && a.ImageFilename != nil && *a.ImageFilename != ""
}

// NewArticle carries the attributes accepted when an article is created.
// ImageFilename is filled by the coordinator after the image upload, never by callers.
type NewArticle struct {
	Title         string  `json:"title"   validate:"required,max=255"`
	Content       *string `json:"content"`
	UserID        uint    `json:"user_id" validate:"required"`
	ImageFilename *string `json:"-"       validate:"omitempty,max=42"`
}

// ArticlePatch is a partial update of the text fields of an article.
type ArticlePatch struct {
	Title   *string `json:"title"   validate:"omitempty,min=1,max=255"`
	Content *string `json:"content"`
}

// Image is an uploaded file stream waiting to be written to the blob store.
type Image struct {
	Filename string
	Body     io.Reader
}
