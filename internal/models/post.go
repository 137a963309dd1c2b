package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a text and/or image entry owned by exactly one User.
type Post struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`
	Content   string    `gorm:"type:text" json:"content"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an id when the caller did not supply one.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsEmpty reports whether the post carries neither text nor an image.
func (p *Post) IsEmpty() bool {
	return p.Content == "" && p.ImageURL == ""
}

// FeedItem is a post joined with its author's display name.
type FeedItem struct {
	ID        uuid.UUID `gorm:"column:id" json:"id"`
	Content   string    `gorm:"column:content" json:"content,omitempty"`
	ImageURL  string    `gorm:"column:image_url" json:"image_url,omitempty"`
	Author    string    `gorm:"column:author" json:"author"`
	AuthorID  uuid.UUID `gorm:"column:author_id" json:"author_id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}
