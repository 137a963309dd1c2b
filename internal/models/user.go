// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a registered account.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"size:50;not null" json:"name"`
	Email        string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Bio          string    `gorm:"size:500" json:"bio"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns an id when the caller did not supply one.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Profile is a user's public record plus their own posts, newest first.
type Profile struct {
	User  User       `json:"user"`
	Posts []FeedItem `json:"posts"`
}
