package models

import "time"

// Favorite bookmarks a photo or listing for a user.
type Favorite struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_favorites_user_content" json:"user_id"`
	ContentType string    `gorm:"size:32;not null;uniqueIndex:idx_favorites_user_content" json:"content_type"`
	ContentID   uint      `gorm:"not null;uniqueIndex:idx_favorites_user_content" json:"content_id"`
	CreatedAt   time.Time `json:"created_at"`
}
