package models

import "time"

// HomepageSection is an admin-ordered block of the landing page.
type HomepageSection struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"size:64;not null;uniqueIndex" json:"key"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Subtitle  string    `gorm:"size:300" json:"subtitle"`
	IsVisible bool      `gorm:"default:true" json:"is_visible"`
	SortOrder int       `gorm:"default:0;index" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReorderResult reports how far a sequential reorder got. FailedAt and Error are set when a
// row update failed; rows before FailedAt keep their new position.
type ReorderResult struct {
	Updated  int    `json:"updated"`
	FailedAt *int   `json:"failed_at,omitempty"`
	Error    string `json:"error,omitempty"`
}

// AdminStats is the back-office dashboard summary.
type AdminStats struct {
	Users          int64 `json:"users"`
	Photos         int64 `json:"photos"`
	Topics         int64 `json:"topics"`
	Listings       int64 `json:"listings"`
	PendingReports int64 `json:"pending_reports"`
	SuspendedUsers int64 `json:"suspended_users"`
}
