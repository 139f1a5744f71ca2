// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Role names recognised by has_role.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// User is the authentication identity. Community-facing data lives on Profile.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	IsAdmin   bool      `gorm:"default:false" json:"is_admin"`
	Profile   *Profile  `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile holds the public identity, VIP/verified flags, moderation counters and the
// daily upload counter of a user.
type Profile struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Username         string     `gorm:"size:30;uniqueIndex;not null" json:"username"`
	DisplayName      string     `gorm:"size:80" json:"display_name"`
	AvatarURL        string     `json:"avatar_url"`
	AvatarKey        string     `json:"-"`
	Bio              string     `gorm:"type:text" json:"bio"`
	Website          string     `json:"website"`
	IsVIP            bool       `gorm:"column:is_vip;default:false" json:"is_vip"`
	IsVerified       bool       `gorm:"default:false" json:"is_verified"`
	WarningCount     int        `gorm:"default:0" json:"warning_count"`
	IsSuspended      bool       `gorm:"default:false;index" json:"is_suspended"`
	SuspendedUntil   *time.Time `json:"suspended_until,omitempty"`
	DailyUploadCount int        `gorm:"default:0" json:"daily_upload_count"`
	UploadCountDay   string     `gorm:"size:10" json:"upload_count_day"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// SuspensionActive reports whether the suspension is still in force at now.
// A suspension without an end date never lapses on its own.
func (p *Profile) SuspensionActive(now time.Time) bool {
	if p == nil || !p.IsSuspended {
		return false
	}
	if p.SuspendedUntil == nil {
		return true
	}
	return p.SuspendedUntil.After(now)
}

// UserRole grants a named role to a user.
type UserRole struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_roles_user_role;not null" json:"user_id"`
	Role      string    `gorm:"size:32;uniqueIndex:idx_user_roles_user_role;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicProfile is the projection returned by get_public_profile. It never carries email,
// warnings or suspension state.
type PublicProfile struct {
	UserID         uint      `json:"user_id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	AvatarURL      string    `json:"avatar_url"`
	Bio            string    `json:"bio"`
	Website        string    `json:"website"`
	IsVIP          bool      `json:"is_vip"`
	IsVerified     bool      `json:"is_verified"`
	PhotoCount     int64     `json:"photo_count"`
	AverageRating  float64   `json:"average_rating"`
	ListingCount   int64     `json:"listing_count"`
	TopicCount     int64     `json:"topic_count"`
	JoinedAt       time.Time `json:"joined_at"`
}

// UserSummary is the compact author block embedded in list responses.
type UserSummary struct {
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	IsVerified  bool   `json:"is_verified"`
}

// Summary returns the compact author block for p.
func (p *Profile) Summary() UserSummary {
	if p == nil {
		return UserSummary{}
	}
	return UserSummary{
		UserID:      p.UserID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		IsVerified:  p.IsVerified,
	}
}
