package models

import "time"

// PhotoSort selects the ordering of a photo listing.
type PhotoSort string

const (
	// PhotoSortNew orders by upload time, newest first.
	PhotoSortNew PhotoSort = "new"
	// PhotoSortPopular orders by like count.
	PhotoSortPopular PhotoSort = "popular"
	// PhotoSortTopRated orders by average rating, then rating count.
	PhotoSortTopRated PhotoSort = "top_rated"
)

// Photo is a gallery upload with its equipment metadata and denormalized counters.
type Photo struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	Owner         *Profile   `gorm:"foreignKey:UserID;references:UserID" json:"owner,omitempty"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description"`
	ImageURL      string     `gorm:"not null" json:"image_url"`
	ImageKey      string     `json:"-"`
	ThumbnailURL  string     `json:"thumbnail_url"`
	ThumbnailKey  string     `json:"-"`
	Width         int        `json:"width"`
	Height        int        `json:"height"`
	Category      string     `gorm:"size:64;index" json:"category"`
	CameraBrand   string     `gorm:"size:64;index" json:"camera_brand"`
	CameraModel   string     `gorm:"size:120" json:"camera_model"`
	Lens          string     `gorm:"size:120" json:"lens"`
	FocalLength   string     `gorm:"size:32" json:"focal_length"`
	Aperture      string     `gorm:"size:32" json:"aperture"`
	ShutterSpeed  string     `gorm:"size:32" json:"shutter_speed"`
	ISO           int        `gorm:"column:iso" json:"iso"`
	LikeCount     int        `gorm:"default:0" json:"like_count"`
	CommentCount  int        `gorm:"default:0" json:"comment_count"`
	ViewCount     int        `gorm:"default:0" json:"view_count"`
	AverageRating float64    `gorm:"default:0" json:"average_rating"`
	RatingCount   int        `gorm:"default:0" json:"rating_count"`
	IsFeatured    bool       `gorm:"default:false;index" json:"is_featured"`
	FeaturedOrder int        `gorm:"default:0" json:"featured_order"`
	IsHidden      bool       `gorm:"default:false;index" json:"is_hidden"`
	Tags          []PhotoTag `gorm:"foreignKey:PhotoID" json:"tags,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TagNames returns the plain tag strings of p.
func (p *Photo) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, t.Tag)
	}
	return names
}

// PhotoTag attaches a free-form tag to a photo.
type PhotoTag struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	PhotoID uint   `gorm:"uniqueIndex:idx_photo_tags_photo_tag;not null" json:"photo_id"`
	Tag     string `gorm:"size:50;uniqueIndex:idx_photo_tags_photo_tag;index;not null" json:"tag"`
}

// PhotoLike records that a user liked a photo.
type PhotoLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PhotoID   uint      `gorm:"uniqueIndex:idx_photo_likes_photo_user;not null" json:"photo_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_photo_likes_photo_user;not null;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PhotoRating is one user's 1..5 score for a photo. (photo_id, user_id) is unique.
type PhotoRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PhotoID   uint      `gorm:"uniqueIndex:idx_photo_ratings_photo_user;not null" json:"photo_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_photo_ratings_photo_user;not null" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MinRating and MaxRating bound a PhotoRating value.
const (
	MinRating = 1
	MaxRating = 5
)

// UploadQuota reports how many uploads a user has left today.
type UploadQuota struct {
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	IsVIP     bool      `json:"is_vip"`
	ResetsAt  time.Time `json:"resets_at"`
}
