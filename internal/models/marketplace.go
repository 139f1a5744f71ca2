package models

import (
	"time"

	"gorm.io/datatypes"
)

// ListingCondition grades the physical state of a marketplace item.
type ListingCondition string

const (
	// ConditionNew is an unused item.
	ConditionNew ListingCondition = "new"
	// ConditionLikeNew shows no visible wear.
	ConditionLikeNew ListingCondition = "like_new"
	// ConditionGood shows light wear.
	ConditionGood ListingCondition = "good"
	// ConditionFair shows obvious wear but works.
	ConditionFair ListingCondition = "fair"
	// ConditionPoor needs repair or is sold as-is.
	ConditionPoor ListingCondition = "poor"
)

// Valid reports whether c is a known condition.
func (c ListingCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// DefaultCurrency is used when a listing is created without one.
const DefaultCurrency = "JPY"

// MaxAdditionalImages caps the gallery of a listing.
const MaxAdditionalImages = 8

// MarketplaceListing is an item offered for sale. VerificationImageURL points at the seller's
// photo of the item next to a handwritten note and is mandatory.
type MarketplaceListing struct {
	ID                   uint             `gorm:"primaryKey" json:"id"`
	SellerID             uint             `gorm:"not null;index" json:"seller_id"`
	Seller               *Profile         `gorm:"foreignKey:SellerID;references:UserID" json:"seller,omitempty"`
	Title                string           `gorm:"size:200;not null" json:"title"`
	Description          string           `gorm:"type:text" json:"description"`
	Category             string           `gorm:"size:64;index" json:"category"`
	Price                int64            `gorm:"not null" json:"price"`
	Currency             string           `gorm:"size:3;not null;default:'JPY'" json:"currency"`
	Condition            ListingCondition `gorm:"type:varchar(16);not null" json:"condition"`
	VerificationImageURL string           `gorm:"not null" json:"verification_image_url"`
	VerificationImageKey string           `json:"-"`
	AdditionalImages     datatypes.JSON   `gorm:"type:json" json:"additional_images" swaggertype:"array,string"`
	IsSold               bool             `gorm:"default:false;index" json:"is_sold"`
	SoldAt               *time.Time       `json:"sold_at,omitempty"`
	IsVerified           bool             `gorm:"default:false" json:"is_verified"`
	VerifiedAt           *time.Time       `json:"verified_at,omitempty"`
	VerifiedBy           *uint            `json:"verified_by,omitempty"`
	IsHidden             bool             `gorm:"default:false;index" json:"is_hidden"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// ListingSort selects the ordering of a listing query.
type ListingSort string

const (
	// ListingSortNewest orders by creation time, newest first.
	ListingSortNewest ListingSort = "newest"
	// ListingSortPriceAsc orders by price, cheapest first.
	ListingSortPriceAsc ListingSort = "price_asc"
	// ListingSortPriceDesc orders by price, most expensive first.
	ListingSortPriceDesc ListingSort = "price_desc"
)
