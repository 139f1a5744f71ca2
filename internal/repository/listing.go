package repository

import (
	"context"
	"time"

	"shutterhub/internal/models"

	"gorm.io/gorm"
)

// ListingFilter narrows a marketplace query.
type ListingFilter struct {
	Category     string
	Condition    models.ListingCondition
	MinPrice     int64
	MaxPrice     int64
	SellerID     uint
	VerifiedOnly bool
	IncludeSold  bool
	Sort         models.ListingSort
}

// ListingRepository defines persistence operations for marketplace listings.
type ListingRepository interface {
	Create(ctx context.Context, listing *models.MarketplaceListing) error
	GetByID(ctx context.Context, id uint) (*models.MarketplaceListing, error)
	List(ctx context.Context, filter ListingFilter, limit, offset int) ([]models.MarketplaceListing, int64, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	MarkSold(ctx context.Context, id uint, at time.Time) (bool, error)
	Verify(ctx context.Context, id, adminID uint, at time.Time) error
	Delete(ctx context.Context, id uint) error
}

type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a new ListingRepository
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(ctx context.Context, listing *models.MarketplaceListing) error {
	if err := r.db.WithContext(ctx).Create(listing).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *listingRepository) GetByID(ctx context.Context, id uint) (*models.MarketplaceListing, error) {
	var listing models.MarketplaceListing
	if err := r.db.WithContext(ctx).Preload("Seller").First(&listing, id).Error; err != nil {
		return nil, findErr(err, "Listing", id)
	}
	return &listing, nil
}

func (r *listingRepository) List(ctx context.Context, filter ListingFilter, limit, offset int) ([]models.MarketplaceListing, int64, error) {
	limit, offset = clampPage(limit, offset)
	q := readDB(r.db).WithContext(ctx).Model(&models.MarketplaceListing{}).Where("is_hidden = ?", false)

	if !filter.IncludeSold {
		q = q.Where("is_sold = ?", false)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Condition != "" {
		q = q.Where("condition = ?", filter.Condition)
	}
	if filter.MinPrice > 0 {
		q = q.Where("price >= ?", filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		q = q.Where("price <= ?", filter.MaxPrice)
	}
	if filter.SellerID != 0 {
		q = q.Where("seller_id = ?", filter.SellerID)
	}
	if filter.VerifiedOnly {
		q = q.Where("is_verified = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	switch filter.Sort {
	case models.ListingSortPriceAsc:
		q = q.Order("price ASC").Order("id DESC")
	case models.ListingSortPriceDesc:
		q = q.Order("price DESC").Order("id DESC")
	default:
		q = q.Order("created_at DESC").Order("id DESC")
	}

	var listings []models.MarketplaceListing
	if err := q.Preload("Seller").Limit(limit).Offset(offset).Find(&listings).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return listings, total, nil
}

func (r *listingRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.MarketplaceListing{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Listing", id)
	}
	return nil
}

// MarkSold flips is_sold once. It reports false when the listing was already sold.
func (r *listingRepository) MarkSold(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.MarketplaceListing{}).
		Where("id = ? AND is_sold = ?", id, false).
		Updates(map[string]interface{}{"is_sold": true, "sold_at": at})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *listingRepository) Verify(ctx context.Context, id, adminID uint, at time.Time) error {
	return r.Update(ctx, id, map[string]interface{}{
		"is_verified": true,
		"verified_at": at,
		"verified_by": adminID,
	})
}

// Delete removes a listing and the favorites pointing at it.
func (r *listingRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("content_type = ? AND content_id = ?", string(models.KindListing), id).
			Delete(&models.Favorite{}).Error
		if err != nil {
			return models.NewInternalError(err)
		}
		res := tx.Delete(&models.MarketplaceListing{}, id)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Listing", id)
		}
		return nil
	})
}
