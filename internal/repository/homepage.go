package repository

import (
	"context"

	"shutterhub/internal/models"

	"gorm.io/gorm"
)

// HomepageRepository defines persistence operations for homepage sections.
type HomepageRepository interface {
	List(ctx context.Context, visibleOnly bool) ([]models.HomepageSection, error)
	GetByID(ctx context.Context, id uint) (*models.HomepageSection, error)
	Create(ctx context.Context, section *models.HomepageSection) error
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	SetSortOrder(ctx context.Context, id uint, order int) error
	NextSortOrder(ctx context.Context) (int, error)
}

type homepageRepository struct {
	db *gorm.DB
}

// NewHomepageRepository creates a new HomepageRepository
func NewHomepageRepository(db *gorm.DB) HomepageRepository {
	return &homepageRepository{db: db}
}

func (r *homepageRepository) List(ctx context.Context, visibleOnly bool) ([]models.HomepageSection, error) {
	q := readDB(r.db).WithContext(ctx).Model(&models.HomepageSection{})
	if visibleOnly {
		q = q.Where("is_visible = ?", true)
	}
	var sections []models.HomepageSection
	if err := q.Order("sort_order ASC").Order("id ASC").Find(&sections).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return sections, nil
}

func (r *homepageRepository) GetByID(ctx context.Context, id uint) (*models.HomepageSection, error) {
	var section models.HomepageSection
	if err := r.db.WithContext(ctx).First(&section, id).Error; err != nil {
		return nil, findErr(err, "Section", id)
	}
	return &section, nil
}

// Create inserts section. is_visible defaults to true in the schema, so a hidden section is
// written with an explicit follow-up update.
func (r *homepageRepository) Create(ctx context.Context, section *models.HomepageSection) error {
	visible := section.IsVisible
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(section).Error; err != nil {
			return err
		}
		if visible {
			return nil
		}
		section.IsVisible = false
		return tx.Model(section).Update("is_visible", false).Error
	})
	return writeErr(err, "section key already in use")
}

func (r *homepageRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.HomepageSection{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return writeErr(res.Error, "section key already in use")
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Section", id)
	}
	return nil
}

func (r *homepageRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.HomepageSection{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Section", id)
	}
	return nil
}

// SetSortOrder writes one section's position. Reorders call it once per row.
func (r *homepageRepository) SetSortOrder(ctx context.Context, id uint, order int) error {
	return r.Update(ctx, id, map[string]interface{}{"sort_order": order})
}

func (r *homepageRepository) NextSortOrder(ctx context.Context) (int, error) {
	var next int
	err := r.db.WithContext(ctx).Model(&models.HomepageSection{}).
		Select("COALESCE(MAX(sort_order), -1) + 1").
		Scan(&next).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return next, nil
}
