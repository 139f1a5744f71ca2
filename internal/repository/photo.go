package repository

import (
	"context"
	"strings"

	"shutterhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PhotoFilter narrows a gallery listing. Zero values mean "any".
type PhotoFilter struct {
	Category      string
	CameraBrand   string
	UserID        uint
	Tag           string
	FeaturedOnly  bool
	IncludeHidden bool
	Sort          models.PhotoSort
}

// PhotoRepository defines persistence operations for photos, tags and likes.
type PhotoRepository interface {
	Create(ctx context.Context, photo *models.Photo) error
	GetByID(ctx context.Context, id uint) (*models.Photo, error)
	List(ctx context.Context, filter PhotoFilter, limit, offset int) ([]models.Photo, int64, error)
	ListFeatured(ctx context.Context) ([]models.Photo, error)
	Update(ctx context.Context, photo *models.Photo, tags []string) error
	DeleteCascade(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) error

	Like(ctx context.Context, photoID, userID uint) (bool, error)
	Unlike(ctx context.Context, photoID, userID uint) (bool, error)
	IsLiked(ctx context.Context, photoID, userID uint) (bool, error)

	SimilarCandidates(ctx context.Context, photo *models.Photo, limit int) ([]models.Photo, error)
	TopRated(ctx context.Context, excludeID uint, limit int) ([]models.Photo, error)

	SetFeatured(ctx context.Context, id uint, featured bool) error
	SetFeaturedOrder(ctx context.Context, id uint, order int) error
	SetHidden(ctx context.Context, id uint, hidden bool) error
}

type photoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository creates a new PhotoRepository
func NewPhotoRepository(db *gorm.DB) PhotoRepository {
	return &photoRepository{db: db}
}

func (r *photoRepository) Create(ctx context.Context, photo *models.Photo) error {
	if err := r.db.WithContext(ctx).Create(photo).Error; err != nil {
		return writeErr(err, "photo already exists")
	}
	return nil
}

func (r *photoRepository) GetByID(ctx context.Context, id uint) (*models.Photo, error) {
	var photo models.Photo
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Tags").
		First(&photo, id).Error
	if err != nil {
		return nil, findErr(err, "Photo", id)
	}
	return &photo, nil
}

func (r *photoRepository) List(ctx context.Context, filter PhotoFilter, limit, offset int) ([]models.Photo, int64, error) {
	limit, offset = clampPage(limit, offset)
	q := readDB(r.db).WithContext(ctx).Model(&models.Photo{})

	if !filter.IncludeHidden {
		q = q.Where("photos.is_hidden = ?", false)
	}
	if filter.Category != "" {
		q = q.Where("photos.category = ?", filter.Category)
	}
	if filter.CameraBrand != "" {
		q = q.Where("LOWER(photos.camera_brand) = ?", strings.ToLower(filter.CameraBrand))
	}
	if filter.UserID != 0 {
		q = q.Where("photos.user_id = ?", filter.UserID)
	}
	if filter.FeaturedOnly {
		q = q.Where("photos.is_featured = ?", true)
	}
	if filter.Tag != "" {
		q = q.Where("EXISTS (SELECT 1 FROM photo_tags WHERE photo_tags.photo_id = photos.id AND photo_tags.tag = ?)",
			strings.ToLower(filter.Tag))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	switch filter.Sort {
	case models.PhotoSortPopular:
		q = q.Order("photos.like_count DESC").Order("photos.id DESC")
	case models.PhotoSortTopRated:
		q = q.Order("photos.average_rating DESC").Order("photos.rating_count DESC").Order("photos.id DESC")
	default:
		q = q.Order("photos.created_at DESC").Order("photos.id DESC")
	}

	var photos []models.Photo
	err := q.Preload("Owner").Preload("Tags").Limit(limit).Offset(offset).Find(&photos).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return photos, total, nil
}

func (r *photoRepository) ListFeatured(ctx context.Context) ([]models.Photo, error) {
	var photos []models.Photo
	err := readDB(r.db).WithContext(ctx).
		Preload("Owner").
		Where("is_featured = ? AND is_hidden = ?", true, false).
		Order("featured_order ASC").
		Order("id ASC").
		Find(&photos).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return photos, nil
}

// Update saves the editable columns of photo. A nil tags slice leaves tags untouched.
func (r *photoRepository) Update(ctx context.Context, photo *models.Photo, tags []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Photo{}).Where("id = ?", photo.ID).Updates(map[string]interface{}{
			"title":         photo.Title,
			"description":   photo.Description,
			"category":      photo.Category,
			"camera_brand":  photo.CameraBrand,
			"camera_model":  photo.CameraModel,
			"lens":          photo.Lens,
			"focal_length":  photo.FocalLength,
			"aperture":      photo.Aperture,
			"shutter_speed": photo.ShutterSpeed,
			"iso":           photo.ISO,
		}).Error
		if err != nil {
			return err
		}
		if tags == nil {
			return nil
		}
		if err := tx.Where("photo_id = ?", photo.ID).Delete(&models.PhotoTag{}).Error; err != nil {
			return err
		}
		if len(tags) == 0 {
			return nil
		}
		rows := make([]models.PhotoTag, 0, len(tags))
		for _, t := range tags {
			rows = append(rows, models.PhotoTag{PhotoID: photo.ID, Tag: t})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// DeleteCascade removes the photo and every row that points at it.
func (r *photoRepository) DeleteCascade(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			model interface{}
			where string
			args  []interface{}
		}{
			{&models.Comment{}, "photo_id = ?", []interface{}{id}},
			{&models.PhotoRating{}, "photo_id = ?", []interface{}{id}},
			{&models.PhotoTag{}, "photo_id = ?", []interface{}{id}},
			{&models.PhotoLike{}, "photo_id = ?", []interface{}{id}},
			{&models.Favorite{}, "content_type = ? AND content_id = ?", []interface{}{string(models.KindPhoto), id}},
		}
		for _, s := range steps {
			if err := tx.Where(s.where, s.args...).Delete(s.model).Error; err != nil {
				return models.NewInternalError(err)
			}
		}
		res := tx.Delete(&models.Photo{}, id)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Photo", id)
		}
		return nil
	})
}

func (r *photoRepository) IncrementViews(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Photo{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// Like records a like once. It reports whether a new like was created.
func (r *photoRepository) Like(ctx context.Context, photoID, userID uint) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PhotoLike{PhotoID: photoID, UserID: userID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return tx.Model(&models.Photo{}).Where("id = ?", photoID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return created, nil
}

// Unlike removes a like. It reports whether one existed.
func (r *photoRepository) Unlike(ctx context.Context, photoID, userID uint) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("photo_id = ? AND user_id = ?", photoID, userID).Delete(&models.PhotoLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Model(&models.Photo{}).Where("id = ?", photoID).
			UpdateColumn("like_count", gorm.Expr("CASE WHEN like_count > 0 THEN like_count - 1 ELSE 0 END")).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return removed, nil
}

func (r *photoRepository) IsLiked(ctx context.Context, photoID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PhotoLike{}).
		Where("photo_id = ? AND user_id = ?", photoID, userID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// SimilarCandidates returns visible photos sharing the camera brand or category of photo,
// both compared case-insensitively. The pool is cut after ordering by the same score
// the service ranks with, so a brand and category match never loses its place to
// better-rated single matches.
func (r *photoRepository) SimilarCandidates(ctx context.Context, photo *models.Photo, limit int) ([]models.Photo, error) {
	brand := strings.ToLower(strings.TrimSpace(photo.CameraBrand))
	category := strings.ToLower(strings.TrimSpace(photo.Category))
	if brand == "" && category == "" {
		return nil, nil
	}
	q := readDB(r.db).WithContext(ctx).Model(&models.Photo{}).
		Where("id <> ? AND is_hidden = ?", photo.ID, false)

	switch {
	case brand != "" && category != "":
		q = q.Where("LOWER(camera_brand) = ? OR LOWER(category) = ?", brand, category)
	case brand != "":
		q = q.Where("LOWER(camera_brand) = ?", brand)
	default:
		q = q.Where("LOWER(category) = ?", category)
	}

	// One expression: gorm drops an OrderBy expression when plain columns are merged in.
	byScore := clause.OrderBy{Expression: clause.Expr{
		SQL: "(CASE WHEN ? <> '' AND LOWER(camera_brand) = ? THEN 2 ELSE 0 END" +
			" + CASE WHEN ? <> '' AND LOWER(category) = ? THEN 1 ELSE 0 END) DESC," +
			" average_rating DESC, id DESC",
		Vars: []interface{}{brand, brand, category, category},
	}}

	var photos []models.Photo
	err := q.Preload("Owner").
		Order(byScore).
		Limit(limit).
		Find(&photos).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return photos, nil
}

func (r *photoRepository) TopRated(ctx context.Context, excludeID uint, limit int) ([]models.Photo, error) {
	var photos []models.Photo
	err := readDB(r.db).WithContext(ctx).
		Preload("Owner").
		Where("id <> ? AND is_hidden = ?", excludeID, false).
		Order("average_rating DESC").
		Order("rating_count DESC").
		Order("id DESC").
		Limit(limit).
		Find(&photos).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return photos, nil
}

// SetFeatured toggles the featured flag. Newly featured photos go to the end of the order.
func (r *photoRepository) SetFeatured(ctx context.Context, id uint, featured bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{"is_featured": featured, "featured_order": 0}
		if featured {
			var next int
			err := tx.Model(&models.Photo{}).
				Select("COALESCE(MAX(featured_order), 0) + 1").
				Where("is_featured = ? AND id <> ?", true, id).
				Scan(&next).Error
			if err != nil {
				return models.NewInternalError(err)
			}
			fields["featured_order"] = next
		}
		res := tx.Model(&models.Photo{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Photo", id)
		}
		return nil
	})
}

// SetFeaturedOrder writes a single featured_order value.
func (r *photoRepository) SetFeaturedOrder(ctx context.Context, id uint, order int) error {
	res := r.db.WithContext(ctx).Model(&models.Photo{}).Where("id = ?", id).Update("featured_order", order)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Photo", id)
	}
	return nil
}

func (r *photoRepository) SetHidden(ctx context.Context, id uint, hidden bool) error {
	res := r.db.WithContext(ctx).Model(&models.Photo{}).Where("id = ?", id).Update("is_hidden", hidden)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Photo", id)
	}
	return nil
}
