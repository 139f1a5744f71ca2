package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"shutterhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileStats are the aggregates shown on a public profile.
type ProfileStats struct {
	PhotoCount    int64
	AverageRating float64
	ListingCount  int64
	TopicCount    int64
}

// UserRepository defines persistence operations for users, profiles and roles.
type UserRepository interface {
	Create(ctx context.Context, user *models.User, profile *models.Profile) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID uint, hash string) error
	SetAdminFlag(ctx context.Context, userID uint, admin bool) error

	GetProfile(ctx context.Context, userID uint) (*models.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error)
	GetProfiles(ctx context.Context, userIDs []uint) (map[uint]models.Profile, error)
	UpdateProfile(ctx context.Context, userID uint, fields map[string]interface{}) error
	ListProfiles(ctx context.Context, search string, limit, offset int) ([]models.Profile, int64, error)
	ProfileStats(ctx context.Context, userID uint) (*ProfileStats, error)

	ListRoles(ctx context.Context, userID uint) ([]string, error)
	HasRole(ctx context.Context, userID uint, role string) (bool, error)
	GrantRole(ctx context.Context, userID uint, role string) error
	RevokeRole(ctx context.Context, userID uint, role string) error
	ListUserIDsWithRole(ctx context.Context, role string) ([]uint, error)

	ReserveUpload(ctx context.Context, userID uint, day string, limit int) (bool, error)
	ReleaseUpload(ctx context.Context, userID uint, day string) error
	LiftExpiredSuspension(ctx context.Context, userID uint, now time.Time) (bool, error)
	Suspend(ctx context.Context, userID uint, until *time.Time) error
	Unsuspend(ctx context.Context, userID uint, resetWarnings bool) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts the user and its profile in one transaction.
func (r *userRepository) Create(ctx context.Context, user *models.User, profile *models.Profile) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
	return writeErr(err, "email or username already in use")
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, findErr(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, findErr(err, "User", email)
	}
	return &user, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID uint, hash string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("password", hash)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", userID)
	}
	return nil
}

// SetAdminFlag keeps users.is_admin in step with the admin role.
func (r *userRepository) SetAdminFlag(ctx context.Context, userID uint, admin bool) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("is_admin", admin).Error
}

func (r *userRepository) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, findErr(err, "Profile", userID)
	}
	return &profile, nil
}

func (r *userRepository) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var profile models.Profile
	err := readDB(r.db).WithContext(ctx).
		Where("LOWER(username) = ?", strings.ToLower(username)).
		First(&profile).Error
	if err != nil {
		return nil, findErr(err, "Profile", username)
	}
	return &profile, nil
}

func (r *userRepository) GetProfiles(ctx context.Context, userIDs []uint) (map[uint]models.Profile, error) {
	out := make(map[uint]models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var profiles []models.Profile
	if err := readDB(r.db).WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, p := range profiles {
		out[p.UserID] = p
	}
	return out, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, userID uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("user_id = ?", userID).Updates(fields)
	if res.Error != nil {
		return writeErr(res.Error, "username already in use")
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", userID)
	}
	return nil
}

func (r *userRepository) ListProfiles(ctx context.Context, search string, limit, offset int) ([]models.Profile, int64, error) {
	limit, offset = clampPage(limit, offset)
	q := readDB(r.db).WithContext(ctx).Model(&models.Profile{})
	if s := strings.TrimSpace(search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(username) LIKE ? OR LOWER(display_name) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	var profiles []models.Profile
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&profiles).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return profiles, total, nil
}

func (r *userRepository) ProfileStats(ctx context.Context, userID uint) (*ProfileStats, error) {
	db := readDB(r.db).WithContext(ctx)
	stats := &ProfileStats{}

	if err := db.Model(&models.Photo{}).Where("user_id = ? AND is_hidden = ?", userID, false).Count(&stats.PhotoCount).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	var avg struct{ Avg float64 }
	err := db.Model(&models.PhotoRating{}).
		Select("COALESCE(AVG(photo_ratings.rating), 0) AS avg").
		Joins("JOIN photos ON photos.id = photo_ratings.photo_id").
		Where("photos.user_id = ? AND photos.is_hidden = ?", userID, false).
		Scan(&avg).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	stats.AverageRating = avg.Avg
	if err := db.Model(&models.MarketplaceListing{}).Where("seller_id = ? AND is_hidden = ?", userID, false).Count(&stats.ListingCount).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Model(&models.ForumTopic{}).Where("user_id = ? AND is_hidden = ?", userID, false).Count(&stats.TopicCount).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return stats, nil
}

func (r *userRepository) ListRoles(ctx context.Context, userID uint) ([]string, error) {
	var roles []string
	err := r.db.WithContext(ctx).Model(&models.UserRole{}).Where("user_id = ?", userID).Order("role").Pluck("role", &roles).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return roles, nil
}

func (r *userRepository) HasRole(ctx context.Context, userID uint, role string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserRole{}).Where("user_id = ? AND role = ?", userID, role).Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) GrantRole(ctx context.Context, userID uint, role string) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, Role: role}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) RevokeRole(ctx context.Context, userID uint, role string) error {
	err := r.db.WithContext(ctx).Where("user_id = ? AND role = ?", userID, role).Delete(&models.UserRole{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) ListUserIDsWithRole(ctx context.Context, role string) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.UserRole{}).Where("role = ?", role).Order("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// ReserveUpload takes one slot of the daily upload quota. The counter restarts when day
// differs from the stored day. The conditional UPDATE keeps concurrent uploads from
// overshooting limit; false means the quota is exhausted.
func (r *userRepository) ReserveUpload(ctx context.Context, userID uint, day string, limit int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
UPDATE profiles
SET daily_upload_count = CASE WHEN upload_count_day = ? THEN daily_upload_count + 1 ELSE 1 END,
    upload_count_day = ?,
    updated_at = ?
WHERE user_id = ?
  AND (upload_count_day <> ? OR daily_upload_count < ?)`,
		day, day, time.Now(), userID, day, limit)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ReleaseUpload gives back a slot taken by ReserveUpload for the same day.
func (r *userRepository) ReleaseUpload(ctx context.Context, userID uint, day string) error {
	return r.db.WithContext(ctx).Exec(`
UPDATE profiles
SET daily_upload_count = daily_upload_count - 1
WHERE user_id = ? AND upload_count_day = ? AND daily_upload_count > 0`,
		userID, day).Error
}

// LiftExpiredSuspension clears a suspension whose end date has passed.
func (r *userRepository) LiftExpiredSuspension(ctx context.Context, userID uint, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ? AND is_suspended = ? AND suspended_until IS NOT NULL AND suspended_until <= ?", userID, true, now).
		Updates(map[string]interface{}{"is_suspended": false, "suspended_until": nil})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) Suspend(ctx context.Context, userID uint, until *time.Time) error {
	return r.UpdateProfile(ctx, userID, map[string]interface{}{
		"is_suspended":    true,
		"suspended_until": until,
	})
}

func (r *userRepository) Unsuspend(ctx context.Context, userID uint, resetWarnings bool) error {
	fields := map[string]interface{}{
		"is_suspended":    false,
		"suspended_until": nil,
	}
	if resetWarnings {
		fields["warning_count"] = 0
	}
	return r.UpdateProfile(ctx, userID, fields)
}

// IsNotFound reports whether err is a NOT_FOUND AppError or gorm.ErrRecordNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || models.ErrorCode(err) == models.CodeNotFound
}
