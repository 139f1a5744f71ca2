package service

import (
	"context"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"shutterhub/internal/cache"
	"shutterhub/internal/models"
	"shutterhub/internal/repository"
	"shutterhub/internal/storage"
)

// QuotaPolicy is the daily upload allowance. Days are counted in Location.
type QuotaPolicy struct {
	Regular  int
	VIP      int
	Location *time.Location
}

// DefaultQuotaPolicy allows 3 uploads a day, 10 for VIP members, reset at UTC midnight.
func DefaultQuotaPolicy() QuotaPolicy {
	return QuotaPolicy{Regular: 3, VIP: 10, Location: time.UTC}
}

// LimitFor returns the daily allowance of profile.
func (q QuotaPolicy) LimitFor(profile *models.Profile) int {
	if profile != nil && profile.IsVIP {
		return q.VIP
	}
	return q.Regular
}

// Tier labels the allowance of profile for metrics.
func (q QuotaPolicy) Tier(profile *models.Profile) string {
	if profile != nil && profile.IsVIP {
		return "vip"
	}
	return "regular"
}

func (q QuotaPolicy) location() *time.Location {
	if q.Location == nil {
		return time.UTC
	}
	return q.Location
}

// Day is the quota day of now as YYYY-MM-DD.
func (q QuotaPolicy) Day(now time.Time) string {
	return now.In(q.location()).Format("2006-01-02")
}

// ResetsAt is the start of the quota day after now.
func (q QuotaPolicy) ResetsAt(now time.Time) time.Time {
	local := now.In(q.location())
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, q.location())
}

// Usage reports the allowance of profile at now.
func (q QuotaPolicy) Usage(profile *models.Profile, now time.Time) models.UploadQuota {
	limit := q.LimitFor(profile)
	used := 0
	if profile.UploadCountDay == q.Day(now) {
		used = profile.DailyUploadCount
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return models.UploadQuota{
		Limit:     limit,
		Used:      used,
		Remaining: remaining,
		IsVIP:     profile.IsVIP,
		ResetsAt:  q.ResetsAt(now),
	}
}

// UpdateProfileInput carries the editable profile fields. Nil fields are left untouched.
type UpdateProfileInput struct {
	UserID      uint
	DisplayName *string
	Bio         *string
	Website     *string
}

// UserService serves profiles, roles and quota lookups.
type UserService struct {
	users   repository.UserRepository
	avatars storage.ObjectStore
	images  *ImageProcessor
	quota   QuotaPolicy
	now     func() time.Time
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, avatars storage.ObjectStore, images *ImageProcessor, quota QuotaPolicy) *UserService {
	if images == nil {
		images = NewImageProcessor(0)
	}
	return &UserService{users: users, avatars: avatars, images: images, quota: quota, now: time.Now}
}

// GetMyProfile returns the caller's full profile.
func (s *UserService) GetMyProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	return s.users.GetProfile(ctx, userID)
}

// UpdateMyProfile edits display name, bio and website.
func (s *UserService) UpdateMyProfile(ctx context.Context, in UpdateProfileInput) (*models.Profile, error) {
	fields := map[string]interface{}{}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if utf8.RuneCountInString(name) > 80 {
			return nil, models.NewValidationError("Display name too long (max 80 characters)")
		}
		fields["display_name"] = name
	}
	if in.Bio != nil {
		if utf8.RuneCountInString(*in.Bio) > 1000 {
			return nil, models.NewValidationError("Bio too long (max 1000 characters)")
		}
		fields["bio"] = strings.TrimSpace(*in.Bio)
	}
	if in.Website != nil {
		site := strings.TrimSpace(*in.Website)
		if site != "" {
			u, err := url.Parse(site)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return nil, models.NewValidationError("Website must be an http(s) URL")
			}
		}
		fields["website"] = site
	}
	if len(fields) == 0 {
		return nil, models.NewValidationError("No profile fields to update")
	}

	if err := s.users.UpdateProfile(ctx, in.UserID, fields); err != nil {
		return nil, err
	}
	profile, err := s.users.GetProfile(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	cache.InvalidatePublicProfile(ctx, profile.Username)
	return profile, nil
}

// UploadAvatar stores a square avatar in the avatars bucket and replaces the previous one.
func (s *UserService) UploadAvatar(ctx context.Context, userID uint, file UploadFile) (*models.Profile, error) {
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	data, err := s.images.Avatar(file)
	if err != nil {
		return nil, err
	}
	key, publicURL, err := putObject(ctx, s.avatars, "avatars", userID, data, "image/webp")
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(ctx, userID, map[string]interface{}{
		"avatar_url": publicURL,
		"avatar_key": key,
	}); err != nil {
		removeObjects(ctx, storedObject{store: s.avatars, key: key})
		return nil, err
	}

	removeObjects(ctx, storedObject{store: s.avatars, key: profile.AvatarKey})
	cache.InvalidatePublicProfile(ctx, profile.Username)
	profile.AvatarURL = publicURL
	profile.AvatarKey = key
	return profile, nil
}

// GetPublicProfile returns the public projection of a profile. It never carries email,
// warnings or suspension state.
func (s *UserService) GetPublicProfile(ctx context.Context, username string) (*models.PublicProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.NewValidationError("Username is required")
	}

	var out models.PublicProfile
	err := cache.Aside(ctx, cache.PublicProfileKey(username), &out, cache.PublicProfileTTL, func() error {
		profile, err := s.users.GetProfileByUsername(ctx, username)
		if err != nil {
			return err
		}
		stats, err := s.users.ProfileStats(ctx, profile.UserID)
		if err != nil {
			return err
		}
		out = models.PublicProfile{
			UserID:        profile.UserID,
			Username:      profile.Username,
			DisplayName:   profile.DisplayName,
			AvatarURL:     profile.AvatarURL,
			Bio:           profile.Bio,
			Website:       profile.Website,
			IsVIP:         profile.IsVIP,
			IsVerified:    profile.IsVerified,
			PhotoCount:    stats.PhotoCount,
			AverageRating: stats.AverageRating,
			ListingCount:  stats.ListingCount,
			TopicCount:    stats.TopicCount,
			JoinedAt:      profile.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// HasRole reports whether userID holds role.
func (s *UserService) HasRole(ctx context.Context, userID uint, role string) (bool, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return false, models.NewValidationError("Role is required")
	}
	return s.users.HasRole(ctx, userID, role)
}

// IsAdmin reports whether userID holds the admin role.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	return s.users.HasRole(ctx, userID, models.RoleAdmin)
}

// GetUploadQuota reports how many uploads userID has left today.
func (s *UserService) GetUploadQuota(ctx context.Context, userID uint) (*models.UploadQuota, error) {
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	usage := s.quota.Usage(profile, s.now())
	return &usage, nil
}
