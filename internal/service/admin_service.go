package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shutterhub/internal/cache"
	"shutterhub/internal/featureflags"
	"shutterhub/internal/middleware"
	"shutterhub/internal/models"
	"shutterhub/internal/repository"
	"shutterhub/internal/validation"
)

const maxSuspensionDays = 365

// AdminUserDetail aggregates user and moderation data for admin views.
type AdminUserDetail struct {
	User           *models.User    `json:"user"`
	Profile        *models.Profile `json:"profile"`
	Roles          []string        `json:"roles"`
	ReportsAgainst int64           `json:"reports_against"`
	ReportsFiled   int64           `json:"reports_filed"`
	Warnings       []string        `json:"warnings,omitempty"`
}

// SectionInput creates or patches a homepage section. Nil fields are left unchanged.
type SectionInput struct {
	Key       *string
	Title     *string
	Subtitle  *string
	IsVisible *bool
}

// AdminServiceDeps groups the collaborators of AdminService.
type AdminServiceDeps struct {
	Users    repository.UserRepository
	Photos   repository.PhotoRepository
	Homepage repository.HomepageRepository
	Reports  repository.ReportRepository
	Stats    repository.StatsRepository
	Notifier NotificationSender
	Flags    *featureflags.Manager
}

// AdminService runs the back-office operations: user moderation, curation of the featured
// gallery and homepage, stats and feature flags.
type AdminService struct {
	users    repository.UserRepository
	photos   repository.PhotoRepository
	homepage repository.HomepageRepository
	reports  repository.ReportRepository
	stats    repository.StatsRepository
	notifier NotificationSender
	flags    *featureflags.Manager
	now      func() time.Time
}

func NewAdminService(deps AdminServiceDeps) *AdminService {
	return &AdminService{
		users:    deps.Users,
		photos:   deps.Photos,
		homepage: deps.Homepage,
		reports:  deps.Reports,
		stats:    deps.Stats,
		notifier: deps.Notifier,
		flags:    deps.Flags,
		now:      time.Now,
	}
}

func (s *AdminService) ListUsers(ctx context.Context, search string, limit, offset int) ([]models.Profile, int64, error) {
	return s.users.ListProfiles(ctx, search, limit, offset)
}

// GetUserDetail returns the user with moderation context. Secondary lookups that fail are
// reported in Warnings instead of failing the request.
func (s *AdminService) GetUserDetail(ctx context.Context, userID uint) (*AdminUserDetail, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	detail := &AdminUserDetail{User: user, Roles: []string{}}

	if detail.Profile, err = s.users.GetProfile(ctx, userID); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load profile for user", "user_id", userID, "error", err)
		detail.Warnings = append(detail.Warnings, "Partial data: Profile could not be loaded.")
	}
	if roles, err := s.users.ListRoles(ctx, userID); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load roles for user", "user_id", userID, "error", err)
		detail.Warnings = append(detail.Warnings, "Partial data: Roles could not be loaded.")
	} else if roles != nil {
		detail.Roles = roles
	}
	if detail.ReportsAgainst, detail.ReportsFiled, err = s.reports.CountForUser(ctx, userID); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to count reports for user", "user_id", userID, "error", err)
		detail.Warnings = append(detail.Warnings, "Partial data: Report counts could not be loaded.")
	}
	return detail, nil
}

// SuspendUser blocks posting for days days.
func (s *AdminService) SuspendUser(ctx context.Context, adminID, userID uint, days int) (*models.Profile, error) {
	if days <= 0 || days > maxSuspensionDays {
		return nil, models.NewValidationError(fmt.Sprintf("Suspension must be between 1 and %d days", maxSuspensionDays))
	}
	if adminID == userID {
		return nil, models.NewValidationError("You cannot suspend yourself")
	}
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	until := s.now().Add(time.Duration(days) * 24 * time.Hour)
	if err := s.users.Suspend(ctx, userID, &until); err != nil {
		return nil, err
	}
	cache.InvalidatePublicProfile(ctx, profile.Username)

	notifyQuietly(ctx, s.notifier, NotifyInput{
		UserID:  userID,
		Type:    models.NotificationSuspended,
		Ref:     models.UserRef{UserID: userID},
		ActorID: adminID,
		Title:   "Your account is suspended",
		Body:    fmt.Sprintf("Posting is disabled until %s.", until.UTC().Format(time.RFC3339)),
	})
	return s.users.GetProfile(ctx, userID)
}

// UnsuspendUser lifts a suspension, optionally clearing the warning count.
func (s *AdminService) UnsuspendUser(ctx context.Context, userID uint, resetWarnings bool) (*models.Profile, error) {
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.Unsuspend(ctx, userID, resetWarnings); err != nil {
		return nil, err
	}
	cache.InvalidatePublicProfile(ctx, profile.Username)
	return s.users.GetProfile(ctx, userID)
}

func (s *AdminService) SetVIP(ctx context.Context, userID uint, vip bool) (*models.Profile, error) {
	return s.setProfileFlag(ctx, userID, "is_vip", vip)
}

func (s *AdminService) SetVerified(ctx context.Context, userID uint, verified bool) (*models.Profile, error) {
	return s.setProfileFlag(ctx, userID, "is_verified", verified)
}

func (s *AdminService) setProfileFlag(ctx context.Context, userID uint, column string, value bool) (*models.Profile, error) {
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(ctx, userID, map[string]interface{}{column: value}); err != nil {
		return nil, err
	}
	cache.InvalidatePublicProfile(ctx, profile.Username)
	return s.users.GetProfile(ctx, userID)
}

func normalizeRole(role string) (string, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case models.RoleAdmin, models.RoleModerator:
		return role, nil
	}
	return "", models.NewValidationError("Invalid role. Must be one of: admin, moderator")
}

// GrantRole adds role to the user. The admin role is mirrored on users.is_admin.
func (s *AdminService) GrantRole(ctx context.Context, userID uint, role string) ([]string, error) {
	role, err := normalizeRole(role)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.GrantRole(ctx, userID, role); err != nil {
		return nil, err
	}
	if role == models.RoleAdmin {
		if err := s.users.SetAdminFlag(ctx, userID, true); err != nil {
			return nil, err
		}
	}
	cache.InvalidateUserRoles(ctx, userID)
	return s.users.ListRoles(ctx, userID)
}

// RevokeRole removes role from the user. Admins cannot drop their own admin role.
func (s *AdminService) RevokeRole(ctx context.Context, adminID, userID uint, role string) ([]string, error) {
	role, err := normalizeRole(role)
	if err != nil {
		return nil, err
	}
	if role == models.RoleAdmin && adminID == userID {
		return nil, models.NewValidationError("You cannot revoke your own admin role")
	}
	if err := s.users.RevokeRole(ctx, userID, role); err != nil {
		return nil, err
	}
	if role == models.RoleAdmin {
		if err := s.users.SetAdminFlag(ctx, userID, false); err != nil {
			return nil, err
		}
	}
	cache.InvalidateUserRoles(ctx, userID)
	return s.users.ListRoles(ctx, userID)
}

// SetFeatured adds the photo to the end of the featured order, or removes it.
func (s *AdminService) SetFeatured(ctx context.Context, photoID uint, featured bool) (*models.Photo, error) {
	if err := s.photos.SetFeatured(ctx, photoID, featured); err != nil {
		return nil, err
	}
	return s.photos.GetByID(ctx, photoID)
}

func (s *AdminService) SetHidden(ctx context.Context, photoID uint, hidden bool) (*models.Photo, error) {
	if err := s.photos.SetHidden(ctx, photoID, hidden); err != nil {
		return nil, err
	}
	cache.InvalidatePhotoRecs(ctx, photoID)
	return s.photos.GetByID(ctx, photoID)
}

// ReorderFeatured writes featured_order = index for each photo, one row at a time and
// without a transaction. When a row fails, earlier rows keep their new position and the
// result carries the failing index.
func (s *AdminService) ReorderFeatured(ctx context.Context, photoIDs []uint) (*models.ReorderResult, error) {
	if err := checkReorderIDs(photoIDs); err != nil {
		return nil, err
	}
	return reorder(ctx, photoIDs, s.photos.SetFeaturedOrder), nil
}

// ReorderHomepageSections writes sort_order = index for each section, sequentially.
func (s *AdminService) ReorderHomepageSections(ctx context.Context, sectionIDs []uint) (*models.ReorderResult, error) {
	if err := checkReorderIDs(sectionIDs); err != nil {
		return nil, err
	}
	result := reorder(ctx, sectionIDs, s.homepage.SetSortOrder)
	cache.InvalidateHomepageSections(ctx)
	return result, nil
}

func checkReorderIDs(ids []uint) error {
	if len(ids) == 0 {
		return models.NewValidationError("ids must not be empty")
	}
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			return models.NewValidationError("ids must be positive")
		}
		if _, dup := seen[id]; dup {
			return models.NewValidationError(fmt.Sprintf("duplicate id %d", id))
		}
		seen[id] = struct{}{}
	}
	return nil
}

func reorder(ctx context.Context, ids []uint, write func(ctx context.Context, id uint, order int) error) *models.ReorderResult {
	result := &models.ReorderResult{}
	for i, id := range ids {
		if err := write(ctx, id, i); err != nil {
			failedAt := i
			result.FailedAt = &failedAt
			result.Error = errorMessage(err)
			middleware.Logger.WarnContext(ctx, "reorder stopped", "index", i, "id", id, "error", err)
			return result
		}
		result.Updated++
	}
	return result
}

// ListSections returns homepage sections. The public view is cached and omits hidden ones.
func (s *AdminService) ListSections(ctx context.Context, visibleOnly bool) ([]models.HomepageSection, error) {
	if !visibleOnly {
		return s.homepage.List(ctx, false)
	}
	var sections []models.HomepageSection
	err := cache.Aside(ctx, cache.HomepageSectionsKey, &sections, cache.HomepageSectionsTTL, func() error {
		var ferr error
		sections, ferr = s.homepage.List(ctx, true)
		return ferr
	})
	return sections, err
}

func (s *AdminService) CreateSection(ctx context.Context, in SectionInput) (*models.HomepageSection, error) {
	section := &models.HomepageSection{IsVisible: true}
	if in.Key == nil || in.Title == nil {
		return nil, models.NewValidationError("key and title are required")
	}
	if err := applySectionInput(section, in); err != nil {
		return nil, err
	}
	next, err := s.homepage.NextSortOrder(ctx)
	if err != nil {
		return nil, err
	}
	section.SortOrder = next
	if err := s.homepage.Create(ctx, section); err != nil {
		return nil, err
	}
	cache.InvalidateHomepageSections(ctx)
	return section, nil
}

func (s *AdminService) UpdateSection(ctx context.Context, id uint, in SectionInput) (*models.HomepageSection, error) {
	section, err := s.homepage.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applySectionInput(section, in); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{
		"key":        section.Key,
		"title":      section.Title,
		"subtitle":   section.Subtitle,
		"is_visible": section.IsVisible,
	}
	if err := s.homepage.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	cache.InvalidateHomepageSections(ctx)
	return s.homepage.GetByID(ctx, id)
}

func (s *AdminService) DeleteSection(ctx context.Context, id uint) error {
	if err := s.homepage.Delete(ctx, id); err != nil {
		return err
	}
	cache.InvalidateHomepageSections(ctx)
	return nil
}

func applySectionInput(section *models.HomepageSection, in SectionInput) error {
	if in.Key != nil {
		key := strings.ToLower(strings.TrimSpace(*in.Key))
		if err := validation.ValidateCategorySlug(key); err != nil {
			return models.NewValidationError("Invalid section key: " + err.Error())
		}
		section.Key = key
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" || len(title) > 200 {
			return models.NewValidationError("Title must be 1-200 characters")
		}
		section.Title = title
	}
	if in.Subtitle != nil {
		subtitle := strings.TrimSpace(*in.Subtitle)
		if len(subtitle) > 300 {
			return models.NewValidationError("Subtitle too long (max 300 characters)")
		}
		section.Subtitle = subtitle
	}
	if in.IsVisible != nil {
		section.IsVisible = *in.IsVisible
	}
	return nil
}

func (s *AdminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	return s.stats.Collect(ctx)
}

// FeatureFlags returns the configured flag values.
func (s *AdminService) FeatureFlags() map[string]string {
	return s.flags.Raw()
}

// FeatureSnapshot evaluates the known flags for userID, including defaults for unset ones.
func (s *AdminService) FeatureSnapshot(userID uint) map[string]bool {
	return s.flags.Snapshot(userID)
}

// SetFeatureFlag overrides one flag until the next restart.
func (s *AdminService) SetFeatureFlag(adminID uint, name, value string) (map[string]string, error) {
	if s.flags == nil {
		return nil, models.NewInternalError(errors.New("feature flags are not configured"))
	}
	if err := s.flags.Set(name, value); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	middleware.Logger.Info("feature flag overridden",
		slog.Uint64("admin_id", uint64(adminID)),
		slog.String("flag", name),
		slog.String("value", value),
	)
	return s.flags.Raw(), nil
}
