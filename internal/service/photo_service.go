package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"shutterhub/internal/cache"
	"shutterhub/internal/featureflags"
	"shutterhub/internal/middleware"
	"shutterhub/internal/models"
	"shutterhub/internal/observability"
	"shutterhub/internal/repository"
	"shutterhub/internal/storage"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxPhotoTitleLen = 200
	maxPhotoTags     = 10
	maxTagLen        = 50
	// MaxBatchUpload caps the files accepted by one batch upload.
	MaxBatchUpload = 10
)

// PhotoMetadata is the descriptive part of an upload.
type PhotoMetadata struct {
	Title        string
	Description  string
	Category     string
	CameraBrand  string
	CameraModel  string
	Lens         string
	FocalLength  string
	Aperture     string
	ShutterSpeed string
	ISO          int
	Tags         []string
}

// UploadPhotoInput is one photo upload.
type UploadPhotoInput struct {
	UserID   uint
	File     UploadFile
	Metadata PhotoMetadata
}

// UploadPhotosInput is a batch upload sharing one metadata block.
type UploadPhotosInput struct {
	UserID   uint
	Files    []UploadFile
	Metadata PhotoMetadata
}

// BatchUploadResult reports a sequential batch upload. Photos uploaded before FailedIndex
// stay stored.
type BatchUploadResult struct {
	Uploaded    []models.Photo `json:"uploaded"`
	FailedIndex *int           `json:"failed_index,omitempty"`
	Error       string         `json:"error,omitempty"`
	Err         error          `json:"-"`
}

// ListPhotosInput is a gallery query.
type ListPhotosInput struct {
	Category     string
	CameraBrand  string
	UserID       uint
	Tag          string
	FeaturedOnly bool
	Sort         string
	Limit        int
	Offset       int
}

// UpdatePhotoInput edits a photo. Nil fields are left untouched; a nil Tags slice keeps the
// current tags.
type UpdatePhotoInput struct {
	UserID       uint
	PhotoID      uint
	Title        *string
	Description  *string
	Category     *string
	CameraBrand  *string
	CameraModel  *string
	Lens         *string
	FocalLength  *string
	Aperture     *string
	ShutterSpeed *string
	ISO          *int
	Tags         []string
}

// LikeState is the like status of a photo after a like or unlike.
type LikeState struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// PhotoServiceDeps wires a PhotoService.
type PhotoServiceDeps struct {
	Photos   repository.PhotoRepository
	Ratings  repository.RatingRepository
	Users    repository.UserRepository
	Store    storage.ObjectStore
	Images   *ImageProcessor
	Quota    QuotaPolicy
	Notifier NotificationSender
	Flags    *featureflags.Manager
	IsAdmin  func(ctx context.Context, userID uint) (bool, error)
}

// PhotoService runs the gallery: uploads under the daily quota, likes, ratings and
// recommendations.
type PhotoService struct {
	photos   repository.PhotoRepository
	ratings  repository.RatingRepository
	users    repository.UserRepository
	store    storage.ObjectStore
	images   *ImageProcessor
	quota    QuotaPolicy
	notifier NotificationSender
	flags    *featureflags.Manager
	gate     *PostingGate
	isAdmin  func(ctx context.Context, userID uint) (bool, error)
	now      func() time.Time
}

// NewPhotoService creates a PhotoService.
func NewPhotoService(deps PhotoServiceDeps) *PhotoService {
	images := deps.Images
	if images == nil {
		images = NewImageProcessor(0)
	}
	return &PhotoService{
		photos:   deps.Photos,
		ratings:  deps.Ratings,
		users:    deps.Users,
		store:    deps.Store,
		images:   images,
		quota:    deps.Quota,
		notifier: deps.Notifier,
		flags:    deps.Flags,
		gate:     NewPostingGate(deps.Users),
		isAdmin:  deps.IsAdmin,
		now:      time.Now,
	}
}

// UploadPhoto stores one photo. A quota slot is reserved atomically before any work and
// released again if the upload fails, so concurrent uploads never exceed the limit.
func (s *PhotoService) UploadPhoto(ctx context.Context, in UploadPhotoInput) (*models.Photo, error) {
	span, ctx := observability.NewSpan(ctx, "photos.upload")
	defer span.End()
	span.AddAttributes(attribute.Int64("user.id", int64(in.UserID)))

	photo, err := s.uploadPhoto(ctx, in)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.AddAttributes(attribute.Int64("photo.id", int64(photo.ID)))
	return photo, nil
}

func (s *PhotoService) uploadPhoto(ctx context.Context, in UploadPhotoInput) (*models.Photo, error) {
	meta, err := normalizeMetadata(in.Metadata, in.File.Filename)
	if err != nil {
		observability.PhotoUploads.WithLabelValues("invalid").Inc()
		return nil, err
	}

	profile, err := s.users.GetProfile(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if profile, err = s.gate.settle(ctx, profile); err != nil {
		return nil, err
	}

	now := s.now()
	day := s.quota.Day(now)
	limit := s.quota.LimitFor(profile)
	reserved, err := s.users.ReserveUpload(ctx, in.UserID, day, limit)
	if err != nil {
		observability.PhotoUploads.WithLabelValues("failed").Inc()
		return nil, err
	}
	if !reserved {
		observability.PhotoUploads.WithLabelValues("quota_exceeded").Inc()
		observability.QuotaRejections.WithLabelValues(s.quota.Tier(profile)).Inc()
		return nil, models.NewQuotaExceededError(fmt.Sprintf("Daily upload limit reached (%d per day)", limit))
	}

	photo, err := s.storePhoto(ctx, in.UserID, in.File, meta)
	if err != nil {
		if relErr := s.users.ReleaseUpload(ctx, in.UserID, day); relErr != nil {
			middleware.Logger.WarnContext(ctx, "failed to release upload quota slot", "user_id", in.UserID, "error", relErr)
		}
		outcome := "failed"
		if models.ErrorCode(err) == models.CodeValidation {
			outcome = "invalid"
		}
		observability.PhotoUploads.WithLabelValues(outcome).Inc()
		return nil, err
	}

	observability.PhotoUploads.WithLabelValues("stored").Inc()
	return photo, nil
}

func (s *PhotoService) storePhoto(ctx context.Context, userID uint, file UploadFile, meta PhotoMetadata) (*models.Photo, error) {
	processed, err := s.images.Process(file)
	if err != nil {
		return nil, err
	}

	imageKey, imageURL, err := putObject(ctx, s.store, "photos", userID, processed.Original, processed.OriginalType)
	if err != nil {
		return nil, err
	}
	stored := []storedObject{{store: s.store, key: imageKey}}
	thumbKey, thumbURL, err := putObject(ctx, s.store, "thumbnails", userID, processed.Thumbnail, processed.ThumbnailType)
	if err != nil {
		removeObjects(ctx, stored...)
		return nil, err
	}
	stored = append(stored, storedObject{store: s.store, key: thumbKey})

	photo := &models.Photo{
		UserID:       userID,
		Title:        meta.Title,
		Description:  meta.Description,
		ImageURL:     imageURL,
		ImageKey:     imageKey,
		ThumbnailURL: thumbURL,
		ThumbnailKey: thumbKey,
		Width:        processed.Width,
		Height:       processed.Height,
		Category:     meta.Category,
		CameraBrand:  meta.CameraBrand,
		CameraModel:  meta.CameraModel,
		Lens:         meta.Lens,
		FocalLength:  meta.FocalLength,
		Aperture:     meta.Aperture,
		ShutterSpeed: meta.ShutterSpeed,
		ISO:          meta.ISO,
	}
	for _, tag := range meta.Tags {
		photo.Tags = append(photo.Tags, models.PhotoTag{Tag: tag})
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		removeObjects(ctx, stored...)
		return nil, err
	}
	return photo, nil
}

// UploadPhotos uploads files one after another and stops at the first failure. Photos
// stored before the failure are kept.
func (s *PhotoService) UploadPhotos(ctx context.Context, in UploadPhotosInput) (*BatchUploadResult, error) {
	if len(in.Files) == 0 {
		return nil, models.NewValidationError("At least one image is required")
	}
	if len(in.Files) > MaxBatchUpload {
		return nil, models.NewValidationError(fmt.Sprintf("Too many images (max %d per request)", MaxBatchUpload))
	}

	result := &BatchUploadResult{Uploaded: make([]models.Photo, 0, len(in.Files))}
	for i, file := range in.Files {
		meta := in.Metadata
		if len(in.Files) > 1 {
			meta.Title = ""
			if in.Metadata.Title != "" {
				meta.Title = fmt.Sprintf("%s (%d)", in.Metadata.Title, i+1)
			}
		}
		photo, err := s.UploadPhoto(ctx, UploadPhotoInput{UserID: in.UserID, File: file, Metadata: meta})
		if err != nil {
			idx := i
			result.FailedIndex = &idx
			result.Error = errorMessage(err)
			result.Err = err
			return result, nil
		}
		result.Uploaded = append(result.Uploaded, *photo)
	}
	return result, nil
}

// GetPhoto returns a photo and counts the view. Hidden photos are only visible to their
// owner and admins.
func (s *PhotoService) GetPhoto(ctx context.Context, photoID, viewerID uint) (*models.Photo, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo.IsHidden && !canSeeHidden(ctx, s.isAdmin, viewerID, photo.UserID) {
		return nil, models.NewNotFoundError("Photo", photoID)
	}
	if err := s.photos.IncrementViews(ctx, photoID); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to count photo view", "photo_id", photoID, "error", err)
	} else {
		photo.ViewCount++
	}
	return photo, nil
}

// ListPhotos returns a page of visible photos.
func (s *PhotoService) ListPhotos(ctx context.Context, in ListPhotosInput) ([]models.Photo, int64, error) {
	sort := models.PhotoSort(strings.ToLower(strings.TrimSpace(in.Sort)))
	switch sort {
	case "":
		sort = models.PhotoSortNew
	case models.PhotoSortNew, models.PhotoSortPopular, models.PhotoSortTopRated:
	default:
		return nil, 0, models.NewValidationError("sort must be one of new, popular, top_rated")
	}
	return s.photos.List(ctx, repository.PhotoFilter{
		Category:     strings.TrimSpace(in.Category),
		CameraBrand:  strings.TrimSpace(in.CameraBrand),
		UserID:       in.UserID,
		Tag:          normalizeTag(in.Tag),
		FeaturedOnly: in.FeaturedOnly,
		Sort:         sort,
	}, in.Limit, in.Offset)
}

// ListFeatured returns featured photos in their admin-defined order.
func (s *PhotoService) ListFeatured(ctx context.Context) ([]models.Photo, error) {
	return s.photos.ListFeatured(ctx)
}

// UpdatePhoto edits a photo's metadata. Only the owner or an admin may edit.
func (s *PhotoService) UpdatePhoto(ctx context.Context, in UpdatePhotoInput) (*models.Photo, error) {
	photo, err := s.photos.GetByID(ctx, in.PhotoID)
	if err != nil {
		return nil, err
	}
	if err := ownerOrAdmin(ctx, s.isAdmin, in.UserID, photo.UserID, "edit this photo"); err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, models.NewValidationError("Title is required")
		}
		if utf8.RuneCountInString(title) > maxPhotoTitleLen {
			return nil, models.NewValidationError("Title too long (max 200 characters)")
		}
		photo.Title = title
	}
	setTrimmed(&photo.Description, in.Description)
	setTrimmed(&photo.Category, in.Category)
	setTrimmed(&photo.CameraBrand, in.CameraBrand)
	setTrimmed(&photo.CameraModel, in.CameraModel)
	setTrimmed(&photo.Lens, in.Lens)
	setTrimmed(&photo.FocalLength, in.FocalLength)
	setTrimmed(&photo.Aperture, in.Aperture)
	setTrimmed(&photo.ShutterSpeed, in.ShutterSpeed)
	if in.ISO != nil {
		if *in.ISO < 0 {
			return nil, models.NewValidationError("ISO cannot be negative")
		}
		photo.ISO = *in.ISO
	}

	var tags []string
	if in.Tags != nil {
		if tags, err = normalizeTags(in.Tags); err != nil {
			return nil, err
		}
	}
	if err := s.photos.Update(ctx, photo, tags); err != nil {
		return nil, err
	}
	cache.InvalidatePhotoRecs(ctx, photo.ID)
	return s.photos.GetByID(ctx, photo.ID)
}

// DeletePhoto removes a photo with its comments, ratings, tags, likes and favorites, then
// deletes the stored files best-effort.
func (s *PhotoService) DeletePhoto(ctx context.Context, userID, photoID uint) error {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return err
	}
	if err := ownerOrAdmin(ctx, s.isAdmin, userID, photo.UserID, "delete this photo"); err != nil {
		return err
	}
	if err := s.photos.DeleteCascade(ctx, photoID); err != nil {
		return err
	}
	removeObjects(ctx,
		storedObject{store: s.store, key: photo.ImageKey},
		storedObject{store: s.store, key: photo.ThumbnailKey},
	)
	cache.InvalidatePhotoRecs(ctx, photoID)
	return nil
}

// LikePhoto likes a photo once and notifies its owner on the first like.
func (s *PhotoService) LikePhoto(ctx context.Context, userID, photoID uint) (*LikeState, error) {
	if err := s.gate.Check(ctx, userID); err != nil {
		return nil, err
	}
	photo, err := s.visiblePhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	created, err := s.photos.Like(ctx, photoID, userID)
	if err != nil {
		return nil, err
	}
	if created {
		notifyQuietly(ctx, s.notifier, NotifyInput{
			UserID:  photo.UserID,
			Type:    models.NotificationLike,
			Ref:     models.PhotoRef{PhotoID: photoID},
			ActorID: userID,
			Title:   "New like",
			Body:    fmt.Sprintf("%s liked your photo %q", s.actorName(ctx, userID), photo.Title),
		})
	}
	return s.likeState(ctx, photoID, true)
}

// UnlikePhoto removes a like. Unliking a photo that was not liked is not an error.
func (s *PhotoService) UnlikePhoto(ctx context.Context, userID, photoID uint) (*LikeState, error) {
	if _, err := s.photos.GetByID(ctx, photoID); err != nil {
		return nil, err
	}
	if _, err := s.photos.Unlike(ctx, photoID, userID); err != nil {
		return nil, err
	}
	return s.likeState(ctx, photoID, false)
}

func (s *PhotoService) likeState(ctx context.Context, photoID uint, liked bool) (*LikeState, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	return &LikeState{Liked: liked, LikeCount: photo.LikeCount}, nil
}

// RatePhoto records the caller's 1..5 rating, replacing a previous one, and returns the
// recomputed average.
func (s *PhotoService) RatePhoto(ctx context.Context, userID, photoID uint, rating int) (*repository.RatingStats, error) {
	if rating < models.MinRating || rating > models.MaxRating {
		return nil, models.NewValidationError("Rating must be between 1 and 5")
	}
	if err := s.gate.Check(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.visiblePhoto(ctx, photoID); err != nil {
		return nil, err
	}
	return s.ratings.Upsert(ctx, photoID, userID, rating)
}

// GetMyRating returns the caller's rating, or nil when they have not rated the photo.
func (s *PhotoService) GetMyRating(ctx context.Context, userID, photoID uint) (*models.PhotoRating, error) {
	rating, err := s.ratings.Get(ctx, photoID, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return rating, nil
}

// IsLiked reports whether userID liked photoID.
func (s *PhotoService) IsLiked(ctx context.Context, userID, photoID uint) (bool, error) {
	return s.photos.IsLiked(ctx, photoID, userID)
}

func (s *PhotoService) visiblePhoto(ctx context.Context, photoID uint) (*models.Photo, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo.IsHidden {
		return nil, models.NewNotFoundError("Photo", photoID)
	}
	return photo, nil
}

func (s *PhotoService) actorName(ctx context.Context, userID uint) string {
	return displayName(ctx, s.users, userID)
}

// displayName returns the username of userID, or "Someone" when it cannot be loaded.
func displayName(ctx context.Context, users repository.UserRepository, userID uint) string {
	if users == nil {
		return "Someone"
	}
	profile, err := users.GetProfile(ctx, userID)
	if err != nil || profile.Username == "" {
		return "Someone"
	}
	return profile.Username
}

func normalizeMetadata(meta PhotoMetadata, filename string) (PhotoMetadata, error) {
	meta.Title = strings.TrimSpace(meta.Title)
	if meta.Title == "" && filename != "" {
		base := filepath.Base(filename)
		meta.Title = strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	if meta.Title == "" {
		return meta, models.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(meta.Title) > maxPhotoTitleLen {
		return meta, models.NewValidationError("Title too long (max 200 characters)")
	}
	if meta.ISO < 0 {
		return meta, models.NewValidationError("ISO cannot be negative")
	}
	meta.Description = strings.TrimSpace(meta.Description)
	meta.Category = strings.TrimSpace(meta.Category)
	meta.CameraBrand = strings.TrimSpace(meta.CameraBrand)
	meta.CameraModel = strings.TrimSpace(meta.CameraModel)
	meta.Lens = strings.TrimSpace(meta.Lens)

	tags, err := normalizeTags(meta.Tags)
	if err != nil {
		return meta, err
	}
	meta.Tags = tags
	return meta, nil
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
}

// normalizeTags lowercases, dedupes and bounds a tag list. It never returns nil.
func normalizeTags(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		tag := normalizeTag(t)
		if tag == "" || seen[tag] {
			continue
		}
		if utf8.RuneCountInString(tag) > maxTagLen {
			return nil, models.NewValidationError("Tag too long (max 50 characters)")
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	if len(tags) > maxPhotoTags {
		return nil, models.NewValidationError("Too many tags (max 10)")
	}
	return tags, nil
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// errorMessage is the user-facing text of err.
func errorMessage(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
