// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"shutterhub/internal/models"
	"shutterhub/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "Shutter$Demo2024"

// Factory builds domain entities and persists them through the repositories.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	catalog *Catalog
	opts    Options
	rng     *rand.Rand

	users    repository.UserRepository
	photos   repository.PhotoRepository
	ratings  repository.RatingRepository
	comments repository.CommentRepository
	forum    repository.ForumRepository
	listings repository.ListingRepository

	passwordHash string
	categories   []models.ForumCategory
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, catalog *Catalog, opts Options) *Factory {
	// seed gofakeit for richer content
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		catalog: catalog,
		opts:    opts,
		// #nosec G404: acceptable for seeding
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		users:    repository.NewUserRepository(db),
		photos:   repository.NewPhotoRepository(db),
		ratings:  repository.NewRatingRepository(db),
		comments: repository.NewCommentRepository(db),
		forum:    repository.NewForumRepository(db),
		listings: repository.NewListingRepository(db),
	}
}

func (f *Factory) password() (string, error) {
	if f.opts.SkipBcrypt {
		return DemoPassword, nil
	}
	if f.passwordHash == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
		if err != nil {
			return "", err
		}
		f.passwordHash = string(hash)
	}
	return f.passwordHash, nil
}

// createdAt returns a realistic timestamp within the configured window.
func (f *Factory) createdAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// username builds a valid handle: letters and digits, never starting or ending with a separator.
func (f *Factory) username() string {
	base := strings.ToLower(gofakeit.FirstName())
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, base)
	if len(base) < 3 {
		base = "shooter"
	}
	if len(base) > 20 {
		base = base[:20]
	}
	return fmt.Sprintf("%s_%d", base, gofakeit.Number(1000, 9999))
}

// CreateUser constructs and persists a user with its profile.
// Optional override functions may modify the generated profile before saving.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User, *models.Profile)) (*models.User, error) {
	hash, err := f.password()
	if err != nil {
		return nil, err
	}
	username := f.username()
	user := &models.User{
		Email:    username + "@example.com",
		Password: hash,
	}
	profile := &models.Profile{
		Username:    username,
		DisplayName: gofakeit.Name(),
		Bio:         gofakeit.Sentence(10),
		AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		IsVIP:       f.rng.Float32() < 0.1,
	}
	for _, override := range overrides {
		override(user, profile)
	}
	if err := f.users.Create(ctx, user, profile); err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePhoto persists a photo pointing at a placeholder image. No object is uploaded.
func (f *Factory) CreatePhoto(ctx context.Context, owner *models.User, overrides ...func(*models.Photo)) (*models.Photo, error) {
	brands := f.catalog.Brands()
	brand := brands[f.rng.Intn(len(brands))]
	bodies := f.catalog.CameraBrands[brand]
	seed := gofakeit.UUID()

	photo := &models.Photo{
		UserID:       owner.ID,
		Title:        strings.TrimSuffix(gofakeit.Sentence(4), "."),
		Description:  gofakeit.Paragraph(1, 2, 12, " "),
		ImageURL:     fmt.Sprintf("https://picsum.photos/seed/%s/1600/1067", seed),
		ThumbnailURL: fmt.Sprintf("https://picsum.photos/seed/%s/400/267", seed),
		Width:        1600,
		Height:       1067,
		Category:     f.catalog.PhotoCategories[f.rng.Intn(len(f.catalog.PhotoCategories))],
		CameraBrand:  brand,
		CameraModel:  bodies[f.rng.Intn(len(bodies))],
		FocalLength:  fmt.Sprintf("%dmm", []int{14, 24, 35, 50, 85, 135, 200}[f.rng.Intn(7)]),
		Aperture:     fmt.Sprintf("f/%.1f", []float64{1.4, 1.8, 2.8, 4, 5.6, 8, 11}[f.rng.Intn(7)]),
		ShutterSpeed: fmt.Sprintf("1/%d", []int{30, 60, 125, 250, 500, 1000}[f.rng.Intn(6)]),
		ISO:          []int{100, 200, 400, 800, 1600, 3200}[f.rng.Intn(6)],
		CreatedAt:    f.createdAt(),
	}
	seen := map[string]bool{}
	for _, tag := range []string{photo.Category, gofakeit.HipsterWord(), gofakeit.Adjective()} {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		photo.Tags = append(photo.Tags, models.PhotoTag{Tag: tag})
	}

	for _, override := range overrides {
		override(photo)
	}
	if err := f.photos.Create(ctx, photo); err != nil {
		return nil, err
	}
	return photo, nil
}

// RatePhoto stores rater's score and refreshes the photo aggregate.
func (f *Factory) RatePhoto(ctx context.Context, rater *models.User, photo *models.Photo, rating int) error {
	_, err := f.ratings.Upsert(ctx, photo.ID, rater.ID, rating)
	return err
}

// CreateComment persists a top-level comment on photo.
func (f *Factory) CreateComment(ctx context.Context, author *models.User, photo *models.Photo) (*models.Comment, error) {
	comment := &models.Comment{
		PhotoID: photo.ID,
		UserID:  author.ID,
		Content: gofakeit.Sentence(8),
	}
	if err := f.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (f *Factory) leafCategories(ctx context.Context) ([]models.ForumCategory, error) {
	if f.categories != nil {
		return f.categories, nil
	}
	all, err := f.forum.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if !c.IsRoot() {
			f.categories = append(f.categories, c)
		}
	}
	if len(f.categories) == 0 {
		f.categories = all
	}
	if len(f.categories) == 0 {
		return nil, fmt.Errorf("no forum categories; seed the catalog first")
	}
	return f.categories, nil
}

// CreateTopic persists a forum topic in a random child category.
func (f *Factory) CreateTopic(ctx context.Context, author *models.User) (*models.ForumTopic, error) {
	categories, err := f.leafCategories(ctx)
	if err != nil {
		return nil, err
	}
	category := categories[f.rng.Intn(len(categories))]
	topic := &models.ForumTopic{
		UserID:     author.ID,
		CategoryID: category.ID,
		Category:   category.Slug,
		Title:      strings.TrimSuffix(gofakeit.Question(), "?") + "?",
		Content:    gofakeit.Paragraph(2, 4, 12, "\n\n"),
		CreatedAt:  f.createdAt(),
	}
	if err := f.forum.CreateTopic(ctx, topic); err != nil {
		return nil, err
	}
	return topic, nil
}

// CreateReply persists a reply and bumps the topic counters.
func (f *Factory) CreateReply(ctx context.Context, author *models.User, topic *models.ForumTopic) (*models.ForumReply, error) {
	reply := &models.ForumReply{
		TopicID: topic.ID,
		UserID:  author.ID,
		Content: gofakeit.Paragraph(1, 2, 10, " "),
	}
	if err := f.forum.CreateReply(ctx, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// CreateListing persists a marketplace listing for seller. Roughly half are verified.
func (f *Factory) CreateListing(ctx context.Context, seller *models.User) (*models.MarketplaceListing, error) {
	brands := f.catalog.Brands()
	brand := brands[f.rng.Intn(len(brands))]
	bodies := f.catalog.CameraBrands[brand]
	body := bodies[f.rng.Intn(len(bodies))]
	conditions := []models.ListingCondition{
		models.ConditionNew, models.ConditionLikeNew, models.ConditionGood, models.ConditionFair,
	}

	extra, err := json.Marshal([]string{
		fmt.Sprintf("https://picsum.photos/seed/%s/1200/800", gofakeit.UUID()),
	})
	if err != nil {
		return nil, err
	}

	listing := &models.MarketplaceListing{
		SellerID:             seller.ID,
		Title:                fmt.Sprintf("%s %s", brand, body),
		Description:          gofakeit.Paragraph(1, 3, 10, " "),
		Category:             "cameras",
		Price:                int64(gofakeit.Number(20, 400)) * 1000,
		Currency:             models.DefaultCurrency,
		Condition:            conditions[f.rng.Intn(len(conditions))],
		VerificationImageURL: fmt.Sprintf("https://picsum.photos/seed/verify-%s/800/800", gofakeit.UUID()),
		AdditionalImages:     datatypes.JSON(extra),
		CreatedAt:            f.createdAt(),
	}
	if f.rng.Intn(2) == 0 {
		now := time.Now()
		listing.IsVerified = true
		listing.VerifiedAt = &now
	}
	if err := f.listings.Create(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}
