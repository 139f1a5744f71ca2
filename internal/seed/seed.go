// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"shutterhub/internal/database"
	"shutterhub/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPhotos   int
	NumTopics   int
	NumListings int
	ShouldClean bool
	// SkipBcrypt stores the demo password unhashed; only for throwaway databases.
	SkipBcrypt bool
	// MaxDays spreads created_at timestamps over the last MaxDays days.
	MaxDays int
}

// Seeder writes catalog and demo data.
type Seeder struct {
	db   *gorm.DB
	opts Options
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts}
}

// Summary counts the demo rows Seed created.
type Summary struct {
	Catalog  *CatalogResult
	Users    int
	Photos   int
	Ratings  int
	Comments int
	Topics   int
	Replies  int
	Listings int
}

// Seed loads the catalog and then fills the database with demo users and content.
func (s *Seeder) Seed(ctx context.Context) (*Summary, error) {
	log.Printf("🌱 Starting database seeding with %d users and %d photos...", s.opts.NumUsers, s.opts.NumPhotos)

	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Printf("⚠️  Warning: could not clear existing data (%v), continuing anyway...", err)
		}
	}

	catalog, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	summary := &Summary{}
	if summary.Catalog, err = s.SeedCatalog(ctx, catalog); err != nil {
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}
	log.Printf("✓ catalog: %d forum categories, %d homepage sections", summary.Catalog.Categories, summary.Catalog.Sections)

	factory := NewFactory(s.db, catalog, s.opts)

	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := factory.CreateUser(ctx)
		if err != nil {
			log.Printf("Failed to create user: %v", err)
			continue
		}
		users = append(users, user)
	}
	summary.Users = len(users)
	log.Printf("✓ %d demo users created", summary.Users)
	if len(users) == 0 {
		return summary, nil
	}

	//nolint:gosec // Weak random number generator is fine for seeding
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	pick := func() *models.User { return users[r.Intn(len(users))] }

	for i := 0; i < s.opts.NumPhotos; i++ {
		photo, err := factory.CreatePhoto(ctx, pick())
		if err != nil {
			return summary, fmt.Errorf("failed to create photo: %w", err)
		}
		summary.Photos++

		for n := r.Intn(4); n > 0; n-- {
			rater := pick()
			if rater.ID == photo.UserID {
				continue
			}
			if err := factory.RatePhoto(ctx, rater, photo, 1+r.Intn(5)); err != nil {
				return summary, fmt.Errorf("failed to rate photo: %w", err)
			}
			summary.Ratings++
		}
		for n := r.Intn(3); n > 0; n-- {
			if _, err := factory.CreateComment(ctx, pick(), photo); err != nil {
				return summary, fmt.Errorf("failed to comment photo: %w", err)
			}
			summary.Comments++
		}
	}
	log.Printf("✓ %d photos, %d ratings, %d comments created", summary.Photos, summary.Ratings, summary.Comments)

	for i := 0; i < s.opts.NumTopics; i++ {
		topic, err := factory.CreateTopic(ctx, pick())
		if err != nil {
			return summary, fmt.Errorf("failed to create topic: %w", err)
		}
		summary.Topics++
		for n := r.Intn(5); n > 0; n-- {
			if _, err := factory.CreateReply(ctx, pick(), topic); err != nil {
				return summary, fmt.Errorf("failed to create reply: %w", err)
			}
			summary.Replies++
		}
	}
	log.Printf("✓ %d topics, %d replies created", summary.Topics, summary.Replies)

	for i := 0; i < s.opts.NumListings; i++ {
		if _, err := factory.CreateListing(ctx, pick()); err != nil {
			return summary, fmt.Errorf("failed to create listing: %w", err)
		}
		summary.Listings++
	}
	log.Printf("✓ %d marketplace listings created", summary.Listings)

	log.Println("🎉 Database seeding completed successfully!")
	return summary, nil
}

// ClearAll removes every row of every schema-managed table, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("🗑️  Clearing existing data...")
	persistent := database.PersistentModels()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := len(persistent) - 1; i >= 0; i-- {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(persistent[i]).Error; err != nil {
				return fmt.Errorf("clear %T: %w", persistent[i], err)
			}
		}
		return nil
	})
}
