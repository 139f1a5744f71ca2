// Command main runs the database seeder for ShutterHub.
package main

import (
	"context"
	"flag"
	"log"

	"shutterhub/internal/config"
	"shutterhub/internal/database"
	"shutterhub/internal/seed"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 30, "Number of users to create")
	numPhotos := flag.Int("photos", 120, "Number of photos to create")
	numTopics := flag.Int("topics", 40, "Number of forum topics to create")
	numListings := flag.Int("listings", 25, "Number of marketplace listings to create")
	maxDays := flag.Int("days", 60, "Spread created_at timestamps over this many days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Skip bcrypt for demo passwords (throwaway databases only)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d photos, %d topics, %d listings, clean=%v\n",
		*numUsers, *numPhotos, *numTopics, *numListings, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		NumUsers:    *numUsers,
		NumPhotos:   *numPhotos,
		NumTopics:   *numTopics,
		NumListings: *numListings,
		ShouldClean: *shouldClean,
		SkipBcrypt:  *fast,
		MaxDays:     *maxDays,
	})

	summary, err := s.Seed(ctx)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("📦 users=%d photos=%d ratings=%d comments=%d topics=%d replies=%d listings=%d",
		summary.Users, summary.Photos, summary.Ratings, summary.Comments,
		summary.Topics, summary.Replies, summary.Listings)
	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", seed.DemoPassword)
}
