// Package bootstrap prepares the database and cache shared by the server and the CLIs.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"shutterhub/internal/cache"
	"shutterhub/internal/config"
	"shutterhub/internal/database"
	"shutterhub/internal/models"
	"shutterhub/internal/repository"
	"shutterhub/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	ApplySchema bool
	SeedCatalog bool
}

// InitRuntime connects to DB and Redis, applies the schema policy and optionally seeds the
// built-in catalog.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	// Connect DB
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, nil, fmt.Errorf("schema apply failed: %w", err)
		}
	}

	// The API runs without Redis: caches miss, rate limits open and realtime is off.
	r, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Printf("redis unavailable, continuing without cache: %v", err)
	}

	if err := EnsureDevRootAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedCatalog {
		if err := SeedCatalog(ctx, db); err != nil {
			return nil, nil, err
		}
	}

	return db, r, nil
}

// SeedCatalog upserts the built-in forum categories and homepage sections.
func SeedCatalog(ctx context.Context, db *gorm.DB) error {
	catalog, err := seed.LoadCatalog()
	if err != nil {
		return err
	}
	result, err := seed.NewSeeder(db, seed.Options{}).SeedCatalog(ctx, catalog)
	if err != nil {
		return fmt.Errorf("failed to seed built-in catalog: %w", err)
	}
	log.Printf("built-in catalog ensured (%d categories, %d homepage sections)", result.Categories, result.Sections)
	return nil
}

// EnsureDevRootAdmin creates or promotes the development root account. It does nothing
// outside development or when DEV_BOOTSTRAP_ROOT is off.
func EnsureDevRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "shutterhub_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@shutterhub.local"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	users := repository.NewUserRepository(db)
	root, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound) || models.ErrorCode(err) == models.CodeNotFound:
		hashedPassword, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if hashErr != nil {
			return fmt.Errorf("hash root password: %w", hashErr)
		}
		root = &models.User{Email: email, Password: string(hashedPassword)}
		profile := &models.Profile{Username: username, DisplayName: "Root", IsVerified: true}
		if err := users.Create(ctx, root, profile); err != nil {
			return fmt.Errorf("create root admin: %w", err)
		}
	default:
		return err
	}

	if err := users.SetAdminFlag(ctx, root.ID, true); err != nil {
		return err
	}
	if err := users.GrantRole(ctx, root.ID, models.RoleAdmin); err != nil {
		return err
	}

	log.Printf("development root admin bootstrap ensured for user ID %d (%s)", root.ID, email)
	return nil
}
