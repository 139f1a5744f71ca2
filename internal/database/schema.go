package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"shutterhub/internal/config"
	"shutterhub/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes selected by DB_SCHEMA_MODE.
const (
	// SchemaModeHybrid runs SQL migrations, plus AutoMigrate outside production.
	SchemaModeHybrid = "hybrid"
	// SchemaModeSQL runs SQL migrations only.
	SchemaModeSQL = "sql"
	// SchemaModeAuto runs AutoMigrate only. Production needs an explicit opt-in.
	SchemaModeAuto = "auto"
)

// SchemaStatus is what ApplySchema would do, reported by `migrate status`.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
	// Problem is set when RunMigrations would refuse to start.
	Problem string
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

func normalizedSchemaMode(cfg *config.Config) string {
	if mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode != "" {
		return mode
	}
	return SchemaModeHybrid
}

func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	prodLike := isProdLikeEnv(cfg.Env)

	switch mode := normalizedSchemaMode(cfg); mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return false, false, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return false, true, nil
	case SchemaModeHybrid:
		return true, !prodLike, nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// ApplySchema brings the database up to date according to DB_SCHEMA_MODE. SQL
// migrations run first so their CHECK constraints and partial indexes exist before
// AutoMigrate adds any new columns.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !runAuto {
		return nil
	}

	mode := normalizedSchemaMode(cfg)
	if mode == SchemaModeAuto && isProdLikeEnv(cfg.Env) {
		middleware.Logger.Warn("AutoMigrate enabled in a production-like environment; review schema diffs before deploying",
			slog.String("env", cfg.Env))
	}
	middleware.Logger.Info("running gorm automigrate",
		slog.String("mode", mode),
		slog.String("env", cfg.Env),
		slog.Int("models", len(PersistentModels())),
	)
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the schema policy and, when SQL migrations are in play, the
// applied and pending versions.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               normalizedSchemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}
	if !runSQL {
		return status, nil
	}

	all, err := GetMigrations()
	if err != nil {
		return nil, err
	}
	logs, err := appliedLogs(ctx, db)
	if err != nil {
		return nil, err
	}
	if err := checkApplied(logs, all); err != nil {
		status.Problem = err.Error()
	}

	applied := make(map[int]bool, len(logs))
	for _, l := range logs {
		applied[l.Version] = true
		status.AppliedVersions = append(status.AppliedVersions, l.Version)
	}
	for _, m := range all {
		if !applied[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
