// Command migrate applies, inspects and rolls back the ShutterHub schema.
//
//	migrate up            apply pending SQL migrations
//	migrate auto          run gorm AutoMigrate regardless of DB_SCHEMA_MODE
//	migrate status        print the schema policy and pending migrations
//	migrate verify        exit non-zero if applied migrations drifted
//	migrate list          print the migrations embedded in this build
//	migrate down [ver]    roll back the latest applied migration
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"shutterhub/internal/config"
	"shutterhub/internal/database"
	"shutterhub/internal/middleware"

	"gorm.io/gorm"
)

var errUsage = errors.New("usage: migrate <up|auto|status|verify|list|down> [version]")

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, errUsage) }
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flag.Args()); err != nil {
		middleware.Logger.Error("migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	cmd := strings.ToLower(strings.TrimSpace(args[0]))

	// list needs no database.
	if cmd == "list" {
		migs, err := database.GetMigrations()
		if err != nil {
			return err
		}
		for _, m := range migs {
			fmt.Printf("%s  %s\n", m, m.Checksum[:12])
		}
		return nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch cmd {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
		middleware.Logger.Info("sql migrations applied")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply: %w", err)
		}
		middleware.Logger.Info("automigrate applied")
	case "status", "verify":
		return status(ctx, db, cfg, cmd == "verify")
	case "down":
		return down(ctx, db, cfg, args[1:])
	default:
		return errUsage
	}
	return nil
}

func status(ctx context.Context, db *gorm.DB, cfg *config.Config, strict bool) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status: %w", err)
	}
	middleware.Logger.Info("schema status",
		slog.String("mode", st.Mode),
		slog.String("env", st.Environment),
		slog.Bool("run_sql", st.WillRunSQL),
		slog.Bool("run_auto", st.WillRunAutoMigrate),
		slog.Int("applied", len(st.AppliedVersions)),
		slog.Int("pending", len(st.PendingMigrations)),
	)
	for _, m := range st.PendingMigrations {
		fmt.Println("pending:", m)
	}
	if st.Problem != "" {
		if strict {
			return errors.New(st.Problem)
		}
		middleware.Logger.Warn("schema problem", slog.String("problem", st.Problem))
	}
	return nil
}

func down(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error {
	var version int
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		version = v
	} else {
		st, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status: %w", err)
		}
		if len(st.AppliedVersions) == 0 {
			return errors.New("no applied migrations to roll back")
		}
		version = st.AppliedVersions[len(st.AppliedVersions)-1]
	}

	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	middleware.Logger.Info("migration rolled back", slog.Int("version", version))
	return nil
}
