package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"shutterhub/internal/middleware"

	"gorm.io/gorm"
)

// migrationLockKey is the Postgres advisory lock held while migrations run, so two
// instances starting together do not apply the same script twice.
const migrationLockKey = 7_240_915

// MigrationLog is a row of migration_logs.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	Checksum  string    `gorm:"size:64"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

const ensureMigrationLogTableSQL = `
CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	checksum VARCHAR(64) NOT NULL DEFAULT '',
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

func appliedLogs(ctx context.Context, db *gorm.DB) ([]MigrationLog, error) {
	var logs []MigrationLog
	err := db.WithContext(ctx).Order("version ASC").Find(&logs).Error
	if err != nil {
		if isMissingTableError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load applied migrations: %w", err)
	}
	return logs, nil
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

// RunMigrations applies every pending migration in version order. Each script and its
// log row commit together. Applied migrations whose file changed, or versions present in
// the database but not in the binary, stop the run.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	all, err := GetMigrations()
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec(ensureMigrationLogTableSQL).Error; err != nil {
		return fmt.Errorf("ensure migration_logs: %w", err)
	}

	unlock, err := lockMigrations(ctx, db)
	if err != nil {
		return err
	}
	defer unlock()

	logs, err := appliedLogs(ctx, db)
	if err != nil {
		return err
	}
	if err := checkApplied(logs, all); err != nil {
		return err
	}

	applied := make(map[int]bool, len(logs))
	for _, l := range logs {
		applied[l.Version] = true
	}

	for _, m := range all {
		if applied[m.Version] {
			continue
		}
		start := time.Now()
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.UpScript).Error; err != nil {
				return fmt.Errorf("apply %s: %w", m, err)
			}
			return tx.Create(&MigrationLog{Version: m.Version, Name: m.Name, Checksum: m.Checksum}).Error
		})
		if err != nil {
			return err
		}
		middleware.Logger.Info("migration applied",
			slog.String("migration", m.String()),
			slog.Duration("took", time.Since(start)),
		)
	}
	return nil
}

// lockMigrations takes the advisory lock on Postgres and is a no-op elsewhere.
func lockMigrations(ctx context.Context, db *gorm.DB) (func(), error) {
	if db.Dialector.Name() != "postgres" {
		return func() {}, nil
	}
	if err := db.WithContext(ctx).Exec("SELECT pg_advisory_lock(?)", migrationLockKey).Error; err != nil {
		return nil, fmt.Errorf("acquire migration lock: %w", err)
	}
	return func() {
		if err := db.Exec("SELECT pg_advisory_unlock(?)", migrationLockKey).Error; err != nil {
			middleware.Logger.Warn("failed to release migration lock", slog.String("error", err.Error()))
		}
	}, nil
}

// checkApplied rejects versions unknown to this binary and applied scripts whose
// checksum no longer matches. Rows written before checksums existed are skipped.
func checkApplied(logs []MigrationLog, registered []Migration) error {
	known := make(map[int]Migration, len(registered))
	for _, m := range registered {
		known[m.Version] = m
	}

	var unknown, drifted []string
	for _, l := range logs {
		m, ok := known[l.Version]
		if !ok {
			unknown = append(unknown, fmt.Sprintf("%06d", l.Version))
			continue
		}
		if l.Checksum != "" && l.Checksum != m.Checksum {
			drifted = append(drifted, m.String())
		}
	}
	sort.Strings(unknown)

	switch {
	case len(unknown) > 0:
		return fmt.Errorf("migration_logs has versions this build does not know: %s (roll them back with `migrate down` or rebuild the database)",
			strings.Join(unknown, ", "))
	case len(drifted) > 0:
		return fmt.Errorf("applied migrations were edited after release: %s (add a new migration instead)",
			strings.Join(drifted, ", "))
	}
	return nil
}

// RollbackMigration runs the down script of version, which must be the latest applied
// migration, and removes its log row in the same transaction.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m, err := GetMigrationByVersion(version)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	logs, err := appliedLogs(ctx, db)
	if err != nil {
		return err
	}
	if len(logs) == 0 || logs[len(logs)-1].Version != version {
		return fmt.Errorf("migration %d is not the latest applied migration", version)
	}

	middleware.Logger.Info("rolling back migration", slog.String("migration", m.String()))
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("roll back %s: %w", m, err)
		}
		return tx.Where("version = ?", version).Delete(&MigrationLog{}).Error
	})
}
