package database

import (
	"context"
	"testing"
	"testing/fstest"

	"shutterhub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestDSNs(t *testing.T) {
	cfg := &config.Config{
		DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "shutterhub",
		DBReadHost: "replica", DBReadPort: "5433", DBReadUser: "ru", DBReadPassword: "rp",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shutterhub sslmode=disable", primaryDSN(cfg))
	assert.Equal(t, "host=replica port=5433 user=ru password=rp dbname=shutterhub sslmode=disable", replicaDSN(cfg))

	cfg.DBSSLMode = "require"
	assert.Contains(t, primaryDSN(cfg), "sslmode=require")
}

func TestReadDBFallback(t *testing.T) {
	t.Cleanup(func() { SetReadDB(nil) })
	assert.Nil(t, GetReadDB())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	SetReadDB(db)
	assert.Same(t, db, GetReadDB())
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		env     string
		allow   bool
		wantSQL bool
		wantAut bool
		wantErr bool
	}{
		{"hybrid dev", "hybrid", "development", false, true, true, false},
		{"hybrid prod", "hybrid", "production", false, true, false, false},
		{"empty mode defaults to hybrid", "", "test", false, true, true, false},
		{"sql only", "sql", "development", false, true, false, false},
		{"auto dev", "auto", "development", false, false, true, false},
		{"auto prod refused", "auto", "production", false, false, false, true},
		{"auto prod allowed", "auto", "production", true, false, true, false},
		{"unknown", "yolo", "development", false, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{DBSchemaMode: tt.mode, Env: tt.env, DBAutoMigrateAllowDestructive: tt.allow}
			runSQL, runAuto, err := schemaPolicy(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAut, runAuto)
		})
	}
}

func TestRegisteredMigrations(t *testing.T) {
	migs, err := GetMigrations()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(migs), 2)
	assert.Equal(t, 1, migs[0].Version)
	assert.Equal(t, "init_schema", migs[0].Name)
	assert.Len(t, migs[0].Checksum, 64)
	assert.Contains(t, migs[1].UpScript, "idx_reports_pending_unique")
	assert.Equal(t, "000002_integrity_constraints", migs[1].String())

	m, err := GetMigrationByVersion(2)
	require.NoError(t, err)
	assert.NotNil(t, m)
	m, err = GetMigrationByVersion(999)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestLoadMigrations_RejectsBadFiles(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
		want  string
	}{
		{"missing down", fstest.MapFS{
			"m/000001_photos.up.sql": {Data: []byte("SELECT 1;")},
		}, "no down script"},
		{"bad version", fstest.MapFS{
			"m/first_photos.up.sql":   {Data: []byte("SELECT 1;")},
			"m/first_photos.down.sql": {Data: []byte("SELECT 1;")},
		}, "not a positive number"},
		{"no name", fstest.MapFS{
			"m/000001.up.sql":   {Data: []byte("SELECT 1;")},
			"m/000001.down.sql": {Data: []byte("SELECT 1;")},
		}, "want <version>_<name>"},
		{"duplicate version", fstest.MapFS{
			"m/000001_photos.up.sql":    {Data: []byte("SELECT 1;")},
			"m/000001_photos.down.sql":  {Data: []byte("SELECT 1;")},
			"m/000001_reports.up.sql":   {Data: []byte("SELECT 2;")},
			"m/000001_reports.down.sql": {Data: []byte("SELECT 2;")},
		}, "used by both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMigrations(tt.files, "m")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadMigrations_SortsAndChecksums(t *testing.T) {
	files := fstest.MapFS{
		"m/000010_ratings.up.sql":   {Data: []byte("ALTER TABLE photo_ratings ADD CHECK (rating BETWEEN 1 AND 5);")},
		"m/000010_ratings.down.sql": {Data: []byte("SELECT 1;")},
		"m/000002_photos.up.sql":    {Data: []byte("CREATE TABLE photos (id BIGINT);")},
		"m/000002_photos.down.sql":  {Data: []byte("DROP TABLE photos;")},
		"m/README.md":               {Data: []byte("ignored")},
	}
	migs, err := LoadMigrations(files, "m")
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Equal(t, []int{2, 10}, []int{migs[0].Version, migs[1].Version})
	assert.NotEqual(t, migs[0].Checksum, migs[1].Checksum)
}

func TestCheckApplied(t *testing.T) {
	registered := []Migration{{Version: 1, Name: "init_schema", Checksum: "aaa"}, {Version: 2, Name: "integrity_constraints", Checksum: "bbb"}}

	assert.NoError(t, checkApplied(nil, registered))
	assert.NoError(t, checkApplied([]MigrationLog{{Version: 1, Checksum: "aaa"}, {Version: 2}}, registered))
	assert.ErrorContains(t, checkApplied([]MigrationLog{{Version: 1}, {Version: 7}}, registered), "000007")
	assert.ErrorContains(t, checkApplied([]MigrationLog{{Version: 2, Checksum: "zzz"}}, registered), "000002_integrity_constraints")
}

func TestRollbackMigration_OnlyLatest(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, db.AutoMigrate(&MigrationLog{}))

	all, err := GetMigrations()
	require.NoError(t, err)
	require.NoError(t, db.Create(&MigrationLog{Version: 1, Name: all[0].Name, Checksum: all[0].Checksum}).Error)

	logs, err := appliedLogs(ctx, db)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	assert.ErrorContains(t, RollbackMigration(ctx, db, 2), "not the latest applied")
	assert.ErrorContains(t, RollbackMigration(ctx, db, 999), "not found")
}

func TestAppliedLogs_MissingTable(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	logs, err := appliedLogs(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, logs)
}
