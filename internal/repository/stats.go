package repository

import (
	"context"

	"shutterhub/internal/models"

	"gorm.io/gorm"
)

// StatsRepository aggregates back-office counters.
type StatsRepository interface {
	Collect(ctx context.Context) (*models.AdminStats, error)
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) Collect(ctx context.Context) (*models.AdminStats, error) {
	db := readDB(r.db).WithContext(ctx)
	stats := &models.AdminStats{}
	counts := []struct {
		model interface{}
		where string
		args  []interface{}
		dest  *int64
	}{
		{&models.User{}, "", nil, &stats.Users},
		{&models.Photo{}, "", nil, &stats.Photos},
		{&models.ForumTopic{}, "", nil, &stats.Topics},
		{&models.MarketplaceListing{}, "", nil, &stats.Listings},
		{&models.Report{}, "status = ?", []interface{}{models.ReportStatusPending}, &stats.PendingReports},
		{&models.Profile{}, "is_suspended = ?", []interface{}{true}, &stats.SuspendedUsers},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.args...)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return stats, nil
}
