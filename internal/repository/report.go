package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shutterhub/internal/models"

	"gorm.io/gorm"
)

// ErrReportClosed is returned when an action targets a report that is no longer pending.
var ErrReportClosed = models.NewConflictError("report has already been closed")

// ReportFilter narrows the moderation queue.
type ReportFilter struct {
	Status      models.ReportStatus
	ContentType string
}

// ReportActionParams describes one moderator decision.
type ReportActionParams struct {
	ReportID uint
	AdminID  uint
	Action   models.ReportAction
	Note     string
	Now      time.Time
}

// ReportActionOutcome is what ApplyAction changed. Notifications were inserted in the same
// transaction and still need publishing.
type ReportActionOutcome struct {
	Report        *models.Report
	WarningCount  int
	Suspended     bool
	Notifications []models.Notification
}

// ReportRepository defines persistence operations for reports and moderation actions.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	List(ctx context.Context, filter ReportFilter, limit, offset int) ([]models.Report, int64, error)
	HasPending(ctx context.Context, reporterID uint, ref models.ContentRef) (bool, error)
	CountForUser(ctx context.Context, userID uint) (against int64, filed int64, err error)
	ApplyAction(ctx context.Context, params ReportActionParams) (*ReportActionOutcome, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	return writeErr(r.db.WithContext(ctx).Create(report).Error, "you already have a pending report for this content")
}

func (r *reportRepository) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		Preload("Reporter").
		Preload("ReportedUser").
		First(&report, id).Error
	if err != nil {
		return nil, findErr(err, "Report", id)
	}
	return &report, nil
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter, limit, offset int) ([]models.Report, int64, error) {
	limit, offset = clampPage(limit, offset)
	q := r.db.WithContext(ctx).Model(&models.Report{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ContentType != "" {
		q = q.Where("content_type = ?", filter.ContentType)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	var reports []models.Report
	err := q.Preload("Reporter").Preload("ReportedUser").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&reports).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return reports, total, nil
}

func (r *reportRepository) HasPending(ctx context.Context, reporterID uint, ref models.ContentRef) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("reporter_id = ? AND content_type = ? AND content_id = ? AND status = ?",
			reporterID, string(ref.Kind()), ref.ID(), models.ReportStatusPending).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// CountForUser returns how many reports target userID and how many they filed.
func (r *reportRepository) CountForUser(ctx context.Context, userID uint) (int64, int64, error) {
	var against, filed int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Report{}).Where("reported_user_id = ?", userID).Count(&against).Error; err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	if err := db.Model(&models.Report{}).Where("reporter_id = ?", userID).Count(&filed).Error; err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	return against, filed, nil
}

// ApplyAction closes a pending report and performs its side effect in one transaction.
// The status change is conditional on the report still being pending, so when two
// moderators race the second one gets ErrReportClosed and nothing else is written.
func (r *reportRepository) ApplyAction(ctx context.Context, p ReportActionParams) (*ReportActionOutcome, error) {
	if !p.Action.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("unknown action %q", p.Action))
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	outcome := &ReportActionOutcome{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report models.Report
		if err := tx.First(&report, p.ReportID).Error; err != nil {
			return findErr(err, "Report", p.ReportID)
		}
		if report.Status != models.ReportStatusPending {
			return ErrReportClosed
		}

		// Side effects run before the status flip so a failure leaves the report pending.
		switch p.Action {
		case models.ActionHide:
			if err := hideContent(tx, &report); err != nil {
				return err
			}
		case models.ActionWarn:
			if err := warnUser(tx, &report, p, outcome); err != nil {
				return err
			}
		}

		action := p.Action
		res := tx.Model(&models.Report{}).
			Where("id = ? AND status = ?", p.ReportID, models.ReportStatusPending).
			Updates(map[string]interface{}{
				"status":          p.Action.ResultingStatus(),
				"action":          action,
				"resolution_note": p.Note,
				"resolved_by":     p.AdminID,
				"resolved_at":     p.Now,
			})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrReportClosed
		}

		report.Status = p.Action.ResultingStatus()
		report.Action = &action
		report.ResolutionNote = p.Note
		report.ResolvedBy = &p.AdminID
		report.ResolvedAt = &p.Now
		outcome.Report = &report
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func hideContent(tx *gorm.DB, report *models.Report) error {
	ref, err := report.Ref()
	if err != nil {
		return err
	}
	hideable, ok := ref.(models.Hideable)
	if !ok {
		return models.NewValidationError(fmt.Sprintf("content type %q cannot be hidden", ref.Kind()))
	}
	res := tx.Table(hideable.HideTable()).Where("id = ?", ref.ID()).Update("is_hidden", true)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(string(ref.Kind()), ref.ID())
	}
	return nil
}

func warnUser(tx *gorm.DB, report *models.Report, p ReportActionParams, outcome *ReportActionOutcome) error {
	if report.ReportedUserID == nil {
		return models.NewValidationError("report has no reported user to warn")
	}
	userID := *report.ReportedUserID

	res := tx.Model(&models.Profile{}).Where("user_id = ?", userID).
		UpdateColumn("warning_count", gorm.Expr("warning_count + 1"))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", userID)
	}

	var profile models.Profile
	if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return findErr(err, "Profile", userID)
	}
	outcome.WarningCount = profile.WarningCount

	ref, _ := report.Ref()
	warning := models.Notification{
		UserID:  userID,
		Type:    models.NotificationWarning,
		ActorID: &p.AdminID,
		Title:   "You received a warning",
		Body: fmt.Sprintf("A moderator warned you about your %s (%s). Warnings: %d of %d.",
			report.ContentType, report.Reason, profile.WarningCount, models.SuspensionWarningThreshold),
	}
	warning.SetRef(ref)
	if err := tx.Create(&warning).Error; err != nil {
		return models.NewInternalError(err)
	}
	outcome.Notifications = append(outcome.Notifications, warning)

	if profile.WarningCount < models.SuspensionWarningThreshold {
		return nil
	}

	until := p.Now.Add(models.SuspensionDuration)
	err := tx.Model(&models.Profile{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"is_suspended":    true,
		"suspended_until": until,
	}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	outcome.Suspended = true

	suspended := models.Notification{
		UserID:  userID,
		Type:    models.NotificationSuspended,
		ActorID: &p.AdminID,
		Title:   "Your account is suspended",
		Body:    fmt.Sprintf("You reached %d warnings. Posting is disabled until %s.", profile.WarningCount, until.UTC().Format(time.RFC3339)),
	}
	suspended.SetRef(models.UserRef{UserID: userID})
	if err := tx.Create(&suspended).Error; err != nil {
		return models.NewInternalError(err)
	}
	outcome.Notifications = append(outcome.Notifications, suspended)
	return nil
}

// IsReportClosed reports whether err came from acting on a non-pending report.
func IsReportClosed(err error) bool {
	return errors.Is(err, ErrReportClosed)
}
