package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"shutterhub/internal/cache"
	"shutterhub/internal/middleware"
	"shutterhub/internal/models"
	"shutterhub/internal/observability"
	"shutterhub/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const maxReportDetailsLen = 2000

// NotificationPublisher pushes the realtime signal for an already stored notification.
type NotificationPublisher interface {
	Publish(ctx context.Context, n *models.Notification)
}

// CreateReportInput flags a piece of content.
type CreateReportInput struct {
	ReporterID uint
	Ref        models.ContentRef
	Reason     string
	Details    string
}

// ReportActionInput is one moderator decision on a pending report.
type ReportActionInput struct {
	AdminID  uint
	ReportID uint
	Action   string
	Note     string
}

// ReportActionResult is returned to the moderator after an action.
type ReportActionResult struct {
	Report       *models.Report `json:"report"`
	WarningCount int            `json:"warning_count,omitempty"`
	Suspended    bool           `json:"suspended"`
}

// ModerationService handles reports and the moderator actions taken on them.
type ModerationService struct {
	reports   repository.ReportRepository
	content   repository.ContentRepository
	users     repository.UserRepository
	publisher NotificationPublisher
	gate      *PostingGate
	now       func() time.Time
}

// NewModerationService returns a new ModerationService.
func NewModerationService(
	reports repository.ReportRepository,
	content repository.ContentRepository,
	users repository.UserRepository,
	publisher NotificationPublisher,
) *ModerationService {
	return &ModerationService{
		reports:   reports,
		content:   content,
		users:     users,
		publisher: publisher,
		gate:      NewPostingGate(users),
		now:       time.Now,
	}
}

// CreateReport files a pending report. The reported user is the content's owner.
func (s *ModerationService) CreateReport(ctx context.Context, in CreateReportInput) (*models.Report, error) {
	if in.Ref == nil {
		return nil, models.NewValidationError("Reported content is required")
	}
	reason := models.ReportReason(strings.ToLower(strings.TrimSpace(in.Reason)))
	if !reason.Valid() {
		return nil, models.NewValidationError("Invalid report reason")
	}
	details := strings.TrimSpace(in.Details)
	if utf8.RuneCountInString(details) > maxReportDetailsLen {
		return nil, models.NewValidationError("Details too long (max 2000 characters)")
	}
	if err := s.gate.Check(ctx, in.ReporterID); err != nil {
		return nil, err
	}

	ownerID, err := s.content.OwnerOf(ctx, in.Ref)
	if err != nil {
		return nil, err
	}
	if ownerID == in.ReporterID {
		return nil, models.NewValidationError("You cannot report your own content")
	}
	pending, err := s.reports.HasPending(ctx, in.ReporterID, in.Ref)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, models.NewConflictError("You already have a pending report for this content")
	}

	report := &models.Report{
		ReporterID:     in.ReporterID,
		ReportedUserID: &ownerID,
		ContentType:    string(in.Ref.Kind()),
		ContentID:      in.Ref.ID(),
		Reason:         reason,
		Details:        details,
		Status:         models.ReportStatusPending,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// ListReports returns the moderation queue.
func (s *ModerationService) ListReports(ctx context.Context, status, contentType string, limit, offset int) ([]models.Report, int64, error) {
	filter := repository.ReportFilter{ContentType: strings.TrimSpace(contentType)}
	if status != "" {
		filter.Status = models.ReportStatus(status)
		switch filter.Status {
		case models.ReportStatusPending, models.ReportStatusResolved, models.ReportStatusDismissed:
		default:
			return nil, 0, models.NewValidationError("Invalid report status")
		}
	}
	if filter.ContentType != "" {
		if _, err := models.ParseContentRef(filter.ContentType, 1); err != nil {
			return nil, 0, err
		}
	}
	return s.reports.List(ctx, filter, limit, offset)
}

func (s *ModerationService) GetReport(ctx context.Context, id uint) (*models.Report, error) {
	return s.reports.GetByID(ctx, id)
}

// ApplyReportAction closes a pending report with resolve, dismiss, hide or warn. A report
// that is no longer pending yields CONFLICT. Notifications written by the action are
// published after the transaction commits.
func (s *ModerationService) ApplyReportAction(ctx context.Context, in ReportActionInput) (*ReportActionResult, error) {
	span, ctx := observability.NewSpan(ctx, "moderation.apply_action")
	defer span.End()
	span.AddAttributes(
		attribute.Int64("report.id", int64(in.ReportID)),
		attribute.String("report.action", in.Action),
	)

	result, err := s.applyReportAction(ctx, in)
	if err != nil {
		span.SetError(err)
	}
	return result, err
}

func (s *ModerationService) applyReportAction(ctx context.Context, in ReportActionInput) (*ReportActionResult, error) {
	action := models.ReportAction(strings.ToLower(strings.TrimSpace(in.Action)))
	if !action.Valid() {
		return nil, models.NewValidationError("Invalid action. Must be one of: resolve, dismiss, hide, warn")
	}

	outcome, err := s.reports.ApplyAction(ctx, repository.ReportActionParams{
		ReportID: in.ReportID,
		AdminID:  in.AdminID,
		Action:   action,
		Note:     strings.TrimSpace(in.Note),
		Now:      s.now(),
	})
	if err != nil {
		return nil, err
	}
	observability.ModerationActions.WithLabelValues(string(action)).Inc()
	if outcome.Suspended {
		observability.AutoSuspensions.Inc()
	}

	for i := range outcome.Notifications {
		if s.publisher != nil {
			s.publisher.Publish(ctx, &outcome.Notifications[i])
		}
	}

	if action == models.ActionHide {
		if ref, err := outcome.Report.Ref(); err == nil {
			if photo, ok := ref.(models.PhotoRef); ok {
				cache.InvalidatePhotoRecs(ctx, photo.PhotoID)
			}
		}
	}
	if action == models.ActionWarn && outcome.Report.ReportedUserID != nil {
		s.invalidateProfile(ctx, *outcome.Report.ReportedUserID)
	}

	return &ReportActionResult{
		Report:       outcome.Report,
		WarningCount: outcome.WarningCount,
		Suspended:    outcome.Suspended,
	}, nil
}

func (s *ModerationService) invalidateProfile(ctx context.Context, userID uint) {
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load warned profile", "user_id", userID, "error", err)
		return
	}
	cache.InvalidatePublicProfile(ctx, profile.Username)
}
