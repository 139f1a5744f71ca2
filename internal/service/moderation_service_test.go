package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"shutterhub/internal/models"
	"shutterhub/internal/observability"
	"shutterhub/internal/repository"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishSpy struct {
	mu  sync.Mutex
	ids []uint
}

func (p *publishSpy) Publish(_ context.Context, n *models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, n.ID)
}

func (p *publishSpy) IDs() []uint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uint(nil), p.ids...)
}

func TestModerationService_CreateReport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("files a pending report against the owner", func(t *testing.T) {
		t.Parallel()
		svc := NewModerationService(noopReportRepo(), noopContentRepo(), noopUserRepo(), nil)
		report, err := svc.CreateReport(ctx, CreateReportInput{
			ReporterID: 3,
			Ref:        models.TopicRef{TopicID: 8},
			Reason:     " SPAM ",
			Details:    "selling followers",
		})
		require.NoError(t, err)
		assert.Equal(t, models.ReportStatusPending, report.Status)
		assert.Equal(t, "topic", report.ContentType)
		assert.Equal(t, uint(8), report.ContentID)
		require.NotNil(t, report.ReportedUserID)
		assert.Equal(t, uint(100), *report.ReportedUserID)
	})

	t.Run("own content", func(t *testing.T) {
		t.Parallel()
		svc := NewModerationService(noopReportRepo(), noopContentRepo(), noopUserRepo(), nil)
		_, err := svc.CreateReport(ctx, CreateReportInput{ReporterID: 100, Ref: models.PhotoRef{PhotoID: 1}, Reason: "spam"})
		assertValidationError(t, err)
	})

	t.Run("duplicate pending report", func(t *testing.T) {
		t.Parallel()
		reports := noopReportRepo()
		reports.hasPendingFn = func(_ context.Context, _ uint, _ models.ContentRef) (bool, error) { return true, nil }
		svc := NewModerationService(reports, noopContentRepo(), noopUserRepo(), nil)
		_, err := svc.CreateReport(ctx, CreateReportInput{ReporterID: 3, Ref: models.PhotoRef{PhotoID: 1}, Reason: "spam"})
		assertConflictError(t, err)
	})

	t.Run("missing content", func(t *testing.T) {
		t.Parallel()
		content := noopContentRepo()
		content.ownerOfFn = func(_ context.Context, ref models.ContentRef) (uint, error) {
			return 0, models.NewNotFoundError(string(ref.Kind()), ref.ID())
		}
		svc := NewModerationService(noopReportRepo(), content, noopUserRepo(), nil)
		_, err := svc.CreateReport(ctx, CreateReportInput{ReporterID: 3, Ref: models.PhotoRef{PhotoID: 1}, Reason: "spam"})
		assertNotFoundError(t, err)
	})

	t.Run("input validation", func(t *testing.T) {
		t.Parallel()
		svc := NewModerationService(noopReportRepo(), noopContentRepo(), noopUserRepo(), nil)
		_, err := svc.CreateReport(ctx, CreateReportInput{ReporterID: 3, Reason: "spam"})
		assertValidationError(t, err)
		_, err = svc.CreateReport(ctx, CreateReportInput{ReporterID: 3, Ref: models.PhotoRef{PhotoID: 1}, Reason: "boring"})
		assertValidationError(t, err)
		_, err = svc.CreateReport(ctx, CreateReportInput{
			ReporterID: 3, Ref: models.PhotoRef{PhotoID: 1}, Reason: "spam", Details: strings.Repeat("d", 2001),
		})
		assertValidationError(t, err)
	})

	t.Run("suspended reporter", func(t *testing.T) {
		t.Parallel()
		svc := NewModerationService(noopReportRepo(), noopContentRepo(), suspendedUserRepo(time.Now().Add(time.Hour)), nil)
		_, err := svc.CreateReport(ctx, CreateReportInput{ReporterID: 3, Ref: models.PhotoRef{PhotoID: 1}, Reason: "spam"})
		assertForbiddenError(t, err)
	})
}

func TestModerationService_ListReports_Validation(t *testing.T) {
	t.Parallel()

	svc := NewModerationService(noopReportRepo(), noopContentRepo(), noopUserRepo(), nil)
	ctx := context.Background()

	_, _, err := svc.ListReports(ctx, "archived", "", 20, 0)
	assertValidationError(t, err)
	_, _, err = svc.ListReports(ctx, "", "gallery", 20, 0)
	assertValidationError(t, err)
	_, _, err = svc.ListReports(ctx, "pending", "photo", 20, 0)
	require.NoError(t, err)
}

func TestModerationService_ApplyReportAction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("invalid action", func(t *testing.T) {
		t.Parallel()
		svc := NewModerationService(noopReportRepo(), noopContentRepo(), noopUserRepo(), nil)
		_, err := svc.ApplyReportAction(ctx, ReportActionInput{AdminID: 1, ReportID: 2, Action: "ban"})
		assertValidationError(t, err)
	})

	t.Run("report already closed", func(t *testing.T) {
		t.Parallel()
		reports := noopReportRepo()
		reports.applyActionFn = func(_ context.Context, _ repository.ReportActionParams) (*repository.ReportActionOutcome, error) {
			return nil, models.NewConflictError("Report has already been handled")
		}
		svc := NewModerationService(reports, noopContentRepo(), noopUserRepo(), nil)
		_, err := svc.ApplyReportAction(ctx, ReportActionInput{AdminID: 1, ReportID: 2, Action: "resolve"})
		assertConflictError(t, err)
	})

	t.Run("warn publishes stored notifications", func(t *testing.T) {
		t.Parallel()
		var params repository.ReportActionParams
		reported := uint(100)
		reports := noopReportRepo()
		reports.applyActionFn = func(_ context.Context, p repository.ReportActionParams) (*repository.ReportActionOutcome, error) {
			params = p
			return &repository.ReportActionOutcome{
				Report:        &models.Report{ID: p.ReportID, ContentType: "photo", ContentID: 1, ReportedUserID: &reported},
				WarningCount:  3,
				Suspended:     true,
				Notifications: []models.Notification{{ID: 40, UserID: 100}, {ID: 41, UserID: 100}},
			}, nil
		}
		pub := &publishSpy{}
		svc := NewModerationService(reports, noopContentRepo(), noopUserRepo(), pub)
		fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return fixed }

		result, err := svc.ApplyReportAction(ctx, ReportActionInput{AdminID: 1, ReportID: 2, Action: " Warn ", Note: " third strike "})
		require.NoError(t, err)
		assert.Equal(t, models.ActionWarn, params.Action)
		assert.Equal(t, "third strike", params.Note)
		assert.Equal(t, fixed, params.Now)
		assert.Equal(t, 3, result.WarningCount)
		assert.True(t, result.Suspended)
		assert.Equal(t, []uint{40, 41}, pub.IDs())
	})
}

func TestModerationService_ApplyReportAction_Metrics(t *testing.T) {
	svc := NewModerationService(noopReportRepo(), noopContentRepo(), noopUserRepo(), nil)
	before := promtest.ToFloat64(observability.ModerationActions.WithLabelValues("dismiss"))

	_, err := svc.ApplyReportAction(context.Background(), ReportActionInput{AdminID: 1, ReportID: 2, Action: "dismiss"})
	require.NoError(t, err)

	after := promtest.ToFloat64(observability.ModerationActions.WithLabelValues("dismiss"))
	assert.Equal(t, before+1, after)
}
