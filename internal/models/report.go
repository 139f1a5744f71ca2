package models

import "time"

// ReportStatus is the moderation state of a report. Resolved and dismissed are terminal.
type ReportStatus string

const (
	// ReportStatusPending awaits a moderator.
	ReportStatusPending ReportStatus = "pending"
	// ReportStatusResolved was acted upon.
	ReportStatusResolved ReportStatus = "resolved"
	// ReportStatusDismissed was closed without action.
	ReportStatusDismissed ReportStatus = "dismissed"
)

// ReportReason classifies why content was reported.
type ReportReason string

const (
	ReasonSpam          ReportReason = "spam"
	ReasonHarassment    ReportReason = "harassment"
	ReasonInappropriate ReportReason = "inappropriate"
	ReasonCopyright     ReportReason = "copyright"
	ReasonFraud         ReportReason = "fraud"
	ReasonOther         ReportReason = "other"
)

// Valid reports whether r is a known reason.
func (r ReportReason) Valid() bool {
	switch r {
	case ReasonSpam, ReasonHarassment, ReasonInappropriate, ReasonCopyright, ReasonFraud, ReasonOther:
		return true
	}
	return false
}

// ReportAction is what a moderator does with a pending report.
type ReportAction string

const (
	// ActionResolve closes the report as handled.
	ActionResolve ReportAction = "resolve"
	// ActionDismiss closes the report without action.
	ActionDismiss ReportAction = "dismiss"
	// ActionHide hides the reported content, then resolves.
	ActionHide ReportAction = "hide"
	// ActionWarn warns the reported user, suspending at the threshold, then resolves.
	ActionWarn ReportAction = "warn"
)

// Valid reports whether a is a known action.
func (a ReportAction) Valid() bool {
	switch a {
	case ActionResolve, ActionDismiss, ActionHide, ActionWarn:
		return true
	}
	return false
}

// ResultingStatus is the terminal status a report reaches after a.
func (a ReportAction) ResultingStatus() ReportStatus {
	if a == ActionDismiss {
		return ReportStatusDismissed
	}
	return ReportStatusResolved
}

// Warning threshold and suspension length applied by the warn action.
const (
	SuspensionWarningThreshold = 3
	SuspensionDuration         = 7 * 24 * time.Hour
)

// Report flags a piece of content for moderation.
type Report struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	ReporterID     uint          `gorm:"not null;index" json:"reporter_id"`
	Reporter       *Profile      `gorm:"foreignKey:ReporterID;references:UserID" json:"reporter,omitempty"`
	ReportedUserID *uint         `gorm:"index" json:"reported_user_id,omitempty"`
	ReportedUser   *Profile      `gorm:"foreignKey:ReportedUserID;references:UserID" json:"reported_user,omitempty"`
	ContentType    string        `gorm:"size:32;not null;index:idx_reports_content" json:"content_type"`
	ContentID      uint          `gorm:"not null;index:idx_reports_content" json:"content_id"`
	Reason         ReportReason  `gorm:"type:varchar(32);not null" json:"reason"`
	Details        string        `gorm:"type:text" json:"details"`
	Status         ReportStatus  `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Action         *ReportAction `gorm:"type:varchar(16)" json:"action,omitempty"`
	ResolutionNote string        `gorm:"type:text" json:"resolution_note"`
	ResolvedBy     *uint         `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Ref decodes the reported content pointer.
func (r *Report) Ref() (ContentRef, error) {
	return ParseContentRef(r.ContentType, r.ContentID)
}
