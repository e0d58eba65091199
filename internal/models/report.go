package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Report is a user-submitted flag against a user, startup or chat message.
type Report struct {
	ID                 uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReporterID         string       `gorm:"not null;size:64;index" json:"reporterId"`
	ReportedEntityType EntityType   `gorm:"not null;size:32;index:idx_reports_entity" json:"reportedEntityType"`
	ReportedEntityID   string       `gorm:"not null;size:64;index:idx_reports_entity" json:"reportedEntityId"`
	Reason             ReportReason `gorm:"not null;size:32" json:"reason"`
	Description        string       `gorm:"type:text" json:"description"`
	Status             ReportStatus `gorm:"not null;default:'PENDING';size:20;index" json:"status"`

	// Chat-origin metadata.
	SourceStatus ChatReportStatus `gorm:"size:20" json:"sourceStatus,omitempty"`
	SourceRef    *string          `gorm:"size:64;uniqueIndex" json:"sourceRef,omitempty"`

	// Resolution fields, set together when the report reaches a terminal state.
	AdminAction            AdminAction                  `gorm:"size:32" json:"adminAction,omitempty"`
	AdminNotes             string                       `gorm:"type:text" json:"adminNotes,omitempty"`
	ActionDetails          string                       `gorm:"type:text" json:"actionDetails,omitempty"`
	NotifyReporter         *bool                        `json:"notifyReporter,omitempty"`
	NotifyReportedEntity   *bool                        `json:"notifyReportedEntity,omitempty"`
	ReporterChannels       datatypes.JSONSlice[Channel] `gorm:"type:jsonb" json:"reporterChannels,omitempty"`
	ReportedEntityChannels datatypes.JSONSlice[Channel] `gorm:"type:jsonb" json:"reportedEntityChannels,omitempty"`
	ResolvedBy             string                       `gorm:"size:64" json:"resolvedBy,omitempty"`
	ResolvedAt             *time.Time                   `json:"resolvedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Resolution is the terminal decision written onto a report.
type Resolution struct {
	Status                 ReportStatus
	AdminAction            AdminAction
	AdminNotes             string
	ActionDetails          string
	NotifyReporter         bool
	ReporterChannels       []Channel
	NotifyReportedEntity   bool
	ReportedEntityChannels []Channel
	ResolvedBy             string
	ResolvedAt             time.Time
}

// Apply copies the resolution onto the report.
func (r *Report) Apply(res Resolution) {
	notifyReporter := res.NotifyReporter
	notifyEntity := res.NotifyReportedEntity
	resolvedAt := res.ResolvedAt.UTC()

	r.Status = res.Status
	r.AdminAction = res.AdminAction
	r.AdminNotes = res.AdminNotes
	r.ActionDetails = res.ActionDetails
	r.NotifyReporter = &notifyReporter
	r.NotifyReportedEntity = &notifyEntity
	r.ReporterChannels = append(datatypes.JSONSlice[Channel]{}, res.ReporterChannels...)
	r.ReportedEntityChannels = append(datatypes.JSONSlice[Channel]{}, res.ReportedEntityChannels...)
	r.ResolvedBy = res.ResolvedBy
	r.ResolvedAt = &resolvedAt
	r.UpdatedAt = resolvedAt
}

func (r *Report) HasResolution() bool {
	return r.ResolvedAt != nil && r.AdminAction != "" &&
		r.NotifyReporter != nil && r.NotifyReportedEntity != nil
}

func (r *Report) hasAnyResolutionField() bool {
	return r.ResolvedAt != nil || r.AdminAction != "" || r.AdminNotes != "" || r.ActionDetails != "" ||
		r.NotifyReporter != nil || r.NotifyReportedEntity != nil ||
		len(r.ReporterChannels) > 0 || len(r.ReportedEntityChannels) > 0 || r.ResolvedBy != ""
}

var ErrResolutionInvariant = errors.New("report status and resolution fields disagree")

// CheckInvariant verifies that terminal status and resolution fields go together.
func (r *Report) CheckInvariant() error {
	if r.Status.IsTerminal() {
		if !r.HasResolution() {
			return ErrResolutionInvariant
		}
		return nil
	}
	if r.hasAnyResolutionField() {
		return ErrResolutionInvariant
	}
	return nil
}
