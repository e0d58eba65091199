package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
)

type CreateReportRequest struct {
	EntityType  string `json:"entityType" validate:"required"`
	EntityID    string `json:"entityId" validate:"required,max=64"`
	Reason      string `json:"reason" validate:"required"`
	Description string `json:"description" validate:"max=2000"`
}

type ResolveReportRequest struct {
	AdminAction            string   `json:"adminAction" validate:"required"`
	AdminNotes             string   `json:"adminNotes" validate:"max=5000"`
	ActionDetails          string   `json:"actionDetails" validate:"max=2000"`
	NotifyReporter         bool     `json:"notifyReporter"`
	ReporterChannels       []string `json:"reporterChannels" validate:"max=4,dive,required"`
	NotifyReportedEntity   bool     `json:"notifyReportedEntity"`
	ReportedEntityChannels []string `json:"reportedEntityChannels" validate:"max=4,dive,required"`
	Reject                 bool     `json:"reject"`
}

type RejectReportRequest struct {
	AdminNotes string `json:"adminNotes" validate:"max=5000"`
}

type ChatReportImportRequest struct {
	SourceRef  string     `json:"sourceRef" validate:"required,max=64"`
	MessageID  string     `json:"messageId" validate:"required,max=64"`
	ReporterID string     `json:"reporterId" validate:"required,max=64"`
	Reason     string     `json:"reason" validate:"max=100"`
	Content    string     `json:"content" validate:"max=4000"`
	Status     string     `json:"status"`
	AdminNotes string     `json:"adminNotes" validate:"max=5000"`
	ReviewedBy string     `json:"reviewedBy" validate:"max=64"`
	ReviewedAt *time.Time `json:"reviewedAt"`
}

type ReportListResponse struct {
	Reports []models.Report `json:"reports"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

type ReportDetailResponse struct {
	Report        *models.Report        `json:"report"`
	Entity        *models.EntitySummary `json:"entity"`
	EntityMissing bool                  `json:"entityMissing"`
}

// NotificationPlanResponse summarizes what will be sent. Delivery outcomes
// arrive later at the deliveries endpoint.
type NotificationPlanResponse struct {
	Recipients []PlannedRecipient `json:"recipients"`
	Warnings   []string           `json:"warnings,omitempty"`
}

type PlannedRecipient struct {
	Role     string           `json:"role"`
	Resolved bool             `json:"resolved"`
	Notify   bool             `json:"notify"`
	Channels []models.Channel `json:"channels"`
}

type ResolveReportResponse struct {
	Report        *models.Report           `json:"report"`
	Notifications NotificationPlanResponse `json:"notifications"`
}

type ChatReportImportResponse struct {
	Report  *models.Report `json:"report"`
	Created bool           `json:"created"`
}

type DeliveryListResponse struct {
	Deliveries []models.NotificationDelivery `json:"deliveries"`
}
