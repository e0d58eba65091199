package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
)

const (
	maxDescriptionLength = 2000
	defaultPageLimit     = 20
	maxPageLimit         = 100
	chatImportActor      = "chat-import"
)

type CreateReportInput struct {
	EntityType  string
	EntityID    string
	Reason      string
	Description string
}

type ListReportsInput struct {
	Status     string
	EntityType string
	EntityID   string
	Reason     string
	ReporterID string
	Page       int
	Limit      int
}

// ChatReportImport is a message report raised inside the chat service.
type ChatReportImport struct {
	SourceRef  string
	MessageID  string
	ReporterID string
	Reason     string
	Content    string
	Status     string
	AdminNotes string
	ReviewedBy string
	ReviewedAt *time.Time
}

// ReportView is a report with its entity summary. EntityMissing is set when
// the entity could not be resolved.
type ReportView struct {
	Report        *models.Report        `json:"report"`
	Entity        *models.EntitySummary `json:"entity"`
	EntityMissing bool                  `json:"entityMissing"`
}

// ModerationService covers report submission and the admin report screens
// around resolution.
type ModerationService struct {
	store      ReportStore
	entities   EntityLookup
	deliveries DeliveryRecorder
	now        func() time.Time
}

func NewModerationService(store ReportStore, entities EntityLookup, deliveries DeliveryRecorder) *ModerationService {
	return &ModerationService{store: store, entities: entities, deliveries: deliveries, now: time.Now}
}

func (s *ModerationService) CreateReport(ctx context.Context, reporterID string, in CreateReportInput) (*models.Report, error) {
	entityType, ok := models.ParseEntityType(in.EntityType)
	if !ok {
		return nil, invalidArgument("unknown entity type %q", in.EntityType)
	}
	reason, ok := models.ParseReportReason(in.Reason)
	if !ok {
		return nil, invalidArgument("unknown reason %q", in.Reason)
	}
	entityID := strings.TrimSpace(in.EntityID)
	if entityID == "" {
		return nil, invalidArgument("entity id is required")
	}
	if strings.TrimSpace(reporterID) == "" {
		return nil, invalidArgument("reporter id is required")
	}
	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return nil, invalidArgument("description exceeds %d characters", maxDescriptionLength)
	}
	if reason == models.ReasonOther && description == "" {
		return nil, invalidArgument("description is required for reason %s", models.ReasonOther)
	}
	if entityType == models.EntityUser && entityID == reporterID {
		return nil, invalidArgument("cannot report yourself")
	}

	report := models.Report{
		ID:                 uuid.New(),
		ReporterID:         reporterID,
		ReportedEntityType: entityType,
		ReportedEntityID:   entityID,
		Reason:             reason,
		Description:        description,
		Status:             models.StatusPending,
	}
	if err := s.store.Create(ctx, &report); err != nil {
		return nil, err
	}

	slog.Info("report submitted",
		"report_id", report.ID.String(),
		"entity_type", entityType,
		"reason", reason,
	)
	return &report, nil
}

func (s *ModerationService) GetReport(ctx context.Context, id uuid.UUID) (*ReportView, error) {
	report, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &ReportView{Report: report}
	if s.entities == nil {
		view.EntityMissing = true
		return view, nil
	}
	entity, err := s.entities.Resolve(ctx, report.ReportedEntityType, report.ReportedEntityID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("entity enrichment failed", "report_id", id.String(), "error", err.Error())
		}
		view.EntityMissing = true
		return view, nil
	}
	view.Entity = entity
	return view, nil
}

func (s *ModerationService) ListReports(ctx context.Context, in ListReportsInput) ([]models.Report, int64, error) {
	var filter ReportFilter
	if in.Status != "" {
		status, ok := models.ParseReportStatus(in.Status)
		if !ok {
			return nil, 0, invalidArgument("unknown status %q", in.Status)
		}
		filter.Status = status
	}
	if in.EntityType != "" {
		entityType, ok := models.ParseEntityType(in.EntityType)
		if !ok {
			return nil, 0, invalidArgument("unknown entity type %q", in.EntityType)
		}
		filter.EntityType = entityType
	}
	if in.Reason != "" {
		reason, ok := models.ParseReportReason(in.Reason)
		if !ok {
			return nil, 0, invalidArgument("unknown reason %q", in.Reason)
		}
		filter.Reason = reason
	}
	filter.EntityID = strings.TrimSpace(in.EntityID)
	filter.ReporterID = strings.TrimSpace(in.ReporterID)

	return s.store.List(ctx, filter, pageOf(in.Page, in.Limit))
}

func pageOf(page, limit int) Page {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if page < 1 {
		page = 1
	}
	return Page{Limit: limit, Offset: (page - 1) * limit}
}

func (s *ModerationService) DeleteReport(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("report deleted", "report_id", id.String())
	return nil
}

func (s *ModerationService) ListDeliveries(ctx context.Context, id uuid.UUID) ([]models.NotificationDelivery, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.deliveries.List(ctx, id)
}

// ImportChatReport brings a chat service message report into the report
// lifecycle. Importing the same source twice returns the first report and
// created=false.
func (s *ModerationService) ImportChatReport(ctx context.Context, in ChatReportImport) (*models.Report, bool, error) {
	sourceRef := strings.TrimSpace(in.SourceRef)
	if sourceRef == "" {
		return nil, false, invalidArgument("source ref is required")
	}
	messageID := strings.TrimSpace(in.MessageID)
	if messageID == "" {
		return nil, false, invalidArgument("message id is required")
	}
	if strings.TrimSpace(in.ReporterID) == "" {
		return nil, false, invalidArgument("reporter id is required")
	}
	chatStatus := models.ChatStatusPending
	if in.Status != "" {
		parsed, ok := models.ParseChatReportStatus(in.Status)
		if !ok {
			return nil, false, invalidArgument("unknown chat report status %q", in.Status)
		}
		chatStatus = parsed
	}

	existing, err := s.store.FindBySourceRef(ctx, sourceRef)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	reason, description := chatReason(in.Reason, in.Content)
	ref := sourceRef
	report := models.Report{
		ID:                 uuid.New(),
		ReporterID:         in.ReporterID,
		ReportedEntityType: models.EntityChatMessage,
		ReportedEntityID:   messageID,
		Reason:             reason,
		Description:        description,
		Status:             chatStatus.GenericStatus(),
		SourceStatus:       chatStatus,
		SourceRef:          &ref,
	}

	if report.Status.IsTerminal() {
		action := models.ActionNone
		if chatStatus == models.ChatStatusActionTaken {
			action = models.ActionContentRemoved
		}
		resolvedAt := s.now()
		if in.ReviewedAt != nil {
			resolvedAt = *in.ReviewedAt
		}
		resolvedBy := in.ReviewedBy
		if resolvedBy == "" {
			resolvedBy = chatImportActor
		}
		report.Apply(models.Resolution{
			Status:      report.Status,
			AdminAction: action,
			AdminNotes:  in.AdminNotes,
			ResolvedBy:  resolvedBy,
			ResolvedAt:  resolvedAt,
		})
	}

	if err := s.store.Create(ctx, &report); err != nil {
		// A concurrent import of the same source may have won the unique index.
		if existing, findErr := s.store.FindBySourceRef(ctx, sourceRef); findErr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}

	slog.Info("chat report imported",
		"report_id", report.ID.String(),
		"source_ref", sourceRef,
		"source_status", chatStatus,
		"status", report.Status,
	)
	return &report, true, nil
}

// chatReason maps the chat service's free-form reason onto the closed
// catalog. Unknown reasons become OTHER and keep their text.
func chatReason(raw, content string) (models.ReportReason, string) {
	description := strings.TrimSpace(content)
	if reason, ok := models.ParseReportReason(strings.ReplaceAll(strings.TrimSpace(raw), " ", "_")); ok {
		return reason, truncateRunes(description, maxDescriptionLength)
	}
	label := strings.TrimSpace(raw)
	if label == "" {
		label = "unspecified"
	}
	description = fmt.Sprintf("[%s] %s", label, description)
	return models.ReasonOther, truncateRunes(strings.TrimSpace(description), maxDescriptionLength)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
