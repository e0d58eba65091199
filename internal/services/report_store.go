package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
)

// ReportFilter narrows ListReports. Zero values match everything.
type ReportFilter struct {
	Status     models.ReportStatus
	EntityType models.EntityType
	EntityID   string
	Reason     models.ReportReason
	ReporterID string
}

type Page struct {
	Limit  int
	Offset int
}

// ReportStore persists reports. Transition and Resolve only write when the
// current status is one of from; otherwise they fail with
// ErrInvalidStateTransition (or ErrNotFound when the row is gone).
type ReportStore interface {
	Create(ctx context.Context, report *models.Report) error
	Get(ctx context.Context, id uuid.UUID) (*models.Report, error)
	FindBySourceRef(ctx context.Context, sourceRef string) (*models.Report, error)
	List(ctx context.Context, filter ReportFilter, page Page) ([]models.Report, int64, error)
	Transition(ctx context.Context, id uuid.UUID, from []models.ReportStatus, to models.ReportStatus, at time.Time) (*models.Report, error)
	Resolve(ctx context.Context, id uuid.UUID, from []models.ReportStatus, res models.Resolution) (*models.Report, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type GormReportStore struct {
	db *gorm.DB
}

func NewGormReportStore(db *gorm.DB) *GormReportStore {
	return &GormReportStore{db: db}
}

func (s *GormReportStore) Create(ctx context.Context, report *models.Report) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (s *GormReportStore) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &report, nil
}

func (s *GormReportStore) FindBySourceRef(ctx context.Context, sourceRef string) (*models.Report, error) {
	var report models.Report
	if err := s.db.WithContext(ctx).First(&report, "source_ref = ?", sourceRef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("report with source %s: %w", sourceRef, ErrNotFound)
		}
		return nil, err
	}
	return &report, nil
}

func (s *GormReportStore) List(ctx context.Context, filter ReportFilter, page Page) ([]models.Report, int64, error) {
	var reports []models.Report
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Report{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.EntityType != "" {
		query = query.Where("reported_entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		query = query.Where("reported_entity_id = ?", filter.EntityID)
	}
	if filter.Reason != "" {
		query = query.Where("reason = ?", filter.Reason)
	}
	if filter.ReporterID != "" {
		query = query.Where("reporter_id = ?", filter.ReporterID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("created_at DESC").Limit(page.Limit).Offset(page.Offset).Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (s *GormReportStore) Transition(ctx context.Context, id uuid.UUID, from []models.ReportStatus, to models.ReportStatus, at time.Time) (*models.Report, error) {
	return s.conditionalUpdate(ctx, id, from, map[string]interface{}{
		"status":     to,
		"updated_at": at.UTC(),
	})
}

func (s *GormReportStore) Resolve(ctx context.Context, id uuid.UUID, from []models.ReportStatus, res models.Resolution) (*models.Report, error) {
	var resolved models.Report
	resolved.Apply(res)

	return s.conditionalUpdate(ctx, id, from, map[string]interface{}{
		"status":                   resolved.Status,
		"admin_action":             resolved.AdminAction,
		"admin_notes":              resolved.AdminNotes,
		"action_details":           resolved.ActionDetails,
		"notify_reporter":          resolved.NotifyReporter,
		"notify_reported_entity":   resolved.NotifyReportedEntity,
		"reporter_channels":        resolved.ReporterChannels,
		"reported_entity_channels": resolved.ReportedEntityChannels,
		"resolved_by":              resolved.ResolvedBy,
		"resolved_at":              resolved.ResolvedAt,
		"updated_at":               resolved.UpdatedAt,
	})
}

// conditionalUpdate is the compare-and-swap on status that backs the
// per-report lock.
func (s *GormReportStore) conditionalUpdate(ctx context.Context, id uuid.UUID, from []models.ReportStatus, values map[string]interface{}) (*models.Report, error) {
	result := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("report %s: %w", id, ErrInvalidStateTransition)
	}
	return s.Get(ctx, id)
}

func (s *GormReportStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.Report{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return nil
}
