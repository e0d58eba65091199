package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/lock"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/platformapi"
)

// ActionApplier executes the entity side effect of an admin action.
type ActionApplier interface {
	Apply(ctx context.Context, entityType models.EntityType, entityID string, action models.AdminAction, details string) error
}

// ResolveRequest carries the admin's decision as received, before
// validation.
type ResolveRequest struct {
	AdminAction            string
	AdminNotes             string
	ActionDetails          string
	NotifyReporter         bool
	ReporterChannels       []string
	NotifyReportedEntity   bool
	ReportedEntityChannels []string
	// Reject closes the report as REJECTED instead of RESOLVED. Only valid
	// with NO_ACTION.
	Reject bool
}

type ResolveResult struct {
	Report *models.Report
	Plan   NotificationPlan
}

type ResolutionOptions struct {
	RequireDismissalNotes bool
	// LockWait bounds how long Resolve waits for another admin's resolution
	// of the same report to finish.
	LockWait time.Duration
}

// ResolutionService drives a report from open to terminal exactly once.
type ResolutionService struct {
	store    ReportStore
	locker   lock.Locker
	actions  ActionApplier
	entities EntityLookup
	notifier Notifier
	metrics  *Metrics
	opts     ResolutionOptions
	now      func() time.Time
}

func NewResolutionService(store ReportStore, locker lock.Locker, actions ActionApplier, entities EntityLookup, notifier Notifier, metrics *Metrics, opts ResolutionOptions) *ResolutionService {
	if opts.LockWait <= 0 {
		opts.LockWait = 2 * time.Second
	}
	return &ResolutionService{
		store:    store,
		locker:   locker,
		actions:  actions,
		entities: entities,
		notifier: notifier,
		metrics:  metrics,
		opts:     opts,
		now:      time.Now,
	}
}

type validatedRequest struct {
	action                 models.AdminAction
	reporterChannels       []models.Channel
	reportedEntityChannels []models.Channel
}

func (s *ResolutionService) validate(req ResolveRequest) (validatedRequest, error) {
	var v validatedRequest

	action, ok := models.ParseAdminAction(req.AdminAction)
	if !ok {
		return v, invalidArgument("unknown admin action %q", req.AdminAction)
	}
	v.action = action

	if req.Reject && action != models.ActionNone {
		return v, invalidArgument("reject is only allowed with %s", models.ActionNone)
	}
	if action == models.ActionNone && s.opts.RequireDismissalNotes && strings.TrimSpace(req.AdminNotes) == "" {
		return v, invalidArgument("admin notes are required when closing without action")
	}

	var err error
	if v.reporterChannels, err = parseChannels(req.ReporterChannels); err != nil {
		return v, err
	}
	if v.reportedEntityChannels, err = parseChannels(req.ReportedEntityChannels); err != nil {
		return v, err
	}
	return v, nil
}

// parseChannels rejects unknown values and collapses duplicates, keeping
// first-seen order.
func parseChannels(raw []string) ([]models.Channel, error) {
	out := make([]models.Channel, 0, len(raw))
	seen := make(map[models.Channel]bool, len(raw))
	for _, r := range raw {
		ch, ok := models.ParseChannel(r)
		if !ok {
			return nil, invalidArgument("unknown channel %q", r)
		}
		if seen[ch] {
			continue
		}
		seen[ch] = true
		out = append(out, ch)
	}
	return out, nil
}

// Resolve applies the admin's decision. The moderation action runs before
// the report is written; if it fails the report is left as it was.
// Notifications are queued after the write and never fail the call.
func (s *ResolutionService) Resolve(ctx context.Context, reportID uuid.UUID, adminID string, req ResolveRequest) (*ResolveResult, error) {
	result, action, err := s.resolve(ctx, reportID, adminID, req)
	s.metrics.observeResolution(action, err)
	return result, err
}

func (s *ResolutionService) resolve(ctx context.Context, reportID uuid.UUID, adminID string, req ResolveRequest) (*ResolveResult, models.AdminAction, error) {
	v, err := s.validate(req)
	if err != nil {
		// v.action is empty when the action itself did not parse.
		return nil, v.action, err
	}

	release, err := s.acquire(ctx, reportID)
	if err != nil {
		return nil, v.action, err
	}
	defer release()

	report, err := s.store.Get(ctx, reportID)
	if err != nil {
		return nil, v.action, err
	}
	if report.Status.IsTerminal() {
		return nil, v.action, fmt.Errorf("report %s is %s: %w", reportID, report.Status, ErrInvalidStateTransition)
	}

	entity := s.lookupEntity(ctx, report)

	if err := s.actions.Apply(ctx, report.ReportedEntityType, report.ReportedEntityID, v.action, req.ActionDetails); err != nil {
		slog.Error("moderation action failed",
			"report_id", reportID.String(),
			"entity_type", report.ReportedEntityType,
			"admin_action", v.action,
			"platform_status", platformapi.StatusCode(err),
			"error", err.Error(),
		)
		return nil, v.action, fmt.Errorf("resolve report %s: %w", reportID, err)
	}

	status := models.StatusResolved
	if req.Reject {
		status = models.StatusRejected
	}
	updated, err := s.store.Resolve(ctx, reportID, models.OpenStatuses, models.Resolution{
		Status:                 status,
		AdminAction:            v.action,
		AdminNotes:             req.AdminNotes,
		ActionDetails:          req.ActionDetails,
		NotifyReporter:         req.NotifyReporter,
		ReporterChannels:       v.reporterChannels,
		NotifyReportedEntity:   req.NotifyReportedEntity,
		ReportedEntityChannels: v.reportedEntityChannels,
		ResolvedBy:             adminID,
		ResolvedAt:             s.now(),
	})
	if err != nil {
		if v.action.MutatesEntity() {
			slog.Error("moderation action applied but report write failed",
				"report_id", reportID.String(),
				"entity_type", report.ReportedEntityType,
				"admin_action", v.action,
				"error", err.Error(),
			)
		}
		return nil, v.action, err
	}

	plan := BuildPlan(updated, entity)
	s.notifier.Enqueue(plan)

	slog.Info("report resolved",
		"report_id", reportID.String(),
		"status", updated.Status,
		"entity_type", updated.ReportedEntityType,
		"admin_action", v.action,
		"resolved_by", adminID,
	)
	return &ResolveResult{Report: updated, Plan: plan}, v.action, nil
}

// Reject closes an open report as invalid without touching the entity or
// notifying anyone.
func (s *ResolutionService) Reject(ctx context.Context, reportID uuid.UUID, adminID, notes string) (*models.Report, error) {
	res, err := s.Resolve(ctx, reportID, adminID, ResolveRequest{
		AdminAction: string(models.ActionNone),
		AdminNotes:  notes,
		Reject:      true,
	})
	if err != nil {
		return nil, err
	}
	return res.Report, nil
}

// StartReview marks a pending report as being looked at. It is a display
// state only and does not block Resolve.
func (s *ResolutionService) StartReview(ctx context.Context, reportID uuid.UUID) (*models.Report, error) {
	release, err := s.acquire(ctx, reportID)
	if err != nil {
		return nil, err
	}
	defer release()

	report, err := s.store.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	switch {
	case report.Status == models.StatusUnderReview:
		return report, nil
	case report.Status.IsTerminal():
		return nil, fmt.Errorf("report %s is %s: %w", reportID, report.Status, ErrInvalidStateTransition)
	}

	return s.store.Transition(ctx, reportID, []models.ReportStatus{models.StatusPending}, models.StatusUnderReview, s.now())
}

func (s *ResolutionService) acquire(ctx context.Context, reportID uuid.UUID) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.opts.LockWait)
	defer cancel()

	release, err := s.locker.Acquire(lockCtx, "report:"+reportID.String())
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			return nil, fmt.Errorf("report %s: %w", reportID, ErrResolutionInProgress)
		}
		return nil, fmt.Errorf("failed to lock report %s: %w", reportID, err)
	}
	return release, nil
}

func (s *ResolutionService) lookupEntity(ctx context.Context, report *models.Report) *models.EntitySummary {
	if s.entities == nil {
		return nil
	}
	entity, err := s.entities.Resolve(ctx, report.ReportedEntityType, report.ReportedEntityID)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, ErrNotFound) {
			level = slog.LevelInfo
		}
		slog.Log(ctx, level, "reported entity unavailable, owner will not be notified",
			"report_id", report.ID.String(),
			"entity_type", report.ReportedEntityType,
			"error", err.Error(),
		)
		return nil
	}
	return entity
}
