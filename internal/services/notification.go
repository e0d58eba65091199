package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/platformapi"
)

type RecipientRole string

const (
	RecipientReporter       RecipientRole = "REPORTER"
	RecipientReportedEntity RecipientRole = "REPORTED_ENTITY"
)

const (
	reasonRecipientUnresolved = "recipient unresolved"
	reasonNoBackend           = "no backend"
	reasonNotifyDisabled      = "notifications disabled"
	reasonQueueFull           = "queue full"
	reasonQueueClosed         = "queue closed"

	maxDeliveryReasonLength = 500
)

// RecipientPlan is one party of a notification plan. An empty UserID means
// the recipient could not be resolved.
type RecipientPlan struct {
	Role     RecipientRole    `json:"role"`
	UserID   string           `json:"userId,omitempty"`
	Notify   bool             `json:"notify"`
	Channels []models.Channel `json:"channels"`
}

// NotificationPlan is everything the dispatcher needs to tell the parties
// about a resolution, captured at resolution time.
type NotificationPlan struct {
	ReportID      uuid.UUID           `json:"reportId"`
	EntityType    models.EntityType   `json:"entityType"`
	EntityName    string              `json:"entityName,omitempty"`
	Status        models.ReportStatus `json:"status"`
	AdminAction   models.AdminAction  `json:"adminAction"`
	ActionDetails string              `json:"actionDetails,omitempty"`
	Recipients    []RecipientPlan     `json:"recipients"`
	Warnings      []string            `json:"warnings,omitempty"`
}

// BuildPlan maps the resolution flags on report 1:1 onto recipients. entity
// may be nil when the reported entity no longer exists.
func BuildPlan(report *models.Report, entity *models.EntitySummary) NotificationPlan {
	plan := NotificationPlan{
		ReportID:      report.ID,
		EntityType:    report.ReportedEntityType,
		Status:        report.Status,
		AdminAction:   report.AdminAction,
		ActionDetails: report.ActionDetails,
	}

	ownerID := ""
	if entity != nil {
		plan.EntityName = entity.Name
		ownerID = entity.OwnerID
	}

	plan.Recipients = []RecipientPlan{
		{
			Role:     RecipientReporter,
			UserID:   report.ReporterID,
			Notify:   report.NotifyReporter != nil && *report.NotifyReporter,
			Channels: append([]models.Channel(nil), report.ReporterChannels...),
		},
		{
			Role:     RecipientReportedEntity,
			UserID:   ownerID,
			Notify:   report.NotifyReportedEntity != nil && *report.NotifyReportedEntity,
			Channels: append([]models.Channel(nil), report.ReportedEntityChannels...),
		},
	}

	for _, r := range plan.Recipients {
		if r.Notify && len(r.Channels) == 0 {
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("%s: notify requested with no channels, nothing will be sent", r.Role))
		}
	}
	return plan
}

// DeliveryEntry is the outcome of one (recipient, channel) pair.
type DeliveryEntry struct {
	Recipient   RecipientRole         `json:"recipient"`
	RecipientID string                `json:"recipientId,omitempty"`
	Channel     models.Channel        `json:"channel"`
	Status      models.DeliveryStatus `json:"status"`
	Reason      string                `json:"reason,omitempty"`
}

type DispatchReport struct {
	ReportID uuid.UUID       `json:"reportId"`
	Entries  []DeliveryEntry `json:"entries"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Count returns how many entries have the given recipient and status. An
// empty status matches any.
func (r DispatchReport) Count(role RecipientRole, status models.DeliveryStatus) int {
	n := 0
	for _, e := range r.Entries {
		if e.Recipient == role && (status == "" || e.Status == status) {
			n++
		}
	}
	return n
}

type Message struct {
	ReportID    uuid.UUID
	RecipientID string
	Subject     string
	Body        string
}

// ChannelSender delivers a message over one channel.
type ChannelSender interface {
	Send(ctx context.Context, msg Message) error
}

// DeliveryRecorder persists dispatch outcomes.
type DeliveryRecorder interface {
	Record(ctx context.Context, report DispatchReport) error
	List(ctx context.Context, reportID uuid.UUID) ([]models.NotificationDelivery, error)
}

type Dispatcher struct {
	senders     map[models.Channel]ChannelSender
	recorder    DeliveryRecorder
	parallelism int
	metrics     *Metrics
}

func NewDispatcher(senders map[models.Channel]ChannelSender, recorder DeliveryRecorder, parallelism int, metrics *Metrics) *Dispatcher {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Dispatcher{senders: senders, recorder: recorder, parallelism: parallelism, metrics: metrics}
}

// Dispatch attempts every (recipient, channel) pair independently. It never
// returns an error: failures are entries in the report.
func (d *Dispatcher) Dispatch(ctx context.Context, plan NotificationPlan) DispatchReport {
	report := DispatchReport{ReportID: plan.ReportID, Warnings: plan.Warnings}

	type job struct {
		index     int
		recipient RecipientPlan
		channel   models.Channel
	}
	var jobs []job

	for _, r := range plan.Recipients {
		if !r.Notify {
			for _, ch := range models.Channels {
				report.Entries = append(report.Entries, DeliveryEntry{
					Recipient:   r.Role,
					RecipientID: r.UserID,
					Channel:     ch,
					Status:      models.DeliverySkipped,
					Reason:      reasonNotifyDisabled,
				})
			}
			continue
		}
		for _, ch := range r.Channels {
			jobs = append(jobs, job{index: len(report.Entries), recipient: r, channel: ch})
			report.Entries = append(report.Entries, DeliveryEntry{
				Recipient:   r.Role,
				RecipientID: r.UserID,
				Channel:     ch,
			})
		}
	}

	var g errgroup.Group
	g.SetLimit(d.parallelism)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			status, reason := d.deliver(ctx, plan, j.recipient, j.channel)
			report.Entries[j.index].Status = status
			report.Entries[j.index].Reason = reason
			return nil
		})
	}
	_ = g.Wait()

	d.finish(ctx, report)
	return report
}

// Fail records every pair of plan as failed with reason without attempting
// delivery.
func (d *Dispatcher) Fail(ctx context.Context, plan NotificationPlan, reason string) DispatchReport {
	report := DispatchReport{ReportID: plan.ReportID, Warnings: plan.Warnings}
	for _, r := range plan.Recipients {
		status, why := models.DeliveryFailed, reason
		channels := r.Channels
		if !r.Notify {
			status, why, channels = models.DeliverySkipped, reasonNotifyDisabled, models.Channels
		}
		for _, ch := range channels {
			report.Entries = append(report.Entries, DeliveryEntry{
				Recipient:   r.Role,
				RecipientID: r.UserID,
				Channel:     ch,
				Status:      status,
				Reason:      why,
			})
		}
	}
	d.finish(ctx, report)
	return report
}

func (d *Dispatcher) deliver(ctx context.Context, plan NotificationPlan, r RecipientPlan, ch models.Channel) (models.DeliveryStatus, string) {
	if r.UserID == "" {
		return models.DeliveryFailed, reasonRecipientUnresolved
	}
	sender, ok := d.senders[ch]
	if !ok || sender == nil {
		return models.DeliveryFailed, reasonNoBackend
	}

	subject, body := renderMessage(plan, r.Role)
	err := sender.Send(ctx, Message{
		ReportID:    plan.ReportID,
		RecipientID: r.UserID,
		Subject:     subject,
		Body:        body,
	})
	if err != nil {
		return models.DeliveryFailed, err.Error()
	}
	return models.DeliveryDelivered, ""
}

func (d *Dispatcher) finish(ctx context.Context, report DispatchReport) {
	failed := 0
	for _, e := range report.Entries {
		d.metrics.observeDelivery(e)
		if e.Status == models.DeliveryFailed {
			failed++
		}
	}
	for _, w := range report.Warnings {
		slog.Warn("notification plan warning", "report_id", report.ReportID.String(), "warning", w)
	}
	if failed > 0 {
		slog.Warn("notification delivery failures",
			"report_id", report.ReportID.String(),
			"failed", failed,
			"total", len(report.Entries),
		)
	}

	if d.recorder == nil {
		return
	}
	if err := d.recorder.Record(ctx, report); err != nil {
		slog.Error("failed to record notification deliveries",
			"report_id", report.ReportID.String(),
			"error", err.Error(),
		)
	}
}

// InAppSender writes to the in-app notification inbox.
type InAppSender struct {
	db *gorm.DB
}

func NewInAppSender(db *gorm.DB) *InAppSender {
	return &InAppSender{db: db}
}

func (s *InAppSender) Send(ctx context.Context, msg Message) error {
	n := models.Notification{
		ID:        uuid.New(),
		UserID:    msg.RecipientID,
		ReportID:  msg.ReportID,
		Subject:   msg.Subject,
		Body:      msg.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return fmt.Errorf("failed to store in-app notification: %w", err)
	}
	return nil
}

// NotificationAPI is the platform's notification send endpoint.
type NotificationAPI interface {
	SendNotification(ctx context.Context, recipientID string, channel models.Channel, subject, body string) (*platformapi.SendNotificationResponse, error)
}

// PlatformSender delivers through the platform on a channel it owns.
type PlatformSender struct {
	api     NotificationAPI
	channel models.Channel
}

func NewPlatformSender(api NotificationAPI, channel models.Channel) *PlatformSender {
	return &PlatformSender{api: api, channel: channel}
}

func (s *PlatformSender) Send(ctx context.Context, msg Message) error {
	resp, err := s.api.SendNotification(ctx, msg.RecipientID, s.channel, msg.Subject, msg.Body)
	if err != nil {
		return err
	}
	if !resp.Accepted {
		reason := resp.Reason
		if reason == "" {
			reason = "not accepted"
		}
		return errors.New(reason)
	}
	return nil
}

type GormDeliveryRecorder struct {
	db *gorm.DB
}

func NewGormDeliveryRecorder(db *gorm.DB) *GormDeliveryRecorder {
	return &GormDeliveryRecorder{db: db}
}

func (r *GormDeliveryRecorder) Record(ctx context.Context, report DispatchReport) error {
	if len(report.Entries) == 0 {
		return nil
	}
	rows := deliveryRows(report, time.Now().UTC())
	return r.db.WithContext(ctx).Create(&rows).Error
}

func deliveryRows(report DispatchReport, at time.Time) []models.NotificationDelivery {
	rows := make([]models.NotificationDelivery, 0, len(report.Entries))
	for _, e := range report.Entries {
		rows = append(rows, models.NotificationDelivery{
			ID:          uuid.New(),
			ReportID:    report.ReportID,
			Recipient:   string(e.Recipient),
			RecipientID: e.RecipientID,
			Channel:     e.Channel,
			Status:      e.Status,
			Reason:      truncateRunes(e.Reason, maxDeliveryReasonLength),
			CreatedAt:   at,
		})
	}
	return rows
}

func (r *GormDeliveryRecorder) List(ctx context.Context, reportID uuid.UUID) ([]models.NotificationDelivery, error) {
	var rows []models.NotificationDelivery
	err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("created_at ASC, recipient ASC, channel ASC").
		Find(&rows).Error
	return rows, err
}
