package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/dto"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/services"
)

type ReportService interface {
	CreateReport(ctx context.Context, reporterID string, in services.CreateReportInput) (*models.Report, error)
	GetReport(ctx context.Context, id uuid.UUID) (*services.ReportView, error)
	ListReports(ctx context.Context, in services.ListReportsInput) ([]models.Report, int64, error)
	DeleteReport(ctx context.Context, id uuid.UUID) error
	ListDeliveries(ctx context.Context, id uuid.UUID) ([]models.NotificationDelivery, error)
	ImportChatReport(ctx context.Context, in services.ChatReportImport) (*models.Report, bool, error)
}

type ResolutionService interface {
	Resolve(ctx context.Context, id uuid.UUID, adminID string, req services.ResolveRequest) (*services.ResolveResult, error)
	Reject(ctx context.Context, id uuid.UUID, adminID, notes string) (*models.Report, error)
	StartReview(ctx context.Context, id uuid.UUID) (*models.Report, error)
}

type ModerationHandler struct {
	reports     ReportService
	resolutions ResolutionService
	validate    *validator.Validate
}

func NewModerationHandler(reports ReportService, resolutions ResolutionService) *ModerationHandler {
	return &ModerationHandler{
		reports:     reports,
		resolutions: resolutions,
		validate:    validator.New(),
	}
}

func (h *ModerationHandler) CreateReport(c *fiber.Ctx) error {
	reporterID, err := middleware.Subject(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Code: "UNAUTHENTICATED", Message: "Unauthorized",
		})
	}

	var req dto.CreateReportRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	report, err := h.reports.CreateReport(c.UserContext(), reporterID, services.CreateReportInput{
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ModerationHandler) ListReports(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	in := services.ListReportsInput{
		Status:     c.Query("status"),
		EntityType: c.Query("entityType"),
		EntityID:   c.Query("entityId"),
		Reason:     c.Query("reason"),
		ReporterID: c.Query("reporterId"),
		Page:       page,
		Limit:      limit,
	}
	reports, total, err := h.reports.ListReports(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	if reports == nil {
		reports = []models.Report{}
	}

	if page < 1 {
		page = 1
	}
	return c.JSON(dto.ReportListResponse{
		Reports: reports,
		Total:   total,
		Page:    page,
		Limit:   clampLimit(limit),
	})
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func (h *ModerationHandler) GetReport(c *fiber.Ctx) error {
	id, ok, err := reportID(c)
	if !ok {
		return err
	}
	view, err := h.reports.GetReport(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ReportDetailResponse{
		Report:        view.Report,
		Entity:        view.Entity,
		EntityMissing: view.EntityMissing,
	})
}

func (h *ModerationHandler) DeleteReport(c *fiber.Ctx) error {
	id, ok, err := reportID(c)
	if !ok {
		return err
	}
	if err := h.reports.DeleteReport(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ModerationHandler) StartReview(c *fiber.Ctx) error {
	id, ok, err := reportID(c)
	if !ok {
		return err
	}
	report, err := h.resolutions.StartReview(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}

func (h *ModerationHandler) ResolveReport(c *fiber.Ctx) error {
	id, ok, err := reportID(c)
	if !ok {
		return err
	}

	var req dto.ResolveReportRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	result, err := h.resolutions.Resolve(c.UserContext(), id, middleware.AdminID(c), services.ResolveRequest{
		AdminAction:            req.AdminAction,
		AdminNotes:             req.AdminNotes,
		ActionDetails:          req.ActionDetails,
		NotifyReporter:         req.NotifyReporter,
		ReporterChannels:       req.ReporterChannels,
		NotifyReportedEntity:   req.NotifyReportedEntity,
		ReportedEntityChannels: req.ReportedEntityChannels,
		Reject:                 req.Reject,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(dto.ResolveReportResponse{
		Report:        result.Report,
		Notifications: planResponse(result.Plan),
	})
}

func planResponse(plan services.NotificationPlan) dto.NotificationPlanResponse {
	out := dto.NotificationPlanResponse{
		Recipients: make([]dto.PlannedRecipient, 0, len(plan.Recipients)),
		Warnings:   plan.Warnings,
	}
	for _, r := range plan.Recipients {
		channels := r.Channels
		if channels == nil {
			channels = []models.Channel{}
		}
		out.Recipients = append(out.Recipients, dto.PlannedRecipient{
			Role:     string(r.Role),
			Resolved: r.UserID != "",
			Notify:   r.Notify,
			Channels: channels,
		})
	}
	return out
}

func (h *ModerationHandler) RejectReport(c *fiber.Ctx) error {
	id, ok, err := reportID(c)
	if !ok {
		return err
	}

	var req dto.RejectReportRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	report, err := h.resolutions.Reject(c.UserContext(), id, middleware.AdminID(c), req.AdminNotes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}

func (h *ModerationHandler) ListDeliveries(c *fiber.Ctx) error {
	id, ok, err := reportID(c)
	if !ok {
		return err
	}
	rows, err := h.reports.ListDeliveries(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	if rows == nil {
		rows = []models.NotificationDelivery{}
	}
	return c.JSON(dto.DeliveryListResponse{Deliveries: rows})
}

func (h *ModerationHandler) ImportChatReport(c *fiber.Ctx) error {
	var req dto.ChatReportImportRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	report, created, err := h.reports.ImportChatReport(c.UserContext(), services.ChatReportImport{
		SourceRef:  req.SourceRef,
		MessageID:  req.MessageID,
		ReporterID: req.ReporterID,
		Reason:     req.Reason,
		Content:    req.Content,
		Status:     req.Status,
		AdminNotes: req.AdminNotes,
		ReviewedBy: req.ReviewedBy,
		ReviewedAt: req.ReviewedAt,
	})
	if err != nil {
		return writeError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(dto.ChatReportImportResponse{Report: report, Created: created})
}

// bind parses and validates the body. When it returns false the 400
// response has been written and err is the write result.
func (h *ModerationHandler) bind(c *fiber.Ctx, out interface{}) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Code: codeInvalidArgument, Message: "Invalid request body",
		})
	}
	if err := h.validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Code: codeInvalidArgument, Message: "Validation failed", Fields: fields,
			})
		}
		slog.Error("request validation error", "error", err.Error())
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Code: codeInvalidArgument, Message: "Invalid request body",
		})
	}
	return true, nil
}

func reportID(c *fiber.Ctx) (uuid.UUID, bool, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Code: codeInvalidArgument, Message: "Invalid report ID",
		})
	}
	return id, true, nil
}
