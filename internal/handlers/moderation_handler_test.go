package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/platformapi"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/services"
)

type stubReports struct {
	report   *models.Report
	created  bool
	err      error
	gotList  services.ListReportsInput
	gotChat  services.ChatReportImport
	listRows []models.Report
}

func (s *stubReports) CreateReport(_ context.Context, _ string, _ services.CreateReportInput) (*models.Report, error) {
	return s.report, s.err
}

func (s *stubReports) GetReport(_ context.Context, _ uuid.UUID) (*services.ReportView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.ReportView{Report: s.report, EntityMissing: true}, nil
}

func (s *stubReports) ListReports(_ context.Context, in services.ListReportsInput) ([]models.Report, int64, error) {
	s.gotList = in
	return s.listRows, int64(len(s.listRows)), s.err
}

func (s *stubReports) DeleteReport(_ context.Context, _ uuid.UUID) error { return s.err }

func (s *stubReports) ListDeliveries(_ context.Context, _ uuid.UUID) ([]models.NotificationDelivery, error) {
	return nil, s.err
}

func (s *stubReports) ImportChatReport(_ context.Context, in services.ChatReportImport) (*models.Report, bool, error) {
	s.gotChat = in
	return s.report, s.created, s.err
}

type stubResolutions struct {
	result  *services.ResolveResult
	err     error
	gotReq  services.ResolveRequest
	gotByID string
}

func (s *stubResolutions) Resolve(_ context.Context, _ uuid.UUID, adminID string, req services.ResolveRequest) (*services.ResolveResult, error) {
	s.gotReq = req
	s.gotByID = adminID
	return s.result, s.err
}

func (s *stubResolutions) Reject(_ context.Context, _ uuid.UUID, _, _ string) (*models.Report, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result.Report, nil
}

func (s *stubResolutions) StartReview(_ context.Context, _ uuid.UUID) (*models.Report, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result.Report, nil
}

func newTestApp(reports *stubReports, resolutions *stubResolutions) *fiber.App {
	h := NewModerationHandler(reports, resolutions)
	app := fiber.New()
	admin := app.Group("/admin/reports", func(c *fiber.Ctx) error {
		c.Locals("admin_id", "admin-1")
		return c.Next()
	})
	admin.Get("/", h.ListReports)
	admin.Post("/chat-import", h.ImportChatReport)
	admin.Get("/:id", h.GetReport)
	admin.Delete("/:id", h.DeleteReport)
	admin.Post("/:id/review", h.StartReview)
	admin.Post("/:id/resolve", h.ResolveReport)
	admin.Post("/:id/reject", h.RejectReport)
	admin.Get("/:id/deliveries", h.ListDeliveries)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantBody  string
		retryable bool
	}{
		{"not found", services.ErrNotFound, fiber.StatusNotFound, codeNotFound, false},
		{"already resolved", fmt.Errorf("resolve: %w", services.ErrInvalidStateTransition), fiber.StatusConflict, codeAlreadyResolved, false},
		{"in progress", services.ErrResolutionInProgress, fiber.StatusConflict, codeResolutionInProgress, false},
		{"invalid argument", fmt.Errorf("%w: unknown action", services.ErrInvalidArgument), fiber.StatusBadRequest, codeInvalidArgument, false},
		{"transient action failure", &services.ActionError{Kind: services.ActionTransientFailure, Op: "set status", Err: context.DeadlineExceeded}, fiber.StatusBadGateway, codeActionFailed, true},
		{"rejected action", &services.ActionError{Kind: services.ActionRejected, Op: "set status", Err: errors.New("422")}, fiber.StatusBadGateway, codeActionFailed, false},
		{"unauthorized action", &services.ActionError{Kind: services.ActionUnauthorized, Op: "delete", Err: errors.New("403")}, fiber.StatusForbidden, codeUnauthorized, false},
		{"unexpected", errors.New("boom"), fiber.StatusInternalServerError, codeInternal, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(&stubReports{}, &stubResolutions{err: tc.err})

			status, body := doJSON(t, app, "POST", "/admin/reports/"+uuid.NewString()+"/resolve", `{"adminAction":"ACCOUNT_BANNED"}`)
			assert.Equal(t, tc.wantCode, status)
			assert.Equal(t, tc.wantBody, body["code"])
			assert.Equal(t, true, body["error"])
			if tc.retryable {
				assert.Equal(t, true, body["retryable"])
			} else {
				assert.Nil(t, body["retryable"])
			}
		})
	}
}

type goneEntities struct{}

func (goneEntities) GetSummary(_ context.Context, _ models.EntityType, _ string) (*platformapi.EntitySummaryResponse, error) {
	return nil, &platformapi.RequestError{Op: "get summary", StatusCode: 404, Err: platformapi.ErrNotFound}
}

func (goneEntities) SetStatus(_ context.Context, _ models.EntityType, _, _, _ string) error {
	return errors.New("unexpected set status")
}

func (goneEntities) Warn(_ context.Context, _ models.EntityType, _, _ string) error {
	return errors.New("unexpected warn")
}

func (goneEntities) DeleteEntity(_ context.Context, _ models.EntityType, _ string) error {
	return errors.New("unexpected delete")
}

func TestResolveDeletedChatMessageIsActionFailure(t *testing.T) {
	actions := services.NewModerationActionService(goneEntities{}, services.NewEntityResolver(goneEntities{}), time.Second, nil)
	actionErr := actions.Apply(context.Background(), models.EntityChatMessage, "m1", models.ActionAccountBanned, "")
	require.Error(t, actionErr)
	require.True(t, errors.Is(actionErr, services.ErrNotFound), "cause stays inspectable")

	id := uuid.New()
	app := newTestApp(&stubReports{}, &stubResolutions{err: fmt.Errorf("resolve report %s: %w", id, actionErr)})

	status, body := doJSON(t, app, "POST", "/admin/reports/"+id.String()+"/resolve", `{"adminAction":"ACCOUNT_BANNED"}`)
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, codeActionFailed, body["code"])
	assert.Nil(t, body["retryable"])
	assert.Contains(t, body["message"], "no longer exists")
}

func TestResolveReportResponse(t *testing.T) {
	resolvedAt := time.Now().UTC()
	report := &models.Report{ID: uuid.New(), Status: models.StatusResolved, AdminAction: models.ActionAccountBanned, ResolvedBy: "admin-1", ResolvedAt: &resolvedAt}
	resolutions := &stubResolutions{result: &services.ResolveResult{
		Report: report,
		Plan: services.NotificationPlan{
			ReportID: report.ID,
			Recipients: []services.RecipientPlan{
				{Role: services.RecipientReporter, UserID: "u-1", Notify: true, Channels: []models.Channel{models.ChannelInApp}},
				{Role: services.RecipientReportedEntity, UserID: "", Notify: false},
			},
		},
	}}
	app := newTestApp(&stubReports{}, resolutions)

	status, body := doJSON(t, app, "POST", "/admin/reports/"+report.ID.String()+"/resolve",
		`{"adminAction":"ACCOUNT_BANNED","adminNotes":"repeat offender","notifyReporter":true,"reporterChannels":["IN_APP","in_app"]}`)
	require.Equal(t, fiber.StatusOK, status)

	assert.Equal(t, "admin-1", resolutions.gotByID)
	assert.Equal(t, "ACCOUNT_BANNED", resolutions.gotReq.AdminAction)
	assert.Equal(t, []string{"IN_APP", "in_app"}, resolutions.gotReq.ReporterChannels)
	assert.True(t, resolutions.gotReq.NotifyReporter)

	notifications := body["notifications"].(map[string]interface{})
	recipients := notifications["recipients"].([]interface{})
	require.Len(t, recipients, 2)
	reporter := recipients[0].(map[string]interface{})
	assert.Equal(t, "REPORTER", reporter["role"])
	assert.Equal(t, true, reporter["resolved"])
	owner := recipients[1].(map[string]interface{})
	assert.Equal(t, false, owner["resolved"])
	assert.Equal(t, []interface{}{}, owner["channels"])
}

func TestResolveReportValidation(t *testing.T) {
	resolutions := &stubResolutions{}
	app := newTestApp(&stubReports{}, resolutions)
	id := uuid.NewString()

	status, body := doJSON(t, app, "POST", "/admin/reports/"+id+"/resolve", `{"adminNotes":"x"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, codeInvalidArgument, body["code"])
	fields := body["fields"].(map[string]interface{})
	assert.Equal(t, "required", fields["AdminAction"])

	status, body = doJSON(t, app, "POST", "/admin/reports/"+id+"/resolve", `{not json`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid request body", body["message"])

	status, body = doJSON(t, app, "POST", "/admin/reports/not-a-uuid/resolve", `{"adminAction":"NO_ACTION"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid report ID", body["message"])

	assert.Empty(t, resolutions.gotReq.AdminAction)
}

func TestListReportsQuery(t *testing.T) {
	reports := &stubReports{}
	app := newTestApp(reports, &stubResolutions{})

	status, body := doJSON(t, app, "GET", "/admin/reports/?status=PENDING&entityType=STARTUP&page=0&limit=500", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "PENDING", reports.gotList.Status)
	assert.Equal(t, "STARTUP", reports.gotList.EntityType)
	assert.Equal(t, []interface{}{}, body["reports"])
	assert.Equal(t, float64(1), body["page"])
	assert.Equal(t, float64(100), body["limit"])
}

func TestGetAndDeleteReport(t *testing.T) {
	report := &models.Report{ID: uuid.New(), Status: models.StatusPending}
	app := newTestApp(&stubReports{report: report}, &stubResolutions{})

	status, body := doJSON(t, app, "GET", "/admin/reports/"+report.ID.String(), "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["entityMissing"])

	req := httptest.NewRequest("DELETE", "/admin/reports/"+report.ID.String(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	missing := newTestApp(&stubReports{err: services.ErrNotFound}, &stubResolutions{})
	status, _ = doJSON(t, missing, "GET", "/admin/reports/"+uuid.NewString(), "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestImportChatReportStatusCodes(t *testing.T) {
	report := &models.Report{ID: uuid.New(), Status: models.StatusPending}
	payload := `{"sourceRef":"chat-1","messageId":"m1","reporterId":"u-1","reason":"spam","content":"buy now"}`

	reports := &stubReports{report: report, created: true}
	status, body := doJSON(t, newTestApp(reports, &stubResolutions{}), "POST", "/admin/reports/chat-import", payload)
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, true, body["created"])
	assert.Equal(t, "chat-1", reports.gotChat.SourceRef)

	reports = &stubReports{report: report, created: false}
	status, body = doJSON(t, newTestApp(reports, &stubResolutions{}), "POST", "/admin/reports/chat-import", payload)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["created"])

	status, body = doJSON(t, newTestApp(&stubReports{}, &stubResolutions{}), "POST", "/admin/reports/chat-import", `{"messageId":"m1"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	fields := body["fields"].(map[string]interface{})
	assert.Equal(t, "required", fields["SourceRef"])
	assert.Equal(t, "required", fields["ReporterID"])
}

func TestRejectAndReview(t *testing.T) {
	report := &models.Report{ID: uuid.New(), Status: models.StatusUnderReview}
	app := newTestApp(&stubReports{}, &stubResolutions{result: &services.ResolveResult{Report: report}})

	status, body := doJSON(t, app, "POST", "/admin/reports/"+report.ID.String()+"/review", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, string(models.StatusUnderReview), body["status"])

	status, _ = doJSON(t, app, "POST", "/admin/reports/"+report.ID.String()+"/reject", `{"adminNotes":"duplicate"}`)
	assert.Equal(t, fiber.StatusOK, status)

	conflict := newTestApp(&stubReports{}, &stubResolutions{err: services.ErrInvalidStateTransition})
	status, body = doJSON(t, conflict, "POST", "/admin/reports/"+report.ID.String()+"/reject", `{"adminNotes":"duplicate"}`)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, codeAlreadyResolved, body["code"])
}
