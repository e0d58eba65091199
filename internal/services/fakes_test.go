package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/platformapi"
)

type memStore struct {
	mu      sync.Mutex
	reports map[uuid.UUID]models.Report
	writes  int
}

func newMemStore(reports ...models.Report) *memStore {
	s := &memStore{reports: make(map[uuid.UUID]models.Report)}
	for _, r := range reports {
		s.reports[r.ID] = r
	}
	return s
}

func (s *memStore) Create(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.SourceRef != nil {
		for _, r := range s.reports {
			if r.SourceRef != nil && *r.SourceRef == *report.SourceRef {
				return fmt.Errorf("duplicate source_ref %s", *report.SourceRef)
			}
		}
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	if report.UpdatedAt.IsZero() {
		report.UpdatedAt = now
	}
	s.reports[report.ID] = *report
	s.writes++
	return nil
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return &r, nil
}

func (s *memStore) FindBySourceRef(_ context.Context, sourceRef string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.SourceRef != nil && *r.SourceRef == sourceRef {
			found := r
			return &found, nil
		}
	}
	return nil, fmt.Errorf("source %s: %w", sourceRef, ErrNotFound)
}

func (s *memStore) List(_ context.Context, filter ReportFilter, page Page) ([]models.Report, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Report
	for _, r := range s.reports {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.EntityType != "" && r.ReportedEntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && r.ReportedEntityID != filter.EntityID {
			continue
		}
		if filter.Reason != "" && r.Reason != filter.Reason {
			continue
		}
		if filter.ReporterID != "" && r.ReporterID != filter.ReporterID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if page.Offset >= len(out) {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[page.Offset:end], total, nil
}

func (s *memStore) cas(id uuid.UUID, from []models.ReportStatus, mutate func(*models.Report)) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	allowed := false
	for _, st := range from {
		if r.Status == st {
			allowed = true
		}
	}
	if !allowed {
		return nil, fmt.Errorf("report %s: %w", id, ErrInvalidStateTransition)
	}
	mutate(&r)
	s.reports[id] = r
	s.writes++
	out := r
	return &out, nil
}

func (s *memStore) Transition(_ context.Context, id uuid.UUID, from []models.ReportStatus, to models.ReportStatus, at time.Time) (*models.Report, error) {
	return s.cas(id, from, func(r *models.Report) {
		r.Status = to
		r.UpdatedAt = at.UTC()
	})
}

func (s *memStore) Resolve(_ context.Context, id uuid.UUID, from []models.ReportStatus, res models.Resolution) (*models.Report, error) {
	return s.cas(id, from, func(r *models.Report) { r.Apply(res) })
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	delete(s.reports, id)
	return nil
}

func (s *memStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type mutatorCall struct {
	Op         string
	EntityType models.EntityType
	EntityID   string
	Status     string
}

// fakePlatform plays both the entity mutation API and the summary API over
// an in-memory entity table.
type fakePlatform struct {
	mu       sync.Mutex
	entities map[string]*platformapi.EntitySummaryResponse
	calls    []mutatorCall
	err      error
	delay    time.Duration
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{entities: make(map[string]*platformapi.EntitySummaryResponse)}
}

func entityKey(t models.EntityType, id string) string { return string(t) + "/" + id }

func (p *fakePlatform) put(t models.EntityType, id string, e platformapi.EntitySummaryResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e.ID = id
	p.entities[entityKey(t, id)] = &e
}

func (p *fakePlatform) status(t models.EntityType, id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entities[entityKey(t, id)]; ok {
		return e.Status
	}
	return ""
}

func (p *fakePlatform) exists(t models.EntityType, id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entities[entityKey(t, id)]
	return ok
}

func (p *fakePlatform) mutations() []mutatorCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]mutatorCall(nil), p.calls...)
}

func (p *fakePlatform) record(call mutatorCall) error {
	p.calls = append(p.calls, call)
	if p.delay > 0 {
		p.mu.Unlock()
		time.Sleep(p.delay)
		p.mu.Lock()
	}
	return p.err
}

func (p *fakePlatform) GetSummary(_ context.Context, t models.EntityType, id string) (*platformapi.EntitySummaryResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entities[entityKey(t, id)]
	if !ok {
		return nil, &platformapi.RequestError{Op: "get summary", StatusCode: 404, Err: platformapi.ErrNotFound}
	}
	out := *e
	return &out, nil
}

func (p *fakePlatform) SetStatus(_ context.Context, t models.EntityType, id, status, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(mutatorCall{Op: "set_status", EntityType: t, EntityID: id, Status: status}); err != nil {
		return err
	}
	e, ok := p.entities[entityKey(t, id)]
	if !ok {
		return &platformapi.RequestError{Op: "set status", StatusCode: 404, Err: platformapi.ErrNotFound}
	}
	e.Status = status
	return nil
}

func (p *fakePlatform) Warn(_ context.Context, t models.EntityType, id, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(mutatorCall{Op: "warn", EntityType: t, EntityID: id}); err != nil {
		return err
	}
	if _, ok := p.entities[entityKey(t, id)]; !ok {
		return &platformapi.RequestError{Op: "warn", StatusCode: 404, Err: platformapi.ErrNotFound}
	}
	return nil
}

func (p *fakePlatform) DeleteEntity(_ context.Context, t models.EntityType, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record(mutatorCall{Op: "delete", EntityType: t, EntityID: id}); err != nil {
		return err
	}
	if _, ok := p.entities[entityKey(t, id)]; !ok {
		return &platformapi.RequestError{Op: "delete", StatusCode: 404, Err: platformapi.ErrNotFound}
	}
	delete(p.entities, entityKey(t, id))
	return nil
}

// syncNotifier dispatches inline so tests can inspect the result.
type syncNotifier struct {
	mu         sync.Mutex
	dispatcher *Dispatcher
	plans      []NotificationPlan
	reports    []DispatchReport
}

func (n *syncNotifier) Enqueue(plan NotificationPlan) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.plans = append(n.plans, plan)
	if n.dispatcher != nil {
		n.reports = append(n.reports, n.dispatcher.Dispatch(context.Background(), plan))
	}
	return true
}

func (n *syncNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.plans)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type memRecorder struct {
	mu      sync.Mutex
	reports []DispatchReport
}

func (r *memRecorder) Record(_ context.Context, report DispatchReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return nil
}

func (r *memRecorder) List(_ context.Context, reportID uuid.UUID) ([]models.NotificationDelivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.NotificationDelivery
	for _, rep := range r.reports {
		if rep.ReportID != reportID {
			continue
		}
		for _, e := range rep.Entries {
			out = append(out, models.NotificationDelivery{
				ReportID:    rep.ReportID,
				Recipient:   string(e.Recipient),
				RecipientID: e.RecipientID,
				Channel:     e.Channel,
				Status:      e.Status,
				Reason:      e.Reason,
			})
		}
	}
	return out, nil
}

func (r *memRecorder) recorded() []DispatchReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DispatchReport(nil), r.reports...)
}

func pendingReport(entityType models.EntityType, entityID string) models.Report {
	now := time.Now().UTC()
	return models.Report{
		ID:                 uuid.New(),
		ReporterID:         "reporter-1",
		ReportedEntityType: entityType,
		ReportedEntityID:   entityID,
		Reason:             models.ReasonFraud,
		Status:             models.StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
