package intake

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uroflux/intake-api/internal/model"
	"github.com/uroflux/intake-api/internal/repository"
	"github.com/uroflux/intake-api/pkg/apperror"
)

// In-memory fakes for the orchestrator's collaborators. They mirror the
// semantics of the real gateways closely enough for pipeline tests: terminal
// exam statuses are immutable, lookups are keyed the same way, and errors can
// be injected per call.

type fakePatientRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*model.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[uuid.UUID]*model.Patient)}
}

func (r *fakePatientRepo) add(p *model.Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = p
}

func (r *fakePatientRepo) Create(ctx context.Context, p *model.Patient) error {
	p.CreatedAt = time.Now()
	r.add(p)
	return nil
}

func (r *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.patients[id]; ok {
		return p, nil
	}
	return nil, apperror.NotFound("patient")
}

func (r *fakePatientRepo) GetByWhatsApp(ctx context.Context, whatsapp string) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.patients {
		if p.WhatsApp == whatsapp {
			return p, nil
		}
	}
	return nil, apperror.NotFound("patient")
}

func (r *fakePatientRepo) Search(ctx context.Context, query string) ([]*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Patient
	for _, p := range r.patients {
		if query == "" || containsFold(p.Name, query) || containsFold(p.NationalID, query) || containsFold(p.WhatsApp, query) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePatientRepo) ExistsByIdentity(ctx context.Context, nationalID, whatsapp string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.patients {
		if p.NationalID == nationalID || p.WhatsApp == whatsapp {
			return true, nil
		}
	}
	return false, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

type fakeExamRepo struct {
	mu    sync.Mutex
	exams map[uuid.UUID]*model.Exam
	// results keyed by exam id
	results map[uuid.UUID]*model.ExamResult
	// updateHook can reject an update before it is applied, for driving
	// persistence failures through the pipeline.
	updateHook func(upd model.ExamUpdate) error
}

func newFakeExamRepo() *fakeExamRepo {
	return &fakeExamRepo{
		exams:   make(map[uuid.UUID]*model.Exam),
		results: make(map[uuid.UUID]*model.ExamResult),
	}
}

func (r *fakeExamRepo) Create(ctx context.Context, exam *model.Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	exam.CreatedAt = time.Now()
	exam.UpdatedAt = exam.CreatedAt
	cp := *exam
	r.exams[exam.ID] = &cp
	return nil
}

func (r *fakeExamRepo) Get(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.exams[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, apperror.NotFound("exam")
}

func (r *fakeExamRepo) GetByProviderMessageID(ctx context.Context, messageID string) (*model.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.exams {
		if e.ProviderMessageID != nil && *e.ProviderMessageID == messageID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("exam")
}

func (r *fakeExamRepo) Update(ctx context.Context, id uuid.UUID, upd model.ExamUpdate) (*model.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateHook != nil {
		if err := r.updateHook(upd); err != nil {
			return nil, err
		}
	}
	e, ok := r.exams[id]
	if !ok {
		return nil, apperror.NotFound("exam")
	}
	if upd.Status != nil && !e.Status.Terminal() {
		e.Status = *upd.Status
	}
	if upd.AudioURL != nil {
		e.AudioURL = upd.AudioURL
	}
	if upd.ReportURL != nil {
		e.ReportURL = upd.ReportURL
	}
	e.UpdatedAt = time.Now()
	cp := *e
	return &cp, nil
}

func (r *fakeExamRepo) List(ctx context.Context, patientID *uuid.UUID) ([]*model.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Exam
	for _, e := range r.exams {
		if patientID == nil || e.PatientID == *patientID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > repository.ExamPageSize {
		out = out[:repository.ExamPageSize]
	}
	return out, nil
}

func (r *fakeExamRepo) CreateResult(ctx context.Context, result *model.ExamResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	result.CreatedAt = time.Now()
	cp := *result
	r.results[result.ExamID] = &cp
	return nil
}

func (r *fakeExamRepo) GetResultByExam(ctx context.Context, examID uuid.UUID) (*model.ExamResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.results[examID]; ok {
		cp := *res
		return &cp, nil
	}
	return nil, apperror.NotFound("exam result")
}

func (r *fakeExamRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.exams)
}

func (r *fakeExamRepo) single() *model.Exam {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.exams {
		cp := *e
		return &cp
	}
	return nil
}

type fakeOutboxRepo struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{}
}

func (r *fakeOutboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = uuid.New()
	event.CreatedAt = time.Now()
	event.Status = model.OutboxStatusPending
	r.events = append(r.events, event)
	return nil
}

func (r *fakeOutboxRepo) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.OutboxEvent
	for _, e := range r.events {
		if e.Status == model.OutboxStatusPending && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeOutboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			e.Status = status
			e.ErrorMessage = errMsg
		}
	}
	return nil
}

func (r *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeOutboxRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (s *fakeBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return "https://blobs.test/" + key, nil
}

type sentText struct {
	to   string
	body string
}

type sentDocument struct {
	to       string
	url      string
	filename string
	caption  string
}

type sentTemplate struct {
	to       string
	name     string
	language string
}

type fakeMessenger struct {
	mu        sync.Mutex
	texts     []sentText
	documents []sentDocument
	templates []sentTemplate

	media       map[string]string // media id -> url
	downloads   map[string][]byte // url -> bytes
	resolveErr  error
	downloadErr error
	sendDocErr  error
	sendTextErr error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		media:     make(map[string]string),
		downloads: make(map[string][]byte),
	}
}

func (m *fakeMessenger) SendText(ctx context.Context, to, body string) error {
	if m.sendTextErr != nil {
		return m.sendTextErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, sentText{to: to, body: body})
	return nil
}

func (m *fakeMessenger) SendTemplate(ctx context.Context, to, templateName, languageTag string, components []map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append(m.templates, sentTemplate{to: to, name: templateName, language: languageTag})
	return nil
}

func (m *fakeMessenger) SendDocument(ctx context.Context, to, documentURL, filename, caption string) error {
	if m.sendDocErr != nil {
		return m.sendDocErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, sentDocument{to: to, url: documentURL, filename: filename, caption: caption})
	return nil
}

func (m *fakeMessenger) ResolveMediaURL(ctx context.Context, mediaID string) (string, error) {
	if m.resolveErr != nil {
		return "", m.resolveErr
	}
	if url, ok := m.media[mediaID]; ok {
		return url, nil
	}
	return "", &fakeUpstreamErr{}
}

func (m *fakeMessenger) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	if data, ok := m.downloads[mediaURL]; ok {
		return data, nil
	}
	return nil, &fakeUpstreamErr{}
}

type fakeUpstreamErr struct{}

func (e *fakeUpstreamErr) Error() string { return "upstream unavailable" }

// countingAnalyzer wraps a result and records invocations and inputs.
type countingAnalyzer struct {
	mu     sync.Mutex
	calls  int
	inputs [][]byte
	result model.Metrics
	err    error
}

func (a *countingAnalyzer) Analyze(audio []byte) (model.Metrics, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.inputs = append(a.inputs, audio)
	if a.err != nil {
		return model.Metrics{}, a.err
	}
	return a.result, nil
}

type fakeAlertSender struct {
	mu    sync.Mutex
	calls int
}

func (a *fakeAlertSender) SendExamFailedAlert(exam *model.Exam, patient *model.Patient, cause error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return nil
}

var _ repository.PatientRepository = (*fakePatientRepo)(nil)
var _ repository.ExamRepository = (*fakeExamRepo)(nil)
var _ repository.OutboxRepository = (*fakeOutboxRepo)(nil)
