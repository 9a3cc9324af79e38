package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kiranms1996/job-management/internal/domain"
	"github.com/kiranms1996/job-management/internal/metrics"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF")

func testListing(postID int64) domain.Listing {
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.Listing{
		ID:            1,
		PostID:        postID,
		PositionTitle: "Go Engineer",
		CompanyName:   "Acme",
		JobType:       domain.JobTypeFulltime,
		JobCategory:   domain.CategoryProgramming,
		Description:   "<p>Build things</p>",
		ExpiryDate:    &expiry,
		IsFeatured:    true,
	}
}

// --- Featured feed ---

func TestHandler_Feed_Success(t *testing.T) {
	store := &mockStore{
		listFeaturedFn: func(ctx context.Context, today time.Time, limit int) ([]domain.Listing, error) {
			return []domain.Listing{testListing(42)}, nil
		},
	}
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/job-listings/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var items []FeedItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].JobID != 42 {
		t.Errorf("JobID = %d, want 42", items[0].JobID)
	}
	if items[0].PositionTitle != "Go Engineer" {
		t.Errorf("PositionTitle = %q", items[0].PositionTitle)
	}
	if items[0].ExpiryDate != "2030-01-01" {
		t.Errorf("ExpiryDate = %q, want 2030-01-01", items[0].ExpiryDate)
	}
}

func TestHandler_Feed_Empty_Returns404(t *testing.T) {
	store := &mockStore{}
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/job-listings/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty feed, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Error != "No job listings found." {
		t.Errorf("error = %q, want %q", resp.Error, "No job listings found.")
	}
}

func TestHandler_Feed_PassesLimit(t *testing.T) {
	var gotLimit int
	store := &mockStore{
		listFeaturedFn: func(ctx context.Context, today time.Time, limit int) ([]domain.Listing, error) {
			gotLimit = limit
			return []domain.Listing{testListing(1)}, nil
		},
	}
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/job-listings/?posts_per_page=3", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if gotLimit != 3 {
		t.Errorf("limit = %d, want 3", gotLimit)
	}
}

// --- Job details ---

func TestHandler_JobDetails_Success(t *testing.T) {
	store := &mockStore{
		getListingFn: func(ctx context.Context, postID int64) (domain.Listing, error) {
			if postID != 42 {
				return domain.Listing{}, domain.ErrListingNotFound
			}
			return testListing(42), nil
		},
	}
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/job-details/42", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ListingResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.PostID != 42 {
		t.Errorf("PostID = %d, want 42", resp.PostID)
	}
	if resp.JobCategory != "programming" {
		t.Errorf("JobCategory = %q, want programming", resp.JobCategory)
	}
}

func TestHandler_JobDetails_NotFound(t *testing.T) {
	store := &mockStore{}
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/job-details/999", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "Job not found." {
		t.Errorf("error = %q, want %q", resp.Error, "Job not found.")
	}
}

func TestHandler_JobDetails_InvalidID(t *testing.T) {
	store := &mockStore{}
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/job-details/abc", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

type mockViews struct {
	mu           sync.Mutex
	views        []int64
	applications []int64
}

func (m *mockViews) RecordView(ctx context.Context, jobID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, jobID)
	return nil
}

func (m *mockViews) RecordApplication(ctx context.Context, jobID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applications = append(m.applications, jobID)
	return nil
}

func TestHandler_JobDetails_RecordsView(t *testing.T) {
	store := &mockStore{
		getListingFn: func(ctx context.Context, postID int64) (domain.Listing, error) {
			return testListing(postID), nil
		},
	}
	views := &mockViews{}
	handler := newTestHandler(store).WithViews(views)

	req := httptest.NewRequest(http.MethodGet, "/job-details/42", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if len(views.views) != 1 || views.views[0] != 42 {
		t.Errorf("views = %v, want [42]", views.views)
	}
}

// --- Browse listings ---

func TestHandler_Browse_Success(t *testing.T) {
	var gotCategory string
	store := &mockStore{
		listListingsFn: func(ctx context.Context, category string, limit int) ([]domain.Listing, error) {
			gotCategory = category
			return []domain.Listing{testListing(1), testListing(2)}, nil
		},
	}
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/jobs/?category=programming", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotCategory != "programming" {
		t.Errorf("category = %q, want programming", gotCategory)
	}

	var resp ListListingsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp.Jobs) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(resp.Jobs))
	}
}

func TestHandler_Browse_EmptyIsOK(t *testing.T) {
	// Unlike the featured feed, the browse path answers 200 on empty.
	store := &mockStore{}
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/jobs/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHandler_Browse_InvalidCategory(t *testing.T) {
	store := &mockStore{}
	handler := newTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/jobs/?category=plumbing", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

// --- Apply to job ---

type applyForm struct {
	jobID          string
	applicantName  string
	applicantEmail string
	message        string
	resumeName     string
	resumeContent  []byte
	omitResume     bool
}

func defaultApplyForm() applyForm {
	return applyForm{
		jobID:          "42",
		applicantName:  "Jane Doe",
		applicantEmail: "jane@example.com",
		message:        "Please consider my application.",
		resumeName:     "resume.pdf",
		resumeContent:  pdfBytes,
	}
}

func buildApplyRequest(t *testing.T, form applyForm) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("job_id", form.jobID)
	mw.WriteField("applicant_name", form.applicantName)
	mw.WriteField("applicant_email", form.applicantEmail)
	mw.WriteField("message", form.message)
	if !form.omitResume {
		fw, err := mw.CreateFormFile("resume", form.resumeName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(form.resumeContent)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/apply-to-job/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func applyStore() *mockStore {
	return &mockStore{
		getListingFn: func(ctx context.Context, postID int64) (domain.Listing, error) {
			if postID == 42 {
				return testListing(42), nil
			}
			return domain.Listing{}, domain.ErrListingNotFound
		},
	}
}

func TestHandler_Apply_Success(t *testing.T) {
	var inserted *domain.Application
	store := applyStore()
	store.insertApplicationFn = func(ctx context.Context, app domain.Application) (domain.Application, error) {
		app.ID = 7
		inserted = &app
		return app, nil
	}
	storage := &mockStorage{}
	handler := NewHandler(store, storage)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, buildApplyRequest(t, defaultApplyForm()))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp MessageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Message != "Application submitted successfully." {
		t.Errorf("message = %q", resp.Message)
	}

	if inserted == nil {
		t.Fatal("expected application insert")
	}
	if inserted.JobID != 42 {
		t.Errorf("JobID = %d, want 42", inserted.JobID)
	}
	if !strings.HasPrefix(inserted.ResumeURL, "/uploads/") {
		t.Errorf("ResumeURL = %q, want /uploads/ prefix", inserted.ResumeURL)
	}
	if storage.saved != 1 {
		t.Errorf("storage saves = %d, want 1", storage.saved)
	}
}

func TestHandler_Apply_MissingResume(t *testing.T) {
	store := applyStore()
	inserts := 0
	store.insertApplicationFn = func(ctx context.Context, app domain.Application) (domain.Application, error) {
		inserts++
		return app, nil
	}
	handler := newTestHandler(store)

	form := defaultApplyForm()
	form.omitResume = true

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, buildApplyRequest(t, form))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "No resume file provided." {
		t.Errorf("error = %q, want %q", resp.Error, "No resume file provided.")
	}
	if inserts != 0 {
		t.Error("no insert should happen without a resume")
	}
}

func TestHandler_Apply_UnknownJob(t *testing.T) {
	store := applyStore()
	handler := newTestHandler(store)

	form := defaultApplyForm()
	form.jobID = "999"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, buildApplyRequest(t, form))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "Job not found." {
		t.Errorf("error = %q, want %q", resp.Error, "Job not found.")
	}
}

func TestHandler_Apply_EmptyFilename(t *testing.T) {
	handler := newTestHandler(applyStore())

	// A part with a fully empty filename is parsed as a form value, so a
	// whitespace-only name is the observable shape of this failure.
	form := defaultApplyForm()
	form.resumeName = " "

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, buildApplyRequest(t, form))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "No file uploaded." {
		t.Errorf("error = %q, want %q", resp.Error, "No file uploaded.")
	}
}

func TestHandler_Apply_NonPDF(t *testing.T) {
	store := applyStore()
	inserts := 0
	store.insertApplicationFn = func(ctx context.Context, app domain.Application) (domain.Application, error) {
		inserts++
		return app, nil
	}
	storage := &mockStorage{}
	handler := NewHandler(store, storage)

	form := defaultApplyForm()
	form.resumeName = "resume.pdf"
	form.resumeContent = []byte("plain text pretending to be a pdf")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, buildApplyRequest(t, form))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "Only PDF files are allowed." {
		t.Errorf("error = %q, want %q", resp.Error, "Only PDF files are allowed.")
	}
	if inserts != 0 {
		t.Error("no insert should happen for a rejected file")
	}
	if storage.saved != 0 {
		t.Error("no upload should happen for a rejected file")
	}
}

func TestHandler_Apply_InvalidEmail(t *testing.T) {
	store := applyStore()
	inserts := 0
	store.insertApplicationFn = func(ctx context.Context, app domain.Application) (domain.Application, error) {
		inserts++
		return app, nil
	}
	handler := newTestHandler(store)

	form := defaultApplyForm()
	form.applicantEmail = "not-an-email"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, buildApplyRequest(t, form))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if inserts != 0 {
		t.Error("no insert should happen for an invalid email")
	}
}

func TestHandler_Apply_StorageFailure(t *testing.T) {
	store := applyStore()
	inserts := 0
	store.insertApplicationFn = func(ctx context.Context, app domain.Application) (domain.Application, error) {
		inserts++
		return app, nil
	}
	storage := &mockStorage{
		saveFn: func(ctx context.Context, filename string, r io.Reader) (string, error) {
			return "", errors.New("disk full")
		},
	}
	handler := NewHandler(store, storage)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, buildApplyRequest(t, defaultApplyForm()))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if inserts != 0 {
		t.Error("no insert should happen when storage fails")
	}
}

func TestHandler_Apply_EmitsEvent(t *testing.T) {
	store := applyStore()
	store.insertApplicationFn = func(ctx context.Context, app domain.Application) (domain.Application, error) {
		app.ID = 9
		return app, nil
	}

	var emitted []domain.ApplicationReceived
	emitter := emitterFunc(func(ctx context.Context, ev domain.ApplicationReceived) error {
		emitted = append(emitted, ev)
		return nil
	})

	handler := newTestHandler(store).WithEmitter(emitter)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, buildApplyRequest(t, defaultApplyForm()))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(emitted) != 1 {
		t.Fatalf("expected 1 event, got %d", len(emitted))
	}
	if emitted[0].ApplicationID != 9 || emitted[0].JobID != 42 {
		t.Errorf("event = %+v", emitted[0])
	}
}

type emitterFunc func(ctx context.Context, ev domain.ApplicationReceived) error

func (f emitterFunc) Emit(ctx context.Context, ev domain.ApplicationReceived) error {
	return f(ctx, ev)
}

// --- Health ---

func TestHandler_Health_Simple(t *testing.T) {
	handler := newTestHandler(&mockStore{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHandler_Health_VerboseDegraded(t *testing.T) {
	db := &mockHealthChecker{
		pingFn: func(ctx context.Context) error { return errors.New("connection refused") },
	}
	handler := newTestHandler(&mockStore{}).WithHealthChecker(db)

	req := httptest.NewRequest(http.MethodGet, "/health?verbose=true", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
}

func TestHandler_UnknownRoute(t *testing.T) {
	handler := newTestHandler(&mockStore{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

// rejectionSink records resume rejection reasons, ignoring everything else.
type rejectionSink struct {
	metrics.NoopSink
	mu      sync.Mutex
	reasons []string
}

func (s *rejectionSink) ResumeUploadRejected(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasons = append(s.reasons, reason)
}

func TestHandler_Apply_RejectionReasons(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*applyForm)
		storage    *mockStorage
		wantReason string
		wantError  string
	}{
		{
			name:       "missing resume part",
			mutate:     func(f *applyForm) { f.omitResume = true },
			wantReason: domain.UploadReasonNoFile,
			wantError:  "No resume file provided.",
		},
		{
			name:       "blank filename",
			mutate:     func(f *applyForm) { f.resumeName = " " },
			wantReason: domain.UploadReasonNoFile,
			wantError:  "No file uploaded.",
		},
		{
			name:       "non-pdf content",
			mutate:     func(f *applyForm) { f.resumeContent = []byte("plain text") },
			wantReason: domain.UploadReasonInvalidType,
			wantError:  "Only PDF files are allowed.",
		},
		{
			name:   "storage failure",
			mutate: func(f *applyForm) {},
			storage: &mockStorage{saveFn: func(ctx context.Context, filename string, r io.Reader) (string, error) {
				return "", errors.New("disk full")
			}},
			wantReason: domain.UploadReasonStorage,
			wantError:  "failed to store resume",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &rejectionSink{}
			storage := tt.storage
			if storage == nil {
				storage = &mockStorage{}
			}
			handler := NewHandler(applyStore(), storage).WithMetrics(sink)

			form := defaultApplyForm()
			tt.mutate(&form)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, buildApplyRequest(t, form))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			var resp ErrorResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
			if len(sink.reasons) != 1 || sink.reasons[0] != tt.wantReason {
				t.Errorf("reasons = %v, want [%s]", sink.reasons, tt.wantReason)
			}
		})
	}
}
