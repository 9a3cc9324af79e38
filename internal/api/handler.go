package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kiranms1996/job-management/internal/domain"
	"github.com/kiranms1996/job-management/internal/metrics"
	"github.com/kiranms1996/job-management/internal/sanitize"
	"github.com/kiranms1996/job-management/internal/upload"
)

// Pagination defaults and limits.
const (
	DefaultFeedLimit = 10
	DefaultPerPage   = 20
	MaxPerPage       = 100
)

type Store interface {
	UpsertListing(ctx context.Context, listing domain.Listing) (domain.Listing, error)
	GetListingByPostID(ctx context.Context, postID int64) (domain.Listing, error)
	ListListings(ctx context.Context, category string, limit int) ([]domain.Listing, error)
	ListFeatured(ctx context.Context, today time.Time, limit int) ([]domain.Listing, error)
	CountApplications(ctx context.Context, postID int64) (int64, error)
	InsertApplication(ctx context.Context, app domain.Application) (domain.Application, error)
	ListApplications(ctx context.Context, limit, offset int, orderBy string, desc bool) ([]ApplicationRow, int64, error)
	DeleteApplications(ctx context.Context, ids []int64) (int64, error)
	GetApplicationByID(ctx context.Context, id int64) (ApplicationRow, error)
}

// HealthChecker provides database health status for the /health endpoint.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// Emitter publishes application-received events for the notifier.
type Emitter interface {
	Emit(ctx context.Context, event domain.ApplicationReceived) error
}

// ViewRecorder records best-effort view/submission analytics.
type ViewRecorder interface {
	RecordView(ctx context.Context, jobID int64, at time.Time) error
	RecordApplication(ctx context.Context, jobID int64, at time.Time) error
}

type Handler struct {
	store          Store
	storage        upload.Storage
	db             HealthChecker
	bus            Emitter
	views          ViewRecorder
	metrics        metrics.Sink
	adminToken     string
	maxUploadBytes int64
	now            func() time.Time
}

func NewHandler(store Store, storage upload.Storage) *Handler {
	return &Handler{
		store:          store,
		storage:        storage,
		metrics:        metrics.NewNoopSink(),
		maxUploadBytes: 5 << 20,
		now:            time.Now,
	}
}

// WithHealthChecker sets the database health checker for verbose /health responses.
func (h *Handler) WithHealthChecker(db HealthChecker) *Handler {
	h.db = db
	return h
}

// WithAdminToken enables the /admin endpoints, gated by the given bearer token.
func (h *Handler) WithAdminToken(token string) *Handler {
	h.adminToken = token
	return h
}

func (h *Handler) WithMetrics(sink metrics.Sink) *Handler {
	if sink != nil {
		h.metrics = sink
	}
	return h
}

// WithEmitter publishes application-received events after successful submissions.
func (h *Handler) WithEmitter(bus Emitter) *Handler {
	h.bus = bus
	return h
}

// WithViews records listing view and submission analytics.
func (h *Handler) WithViews(views ViewRecorder) *Handler {
	h.views = views
	return h
}

func (h *Handler) WithMaxUploadBytes(n int64) *Handler {
	if n > 0 {
		h.maxUploadBytes = n
	}
	return h
}

// WithClock overrides the time source. Used by tests.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	path := r.URL.Path

	defer func() {
		h.metrics.RequestCompleted(routeLabel(path), rec.status, time.Since(start))
	}()

	switch {
	case path == "/health" && r.Method == http.MethodGet:
		h.health(rec, r)

	case (path == "/job-listings/" || path == "/job-listings") && r.Method == http.MethodGet:
		h.listFeatured(rec, r)

	case strings.HasPrefix(path, "/job-details/") && r.Method == http.MethodGet:
		h.jobDetails(rec, r)

	case (path == "/apply-to-job/" || path == "/apply-to-job") && r.Method == http.MethodPost:
		h.applyToJob(rec, r)

	case (path == "/jobs/" || path == "/jobs") && r.Method == http.MethodGet:
		h.browseListings(rec, r)

	case strings.HasPrefix(path, "/admin/"):
		h.admin(rec, r)

	default:
		writeError(rec, http.StatusNotFound, "not found")
	}
}

// routeLabel maps a request path to a bounded metrics label.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/job-details/"):
		return "/job-details/{job_id}"
	case strings.HasPrefix(path, "/admin/jobs/"):
		return "/admin/jobs/{post_id}"
	case strings.HasPrefix(path, "/admin/applications/") && path != "/admin/applications/delete":
		return "/admin/applications/{id}"
	default:
		return strings.TrimSuffix(path, "/") + "/"
	}
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"

	if !verbose || h.db == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Components: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Components["database"] = "unhealthy: " + err.Error()
	} else {
		resp.Components["database"] = "healthy"
	}

	statusCode := http.StatusOK
	if resp.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, resp)
}

// listFeatured serves the public featured feed. The original deployment
// registered a category parameter here but never applied it; that is kept.
func (h *Handler) listFeatured(w http.ResponseWriter, r *http.Request) {
	limit, err := parsePostsPerPage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid posts_per_page")
		return
	}

	listings, err := h.store.ListFeatured(r.Context(), h.now(), limit)
	if err != nil {
		log.Printf("api: list featured error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list job listings")
		return
	}

	// Empty feed answers 404, matching the original endpoint.
	if len(listings) == 0 {
		writeError(w, http.StatusNotFound, "No job listings found.")
		return
	}

	items := make([]FeedItem, len(listings))
	for i, l := range listings {
		item := FeedItem{
			PositionTitle: l.PositionTitle,
			CompanyName:   l.CompanyName,
			JobType:       string(l.JobType),
			IsFeatured:    l.IsFeatured,
			JobID:         l.PostID,
		}
		if l.ExpiryDate != nil {
			item.ExpiryDate = formatDate(*l.ExpiryDate)
		}
		items[i] = item
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) jobDetails(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/job-details/")
	idStr = strings.TrimSuffix(idStr, "/")
	postID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || postID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid job_id")
		return
	}

	listing, err := h.store.GetListingByPostID(r.Context(), postID)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			writeError(w, http.StatusNotFound, "Job not found.")
			return
		}
		log.Printf("api: get listing error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	if h.views != nil {
		if err := h.views.RecordView(r.Context(), postID, h.now()); err != nil {
			log.Printf("api: record view error: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, listingResponse(listing))
}

func (h *Handler) browseListings(w http.ResponseWriter, r *http.Request) {
	limit, err := parsePostsPerPage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid posts_per_page")
		return
	}
	category := r.URL.Query().Get("category")
	if category != "" && !domain.ValidJobCategory(domain.JobCategory(category)) {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}

	listings, err := h.store.ListListings(r.Context(), category, limit)
	if err != nil {
		log.Printf("api: list listings error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list job listings")
		return
	}

	resp := ListListingsResponse{Jobs: make([]ListingResponse, len(listings))}
	for i, l := range listings {
		resp.Jobs[i] = listingResponse(l)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) applyToJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	jobIDStr := r.FormValue("job_id")
	jobID, err := strconv.ParseInt(jobIDStr, 10, 64)
	if err != nil || jobID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid job_id")
		return
	}

	applicantName := sanitize.Plain(r.FormValue("applicant_name"))
	if applicantName == "" {
		writeError(w, http.StatusBadRequest, "applicant_name is required")
		return
	}

	applicantEmail := strings.TrimSpace(r.FormValue("applicant_email"))
	if err := validateEmail(applicantEmail); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	message := sanitize.Plain(r.FormValue("message"))
	if message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		h.rejectUpload(w, domain.UploadError{
			Reason:  domain.UploadReasonNoFile,
			Message: "No resume file provided.",
			Err:     err,
		})
		return
	}
	defer file.Close()

	if _, err := h.store.GetListingByPostID(r.Context(), jobID); err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			h.metrics.ApplicationOutcome(metrics.OutcomeRejected)
			writeError(w, http.StatusNotFound, "Job not found.")
			return
		}
		log.Printf("api: apply lookup error: %v", err)
		h.metrics.ApplicationOutcome(metrics.OutcomeError)
		writeError(w, http.StatusInternalServerError, "failed to submit application")
		return
	}

	resumeURL, err := h.storeResume(r.Context(), header, file)
	if err != nil {
		var upErr domain.UploadError
		if errors.As(err, &upErr) {
			h.rejectUpload(w, upErr)
			return
		}
		log.Printf("api: resume error: %v", err)
		h.metrics.ApplicationOutcome(metrics.OutcomeError)
		writeError(w, http.StatusInternalServerError, "failed to read resume")
		return
	}

	app := domain.Application{
		JobID:          jobID,
		ApplicantName:  applicantName,
		ApplicantEmail: applicantEmail,
		Message:        message,
		ResumeURL:      resumeURL,
		DateApplied:    h.now().UTC(),
	}

	saved, err := h.store.InsertApplication(r.Context(), app)
	if err != nil {
		log.Printf("api: insert application error: %v", err)
		h.metrics.ApplicationOutcome(metrics.OutcomeError)
		writeError(w, http.StatusInternalServerError, "failed to submit application")
		return
	}

	h.metrics.ApplicationOutcome(metrics.OutcomeAccepted)

	if h.views != nil {
		if err := h.views.RecordApplication(r.Context(), jobID, h.now()); err != nil {
			log.Printf("api: record application error: %v", err)
		}
	}

	if h.bus != nil {
		event := domain.ApplicationReceived{
			EventID:       uuid.New(),
			ApplicationID: saved.ID,
			JobID:         saved.JobID,
			ReceivedAt:    saved.DateApplied,
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		if err := h.bus.Emit(ctx, event); err != nil {
			log.Printf("api: emit application event error: %v", err)
		}
		cancel()
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Application submitted successfully."})
}

// storeResume validates the uploaded resume and writes it to storage,
// returning the stored file's public URL. Every rejection comes back as a
// domain.UploadError carrying the reason and the response message.
func (h *Handler) storeResume(ctx context.Context, header *multipart.FileHeader, file multipart.File) (string, error) {
	// Go's multipart parser treats a part with filename="" as a plain form
	// value, so in practice a missing name arrives as whitespace.
	if strings.TrimSpace(header.Filename) == "" {
		return "", domain.UploadError{
			Reason:  domain.UploadReasonNoFile,
			Message: "No file uploaded.",
		}
	}

	isPDF, err := upload.IsPDF(file)
	if err != nil {
		return "", fmt.Errorf("sniff resume: %w", err)
	}
	if !isPDF {
		return "", domain.UploadError{
			Reason:  domain.UploadReasonInvalidType,
			Message: "Only PDF files are allowed.",
		}
	}

	// Upload completes before any database write. On storage failure no
	// application row exists.
	url, err := h.storage.Save(ctx, header.Filename, file)
	if err != nil {
		return "", domain.UploadError{
			Reason:  domain.UploadReasonStorage,
			Message: "failed to store resume",
			Err:     err,
		}
	}
	return url, nil
}

func (h *Handler) rejectUpload(w http.ResponseWriter, err domain.UploadError) {
	if err.Err != nil {
		log.Printf("api: resume upload rejected (%s): %v", err.Reason, err.Err)
	}
	h.metrics.ResumeUploadRejected(err.Reason)
	writeError(w, http.StatusBadRequest, err.Message)
}

func parsePostsPerPage(r *http.Request) (int, error) {
	limit := DefaultFeedLimit
	if s := r.URL.Query().Get("posts_per_page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return 0, strconv.ErrRange
		}
		if n > MaxPerPage {
			n = MaxPerPage
		}
		limit = n
	}
	return limit, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: json encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
