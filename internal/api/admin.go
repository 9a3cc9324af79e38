package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/kiranms1996/job-management/internal/domain"
	"github.com/kiranms1996/job-management/internal/sanitize"
)

// maxRequestBodySize limits admin JSON payloads (1MB).
const maxRequestBodySize = 1 << 20

// Sortable columns of the applications table. Matches the original admin
// screen's column set.
var sortableColumns = map[string]bool{
	"applicant_name":  true,
	"applicant_email": true,
	"job_id":          true,
	"date_applied":    true,
	"message":         true,
}

const defaultOrderBy = "date_applied"

func (h *Handler) admin(w http.ResponseWriter, r *http.Request) {
	// No token configured means the admin surface does not exist.
	if h.adminToken == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	path := r.URL.Path

	switch {
	case strings.HasPrefix(path, "/admin/jobs/") && r.Method == http.MethodPut:
		h.adminUpsertListing(w, r)

	case strings.HasPrefix(path, "/admin/jobs/") && r.Method == http.MethodGet:
		h.adminGetListing(w, r)

	case (path == "/admin/applications" || path == "/admin/applications/") && r.Method == http.MethodGet:
		h.adminListApplications(w, r)

	case path == "/admin/applications/delete" && r.Method == http.MethodPost:
		h.adminDeleteApplications(w, r)

	case strings.HasPrefix(path, "/admin/applications/") && r.Method == http.MethodGet:
		h.adminGetApplication(w, r)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return false
	}
	return strings.TrimPrefix(auth, prefix) == h.adminToken
}

func (h *Handler) adminUpsertListing(w http.ResponseWriter, r *http.Request) {
	postID, ok := parsePathID(w, r.URL.Path, "/admin/jobs/")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req ListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validateListing(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	listing := domain.Listing{
		PostID:        postID,
		PositionTitle: strings.TrimSpace(req.PositionTitle),
		CompanyName:   strings.TrimSpace(req.CompanyName),
		JobType:       domain.JobType(req.JobType),
		JobCategory:   domain.JobCategory(req.JobCategory),
		CompanyLogo:   req.CompanyLogo,
		Description:   sanitize.Description(req.Description),
		JobLocation:   strings.ToUpper(req.JobLocation),
		IsFeatured:    req.IsFeatured,
	}
	if req.ExpiryDate != "" {
		expiry, err := parseDate(req.ExpiryDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid expiry_date: must be YYYY-MM-DD")
			return
		}
		listing.ExpiryDate = &expiry
	}

	saved, err := h.store.UpsertListing(r.Context(), listing)
	if err != nil {
		var verr domain.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		log.Printf("api: upsert listing error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save job listing")
		return
	}

	h.metrics.ListingUpserted()
	writeJSON(w, http.StatusOK, listingResponse(saved))
}

func (h *Handler) adminGetListing(w http.ResponseWriter, r *http.Request) {
	postID, ok := parsePathID(w, r.URL.Path, "/admin/jobs/")
	if !ok {
		return
	}

	listing, err := h.store.GetListingByPostID(r.Context(), postID)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			writeError(w, http.StatusNotFound, "Job not found.")
			return
		}
		log.Printf("api: get listing error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load job listing")
		return
	}

	// Always computed fresh, never a stored aggregate.
	count, err := h.store.CountApplications(r.Context(), postID)
	if err != nil {
		log.Printf("api: count applications error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load job listing")
		return
	}

	resp := listingResponse(listing)
	resp.ApplicationCount = &count
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) adminListApplications(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := parsePageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orderBy := r.URL.Query().Get("orderby")
	if orderBy == "" {
		orderBy = defaultOrderBy
	}
	if !sortableColumns[orderBy] {
		writeError(w, http.StatusBadRequest, "invalid orderby column")
		return
	}

	desc := true
	switch strings.ToLower(r.URL.Query().Get("order")) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		writeError(w, http.StatusBadRequest, "order must be asc or desc")
		return
	}

	offset := (page - 1) * perPage
	rows, total, err := h.store.ListApplications(r.Context(), perPage, offset, orderBy, desc)
	if err != nil {
		log.Printf("api: list applications error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list applications")
		return
	}

	resp := ListApplicationsResponse{
		Applications: make([]ApplicationResponse, len(rows)),
		Page:         page,
		PerPage:      perPage,
		TotalItems:   total,
		TotalPages:   (total + int64(perPage) - 1) / int64(perPage),
	}
	for i, row := range rows {
		resp.Applications[i] = applicationResponse(row)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) adminGetApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r.URL.Path, "/admin/applications/")
	if !ok {
		return
	}

	row, err := h.store.GetApplicationByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrApplicationNotFound) {
			writeError(w, http.StatusNotFound, "application not found")
			return
		}
		log.Printf("api: get application error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load application")
		return
	}

	writeJSON(w, http.StatusOK, applicationResponse(row))
}

func (h *Handler) adminDeleteApplications(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req DeleteApplicationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusOK, DeleteApplicationsResponse{Deleted: 0})
		return
	}

	// Unknown ids are skipped silently; the count reports what was removed.
	deleted, err := h.store.DeleteApplications(r.Context(), req.IDs)
	if err != nil {
		log.Printf("api: delete applications error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete applications")
		return
	}

	h.metrics.ApplicationsDeleted(int(deleted))
	writeJSON(w, http.StatusOK, DeleteApplicationsResponse{Deleted: deleted})
}

func parsePathID(w http.ResponseWriter, path, prefix string) (int64, bool) {
	idStr := strings.TrimSuffix(strings.TrimPrefix(path, prefix), "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func parsePageParams(r *http.Request) (page, perPage int, err error) {
	page = 1
	perPage = DefaultPerPage

	if s := r.URL.Query().Get("page"); s != "" {
		page, err = strconv.Atoi(s)
		if err != nil || page < 1 {
			return 0, 0, errors.New("page must be a positive integer")
		}
	}
	if s := r.URL.Query().Get("per_page"); s != "" {
		perPage, err = strconv.Atoi(s)
		if err != nil || perPage < 1 {
			return 0, 0, errors.New("per_page must be a positive integer")
		}
		if perPage > MaxPerPage {
			return 0, 0, errors.New("per_page exceeds maximum of " + strconv.Itoa(MaxPerPage))
		}
	}
	return page, perPage, nil
}
