package api

import (
	"time"

	"github.com/kiranms1996/job-management/internal/domain"
)

// ListingRequest is the admin upsert payload for PUT /admin/jobs/{post_id}.
type ListingRequest struct {
	PositionTitle string `json:"position_title"`
	CompanyName   string `json:"company_name"`
	JobType       string `json:"job_type"`
	JobCategory   string `json:"job_category"`
	CompanyLogo   string `json:"company_logo,omitempty"`
	Description   string `json:"description,omitempty"`
	JobLocation   string `json:"job_location,omitempty"`
	ExpiryDate    string `json:"expiry_date,omitempty"` // YYYY-MM-DD
	IsFeatured    bool   `json:"is_featured"`
}

type ListingResponse struct {
	ID            int64  `json:"id"`
	PostID        int64  `json:"post_id"`
	PositionTitle string `json:"position_title"`
	CompanyName   string `json:"company_name"`
	JobType       string `json:"job_type"`
	JobCategory   string `json:"job_category"`
	CompanyLogo   string `json:"company_logo,omitempty"`
	Description   string `json:"description,omitempty"`
	JobLocation   string `json:"job_location,omitempty"`
	ExpiryDate    string `json:"expiry_date,omitempty"`
	IsFeatured    bool   `json:"is_featured"`

	// Populated only on the admin detail view.
	ApplicationCount *int64 `json:"application_count,omitempty"`
}

// FeedItem is one row of the public featured feed. Field set matches the
// original deployment: post_id is exposed as job_id.
type FeedItem struct {
	PositionTitle string `json:"position_title"`
	CompanyName   string `json:"company_name"`
	JobType       string `json:"job_type"`
	ExpiryDate    string `json:"expiry_date"`
	IsFeatured    bool   `json:"is_featured"`
	JobID         int64  `json:"job_id"`
}

type ListListingsResponse struct {
	Jobs []ListingResponse `json:"jobs"`
}

// ApplicationRow pairs an application with its resolved job title.
// PositionTitle is empty when the listing no longer exists.
type ApplicationRow struct {
	Application   domain.Application
	PositionTitle string
}

type ApplicationResponse struct {
	ID             int64  `json:"id"`
	JobID          int64  `json:"job_id"`
	PositionTitle  string `json:"position_title"`
	ApplicantName  string `json:"applicant_name"`
	ApplicantEmail string `json:"applicant_email"`
	Message        string `json:"message"`
	ResumeURL      string `json:"resume_url"`
	DateApplied    string `json:"date_applied"`
}

type ListApplicationsResponse struct {
	Applications []ApplicationResponse `json:"applications"`
	Page         int                   `json:"page"`
	PerPage      int                   `json:"per_page"`
	TotalItems   int64                 `json:"total_items"`
	TotalPages   int64                 `json:"total_pages"`
}

type DeleteApplicationsRequest struct {
	IDs []int64 `json:"ids"`
}

type DeleteApplicationsResponse struct {
	Deleted int64 `json:"deleted"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Placeholder title rendered when an application's listing is gone.
const missingJobTitle = "Job not found"

func listingResponse(l domain.Listing) ListingResponse {
	resp := ListingResponse{
		ID:            l.ID,
		PostID:        l.PostID,
		PositionTitle: l.PositionTitle,
		CompanyName:   l.CompanyName,
		JobType:       string(l.JobType),
		JobCategory:   string(l.JobCategory),
		CompanyLogo:   l.CompanyLogo,
		Description:   l.Description,
		JobLocation:   l.JobLocation,
		IsFeatured:    l.IsFeatured,
	}
	if l.ExpiryDate != nil {
		resp.ExpiryDate = formatDate(*l.ExpiryDate)
	}
	return resp
}

func applicationResponse(row ApplicationRow) ApplicationResponse {
	title := row.PositionTitle
	if title == "" {
		title = missingJobTitle
	}
	return ApplicationResponse{
		ID:             row.Application.ID,
		JobID:          row.Application.JobID,
		PositionTitle:  title,
		ApplicantName:  row.Application.ApplicantName,
		ApplicantEmail: row.Application.ApplicantEmail,
		Message:        row.Application.Message,
		ResumeURL:      row.Application.ResumeURL,
		DateApplied:    formatTime(row.Application.DateApplied),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
