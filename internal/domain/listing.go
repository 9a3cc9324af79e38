package domain

import "time"

type JobType string

const (
	JobTypeFreelance JobType = "freelance"
	JobTypeParttime  JobType = "parttime"
	JobTypeFulltime  JobType = "fulltime"
)

// ValidJobType reports whether t is one of the declared job types.
func ValidJobType(t JobType) bool {
	switch t {
	case JobTypeFreelance, JobTypeParttime, JobTypeFulltime:
		return true
	}
	return false
}

type JobCategory string

const (
	CategoryCopywriting    JobCategory = "copywriting"
	CategoryProgramming    JobCategory = "programming"
	CategoryDesign         JobCategory = "design"
	CategoryUserExperience JobCategory = "user_experience"
)

// ValidJobCategory reports whether c is one of the declared categories.
func ValidJobCategory(c JobCategory) bool {
	switch c {
	case CategoryCopywriting, CategoryProgramming, CategoryDesign, CategoryUserExperience:
		return true
	}
	return false
}

// Listing is a job posting. PostID is the business key: one listing per
// owning content record, enforced by a unique constraint.
type Listing struct {
	ID     int64
	PostID int64

	PositionTitle string
	CompanyName   string
	JobType       JobType
	JobCategory   JobCategory

	CompanyLogo string // optional URL
	Description string // sanitized HTML
	JobLocation string // optional ISO 3166-1 alpha-2 code

	ExpiryDate *time.Time // date precision, nil = never expires
	IsFeatured bool
}

// ActiveAt reports whether the listing is active at t:
// no expiry date, or an expiry date on or after t's day.
func (l Listing) ActiveAt(t time.Time) bool {
	if l.ExpiryDate == nil {
		return true
	}
	return !l.ExpiryDate.Before(dateOf(t))
}

// FeaturedAt reports whether the listing qualifies for the public featured
// feed at t. A listing without an expiry date never qualifies: the feed
// query compares expiry_date >= today, so nil is excluded.
func (l Listing) FeaturedAt(t time.Time) bool {
	if !l.IsFeatured || l.ExpiryDate == nil {
		return false
	}
	return !l.ExpiryDate.Before(dateOf(t))
}

// Validate checks the fields a listing must carry before it is persisted.
func (l Listing) Validate() error {
	if l.PostID <= 0 {
		return ValidationError{Field: "post_id", Message: "must be a positive integer"}
	}
	if l.PositionTitle == "" {
		return ValidationError{Field: "position_title", Message: "is required"}
	}
	if l.CompanyName == "" {
		return ValidationError{Field: "company_name", Message: "is required"}
	}
	if !ValidJobType(l.JobType) {
		return ValidationError{Field: "job_type", Message: "must be freelance, parttime or fulltime"}
	}
	if !ValidJobCategory(l.JobCategory) {
		return ValidationError{Field: "job_category", Message: "must be copywriting, programming, design or user_experience"}
	}
	return nil
}

// dateOf truncates t to its UTC calendar day.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
