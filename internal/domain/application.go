package domain

import "time"

// Application is a candidate submission against a listing. JobID references
// Listing.PostID; existence is verified before insert, but there is no
// foreign key and no uniqueness constraint: duplicate submissions are
// allowed and rows survive listing deletion.
type Application struct {
	ID    int64
	JobID int64

	ApplicantName  string
	ApplicantEmail string
	Message        string
	ResumeURL      string

	DateApplied time.Time // set at creation, immutable
}
