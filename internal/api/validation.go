package api

import (
	"fmt"
	"net/mail"
	"net/url"
	"time"

	"github.com/kiranms1996/job-management/internal/domain"
)

func validateListing(req ListingRequest) error {
	if req.PositionTitle == "" {
		return fmt.Errorf("position_title is required")
	}
	if req.CompanyName == "" {
		return fmt.Errorf("company_name is required")
	}
	if !domain.ValidJobType(domain.JobType(req.JobType)) {
		return fmt.Errorf("invalid job_type: %q", req.JobType)
	}
	if !domain.ValidJobCategory(domain.JobCategory(req.JobCategory)) {
		return fmt.Errorf("invalid job_category: %q", req.JobCategory)
	}
	if req.CompanyLogo != "" {
		if err := validateHTTPURL(req.CompanyLogo); err != nil {
			return fmt.Errorf("invalid company_logo: %w", err)
		}
	}
	if req.JobLocation != "" {
		if err := validateCountryCode(req.JobLocation); err != nil {
			return fmt.Errorf("invalid job_location: %w", err)
		}
	}
	if req.ExpiryDate != "" {
		if _, err := parseDate(req.ExpiryDate); err != nil {
			return fmt.Errorf("invalid expiry_date: must be YYYY-MM-DD")
		}
	}
	return nil
}

func validateEmail(addr string) error {
	if addr == "" {
		return fmt.Errorf("applicant_email is required")
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return fmt.Errorf("invalid email address")
	}
	// Reject display-name forms like "Jane <jane@example.com>".
	if parsed.Address != addr {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

func validateHTTPURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// validateCountryCode checks for a two-letter ISO 3166-1 alpha-2 shape.
func validateCountryCode(code string) error {
	if len(code) != 2 {
		return fmt.Errorf("must be a two-letter country code")
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return fmt.Errorf("must be a two-letter country code")
		}
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
