package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kiranms1996/job-management/internal/api"
	"github.com/kiranms1996/job-management/internal/domain"
)

// Store implements api.Store plus the notifier and sweeper store contracts
// using PostgreSQL.
type Store struct {
	db        *sql.DB
	opTimeout time.Duration
}

// New creates a new PostgreSQL store with the given database connection.
// opTimeout bounds every operation; zero disables the per-op timeout.
func New(db *sql.DB, opTimeout time.Duration) *Store {
	return &Store{db: db, opTimeout: opTimeout}
}

var _ api.Store = (*Store)(nil)

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// Sortable columns of the applications listing. Guards the ORDER BY
// interpolation in queryListApplications.
var applicationOrderColumns = map[string]bool{
	"applicant_name":  true,
	"applicant_email": true,
	"job_id":          true,
	"date_applied":    true,
	"message":         true,
}

// UpsertListing inserts or updates the listing keyed by post_id in a single
// atomic statement, so concurrent saves of the same post cannot race.
func (s *Store) UpsertListing(ctx context.Context, listing domain.Listing) (domain.Listing, error) {
	if err := listing.Validate(); err != nil {
		return domain.Listing{}, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	err := s.db.QueryRowContext(ctx, queryUpsertListing,
		listing.PostID,
		listing.PositionTitle,
		listing.CompanyName,
		string(listing.JobType),
		string(listing.JobCategory),
		nullString(listing.CompanyLogo),
		listing.Description,
		nullString(listing.JobLocation),
		nullDate(listing.ExpiryDate),
		listing.IsFeatured,
	).Scan(&listing.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return domain.Listing{}, domain.ErrDuplicateListing
		}
		return domain.Listing{}, err
	}

	return listing, nil
}

func (s *Store) GetListingByPostID(ctx context.Context, postID int64) (domain.Listing, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	listing, err := scanListing(s.db.QueryRowContext(ctx, queryGetListingByPostID, postID))
	if err == sql.ErrNoRows {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	if err != nil {
		return domain.Listing{}, err
	}
	return listing, nil
}

// ListListings returns active listings (expiry unset or not yet passed) in
// insertion order, optionally filtered by category.
func (s *Store) ListListings(ctx context.Context, category string, limit int) ([]domain.Listing, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryListListings, today(), category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectListings(rows)
}

// ListFeatured returns featured, unexpired listings. Listings without an
// expiry date never appear here, matching the deployed behavior.
func (s *Store) ListFeatured(ctx context.Context, todayAt time.Time, limit int) ([]domain.Listing, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryListFeatured, todayAt.UTC().Format("2006-01-02"), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectListings(rows)
}

// CountApplications returns a fresh application count for the given post,
// never a stored aggregate.
func (s *Store) CountApplications(ctx context.Context, postID int64) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var count int64
	if err := s.db.QueryRowContext(ctx, queryCountApplicationsForJob, postID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) InsertApplication(ctx context.Context, app domain.Application) (domain.Application, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	err := s.db.QueryRowContext(ctx, queryInsertApplication,
		app.JobID,
		app.ApplicantName,
		app.ApplicantEmail,
		app.Message,
		app.ResumeURL,
		app.DateApplied,
	).Scan(&app.ID)
	if err != nil {
		return domain.Application{}, err
	}
	return app, nil
}

// ListApplications returns one page of applications with their resolved job
// titles plus the total row count.
func (s *Store) ListApplications(ctx context.Context, limit, offset int, orderBy string, desc bool) ([]api.ApplicationRow, int64, error) {
	if !applicationOrderColumns[orderBy] {
		return nil, 0, fmt.Errorf("postgres: unsortable column %q", orderBy)
	}
	direction := "ASC"
	if desc {
		direction = "DESC"
	}
	query := fmt.Sprintf(queryListApplications, orderBy, direction, direction)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []api.ApplicationRow
	for rows.Next() {
		row, err := scanApplicationRow(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, queryCountApplications).Scan(&total); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

// DeleteApplications removes the given ids in one statement. Unknown ids are
// skipped; the returned count reports how many rows were removed.
func (s *Store) DeleteApplications(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, queryDeleteApplications, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *Store) GetApplicationByID(ctx context.Context, id int64) (api.ApplicationRow, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	row, err := scanApplicationRow(s.db.QueryRowContext(ctx, queryGetApplicationByID, id))
	if err == sql.ErrNoRows {
		return api.ApplicationRow{}, domain.ErrApplicationNotFound
	}
	if err != nil {
		return api.ApplicationRow{}, err
	}
	return row, nil
}

// DeleteApplicationsBefore removes applications older than cutoff. Used by
// the retention sweeper.
func (s *Store) DeleteApplicationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, queryDeleteApplicationsBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// TryAdvisoryLock attempts to take a session-level Postgres advisory lock.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var acquired bool
	if err := s.db.QueryRowContext(ctx, queryTryAdvisoryLock, key).Scan(&acquired); err != nil {
		return false, err
	}
	return acquired, nil
}

// AdvisoryUnlock releases a lock taken with TryAdvisoryLock.
func (s *Store) AdvisoryUnlock(ctx context.Context, key int64) error {
	var released bool
	return s.db.QueryRowContext(ctx, queryAdvisoryUnlock, key).Scan(&released)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(r rowScanner) (domain.Listing, error) {
	var l domain.Listing
	var logo, location sql.NullString
	var expiry sql.NullTime

	err := r.Scan(
		&l.ID,
		&l.PostID,
		&l.PositionTitle,
		&l.CompanyName,
		&l.JobType,
		&l.JobCategory,
		&logo,
		&l.Description,
		&location,
		&expiry,
		&l.IsFeatured,
	)
	if err != nil {
		return domain.Listing{}, err
	}

	l.CompanyLogo = logo.String
	l.JobLocation = location.String
	if expiry.Valid {
		t := expiry.Time
		l.ExpiryDate = &t
	}
	return l, nil
}

func collectListings(rows *sql.Rows) ([]domain.Listing, error) {
	var result []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanApplicationRow(r rowScanner) (api.ApplicationRow, error) {
	var row api.ApplicationRow
	var title sql.NullString

	err := r.Scan(
		&row.Application.ID,
		&row.Application.JobID,
		&row.Application.ApplicantName,
		&row.Application.ApplicantEmail,
		&row.Application.Message,
		&row.Application.ResumeURL,
		&row.Application.DateApplied,
		&title,
	)
	if err != nil {
		return api.ApplicationRow{}, err
	}

	row.PositionTitle = title.String
	return row, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
