package postgres

const queryUpsertListing = `
INSERT INTO jobs (
    post_id, position_title, company_name, job_type, job_category,
    company_logo, description, job_location, expiry_date, is_featured
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (post_id) DO UPDATE SET
    position_title = EXCLUDED.position_title,
    company_name   = EXCLUDED.company_name,
    job_type       = EXCLUDED.job_type,
    job_category   = EXCLUDED.job_category,
    company_logo   = EXCLUDED.company_logo,
    description    = EXCLUDED.description,
    job_location   = EXCLUDED.job_location,
    expiry_date    = EXCLUDED.expiry_date,
    is_featured    = EXCLUDED.is_featured
RETURNING id
`

const queryGetListingByPostID = `
SELECT id, post_id, position_title, company_name, job_type, job_category,
       company_logo, description, job_location, expiry_date, is_featured
FROM jobs
WHERE post_id = $1
`

const queryListListings = `
SELECT id, post_id, position_title, company_name, job_type, job_category,
       company_logo, description, job_location, expiry_date, is_featured
FROM jobs
WHERE (expiry_date IS NULL OR expiry_date >= $1)
  AND ($2 = '' OR job_category = $2)
ORDER BY id
LIMIT $3
`

const queryListFeatured = `
SELECT id, post_id, position_title, company_name, job_type, job_category,
       company_logo, description, job_location, expiry_date, is_featured
FROM jobs
WHERE is_featured = TRUE
  AND expiry_date >= $1
ORDER BY id ASC
LIMIT $2
`

const queryCountApplicationsForJob = `
SELECT COUNT(*) FROM job_applications WHERE job_id = $1
`

const queryInsertApplication = `
INSERT INTO job_applications (job_id, applicant_name, applicant_email, message, resume_url, date_applied)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`

// queryListApplications is a template: the ORDER BY column and direction are
// interpolated from a whitelist, never from user input directly.
const queryListApplications = `
SELECT a.id, a.job_id, a.applicant_name, a.applicant_email, a.message,
       a.resume_url, a.date_applied, j.position_title
FROM job_applications a
LEFT JOIN jobs j ON j.post_id = a.job_id
ORDER BY a.%s %s, a.id %s
LIMIT $1 OFFSET $2
`

const queryCountApplications = `
SELECT COUNT(*) FROM job_applications
`

const queryGetApplicationByID = `
SELECT a.id, a.job_id, a.applicant_name, a.applicant_email, a.message,
       a.resume_url, a.date_applied, j.position_title
FROM job_applications a
LEFT JOIN jobs j ON j.post_id = a.job_id
WHERE a.id = $1
`

const queryDeleteApplications = `
DELETE FROM job_applications WHERE id = ANY($1)
`

const queryDeleteApplicationsBefore = `
DELETE FROM job_applications WHERE date_applied < $1
`

const queryTryAdvisoryLock = `
SELECT pg_try_advisory_lock($1)
`

const queryAdvisoryUnlock = `
SELECT pg_advisory_unlock($1)
`
