package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/marisol/artist-grants/internal/models"
	"github.com/marisol/artist-grants/internal/tags"
	"github.com/pgvector/pgvector-go"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Querier is the subset of pgxpool.Pool the store needs. Tests substitute a
// pgxmock pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Store struct {
	db Querier
}

func NewStore(db Querier) *Store {
	return &Store{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// grantCols is the column list shared by every grant query.
const grantCols = `id, title, organization, amount, amount_min, amount_max,
	deadline, location, eligibility, description, application_url, category,
	discovered_at, approved_at, approved_by, scrape_job_id, created_at, updated_at`

func scanGrant(scan func(dest ...interface{}) error) (models.Grant, error) {
	var g models.Grant
	var amount, applicationURL, category, approvedBy *string

	err := scan(
		&g.ID, &g.Title, &g.Organization, &amount, &g.AmountMin, &g.AmountMax,
		&g.Deadline, &g.Location, &g.Eligibility, &g.Description, &applicationURL, &category,
		&g.DiscoveredAt, &g.ApprovedAt, &approvedBy, &g.ScrapeJobID, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return g, err
	}

	if amount != nil {
		g.Amount = *amount
	}
	if applicationURL != nil {
		g.ApplicationURL = *applicationURL
	}
	if category != nil {
		g.Category = *category
	}
	if approvedBy != nil {
		g.ApprovedBy = *approvedBy
	}
	g.Tags = []models.GrantTag{}

	return g, nil
}

type ListParams struct {
	Query          string
	QueryEmbedding []float32
	Location       string
	Category       string
	Tag            string
	MinAmount      int
	MaxAmount      int
	UpcomingOnly   bool
	SortBy         string
	Limit          int
	Offset         int
}

type ListResult struct {
	Grants      []models.Grant `json:"grants"`
	Total       int            `json:"total"`
	TotalAmount int            `json:"totalAmount"`
	Limit       int            `json:"limit"`
	Offset      int            `json:"offset"`
}

// ListGrants returns the public catalog: grants that were either approved by
// an admin or discovered by the scrape pipeline.
func (s *Store) ListGrants(ctx context.Context, params ListParams) (*ListResult, error) {
	where := "WHERE (approved_at IS NOT NULL OR scrape_job_id IS NOT NULL)"
	var args []interface{}
	argIdx := 1

	if params.Query != "" {
		where += fmt.Sprintf(" AND (title ILIKE '%%' || $%d || '%%' OR organization ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')", argIdx, argIdx, argIdx)
		args = append(args, params.Query)
		argIdx++
	}
	if params.Location != "" {
		where += fmt.Sprintf(" AND location ILIKE '%%' || $%d || '%%'", argIdx)
		args = append(args, params.Location)
		argIdx++
	}
	if params.Category != "" {
		where += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, params.Category)
		argIdx++
	}
	if params.Tag != "" {
		where += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM grant_tag_links l
			JOIN grant_tags t ON t.id = l.tag_id
			WHERE l.grant_id = grants.id AND t.slug = $%d
		)`, argIdx)
		args = append(args, params.Tag)
		argIdx++
	}
	if params.MinAmount > 0 {
		where += fmt.Sprintf(" AND amount_max >= $%d", argIdx)
		args = append(args, params.MinAmount)
		argIdx++
	}
	if params.MaxAmount > 0 {
		where += fmt.Sprintf(" AND amount_min <= $%d", argIdx)
		args = append(args, params.MaxAmount)
		argIdx++
	}
	if params.UpcomingOnly {
		where += " AND (deadline IS NULL OR deadline >= NOW())"
	}

	var total, totalAmount int
	countSQL := "SELECT COUNT(*), COALESCE(SUM(COALESCE(amount_max, amount_min, 0)), 0) FROM grants " + where
	if err := s.db.QueryRow(ctx, countSQL, args...).Scan(&total, &totalAmount); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	selectSQL := fmt.Sprintf("SELECT %s FROM grants %s", grantCols, where)

	switch params.SortBy {
	case "newest":
		selectSQL += " ORDER BY discovered_at DESC, created_at DESC"
	case "amount_desc":
		selectSQL += " ORDER BY amount_max DESC NULLS LAST"
	default:
		if len(params.QueryEmbedding) > 0 {
			selectSQL += fmt.Sprintf(`
				ORDER BY
					CASE WHEN embedding IS NULL THEN 1 ELSE 0 END ASC,
					COALESCE(1 - (embedding <=> $%d), -1) DESC,
					deadline ASC NULLS LAST
			`, argIdx)
			args = append(args, pgvector.NewVector(params.QueryEmbedding))
			argIdx++
		} else {
			selectSQL += " ORDER BY deadline ASC NULLS LAST, discovered_at DESC"
		}
	}

	selectSQL += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.db.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var grants []models.Grant
	for rows.Next() {
		g, err := scanGrant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	if grants == nil {
		grants = []models.Grant{}
	}
	if err := s.attachTags(ctx, grants); err != nil {
		return nil, err
	}

	return &ListResult{
		Grants:      grants,
		Total:       total,
		TotalAmount: totalAmount,
		Limit:       params.Limit,
		Offset:      params.Offset,
	}, nil
}

// attachTags loads tags for every grant in the slice with one query.
func (s *Store) attachTags(ctx context.Context, grants []models.Grant) error {
	if len(grants) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(grants))
	byID := make(map[uuid.UUID]*models.Grant, len(grants))
	for i := range grants {
		ids = append(ids, grants[i].ID)
		byID[grants[i].ID] = &grants[i]
	}

	rows, err := s.db.Query(ctx, `
		SELECT l.grant_id, t.id, t.name, t.slug
		FROM grant_tag_links l
		JOIN grant_tags t ON t.id = l.tag_id
		WHERE l.grant_id = ANY($1)
		ORDER BY t.name
	`, ids)
	if err != nil {
		return fmt.Errorf("tag query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var grantID uuid.UUID
		var tag models.GrantTag
		if err := rows.Scan(&grantID, &tag.ID, &tag.Name, &tag.Slug); err != nil {
			return fmt.Errorf("tag scan failed: %w", err)
		}
		if g, ok := byID[grantID]; ok {
			g.Tags = append(g.Tags, tag)
		}
	}
	return rows.Err()
}

func (s *Store) GetGrant(ctx context.Context, id uuid.UUID) (*models.Grant, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM grants WHERE id = $1", grantCols), id)
	g, err := scanGrant(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get grant: %w", err)
	}

	grants := []models.Grant{g}
	if err := s.attachTags(ctx, grants); err != nil {
		return nil, err
	}
	return &grants[0], nil
}

// CreateGrant inserts a grant and links it to the given tag names, creating
// tags that do not exist yet. Used for public submissions (ApprovedAt nil)
// and direct admin creation (ApprovedAt set by the caller).
func (s *Store) CreateGrant(ctx context.Context, g *models.Grant, tagNames []string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO grants (title, organization, amount, amount_min, amount_max, deadline,
			location, eligibility, description, application_url, category,
			approved_at, approved_by)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12, NULLIF($13, ''))
		RETURNING id, discovered_at, created_at, updated_at
	`, g.Title, g.Organization, g.Amount, g.AmountMin, g.AmountMax, g.Deadline,
		g.Location, g.Eligibility, g.Description, g.ApplicationURL, g.Category,
		g.ApprovedAt, g.ApprovedBy,
	).Scan(&g.ID, &g.DiscoveredAt, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert grant: %w", err)
	}

	tags, err := linkTags(ctx, tx, g.ID, tagNames)
	if err != nil {
		return err
	}
	g.Tags = tags

	return tx.Commit(ctx)
}

// UpdateGrant rewrites every editable column. When replaceTags is true the
// grant's tag set is replaced wholesale with tagNames.
func (s *Store) UpdateGrant(ctx context.Context, g *models.Grant, tagNames []string, replaceTags bool) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE grants SET
			title = $2, organization = $3, amount = NULLIF($4, ''), amount_min = $5, amount_max = $6,
			deadline = $7, location = $8, eligibility = $9, description = $10,
			application_url = NULLIF($11, ''), category = NULLIF($12, ''), updated_at = NOW()
		WHERE id = $1
	`, g.ID, g.Title, g.Organization, g.Amount, g.AmountMin, g.AmountMax,
		g.Deadline, g.Location, g.Eligibility, g.Description, g.ApplicationURL, g.Category)
	if err != nil {
		return fmt.Errorf("update grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if replaceTags {
		if _, err := tx.Exec(ctx, "DELETE FROM grant_tag_links WHERE grant_id = $1", g.ID); err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		tags, err := linkTags(ctx, tx, g.ID, tagNames)
		if err != nil {
			return err
		}
		g.Tags = tags
	}

	return tx.Commit(ctx)
}

// ApproveGrant publishes a submission. ErrNotFound if no such grant.
func (s *Store) ApproveGrant(ctx context.Context, id uuid.UUID, approvedBy string) (*models.Grant, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf(`
		UPDATE grants SET approved_at = NOW(), approved_by = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, grantCols), id, approvedBy)

	g, err := scanGrant(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("approve grant: %w", err)
	}
	return &g, nil
}

// DeleteGrant removes a grant; tag links cascade.
func (s *Store) DeleteGrant(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM grants WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSubmissions returns user-submitted grants awaiting review.
func (s *Store) ListSubmissions(ctx context.Context) ([]models.Grant, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM grants
		WHERE approved_at IS NULL AND scrape_job_id IS NULL
		ORDER BY created_at DESC
	`, grantCols))
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var grants []models.Grant
	for rows.Next() {
		g, err := scanGrant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if grants == nil {
		grants = []models.Grant{}
	}
	if err := s.attachTags(ctx, grants); err != nil {
		return nil, err
	}
	return grants, nil
}

// linkTags upserts tags by slug and links them to the grant. The tx may be a
// real pgx.Tx or a mock.
func linkTags(ctx context.Context, tx pgx.Tx, grantID uuid.UUID, names []string) ([]models.GrantTag, error) {
	linked := make([]models.GrantTag, 0, len(names))
	for _, name := range names {
		slug := tags.Slugify(name)
		if slug == "" {
			continue
		}
		var tag models.GrantTag
		err := tx.QueryRow(ctx, `
			INSERT INTO grant_tags (name, slug) VALUES ($1, $2)
			ON CONFLICT (slug) DO UPDATE SET slug = grant_tags.slug
			RETURNING id, name, slug
		`, name, slug).Scan(&tag.ID, &tag.Name, &tag.Slug)
		if err != nil {
			return nil, fmt.Errorf("upsert tag %q: %w", slug, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO grant_tag_links (grant_id, tag_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, grantID, tag.ID); err != nil {
			return nil, fmt.Errorf("link tag %q: %w", slug, err)
		}
		linked = append(linked, tag)
	}
	return linked, nil
}

func (s *Store) ListTags(ctx context.Context) ([]models.GrantTag, error) {
	rows, err := s.db.Query(ctx, "SELECT id, name, slug FROM grant_tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	tags := []models.GrantTag{}
	for rows.Next() {
		var t models.GrantTag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ---- Sources ----

const sourceCols = "id, name, url, is_active, last_scraped, created_at, updated_at"

func scanSource(scan func(dest ...interface{}) error) (models.GrantSource, error) {
	var src models.GrantSource
	err := scan(&src.ID, &src.Name, &src.URL, &src.IsActive, &src.LastScraped, &src.CreatedAt, &src.UpdatedAt)
	return src, err
}

func (s *Store) CreateSource(ctx context.Context, name, url string) (*models.GrantSource, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO grant_sources (name, url) VALUES ($1, $2)
		RETURNING %s
	`, sourceCols), name, url)

	src, err := scanSource(row.Scan)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert source: %w", err)
	}
	return &src, nil
}

func (s *Store) GetSource(ctx context.Context, id uuid.UUID) (*models.GrantSource, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM grant_sources WHERE id = $1", sourceCols), id)
	src, err := scanSource(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	return &src, nil
}

func (s *Store) ListSources(ctx context.Context) ([]models.GrantSource, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf("SELECT %s FROM grant_sources ORDER BY name", sourceCols))
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	sources := []models.GrantSource{}
	for rows.Next() {
		src, err := scanSource(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (s *Store) UpdateSource(ctx context.Context, src *models.GrantSource) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE grant_sources SET name = $2, url = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
	`, src.ID, src.Name, src.URL, src.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSource(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM grant_sources WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSourceByURL matches a scrape target against the registry. ErrNotFound is
// expected for ad-hoc URLs and is not a pipeline failure.
func (s *Store) GetSourceByURL(ctx context.Context, url string) (*models.GrantSource, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM grant_sources WHERE url = $1", sourceCols), url)
	src, err := scanSource(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	return &src, nil
}

// ---- Scrape jobs ----

func (s *Store) CreateJob(ctx context.Context, sourceURL string, sourceID *uuid.UUID) (*models.ScrapeJob, error) {
	job := &models.ScrapeJob{
		SourceURL:     sourceURL,
		Status:        models.JobPending,
		GrantSourceID: sourceID,
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO scrape_jobs (source_url, grant_source_id) VALUES ($1, $2)
		RETURNING id, created_at
	`, sourceURL, sourceID).Scan(&job.ID, &job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

func (s *Store) MarkJobRunning(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, "UPDATE scrape_jobs SET status = $2 WHERE id = $1", id, models.JobRunning)
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	return nil
}

// FailJob records a terminal failure: fetch errors, extraction service
// errors, storage errors.
func (s *Store) FailJob(ctx context.Context, id uuid.UUID, message string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE scrape_jobs SET status = $2, error_message = $3, completed_at = NOW()
		WHERE id = $1
	`, id, models.JobFailed, message)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// CompleteJobEmpty finishes a job that ran cleanly but yielded nothing worth
// keeping. The message explains why (page had no grant, validation rejected
// it). Status is COMPLETED, not FAILED.
func (s *Store) CompleteJobEmpty(ctx context.Context, id uuid.UUID, message string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE scrape_jobs SET status = $2, discovered_count = 0, error_message = $3, completed_at = NOW()
		WHERE id = $1
	`, id, models.JobCompleted, message)
	if err != nil {
		return fmt.Errorf("complete empty: %w", err)
	}
	return nil
}

// CompleteJobWithGrant finishes a successful job atomically: the job row, the
// grant row, its tag links, and the source's last_scraped all commit together
// or not at all.
func (s *Store) CompleteJobWithGrant(ctx context.Context, jobID uuid.UUID, g *models.Grant, tagNames []string, embedding []float32) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		UPDATE scrape_jobs SET status = $2, discovered_count = 1, completed_at = NOW()
		WHERE id = $1
	`, jobID, models.JobCompleted); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}

	var embeddingArg interface{}
	if len(embedding) > 0 {
		embeddingArg = pgvector.NewVector(embedding)
	}

	g.ScrapeJobID = &jobID
	err = tx.QueryRow(ctx, `
		INSERT INTO grants (title, organization, amount, amount_min, amount_max, deadline,
			location, eligibility, description, application_url, category, scrape_job_id, embedding)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12, $13)
		RETURNING id, discovered_at, created_at, updated_at
	`, g.Title, g.Organization, g.Amount, g.AmountMin, g.AmountMax, g.Deadline,
		g.Location, g.Eligibility, g.Description, g.ApplicationURL, g.Category,
		jobID, embeddingArg,
	).Scan(&g.ID, &g.DiscoveredAt, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert grant: %w", err)
	}

	tags, err := linkTags(ctx, tx, g.ID, tagNames)
	if err != nil {
		return err
	}
	g.Tags = tags

	if _, err := tx.Exec(ctx, `
		UPDATE grant_sources SET last_scraped = NOW(), updated_at = NOW()
		WHERE id = (SELECT grant_source_id FROM scrape_jobs WHERE id = $1)
	`, jobID); err != nil {
		return fmt.Errorf("touch source: %w", err)
	}

	return tx.Commit(ctx)
}

// CountJobs returns the total number of scrape jobs ever recorded.
func (s *Store) CountJobs(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM scrape_jobs").Scan(&n); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}

// ListJobs returns a page of jobs, newest first, with any grants each one
// produced.
func (s *Store) ListJobs(ctx context.Context, limit, offset int) ([]models.ScrapeJob, error) {
	rows, err := s.db.Query(ctx, `
		SELECT j.id, j.source_url, j.status, j.discovered_count, j.error_message,
			j.grant_source_id, COALESCE(src.name, ''), j.created_at, j.completed_at
		FROM scrape_jobs j
		LEFT JOIN grant_sources src ON src.id = j.grant_source_id
		ORDER BY j.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	jobs := []models.ScrapeJob{}
	byID := make(map[uuid.UUID]int)
	var jobIDs []uuid.UUID
	for rows.Next() {
		var job models.ScrapeJob
		var errMsg *string
		if err := rows.Scan(&job.ID, &job.SourceURL, &job.Status, &job.DiscoveredCount, &errMsg,
			&job.GrantSourceID, &job.SourceName, &job.CreatedAt, &job.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if errMsg != nil {
			job.ErrorMessage = *errMsg
		}
		job.Grants = []models.Grant{}
		byID[job.ID] = len(jobs)
		jobIDs = append(jobIDs, job.ID)
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return jobs, nil
	}

	grantRows, err := s.db.Query(ctx,
		fmt.Sprintf("SELECT %s FROM grants WHERE scrape_job_id = ANY($1)", grantCols), jobIDs)
	if err != nil {
		return nil, fmt.Errorf("grant query failed: %w", err)
	}
	defer grantRows.Close()

	var grants []models.Grant
	for grantRows.Next() {
		g, err := scanGrant(grantRows.Scan)
		if err != nil {
			return nil, fmt.Errorf("grant scan failed: %w", err)
		}
		grants = append(grants, g)
	}
	if err := grantRows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, grants); err != nil {
		return nil, err
	}

	for _, g := range grants {
		if g.ScrapeJobID != nil {
			if idx, ok := byID[*g.ScrapeJobID]; ok {
				jobs[idx].Grants = append(jobs[idx].Grants, g)
			}
		}
	}
	return jobs, nil
}

// ---- Admin users ----

func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var u models.AdminUser
	err := s.db.QueryRow(ctx, `
		SELECT id, email, COALESCE(name, ''), password_hash, created_at
		FROM admin_users WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &u, nil
}

func (s *Store) CreateAdmin(ctx context.Context, email, name, passwordHash string) (*models.AdminUser, error) {
	u := &models.AdminUser{Email: email, Name: name, PasswordHash: passwordHash}
	err := s.db.QueryRow(ctx, `
		INSERT INTO admin_users (email, name, password_hash) VALUES ($1, NULLIF($2, ''), $3)
		RETURNING id, created_at
	`, email, name, passwordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert admin: %w", err)
	}
	return u, nil
}
