package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marisol/artist-grants/internal/db"
	"github.com/marisol/artist-grants/internal/geo"
	"github.com/marisol/artist-grants/internal/models"
	"github.com/marisol/artist-grants/internal/ratelimit"
)

var grantColNames = []string{
	"id", "title", "organization", "amount", "amount_min", "amount_max",
	"deadline", "location", "eligibility", "description", "application_url", "category",
	"discovered_at", "approved_at", "approved_by", "scrape_job_id", "created_at", "updated_at",
}

type fakeGeocoder struct {
	result *geo.Result
	err    error
}

func (f *fakeGeocoder) Normalize(ctx context.Context, location string) (*geo.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	trimmed := strings.TrimSpace(location)
	return &geo.Result{NormalizedLocation: trimmed, FormattedAddress: trimmed}, nil
}

type fakeTagger struct {
	tags []string
	err  error
}

func (f *fakeTagger) GenerateTags(ctx context.Context, description, eligibility string) ([]string, error) {
	return f.tags, f.err
}

type fakeScraper struct {
	grant *models.Grant
	err   error
	job   *models.ScrapeJob
}

func (f *fakeScraper) Run(ctx context.Context, job *models.ScrapeJob) (*models.Grant, error) {
	f.job = job
	return f.grant, f.err
}

type testEnv struct {
	server   *Server
	mock     pgxmock.PgxPoolIface
	geocoder *fakeGeocoder
	tagger   *fakeTagger
	scraper  *fakeScraper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	env := &testEnv{
		mock:     mock,
		geocoder: &fakeGeocoder{},
		tagger:   &fakeTagger{},
		scraper:  &fakeScraper{},
	}

	limiter := ratelimit.New(3, time.Hour, time.Hour)
	t.Cleanup(limiter.Stop)

	env.server = NewServer(Config{
		Store:    db.NewStore(mock),
		Geocoder: env.geocoder,
		Tagger:   env.tagger,
		Scraper:  env.scraper,
		Limiter:  limiter,
	})
	return env
}

func (e *testEnv) request(t *testing.T, handler echo.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.server.Echo.NewContext(req, rec)

	require.NoError(t, handler(c))

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	return rec, parsed
}

func validSubmission() string {
	return `{
		"title": "Mural Project Fund",
		"organization": "Houston Arts Alliance",
		"location": "Houston, TX",
		"eligibility": "Muralists living in the greater Houston area for at least one year.",
		"description": "Annual funding for large-scale public murals in Houston neighborhoods, covering materials, wall prep, and artist stipends."
	}`
}

func TestSubmitGrant_HoneypotRejected(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.request(t, env.server.handleSubmitGrant,
		http.MethodPost, "/api/v1/grants/submit", `{"honeypot": "gotcha"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid submission", body["error"])
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestSubmitGrant_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.request(t, env.server.handleSubmitGrant,
		http.MethodPost, "/api/v1/grants/submit", `{"title": "Only a title"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields: title, organization, location, description, and eligibility are required", body["error"])
}

func TestSubmitGrant_RateLimited(t *testing.T) {
	env := newTestEnv(t)

	// The limiter charges every non-bot request. Missing-field submissions
	// burn through the allowance; the fourth attempt is refused.
	for i := 0; i < 3; i++ {
		rec, _ := env.request(t, env.server.handleSubmitGrant,
			http.MethodPost, "/api/v1/grants/submit", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec, body := env.request(t, env.server.handleSubmitGrant,
		http.MethodPost, "/api/v1/grants/submit", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many submissions. Please try again later.", body["error"])
}

func TestSubmitGrant_AmountRangeRejected(t *testing.T) {
	env := newTestEnv(t)

	payload := `{
		"title": "Mural Project Fund",
		"organization": "Houston Arts Alliance",
		"location": "Houston, TX",
		"eligibility": "Muralists living in the greater Houston area.",
		"description": "Annual funding for large-scale public murals in Houston neighborhoods.",
		"amountMin": 500,
		"amountMax": 100
	}`
	rec, body := env.request(t, env.server.handleSubmitGrant,
		http.MethodPost, "/api/v1/grants/submit", payload)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Minimum amount cannot be greater than maximum amount", body["error"])
}

func TestSubmitGrant_LocationNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.geocoder.err = geo.ErrNotFound

	rec, body := env.request(t, env.server.handleSubmitGrant,
		http.MethodPost, "/api/v1/grants/submit", validSubmission())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Location not found. Please enter a valid city or location.", body["error"])
}

func TestSubmitGrant_InvalidDeadline(t *testing.T) {
	env := newTestEnv(t)

	payload := strings.Replace(validSubmission(), `"title": "Mural Project Fund",`,
		`"title": "Mural Project Fund", "deadline": "whenever",`, 1)
	rec, body := env.request(t, env.server.handleSubmitGrant,
		http.MethodPost, "/api/v1/grants/submit", payload)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid deadline date", body["error"])
}

func TestSubmitGrant_Success(t *testing.T) {
	env := newTestEnv(t)
	env.geocoder.result = &geo.Result{NormalizedLocation: "Houston", City: "Houston", State: "Texas"}

	grantID := uuid.New()
	now := time.Now()
	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`INSERT INTO grants`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "discovered_at", "created_at", "updated_at"}).
			AddRow(grantID, now, now, now))
	env.mock.ExpectCommit()

	rec, body := env.request(t, env.server.handleSubmitGrant,
		http.MethodPost, "/api/v1/grants/submit", validSubmission())

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Grant submitted successfully. It will be reviewed by an admin.", body["message"])
	assert.NotContains(t, body, "warning")

	grant, ok := body["grant"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Houston", grant["location"])
	assert.Nil(t, grant["approvedAt"])
	assert.Nil(t, grant["scrapeJobId"])
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestSubmitGrant_CarriesDegradedGeocodeWarning(t *testing.T) {
	env := newTestEnv(t)
	env.geocoder.result = &geo.Result{
		NormalizedLocation: "El Paso",
		FormattedAddress:   "El Paso",
		Warning:            "Location validation temporarily unavailable",
	}

	grantID := uuid.New()
	now := time.Now()
	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`INSERT INTO grants`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "discovered_at", "created_at", "updated_at"}).
			AddRow(grantID, now, now, now))
	env.mock.ExpectCommit()

	rec, body := env.request(t, env.server.handleSubmitGrant,
		http.MethodPost, "/api/v1/grants/submit", validSubmission())

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Location validation temporarily unavailable", body["warning"])
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestSubmitGrant_DuplicateConflict(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`INSERT INTO grants`).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	env.mock.ExpectRollback()

	rec, body := env.request(t, env.server.handleSubmitGrant,
		http.MethodPost, "/api/v1/grants/submit", validSubmission())

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "A grant with similar information already exists", body["error"])
}

func TestValidateLocation_Success(t *testing.T) {
	env := newTestEnv(t)
	env.geocoder.result = &geo.Result{
		NormalizedLocation: "Austin",
		City:               "Austin",
		State:              "Texas",
		Country:            "United States",
		FormattedAddress:   "Austin, TX, USA",
		Lat:                30.2672,
		Lng:                -97.7431,
	}

	rec, body := env.request(t, env.server.handleValidateLocation,
		http.MethodPost, "/api/v1/locations/validate", `{"location": "austin tx"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "Austin", body["normalizedLocation"])
	assert.Equal(t, "Texas", body["state"])
	coords, ok := body["coordinates"].(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, 30.2672, coords["lat"], 0.001)
}

func TestValidateLocation_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.geocoder.err = geo.ErrNotFound

	rec, body := env.request(t, env.server.handleValidateLocation,
		http.MethodPost, "/api/v1/locations/validate", `{"location": "xyzzyplugh"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["valid"])
}

func TestGenerateTags_RequiresBothFields(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.request(t, env.server.handleGenerateTags,
		http.MethodPost, "/api/v1/grants/generate-tags", `{"description": "only description"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Description and eligibility are required", body["error"])
}

func TestGenerateTags_ReturnsSuggestions(t *testing.T) {
	env := newTestEnv(t)
	env.tagger.tags = []string{"visual-artists", "public-art"}

	rec, body := env.request(t, env.server.handleGenerateTags,
		http.MethodPost, "/api/v1/grants/generate-tags",
		`{"description": "Murals for downtown", "eligibility": "Houston painters"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"visual-artists", "public-art"}, body["tags"])
}

func TestTriggerScrape_UnknownSource(t *testing.T) {
	env := newTestEnv(t)

	sourceID := uuid.New()
	env.mock.ExpectQuery(`SELECT id, name, url`).
		WithArgs(sourceID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "url", "is_active", "last_scraped", "created_at", "updated_at"}))

	rec, body := env.request(t, env.server.handleTriggerScrape,
		http.MethodPost, "/api/v1/scrape", `{"sourceId": "`+sourceID.String()+`"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Source not found", body["error"])
}

func TestTriggerScrape_NoGrantFound(t *testing.T) {
	env := newTestEnv(t)
	env.scraper.grant = nil

	jobID := uuid.New()
	env.mock.ExpectQuery(`SELECT id, name, url`).
		WithArgs("https://example.org/grants").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "url", "is_active", "last_scraped", "created_at", "updated_at"}))
	env.mock.ExpectQuery(`INSERT INTO scrape_jobs`).
		WithArgs("https://example.org/grants", (*uuid.UUID)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(jobID, time.Now()))

	rec, body := env.request(t, env.server.handleTriggerScrape,
		http.MethodPost, "/api/v1/scrape", `{"sourceUrl": "https://example.org/grants"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "No valid grant information found on this page", body["message"])
	require.NotNil(t, env.scraper.job)
	assert.Equal(t, jobID, env.scraper.job.ID)
}

func TestTriggerScrape_Success(t *testing.T) {
	env := newTestEnv(t)
	grantID := uuid.New()
	env.scraper.grant = &models.Grant{ID: grantID, Title: "Emerging Artist Award"}

	jobID := uuid.New()
	env.mock.ExpectQuery(`SELECT id, name, url`).
		WithArgs("https://example.org/grants").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "url", "is_active", "last_scraped", "created_at", "updated_at"}))
	env.mock.ExpectQuery(`INSERT INTO scrape_jobs`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(jobID, time.Now()))

	rec, body := env.request(t, env.server.handleTriggerScrape,
		http.MethodPost, "/api/v1/scrape", `{"sourceUrl": "https://example.org/grants"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	grant := body["grant"].(map[string]interface{})
	assert.Equal(t, "Emerging Artist Award", grant["title"])
	job := body["scrapeJob"].(map[string]interface{})
	assert.Equal(t, models.JobCompleted, job["status"])
}

func TestReviewSubmission_RejectsScrapedGrant(t *testing.T) {
	env := newTestEnv(t)

	grantID := uuid.New()
	jobID := uuid.New()
	now := time.Now()
	env.mock.ExpectQuery(`SELECT id, title, organization`).
		WithArgs(grantID).
		WillReturnRows(pgxmock.NewRows(grantColNames).AddRow(
			grantID, "Scraped Grant", "Org", (*string)(nil), (*int)(nil), (*int)(nil),
			(*time.Time)(nil), "Austin", "Anyone", "A grant discovered by the pipeline.",
			(*string)(nil), (*string)(nil), now, (*time.Time)(nil), (*string)(nil), &jobID, now, now,
		))
	env.mock.ExpectQuery(`SELECT l.grant_id`).
		WithArgs([]uuid.UUID{grantID}).
		WillReturnRows(pgxmock.NewRows([]string{"grant_id", "id", "name", "slug"}))

	rec, body := env.request(t, env.server.handleReviewSubmission,
		http.MethodPost, "/api/v1/grants/submissions",
		`{"grantId": "`+grantID.String()+`", "action": "approve"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "This grant was not submitted by a user", body["error"])
}

func TestReviewSubmission_AlreadyReviewed(t *testing.T) {
	env := newTestEnv(t)

	grantID := uuid.New()
	now := time.Now()
	env.mock.ExpectQuery(`SELECT id, title, organization`).
		WithArgs(grantID).
		WillReturnRows(pgxmock.NewRows(grantColNames).AddRow(
			grantID, "Reviewed Grant", "Org", (*string)(nil), (*int)(nil), (*int)(nil),
			(*time.Time)(nil), "Austin", "Anyone", "A previously approved submission.",
			(*string)(nil), (*string)(nil), now, &now, ptr("admin@example.org"), (*uuid.UUID)(nil), now, now,
		))
	env.mock.ExpectQuery(`SELECT l.grant_id`).
		WithArgs([]uuid.UUID{grantID}).
		WillReturnRows(pgxmock.NewRows([]string{"grant_id", "id", "name", "slug"}))

	rec, body := env.request(t, env.server.handleReviewSubmission,
		http.MethodPost, "/api/v1/grants/submissions",
		`{"grantId": "`+grantID.String()+`", "action": "reject"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "This grant has already been reviewed", body["error"])
}

func TestReviewSubmission_InvalidAction(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.request(t, env.server.handleReviewSubmission,
		http.MethodPost, "/api/v1/grants/submissions",
		`{"grantId": "`+uuid.New().String()+`", "action": "archive"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `Invalid action. Must be "approve" or "reject"`, body["error"])
}

func TestReviewSubmission_RejectDeletes(t *testing.T) {
	env := newTestEnv(t)

	grantID := uuid.New()
	now := time.Now()
	env.mock.ExpectQuery(`SELECT id, title, organization`).
		WithArgs(grantID).
		WillReturnRows(pgxmock.NewRows(grantColNames).AddRow(
			grantID, "Pending Grant", "Org", (*string)(nil), (*int)(nil), (*int)(nil),
			(*time.Time)(nil), "Austin", "Anyone", "A pending user submission awaiting review.",
			(*string)(nil), (*string)(nil), now, (*time.Time)(nil), (*string)(nil), (*uuid.UUID)(nil), now, now,
		))
	env.mock.ExpectQuery(`SELECT l.grant_id`).
		WithArgs([]uuid.UUID{grantID}).
		WillReturnRows(pgxmock.NewRows([]string{"grant_id", "id", "name", "slug"}))
	env.mock.ExpectExec(`DELETE FROM grants`).
		WithArgs(grantID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	rec, body := env.request(t, env.server.handleReviewSubmission,
		http.MethodPost, "/api/v1/grants/submissions",
		`{"grantId": "`+grantID.String()+`", "action": "reject"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Grant rejected and deleted", body["message"])
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestListJobs_Pagination(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery(`SELECT j.id, j.source_url`).
		WithArgs(10, 10).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source_url", "status", "discovered_count", "error_message",
			"grant_source_id", "name", "created_at", "completed_at",
		}))
	env.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM scrape_jobs`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(25))

	rec, body := env.request(t, env.server.handleListJobs,
		http.MethodGet, "/api/v1/scrape?page=2&limit=10", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), pagination["page"])
	assert.Equal(t, float64(25), pagination["total"])
	assert.Equal(t, float64(3), pagination["pages"])
}

func ptr[T any](v T) *T { return &v }
