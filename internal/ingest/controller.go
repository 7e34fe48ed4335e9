package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/marisol/artist-grants/internal/ai"
	"github.com/marisol/artist-grants/internal/models"
	"github.com/microcosm-cc/bluemonday"
)

// NoGrantFound is recorded on jobs that ran cleanly but produced nothing:
// the page had no grant, or what it had failed validation.
const NoGrantFound = "No valid grant information found"

// Extractor turns cleaned page text into a structured grant, or nil when the
// page has none.
type Extractor interface {
	ExtractGrant(ctx context.Context, content, sourceURL string) (*ai.ExtractedGrant, error)
}

// JobStore is the slice of the database the pipeline needs.
type JobStore interface {
	MarkJobRunning(ctx context.Context, id uuid.UUID) error
	FailJob(ctx context.Context, id uuid.UUID, message string) error
	CompleteJobEmpty(ctx context.Context, id uuid.UUID, message string) error
	CompleteJobWithGrant(ctx context.Context, jobID uuid.UUID, g *models.Grant, tagNames []string, embedding []float32) error
}

// Controller runs one scrape job end to end: fetch, clean, extract, validate,
// persist. One URL produces at most one grant.
type Controller struct {
	Store     JobStore
	Fetcher   Fetcher
	Extractor Extractor
	Embedder  ai.Embedder // optional; embeddings are best-effort

	FetchTimeout   time.Duration
	ExtractTimeout time.Duration

	policy *bluemonday.Policy
}

func NewController(store JobStore, fetcher Fetcher, extractor Extractor, embedder ai.Embedder) *Controller {
	if fetcher == nil {
		fetcher = NewRateLimitedFetcher(FetchConfig{
			TimeoutSeconds: 30,
			MaxRetries:     3,
			RateLimitRPS:   2.0,
			AcceptLanguage: "en-US,en;q=0.9,es;q=0.8",
		})
	}
	return &Controller{
		Store:          store,
		Fetcher:        fetcher,
		Extractor:      extractor,
		Embedder:       embedder,
		FetchTimeout:   45 * time.Second,
		ExtractTimeout: 60 * time.Second,
		policy:         bluemonday.UGCPolicy(),
	}
}

// Run drives a PENDING job to a terminal state. It returns the stored grant,
// or nil when the job completed without one. Fetch and extraction failures
// mark the job FAILED and are returned; an empty or invalid page is a clean
// COMPLETED with the reason recorded.
func (c *Controller) Run(ctx context.Context, job *models.ScrapeJob) (*models.Grant, error) {
	log.Printf("Starting scrape job %s for %s", job.ID, job.SourceURL)

	if err := c.Store.MarkJobRunning(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("mark running: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.FetchTimeout)
	doc, err := c.Fetcher.Fetch(fetchCtx, job.SourceURL)
	cancel()
	if err != nil {
		return nil, c.fail(ctx, job.ID, fmt.Errorf("fetch error: %w", err))
	}

	content, err := CleanDocument(doc)
	if err != nil {
		return nil, c.fail(ctx, job.ID, fmt.Errorf("clean error: %w", err))
	}

	extractCtx, cancel := context.WithTimeout(ctx, c.ExtractTimeout)
	extracted, err := c.Extractor.ExtractGrant(extractCtx, content, job.SourceURL)
	cancel()
	if err != nil {
		return nil, c.fail(ctx, job.ID, fmt.Errorf("extraction error: %w", err))
	}

	if extracted == nil {
		return nil, c.noGrant(ctx, job.ID)
	}

	grant := c.buildGrant(extracted, job.SourceURL)
	if err := ValidateGrant(grant); err != nil {
		log.Printf("Job %s: extracted grant rejected: %v", job.ID, err)
		return nil, c.noGrant(ctx, job.ID)
	}

	var embedding []float32
	if c.Embedder != nil {
		embedding, err = c.Embedder.GenerateEmbedding(ctx, grant.Title+"\n"+grant.Description)
		if err != nil {
			log.Printf("Job %s: embedding failed, storing without: %v", job.ID, err)
			embedding = nil
		}
	}

	if err := c.Store.CompleteJobWithGrant(ctx, job.ID, grant, extracted.Tags, embedding); err != nil {
		return nil, c.fail(ctx, job.ID, fmt.Errorf("store error: %w", err))
	}

	log.Printf("Job %s: saved grant %q", job.ID, grant.Title)
	return grant, nil
}

// buildGrant maps extractor output onto a grant row, sanitizing anything that
// may carry markup from the source page.
func (c *Controller) buildGrant(extracted *ai.ExtractedGrant, sourceURL string) *models.Grant {
	g := &models.Grant{
		Title:          c.cleanField(extracted.Title),
		Organization:   c.cleanField(extracted.Organization),
		Amount:         c.cleanField(extracted.Amount),
		AmountMin:      extracted.AmountMin,
		AmountMax:      extracted.AmountMax,
		Location:       c.cleanField(extracted.Location),
		Eligibility:    c.cleanField(extracted.Eligibility),
		Description:    c.cleanField(extracted.Description),
		ApplicationURL: strings.TrimSpace(extracted.ApplicationURL),
		Category:       strings.TrimSpace(strings.ToLower(extracted.Category)),
	}

	if g.ApplicationURL == "" {
		g.ApplicationURL = sourceURL
	}

	if extracted.Deadline != "" {
		if t, err := ParseDeadline(extracted.Deadline); err == nil {
			g.Deadline = &t
		}
	}

	return g
}

func (c *Controller) cleanField(s string) string {
	s = c.policy.Sanitize(s)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return normalizeSpace(s)
}

func (c *Controller) fail(ctx context.Context, jobID uuid.UUID, cause error) error {
	if err := c.Store.FailJob(ctx, jobID, cause.Error()); err != nil {
		log.Printf("Job %s: failed to record failure: %v", jobID, err)
	}
	return cause
}

func (c *Controller) noGrant(ctx context.Context, jobID uuid.UUID) error {
	if err := c.Store.CompleteJobEmpty(ctx, jobID, NoGrantFound); err != nil {
		return fmt.Errorf("complete empty: %w", err)
	}
	return nil
}
