package models

import (
	"time"

	"github.com/google/uuid"
)

// Grant is a funding opportunity in the catalog. A grant is either
// scraper-discovered (ScrapeJobID set, implicitly approved) or user-submitted
// (ScrapeJobID nil, needs ApprovedAt/ApprovedBy before it is public).
type Grant struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Organization   string     `json:"organization"`
	Amount         string     `json:"amount,omitempty"`
	AmountMin      *int       `json:"amountMin,omitempty"`
	AmountMax      *int       `json:"amountMax,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	Location       string     `json:"location"`
	Eligibility    string     `json:"eligibility"`
	Description    string     `json:"description"`
	ApplicationURL string     `json:"applicationUrl,omitempty"`
	Category       string     `json:"category,omitempty"`
	DiscoveredAt   time.Time  `json:"discoveredAt"`
	ApprovedAt     *time.Time `json:"approvedAt"`
	ApprovedBy     string     `json:"approvedBy,omitempty"`
	ScrapeJobID    *uuid.UUID `json:"scrapeJobId"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	Tags           []GrantTag `json:"tags"`
}

// GrantTag is shared reference data, created lazily on first use and never
// deleted by the pipeline.
type GrantTag struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// GrantSource is a registered origin URL the scrape pipeline can be pointed at.
type GrantSource struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	IsActive    bool       `json:"isActive"`
	LastScraped *time.Time `json:"lastScraped"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Scrape job statuses. Transitions are one-directional:
// PENDING -> RUNNING -> COMPLETED | FAILED.
const (
	JobPending   = "PENDING"
	JobRunning   = "RUNNING"
	JobCompleted = "COMPLETED"
	JobFailed    = "FAILED"
)

// ScrapeJob tracks one execution of the ingestion pipeline against a URL.
type ScrapeJob struct {
	ID              uuid.UUID  `json:"id"`
	SourceURL       string     `json:"sourceUrl"`
	Status          string     `json:"status"`
	DiscoveredCount int        `json:"discoveredCount"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
	GrantSourceID   *uuid.UUID `json:"grantSourceId"`
	SourceName      string     `json:"sourceName,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt"`
	Grants          []Grant    `json:"grants"`
}

// AdminUser reviews submissions and manages sources.
type AdminUser struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
