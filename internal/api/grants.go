package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/marisol/artist-grants/internal/auth"
	"github.com/marisol/artist-grants/internal/db"
	"github.com/marisol/artist-grants/internal/geo"
	"github.com/marisol/artist-grants/internal/ingest"
	"github.com/marisol/artist-grants/internal/models"
	"github.com/marisol/artist-grants/internal/ratelimit"
	"github.com/marisol/artist-grants/internal/tags"
)

func (s *Server) handleListGrants(c echo.Context) error {
	params := db.ListParams{
		Query:    c.QueryParam("search"),
		Location: c.QueryParam("location"),
		Category: c.QueryParam("category"),
		Tag:      c.QueryParam("tag"),
		SortBy:   c.QueryParam("sort"),
		Limit:    50,
	}

	if v, err := strconv.Atoi(c.QueryParam("minAmount")); err == nil && v > 0 {
		params.MinAmount = v
	}
	if v, err := strconv.Atoi(c.QueryParam("maxAmount")); err == nil && v > 0 {
		params.MaxAmount = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 100 {
		params.Limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 1 {
		params.Offset = (v - 1) * params.Limit
	}
	if c.QueryParam("upcoming") == "true" {
		params.UpcomingOnly = true
	}

	// Semantic ordering is best-effort; keyword search still applies when the
	// embedding service is down.
	if params.Query != "" && s.Embedder != nil {
		aiCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		vec, err := s.Embedder.GenerateEmbedding(aiCtx, params.Query)
		cancel()
		if err != nil {
			c.Logger().Errorf("Failed to generate query embedding: %v", err)
		} else {
			params.QueryEmbedding = vec
		}
	}

	result, err := s.Store.ListGrants(c.Request().Context(), params)
	if err != nil {
		c.Logger().Errorf("Failed to list grants: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch grants"})
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetGrant(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid grant ID"})
	}

	grant, err := s.Store.GetGrant(c.Request().Context(), id)
	if err != nil {
		if err == db.ErrNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Grant not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch grant"})
	}

	return c.JSON(http.StatusOK, grant)
}

func (s *Server) handleListTags(c echo.Context) error {
	all, err := s.Store.ListTags(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch tags"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tags": all})
}

func (s *Server) handleGenerateTags(c echo.Context) error {
	var req struct {
		Description string `json:"description"`
		Eligibility string `json:"eligibility"`
	}
	if err := c.Bind(&req); err != nil || req.Description == "" || req.Eligibility == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Description and eligibility are required"})
	}

	suggested, err := s.Tagger.GenerateTags(c.Request().Context(), req.Description, req.Eligibility)
	if err != nil {
		c.Logger().Errorf("Failed to generate tags: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate tags"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"tags": suggested})
}

// grantRequest is the shared body shape for submissions and admin writes.
type grantRequest struct {
	Title          string   `json:"title"`
	Organization   string   `json:"organization"`
	Amount         string   `json:"amount"`
	AmountMin      *int     `json:"amountMin"`
	AmountMax      *int     `json:"amountMax"`
	Deadline       string   `json:"deadline"`
	Location       string   `json:"location"`
	Eligibility    string   `json:"eligibility"`
	Description    string   `json:"description"`
	ApplicationURL string   `json:"applicationUrl"`
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
	Honeypot       string   `json:"honeypot"`
}

// validate checks the optional fields shared by every write path. Returns an
// empty string when the request is clean.
func (r *grantRequest) validate() string {
	if r.Category != "" && !tags.IsValidCategory(r.Category) {
		return "Invalid category"
	}
	if r.AmountMin != nil && *r.AmountMin < 0 {
		return "Invalid minimum amount"
	}
	if r.AmountMax != nil && *r.AmountMax < 0 {
		return "Invalid maximum amount"
	}
	if r.AmountMin != nil && r.AmountMax != nil && *r.AmountMin > *r.AmountMax {
		return "Minimum amount cannot be greater than maximum amount"
	}
	if r.ApplicationURL != "" {
		u, err := url.Parse(r.ApplicationURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "Invalid application URL"
		}
	}
	return ""
}

func (r *grantRequest) toGrant() (*models.Grant, string) {
	g := &models.Grant{
		Title:          strings.TrimSpace(r.Title),
		Organization:   strings.TrimSpace(r.Organization),
		Amount:         strings.TrimSpace(r.Amount),
		AmountMin:      r.AmountMin,
		AmountMax:      r.AmountMax,
		Location:       strings.TrimSpace(r.Location),
		Eligibility:    strings.TrimSpace(r.Eligibility),
		Description:    strings.TrimSpace(r.Description),
		ApplicationURL: strings.TrimSpace(r.ApplicationURL),
		Category:       r.Category,
	}

	if r.Deadline != "" {
		t, err := ingest.ParseDeadline(r.Deadline)
		if err != nil {
			return nil, "Invalid deadline date"
		}
		g.Deadline = &t
	}

	return g, ""
}

func (s *Server) handleSubmitGrant(c echo.Context) error {
	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	// Honeypot check runs before rate limiting so bots don't consume slots.
	if req.Honeypot != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid submission"})
	}

	ip := ratelimit.ClientIP(c.Request().Header)
	if allowed, _ := s.Limiter.Allow(ip); !allowed {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many submissions. Please try again later."})
	}

	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Organization) == "" ||
		strings.TrimSpace(req.Location) == "" || strings.TrimSpace(req.Description) == "" ||
		strings.TrimSpace(req.Eligibility) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Missing required fields: title, organization, location, description, and eligibility are required",
		})
	}

	loc, err := s.Geocoder.Normalize(c.Request().Context(), req.Location)
	if err != nil {
		if err == geo.ErrNotFound {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Location not found. Please enter a valid city or location."})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to validate location"})
	}

	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	grant, msg := req.toGrant()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}
	grant.Location = loc.NormalizedLocation

	if err := s.Store.CreateGrant(c.Request().Context(), grant, tags.FilterAllowed(req.Tags)); err != nil {
		if err == db.ErrDuplicate {
			return c.JSON(http.StatusConflict, map[string]string{"error": "A grant with similar information already exists"})
		}
		c.Logger().Errorf("Failed to submit grant: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to submit grant"})
	}

	resp := map[string]interface{}{
		"success": true,
		"grant":   grant,
		"message": "Grant submitted successfully. It will be reviewed by an admin.",
	}
	if loc.Warning != "" {
		resp["warning"] = loc.Warning
	}
	return c.JSON(http.StatusCreated, resp)
}

// Admin grant management

func (s *Server) handleCreateGrant(c echo.Context) error {
	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Organization) == "" ||
		strings.TrimSpace(req.Location) == "" || strings.TrimSpace(req.Description) == "" ||
		strings.TrimSpace(req.Eligibility) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Missing required fields: title, organization, location, description, and eligibility are required",
		})
	}

	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	grant, msg := req.toGrant()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	// Admin-created grants go live immediately.
	now := time.Now()
	grant.ApprovedAt = &now
	grant.ApprovedBy = auth.AdminEmailFromContext(c)

	if err := s.Store.CreateGrant(c.Request().Context(), grant, tags.FilterAllowed(req.Tags)); err != nil {
		if err == db.ErrDuplicate {
			return c.JSON(http.StatusConflict, map[string]string{"error": "A grant with similar information already exists"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create grant"})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{"success": true, "grant": grant})
}

func (s *Server) handleUpdateGrant(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid grant ID"})
	}

	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	existing, err := s.Store.GetGrant(c.Request().Context(), id)
	if err != nil {
		if err == db.ErrNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Grant not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch grant"})
	}

	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	applyGrantPatch(existing, &req)
	if req.Deadline != "" {
		t, perr := ingest.ParseDeadline(req.Deadline)
		if perr != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid deadline date"})
		}
		existing.Deadline = &t
	}

	// Providing tags replaces the grant's tag set wholesale.
	replaceTags := req.Tags != nil
	if err := s.Store.UpdateGrant(c.Request().Context(), existing, tags.FilterAllowed(req.Tags), replaceTags); err != nil {
		if err == db.ErrNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Grant not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update grant"})
	}

	updated, err := s.Store.GetGrant(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch grant"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "grant": updated})
}

func applyGrantPatch(g *models.Grant, req *grantRequest) {
	if req.Title != "" {
		g.Title = strings.TrimSpace(req.Title)
	}
	if req.Organization != "" {
		g.Organization = strings.TrimSpace(req.Organization)
	}
	if req.Amount != "" {
		g.Amount = strings.TrimSpace(req.Amount)
	}
	if req.AmountMin != nil {
		g.AmountMin = req.AmountMin
	}
	if req.AmountMax != nil {
		g.AmountMax = req.AmountMax
	}
	if req.Location != "" {
		g.Location = strings.TrimSpace(req.Location)
	}
	if req.Eligibility != "" {
		g.Eligibility = strings.TrimSpace(req.Eligibility)
	}
	if req.Description != "" {
		g.Description = strings.TrimSpace(req.Description)
	}
	if req.ApplicationURL != "" {
		g.ApplicationURL = strings.TrimSpace(req.ApplicationURL)
	}
	if req.Category != "" {
		g.Category = req.Category
	}
}

func (s *Server) handleDeleteGrant(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid grant ID"})
	}

	if err := s.Store.DeleteGrant(c.Request().Context(), id); err != nil {
		if err == db.ErrNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Grant not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete grant"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// Submission review

func (s *Server) handleListSubmissions(c echo.Context) error {
	submissions, err := s.Store.ListSubmissions(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch submissions"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"submissions": submissions})
}

func (s *Server) handleReviewSubmission(c echo.Context) error {
	var req struct {
		GrantID string `json:"grantId"`
		Action  string `json:"action"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.GrantID == "" || req.Action == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing grantId or action"})
	}
	if req.Action != "approve" && req.Action != "reject" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": `Invalid action. Must be "approve" or "reject"`})
	}

	id, err := uuid.Parse(req.GrantID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid grant ID"})
	}

	ctx := c.Request().Context()
	grant, err := s.Store.GetGrant(ctx, id)
	if err != nil {
		if err == db.ErrNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Grant not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch grant"})
	}

	if grant.ScrapeJobID != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "This grant was not submitted by a user"})
	}
	if grant.ApprovedAt != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "This grant has already been reviewed"})
	}

	if req.Action == "approve" {
		approver := auth.AdminEmailFromContext(c)
		if approver == "" {
			approver = "unknown"
		}
		approved, err := s.Store.ApproveGrant(ctx, id, approver)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to process submission"})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": true,
			"grant":   approved,
			"message": "Grant approved successfully",
		})
	}

	if err := s.Store.DeleteGrant(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to process submission"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Grant rejected and deleted",
	})
}
