package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/marisol/artist-grants/internal/db"
	"github.com/marisol/artist-grants/internal/models"
)

func (s *Server) handleTriggerScrape(c echo.Context) error {
	var req struct {
		SourceID  string `json:"sourceId"`
		SourceURL string `json:"sourceUrl"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	ctx := c.Request().Context()
	sourceURL := strings.TrimSpace(req.SourceURL)
	var sourceID *uuid.UUID

	if req.SourceID != "" {
		id, err := uuid.Parse(req.SourceID)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Source not found"})
		}
		src, err := s.Store.GetSource(ctx, id)
		if err != nil {
			if err == db.ErrNotFound {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "Source not found"})
			}
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to process scrape job"})
		}
		sourceURL = src.URL
		sourceID = &src.ID
	} else if sourceURL != "" {
		// Ad-hoc URLs still link to a registered source when one matches.
		if src, err := s.Store.GetSourceByURL(ctx, sourceURL); err == nil {
			sourceID = &src.ID
		}
	}

	if sourceURL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Source URL is required"})
	}
	if u, err := url.Parse(sourceURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid source URL"})
	}

	job, err := s.Store.CreateJob(ctx, sourceURL, sourceID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to process scrape job"})
	}

	grant, err := s.Scraper.Run(ctx, job)
	if err != nil {
		c.Logger().Errorf("Scrape job %s failed: %v", job.ID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to process scrape job"})
	}

	if grant == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "No valid grant information found on this page",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"scrapeJob": map[string]interface{}{
			"id":     job.ID,
			"status": models.JobCompleted,
		},
		"grant": map[string]interface{}{
			"id":    grant.ID,
			"title": grant.Title,
		},
	})
}

func (s *Server) handleListJobs(c echo.Context) error {
	page := 1
	limit := 20
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}

	ctx := c.Request().Context()
	jobs, err := s.Store.ListJobs(ctx, limit, (page-1)*limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch scrape jobs"})
	}
	total, err := s.Store.CountJobs(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch scrape jobs"})
	}

	pages := total / limit
	if total%limit != 0 {
		pages++
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"jobs": jobs,
		"pagination": map[string]int{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": pages,
		},
	})
}

// Source registry

func (s *Server) handleListSources(c echo.Context) error {
	sources, err := s.Store.ListSources(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch sources"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sources": sources})
}

func (s *Server) handleCreateSource(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)
	if req.Name == "" || req.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Name and URL are required"})
	}
	if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid source URL"})
	}

	src, err := s.Store.CreateSource(c.Request().Context(), req.Name, req.URL)
	if err != nil {
		if err == db.ErrDuplicate {
			return c.JSON(http.StatusConflict, map[string]string{"error": "A source with this URL already exists"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create source"})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{"success": true, "source": src})
}

func (s *Server) handleUpdateSource(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid source ID"})
	}

	var req struct {
		Name     string `json:"name"`
		URL      string `json:"url"`
		IsActive *bool  `json:"isActive"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	ctx := c.Request().Context()
	src, err := s.Store.GetSource(ctx, id)
	if err != nil {
		if err == db.ErrNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Source not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch sources"})
	}

	if v := strings.TrimSpace(req.Name); v != "" {
		src.Name = v
	}
	if v := strings.TrimSpace(req.URL); v != "" {
		if u, err := url.Parse(v); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid source URL"})
		}
		src.URL = v
	}
	if req.IsActive != nil {
		src.IsActive = *req.IsActive
	}

	if err := s.Store.UpdateSource(ctx, src); err != nil {
		if err == db.ErrNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Source not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update source"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "source": src})
}

func (s *Server) handleDeleteSource(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid source ID"})
	}

	if err := s.Store.DeleteSource(c.Request().Context(), id); err != nil {
		if err == db.ErrNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Source not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete source"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}
