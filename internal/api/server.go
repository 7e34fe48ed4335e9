package api

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/marisol/artist-grants/internal/ai"
	"github.com/marisol/artist-grants/internal/auth"
	"github.com/marisol/artist-grants/internal/db"
	"github.com/marisol/artist-grants/internal/geo"
	"github.com/marisol/artist-grants/internal/models"
	"github.com/marisol/artist-grants/internal/ratelimit"
)

// Tagger suggests catalog tags for a grant's text.
type Tagger interface {
	GenerateTags(ctx context.Context, description, eligibility string) ([]string, error)
}

// LocationNormalizer resolves free-text locations through the geocoding
// service.
type LocationNormalizer interface {
	Normalize(ctx context.Context, location string) (*geo.Result, error)
}

// ScrapeRunner drives one scrape job to a terminal state.
type ScrapeRunner interface {
	Run(ctx context.Context, job *models.ScrapeJob) (*models.Grant, error)
}

type Server struct {
	Store    *db.Store
	Auth     *auth.Service
	Tagger   Tagger
	Embedder ai.Embedder
	Geocoder LocationNormalizer
	Scraper  ScrapeRunner
	Limiter  *ratelimit.Limiter
	Echo     *echo.Echo
}

type Config struct {
	Store    *db.Store
	Auth     *auth.Service
	Tagger   Tagger
	Embedder ai.Embedder
	Geocoder LocationNormalizer
	Scraper  ScrapeRunner
	Limiter  *ratelimit.Limiter
}

func NewServer(cfg Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{"http://localhost:3000"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s := &Server{
		Store:    cfg.Store,
		Auth:     cfg.Auth,
		Tagger:   cfg.Tagger,
		Embedder: cfg.Embedder,
		Geocoder: cfg.Geocoder,
		Scraper:  cfg.Scraper,
		Limiter:  cfg.Limiter,
		Echo:     e,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api/v1")
	api.GET("/grants", s.handleListGrants)
	api.GET("/grants/:id", s.handleGetGrant)
	api.POST("/grants/submit", s.handleSubmitGrant)
	api.POST("/grants/generate-tags", s.handleGenerateTags)
	api.GET("/tags", s.handleListTags)
	api.POST("/locations/validate", s.handleValidateLocation)
	api.POST("/auth/login", s.handleLogin)

	admin := api.Group("")
	admin.Use(auth.Middleware)
	admin.POST("/scrape", s.handleTriggerScrape)
	admin.GET("/scrape", s.handleListJobs)
	admin.GET("/grants/submissions", s.handleListSubmissions)
	admin.POST("/grants/submissions", s.handleReviewSubmission)
	admin.POST("/grants", s.handleCreateGrant)
	admin.PATCH("/grants/:id", s.handleUpdateGrant)
	admin.DELETE("/grants/:id", s.handleDeleteGrant)
	admin.GET("/scrape/sources", s.handleListSources)
	admin.POST("/scrape/sources", s.handleCreateSource)
	admin.PATCH("/scrape/sources/:id", s.handleUpdateSource)
	admin.DELETE("/scrape/sources/:id", s.handleDeleteSource)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.Auth.Login(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrInvalidCreds {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleValidateLocation(c echo.Context) error {
	var req struct {
		Location string `json:"location"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Location) == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": "Location is required", "valid": false})
	}

	result, err := s.Geocoder.Normalize(c.Request().Context(), req.Location)
	if err != nil {
		if err == geo.ErrNotFound {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": "Location not found. Please enter a valid city or location.",
				"valid": false,
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error(), "valid": false})
	}

	resp := map[string]interface{}{
		"valid":              true,
		"normalizedLocation": result.NormalizedLocation,
		"city":               nullable(result.City),
		"state":              nullable(result.State),
		"country":            nullable(result.Country),
		"formattedAddress":   result.FormattedAddress,
	}
	if result.Warning != "" {
		resp["warning"] = result.Warning
	}
	if result.Lat != 0 || result.Lng != 0 {
		resp["coordinates"] = map[string]float64{"lat": result.Lat, "lng": result.Lng}
	}
	return c.JSON(http.StatusOK, resp)
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}
