package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/marisol/artist-grants/internal/ai"
	"github.com/marisol/artist-grants/internal/api"
	"github.com/marisol/artist-grants/internal/auth"
	"github.com/marisol/artist-grants/internal/db"
	"github.com/marisol/artist-grants/internal/geo"
	"github.com/marisol/artist-grants/internal/ingest"
	"github.com/marisol/artist-grants/internal/ratelimit"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	store := db.NewStore(pool)

	gemini := ai.NewGeminiClient("", os.Getenv("GEMINI_API_KEY"),
		os.Getenv("GEMINI_MODEL"), os.Getenv("GEMINI_EMBED_MODEL"))
	geocoder := geo.NewGeocoder("", os.Getenv("GOOGLE_MAPS_API_KEY"))

	limiter := ratelimit.New(3, time.Hour, 10*time.Minute)
	defer limiter.Stop()

	fetcher := ingest.NewFetcherFromEnv(ingest.FetchConfig{
		TimeoutSeconds: 30,
		MaxRetries:     3,
		RateLimitRPS:   2.0,
		AcceptLanguage: "en-US,en;q=0.9,es;q=0.8",
		ProxyURL:       os.Getenv("SCRAPER_PROXY_URL"),
	})
	controller := ingest.NewController(store, fetcher, gemini, gemini)

	srv := api.NewServer(api.Config{
		Store:    store,
		Auth:     auth.NewService(store),
		Tagger:   gemini,
		Embedder: gemini,
		Geocoder: geocoder,
		Scraper:  controller,
		Limiter:  limiter,
	})

	log.Printf("Server starting on port %s...", port)
	if err := srv.Start(port); err != nil {
		log.Fatal(err)
	}
}
