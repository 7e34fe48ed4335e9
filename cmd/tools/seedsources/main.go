package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/marisol/artist-grants/internal/db"
)

type registry struct {
	Sources []struct {
		Name string `yaml:"name"`
		URL  string `yaml:"url"`
	} `yaml:"sources"`
}

// Loads a YAML source registry into the database. Sources that already exist
// (same URL) are skipped.
func main() {
	path := flag.String("file", "sources.yaml", "path to the source registry")
	flag.Parse()

	raw, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *path, err)
	}

	var reg registry
	if err := yaml.Unmarshal(raw, &reg); err != nil {
		log.Fatalf("Failed to parse %s: %v", *path, err)
	}
	if len(reg.Sources) == 0 {
		log.Fatalf("No sources found in %s", *path)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	store := db.NewStore(pool)
	created, skipped := 0, 0
	for _, src := range reg.Sources {
		if src.Name == "" || src.URL == "" {
			log.Printf("Skipping entry with missing name or url: %+v", src)
			continue
		}
		_, err := store.CreateSource(ctx, src.Name, src.URL)
		if err == db.ErrDuplicate {
			skipped++
			continue
		}
		if err != nil {
			log.Fatalf("Failed to create source %q: %v", src.Name, err)
		}
		created++
	}

	fmt.Printf("Seeded %d source(s), %d already present\n", created, skipped)
}
