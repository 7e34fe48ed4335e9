package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/marisol/artist-grants/internal/db"
)

// Prints recent scrape jobs and what they produced.
func main() {
	limit := flag.Int("limit", 20, "number of jobs to show")
	flag.Parse()

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	store := db.NewStore(pool)
	jobs, err := store.ListJobs(ctx, *limit, 0)
	if err != nil {
		log.Fatalf("Failed to list jobs: %v", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Source", "Status", "Found", "Grant", "Error", "Created"})
	for _, job := range jobs {
		source := job.SourceName
		if source == "" {
			source = job.SourceURL
		}
		grantTitle := ""
		if len(job.Grants) > 0 {
			grantTitle = job.Grants[0].Title
		}
		t.AppendRow(table.Row{
			job.ID.String()[:8],
			truncate(source, 40),
			job.Status,
			job.DiscoveredCount,
			truncate(grantTitle, 30),
			truncate(job.ErrorMessage, 40),
			job.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	t.Render()

	fmt.Printf("%d job(s)\n", len(jobs))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
