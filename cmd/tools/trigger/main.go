package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Fires a scrape job against a running server. Pass either a registered
// source ID or a raw URL.
func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8081", "server base URL")
		sourceID  = flag.String("source", "", "registered source ID to scrape")
		sourceURL = flag.String("url", "", "ad-hoc URL to scrape")
	)
	flag.Parse()

	if *sourceID == "" && *sourceURL == "" {
		fmt.Println("Provide -source or -url")
		os.Exit(1)
	}

	token := strings.TrimSpace(os.Getenv("ADMIN_TOKEN"))
	if token == "" {
		fmt.Println("Missing ADMIN_TOKEN environment variable (login via POST /api/v1/auth/login)")
		os.Exit(1)
	}

	payload, _ := json.Marshal(map[string]string{
		"sourceId":  *sourceID,
		"sourceUrl": *sourceURL,
	})

	req, err := http.NewRequest("POST", *serverURL+"/api/v1/scrape", bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("Response Status: %s\n%s\n", resp.Status, body)
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
