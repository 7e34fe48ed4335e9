package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound means the geocoder is confident the place does not exist.
// Every other geocoder problem degrades to accepting the raw input, so a
// flaky upstream never blocks a submission.
var ErrNotFound = errors.New("geo: location not found")

// Result is a normalized location. Warning is set when the geocoder was
// unavailable and the raw input was accepted as-is.
type Result struct {
	NormalizedLocation string  `json:"normalizedLocation"`
	City               string  `json:"city,omitempty"`
	State              string  `json:"state,omitempty"`
	Country            string  `json:"country,omitempty"`
	FormattedAddress   string  `json:"formattedAddress"`
	Lat                float64 `json:"lat,omitempty"`
	Lng                float64 `json:"lng,omitempty"`
	Warning            string  `json:"warning,omitempty"`
}

type Geocoder struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewGeocoder(baseURL, apiKey string) *Geocoder {
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com"
	}
	return &Geocoder{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress  string `json:"formatted_address"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Normalize resolves a free-text location to a canonical city name.
// With no API key configured, or when the API misbehaves, the trimmed input
// is accepted with a warning. ErrNotFound is returned only on a definitive
// ZERO_RESULTS answer.
func (g *Geocoder) Normalize(ctx context.Context, location string) (*Result, error) {
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return nil, fmt.Errorf("location is required")
	}

	if g.APIKey == "" {
		return &Result{NormalizedLocation: trimmed, FormattedAddress: trimmed}, nil
	}

	reqURL := fmt.Sprintf("%s/maps/api/geocode/json?address=%s&key=%s",
		g.BaseURL, url.QueryEscape(trimmed), g.APIKey)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return degraded(trimmed), nil
	}
	defer resp.Body.Close()

	var parsed geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return degraded(trimmed), nil
	}

	switch parsed.Status {
	case "ZERO_RESULTS":
		return nil, ErrNotFound
	case "OK":
	default:
		return degraded(trimmed), nil
	}

	if len(parsed.Results) == 0 {
		return nil, ErrNotFound
	}

	first := parsed.Results[0]
	out := &Result{
		FormattedAddress: first.FormattedAddress,
		Lat:              first.Geometry.Location.Lat,
		Lng:              first.Geometry.Location.Lng,
	}
	for _, comp := range first.AddressComponents {
		for _, typ := range comp.Types {
			switch typ {
			case "locality", "administrative_area_level_2":
				if out.City == "" {
					out.City = comp.LongName
				}
			case "administrative_area_level_1":
				out.State = comp.LongName
			case "country":
				out.Country = comp.LongName
			}
		}
	}

	// Prefer the city name, fall back to the first address segment.
	out.NormalizedLocation = out.City
	if out.NormalizedLocation == "" {
		out.NormalizedLocation = strings.TrimSpace(strings.SplitN(first.FormattedAddress, ",", 2)[0])
	}
	return out, nil
}

func degraded(raw string) *Result {
	return &Result{
		NormalizedLocation: raw,
		FormattedAddress:   raw,
		Warning:            "Location validation temporarily unavailable",
	}
}

// InTexas reports whether a normalized result clearly sits in Texas.
func (r *Result) InTexas() bool {
	return r.State == "Texas" || strings.Contains(strings.ToLower(r.FormattedAddress), ", tx")
}
