package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geoServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestNormalize_ResolvesCity(t *testing.T) {
	srv := geoServer(t, `{
		"status": "OK",
		"results": [{
			"formatted_address": "Houston, TX, USA",
			"address_components": [
				{"long_name": "Houston", "types": ["locality", "political"]},
				{"long_name": "Texas", "types": ["administrative_area_level_1", "political"]},
				{"long_name": "United States", "types": ["country", "political"]}
			],
			"geometry": {"location": {"lat": 29.76, "lng": -95.36}}
		}]
	}`)
	defer srv.Close()

	g := NewGeocoder(srv.URL, "test-key")
	res, err := g.Normalize(context.Background(), "  houston tx ")
	require.NoError(t, err)
	assert.Equal(t, "Houston", res.NormalizedLocation)
	assert.Equal(t, "Texas", res.State)
	assert.True(t, res.InTexas())
	assert.Empty(t, res.Warning)
}

func TestNormalize_ZeroResults(t *testing.T) {
	srv := geoServer(t, `{"status": "ZERO_RESULTS", "results": []}`)
	defer srv.Close()

	g := NewGeocoder(srv.URL, "test-key")
	_, err := g.Normalize(context.Background(), "xyzzyplugh")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNormalize_APIErrorAcceptsRawInput(t *testing.T) {
	srv := geoServer(t, `{"status": "OVER_QUERY_LIMIT", "results": []}`)
	defer srv.Close()

	g := NewGeocoder(srv.URL, "test-key")
	res, err := g.Normalize(context.Background(), "Dallas, TX")
	require.NoError(t, err)
	assert.Equal(t, "Dallas, TX", res.NormalizedLocation)
	assert.NotEmpty(t, res.Warning)
}

func TestNormalize_NoAPIKeyAcceptsTrimmed(t *testing.T) {
	g := NewGeocoder("", "")
	res, err := g.Normalize(context.Background(), "  Lubbock  ")
	require.NoError(t, err)
	assert.Equal(t, "Lubbock", res.NormalizedLocation)
}

func TestNormalize_EmptyLocation(t *testing.T) {
	g := NewGeocoder("", "")
	_, err := g.Normalize(context.Background(), "   ")
	assert.Error(t, err)
}
