package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGemini returns a server that answers every generateContent call with
// the given model text.
func fakeGemini(t *testing.T, modelText string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": modelText}},
				}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestExtractGrant_ParsesFullResponse(t *testing.T) {
	srv := fakeGemini(t, `{
		"title": "Houston Mural Grant",
		"organization": "Houston Arts Alliance",
		"amount": "$5,000",
		"amountMin": 5000,
		"amountMax": 5000,
		"deadline": "2026-10-01",
		"location": "Houston, TX",
		"eligibility": "Working artists in Harris County",
		"description": "Supports new public murals by Houston-based artists in underserved neighborhooods.",
		"applicationUrl": "https://example.org/apply",
		"category": "private",
		"tags": ["visual-artists", "fine-artist", "not-a-real-tag"]
	}`)
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "test-key", "", "")
	got, err := c.ExtractGrant(context.Background(), "page text", "https://example.org/grants")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Houston Mural Grant", got.Title)
	assert.Equal(t, "Houston Arts Alliance", got.Organization)
	require.NotNil(t, got.AmountMin)
	assert.Equal(t, 5000, *got.AmountMin)
	// off-vocabulary tags are dropped
	assert.Equal(t, []string{"visual-artists", "fine-artist"}, got.Tags)
}

func TestExtractGrant_MarkdownFencedResponse(t *testing.T) {
	srv := fakeGemini(t, "```json\n{\"title\":\"T\",\"organization\":\"O\",\"location\":\"Austin, TX\",\"description\":\"D\"}\n```")
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "test-key", "", "")
	got, err := c.ExtractGrant(context.Background(), "page text", "https://example.org")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Austin, TX", got.Location)
}

func TestExtractGrant_NullResponse(t *testing.T) {
	srv := fakeGemini(t, "null")
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "test-key", "", "")
	got, err := c.ExtractGrant(context.Background(), "nothing here", "https://example.org")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExtractGrant_MissingRequiredFields(t *testing.T) {
	srv := fakeGemini(t, `{"title": "Orphan Grant", "description": "No organization or location on this page."}`)
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "test-key", "", "")
	got, err := c.ExtractGrant(context.Background(), "page text", "https://example.org")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExtractGrant_GarbageResponse(t *testing.T) {
	srv := fakeGemini(t, "I am sorry, I cannot help with that.")
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "test-key", "", "")
	got, err := c.ExtractGrant(context.Background(), "page text", "https://example.org")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGenerateCompletion_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "bad-key", "", "")
	_, err := c.GenerateCompletion(context.Background(), "hi", false)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGenerateCompletion_Quota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "test-key", "", "")
	_, err := c.GenerateCompletion(context.Background(), "hi", false)
	assert.ErrorIs(t, err, ErrQuota)
}

func TestGenerateTags_FiltersVocabulary(t *testing.T) {
	srv := fakeGemini(t, `{"tags": ["Visual-Artists", "musicians", "astronauts"]}`)
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "test-key", "", "")
	got, err := c.GenerateTags(context.Background(), "a music and mural grant", "musicians and muralists")
	require.NoError(t, err)
	assert.Equal(t, []string{"visual-artists", "musicians"}, got)
}

func TestGenerateEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": map[string]interface{}{"values": []float32{0.1, 0.2, 0.3}},
		})
	}))
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "test-key", "", "")
	vec, err := c.GenerateEmbedding(context.Background(), "some text")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
}
