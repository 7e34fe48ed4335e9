package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Fatal API errors. Anything else from the model is treated as "nothing
// usable on this page" rather than a pipeline failure.
var (
	ErrUnauthorized = errors.New("gemini: invalid or missing API key")
	ErrQuota        = errors.New("gemini: quota exceeded")
)

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type GeminiClient struct {
	BaseURL    string
	APIKey     string
	GenModel   string
	EmbedModel string
	HTTPClient *http.Client
}

func NewGeminiClient(baseURL, apiKey, genModel, embedModel string) *GeminiClient {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	if genModel == "" {
		genModel = "gemini-2.0-flash"
	}
	if embedModel == "" {
		embedModel = "text-embedding-004"
	}
	return &GeminiClient{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		GenModel:   genModel,
		EmbedModel: embedModel,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type generateRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GenerateCompletion sends a single-turn prompt. jsonMode asks the model for
// an application/json response, which most Gemini models honor strictly.
func (c *GeminiClient) GenerateCompletion(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	reqBody := generateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	if jsonMode {
		reqBody.GenerationConfig = &generationConfig{ResponseMIMEType: "application/json"}
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.BaseURL, c.GenModel, c.APIKey)
	var parsed generateResponse
	if err := c.post(ctx, url, reqBody, &parsed); err != nil {
		return "", err
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

type embedRequest struct {
	Content geminiContent `json:"content"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (c *GeminiClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	reqBody := embedRequest{Content: geminiContent{Parts: []geminiPart{{Text: text}}}}

	url := fmt.Sprintf("%s/v1beta/models/%s:embedContent?key=%s", c.BaseURL, c.EmbedModel, c.APIKey)
	var parsed embedResponse
	if err := c.post(ctx, url, reqBody, &parsed); err != nil {
		return nil, err
	}
	return parsed.Embedding.Values, nil
}

func (c *GeminiClient) post(ctx context.Context, url string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrQuota
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("gemini returned status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
