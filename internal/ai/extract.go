package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/marisol/artist-grants/internal/tags"
)

// maxExtractInput caps how much page text goes into the prompt.
const maxExtractInput = 25000

// ExtractedGrant is the structured output of the extraction model. A nil
// result means the page had no usable grant, which is a normal outcome.
type ExtractedGrant struct {
	Title          string   `json:"title"`
	Organization   string   `json:"organization"`
	Amount         string   `json:"amount"`
	AmountMin      *int     `json:"amountMin"`
	AmountMax      *int     `json:"amountMax"`
	Deadline       string   `json:"deadline"`
	Location       string   `json:"location"`
	Eligibility    string   `json:"eligibility"`
	Description    string   `json:"description"`
	ApplicationURL string   `json:"applicationUrl"`
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
}

// ExtractGrant asks the model to pull grant fields out of cleaned page text.
// Returns (nil, nil) when the page contains no grant or the response lacks
// the required fields. Errors are reserved for API failures.
func (c *GeminiClient) ExtractGrant(ctx context.Context, content, sourceURL string) (*ExtractedGrant, error) {
	if len(content) > maxExtractInput {
		content = content[:maxExtractInput]
	}

	prompt := fmt.Sprintf(`You are a grant information extraction assistant. Analyze the following webpage content and extract grant information for artists and designers in Texas.

Extract the following information if available:
- title: The name of the grant program
- organization: The organization offering the grant
- amount: The grant amount (as text, e.g., "$5,000" or "$1,000-$10,000")
- amountMin: Minimum amount as a number (if range)
- amountMax: Maximum amount as a number (if range)
- deadline: Application deadline (ISO date format if possible)
- location: Geographic location (city/region in Texas, or "Texas" if statewide)
- eligibility: Who can apply (detailed requirements)
- description: What the grant supports
- applicationUrl: Where to apply (use the source URL if no specific application URL)
- category: One of: government, corporate, private, public
- tags: Array of relevant tags from this specific list: %s

Return ONLY a JSON object. If this page doesn't contain grant information, return null.

Source URL: %s

Webpage Content:
%s

Response (JSON only):`, strings.Join(tags.AllowedSlugs(), ", "), sourceURL, content)

	// JSON mode first, plain text as fallback for models that ignore the
	// response MIME type.
	resp, err := c.GenerateCompletion(ctx, prompt, true)
	if err != nil {
		log.Printf("JSON mode generation failed: %v. Retrying with text mode...", err)
		resp, err = c.GenerateCompletion(ctx, prompt, false)
		if err != nil {
			return nil, err
		}
	}

	return parseExtraction(resp), nil
}

// parseExtraction turns a model response into an ExtractedGrant, tolerating
// markdown fences and surrounding prose. Anything unusable comes back nil.
func parseExtraction(resp string) *ExtractedGrant {
	cleaned := stripMarkdownFences(resp)
	if strings.EqualFold(cleaned, "null") {
		return nil
	}

	if jsonStr, ok := extractFirstJSONObject(cleaned); ok {
		cleaned = jsonStr
	}

	var data ExtractedGrant
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil
	}

	if data.Title == "" || data.Organization == "" || data.Location == "" || data.Description == "" {
		return nil
	}

	data.Tags = tags.FilterAllowed(data.Tags)
	return &data
}

// GenerateTags picks catalog tags for a grant from the closed vocabulary.
// Off-list slugs from the model are dropped, not errors.
func (c *GeminiClient) GenerateTags(ctx context.Context, description, eligibility string) ([]string, error) {
	var allowed strings.Builder
	for _, t := range tags.GrantTags {
		fmt.Fprintf(&allowed, "- %s (slug: %s)\n", t.Name, t.Slug)
	}

	prompt := fmt.Sprintf(`You are a grant taxonomy assistant. Analyze the following grant description and eligibility requirements to identify relevant tags.
The tags MUST be selected ONLY from the following allowed list. Do not invent new tags.

Allowed Tags:
%s
Inputs:
- Description: %s
- Eligibility: %s

Instructions:
1. Select up to 5 tags that best describe the grant.
2. Use ONLY the exact slugs provided in the allowed list (e.g., "visual-artists", "nonprofit").
3. If no tags are relevant, return an empty array.

Return ONLY a JSON object with a "tags" key containing an array of strings.

Response (JSON only):`, allowed.String(), truncate(description, 2000), truncate(eligibility, 2000))

	resp, err := c.GenerateCompletion(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	cleaned := stripMarkdownFences(resp)
	if jsonStr, ok := extractFirstJSONObject(cleaned); ok {
		cleaned = jsonStr
	}

	var parsed struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return []string{}, nil
	}
	return tags.FilterAllowed(parsed.Tags), nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func stripMarkdownFences(s string) string {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// extractFirstJSONObject finds the first outermost balanced {...}
func extractFirstJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if char == '{' {
				depth++
			} else if char == '}' {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}
