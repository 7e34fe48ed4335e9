package tags

import "strings"

// Definition pairs a canonical slug with its display name.
type Definition struct {
	Slug string
	Name string
}

// GrantTags is the controlled vocabulary. Extraction and tag generation may
// only return slugs from this list; free-text submissions are reconciled
// against it by slug.
var GrantTags = []Definition{
	{Slug: "visual-artists", Name: "Visual Artists"},
	{Slug: "performing-artists", Name: "Performing Artists"},
	{Slug: "writers", Name: "Writers"},
	{Slug: "filmmakers", Name: "Filmmakers"},
	{Slug: "designers", Name: "Designers"},
	{Slug: "musicians", Name: "Musicians"},
	{Slug: "creative-space", Name: "Creative Space"},
	{Slug: "venue", Name: "Venue"},
	{Slug: "nonprofit", Name: "Nonprofit"},
	{Slug: "photographer", Name: "Photographer"},
	{Slug: "fashion-artist", Name: "Fashion Artist"},
	{Slug: "interior-designer", Name: "Interior Designer"},
	{Slug: "illustrator", Name: "Illustrator"},
	{Slug: "producer", Name: "Producer"},
	{Slug: "director", Name: "Director"},
	{Slug: "sound-engineer", Name: "Sound Engineer"},
	{Slug: "animator", Name: "Animator"},
	{Slug: "videographer", Name: "Videographer"},
	{Slug: "fine-artist", Name: "Fine Artist"},
}

// GrantCategories are the valid values for a grant's category field.
var GrantCategories = []Definition{
	{Slug: "government", Name: "Government"},
	{Slug: "corporate", Name: "Corporate"},
	{Slug: "private", Name: "Private"},
	{Slug: "public", Name: "Public"},
}

// AllowedSlugs returns the vocabulary slugs in declaration order.
func AllowedSlugs() []string {
	out := make([]string, len(GrantTags))
	for i, t := range GrantTags {
		out[i] = t.Slug
	}
	return out
}

// IsAllowedSlug reports whether slug belongs to the controlled vocabulary.
func IsAllowedSlug(slug string) bool {
	for _, t := range GrantTags {
		if t.Slug == slug {
			return true
		}
	}
	return false
}

// IsValidCategory reports whether slug is a known grant category.
func IsValidCategory(slug string) bool {
	for _, c := range GrantCategories {
		if c.Slug == slug {
			return true
		}
	}
	return false
}

// Slugify derives the canonical slug for a tag name: lowercase with all
// whitespace runs replaced by a single hyphen. Deterministic, so reconciling
// the same name twice always hits the same row.
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), "-")
}

// FilterAllowed lowercases, trims, and drops anything outside the vocabulary.
// Used on extraction output so the model cannot invent tags.
func FilterAllowed(raw []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(raw))
	for _, v := range raw {
		slug := strings.ToLower(strings.TrimSpace(v))
		if slug == "" || !IsAllowedSlug(slug) {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}
	return out
}

// FormatName renders a slug or raw name for display: hyphens to spaces,
// naive singularization, Title Case. Presentation only; canonical storage
// keeps the slug untouched.
func FormatName(name string) string {
	if name == "" {
		return name
	}

	formatted := strings.ReplaceAll(name, "-", " ")

	switch {
	case strings.HasSuffix(formatted, "ies"):
		formatted = formatted[:len(formatted)-3] + "y"
	case strings.HasSuffix(formatted, "es") && len(formatted) > 3:
		formatted = formatted[:len(formatted)-2]
	case strings.HasSuffix(formatted, "s") && len(formatted) > 1:
		if !isSingularEndingInS(formatted) {
			formatted = formatted[:len(formatted)-1]
		}
	}

	words := strings.Fields(formatted)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func isSingularEndingInS(word string) bool {
	exceptions := []string{"glass", "class", "mass", "pass", "grass", "brass"}
	lower := strings.ToLower(word)
	for _, e := range exceptions {
		if lower == e {
			return true
		}
	}
	return false
}
