package tags

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"simple lowercase", "nonprofit", "nonprofit"},
		{"mixed case", "Visual Artists", "visual-artists"},
		{"extra whitespace", "  Sound   Engineer ", "sound-engineer"},
		{"tabs and newlines", "Fine\tArtist\n", "fine-artist"},
		{"already slugged", "creative-space", "creative-space"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.expected)
			}
		})
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	for _, name := range []string{"Visual Artists", "SOUND engineer", "writers"} {
		once := Slugify(name)
		twice := Slugify(once)
		if once != twice {
			t.Errorf("Slugify not idempotent for %q: %q != %q", name, once, twice)
		}
	}
}

func TestFilterAllowed(t *testing.T) {
	got := FilterAllowed([]string{" Writers ", "musicians", "made-up-tag", "musicians", ""})
	expected := []string{"writers", "musicians"}
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("expected %v, got %v", expected, got)
		}
	}
}

func TestIsValidCategory(t *testing.T) {
	if !IsValidCategory("government") {
		t.Error("government should be a valid category")
	}
	if IsValidCategory("crowdfunding") {
		t.Error("crowdfunding should not be a valid category")
	}
}

func TestFormatName(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"visual-artists", "Visual Artist"},
		{"writers", "Writer"},
		{"creative-space", "Creative Space"},
		{"glass", "Glass"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := FormatName(tt.in); got != tt.expected {
			t.Errorf("FormatName(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}
