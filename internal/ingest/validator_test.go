package ingest

import (
	"strings"
	"testing"

	"github.com/marisol/artist-grants/internal/models"
)

func validGrant() *models.Grant {
	return &models.Grant{
		Title:        "Emerging Artist Award",
		Organization: "Dallas Arts Council",
		Location:     "Dallas, TX",
		Description:  "An annual award supporting emerging visual artists based in the Dallas metro area with project funding.",
	}
}

func TestValidateGrant(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *models.Grant)
		wantErr error
	}{
		{"valid", func(g *models.Grant) {}, nil},
		{"missing title", func(g *models.Grant) { g.Title = "" }, ErrMissingFields},
		{"missing organization", func(g *models.Grant) { g.Organization = "" }, ErrMissingFields},
		{"missing location", func(g *models.Grant) { g.Location = "" }, ErrMissingFields},
		{"missing description", func(g *models.Grant) { g.Description = "" }, ErrMissingFields},
		{"short description", func(g *models.Grant) { g.Description = "Too short." }, ErrShortDescription},
		{"long description ok", func(g *models.Grant) { g.Description = strings.Repeat("x", 200) }, nil},
		{"outside texas", func(g *models.Grant) { g.Location = "Portland, Oregon" }, ErrOutsideTexas},
		{"texas city without state", func(g *models.Grant) { g.Location = "Lubbock" }, nil},
		{"statewide", func(g *models.Grant) { g.Location = "Texas" }, nil},
		{"min greater than max", func(g *models.Grant) {
			min, max := 500, 100
			g.AmountMin, g.AmountMax = &min, &max
		}, ErrAmountOrder},
		{"negative min", func(g *models.Grant) {
			min := -5
			g.AmountMin = &min
		}, ErrNegativeAmount},
		{"equal min max ok", func(g *models.Grant) {
			v := 500
			g.AmountMin, g.AmountMax = &v, &v
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validGrant()
			tt.mutate(g)
			if err := ValidateGrant(g); err != tt.wantErr {
				t.Errorf("ValidateGrant() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLocationLooksTexan(t *testing.T) {
	tests := []struct {
		location string
		want     bool
	}{
		{"Houston, TX", true},
		{"houston", true},
		{"Statewide Texas", true},
		{"San Antonio", true},
		{"Corpus Christi, Texas", true},
		{"Portland, Oregon", false},
		{"New York, NY", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := LocationLooksTexan(tt.location); got != tt.want {
			t.Errorf("LocationLooksTexan(%q) = %v, want %v", tt.location, got, tt.want)
		}
	}
}
