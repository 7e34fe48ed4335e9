package ingest

import (
	"errors"
	"strings"

	"github.com/marisol/artist-grants/internal/models"
)

// minDescriptionLen rejects stub descriptions the extractor sometimes
// hallucinates from navigation text.
const minDescriptionLen = 50

var texasCities = []string{
	"houston", "dallas", "austin", "san antonio", "fort worth", "el paso",
	"arlington", "corpus christi", "plano", "lubbock", "denton",
}

var (
	ErrMissingFields    = errors.New("missing required fields")
	ErrShortDescription = errors.New("description too short")
	ErrOutsideTexas     = errors.New("location is not in Texas")
	ErrNegativeAmount   = errors.New("amounts must be non-negative")
	ErrAmountOrder      = errors.New("minimum amount cannot be greater than maximum amount")
)

// LocationLooksTexan reports whether a free-text location names Texas or one
// of its major cities.
func LocationLooksTexan(location string) bool {
	lower := strings.ToLower(location)
	if strings.Contains(lower, "texas") || strings.Contains(lower, "tx") {
		return true
	}
	for _, city := range texasCities {
		if strings.Contains(lower, city) {
			return true
		}
	}
	return false
}

// ValidateGrant decides whether a scraped grant is worth keeping. Rejections
// here are a normal pipeline outcome, not a failure.
func ValidateGrant(g *models.Grant) error {
	if g.Title == "" || g.Organization == "" || g.Location == "" || g.Description == "" {
		return ErrMissingFields
	}
	if len(g.Description) < minDescriptionLen {
		return ErrShortDescription
	}
	if !LocationLooksTexan(g.Location) {
		return ErrOutsideTexas
	}
	if err := ValidateAmounts(g.AmountMin, g.AmountMax); err != nil {
		return err
	}
	return nil
}

// ValidateAmounts checks an optional amount range.
func ValidateAmounts(min, max *int) error {
	if min != nil && *min < 0 {
		return ErrNegativeAmount
	}
	if max != nil && *max < 0 {
		return ErrNegativeAmount
	}
	if min != nil && max != nil && *min > *max {
		return ErrAmountOrder
	}
	return nil
}
