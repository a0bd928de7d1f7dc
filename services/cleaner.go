package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"inventory-sync/models"
	"inventory-sync/utils"
)

// Cleaner normalises imported listings before they reach the listing store.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean normalises text fields and drops records without an id or repeating
// one already seen.
func (c *Cleaner) Clean(raw []*models.Listing) []*models.Listing {
	seen := utils.NewIDSet()
	result := make([]*models.Listing, 0, len(raw))

	for _, r := range raw {
		id := normaliseText(r.ID)
		if id == "" {
			c.logger.Warn("[cleaner] Dropping listing with empty id: %s", r.Title)
			continue
		}

		if !seen.Add(id) {
			c.logger.Debug("[cleaner] Duplicate id skipped: %s", id)
			continue
		}

		l := *r
		l.ID = id
		l.Title = normaliseText(r.Title)
		l.RawCategory = normaliseText(r.RawCategory)
		l.RawManufacturer = normaliseText(r.RawManufacturer)
		l.FuelType = normaliseText(r.FuelType)
		l.GearBox = normaliseText(r.GearBox)
		l.Color = normaliseText(r.Color)
		if l.Owner == "" {
			l.Owner = models.UnassignedOwner
		}

		result = append(result, &l)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

// normaliseText composes Hangul to NFC, strips leading/trailing whitespace
// and collapses internal whitespace.
func normaliseText(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

// stripSpaces removes every whitespace rune.
func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
