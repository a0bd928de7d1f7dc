package services

import (
	"errors"
	"fmt"

	"inventory-sync/config"
	"inventory-sync/models"
)

// ErrNoMarginBand means a price fell through every band of a margin table.
var ErrNoMarginBand = errors.New("no margin band matches")

// MarginTable resolves the margin added to a listing price per origin.
type MarginTable struct {
	bands map[models.Origin][]config.MarginBand
}

// NewMarginTable wraps the configured margin bands.
func NewMarginTable(m config.Margins) *MarginTable {
	return &MarginTable{bands: map[models.Origin][]config.MarginBand{
		models.Domestic: m.Domestic,
		models.Imported: m.Imported,
	}}
}

// Resolve returns the margin of the first band whose ceiling is at or above
// price. A zero ceiling is unbounded.
func (t *MarginTable) Resolve(origin models.Origin, price int) (int, error) {
	for _, b := range t.bands[origin] {
		if b.MaxPrice == 0 || price <= b.MaxPrice {
			return b.Margin, nil
		}
	}
	return 0, fmt.Errorf("margin: %s price %d: %w", origin, price, ErrNoMarginBand)
}
