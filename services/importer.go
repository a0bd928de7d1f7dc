package services

import (
	"context"
	"errors"
	"fmt"

	"inventory-sync/models"
	"inventory-sync/storage"
	"inventory-sync/utils"
)

// ErrNoListings means an import held no listing with a usable id.
var ErrNoListings = errors.New("no usable listings")

// ImportResult reports one listing import.
type ImportResult struct {
	Saved  storage.BatchResult
	Pruned storage.BatchResult
}

// ListingImporter cleans scraped listings and upserts them into the store.
type ListingImporter struct {
	store   storage.ListingStore
	cleaner *Cleaner
	logger  *utils.Logger
}

func NewListingImporter(store storage.ListingStore, logger *utils.Logger) *ListingImporter {
	return &ListingImporter{store: store, cleaner: NewCleaner(logger), logger: logger}
}

// Import cleans raw and upserts the result. With prune set, stored listings
// whose id is not in the cleaned import are deleted afterwards. Nothing is
// pruned when the upsert did not fully succeed.
func (im *ListingImporter) Import(ctx context.Context, raw []*models.Listing, prune bool) (*ImportResult, error) {
	clean := im.cleaner.Clean(raw)
	if len(clean) == 0 {
		return nil, ErrNoListings
	}

	result := &ImportResult{Saved: im.store.SaveListings(ctx, clean)}
	im.logger.Info("[import] %d requested, %d written, %d failed",
		result.Saved.Requested, result.Saved.Written, result.Saved.Failed)
	if !result.Saved.OK() {
		return result, fmt.Errorf("import: save: %w", result.Saved.Err())
	}
	if !prune {
		return result, nil
	}

	stored, err := im.store.ListIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("import: list stored ids: %w", err)
	}
	incoming := utils.NewIDSet()
	for _, l := range clean {
		incoming.Add(l.ID)
	}
	var stale []string
	for _, id := range stored {
		if !incoming.Contains(id) {
			stale = append(stale, id)
		}
	}
	im.logger.Info("[import] %d listings in import, %d stored, %d to prune", incoming.Size(), len(stored), len(stale))
	if len(stale) == 0 {
		return result, nil
	}

	result.Pruned = im.store.DeleteListings(ctx, stale)
	if !result.Pruned.OK() {
		return result, fmt.Errorf("import: prune: %w", result.Pruned.Err())
	}
	return result, nil
}
