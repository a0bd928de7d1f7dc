package storage

import (
	"context"
	"errors"
	"fmt"

	"inventory-sync/models"
)

// Physical statement limits. Callers pass any number of items and the
// adapters chunk them.
const (
	WriteBatchSize = 25
	ReadBatchSize  = 100
)

// ListingStore is the persistent listing state the engine reads and mutates.
type ListingStore interface {
	// ListUnassigned returns every listing no account holds.
	ListUnassigned(ctx context.Context) ([]*models.Listing, error)
	// ListOwnerIDs returns the ids of the listings owner holds.
	ListOwnerIDs(ctx context.Context, owner string) ([]string, error)
	// ListByOwner returns the listings owner holds.
	ListByOwner(ctx context.Context, owner string) ([]*models.Listing, error)
	// ListByOwnerAndConfirmed filters ListByOwner on the confirmed flag.
	ListByOwnerAndConfirmed(ctx context.Context, owner string, confirmed bool) ([]*models.Listing, error)
	// ListAssigned returns every listing some account holds.
	ListAssigned(ctx context.Context) ([]*models.Listing, error)
	// GetMany hydrates listings by id. Unknown ids are skipped.
	GetMany(ctx context.Context, ids []string) ([]*models.Listing, error)
	// SaveOwnership persists the owner and confirmed fields of listings.
	SaveOwnership(ctx context.Context, listings []*models.Listing) BatchResult
	// SaveListings upserts full listing records.
	SaveListings(ctx context.Context, listings []*models.Listing) BatchResult
	// ListIDs returns the id of every stored listing.
	ListIDs(ctx context.Context) ([]string, error)
	// DeleteListings removes listings by id. Unknown ids are skipped.
	DeleteListings(ctx context.Context, ids []string) BatchResult
	Close() error
}

// TaxonomyStore holds the flat taxonomy records.
type TaxonomyStore interface {
	LoadTaxonomy(ctx context.Context) (*models.Taxonomy, error)
	SaveRecords(ctx context.Context, records []models.TaxonomyRecord) BatchResult
}

// BatchResult reports the outcome of a chunked write. A failing chunk does
// not stop the remaining chunks.
type BatchResult struct {
	Requested int
	Written   int
	Failed    int
	Errors    []error
}

// OK reports whether every requested item was written.
func (r BatchResult) OK() bool {
	return r.Failed == 0 && len(r.Errors) == 0
}

// Err joins the chunk errors. Rows that were not written without a chunk
// error, such as updates matching no row, are reported as one more error.
func (r BatchResult) Err() error {
	if r.Failed > 0 && len(r.Errors) == 0 {
		return fmt.Errorf("%d of %d rows not written", r.Failed, r.Requested)
	}
	return errors.Join(r.Errors...)
}

func (r *BatchResult) merge(o BatchResult) {
	r.Requested += o.Requested
	r.Written += o.Written
	r.Failed += o.Failed
	r.Errors = append(r.Errors, o.Errors...)
}
