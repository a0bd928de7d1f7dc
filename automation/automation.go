// Package automation drives the seller platform's web UI.
package automation

import (
	"context"
	"errors"

	"inventory-sync/models"
)

// ErrConnection marks a transport or protocol failure. The session is
// unusable after it and remaining work for the account should stop.
var ErrConnection = errors.New("automation: connection failure")

// Session is one logged-in browser bound to a region.
type Session interface {
	// Login authenticates and lands on redirectURL.
	Login(ctx context.Context, accountID, password, redirectURL string) error
	// PageCount returns the number of pages of the manage list.
	PageCount(ctx context.Context) (int, error)
	// OpenPage loads a 1-based manage page and returns the listing ids of
	// its rows in display order.
	OpenPage(ctx context.Context, page int) ([]string, error)
	// DeleteRows ticks the given row positions of the open page and runs
	// the delete-and-confirm action.
	DeleteRows(ctx context.Context, rows []int) error
	// Submit fills and posts the listing registration form.
	Submit(ctx context.Context, form *models.SubmissionForm) error
	Close() error
}

// Factory opens sessions.
type Factory interface {
	NewSession(ctx context.Context, region models.RegionURL) (Session, error)
}
