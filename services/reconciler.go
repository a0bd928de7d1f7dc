package services

import (
	"context"
	"fmt"

	"inventory-sync/automation"
	"inventory-sync/metrics"
	"inventory-sync/models"
	"inventory-sync/storage"
	"inventory-sync/utils"
)

// AccountResolver finds an account and its region's platform URLs.
type AccountResolver interface {
	AccountAndRegion(id string) (*models.Account, models.RegionURL, error)
}

// ReconcileResult summarizes one reconciliation pass over an account.
type ReconcileResult struct {
	Account       string
	Assigned      int
	Confirmed     int
	Unconfirmed   int
	RemoteDeleted int
	Pages         int
}

// Reconciler aligns an account's confirmed flags with the remote listing
// set and deletes remote rows the account should not hold.
type Reconciler struct {
	store    storage.ListingStore
	accounts AccountResolver
	factory  automation.Factory
	metrics  *metrics.Pipeline
	logger   *utils.Logger
}

func NewReconciler(store storage.ListingStore, accounts AccountResolver, factory automation.Factory,
	m *metrics.Pipeline, logger *utils.Logger) *Reconciler {
	return &Reconciler{store: store, accounts: accounts, factory: factory, metrics: m, logger: logger}
}

// Reconcile walks the account's remote manage list from the last page to the
// first. Rows matching an assigned listing confirm it; every other row,
// including a repeat of an id already seen, is deleted. Assigned listings
// not seen remotely end up unconfirmed.
func (r *Reconciler) Reconcile(ctx context.Context, accountID string) (*ReconcileResult, error) {
	acct, region, err := r.accounts.AccountAndRegion(accountID)
	if err != nil {
		return nil, err
	}
	log := r.logger.With("account", acct.ID)

	listings, err := r.store.ListByOwner(ctx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: load assigned: %w", acct.ID, err)
	}
	ids := make([]string, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
	}
	pending := utils.NewIDSet(ids...)

	session, err := r.factory.NewSession(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", acct.ID, err)
	}
	defer session.Close()

	if err := session.Login(ctx, acct.ID, acct.Password, region.LoginRedirectManage()); err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", acct.ID, err)
	}

	pages, err := session.PageCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", acct.ID, err)
	}

	result := &ReconcileResult{Account: acct.ID, Assigned: len(listings), Pages: pages}
	found := make(map[string]bool, len(listings))
	for page := pages; page >= 1; page-- {
		remote, err := session.OpenPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("reconcile %s: %w", acct.ID, err)
		}

		var stale []int
		for row, id := range remote {
			if pending.Remove(id) {
				found[id] = true
				continue
			}
			stale = append(stale, row)
		}
		if len(stale) == 0 {
			continue
		}
		if err := session.DeleteRows(ctx, stale); err != nil {
			return nil, fmt.Errorf("reconcile %s: page %d: %w", acct.ID, page, err)
		}
		result.RemoteDeleted += len(stale)
		log.Info("[reconciler] Deleted %d stale rows on page %d", len(stale), page)
	}
	r.metrics.ObserveRemoteDeletes(acct.ID, result.RemoteDeleted)

	var changed []*models.Listing
	for _, l := range listings {
		confirmed := found[l.ID]
		if confirmed {
			result.Confirmed++
		} else {
			result.Unconfirmed++
		}
		if l.Confirmed != confirmed {
			l.Confirmed = confirmed
			changed = append(changed, l)
		}
	}
	if len(changed) > 0 {
		res := r.store.SaveOwnership(ctx, changed)
		if !res.OK() {
			return result, fmt.Errorf("reconcile %s: persist: %w", acct.ID, res.Err())
		}
	}
	r.metrics.SetUnconfirmed(acct.ID, result.Unconfirmed)

	log.Info("[reconciler] %d assigned, %d confirmed, %d unconfirmed, %d remote rows deleted",
		result.Assigned, result.Confirmed, result.Unconfirmed, result.RemoteDeleted)
	return result, nil
}
