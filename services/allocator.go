package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"inventory-sync/config"
	"inventory-sync/metrics"
	"inventory-sync/models"
	"inventory-sync/storage"
	"inventory-sync/utils"
)

// ErrAllocationInvariant means an account's stored holdings diverged from
// what the allocator wrote. It is fatal for the region and never retried.
var ErrAllocationInvariant = errors.New("allocation invariant violated")

var specialCategories = []models.Category{
	models.CategoryImported,
	models.CategoryLargeTruck,
	models.CategoryCompactTruck,
}

// Allocator reclaims excess inventory and hands unassigned listings to
// under-quota accounts, one region at a time.
type Allocator struct {
	store      storage.ListingStore
	classifier *Classifier
	bucketizer *Bucketizer
	caps       config.CategoryCaps
	metrics    *metrics.Pipeline
	logger     *utils.Logger
}

// NewAllocator wires an allocator. m may be nil.
func NewAllocator(store storage.ListingStore, classifier *Classifier, bucketizer *Bucketizer,
	caps config.CategoryCaps, m *metrics.Pipeline, logger *utils.Logger) *Allocator {
	return &Allocator{
		store:      store,
		classifier: classifier,
		bucketizer: bucketizer,
		caps:       caps,
		metrics:    m,
		logger:     logger,
	}
}

// AllocationReport is the outcome of one Run.
type AllocationReport struct {
	Regions      []*models.RegionSummary
	Unclassified []models.Unclassified
	PoolLeft     map[models.Category]int
}

// Run allocates every region of accounts sequentially, sorted by region
// name, drawing from one shared pool of unassigned listings.
func (a *Allocator) Run(ctx context.Context, accounts []*models.Account) (*AllocationReport, error) {
	unassigned, err := a.store.ListUnassigned(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocator: load unassigned: %w", err)
	}
	classified, dropped := a.classifier.ClassifyAll(unassigned)
	a.metrics.ObserveClassification(len(classified), dropped)
	if len(dropped) > 0 {
		a.logger.Warn("[allocator] %d of %d unassigned listings do not classify", len(dropped), len(unassigned))
	}
	pool := a.bucketizer.Bucketize(classified)
	a.logger.Info("[allocator] Pool: imported=%d large=%d compact=%d domestic=%d",
		pool.Count(models.CategoryImported), pool.Count(models.CategoryLargeTruck),
		pool.Count(models.CategoryCompactTruck), pool.Count(models.CategoryDomestic))

	byRegion := make(map[string][]*models.Account)
	for _, acct := range accounts {
		byRegion[acct.Region] = append(byRegion[acct.Region], acct)
	}
	regions := make([]string, 0, len(byRegion))
	for r := range byRegion {
		regions = append(regions, r)
	}
	sort.Strings(regions)

	report := &AllocationReport{Unclassified: dropped}
	for _, region := range regions {
		summary, err := a.AllocateRegion(ctx, region, byRegion[region], pool)
		if summary != nil {
			report.Regions = append(report.Regions, summary)
			a.metrics.ObserveRegion(summary)
		}
		if err != nil {
			return report, fmt.Errorf("allocator: region %s: %w", region, err)
		}
	}
	report.PoolLeft = pool.Counts()
	return report, nil
}

// AllocateRegion runs one reclaim and allocate cycle for the accounts of a
// region. Listings taken from pool are removed from it and reclaimed ones
// are appended to it.
func (a *Allocator) AllocateRegion(ctx context.Context, region string, accounts []*models.Account, pool Buckets) (*models.RegionSummary, error) {
	log := a.logger.With("region", region)
	summary := models.NewRegionSummary(region)
	for _, acct := range accounts {
		summary.TotalQuota += acct.UploadAmount()
		summary.AccountOrder = append(summary.AccountOrder, acct.ID)
	}

	holdings := make([]*holding, 0, len(accounts))
	var released []*models.Listing
	for _, acct := range accounts {
		h, dropped, err := a.loadHolding(ctx, acct)
		if err != nil {
			return summary, err
		}
		for _, u := range dropped {
			u.Listing.Release()
			released = append(released, u.Listing)
		}
		summary.Unclassifiable += len(dropped)
		for c, n := range h.buckets.Counts() {
			summary.Before[c] += n
		}
		holdings = append(holdings, h)
	}

	reclaimed := newBuckets()
	for _, h := range holdings {
		reclaimed.merge(h.trimToQuota())
	}

	caps := a.regionCaps(summary.TotalQuota)
	counts := regionCounts(holdings)
	for _, c := range models.Categories {
		excess := counts[c] - caps[c]
		for _, h := range holdings {
			if excess <= 0 {
				break
			}
			taken := h.release(c, excess)
			reclaimed[c] = append(reclaimed[c], taken...)
			excess -= len(taken)
			counts[c] -= len(taken)
		}
	}

	for c, items := range reclaimed {
		summary.Reclaimed[c] += len(items)
		for _, cl := range items {
			cl.Listing.Release()
			released = append(released, cl.Listing)
		}
	}
	if len(released) > 0 {
		res := a.store.SaveOwnership(ctx, released)
		if !res.OK() {
			return summary, fmt.Errorf("persist reclaim: %w", res.Err())
		}
		log.Info("[allocator] Reclaimed %d listings (%d unclassifiable)", len(released), summary.Unclassifiable)
	}
	for c, items := range reclaimed {
		pool[c] = append(pool[c], items...)
	}

	held := 0
	for _, n := range counts {
		held += n
	}
	assignable := summary.TotalQuota - held
	if assignable <= 0 {
		log.Info("[allocator] Region fully allocated (%d/%d)", held, summary.TotalQuota)
		return summary, a.verify(ctx, holdings, summary)
	}

	var assigned []*models.Listing
	for _, c := range models.Categories {
		want := caps[c] - counts[c]
		if want > assignable {
			want = assignable
		}
		if want <= 0 {
			continue
		}
		taken, left := fill(c, want, pool[c], holdings)
		pool[c] = left
		for _, t := range taken {
			assigned = append(assigned, t.Listing)
		}
		summary.Allocated[c] += len(taken)
		counts[c] += len(taken)
		assignable -= len(taken)
	}

	if len(assigned) > 0 {
		res := a.store.SaveOwnership(ctx, assigned)
		if !res.OK() {
			return summary, fmt.Errorf("persist allocation: %w", res.Err())
		}
	}
	log.Info("[allocator] Allocated %d listings, %d slots left unfilled", len(assigned), assignable)
	return summary, a.verify(ctx, holdings, summary)
}

func (a *Allocator) loadHolding(ctx context.Context, acct *models.Account) (*holding, []models.Unclassified, error) {
	ids, err := a.store.ListOwnerIDs(ctx, acct.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("holdings of %s: %w", acct.ID, err)
	}
	listings, err := a.store.GetMany(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("hydrate holdings of %s: %w", acct.ID, err)
	}
	classified, dropped := a.classifier.ClassifyAll(listings)
	return newHolding(acct, a.bucketizer.Bucketize(classified)), dropped, nil
}

func (a *Allocator) regionCaps(total int) map[models.Category]int {
	domestic := total - a.caps.Special()
	if domestic < 0 {
		domestic = 0
	}
	return map[models.Category]int{
		models.CategoryImported:     a.caps.Imported,
		models.CategoryLargeTruck:   a.caps.LargeTruck,
		models.CategoryCompactTruck: a.caps.CompactTruck,
		models.CategoryDomestic:     domestic,
	}
}

// verify re-reads every account's holdings and compares them with the
// counts the allocator believes it wrote.
func (a *Allocator) verify(ctx context.Context, holdings []*holding, summary *models.RegionSummary) error {
	for _, h := range holdings {
		ids, err := a.store.ListOwnerIDs(ctx, h.account.ID)
		if err != nil {
			return fmt.Errorf("verify %s: %w", h.account.ID, err)
		}
		want := h.buckets.Total()
		if len(ids) != want || len(ids) > h.account.UploadAmount() {
			return fmt.Errorf("%w: account %s holds %d listings, expected %d (quota %d)",
				ErrAllocationInvariant, h.account.ID, len(ids), want, h.account.UploadAmount())
		}
		summary.PerAccount[h.account.ID] = len(ids)
	}
	return nil
}

// ReleaseAll returns every assigned listing to the unassigned pool.
func (a *Allocator) ReleaseAll(ctx context.Context) (int, error) {
	assigned, err := a.store.ListAssigned(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocator: load assigned: %w", err)
	}
	for _, l := range assigned {
		l.Release()
	}
	res := a.store.SaveOwnership(ctx, assigned)
	a.logger.Info("[allocator] Released %d of %d assigned listings", res.Written, len(assigned))
	if !res.OK() {
		return res.Written, fmt.Errorf("allocator: release: %w", res.Err())
	}
	return res.Written, nil
}

// fill walks the pool in order and places listings on the first account
// that accepts them until want listings are placed. Listings no account
// accepts stay in the pool in their original order.
func fill(c models.Category, want int, pool []*models.ClassifiedListing, holdings []*holding) (taken, left []*models.ClassifiedListing) {
	for i, cl := range pool {
		if len(taken) == want {
			left = append(left, pool[i:]...)
			break
		}
		placed := false
		for _, h := range holdings {
			if h.accepts(c, cl) {
				h.add(c, cl)
				cl.Listing.AssignTo(h.account.ID)
				taken = append(taken, cl)
				placed = true
				break
			}
		}
		if !placed {
			left = append(left, cl)
		}
	}
	return taken, left
}

func regionCounts(holdings []*holding) map[models.Category]int {
	counts := make(map[models.Category]int, len(models.Categories))
	for _, h := range holdings {
		for c, n := range h.buckets.Counts() {
			counts[c] += n
		}
	}
	return counts
}

// holding tracks what one account holds during an allocation pass.
type holding struct {
	account *models.Account
	buckets Buckets
	bands   []int // domestic listings held per band
}

func newHolding(acct *models.Account, b Buckets) *holding {
	h := &holding{account: acct, buckets: b}
	h.countBands()
	return h
}

func (h *holding) countBands() {
	h.bands = make([]int, len(h.account.DomesticBands))
	for _, cl := range h.buckets[models.CategoryDomestic] {
		if i := h.account.BandFor(cl.Listing.Price); i >= 0 {
			h.bands[i]++
		}
	}
}

func (h *holding) remaining() int {
	return h.account.UploadAmount() - h.buckets.Total()
}

// bandFits reports whether a domestic listing at price has room. Bounded
// bands are hard caps; the unbounded band absorbs whatever personal quota
// the other categories leave.
func (h *holding) bandFits(price int) bool {
	i := h.account.BandFor(price)
	if i < 0 {
		return false
	}
	b := h.account.DomesticBands[i]
	return b.MaxPrice == 0 || h.bands[i] < b.Quota
}

func (h *holding) accepts(c models.Category, cl *models.ClassifiedListing) bool {
	if h.remaining() <= 0 {
		return false
	}
	if c == models.CategoryDomestic {
		return h.bandFits(cl.Listing.Price)
	}
	return len(h.buckets[c]) < h.account.Quota(c)
}

func (h *holding) add(c models.Category, cl *models.ClassifiedListing) {
	h.buckets[c] = append(h.buckets[c], cl)
	if c == models.CategoryDomestic {
		if i := h.account.BandFor(cl.Listing.Price); i >= 0 {
			h.bands[i]++
		}
	}
}

// release removes up to n listings of category c in scan order.
func (h *holding) release(c models.Category, n int) []*models.ClassifiedListing {
	items := h.buckets[c]
	if n > len(items) {
		n = len(items)
	}
	out := append([]*models.ClassifiedListing(nil), items[:n]...)
	h.buckets[c] = append([]*models.ClassifiedListing(nil), items[n:]...)
	if c == models.CategoryDomestic {
		h.countBands()
	}
	return out
}

// trimToQuota releases whatever exceeds the account's own quotas: special
// categories beyond their caps, domestic listings beyond a full bounded band
// or beyond the personal quota left after the special categories.
func (h *holding) trimToQuota() Buckets {
	out := newBuckets()
	special := 0
	for _, c := range specialCategories {
		items := h.buckets[c]
		if q := h.account.Quota(c); len(items) > q {
			out[c] = append(out[c], items[q:]...)
			h.buckets[c] = append([]*models.ClassifiedListing(nil), items[:q]...)
		}
		special += len(h.buckets[c])
	}

	limit := h.account.UploadAmount() - special
	domestic := h.buckets[models.CategoryDomestic]
	h.buckets[models.CategoryDomestic] = nil
	h.bands = make([]int, len(h.account.DomesticBands))
	for _, cl := range domestic {
		if len(h.buckets[models.CategoryDomestic]) < limit && h.bandFits(cl.Listing.Price) {
			h.add(models.CategoryDomestic, cl)
			continue
		}
		out[models.CategoryDomestic] = append(out[models.CategoryDomestic], cl)
	}
	return out
}
