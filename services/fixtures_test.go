package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"inventory-sync/automation"
	"inventory-sync/models"
	"inventory-sync/storage"
	"inventory-sync/utils"
)

var testRecords = []models.TaxonomyRecord{
	{Kind: models.KindSegment, Name: "경소형", Value: "s-1", Index: 1},
	{Kind: models.KindSegment, Name: "준중형", Value: "s-2", Index: 2},
	{Kind: models.KindSegment, Name: "중대형", Value: "s-3", Index: 3},
	{Kind: models.KindSegment, Name: "SUV/RV", Value: "s-5", Index: 5},
	{Kind: models.KindSegment, Name: "화물/버스", Value: "s-7", Index: 7},

	{Kind: models.KindManufacturer, Name: "현대", Origin: models.Domestic, Value: "hd", Index: 1},
	{Kind: models.KindManufacturer, Name: "기아", Origin: models.Domestic, Value: "ki", Index: 2},
	{Kind: models.KindManufacturer, Name: "기타", Origin: models.Domestic, Value: "etc", Index: 9},
	{Kind: models.KindManufacturer, Name: "BMW", Origin: models.Imported, Value: "bmw", Index: 20},

	{Kind: models.KindModel, Manufacturer: "현대", Name: "그랜저", Segment: "중대형", Value: "hd-granger", Index: 1},
	{Kind: models.KindModel, Manufacturer: "현대", Name: "아반떼", Segment: "준중형", Value: "hd-avante", Index: 2},
	{Kind: models.KindModel, Manufacturer: "현대", Name: "포터", Segment: "화물/버스", Value: "hd-porter", Index: 3},
	{Kind: models.KindModel, Manufacturer: "현대", Name: "e-마이티", Segment: "화물/버스", Value: "hd-mighty", Index: 4},
	{Kind: models.KindModel, Manufacturer: "기아", Name: "봉고화물", Segment: "화물/버스", Value: "ki-bongo", Index: 1},

	{Kind: models.KindDetailModel, Manufacturer: "현대", Model: "그랜저", Name: "그랜저 IG", Value: "hd-ig", Index: 2},
	{Kind: models.KindDetailModel, Manufacturer: "현대", Model: "그랜저", Name: "그랜저 HG", Value: "hd-hg", Index: 1},
	{Kind: models.KindDetailModel, Manufacturer: "기아", Model: "봉고화물", Name: "봉고III", Value: "ki-bongo3", Index: 1},
}

func testTaxonomy() *models.Taxonomy {
	return storage.BuildTaxonomy(testRecords)
}

func newListing(id, title, category, maker string, price int) *models.Listing {
	return &models.Listing{
		ID:              id,
		Title:           title,
		RawCategory:     category,
		RawManufacturer: maker,
		Price:           price,
		ModelYear:       "2020-03",
		Owner:           models.UnassignedOwner,
	}
}

// fakeStore is an in-memory ListingStore that keeps insertion order.
type fakeStore struct {
	mu       sync.Mutex
	order    []string
	byID     map[string]*models.Listing
	failSave error
	saves    int
}

func newFakeStore(listings ...*models.Listing) *fakeStore {
	s := &fakeStore{byID: make(map[string]*models.Listing)}
	for _, l := range listings {
		s.put(l)
	}
	return s
}

func (s *fakeStore) put(l *models.Listing) {
	if _, ok := s.byID[l.ID]; !ok {
		s.order = append(s.order, l.ID)
	}
	cp := *l
	if cp.Owner == "" {
		cp.Owner = models.UnassignedOwner
	}
	s.byID[l.ID] = &cp
}

func (s *fakeStore) filter(keep func(*models.Listing) bool) []*models.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Listing
	for _, id := range s.order {
		if l := s.byID[id]; keep(l) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out
}

func (s *fakeStore) ListUnassigned(context.Context) ([]*models.Listing, error) {
	return s.filter(func(l *models.Listing) bool { return !l.IsAssigned() }), nil
}

func (s *fakeStore) ListOwnerIDs(_ context.Context, owner string) ([]string, error) {
	var ids []string
	for _, l := range s.filter(func(l *models.Listing) bool { return l.Owner == owner }) {
		ids = append(ids, l.ID)
	}
	return ids, nil
}

func (s *fakeStore) ListByOwner(_ context.Context, owner string) ([]*models.Listing, error) {
	return s.filter(func(l *models.Listing) bool { return l.Owner == owner }), nil
}

func (s *fakeStore) ListByOwnerAndConfirmed(_ context.Context, owner string, confirmed bool) ([]*models.Listing, error) {
	return s.filter(func(l *models.Listing) bool { return l.Owner == owner && l.Confirmed == confirmed }), nil
}

func (s *fakeStore) ListAssigned(context.Context) ([]*models.Listing, error) {
	return s.filter(func(l *models.Listing) bool { return l.IsAssigned() }), nil
}

func (s *fakeStore) GetMany(_ context.Context, ids []string) ([]*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Listing
	for _, id := range ids {
		if l, ok := s.byID[id]; ok {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) SaveOwnership(_ context.Context, listings []*models.Listing) storage.BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	res := storage.BatchResult{Requested: len(listings)}
	if s.failSave != nil {
		res.Failed = len(listings)
		res.Errors = []error{s.failSave}
		return res
	}
	for _, l := range listings {
		if cur, ok := s.byID[l.ID]; ok {
			cur.Owner = l.Owner
			cur.Confirmed = l.Confirmed
			res.Written++
		}
	}
	return res
}

func (s *fakeStore) SaveListings(_ context.Context, listings []*models.Listing) storage.BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range listings {
		cur, ok := s.byID[l.ID]
		if !ok {
			s.put(l)
			continue
		}
		owner, confirmed := cur.Owner, cur.Confirmed
		s.put(l)
		s.byID[l.ID].Owner, s.byID[l.ID].Confirmed = owner, confirmed
	}
	return storage.BatchResult{Requested: len(listings), Written: len(listings)}
}

func (s *fakeStore) ListIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...), nil
}

func (s *fakeStore) DeleteListings(_ context.Context, ids []string) storage.BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := storage.BatchResult{Requested: len(ids)}
	drop := utils.NewIDSet()
	for _, id := range ids {
		if _, ok := s.byID[id]; ok {
			delete(s.byID, id)
			drop.Add(id)
			res.Written++
		}
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if !drop.Contains(id) {
			kept = append(kept, id)
		}
	}
	s.order = kept
	return res
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) get(id string) *models.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id]
}

// ownedBy counts listings per owner, sorted ids per owner.
func (s *fakeStore) ownedBy(owner string) []string {
	ids, _ := s.ListOwnerIDs(context.Background(), owner)
	sort.Strings(ids)
	return ids
}

// fakeRemote is the remote manage list of one account, split into pages.
type fakeRemote struct {
	mu        sync.Mutex
	perPage   int
	rows      []string
	deleted   []string
	submitted []string
	failIDs   map[string]error
	loginErr  error
	logins    int
	sessions  int
}

func (r *fakeRemote) pageRows(page int) (int, int) {
	start := (page - 1) * r.perPage
	end := start + r.perPage
	if start > len(r.rows) {
		start = len(r.rows)
	}
	if end > len(r.rows) {
		end = len(r.rows)
	}
	return start, end
}

type fakeFactory struct {
	remote *fakeRemote
	err    error
}

func (f *fakeFactory) NewSession(context.Context, models.RegionURL) (automation.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.remote.mu.Lock()
	f.remote.sessions++
	f.remote.mu.Unlock()
	return &fakeSession{remote: f.remote}, nil
}

type fakeSession struct {
	remote *fakeRemote
	page   int
}

func (s *fakeSession) Login(context.Context, string, string, string) error {
	s.remote.mu.Lock()
	defer s.remote.mu.Unlock()
	s.remote.logins++
	return s.remote.loginErr
}

func (s *fakeSession) PageCount(context.Context) (int, error) {
	s.remote.mu.Lock()
	defer s.remote.mu.Unlock()
	n := (len(s.remote.rows) + s.remote.perPage - 1) / s.remote.perPage
	if n < 1 {
		n = 1
	}
	return n, nil
}

func (s *fakeSession) OpenPage(_ context.Context, page int) ([]string, error) {
	s.remote.mu.Lock()
	defer s.remote.mu.Unlock()
	s.page = page
	start, end := s.remote.pageRows(page)
	return append([]string(nil), s.remote.rows[start:end]...), nil
}

func (s *fakeSession) DeleteRows(_ context.Context, rows []int) error {
	s.remote.mu.Lock()
	defer s.remote.mu.Unlock()
	start, end := s.remote.pageRows(s.page)
	drop := make(map[int]bool, len(rows))
	for _, r := range rows {
		if start+r >= end {
			return fmt.Errorf("row %d out of page", r)
		}
		drop[start+r] = true
	}
	kept := make([]string, 0, len(s.remote.rows))
	for i, id := range s.remote.rows {
		if drop[i] {
			s.remote.deleted = append(s.remote.deleted, id)
			continue
		}
		kept = append(kept, id)
	}
	s.remote.rows = kept
	return nil
}

func (s *fakeSession) Submit(_ context.Context, form *models.SubmissionForm) error {
	s.remote.mu.Lock()
	defer s.remote.mu.Unlock()
	if err, ok := s.remote.failIDs[form.ListingID]; ok {
		return err
	}
	s.remote.submitted = append(s.remote.submitted, form.ListingID)
	s.remote.rows = append(s.remote.rows, form.ListingID)
	return nil
}

func (s *fakeSession) Close() error { return nil }

// fakeAccounts resolves accounts from a fixed list in one region.
type fakeAccounts []*models.Account

func (f fakeAccounts) AccountAndRegion(id string) (*models.Account, models.RegionURL, error) {
	for _, a := range f {
		if a.ID == id {
			return a, models.RegionURL{Region: a.Region, BaseURL: "ansankcr.co.kr"}, nil
		}
	}
	return nil, models.RegionURL{}, errors.New("no such account")
}
