package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-sync/models"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStoreFromDB(db), mock
}

var listingRowColumns = []string{
	"id", "title", "raw_category", "raw_manufacturer", "price", "model_year",
	"presentation_date", "displacement", "mileage", "has_accident", "has_seizure", "has_mortgage",
	"fuel_type", "gear_box", "color", "register_number", "presentation_number", "inspection_url",
	"images", "owner", "confirmed", "updated_at",
}

func addListingRow(rows *sqlmock.Rows, id, owner string, confirmed bool) *sqlmock.Rows {
	return rows.AddRow(
		id, "더 뉴 그랜저 IG", "대형차", "현대", 1800, "2020-03",
		"2024-01-02", 2999, 42000, false, false, false,
		"휘발유", "오토", "흰색", "R-1", "P-1", "https://example.com/inspect",
		"{a.jpg,b.jpg}", owner, confirmed, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	)
}

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("12가%04d", i)
	}
	return ids
}

func TestPostgresStore_ListUnassigned(t *testing.T) {
	store, mock := newMockStore(t)

	rows := addListingRow(sqlmock.NewRows(listingRowColumns), "12가3456", models.UnassignedOwner, false)
	mock.ExpectQuery(`SELECT .+ FROM listings WHERE owner = \$1`).
		WithArgs(models.UnassignedOwner).
		WillReturnRows(rows)

	listings, err := store.ListUnassigned(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 1)

	l := listings[0]
	assert.Equal(t, "12가3456", l.ID)
	assert.Equal(t, 1800, l.Price)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, l.Images)
	assert.False(t, l.IsAssigned())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByOwnerAndConfirmed(t *testing.T) {
	store, mock := newMockStore(t)

	rows := addListingRow(sqlmock.NewRows(listingRowColumns), "12가3456", "seller-a", false)
	mock.ExpectQuery(`SELECT .+ FROM listings WHERE owner = \$1 AND confirmed = \$2`).
		WithArgs("seller-a", false).
		WillReturnRows(rows)

	listings, err := store.ListByOwnerAndConfirmed(context.Background(), "seller-a", false)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "seller-a", listings[0].Owner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListOwnerIDs(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id FROM listings WHERE owner = \$1`).
		WithArgs("seller-a").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))

	ids, err := store.ListOwnerIDs(context.Background(), "seller-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetManyChunksReads(t *testing.T) {
	store, mock := newMockStore(t)
	ids := makeIDs(ReadBatchSize + 5)

	first := sqlmock.NewRows(listingRowColumns)
	addListingRow(first, ids[1], "seller-a", true)
	addListingRow(first, ids[0], "seller-a", true)
	mock.ExpectQuery(`SELECT .+ FROM listings WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(first)

	second := addListingRow(sqlmock.NewRows(listingRowColumns), ids[ReadBatchSize], "seller-a", true)
	mock.ExpectQuery(`SELECT .+ FROM listings WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(second)

	listings, err := store.GetMany(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, listings, 3)
	assert.Equal(t, ids[0], listings[0].ID, "result keeps the requested order")
	assert.Equal(t, ids[1], listings[1].ID)
	assert.Equal(t, ids[ReadBatchSize], listings[2].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveOwnershipChunksWrites(t *testing.T) {
	store, mock := newMockStore(t)

	listings := make([]*models.Listing, WriteBatchSize*2+3)
	for i, id := range makeIDs(len(listings)) {
		listings[i] = &models.Listing{ID: id, Owner: "seller-a"}
	}

	mock.ExpectExec(`UPDATE listings AS l`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, WriteBatchSize))
	mock.ExpectExec(`UPDATE listings AS l`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectExec(`UPDATE listings AS l`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	res := store.SaveOwnership(context.Background(), listings)

	assert.Equal(t, len(listings), res.Requested)
	assert.Equal(t, WriteBatchSize+3, res.Written)
	assert.Equal(t, WriteBatchSize, res.Failed)
	assert.False(t, res.OK())
	assert.ErrorContains(t, res.Err(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveListingsDefaultsOwner(t *testing.T) {
	store, mock := newMockStore(t)

	l := &models.Listing{ID: "12가3456", Title: "포터2", Images: []string{"a.jpg"}}
	args := make([]driver.Value, 20)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	args[19] = models.UnassignedOwner

	mock.ExpectExec(`INSERT INTO listings .+ ON CONFLICT \(id\) DO UPDATE`).
		WithArgs(args...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	res := store.SaveListings(context.Background(), []*models.Listing{l})
	assert.True(t, res.OK())
	assert.Equal(t, 1, res.Written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadTaxonomy(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"kind", "manufacturer", "model", "name", "value", "idx", "origin", "segment"}).
		AddRow("segment", "", "", "화물/버스", "seg-7", 7, "", "").
		AddRow("manufacturer", "", "", "기아", "mk-2", 2, "DOMESTIC", "").
		AddRow("model", "기아", "", "봉고화물", "md-1", 1, "", "화물/버스").
		AddRow("detail", "기아", "봉고화물", "봉고III", "dt-1", 1, "", "")
	mock.ExpectQuery(`SELECT kind, manufacturer, model, name, value, idx, origin, segment FROM taxonomy`).
		WillReturnRows(rows)

	tax, err := store.LoadTaxonomy(context.Background())
	require.NoError(t, err)

	kia := tax.Manufacturers["기아"]
	require.NotNil(t, kia)
	assert.Equal(t, models.Domestic, kia.Origin)
	bongo, ok := kia.Models["봉고"]
	require.True(t, ok, "model name is aliased on load")
	assert.Equal(t, "봉고화물", bongo.Name)
	require.Len(t, bongo.DetailModels, 1)
	assert.Equal(t, "dt-1", bongo.DetailModels[0].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRecords(t *testing.T) {
	store, mock := newMockStore(t)

	records := []models.TaxonomyRecord{
		{Kind: models.KindSegment, Name: "SUV/RV", Value: "seg-4", Index: 4},
		{Kind: models.KindManufacturer, Name: "현대", Value: "mk-1", Index: 1, Origin: models.Domestic},
	}
	mock.ExpectExec(`INSERT INTO taxonomy .+ ON CONFLICT`).
		WithArgs("segment", "", "", "SUV/RV", "seg-4", 4, "", "",
			"manufacturer", "", "", "현대", "mk-1", 1, "DOMESTIC", "").
		WillReturnResult(sqlmock.NewResult(0, 2))

	res := store.SaveRecords(context.Background(), records)
	assert.True(t, res.OK())
	assert.Equal(t, 2, res.Written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRecordsCollapsesRepeatedKeys(t *testing.T) {
	store, mock := newMockStore(t)

	records := []models.TaxonomyRecord{
		{Kind: models.KindSegment, Name: "SUV/RV", Value: "seg-old", Index: 4},
		{Kind: models.KindManufacturer, Name: "현대", Value: "mk-1", Index: 1, Origin: models.Domestic},
		{Kind: models.KindSegment, Name: "SUV/RV", Value: "seg-new", Index: 5},
	}
	mock.ExpectExec(`INSERT INTO taxonomy .+ ON CONFLICT`).
		WithArgs("segment", "", "", "SUV/RV", "seg-new", 5, "", "",
			"manufacturer", "", "", "현대", "mk-1", 1, "DOMESTIC", "").
		WillReturnResult(sqlmock.NewResult(0, 2))

	res := store.SaveRecords(context.Background(), records)
	assert.True(t, res.OK())
	assert.Equal(t, 2, res.Requested)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRecordsChunks(t *testing.T) {
	store, mock := newMockStore(t)

	records := make([]models.TaxonomyRecord, WriteBatchSize+1)
	for i, id := range makeIDs(len(records)) {
		records[i] = models.TaxonomyRecord{Kind: models.KindSegment, Name: id}
	}
	mock.ExpectExec(`INSERT INTO taxonomy`).WillReturnResult(sqlmock.NewResult(0, WriteBatchSize))
	mock.ExpectExec(`INSERT INTO taxonomy`).WillReturnResult(sqlmock.NewResult(0, 1))

	res := store.SaveRecords(context.Background(), records)
	assert.True(t, res.OK())
	assert.Equal(t, WriteBatchSize+1, res.Written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListIDs(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id FROM listings ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("L1").AddRow("L2"))

	ids, err := store.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"L1", "L2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteListingsChunks(t *testing.T) {
	store, mock := newMockStore(t)

	ids := makeIDs(WriteBatchSize + 5)
	mock.ExpectExec(`DELETE FROM listings WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, WriteBatchSize))
	mock.ExpectExec(`DELETE FROM listings WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	res := store.DeleteListings(context.Background(), ids)

	assert.Equal(t, len(ids), res.Requested)
	assert.Equal(t, WriteBatchSize+2, res.Written)
	assert.Zero(t, res.Failed, "ids that are already gone are not failures")
	assert.NoError(t, res.Err())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteListingsChunkError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM listings`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(errors.New("deadlock detected"))

	res := store.DeleteListings(context.Background(), makeIDs(3))
	assert.Equal(t, 3, res.Failed)
	assert.ErrorContains(t, res.Err(), "deadlock detected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchResultErr(t *testing.T) {
	assert.NoError(t, BatchResult{Requested: 2, Written: 2}.Err())

	short := BatchResult{Requested: 5, Written: 3, Failed: 2}
	assert.False(t, short.OK())
	assert.EqualError(t, short.Err(), "2 of 5 rows not written")

	failed := BatchResult{Requested: 5, Failed: 5, Errors: []error{errors.New("boom")}}
	assert.EqualError(t, failed.Err(), "boom")
}
