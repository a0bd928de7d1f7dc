package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"inventory-sync/models"
	"inventory-sync/utils"
)

// PostgresStore persists listings and taxonomy records to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

// NewPostgresStoreFromDB wraps an open handle without migrating.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id                  TEXT PRIMARY KEY,
			title               TEXT        NOT NULL,
			raw_category        TEXT        NOT NULL DEFAULT '',
			raw_manufacturer    TEXT        NOT NULL DEFAULT '',
			price               INTEGER     NOT NULL DEFAULT 0,
			model_year          TEXT        NOT NULL DEFAULT '',
			presentation_date   TEXT        NOT NULL DEFAULT '',
			displacement        INTEGER     NOT NULL DEFAULT 0,
			mileage             INTEGER     NOT NULL DEFAULT 0,
			has_accident        BOOLEAN     NOT NULL DEFAULT FALSE,
			has_seizure         BOOLEAN     NOT NULL DEFAULT FALSE,
			has_mortgage        BOOLEAN     NOT NULL DEFAULT FALSE,
			fuel_type           TEXT        NOT NULL DEFAULT '',
			gear_box            TEXT        NOT NULL DEFAULT '',
			color               TEXT        NOT NULL DEFAULT '',
			register_number     TEXT        NOT NULL DEFAULT '',
			presentation_number TEXT        NOT NULL DEFAULT '',
			inspection_url      TEXT        NOT NULL DEFAULT '',
			images              TEXT[]      NOT NULL DEFAULT '{}',
			owner               TEXT        NOT NULL DEFAULT 'unassigned',
			confirmed           BOOLEAN     NOT NULL DEFAULT FALSE,
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_owner ON listings(owner, confirmed);

		CREATE TABLE IF NOT EXISTS taxonomy (
			kind         TEXT    NOT NULL,
			manufacturer TEXT    NOT NULL DEFAULT '',
			model        TEXT    NOT NULL DEFAULT '',
			name         TEXT    NOT NULL,
			value        TEXT    NOT NULL DEFAULT '',
			idx          INTEGER NOT NULL DEFAULT 0,
			origin       TEXT    NOT NULL DEFAULT '',
			segment      TEXT    NOT NULL DEFAULT '',
			PRIMARY KEY (kind, manufacturer, model, name)
		);
	`)
	return err
}

const listingColumns = `id, title, raw_category, raw_manufacturer, price, model_year,
	presentation_date, displacement, mileage, has_accident, has_seizure, has_mortgage,
	fuel_type, gear_box, color, register_number, presentation_number, inspection_url,
	images, owner, confirmed, updated_at`

func (ps *PostgresStore) ListUnassigned(ctx context.Context) ([]*models.Listing, error) {
	return ps.query(ctx, "list unassigned",
		`SELECT `+listingColumns+` FROM listings WHERE owner = $1 ORDER BY id`, models.UnassignedOwner)
}

func (ps *PostgresStore) ListByOwner(ctx context.Context, owner string) ([]*models.Listing, error) {
	return ps.query(ctx, "list by owner",
		`SELECT `+listingColumns+` FROM listings WHERE owner = $1 ORDER BY id`, owner)
}

func (ps *PostgresStore) ListByOwnerAndConfirmed(ctx context.Context, owner string, confirmed bool) ([]*models.Listing, error) {
	return ps.query(ctx, "list by owner and confirmed",
		`SELECT `+listingColumns+` FROM listings WHERE owner = $1 AND confirmed = $2 ORDER BY id`, owner, confirmed)
}

func (ps *PostgresStore) ListAssigned(ctx context.Context) ([]*models.Listing, error) {
	return ps.query(ctx, "list assigned",
		`SELECT `+listingColumns+` FROM listings WHERE owner <> $1 ORDER BY id`, models.UnassignedOwner)
}

func (ps *PostgresStore) ListOwnerIDs(ctx context.Context, owner string) ([]string, error) {
	return ps.queryIDs(ctx, "list owner ids", `SELECT id FROM listings WHERE owner = $1 ORDER BY id`, owner)
}

func (ps *PostgresStore) ListIDs(ctx context.Context) ([]string, error) {
	return ps.queryIDs(ctx, "list ids", `SELECT id FROM listings ORDER BY id`)
}

// GetMany reads listings ReadBatchSize ids per statement, preserving the
// order of ids.
func (ps *PostgresStore) GetMany(ctx context.Context, ids []string) ([]*models.Listing, error) {
	byID := make(map[string]*models.Listing, len(ids))
	for _, chunk := range utils.ChunkBySize(ids, ReadBatchSize) {
		found, err := ps.query(ctx, "get many",
			`SELECT `+listingColumns+` FROM listings WHERE id = ANY($1)`, pq.Array(chunk))
		if err != nil {
			return nil, err
		}
		for _, l := range found {
			byID[l.ID] = l
		}
	}

	out := make([]*models.Listing, 0, len(byID))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// SaveOwnership updates owner and confirmed, WriteBatchSize rows per statement.
func (ps *PostgresStore) SaveOwnership(ctx context.Context, listings []*models.Listing) BatchResult {
	var total BatchResult
	for _, chunk := range utils.ChunkBySize(listings, WriteBatchSize) {
		ids := make([]string, len(chunk))
		owners := make([]string, len(chunk))
		confirmed := make([]bool, len(chunk))
		for i, l := range chunk {
			ids[i], owners[i], confirmed[i] = l.ID, l.Owner, l.Confirmed
		}

		res, err := ps.db.ExecContext(ctx, `
			UPDATE listings AS l
			SET owner = v.owner, confirmed = v.confirmed, updated_at = NOW()
			FROM unnest($1::text[], $2::text[], $3::boolean[]) AS v(id, owner, confirmed)
			WHERE l.id = v.id
		`, pq.Array(ids), pq.Array(owners), pq.Array(confirmed))
		total.merge(chunkResult(len(chunk), res, err, "save ownership"))
	}
	return total
}

// SaveListings upserts scraped fields. Ownership of an existing row is kept.
func (ps *PostgresStore) SaveListings(ctx context.Context, listings []*models.Listing) BatchResult {
	const cols = 20
	var total BatchResult
	for _, chunk := range utils.ChunkBySize(listings, WriteBatchSize) {
		valueStrings := make([]string, 0, len(chunk))
		valueArgs := make([]interface{}, 0, len(chunk)*cols)

		for idx, l := range chunk {
			base := idx * cols
			ph := make([]string, cols)
			for c := range ph {
				ph[c] = fmt.Sprintf("$%d", base+c+1)
			}
			valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")

			owner := l.Owner
			if owner == "" {
				owner = models.UnassignedOwner
			}
			valueArgs = append(valueArgs,
				l.ID, l.Title, l.RawCategory, l.RawManufacturer, l.Price, l.ModelYear,
				l.PresentationDate, l.Displacement, l.Mileage, l.HasAccident, l.HasSeizure, l.HasMortgage,
				l.FuelType, l.GearBox, l.Color, l.RegisterNumber, l.PresentationNumber, l.InspectionURL,
				pq.Array(l.Images), owner)
		}

		query := fmt.Sprintf(`
			INSERT INTO listings (id, title, raw_category, raw_manufacturer, price, model_year,
				presentation_date, displacement, mileage, has_accident, has_seizure, has_mortgage,
				fuel_type, gear_box, color, register_number, presentation_number, inspection_url,
				images, owner)
			VALUES %s
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				raw_category = EXCLUDED.raw_category,
				raw_manufacturer = EXCLUDED.raw_manufacturer,
				price = EXCLUDED.price,
				model_year = EXCLUDED.model_year,
				presentation_date = EXCLUDED.presentation_date,
				displacement = EXCLUDED.displacement,
				mileage = EXCLUDED.mileage,
				has_accident = EXCLUDED.has_accident,
				has_seizure = EXCLUDED.has_seizure,
				has_mortgage = EXCLUDED.has_mortgage,
				fuel_type = EXCLUDED.fuel_type,
				gear_box = EXCLUDED.gear_box,
				color = EXCLUDED.color,
				register_number = EXCLUDED.register_number,
				presentation_number = EXCLUDED.presentation_number,
				inspection_url = EXCLUDED.inspection_url,
				images = EXCLUDED.images,
				updated_at = NOW()
		`, strings.Join(valueStrings, ","))

		res, err := ps.db.ExecContext(ctx, query, valueArgs...)
		total.merge(chunkResult(len(chunk), res, err, "save listings"))
	}
	return total
}

// DeleteListings removes listings by id, WriteBatchSize ids per statement.
// Ids that are not stored are not counted as failures.
func (ps *PostgresStore) DeleteListings(ctx context.Context, ids []string) BatchResult {
	var total BatchResult
	for _, chunk := range utils.ChunkBySize(ids, WriteBatchSize) {
		res, err := ps.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ANY($1)`, pq.Array(chunk))
		r := chunkResult(len(chunk), res, err, "delete listings")
		if err == nil {
			r.Failed = 0
		}
		total.merge(r)
	}
	return total
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func chunkResult(n int, res sql.Result, err error, op string) BatchResult {
	r := BatchResult{Requested: n}
	if err != nil {
		r.Failed = n
		r.Errors = []error{fmt.Errorf("postgres: %s: %w", op, err)}
		return r
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = int64(n)
	}
	r.Written = int(affected)
	r.Failed = n - r.Written
	return r
}

func (ps *PostgresStore) queryIDs(ctx context.Context, op, q string, args ...interface{}) ([]string, error) {
	rows, err := ps.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (ps *PostgresStore) query(ctx context.Context, op, q string, args ...interface{}) ([]*models.Listing, error) {
	rows, err := ps.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		if err := rows.Scan(
			&l.ID, &l.Title, &l.RawCategory, &l.RawManufacturer, &l.Price, &l.ModelYear,
			&l.PresentationDate, &l.Displacement, &l.Mileage, &l.HasAccident, &l.HasSeizure, &l.HasMortgage,
			&l.FuelType, &l.GearBox, &l.Color, &l.RegisterNumber, &l.PresentationNumber, &l.InspectionURL,
			pq.Array(&l.Images), &l.Owner, &l.Confirmed, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
