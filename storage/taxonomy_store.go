package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"inventory-sync/models"
	"inventory-sync/utils"
)

// modelAliases rename model records whose form name differs from the name
// listing titles use.
var modelAliases = map[string]string{
	"봉고화물":  "봉고",
	"e-마이티": "마이티",
	"캡처":    "캡쳐",
}

func modelKey(name string) string {
	if alias, ok := modelAliases[name]; ok {
		return alias
	}
	return name
}

// BuildTaxonomy assembles flat records into the in-memory taxonomy.
// Models are registered in index order, detail models are sorted by index.
// Records pointing at a parent that is not loaded are skipped.
func BuildTaxonomy(records []models.TaxonomyRecord) *models.Taxonomy {
	t := models.NewTaxonomy()

	var modelRecs, detailRecs []models.TaxonomyRecord
	for _, r := range records {
		switch r.Kind {
		case models.KindSegment:
			t.Segments[r.Name] = models.Segment{Name: r.Name, Value: r.Value, Index: r.Index}
		case models.KindManufacturer:
			t.Manufacturers[r.Name] = models.NewManufacturer(r.Name, r.Origin, r.Value, r.Index)
		case models.KindModel:
			modelRecs = append(modelRecs, r)
		case models.KindDetailModel:
			detailRecs = append(detailRecs, r)
		}
	}

	sort.SliceStable(modelRecs, func(i, j int) bool { return modelRecs[i].Index < modelRecs[j].Index })
	for _, r := range modelRecs {
		m, ok := t.Manufacturers[r.Manufacturer]
		if !ok {
			continue
		}
		m.AddModel(modelKey(r.Name), &models.Model{
			Name:    r.Name,
			Segment: r.Segment,
			Value:   r.Value,
			Index:   r.Index,
		})
	}

	for _, r := range detailRecs {
		m, ok := t.Manufacturers[r.Manufacturer]
		if !ok {
			continue
		}
		model, ok := m.Models[modelKey(r.Model)]
		if !ok {
			continue
		}
		model.DetailModels = append(model.DetailModels, models.DetailModel{Name: r.Name, Value: r.Value, Index: r.Index})
	}

	for _, m := range t.Manufacturers {
		for _, model := range m.Models {
			sort.SliceStable(model.DetailModels, func(i, j int) bool {
				return model.DetailModels[i].Index < model.DetailModels[j].Index
			})
		}
	}
	return t
}

// LoadTaxonomy scans every taxonomy record and builds the run snapshot.
func (ps *PostgresStore) LoadTaxonomy(ctx context.Context) (*models.Taxonomy, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT kind, manufacturer, model, name, value, idx, origin, segment
		FROM taxonomy
		ORDER BY kind, idx
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load taxonomy: %w", err)
	}
	defer rows.Close()

	var records []models.TaxonomyRecord
	for rows.Next() {
		var r models.TaxonomyRecord
		if err := rows.Scan(&r.Kind, &r.Manufacturer, &r.Model, &r.Name, &r.Value, &r.Index, &r.Origin, &r.Segment); err != nil {
			return nil, fmt.Errorf("postgres: scan taxonomy: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load taxonomy: %w", err)
	}
	return BuildTaxonomy(records), nil
}

// SaveRecords upserts taxonomy records WriteBatchSize per statement. Records
// repeating a key collapse into one row holding the last values, and
// Requested counts the collapsed rows.
func (ps *PostgresStore) SaveRecords(ctx context.Context, records []models.TaxonomyRecord) BatchResult {
	const cols = 8
	var total BatchResult
	for _, chunk := range utils.ChunkBySize(dedupeRecords(records), WriteBatchSize) {
		valueStrings := make([]string, 0, len(chunk))
		valueArgs := make([]interface{}, 0, len(chunk)*cols)
		for idx, r := range chunk {
			base := idx * cols
			valueStrings = append(valueStrings,
				fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
					base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
			valueArgs = append(valueArgs,
				string(r.Kind), r.Manufacturer, r.Model, r.Name, r.Value, r.Index, string(r.Origin), r.Segment)
		}

		query := fmt.Sprintf(`
			INSERT INTO taxonomy (kind, manufacturer, model, name, value, idx, origin, segment)
			VALUES %s
			ON CONFLICT (kind, manufacturer, model, name) DO UPDATE SET
				value = EXCLUDED.value,
				idx = EXCLUDED.idx,
				origin = EXCLUDED.origin,
				segment = EXCLUDED.segment
		`, strings.Join(valueStrings, ","))

		res, err := ps.db.ExecContext(ctx, query, valueArgs...)
		total.merge(chunkResult(len(chunk), res, err, "save taxonomy"))
	}
	return total
}

// dedupeRecords keeps the first position of each taxonomy key and the last
// record given for it.
func dedupeRecords(records []models.TaxonomyRecord) []models.TaxonomyRecord {
	pos := make(map[string]int, len(records))
	out := make([]models.TaxonomyRecord, 0, len(records))
	for _, r := range records {
		key := strings.Join([]string{string(r.Kind), r.Manufacturer, r.Model, r.Name}, "\x00")
		if i, ok := pos[key]; ok {
			out[i] = r
			continue
		}
		pos[key] = len(out)
		out = append(out, r)
	}
	return out
}
