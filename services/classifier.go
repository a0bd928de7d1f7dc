package services

import (
	"strings"

	"inventory-sync/models"
)

// Classifier resolves listings against one taxonomy snapshot. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	taxonomy *models.Taxonomy
}

// NewClassifier binds a classifier to a loaded taxonomy.
func NewClassifier(t *models.Taxonomy) *Classifier {
	return &Classifier{taxonomy: t}
}

// Classify resolves l into its taxonomy path. When the listing cannot be
// classified it returns nil and the reason.
func (c *Classifier) Classify(l *models.Listing) (*models.ClassifiedListing, models.DropReason) {
	segName, ok := segmentFor(normaliseText(l.RawCategory))
	if !ok {
		return nil, models.DropUnknownCategory
	}
	comp, ok := companyFor(normaliseText(l.RawManufacturer))
	if !ok {
		return nil, models.DropUnknownManufacturer
	}

	seg, ok := c.taxonomy.Segments[segName]
	if !ok {
		return nil, models.DropSegmentNotLoaded
	}
	maker, ok := c.taxonomy.Manufacturers[comp.name]
	if !ok {
		return nil, models.DropManufacturerNotLoaded
	}

	cl := &models.ClassifiedListing{
		Listing:      l,
		Origin:       comp.origin,
		Segment:      models.TaxonomyRef{Name: seg.Name, Value: seg.Value, Index: seg.Index},
		Manufacturer: models.TaxonomyRef{Name: maker.Name, Value: maker.Value, Index: maker.Index},
	}
	if comp.origin == models.Imported {
		return cl, models.DropNone
	}

	title := normaliseText(l.Title)
	model := matchModel(maker, title)
	if model == nil {
		return cl, models.DropNone
	}
	if model.Segment != seg.Name {
		return nil, models.DropSegmentMismatch
	}
	cl.Model = &models.TaxonomyRef{Name: model.Name, Value: model.Value, Index: model.Index}

	compact := stripSpaces(title)
	for _, d := range model.DetailModels {
		if strings.Contains(compact, detailMatchName(d.Name)) {
			cl.DetailModel = &models.TaxonomyRef{Name: d.Name, Value: d.Value, Index: d.Index}
			break
		}
	}
	return cl, models.DropNone
}

// matchModel returns the first model, in registration order, whose key
// occurs in title.
func matchModel(m *models.Manufacturer, title string) *models.Model {
	for _, key := range m.ModelOrder {
		if strings.Contains(title, key) {
			return m.Models[key]
		}
	}
	return nil
}

// ClassifyAll classifies every listing and separates out the drops.
func (c *Classifier) ClassifyAll(listings []*models.Listing) ([]*models.ClassifiedListing, []models.Unclassified) {
	classified := make([]*models.ClassifiedListing, 0, len(listings))
	var dropped []models.Unclassified
	for _, l := range listings {
		cl, reason := c.Classify(l)
		if cl == nil {
			dropped = append(dropped, models.Unclassified{Listing: l, Reason: reason})
			continue
		}
		classified = append(classified, cl)
	}
	return classified, dropped
}
