package models

// Origin splits manufacturers into domestic and imported makers.
type Origin string

const (
	Domestic Origin = "DOMESTIC"
	Imported Origin = "IMPORTED"
)

// DropReason explains why a listing could not be classified.
type DropReason string

const (
	DropNone                  DropReason = ""
	DropUnknownCategory       DropReason = "unknown_category"
	DropUnknownManufacturer   DropReason = "unknown_manufacturer"
	DropSegmentNotLoaded      DropReason = "segment_not_loaded"
	DropManufacturerNotLoaded DropReason = "manufacturer_not_loaded"
	DropSegmentMismatch       DropReason = "segment_mismatch"
)

// Segment is a body-type node of the submission form taxonomy.
type Segment struct {
	Name  string
	Value string
	Index int
}

// DetailModel is the leaf of the taxonomy.
type DetailModel struct {
	Name  string
	Value string
	Index int
}

// Model belongs to a manufacturer and is registered under one segment.
type Model struct {
	Name         string
	Segment      string
	Value        string
	Index        int
	DetailModels []DetailModel
}

// Manufacturer owns its models. ModelOrder keeps the order in which model
// keys were registered so that title matching does not depend on map order.
type Manufacturer struct {
	Name       string
	Origin     Origin
	Value      string
	Index      int
	Models     map[string]*Model
	ModelOrder []string
}

// NewManufacturer returns a Manufacturer with an empty model map.
func NewManufacturer(name string, origin Origin, value string, index int) *Manufacturer {
	return &Manufacturer{
		Name:   name,
		Origin: origin,
		Value:  value,
		Index:  index,
		Models: make(map[string]*Model),
	}
}

// AddModel registers a model under key. Re-registering a key replaces the
// model but keeps its original position.
func (m *Manufacturer) AddModel(key string, model *Model) {
	if _, exists := m.Models[key]; !exists {
		m.ModelOrder = append(m.ModelOrder, key)
	}
	m.Models[key] = model
}

// Taxonomy is the immutable per-run snapshot handed to the classifier.
type Taxonomy struct {
	Segments      map[string]Segment
	Manufacturers map[string]*Manufacturer
}

// NewTaxonomy returns an empty Taxonomy.
func NewTaxonomy() *Taxonomy {
	return &Taxonomy{
		Segments:      make(map[string]Segment),
		Manufacturers: make(map[string]*Manufacturer),
	}
}

// TaxonomyKind tags a flat taxonomy record.
type TaxonomyKind string

const (
	KindSegment      TaxonomyKind = "segment"
	KindManufacturer TaxonomyKind = "manufacturer"
	KindModel        TaxonomyKind = "model"
	KindDetailModel  TaxonomyKind = "detail"
)

// TaxonomyRecord is the flat shape taxonomy nodes are stored in.
// Manufacturer is set for models and detail models, Model for detail models,
// Segment for models, Origin for manufacturers.
type TaxonomyRecord struct {
	Kind         TaxonomyKind `yaml:"kind"`
	Name         string       `yaml:"name"`
	Value        string       `yaml:"value"`
	Index        int          `yaml:"index"`
	Origin       Origin       `yaml:"origin,omitempty"`
	Manufacturer string       `yaml:"manufacturer,omitempty"`
	Model        string       `yaml:"model,omitempty"`
	Segment      string       `yaml:"segment,omitempty"`
}
