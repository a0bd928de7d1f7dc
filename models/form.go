package models

// SubmissionForm is the fully resolved content of one listing-submission
// form on the remote platform. Codes are platform option values.
type SubmissionForm struct {
	ListingID string

	Origin            Origin
	SegmentName       string
	ManufacturerValue string
	ManufacturerIsEtc bool
	ModelValue        string // empty: pick the trailing "other" model entry (domestic only)
	DetailModelValue  string
	FreeTextTitle     string // set when model or detail model did not resolve

	Plate              string
	PresentationNumber string
	Year               string
	Month              string
	Mileage            int
	Displacement       int
	Price              int

	FuelCode     string
	GearboxCode  string
	ColorCode    string
	ColorNote    string // required when ColorCode is the "other" code
	AccidentCode string
	AccidentNote string
	HasSeizure   bool
	HasMortgage  bool

	Description string
	Images      []string
}

// RegionSummary holds the counts of one region allocation pass.
type RegionSummary struct {
	Region       string
	TotalQuota   int
	Before       map[Category]int
	Reclaimed    map[Category]int
	Allocated    map[Category]int
	PerAccount   map[string]int
	AccountOrder []string
	// Unclassifiable counts held listings released because they no longer
	// resolve against the taxonomy.
	Unclassifiable int
}

// NewRegionSummary returns a summary with every count map allocated.
func NewRegionSummary(region string) *RegionSummary {
	return &RegionSummary{
		Region:     region,
		Before:     make(map[Category]int, len(Categories)),
		Reclaimed:  make(map[Category]int, len(Categories)),
		Allocated:  make(map[Category]int, len(Categories)),
		PerAccount: make(map[string]int),
	}
}

// AllocatedTotal sums the newly assigned listings of every category.
func (s *RegionSummary) AllocatedTotal() int {
	n := 0
	for _, v := range s.Allocated {
		n += v
	}
	return n
}

// ReclaimedTotal sums the released listings of every category.
func (s *RegionSummary) ReclaimedTotal() int {
	n := 0
	for _, v := range s.Reclaimed {
		n += v
	}
	return n
}
