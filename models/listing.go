package models

import "time"

// UnassignedOwner is the owner value of a listing no account holds.
const UnassignedOwner = "unassigned"

// Listing is one scraped marketplace record as kept in the listing store.
// Owner and Confirmed are the only fields the engine mutates.
type Listing struct {
	ID                 string   `yaml:"id"` // licence plate, unique per listing
	Title              string   `yaml:"title"`
	RawCategory        string   `yaml:"category"`
	RawManufacturer    string   `yaml:"company"`
	Price              int      `yaml:"price"`      // in 10,000 KRW units, as scraped
	ModelYear          string   `yaml:"model_year"` // "YYYY-MM"
	PresentationDate   string   `yaml:"presentation_date"`
	Displacement       int      `yaml:"displacement"`
	Mileage            int      `yaml:"mileage"`
	HasAccident        bool     `yaml:"has_accident"`
	HasSeizure         bool     `yaml:"has_seizure"`
	HasMortgage        bool     `yaml:"has_mortgage"`
	FuelType           string   `yaml:"fuel_type"`
	GearBox            string   `yaml:"gear_box"`
	Color              string   `yaml:"color"`
	RegisterNumber     string   `yaml:"register_number"`
	PresentationNumber string   `yaml:"presentation_number"`
	InspectionURL      string   `yaml:"inspection_url"`
	Images             []string `yaml:"images"`

	Owner     string    `yaml:"-"`
	Confirmed bool      `yaml:"-"`
	UpdatedAt time.Time `yaml:"-"`
}

// IsAssigned reports whether an account currently holds the listing.
func (l *Listing) IsAssigned() bool {
	return l.Owner != "" && l.Owner != UnassignedOwner
}

// Release returns the listing to the unassigned pool.
func (l *Listing) Release() {
	l.Owner = UnassignedOwner
	l.Confirmed = false
}

// AssignTo hands the listing to an account as a not-yet-confirmed upload.
func (l *Listing) AssignTo(accountID string) {
	l.Owner = accountID
	l.Confirmed = false
}

// TaxonomyRef is the resolved name and form value of one taxonomy node.
type TaxonomyRef struct {
	Name  string
	Value string
	Index int
}

// ClassifiedListing is a Listing together with its resolved taxonomy path.
// Model and DetailModel are nil when resolution stopped above them.
type ClassifiedListing struct {
	Listing      *Listing
	Origin       Origin
	Segment      TaxonomyRef
	Manufacturer TaxonomyRef
	Model        *TaxonomyRef
	DetailModel  *TaxonomyRef
}

// Unclassified records a listing the classifier dropped and why.
type Unclassified struct {
	Listing *Listing
	Reason  DropReason
}

// UnclassifiedGroup aggregates dropped listings sharing raw category,
// raw manufacturer and drop reason.
type UnclassifiedGroup struct {
	RawCategory     string
	RawManufacturer string
	Reason          DropReason
	Count           int
	SampleIDs       []string
}
