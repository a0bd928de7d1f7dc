package models

import "fmt"

// Category is one of the four quota buckets.
type Category string

const (
	CategoryImported     Category = "imported"
	CategoryLargeTruck   Category = "large_truck"
	CategoryCompactTruck Category = "compact_truck"
	CategoryDomestic     Category = "domestic"
)

// Categories lists the buckets in allocation priority order.
var Categories = []Category{CategoryImported, CategoryLargeTruck, CategoryCompactTruck, CategoryDomestic}

// DomesticBand caps how many domestic listings priced up to MaxPrice an
// account holds. MaxPrice 0 means no upper bound.
type DomesticBand struct {
	MaxPrice int `yaml:"max_price" validate:"gte=0"`
	Quota    int `yaml:"quota" validate:"gte=0"`
}

// Contains reports whether price falls under the band's ceiling.
func (b DomesticBand) Contains(price int) bool {
	return b.MaxPrice == 0 || price <= b.MaxPrice
}

// Account is a seller account on the remote platform with its quotas.
type Account struct {
	ID                string         `yaml:"id" validate:"required"`
	Password          string         `yaml:"password" validate:"required"`
	Region            string         `yaml:"region" validate:"required"`
	ImportedQuota     int            `yaml:"imported_quota" validate:"gte=0"`
	LargeTruckQuota   int            `yaml:"large_truck_quota" validate:"gte=0"`
	CompactTruckQuota int            `yaml:"compact_truck_quota" validate:"gte=0"`
	DomesticBands     []DomesticBand `yaml:"domestic_bands" validate:"min=1,dive"`
}

// DomesticQuota sums the account's domestic bands.
func (a *Account) DomesticQuota() int {
	total := 0
	for _, b := range a.DomesticBands {
		total += b.Quota
	}
	return total
}

// Quota returns the account's cap for one category.
func (a *Account) Quota(c Category) int {
	switch c {
	case CategoryImported:
		return a.ImportedQuota
	case CategoryLargeTruck:
		return a.LargeTruckQuota
	case CategoryCompactTruck:
		return a.CompactTruckQuota
	case CategoryDomestic:
		return a.DomesticQuota()
	}
	return 0
}

// UploadAmount is the total number of listings the account may hold.
func (a *Account) UploadAmount() int {
	return a.ImportedQuota + a.LargeTruckQuota + a.CompactTruckQuota + a.DomesticQuota()
}

// BandFor returns the index of the first domestic band covering price,
// or -1 when none does.
func (a *Account) BandFor(price int) int {
	for i, b := range a.DomesticBands {
		if b.Contains(price) {
			return i
		}
	}
	return -1
}

// RegionURL maps a region to the base host of its platform instance.
type RegionURL struct {
	Region  string `yaml:"region" validate:"required"`
	BaseURL string `yaml:"base_url" validate:"required,hostname"`
}

func (r RegionURL) LoginURL() string {
	return fmt.Sprintf("https://ssl.%s/membership/login?url=", r.BaseURL)
}

func (r RegionURL) RegisterURL() string {
	return fmt.Sprintf("https://car.%s/my/car_post/new?car_idx=&state=0", r.BaseURL)
}

func (r RegionURL) ManageURL() string {
	return fmt.Sprintf("https://car.%s/my/car", r.BaseURL)
}

// ManagePageURL is the manage list at a 1-based page number.
func (r RegionURL) ManagePageURL(page int) string {
	return fmt.Sprintf("%s?page=%d", r.ManageURL(), page)
}

func (r RegionURL) LoginRedirectRegister() string {
	return r.LoginURL() + r.RegisterURL()
}

func (r RegionURL) LoginRedirectManage() string {
	return r.LoginURL() + r.ManageURL()
}
