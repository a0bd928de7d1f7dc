package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"text/template"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"inventory-sync/models"
)

// Store is the configuration store: accounts and their quotas, region URLs,
// margin tables, the listing description template, region caps and the
// bucketizer keyword rules.
type Store struct {
	Accounts            []models.Account   `yaml:"accounts" validate:"min=1,dive"`
	Regions             []models.RegionURL `yaml:"regions" validate:"min=1,dive"`
	Margins             Margins            `yaml:"margins"`
	DescriptionTemplate string             `yaml:"description_template"`
	Caps                CategoryCaps       `yaml:"caps"`
	Rules               BucketRules        `yaml:"bucket_rules"`
}

// LoadStore reads and validates the YAML configuration store at path.
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config store: read %q: %w", path, err)
	}
	return ParseStore(data)
}

// ParseStore decodes and validates a configuration store document.
func ParseStore(data []byte) (*Store, error) {
	var s Store
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("config store: decode: %w", err)
	}
	if s.Rules.isZero() {
		s.Rules = DefaultBucketRules()
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks struct constraints and the cross-field invariants.
func (s *Store) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("config store: %w", err)
	}

	var errs []error

	seen := make(map[string]struct{}, len(s.Accounts))
	for _, a := range s.Accounts {
		if _, dup := seen[a.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate account %q", a.ID))
		}
		seen[a.ID] = struct{}{}
	}

	urls := s.regionURLMap()
	for region, total := range s.RegionTotals() {
		if _, ok := urls[region]; !ok {
			errs = append(errs, fmt.Errorf("region %q has no base url", region))
		}
		if s.Caps.Special() > total {
			errs = append(errs, fmt.Errorf("caps %d exceed region %q total quota %d", s.Caps.Special(), region, total))
		}
	}

	if err := validateMarginTable("domestic", s.Margins.Domestic); err != nil {
		errs = append(errs, err)
	}
	if err := validateMarginTable("imported", s.Margins.Imported); err != nil {
		errs = append(errs, err)
	}

	if _, err := template.New("description").Parse(s.DescriptionTemplate); err != nil {
		errs = append(errs, fmt.Errorf("description template: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config store: %w", errors.Join(errs...))
	}
	return nil
}

// validateMarginTable requires strictly increasing bounded bands followed by
// exactly one unbounded band.
func validateMarginTable(name string, bands []MarginBand) error {
	for i, b := range bands {
		last := i == len(bands)-1
		if b.MaxPrice == 0 && !last {
			return fmt.Errorf("margin table %s: unbounded band must be last", name)
		}
		if last && b.MaxPrice != 0 {
			return fmt.Errorf("margin table %s: top band must be unbounded", name)
		}
		if i > 0 && b.MaxPrice != 0 && b.MaxPrice <= bands[i-1].MaxPrice {
			return fmt.Errorf("margin table %s: band %d is not above band %d", name, i, i-1)
		}
	}
	return nil
}

func (s *Store) regionURLMap() map[string]models.RegionURL {
	m := make(map[string]models.RegionURL, len(s.Regions))
	for _, r := range s.Regions {
		m[r.Region] = r
	}
	return m
}

// RegionTotals sums account upload amounts per region.
func (s *Store) RegionTotals() map[string]int {
	totals := make(map[string]int)
	for i := range s.Accounts {
		totals[s.Accounts[i].Region] += s.Accounts[i].UploadAmount()
	}
	return totals
}

// RegionNames returns the distinct account regions sorted by name.
func (s *Store) RegionNames() []string {
	totals := s.RegionTotals()
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AccountsInRegion returns the region's accounts in config order.
func (s *Store) AccountsInRegion(region string) []*models.Account {
	var out []*models.Account
	for i := range s.Accounts {
		if s.Accounts[i].Region == region {
			out = append(out, &s.Accounts[i])
		}
	}
	return out
}

// Account looks an account up by id.
func (s *Store) Account(id string) (*models.Account, error) {
	for i := range s.Accounts {
		if s.Accounts[i].ID == id {
			return &s.Accounts[i], nil
		}
	}
	return nil, fmt.Errorf("config store: account %q not found", id)
}

// AccountAndRegion returns the account together with its region URL.
func (s *Store) AccountAndRegion(id string) (*models.Account, models.RegionURL, error) {
	acct, err := s.Account(id)
	if err != nil {
		return nil, models.RegionURL{}, err
	}
	url, ok := s.regionURLMap()[acct.Region]
	if !ok {
		return nil, models.RegionURL{}, fmt.Errorf("config store: no region url for %q", acct.Region)
	}
	return acct, url, nil
}
