package services

import (
	"regexp"
	"strconv"
	"strings"

	"inventory-sync/config"
	"inventory-sync/models"
)

// tonRegexp captures an optional tonnage in front of "톤".
var tonRegexp = regexp.MustCompile(`(\d+(?:\.\d+)?)?\s*톤`)

// Buckets partitions classified listings by quota category. Every category
// key is present, possibly with an empty slice.
type Buckets map[models.Category][]*models.ClassifiedListing

func newBuckets() Buckets {
	b := make(Buckets, len(models.Categories))
	for _, c := range models.Categories {
		b[c] = nil
	}
	return b
}

// Count returns the size of one bucket.
func (b Buckets) Count(c models.Category) int { return len(b[c]) }

// Total sums every bucket.
func (b Buckets) Total() int {
	n := 0
	for _, items := range b {
		n += len(items)
	}
	return n
}

func (b Buckets) merge(o Buckets) {
	for c, items := range o {
		b[c] = append(b[c], items...)
	}
}

// Counts returns the bucket sizes.
func (b Buckets) Counts() map[models.Category]int {
	out := make(map[models.Category]int, len(b))
	for c, items := range b {
		out[c] = len(items)
	}
	return out
}

// Bucketizer applies the keyword rules in a fixed order: imported, compact
// truck, large truck, then domestic.
type Bucketizer struct {
	rules         config.BucketRules
	compactMakers map[string]struct{}
	smallTons     map[float64]struct{}
}

// NewBucketizer prepares the lookup sets of rules.
func NewBucketizer(rules config.BucketRules) *Bucketizer {
	b := &Bucketizer{
		rules:         rules,
		compactMakers: make(map[string]struct{}, len(rules.CompactMakers)),
		smallTons:     make(map[float64]struct{}, len(rules.SmallTonnages)),
	}
	for _, m := range rules.CompactMakers {
		b.compactMakers[m] = struct{}{}
	}
	for _, t := range rules.SmallTonnages {
		b.smallTons[t] = struct{}{}
	}
	return b
}

// Bucketize places every listing in exactly one bucket, keeping input order
// within a bucket.
func (b *Bucketizer) Bucketize(listings []*models.ClassifiedListing) Buckets {
	out := newBuckets()
	for _, cl := range listings {
		c := b.CategoryOf(cl)
		out[c] = append(out[c], cl)
	}
	return out
}

// CategoryOf returns the bucket one listing belongs to.
func (b *Bucketizer) CategoryOf(cl *models.ClassifiedListing) models.Category {
	if cl.Origin == models.Imported {
		return models.CategoryImported
	}
	title := normaliseText(cl.Listing.Title)
	maker := cl.Manufacturer.Name

	if _, ok := b.compactMakers[maker]; ok && containsAny(title, b.rules.CompactKeywords) {
		return models.CategoryCompactTruck
	}
	if b.heavyTonnage(title) ||
		containsAny(title, b.rules.HeavyKeywords) ||
		containsAny(title, b.rules.MakerHeavyKeywords[maker]) {
		return models.CategoryLargeTruck
	}
	return models.CategoryDomestic
}

// heavyTonnage reports a "톤" mention that is not one of the small tonnages.
// A bare "톤" without a number counts as heavy.
func (b *Bucketizer) heavyTonnage(title string) bool {
	for _, m := range tonRegexp.FindAllStringSubmatch(title, -1) {
		if m[1] == "" {
			return true
		}
		tons, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if _, small := b.smallTons[tons]; !small {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}
