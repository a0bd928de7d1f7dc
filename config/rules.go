package config

// CategoryCaps bounds how many listings of the special categories a whole
// region may hold. The domestic cap is whatever the region total leaves.
type CategoryCaps struct {
	Imported     int `yaml:"imported" validate:"gte=0"`
	LargeTruck   int `yaml:"large_truck" validate:"gte=0"`
	CompactTruck int `yaml:"compact_truck" validate:"gte=0"`
}

// Special sums the three fixed caps.
func (c CategoryCaps) Special() int {
	return c.Imported + c.LargeTruck + c.CompactTruck
}

// MarginBand adds Margin to listings priced up to MaxPrice.
// MaxPrice 0 marks the unbounded top band.
type MarginBand struct {
	MaxPrice int `yaml:"max_price" validate:"gte=0"`
	Margin   int `yaml:"margin" validate:"gte=0"`
}

// Margins holds one ordered band table per origin.
type Margins struct {
	Domestic []MarginBand `yaml:"domestic" validate:"min=1,dive"`
	Imported []MarginBand `yaml:"imported" validate:"min=1,dive"`
}

// BucketRules is the curated keyword data the bucketizer matches titles with.
type BucketRules struct {
	// CompactMakers are the domestic makers whose small trucks count as compact.
	CompactMakers []string `yaml:"compact_makers"`
	// CompactKeywords mark a compact truck title.
	CompactKeywords []string `yaml:"compact_keywords"`
	// SmallTonnages are tonnages that never make a title a large truck.
	SmallTonnages []float64 `yaml:"small_tonnages"`
	// HeavyKeywords mark large-truck titles regardless of maker.
	HeavyKeywords []string `yaml:"heavy_keywords"`
	// MakerHeavyKeywords mark large-truck titles for a given maker.
	MakerHeavyKeywords map[string][]string `yaml:"maker_heavy_keywords"`
}

// DefaultBucketRules returns the keyword sets used when the config store
// does not override them.
func DefaultBucketRules() BucketRules {
	return BucketRules{
		CompactMakers:   []string{"현대", "기아", "쉐보레(대우)"},
		CompactKeywords: []string{"포터", "봉고", "라보", "다마스"},
		SmallTonnages:   []float64{1, 1.2, 1.4},
		HeavyKeywords:   []string{"덤프", "윙바디", "카고", "트랙터"},
		MakerHeavyKeywords: map[string][]string{
			"현대":     {"마이티", "메가트럭", "에어로", "카운티", "엑시언트", "파비스", "트라고", "유니버스", "파맥스"},
			"기아":     {"그랜버드", "라이노", "콤보", "복사", "세레스", "트레이드", "타이탄"},
			"삼성":     {"르노마스터", "마스터"},
			"쉐보레(대우)": {"프리마", "노부스"},
			"기타":     {"버스", "트럭"},
		},
	}
}

func (r BucketRules) isZero() bool {
	return len(r.CompactMakers) == 0 && len(r.CompactKeywords) == 0 &&
		len(r.SmallTonnages) == 0 && len(r.HeavyKeywords) == 0 && len(r.MakerHeavyKeywords) == 0
}
