package risk

import (
	"fmt"
	"slices"
	"time"
)

// Category is the ordered risk classification: low < average < high < very high.
type Category int

const (
	CategoryLow Category = iota
	CategoryAverage
	CategoryHigh
	CategoryVeryHigh
)

var categoryNames = [...]string{"low", "average", "high", "very_high"}

func (c Category) String() string {
	if c < CategoryLow || c > CategoryVeryHigh {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	for i, name := range categoryNames {
		if name == string(text) {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("unknown risk category %q", text)
}

// Thresholds maps a five-year risk percentage onto a Category. A zero bound
// disables that category and everything above it.
type Thresholds struct {
	Average  float64 `yaml:"average" json:"average"`
	High     float64 `yaml:"high" json:"high"`
	VeryHigh float64 `yaml:"very_high" json:"very_high"`
}

// Categorize returns the category of a five-year risk value.
func (t Thresholds) Categorize(fiveYear float64) Category {
	switch {
	case t.Average <= 0 || fiveYear < t.Average:
		return CategoryLow
	case t.High <= 0 || fiveYear < t.High:
		return CategoryAverage
	case t.VeryHigh <= 0 || fiveYear < t.VeryHigh:
		return CategoryHigh
	default:
		return CategoryVeryHigh
	}
}

// FactorContribution is one entry of the per-factor breakdown.
type FactorContribution struct {
	Factor string  `json:"factor"`
	Level  string  `json:"level,omitempty"`
	Value  float64 `json:"value"`
}

type Metadata struct {
	Model      ModelID   `json:"model"`
	ComputedAt time.Time `json:"computed_at"`
	Confidence float64   `json:"confidence"`
	InputHash  string    `json:"input_hash"`
}

// RiskResult is the outcome of one assessment. Values are percentages.
type RiskResult struct {
	ID              string               `json:"id"`
	FiveYearRisk    float64              `json:"five_year_risk"`
	LifetimeRisk    float64              `json:"lifetime_risk"`
	TenYearRisk     float64              `json:"ten_year_risk,omitempty"`
	RelativeRisk    float64              `json:"relative_risk"`
	Category        Category             `json:"category"`
	Breakdown       []FactorContribution `json:"breakdown"`
	Recommendations []string             `json:"recommendations"`
	Metadata        Metadata             `json:"metadata"`
}

// Clone returns a copy that shares no slices with r.
func (r RiskResult) Clone() RiskResult {
	r.Breakdown = slices.Clone(r.Breakdown)
	r.Recommendations = slices.Clone(r.Recommendations)
	return r
}
