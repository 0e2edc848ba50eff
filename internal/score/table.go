package score

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"riskcalc/internal/risk"

	"gopkg.in/yaml.v3"
)

// Combine selects how factor values are folded together.
type Combine string

const (
	// CombineMultiplicative multiplies Base by every factor value.
	CombineMultiplicative Combine = "multiplicative"
	// CombineLogOdds sums terms onto Base and applies the logistic transform.
	CombineLogOdds Combine = "log_odds"
	// CombineAdditive sums terms onto Base and rescales linearly into a percentage.
	CombineAdditive Combine = "additive"
)

// Anchor states which horizon the combined value represents.
type Anchor string

const (
	AnchorFiveYear Anchor = "five_year"
	AnchorLifetime Anchor = "lifetime"
	AnchorTenYear  Anchor = "ten_year"
)

// Bracket maps values strictly below Below onto Value. A nil Below closes the range.
type Bracket struct {
	Below *float64 `yaml:"below"`
	Value float64  `yaml:"value"`
}

// Linear contributes Slope*(x-Reference). With Floor set, values under
// Reference contribute nothing.
type Linear struct {
	Slope     float64 `yaml:"slope"`
	Reference float64 `yaml:"reference"`
	Floor     bool    `yaml:"floor"`
}

// Factor is one row of a coefficient table. A feature carrying a label is
// resolved through Levels; a numeric feature through Brackets or Linear.
type Factor struct {
	Name     string `yaml:"name"`
	Feature  string `yaml:"feature"`
	Baseline bool   `yaml:"baseline"`
	// Reference names a label feature selecting the level a baseline factor
	// is compared against for relative risk.
	Reference string             `yaml:"reference"`
	Levels    map[string]float64 `yaml:"levels"`
	Brackets  []Bracket          `yaml:"brackets"`
	Linear    *Linear            `yaml:"linear"`
}

// Rescale converts an additive score into a bounded percentage.
type Rescale struct {
	Intercept float64 `yaml:"intercept"`
	Scale     float64 `yaml:"scale"`
	Min       float64 `yaml:"min"`
	Max       float64 `yaml:"max"`
}

// Table parameterizes the weighted-factor engine for one model.
type Table struct {
	Model              risk.ModelID    `yaml:"-"`
	Combine            Combine         `yaml:"combine"`
	Anchor             Anchor          `yaml:"anchor"`
	Base               float64         `yaml:"base"`
	Rescale            *Rescale        `yaml:"rescale"`
	FiveYearCeiling    float64         `yaml:"five_year_ceiling"`
	LifetimeCeiling    float64         `yaml:"lifetime_ceiling"`
	LifetimeMultiplier float64         `yaml:"lifetime_multiplier"`
	FiveYearFraction   float64         `yaml:"five_year_fraction"`
	ReferenceRisk      float64         `yaml:"reference_risk"`
	Thresholds         risk.Thresholds `yaml:"thresholds"`
	Factors            []Factor        `yaml:"factors"`
}

// Tables holds one coefficient table per model.
type Tables map[risk.ModelID]*Table

//go:embed coefficients.yaml
var defaultCoefficients []byte

// DefaultTables returns the built-in coefficient tables.
func DefaultTables() (Tables, error) {
	return LoadTables(defaultCoefficients)
}

// LoadTablesFromFile reads and validates coefficient tables from a YAML file.
func LoadTablesFromFile(file string) (Tables, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return LoadTables(content)
}

// LoadTables parses a YAML document keyed by model id. Every supported model
// must be present and every table must pass Validate.
func LoadTables(content []byte) (Tables, error) {
	raw := map[string]*Table{}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("parse coefficient tables: %w", err)
	}

	tables := make(Tables, len(raw))
	for name, table := range raw {
		model, err := risk.ParseModel(name)
		if err != nil {
			return nil, fmt.Errorf("coefficient table %q: %w", name, err)
		}
		if table == nil {
			return nil, fmt.Errorf("coefficient table %q: empty", name)
		}
		table.Model = model
		if err := table.Validate(); err != nil {
			return nil, fmt.Errorf("coefficient table %q: %w", name, err)
		}
		tables[model] = table
	}

	for _, model := range risk.Models() {
		if _, ok := tables[model]; !ok {
			return nil, fmt.Errorf("coefficient table %q: missing", model)
		}
	}
	return tables, nil
}

// Validate checks the structural constraints the engine relies on to keep
// five-year risk at or below lifetime risk.
func (t *Table) Validate() error {
	switch t.Combine {
	case CombineMultiplicative, CombineLogOdds:
	case CombineAdditive:
		if t.Rescale == nil {
			return errors.New("additive table requires rescale")
		}
		if t.Rescale.Min < 0 || t.Rescale.Max <= t.Rescale.Min {
			return errors.New("rescale: min must be non-negative and below max")
		}
	default:
		return fmt.Errorf("unsupported combine mode '%s'", t.Combine)
	}

	switch t.Anchor {
	case AnchorFiveYear:
	case AnchorLifetime, AnchorTenYear:
		if t.FiveYearFraction <= 0 || t.FiveYearFraction > 1 {
			return errors.New("five_year_fraction must be in (0, 1]")
		}
	default:
		return fmt.Errorf("unsupported anchor '%s'", t.Anchor)
	}

	if t.FiveYearCeiling <= 0 || t.LifetimeCeiling < t.FiveYearCeiling {
		return errors.New("ceilings must be positive and five_year_ceiling <= lifetime_ceiling")
	}
	if t.LifetimeMultiplier < 1 {
		return errors.New("lifetime_multiplier must be >= 1")
	}
	if t.Anchor == AnchorTenYear && t.LifetimeMultiplier < t.FiveYearFraction {
		return errors.New("lifetime_multiplier must not be below five_year_fraction")
	}

	th := t.Thresholds
	if th.Average < 0 || (th.High > 0 && th.High < th.Average) || (th.VeryHigh > 0 && th.VeryHigh < th.High) {
		return errors.New("thresholds must be ascending")
	}

	names := map[string]bool{}
	for i := range t.Factors {
		f := &t.Factors[i]
		if f.Name == "" || f.Feature == "" {
			return fmt.Errorf("factor #%d: name and feature must be specified", i)
		}
		if names[f.Name] {
			return fmt.Errorf("factor %s: duplicate name", f.Name)
		}
		names[f.Name] = true
		if err := f.validate(); err != nil {
			return fmt.Errorf("factor %s: %w", f.Name, err)
		}
	}
	return nil
}

func (f *Factor) validate() error {
	if len(f.Levels) == 0 && len(f.Brackets) == 0 && f.Linear == nil {
		return errors.New("one of levels, brackets or linear must be specified")
	}
	if len(f.Brackets) > 0 && f.Linear != nil {
		return errors.New("brackets and linear are mutually exclusive")
	}
	for i, b := range f.Brackets {
		last := i == len(f.Brackets)-1
		switch {
		case last && b.Below != nil:
			return errors.New("last bracket must be open-ended")
		case !last && b.Below == nil:
			return errors.New("only the last bracket may be open-ended")
		case i > 0 && !last && *b.Below <= *f.Brackets[i-1].Below:
			return errors.New("bracket bounds must be ascending")
		}
	}
	if f.Reference != "" && (!f.Baseline || len(f.Levels) == 0) {
		return errors.New("reference requires a baseline factor with levels")
	}
	for level, v := range f.Levels {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("level %s: value must be finite", level)
		}
	}
	return nil
}
