package score

import (
	"errors"
	"fmt"
	"math"

	"riskcalc/internal/risk"
)

// Score is the baseline output of a model before modifiers are applied.
// Risks are percentages.
type Score struct {
	FiveYear     float64
	Lifetime     float64
	TenYear      float64
	RelativeRisk float64
	Breakdown    []risk.FactorContribution
}

// Scorer maps a validated input onto a baseline risk.
type Scorer interface {
	Score(in *risk.RiskInput) (Score, error)
}

// FactorScorer is the weighted-factor engine bound to one coefficient table.
// It keeps no state between calls.
type FactorScorer struct {
	table   *Table
	extract Extractor
}

func NewFactorScorer(table *Table, extract Extractor) *FactorScorer {
	return &FactorScorer{table: table, extract: extract}
}

// Table exposes the coefficients the scorer was built with.
func (fs *FactorScorer) Table() *Table {
	return fs.table
}

// Score evaluates every factor of the table in declaration order and projects
// the combined value onto the five-year, lifetime and ten-year horizons.
func (fs *FactorScorer) Score(in *risk.RiskInput) (Score, error) {
	if in == nil {
		return Score{}, errors.New("nil input")
	}
	t := fs.table
	features := fs.extract(in)

	acc := t.Base
	relative := 1.0
	breakdown := make([]risk.FactorContribution, 0, len(t.Factors)+1)
	if t.Combine != CombineMultiplicative {
		breakdown = append(breakdown, risk.FactorContribution{Factor: "base", Value: t.Base})
	}

	for i := range t.Factors {
		f := &t.Factors[i]
		v, level, applied, err := f.Eval(features)
		if err != nil {
			return Score{}, err
		}
		if !applied {
			continue
		}
		if t.Combine == CombineMultiplicative {
			acc *= v
			if !f.Baseline {
				relative *= v
			} else {
				ref, ok, err := f.ReferenceValue(features)
				if err != nil {
					return Score{}, err
				}
				if ok && ref > 0 {
					relative *= v / ref
				}
			}
		} else {
			acc += v
		}
		breakdown = append(breakdown, risk.FactorContribution{Factor: f.Name, Level: level, Value: v})
	}

	var raw float64
	switch t.Combine {
	case CombineMultiplicative:
		raw = acc
	case CombineLogOdds:
		raw = 100 / (1 + math.Exp(-acc))
		relative = math.Exp(acc - t.Base)
	case CombineAdditive:
		r := t.Rescale
		raw = clamp(r.Intercept+r.Scale*acc, r.Min, r.Max)
		if t.ReferenceRisk > 0 {
			relative = raw / t.ReferenceRisk
		}
	default:
		return Score{}, fmt.Errorf("unsupported combine mode '%s'", t.Combine)
	}

	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw < 0 {
		return Score{}, fmt.Errorf("%s: risk value %v out of domain", t.Model, raw)
	}

	s := Score{RelativeRisk: relative, Breakdown: breakdown}
	switch t.Anchor {
	case AnchorFiveYear:
		s.FiveYear = math.Min(raw, t.FiveYearCeiling)
		s.Lifetime = math.Min(s.FiveYear*t.LifetimeMultiplier, t.LifetimeCeiling)
	case AnchorLifetime:
		s.Lifetime = math.Min(raw, t.LifetimeCeiling)
		s.FiveYear = math.Min(s.Lifetime*t.FiveYearFraction, t.FiveYearCeiling)
	case AnchorTenYear:
		s.TenYear = raw
		s.FiveYear = math.Min(raw*t.FiveYearFraction, t.FiveYearCeiling)
		s.Lifetime = math.Min(raw*t.LifetimeMultiplier, t.LifetimeCeiling)
	default:
		return Score{}, fmt.Errorf("unsupported anchor '%s'", t.Anchor)
	}
	return s, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// Engine holds a scorer for every supported model.
type Engine struct {
	scorers map[risk.ModelID]*FactorScorer
}

// NewEngine binds each table to its model's extractor.
func NewEngine(tables Tables) (*Engine, error) {
	extractors := Extractors()
	e := &Engine{scorers: make(map[risk.ModelID]*FactorScorer, len(tables))}
	for _, model := range risk.Models() {
		table, ok := tables[model]
		if !ok {
			return nil, fmt.Errorf("no coefficient table for model %s", model)
		}
		e.scorers[model] = NewFactorScorer(table, extractors[model])
	}
	return e, nil
}

// Scorer returns the scorer of model or risk.ErrUnknownModel.
func (e *Engine) Scorer(model risk.ModelID) (*FactorScorer, error) {
	s, ok := e.scorers[model]
	if !ok {
		return nil, risk.ErrUnknownModel
	}
	return s, nil
}
