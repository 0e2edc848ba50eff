package modifier

import (
	"math"

	"riskcalc/internal/risk"
	"riskcalc/internal/score"
)

// Stage is one optional multiplicative adjustment.
type Stage interface {
	Name() string
	// Factor returns the stage multiplier; ok is false when the input lacks
	// the data the stage needs and the stage is skipped.
	Factor(in *risk.RiskInput) (factor float64, ok bool)
}

// Chain applies stages strictly in order and then the final five-year ceiling.
type Chain struct {
	stages  []Stage
	ceiling float64
}

func NewChain(ceiling float64, stages ...Stage) *Chain {
	return &Chain{stages: stages, ceiling: ceiling}
}

// NewChainFromSettings builds the biomarker then environmental chain.
func NewChainFromSettings(s Settings) *Chain {
	return NewChain(s.FinalCeiling,
		NewBiomarkerModifier(s.Biomarker.Markers, s.Biomarker.Max),
		NewEnvironmentModifier(s.Environment.Weights, s.Environment.Min, s.Environment.Max),
	)
}

// NewDefaultChain builds the chain from the built-in settings.
func NewDefaultChain() (*Chain, error) {
	s, err := DefaultSettings()
	if err != nil {
		return nil, err
	}
	return NewChainFromSettings(s), nil
}

// Ceiling is the final five-year bound applied on top of a model's own.
func (c *Chain) Ceiling() float64 {
	return c.ceiling
}

// Apply scales every horizon of base by each present stage. The result stays
// within the ceilings of table, five-year risk within the chain ceiling, and
// five-year risk never exceeds lifetime risk.
func (c *Chain) Apply(base score.Score, in *risk.RiskInput, table *score.Table) score.Score {
	out := base
	out.Breakdown = append([]risk.FactorContribution(nil), base.Breakdown...)

	modified := false
	for _, stage := range c.stages {
		factor, ok := stage.Factor(in)
		if !ok {
			continue
		}
		modified = true
		out.FiveYear *= factor
		out.Lifetime *= factor
		out.TenYear *= factor
		out.RelativeRisk *= factor
		out.Breakdown = append(out.Breakdown, risk.FactorContribution{Factor: stage.Name(), Value: factor})
	}
	if !modified {
		return out
	}

	out.Lifetime = math.Min(out.Lifetime, table.LifetimeCeiling)
	out.TenYear = math.Min(out.TenYear, table.LifetimeCeiling)
	fiveYearCeiling := math.Min(c.ceiling, table.FiveYearCeiling)
	out.FiveYear = math.Min(out.FiveYear, math.Min(fiveYearCeiling, out.Lifetime))
	return out
}
