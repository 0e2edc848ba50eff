package modifier

import (
	"fmt"
	"math"

	"riskcalc/internal/risk"
)

// Marker bumps the modifier by Multiplier when its value exceeds Threshold.
type Marker struct {
	Name       string  `yaml:"name"`
	Panel      string  `yaml:"panel"`
	Threshold  float64 `yaml:"threshold"`
	Multiplier float64 `yaml:"multiplier"`
	value      func(*risk.Biomarkers) *float64
}

var markerValues = map[string]func(*risk.Biomarkers) *float64{
	"crp":             func(b *risk.Biomarkers) *float64 { return b.CRP },
	"il6":             func(b *risk.Biomarkers) *float64 { return b.IL6 },
	"malondialdehyde": func(b *risk.Biomarkers) *float64 { return b.Malondialdehyde },
	"eight_ohdg":      func(b *risk.Biomarkers) *float64 { return b.EightOHdG },
	"estradiol":       func(b *risk.Biomarkers) *float64 { return b.Estradiol },
	"igf1":            func(b *risk.Biomarkers) *float64 { return b.IGF1 },
}

// bind attaches the biomarker field named by m.Name.
func (m *Marker) bind() error {
	value, ok := markerValues[m.Name]
	if !ok {
		return fmt.Errorf("marker %s: unknown biomarker", m.Name)
	}
	if m.Multiplier <= 0 {
		return fmt.Errorf("marker %s: multiplier must be positive", m.Name)
	}
	m.value = value
	return nil
}

// BiomarkerModifier multiplies one bump per elevated marker, capped at Max.
type BiomarkerModifier struct {
	markers []Marker
	max     float64
}

func NewBiomarkerModifier(markers []Marker, max float64) *BiomarkerModifier {
	return &BiomarkerModifier{markers: markers, max: max}
}

func (bm *BiomarkerModifier) Name() string {
	return "biomarker_modifier"
}

// Factor returns the combined multiplier. ok is false without a biomarker block.
func (bm *BiomarkerModifier) Factor(in *risk.RiskInput) (factor float64, ok bool) {
	if in.Biomarkers == nil {
		return 1, false
	}
	factor = 1
	for _, m := range bm.markers {
		if m.value == nil {
			continue
		}
		if v := m.value(in.Biomarkers); v != nil && *v > m.Threshold {
			factor *= m.Multiplier
		}
	}
	return math.Min(factor, bm.max), true
}
