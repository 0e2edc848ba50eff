package modifier

import (
	"fmt"
	"math"
	"slices"

	"riskcalc/internal/risk"
)

// EnvironmentWeights are the additive fractional terms of the
// environmental/lifestyle stage. Negative weights are protective.
type EnvironmentWeights struct {
	// AirQualityModerate applies above AQI 100, AirQualityPoor above 150.
	AirQualityModerate float64                `yaml:"air_quality_moderate"`
	AirQualityPoor     float64                `yaml:"air_quality_poor"`
	Toxin              map[risk.Level]float64 `yaml:"toxin"`
	// AlcoholModerate applies above 7 drinks a week, AlcoholHeavy above 14.
	AlcoholModerate float64 `yaml:"alcohol_moderate"`
	AlcoholHeavy    float64 `yaml:"alcohol_heavy"`
	SmokingCurrent  float64 `yaml:"smoking_current"`
	SmokingFormer   float64 `yaml:"smoking_former"`
	// ActivityActive applies from 150 minutes a week, ActivityVeryActive from 300.
	ActivityActive     float64               `yaml:"activity_active"`
	ActivityVeryActive float64               `yaml:"activity_very_active"`
	Diet               map[risk.Diet]float64 `yaml:"diet"`
	StressHigh         float64               `yaml:"stress_high"`
	// ShortSleep applies under 6 hours a night.
	ShortSleep float64 `yaml:"short_sleep"`
	LowSupport float64 `yaml:"low_support"`
}

func (w *EnvironmentWeights) validate() error {
	for level := range w.Toxin {
		if !slices.Contains(risk.Levels, level) {
			return fmt.Errorf("toxin: unsupported level '%s'", level)
		}
	}
	for diet := range w.Diet {
		if !slices.Contains(risk.Diets, diet) {
			return fmt.Errorf("diet: unsupported diet '%s'", diet)
		}
	}
	return nil
}

// EnvironmentModifier sums exposure, lifestyle and psychosocial terms onto 1
// and clamps the result to [min, max].
type EnvironmentModifier struct {
	weights  EnvironmentWeights
	min, max float64
}

func NewEnvironmentModifier(weights EnvironmentWeights, min, max float64) *EnvironmentModifier {
	return &EnvironmentModifier{weights: weights, min: min, max: max}
}

func (em *EnvironmentModifier) Name() string {
	return "environment_modifier"
}

// Factor returns the clamped multiplier. ok is false when none of the
// environmental, lifestyle or psychosocial blocks is present.
func (em *EnvironmentModifier) Factor(in *risk.RiskInput) (factor float64, ok bool) {
	if in.Environmental == nil && in.Lifestyle == nil && in.Psychosocial == nil {
		return 1, false
	}
	w := em.weights
	sum := 0.0

	if e := in.Environmental; e != nil {
		if e.AirQualityIndex != nil {
			switch aqi := *e.AirQualityIndex; {
			case aqi > 150:
				sum += w.AirQualityPoor
			case aqi > 100:
				sum += w.AirQualityModerate
			}
		}
		sum += w.Toxin[e.ToxinExposure]
	}

	if l := in.Lifestyle; l != nil {
		switch {
		case l.AlcoholPerWeek > 14:
			sum += w.AlcoholHeavy
		case l.AlcoholPerWeek > 7:
			sum += w.AlcoholModerate
		}
		switch {
		case l.Smoking.Current():
			sum += w.SmokingCurrent
		case l.Smoking == risk.SmokingFormer:
			sum += w.SmokingFormer
		}
		switch {
		case l.ActivityMinutes >= 300:
			sum += w.ActivityVeryActive
		case l.ActivityMinutes >= 150:
			sum += w.ActivityActive
		}
		sum += w.Diet[l.Diet]
	}

	if p := in.Psychosocial; p != nil {
		if p.Stress == risk.LevelHigh {
			sum += w.StressHigh
		}
		if p.SleepHours != nil && *p.SleepHours < 6 {
			sum += w.ShortSleep
		}
		if p.SocialSupport == risk.LevelLow || p.SocialSupport == risk.LevelNone {
			sum += w.LowSupport
		}
	}

	return math.Max(em.min, math.Min(1+sum, em.max)), true
}
