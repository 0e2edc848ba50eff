package validation

import (
	"fmt"
	"slices"

	"riskcalc/internal/risk"
)

// Physiological bounds accepted by the calculators.
const (
	MinAge          = 18
	MaxAge          = 100
	MinMenarcheAge  = 8
	MaxMenarcheAge  = 18
	MinFirstBirth   = 10
	MaxFirstBirth   = 55
	MaxBiopsies     = 20
	MaxRelatives    = 20
	MinHeightCm     = 100.0
	MaxHeightCm     = 250.0
	MinWeightKg     = 30.0
	MaxWeightKg     = 300.0
	MinCholRatio    = 1.0
	MaxCholRatio    = 20.0
	MinSystolicBP   = 70.0
	MaxSystolicBP   = 250.0
	MaxAlcohol      = 100.0
	MaxActivityMins = 5000
	MaxAirQuality   = 500.0
	MaxSleepHours   = 24.0
)

// Result is the outcome of validating one input.
type Result struct {
	Valid  bool
	Errors []risk.FieldError
}

// Err returns a *risk.ValidationError holding all violations, or nil.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &risk.ValidationError{Errors: r.Errors}
}

// Validator checks an input against the static constraints of a model.
// It never stops at the first violation.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs every constraint for model over in and collects all violations.
func (v *Validator) Validate(model risk.ModelID, in *risk.RiskInput) Result {
	c := collector{}
	if in == nil {
		c.add("input", "must be provided")
		return c.result()
	}

	c.personal(model, &in.Personal)

	needsMedical := model == risk.ModelGail || model == risk.ModelBCSC
	needsFamily := needsMedical || model == risk.ModelBRCA

	switch {
	case in.Medical != nil:
		c.medical(model, in.Medical)
	case needsMedical:
		c.add("medical_history", fmt.Sprintf("required for %s model", model))
	}

	switch {
	case in.Family != nil:
		c.family(in.Family)
	case needsFamily:
		c.add("family_history", fmt.Sprintf("required for %s model", model))
	}

	if in.Cardio != nil {
		c.cardio(in.Cardio)
	}
	if in.Lifestyle != nil {
		c.lifestyle(in.Lifestyle)
	}
	for gene, status := range in.Genetic {
		switch {
		case gene == "":
			c.add("genetic", "gene name must not be empty")
		case !slices.Contains([]risk.GeneStatus{risk.GenePathogenic, risk.GeneNegative, risk.GeneUnknown}, status):
			c.add("genetic."+gene, fmt.Sprintf("unsupported status '%s'", status))
		}
	}
	if in.Environmental != nil {
		c.optionalRange("air_quality_index", in.Environmental.AirQualityIndex, 0, MaxAirQuality)
		c.level("toxin_exposure", in.Environmental.ToxinExposure)
	}
	if in.Psychosocial != nil {
		c.level("stress", in.Psychosocial.Stress)
		c.level("social_support", in.Psychosocial.SocialSupport)
		c.optionalRange("sleep_hours", in.Psychosocial.SleepHours, 0, MaxSleepHours)
	}
	if b := in.Biomarkers; b != nil {
		c.nonNegative("crp", b.CRP)
		c.nonNegative("il6", b.IL6)
		c.nonNegative("malondialdehyde", b.Malondialdehyde)
		c.nonNegative("eight_ohdg", b.EightOHdG)
		c.nonNegative("estradiol", b.Estradiol)
		c.nonNegative("igf1", b.IGF1)
	}

	return c.result()
}

type collector struct {
	errors []risk.FieldError
}

func (c *collector) add(field, message string) {
	c.errors = append(c.errors, risk.FieldError{Field: field, Message: message})
}

func (c *collector) result() Result {
	return Result{Valid: len(c.errors) == 0, Errors: c.errors}
}

func (c *collector) intRange(field string, v, min, max int) {
	if v < min || v > max {
		c.add(field, fmt.Sprintf("must be between %d and %d", min, max))
	}
}

func (c *collector) optionalRange(field string, v *float64, min, max float64) {
	if v != nil && !(*v >= min && *v <= max) {
		c.add(field, fmt.Sprintf("must be between %g and %g", min, max))
	}
}

func (c *collector) nonNegative(field string, v *float64) {
	if v != nil && !(*v >= 0) {
		c.add(field, "must not be negative")
	}
}

func (c *collector) level(field string, l risk.Level) {
	if l != "" && !slices.Contains(risk.Levels, l) {
		c.add(field, fmt.Sprintf("unsupported level '%s'", l))
	}
}

func (c *collector) personal(model risk.ModelID, p *risk.Personal) {
	c.intRange("age", p.Age, MinAge, MaxAge)

	switch {
	case p.Race == "":
		c.add("race", "must be specified")
	case !p.Race.Valid():
		c.add("race", fmt.Sprintf("unsupported race '%s'", p.Race))
	}

	switch {
	case p.Sex == "" && (model == risk.ModelBRCA || model == risk.ModelQRISK):
		c.add("sex", fmt.Sprintf("required for %s model", model))
	case p.Sex != "" && p.Sex != risk.SexFemale && p.Sex != risk.SexMale:
		c.add("sex", fmt.Sprintf("unsupported sex '%s'", p.Sex))
	}

	c.optionalRange("height_cm", p.HeightCm, MinHeightCm, MaxHeightCm)
	c.optionalRange("weight_kg", p.WeightKg, MinWeightKg, MaxWeightKg)
}

func (c *collector) medical(model risk.ModelID, m *risk.MedicalHistory) {
	switch {
	case m.MenarcheAge != nil:
		c.intRange("menarche_age", *m.MenarcheAge, MinMenarcheAge, MaxMenarcheAge)
	case model == risk.ModelGail:
		c.add("menarche_age", "must be specified")
	}
	if m.FirstBirthAge != nil {
		c.intRange("first_birth_age", *m.FirstBirthAge, MinFirstBirth, MaxFirstBirth)
	}
	c.intRange("biopsy_count", m.BiopsyCount, 0, MaxBiopsies)
	if m.Density != "" && m.Density.Rank() < 0 {
		c.add("density", fmt.Sprintf("unsupported density '%s'", m.Density))
	}
}

func (c *collector) family(f *risk.FamilyHistory) {
	c.intRange("first_degree_relatives", f.FirstDegreeRelatives, 0, MaxRelatives)
}

func (c *collector) cardio(cv *risk.Cardiovascular) {
	c.optionalRange("cholesterol_ratio", cv.CholesterolRatio, MinCholRatio, MaxCholRatio)
	c.optionalRange("systolic_bp", cv.SystolicBP, MinSystolicBP, MaxSystolicBP)
}

func (c *collector) lifestyle(l *risk.Lifestyle) {
	if l.Smoking != "" && !slices.Contains(risk.SmokingStatuses, l.Smoking) {
		c.add("smoking", fmt.Sprintf("unsupported smoking status '%s'", l.Smoking))
	}
	if !(l.AlcoholPerWeek >= 0 && l.AlcoholPerWeek <= MaxAlcohol) {
		c.add("alcohol_per_week", fmt.Sprintf("must be between 0 and %g", MaxAlcohol))
	}
	c.intRange("activity_minutes", l.ActivityMinutes, 0, MaxActivityMins)
	if l.Diet != "" && !slices.Contains(risk.Diets, l.Diet) {
		c.add("diet", fmt.Sprintf("unsupported diet '%s'", l.Diet))
	}
}
