package recommend

import (
	"riskcalc/internal/risk"

	"github.com/google/cel-go/cel"
)

// Facts are the values a recommendation condition may reference.
type Facts struct {
	Model                 risk.ModelID
	Category              risk.Category
	FiveYearRisk          float64
	LifetimeRisk          float64
	RelativeRisk          float64
	Age                   int
	Relatives             int
	BMI                   float64
	DenseBreast           bool
	MutationPositive      bool
	ElevatedBloodPressure bool
	Smoker                bool
	Diabetes              bool
}

// ElevatedSystolicBP is the reading from which blood pressure counts as elevated.
const ElevatedSystolicBP = 140.0

// NewFacts derives rule facts from the input and the categorized result.
func NewFacts(model risk.ModelID, in *risk.RiskInput, res *risk.RiskResult) Facts {
	f := Facts{
		Model:            model,
		Category:         res.Category,
		FiveYearRisk:     res.FiveYearRisk,
		LifetimeRisk:     res.LifetimeRisk,
		RelativeRisk:     res.RelativeRisk,
		Age:              in.Personal.Age,
		Relatives:        in.Relatives(),
		MutationPositive: in.AnyMutationPositive(),
	}
	if bmi, ok := in.BMI(); ok {
		f.BMI = bmi
	}
	if m := in.Medical; m != nil {
		f.DenseBreast = m.Density == risk.DensityHeterogeneous || m.Density == risk.DensityExtreme
	}
	if c := in.Cardio; c != nil {
		f.ElevatedBloodPressure = c.BPTreatment || (c.SystolicBP != nil && *c.SystolicBP >= ElevatedSystolicBP)
		f.Diabetes = c.Diabetes
	}
	if l := in.Lifestyle; l != nil {
		f.Smoker = l.Smoking.Current()
	}
	return f
}

func (f Facts) activation() map[string]any {
	return map[string]any{
		"model":                 string(f.Model),
		"category":              f.Category.String(),
		"categoryRank":          int64(f.Category),
		"fiveYearRisk":          f.FiveYearRisk,
		"lifetimeRisk":          f.LifetimeRisk,
		"relativeRisk":          f.RelativeRisk,
		"age":                   int64(f.Age),
		"relatives":             int64(f.Relatives),
		"bmi":                   f.BMI,
		"denseBreast":           f.DenseBreast,
		"mutationPositive":      f.MutationPositive,
		"elevatedBloodPressure": f.ElevatedBloodPressure,
		"smoker":                f.Smoker,
		"diabetes":              f.Diabetes,
	}
}

// NewFactsEnv declares every Facts variable for CEL type checking.
func NewFactsEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("model", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("categoryRank", cel.IntType),
		cel.Variable("fiveYearRisk", cel.DoubleType),
		cel.Variable("lifetimeRisk", cel.DoubleType),
		cel.Variable("relativeRisk", cel.DoubleType),
		cel.Variable("age", cel.IntType),
		cel.Variable("relatives", cel.IntType),
		cel.Variable("bmi", cel.DoubleType),
		cel.Variable("denseBreast", cel.BoolType),
		cel.Variable("mutationPositive", cel.BoolType),
		cel.Variable("elevatedBloodPressure", cel.BoolType),
		cel.Variable("smoker", cel.BoolType),
		cel.Variable("diabetes", cel.BoolType),
	)
}
