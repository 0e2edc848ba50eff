package risk

import "strings"

// Race is the closed set of ancestry categories accepted by the calculators.
type Race string

const (
	RaceWhite           Race = "white"
	RaceBlack           Race = "black"
	RaceHispanic        Race = "hispanic"
	RaceAsian           Race = "asian"
	RaceSouthAsian      Race = "south_asian"
	RaceAshkenaziJewish Race = "ashkenazi_jewish"
	RaceNativeAmerican  Race = "native_american"
	RaceOther           Race = "other"
)

// Races lists every accepted ancestry category.
var Races = []Race{
	RaceWhite, RaceBlack, RaceHispanic, RaceAsian,
	RaceSouthAsian, RaceAshkenaziJewish, RaceNativeAmerican, RaceOther,
}

type Sex string

const (
	SexFemale Sex = "female"
	SexMale   Sex = "male"
)

// GeneStatus is the reported result of a genetic test for one gene.
type GeneStatus string

const (
	GenePathogenic GeneStatus = "pathogenic"
	GeneNegative   GeneStatus = "negative"
	GeneUnknown    GeneStatus = "unknown"
)

// Density is the BI-RADS mammographic density category, A through D.
type Density string

const (
	DensityFatty         Density = "almost_entirely_fatty"
	DensityScattered     Density = "scattered_fibroglandular"
	DensityHeterogeneous Density = "heterogeneously_dense"
	DensityExtreme       Density = "extremely_dense"
)

// Densities lists density categories in increasing order.
var Densities = []Density{DensityFatty, DensityScattered, DensityHeterogeneous, DensityExtreme}

type SmokingStatus string

const (
	SmokingNever    SmokingStatus = "never"
	SmokingFormer   SmokingStatus = "former"
	SmokingLight    SmokingStatus = "light"
	SmokingModerate SmokingStatus = "moderate"
	SmokingHeavy    SmokingStatus = "heavy"
)

var SmokingStatuses = []SmokingStatus{SmokingNever, SmokingFormer, SmokingLight, SmokingModerate, SmokingHeavy}

// Current reports whether the status describes an active smoker.
func (s SmokingStatus) Current() bool {
	return s == SmokingLight || s == SmokingModerate || s == SmokingHeavy
}

// Level is a coarse three-step rating used by diet, exposure and psychosocial fields.
type Level string

const (
	LevelNone     Level = "none"
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

var Levels = []Level{LevelNone, LevelLow, LevelModerate, LevelHigh}

type Diet string

const (
	DietPoor    Diet = "poor"
	DietAverage Diet = "average"
	DietGood    Diet = "good"
)

var Diets = []Diet{DietPoor, DietAverage, DietGood}

// RiskInput is the complete, typed record supplied by the form layer.
// Optional blocks are nil when the user did not provide them.
type RiskInput struct {
	Personal      Personal              `json:"personal"`
	Medical       *MedicalHistory       `json:"medical_history,omitempty"`
	Family        *FamilyHistory        `json:"family_history,omitempty"`
	Cardio        *Cardiovascular       `json:"cardiovascular,omitempty"`
	Lifestyle     *Lifestyle            `json:"lifestyle,omitempty"`
	Genetic       map[string]GeneStatus `json:"genetic,omitempty"`
	Environmental *Environmental        `json:"environmental,omitempty"`
	Psychosocial  *Psychosocial         `json:"psychosocial,omitempty"`
	Biomarkers    *Biomarkers           `json:"biomarkers,omitempty"`
}

type Personal struct {
	Age      int      `json:"age"`
	Sex      Sex      `json:"sex,omitempty"`
	Race     Race     `json:"race"`
	HeightCm *float64 `json:"height_cm,omitempty"`
	WeightKg *float64 `json:"weight_kg,omitempty"`
}

type MedicalHistory struct {
	MenarcheAge *int `json:"menarche_age,omitempty"`
	// FirstBirthAge is nil for nulliparous patients.
	FirstBirthAge       *int    `json:"first_birth_age,omitempty"`
	BiopsyCount         int     `json:"biopsy_count"`
	AtypicalHyperplasia bool    `json:"atypical_hyperplasia"`
	LCIS                bool    `json:"lcis"`
	Density             Density `json:"density,omitempty"`
	HormoneTherapy      bool    `json:"hormone_therapy"`
}

type FamilyHistory struct {
	FirstDegreeRelatives int  `json:"first_degree_relatives"`
	BreastCancer         bool `json:"family_history_breast"`
	OvarianCancer        bool `json:"family_history_ovarian"`
	CardiovascularEvent  bool `json:"family_history_cvd"`
	BRCA1Mutation        bool `json:"brca1_mutation"`
	BRCA2Mutation        bool `json:"brca2_mutation"`
}

type Cardiovascular struct {
	Diabetes             bool     `json:"diabetes"`
	PriorCardiacEvent    bool     `json:"prior_cardiac_event"`
	ChronicKidneyDisease bool     `json:"chronic_kidney_disease"`
	AtrialFibrillation   bool     `json:"atrial_fibrillation"`
	RheumatoidArthritis  bool     `json:"rheumatoid_arthritis"`
	BPTreatment          bool     `json:"bp_treatment"`
	CholesterolRatio     *float64 `json:"cholesterol_ratio,omitempty"`
	SystolicBP           *float64 `json:"systolic_bp,omitempty"`
}

type Lifestyle struct {
	Smoking         SmokingStatus `json:"smoking,omitempty"`
	AlcoholPerWeek  float64       `json:"alcohol_per_week"`
	ActivityMinutes int           `json:"activity_minutes"`
	Diet            Diet          `json:"diet,omitempty"`
}

type Environmental struct {
	AirQualityIndex *float64 `json:"air_quality_index,omitempty"`
	ToxinExposure   Level    `json:"toxin_exposure,omitempty"`
}

type Psychosocial struct {
	Stress        Level    `json:"stress,omitempty"`
	SleepHours    *float64 `json:"sleep_hours,omitempty"`
	SocialSupport Level    `json:"social_support,omitempty"`
}

// Biomarkers holds laboratory values; any field may be absent.
type Biomarkers struct {
	CRP             *float64 `json:"crp,omitempty"`
	IL6             *float64 `json:"il6,omitempty"`
	Malondialdehyde *float64 `json:"malondialdehyde,omitempty"`
	EightOHdG       *float64 `json:"eight_ohdg,omitempty"`
	Estradiol       *float64 `json:"estradiol,omitempty"`
	IGF1            *float64 `json:"igf1,omitempty"`
}

// Valid reports whether r belongs to the accepted ancestry set.
func (r Race) Valid() bool {
	for _, v := range Races {
		if v == r {
			return true
		}
	}
	return false
}

// Rank returns the zero-based BI-RADS position of d, or -1 when unknown.
func (d Density) Rank() int {
	for i, v := range Densities {
		if v == d {
			return i
		}
	}
	return -1
}

// BMI computes body mass index when both height and weight are present.
func (in *RiskInput) BMI() (float64, bool) {
	h, w := in.Personal.HeightCm, in.Personal.WeightKg
	if h == nil || w == nil || *h <= 0 {
		return 0, false
	}
	m := *h / 100
	return *w / (m * m), true
}

// MutationPositive reports a pathogenic result for gene, either from the
// family-history flags or from the genetic test block.
func (in *RiskInput) MutationPositive(gene string) bool {
	gene = strings.ToUpper(gene)
	if in.Family != nil {
		switch gene {
		case "BRCA1":
			if in.Family.BRCA1Mutation {
				return true
			}
		case "BRCA2":
			if in.Family.BRCA2Mutation {
				return true
			}
		}
	}
	for name, status := range in.Genetic {
		if strings.ToUpper(name) == gene && status == GenePathogenic {
			return true
		}
	}
	return false
}

// AnyMutationPositive reports whether any gene in the input is pathogenic.
func (in *RiskInput) AnyMutationPositive() bool {
	if in.Family != nil && (in.Family.BRCA1Mutation || in.Family.BRCA2Mutation) {
		return true
	}
	for _, status := range in.Genetic {
		if status == GenePathogenic {
			return true
		}
	}
	return false
}

// Relatives returns the first-degree relative count, zero without a family block.
func (in *RiskInput) Relatives() int {
	if in.Family == nil {
		return 0
	}
	return in.Family.FirstDegreeRelatives
}
