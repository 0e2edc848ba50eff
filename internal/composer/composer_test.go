package composer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"riskcalc/internal/cache"
	"riskcalc/internal/history"
	"riskcalc/internal/modifier"
	"riskcalc/internal/recommend"
	"riskcalc/internal/risk"
	"riskcalc/internal/score"
	"riskcalc/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	composer *Composer
	cache    *cache.ResultCache
	history  *history.Ledger
	clock    *fakeClock
	states   []State
}

func newFixture(t *testing.T, tables score.Tables, historyLength int) *fixture {
	t.Helper()
	return newFixtureModifying(t, tables, historyLength, risk.ModelGail)
}

func newFixtureModifying(t *testing.T, tables score.Tables, historyLength int, modified ...risk.ModelID) *fixture {
	t.Helper()
	if tables == nil {
		var err error
		tables, err = score.DefaultTables()
		require.NoError(t, err)
	}
	engine, err := score.NewEngine(tables)
	require.NoError(t, err)
	recommender, err := recommend.Default()
	require.NoError(t, err)
	results, err := cache.NewResultCache(cache.DefaultSize, cache.DefaultTTL)
	require.NoError(t, err)

	f := &fixture{
		cache:   results,
		history: history.NewLedger(historyLength, nil),
		clock:   &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	results.SetClock(f.clock.now)

	f.composer, err = NewComposer(Components{
		Validator:      validation.NewValidator(),
		Engine:         engine,
		Recommender:    recommender,
		Cache:          results,
		History:        f.history,
		ModifiedModels: modified,
		Observer:       func(_, to State) { f.states = append(f.states, to) },
	})
	require.NoError(t, err)
	f.composer.now = f.clock.now

	ids := 0
	f.composer.newID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	return f
}

func gailInput() *risk.RiskInput {
	return &risk.RiskInput{
		Personal: risk.Personal{Age: 50, Sex: risk.SexFemale, Race: risk.RaceWhite},
		Medical:  &risk.MedicalHistory{MenarcheAge: intPtr(12), FirstBirthAge: intPtr(25)},
		Family:   &risk.FamilyHistory{FirstDegreeRelatives: 1},
	}
}

func TestNewComposer_RequiresCollaborators(t *testing.T) {
	_, err := NewComposer(Components{})
	assert.Error(t, err)
}

func TestComposer_Assess_Gail(t *testing.T) {
	f := newFixture(t, nil, 0)

	res, err := f.composer.Assess(context.Background(), risk.ModelGail, gailInput(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "id-1", res.ID)
	assert.Greater(t, res.FiveYearRisk, 0.0)
	assert.LessOrEqual(t, res.FiveYearRisk, res.LifetimeRisk)
	assert.Greater(t, res.RelativeRisk, 1.0, "one affected relative raises relative risk")
	assert.NotEmpty(t, res.Breakdown)
	assert.NotEmpty(t, res.Recommendations)
	assert.Equal(t, risk.ModelGail, res.Metadata.Model)
	assert.Equal(t, f.clock.t, res.Metadata.ComputedAt)
	assert.InDelta(t, 0.7, res.Metadata.Confidence, 1e-9)
	assert.Len(t, res.Metadata.InputHash, 64)

	tables, _ := score.DefaultTables()
	assert.Equal(t, tables[risk.ModelGail].Thresholds.Categorize(res.FiveYearRisk), res.Category)

	assert.Equal(t, []State{
		StateValidating, StateScoring, StateModifying,
		StateCategorizing, StateRecommending, StateComplete,
	}, f.states)
}

func TestComposer_Assess_CacheHitIsIdentical(t *testing.T) {
	f := newFixture(t, nil, 0)
	ctx := context.Background()

	first, err := f.composer.Assess(ctx, risk.ModelGail, gailInput(), DefaultOptions())
	require.NoError(t, err)

	f.clock.advance(10 * time.Minute)
	f.states = nil

	second, err := f.composer.Assess(ctx, risk.ModelGail, gailInput(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Metadata.ComputedAt, second.Metadata.ComputedAt)
	assert.Equal(t, []State{StateValidating, StateComplete}, f.states)
	assert.Equal(t, 1, f.history.Len(), "a cache hit is not recorded again")
	assert.Equal(t, int64(1), f.composer.CacheStats().Hits)
}

func TestComposer_Assess_CacheExpiry(t *testing.T) {
	f := newFixture(t, nil, 0)
	ctx := context.Background()

	first, err := f.composer.Assess(ctx, risk.ModelGail, gailInput(), DefaultOptions())
	require.NoError(t, err)

	f.clock.advance(cache.DefaultTTL + time.Second)

	second, err := f.composer.Assess(ctx, risk.ModelGail, gailInput(), DefaultOptions())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, second.Metadata.ComputedAt.After(first.Metadata.ComputedAt))
	assert.InDelta(t, first.FiveYearRisk, second.FiveYearRisk, 1e-12)
}

func TestComposer_Assess_WithoutCache(t *testing.T) {
	f := newFixture(t, nil, 0)
	ctx := context.Background()
	opts := Options{UseCache: false, PersistHistory: true}

	first, err := f.composer.Assess(ctx, risk.ModelGail, gailInput(), opts)
	require.NoError(t, err)
	second, err := f.composer.Assess(ctx, risk.ModelGail, gailInput(), opts)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 0, f.cache.Len())
	assert.Equal(t, 2, f.history.Len())
}

func TestComposer_Assess_WithoutHistory(t *testing.T) {
	f := newFixture(t, nil, 0)

	_, err := f.composer.Assess(context.Background(), risk.ModelGail, gailInput(), Options{UseCache: true})
	require.NoError(t, err)
	assert.Empty(t, f.composer.History())
	assert.Equal(t, 1, f.cache.Len())
}

func TestComposer_Assess_InvalidInputLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, nil, 0)
	in := gailInput()
	in.Personal.Age = 10

	res, err := f.composer.Assess(context.Background(), risk.ModelGail, in, DefaultOptions())
	require.Error(t, err)
	assert.Empty(t, res.ID)

	var verr *risk.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("age"))
	assert.False(t, errors.Is(err, risk.ErrCalculationFailed))

	assert.Equal(t, 0, f.cache.Len())
	assert.Equal(t, 0, f.history.Len())
	assert.Equal(t, []State{StateValidating, StateFailed}, f.states)
}

func TestComposer_Assess_UnknownModel(t *testing.T) {
	f := newFixture(t, nil, 0)

	_, err := f.composer.Assess(context.Background(), "tyrer-cuzick", gailInput(), DefaultOptions())
	assert.ErrorIs(t, err, risk.ErrUnknownModel)
	assert.Equal(t, []State{StateFailed}, f.states)
}

func TestComposer_Assess_ComputationFailure(t *testing.T) {
	tables, err := score.DefaultTables()
	require.NoError(t, err)
	for i, factor := range tables[risk.ModelGail].Factors {
		if factor.Name == "race" {
			delete(tables[risk.ModelGail].Factors[i].Levels, string(risk.RaceWhite))
		}
	}
	f := newFixture(t, tables, 0)

	_, err = f.composer.Assess(context.Background(), risk.ModelGail, gailInput(), DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, risk.ErrCalculationFailed)

	var cerr *risk.ComputationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "scoring", cerr.Stage)

	assert.Equal(t, 0, f.cache.Len())
	assert.Equal(t, 0, f.history.Len())
	assert.Equal(t, []State{StateValidating, StateScoring, StateFailed}, f.states)
}

func TestComposer_Assess_HistoryIsBounded(t *testing.T) {
	f := newFixture(t, nil, 3)
	ctx := context.Background()

	for age := 40; age < 45; age++ {
		in := gailInput()
		in.Personal.Age = age
		_, err := f.composer.Assess(ctx, risk.ModelGail, in, DefaultOptions())
		require.NoError(t, err)
	}

	list := f.composer.History()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"id-5", "id-4", "id-3"}, []string{list[0].ID, list[1].ID, list[2].ID})

	f.composer.ClearHistory()
	assert.Empty(t, f.composer.History())
}

func TestComposer_History_IsReadOnly(t *testing.T) {
	f := newFixture(t, nil, 0)
	_, err := f.composer.Assess(context.Background(), risk.ModelGail, gailInput(), DefaultOptions())
	require.NoError(t, err)

	listed := f.composer.History()
	require.NotEmpty(t, listed[0].Breakdown)
	stored := listed[0].Breakdown[0].Value
	listed[0].Breakdown[0].Value = 999

	assert.Equal(t, stored, f.composer.History()[0].Breakdown[0].Value)
}

func TestComposer_Assess_ModifiersOnlyForModifiedModels(t *testing.T) {
	f := newFixture(t, nil, 0)
	ctx := context.Background()
	opts := Options{}

	plain := gailInput()
	marked := gailInput()
	marked.Biomarkers = &risk.Biomarkers{CRP: floatPtr(6)}

	base, err := f.composer.Assess(ctx, risk.ModelGail, plain, opts)
	require.NoError(t, err)
	modified, err := f.composer.Assess(ctx, risk.ModelGail, marked, opts)
	require.NoError(t, err)
	assert.InDelta(t, base.FiveYearRisk*1.2, modified.FiveYearRisk, 1e-9)

	names := make([]string, 0, len(modified.Breakdown))
	for _, c := range modified.Breakdown {
		names = append(names, c.Factor)
	}
	assert.Contains(t, names, "biomarker_modifier")

	bcscPlain, err := f.composer.Assess(ctx, risk.ModelBCSC, plain, opts)
	require.NoError(t, err)
	bcscMarked, err := f.composer.Assess(ctx, risk.ModelBCSC, marked, opts)
	require.NoError(t, err)
	assert.Equal(t, bcscPlain.FiveYearRisk, bcscMarked.FiveYearRisk)
}

func extremeInput() *risk.RiskInput {
	in := gailInput()
	in.Personal.Age = 75
	in.Personal.Race = risk.RaceAshkenaziJewish
	in.Medical = &risk.MedicalHistory{
		MenarcheAge:         intPtr(9),
		BiopsyCount:         3,
		AtypicalHyperplasia: true,
		LCIS:                true,
		Density:             risk.DensityExtreme,
		HormoneTherapy:      true,
	}
	in.Family = &risk.FamilyHistory{
		FirstDegreeRelatives: 3,
		BreastCancer:         true,
		OvarianCancer:        true,
		CardiovascularEvent:  true,
		BRCA1Mutation:        true,
	}
	in.Cardio = &risk.Cardiovascular{
		Diabetes:             true,
		PriorCardiacEvent:    true,
		ChronicKidneyDisease: true,
		AtrialFibrillation:   true,
		BPTreatment:          true,
		CholesterolRatio:     floatPtr(9),
		SystolicBP:           floatPtr(200),
	}
	in.Biomarkers = &risk.Biomarkers{CRP: floatPtr(9), IL6: floatPtr(9), Estradiol: floatPtr(90), IGF1: floatPtr(400)}
	in.Environmental = &risk.Environmental{AirQualityIndex: floatPtr(400), ToxinExposure: risk.LevelHigh}
	in.Lifestyle = &risk.Lifestyle{Smoking: risk.SmokingHeavy, AlcoholPerWeek: 30}
	return in
}

func TestComposer_Assess_GailCeilingHoldsAfterModifiers(t *testing.T) {
	f := newFixture(t, nil, 0)

	res, err := f.composer.Assess(context.Background(), risk.ModelGail, extremeInput(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 15.0, res.FiveYearRisk)
	assert.Equal(t, 30.0, res.LifetimeRisk)
	assert.Equal(t, risk.CategoryVeryHigh, res.Category)
	assert.InDelta(t, 0.9, res.Metadata.Confidence, 1e-9)
}

func TestComposer_Assess_ModifiedResultsStayWithinModelCeilings(t *testing.T) {
	f := newFixtureModifying(t, nil, 0, risk.Models()...)
	tables, err := score.DefaultTables()
	require.NoError(t, err)
	chain, err := modifier.NewDefaultChain()
	require.NoError(t, err)

	for _, sex := range []risk.Sex{risk.SexFemale, risk.SexMale} {
		in := extremeInput()
		in.Personal.Sex = sex
		for _, model := range risk.Models() {
			t.Run(string(model)+"/"+string(sex), func(t *testing.T) {
				res, err := f.composer.Assess(context.Background(), model, in, Options{})
				require.NoError(t, err)

				table := tables[model]
				assert.LessOrEqual(t, res.FiveYearRisk, table.FiveYearCeiling)
				assert.LessOrEqual(t, res.FiveYearRisk, chain.Ceiling())
				assert.LessOrEqual(t, res.LifetimeRisk, table.LifetimeCeiling)
				assert.LessOrEqual(t, res.TenYearRisk, table.LifetimeCeiling)
				assert.LessOrEqual(t, res.FiveYearRisk, res.LifetimeRisk)
			})
		}
	}
}

func TestComposer_Assess_AllModels(t *testing.T) {
	f := newFixture(t, nil, 0)
	in := gailInput()
	in.Cardio = &risk.Cardiovascular{SystolicBP: floatPtr(150), CholesterolRatio: floatPtr(5)}

	for _, model := range risk.Models() {
		t.Run(string(model), func(t *testing.T) {
			res, err := f.composer.Assess(context.Background(), model, in, Options{})
			require.NoError(t, err)
			assert.LessOrEqual(t, res.FiveYearRisk, res.LifetimeRisk)
			assert.NotEmpty(t, res.Recommendations)
		})
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name string
		in   risk.RiskInput
		want float64
	}{
		{"core only", risk.RiskInput{}, 0.7},
		{"genetic", risk.RiskInput{Genetic: map[string]risk.GeneStatus{"brca1": risk.GeneNegative}}, 0.8},
		{"environment and lifestyle", risk.RiskInput{Environmental: &risk.Environmental{}, Lifestyle: &risk.Lifestyle{}}, 0.9},
		{"all blocks", risk.RiskInput{
			Genetic:       map[string]risk.GeneStatus{"brca2": risk.GenePathogenic},
			Environmental: &risk.Environmental{},
			Lifestyle:     &risk.Lifestyle{},
		}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Confidence(&tt.in), 1e-9)
		})
	}
}

func TestComposer_Models(t *testing.T) {
	f := newFixture(t, nil, 0)

	models := f.composer.Models()
	require.Len(t, models, 4)
	assert.Equal(t, risk.ModelGail, models[0].Model)
	assert.True(t, models[0].Modified)
	assert.False(t, models[1].Modified)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "modifying", StateModifying.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestMachine_IllegalTransitionPanics(t *testing.T) {
	m := &machine{}
	assert.Panics(t, func() { m.to(StateComplete) })
}
