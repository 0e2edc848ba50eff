package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"riskcalc/internal/archive"
	"riskcalc/internal/cache"
	"riskcalc/internal/history"
	"riskcalc/internal/modifier"
	"riskcalc/internal/recommend"
	"riskcalc/internal/risk"
	"riskcalc/internal/score"
	"riskcalc/internal/validation"

	"github.com/google/uuid"
)

// Options control the side effects of a single assessment.
type Options struct {
	// UseCache consults and fills the result cache.
	UseCache bool
	// PersistHistory appends the computed result to the history ledger.
	PersistHistory bool
}

func DefaultOptions() Options {
	return Options{UseCache: true, PersistHistory: true}
}

// Components are the collaborators of a Composer. Validator, Engine and
// Recommender are required; Cache and History may be nil to disable them.
type Components struct {
	Validator   *validation.Validator
	Engine      *score.Engine
	Chain       *modifier.Chain
	Recommender *recommend.Recommender
	Cache       *cache.ResultCache
	History     *history.Ledger
	Archive     archive.Sink
	// ModifiedModels run the biomarker and environmental stages.
	ModifiedModels []risk.ModelID
	// Observer, when set, sees every state transition.
	Observer Observer
}

// Composer runs validation, scoring, modification, categorization and
// recommendation for one model and input. It is safe for concurrent use;
// concurrent identical calls may both compute.
type Composer struct {
	validator   *validation.Validator
	engine      *score.Engine
	chain       *modifier.Chain
	recommender *recommend.Recommender
	cache       *cache.ResultCache
	history     *history.Ledger
	archive     archive.Sink
	modified    map[risk.ModelID]bool
	observer    Observer

	now   func() time.Time
	newID func() string
}

func NewComposer(c Components) (*Composer, error) {
	if c.Validator == nil || c.Engine == nil || c.Recommender == nil {
		return nil, errors.New("composer: validator, engine and recommender must be provided")
	}
	if c.Chain == nil {
		chain, err := modifier.NewDefaultChain()
		if err != nil {
			return nil, fmt.Errorf("composer: %w", err)
		}
		c.Chain = chain
	}
	if c.Archive == nil {
		c.Archive = archive.Discard{}
	}
	modified := make(map[risk.ModelID]bool, len(c.ModifiedModels))
	for _, m := range c.ModifiedModels {
		modified[m] = true
	}
	return &Composer{
		validator:   c.Validator,
		engine:      c.Engine,
		chain:       c.Chain,
		recommender: c.Recommender,
		cache:       c.Cache,
		history:     c.History,
		archive:     c.Archive,
		modified:    modified,
		observer:    c.Observer,
		now:         time.Now,
		newID:       uuid.NewString,
	}, nil
}

// Assess is the single entry point of the engine. It returns either a result,
// a *risk.ValidationError listing every input violation, risk.ErrUnknownModel,
// or an error matching risk.ErrCalculationFailed.
func (c *Composer) Assess(ctx context.Context, model risk.ModelID, in *risk.RiskInput, opts Options) (result risk.RiskResult, err error) {
	m := &machine{state: StateIdle, observer: c.observer}

	defer func() {
		if r := recover(); r != nil {
			err = c.fail(ctx, m, model, risk.NewComputationError(m.state.String(), fmt.Errorf("panic: %v", r)))
			result = risk.RiskResult{}
		}
	}()

	scorer, err := c.engine.Scorer(model)
	if err != nil {
		m.to(StateFailed)
		return risk.RiskResult{}, fmt.Errorf("%w: %s", err, model)
	}

	m.to(StateValidating)
	if verr := c.validator.Validate(model, in).Err(); verr != nil {
		m.to(StateFailed)
		slog.DebugContext(ctx, "Risk input rejected", "model", model, "error", verr)
		return risk.RiskResult{}, verr
	}

	hash, err := cache.Key(model, in)
	if err != nil {
		slog.WarnContext(ctx, "Unable to hash risk input", "model", model, "error", err)
	}
	useCache := opts.UseCache && c.cache != nil && hash != ""
	if useCache {
		if cached, found := c.cache.GetByKey(hash); found {
			m.to(StateComplete)
			slog.DebugContext(ctx, "Risk result served from cache", "model", model, "hash", hash)
			return cached, nil
		}
	}

	m.to(StateScoring)
	base, err := scorer.Score(in)
	if err != nil {
		return risk.RiskResult{}, c.fail(ctx, m, model, risk.NewComputationError("scoring", err))
	}

	m.to(StateModifying)
	table := scorer.Table()
	adjusted := base
	if c.modified[model] {
		adjusted = c.chain.Apply(base, in, table)
	}
	if err := checkBounds(adjusted); err != nil {
		return risk.RiskResult{}, c.fail(ctx, m, model, risk.NewComputationError("modifying", err))
	}

	m.to(StateCategorizing)
	result = risk.RiskResult{
		ID:           c.newID(),
		FiveYearRisk: adjusted.FiveYear,
		LifetimeRisk: adjusted.Lifetime,
		TenYearRisk:  adjusted.TenYear,
		RelativeRisk: adjusted.RelativeRisk,
		Category:     table.Thresholds.Categorize(adjusted.FiveYear),
		Breakdown:    adjusted.Breakdown,
		Metadata: risk.Metadata{
			Model:      model,
			ComputedAt: c.now(),
			Confidence: Confidence(in),
			InputHash:  hash,
		},
	}

	m.to(StateRecommending)
	result.Recommendations = c.recommender.Recommend(recommend.NewFacts(model, in, &result))

	m.to(StateComplete)
	if useCache {
		c.cache.PutByKey(hash, model, result)
	}
	if opts.PersistHistory && c.history != nil {
		c.history.Append(result)
	}
	c.archive.Append(model, in, result)

	slog.InfoContext(ctx, "Risk assessed",
		"model", model,
		"id", result.ID,
		"category", result.Category.String(),
		"five_year", result.FiveYearRisk,
	)
	return result.Clone(), nil
}

func (c *Composer) fail(ctx context.Context, m *machine, model risk.ModelID, cerr *risk.ComputationError) error {
	if m.state != StateFailed && m.state != StateComplete {
		m.to(StateFailed)
	}
	slog.ErrorContext(ctx, "Risk calculation failed", "model", model, "stage", cerr.Stage, "error", cerr.Err)
	return cerr
}

func checkBounds(s score.Score) error {
	for _, v := range []float64{s.FiveYear, s.Lifetime, s.TenYear, s.RelativeRisk} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("risk value %v out of domain", v)
		}
	}
	if s.FiveYear > s.Lifetime {
		return fmt.Errorf("five-year risk %v exceeds lifetime risk %v", s.FiveYear, s.Lifetime)
	}
	return nil
}

// Confidence grows with each optional block supplied: genetic,
// environmental and lifestyle.
func Confidence(in *risk.RiskInput) float64 {
	supplied := 0
	if len(in.Genetic) > 0 {
		supplied++
	}
	if in.Environmental != nil {
		supplied++
	}
	if in.Lifestyle != nil {
		supplied++
	}
	return float64(7+supplied) / 10
}

// History returns the ledger contents, most recent first.
func (c *Composer) History() []risk.RiskResult {
	if c.history == nil {
		return []risk.RiskResult{}
	}
	return c.history.List()
}

func (c *Composer) ClearHistory() {
	if c.history != nil {
		c.history.Clear()
	}
}

func (c *Composer) ClearCache() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// CacheStats reports zero counters when caching is disabled.
func (c *Composer) CacheStats() cache.Stats {
	if c.cache == nil {
		return cache.Stats{}
	}
	return c.cache.Stats()
}

// ModelInfo describes a model as exposed to the form layer.
type ModelInfo struct {
	Model           risk.ModelID    `json:"model"`
	Combine         score.Combine   `json:"combine"`
	Anchor          score.Anchor    `json:"anchor"`
	FiveYearCeiling float64         `json:"five_year_ceiling"`
	LifetimeCeiling float64         `json:"lifetime_ceiling"`
	Thresholds      risk.Thresholds `json:"thresholds"`
	Modified        bool            `json:"modified"`
}

func (c *Composer) Models() []ModelInfo {
	models := risk.Models()
	out := make([]ModelInfo, 0, len(models))
	for _, model := range models {
		s, err := c.engine.Scorer(model)
		if err != nil {
			continue
		}
		t := s.Table()
		out = append(out, ModelInfo{
			Model:           model,
			Combine:         t.Combine,
			Anchor:          t.Anchor,
			FiveYearCeiling: t.FiveYearCeiling,
			LifetimeCeiling: t.LifetimeCeiling,
			Thresholds:      t.Thresholds,
			Modified:        c.modified[model],
		})
	}
	return out
}
