package archive

import (
	"riskcalc/internal/risk"
)

// Sink receives every freshly computed assessment for durable storage
// outside the engine. Implementations must be safe for concurrent use and
// must not block the caller on storage failures.
type Sink interface {
	Append(model risk.ModelID, in *risk.RiskInput, res risk.RiskResult)
	Close() error
}

// Discard is a Sink that drops everything.
type Discard struct{}

func (Discard) Append(risk.ModelID, *risk.RiskInput, risk.RiskResult) {}

func (Discard) Close() error { return nil }
