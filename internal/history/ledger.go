package history

import (
	"log/slog"

	"riskcalc/internal/risk"
	"riskcalc/internal/utils"
)

const DefaultLength = 50

// Store is the durable side of the ledger.
type Store interface {
	Save(res risk.RiskResult) error
	// Load returns at most limit of the most recent results, oldest first.
	Load(limit int) ([]risk.RiskResult, error)
	Clear() error
	Close() error
}

// Ledger is an append-only log of the most recent results. It lives
// independently of the result cache. With a Store attached every append is
// also persisted and prior entries are reloaded on construction.
type Ledger struct {
	buffer *utils.RingBuffer[risk.RiskResult]
	store  Store
}

// NewLedger creates a ledger keeping length results. store may be nil, in
// which case nothing is persisted. Reload failures start the ledger empty.
func NewLedger(length int, store Store) *Ledger {
	if length <= 0 {
		length = DefaultLength
	}
	l := &Ledger{
		buffer: utils.NewRingBuffer[risk.RiskResult](length),
		store:  store,
	}

	if store != nil {
		prior, err := store.Load(length)
		if err != nil {
			slog.Error("Unable to reload history", "error", err)
			return l
		}
		for _, res := range prior {
			l.buffer.Push(res)
		}
		slog.Debug("History reloaded", "entries", len(prior))
	}
	return l
}

// Append records a copy of res, evicting the oldest entry when full.
// Persistence errors are logged and otherwise ignored.
func (l *Ledger) Append(res risk.RiskResult) {
	res = res.Clone()
	l.buffer.Push(res)

	if l.store != nil {
		if err := l.store.Save(res); err != nil {
			slog.Warn("Unable to persist history record", "error", err, "id", res.ID)
		}
	}
}

// List returns copies of the recorded results, most recent first.
func (l *Ledger) List() []risk.RiskResult {
	results := l.buffer.Reversed()
	for i := range results {
		results[i] = results[i].Clone()
	}
	return results
}

// Clear removes every entry from memory and from the store.
func (l *Ledger) Clear() {
	l.buffer.Clear()
	if l.store != nil {
		if err := l.store.Clear(); err != nil {
			slog.Warn("Unable to clear persisted history", "error", err)
		}
	}
}

func (l *Ledger) Len() int {
	return l.buffer.Len()
}

func (l *Ledger) Cap() int {
	return l.buffer.Cap()
}

// AutoSave reports whether appends are persisted.
func (l *Ledger) AutoSave() bool {
	return l.store != nil
}

// Close releases the store.
func (l *Ledger) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}
