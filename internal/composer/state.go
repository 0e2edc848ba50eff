package composer

import "fmt"

// State is a step of the assessment pipeline.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateScoring
	StateModifying
	StateCategorizing
	StateRecommending
	StateComplete
	StateFailed
)

var stateNames = [...]string{
	"idle", "validating", "scoring", "modifying",
	"categorizing", "recommending", "complete", "failed",
}

func (s State) String() string {
	if s < StateIdle || s > StateFailed {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// next lists the legal successors of each state. Complete is reachable from
// Validating on a cache hit.
var next = map[State][]State{
	StateIdle:          {StateValidating, StateFailed},
	StateValidating:    {StateScoring, StateComplete, StateFailed},
	StateScoring:       {StateModifying, StateFailed},
	StateModifying:     {StateCategorizing, StateFailed},
	StateCategorizing:  {StateRecommending, StateFailed},
	StateRecommending:  {StateComplete, StateFailed},
	StateComplete:      nil,
	StateFailed:        nil,
}

// Observer is notified of every transition of an assessment.
type Observer func(from, to State)

type machine struct {
	state    State
	observer Observer
}

func (m *machine) to(s State) {
	legal := false
	for _, candidate := range next[m.state] {
		if candidate == s {
			legal = true
			break
		}
	}
	if !legal {
		panic(fmt.Sprintf("illegal transition %s -> %s", m.state, s))
	}
	if m.observer != nil {
		m.observer(m.state, s)
	}
	m.state = s
}
