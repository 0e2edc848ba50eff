package recommend

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Recommender evaluates an ordered rule table once per assessment.
type Recommender struct {
	rules []Rule
}

func NewRecommender(rules []Rule) *Recommender {
	return &Recommender{rules: rules}
}

// Default builds a Recommender from the built-in rule table.
func Default() (*Recommender, error) {
	return Load(defaultRules)
}

// LoadFromFile builds a Recommender from a YAML rule file.
func LoadFromFile(file string) (*Recommender, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return Load(content)
}

// Load parses a YAML list of rules and compiles every condition:
//
//   - id: dense-breast
//     when: denseBreast
//     then:
//     - Ask about supplemental ultrasound for dense breast tissue
func Load(content []byte) (*Recommender, error) {
	rules := []Rule{}
	if err := yaml.Unmarshal(content, &rules); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	env, err := NewFactsEnv()
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for i := range rules {
		if rules[i].ID == "" {
			return nil, fmt.Errorf("rule #%d: id must be specified", i)
		}
		if seen[rules[i].ID] {
			return nil, fmt.Errorf("rule %s: duplicate id", rules[i].ID)
		}
		seen[rules[i].ID] = true
		if rules[i].When == "" {
			return nil, errors.New("rule " + rules[i].ID + ": condition must be specified")
		}
		if err := rules[i].Init(env); err != nil {
			return nil, err
		}
	}
	return NewRecommender(rules), nil
}

// Recommend evaluates every rule in order and returns the union of their
// recommendations with duplicates removed, keeping first occurrence.
// A rule that fails to evaluate is logged and skipped.
func (r *Recommender) Recommend(facts Facts) []string {
	seen := map[string]bool{}
	out := make([]string, 0)
	for i := range r.rules {
		rule := &r.rules[i]
		matched, err := rule.Eval(facts)
		if err != nil {
			slog.Error("recommendation rule eval", "error", err, "rule", rule.ID)
			continue
		}
		if !matched {
			continue
		}
		for _, rec := range rule.Then {
			if !seen[rec] {
				seen[rec] = true
				out = append(out, rec)
			}
		}
	}
	return out
}

// Len returns the number of rules in the table.
func (r *Recommender) Len() int {
	return len(r.rules)
}
