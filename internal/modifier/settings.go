package modifier

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed modifiers.yaml
var defaultSettings []byte

// Settings parameterize the modifier stages.
type Settings struct {
	FinalCeiling float64             `yaml:"final_ceiling"`
	Biomarker    BiomarkerSettings   `yaml:"biomarker"`
	Environment  EnvironmentSettings `yaml:"environment"`
}

type BiomarkerSettings struct {
	// Max caps the combined biomarker multiplier.
	Max     float64  `yaml:"max"`
	Markers []Marker `yaml:"markers"`
}

type EnvironmentSettings struct {
	// Min and Max clamp the environmental multiplier.
	Min     float64            `yaml:"min"`
	Max     float64            `yaml:"max"`
	Weights EnvironmentWeights `yaml:"weights"`
}

// DefaultSettings returns the built-in modifier settings.
func DefaultSettings() (Settings, error) {
	return LoadSettings(defaultSettings)
}

// LoadSettingsFromFile reads and validates modifier settings from a YAML file.
func LoadSettingsFromFile(file string) (Settings, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return Settings{}, err
	}
	return LoadSettings(content)
}

// LoadSettings parses and validates a modifier settings document.
func LoadSettings(content []byte) (Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(content, &s); err != nil {
		return Settings{}, fmt.Errorf("parse modifier settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("modifier settings: %w", err)
	}
	return s, nil
}

// Validate checks the bounds and binds every marker to its biomarker.
func (s *Settings) Validate() error {
	if s.FinalCeiling <= 0 || s.FinalCeiling > 100 {
		return errors.New("final_ceiling must be in (0, 100]")
	}
	if s.Biomarker.Max < 1 {
		return errors.New("biomarker.max must be >= 1")
	}
	if s.Environment.Min <= 0 || s.Environment.Min > 1 || s.Environment.Max < 1 {
		return errors.New("environment: min must be in (0, 1] and max >= 1")
	}

	names := map[string]bool{}
	for i := range s.Biomarker.Markers {
		m := &s.Biomarker.Markers[i]
		if names[m.Name] {
			return fmt.Errorf("marker %s: duplicate", m.Name)
		}
		names[m.Name] = true
		if err := m.bind(); err != nil {
			return err
		}
	}
	return s.Environment.Weights.validate()
}
