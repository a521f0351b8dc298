package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ObjectionSignal maps a canonical label to the note phrases that indicate it
type ObjectionSignal struct {
	Label   string   `yaml:"label"`
	Phrases []string `yaml:"phrases"`
}

// SignalsConfig is the objection-signal phrase list scanned over completion notes
type SignalsConfig struct {
	Signals []ObjectionSignal `yaml:"signals"`
}

// DefaultSignals returns the built-in objection-signal list. Used when no
// SIGNALS_FILE is configured.
func DefaultSignals() *SignalsConfig {
	return &SignalsConfig{
		Signals: []ObjectionSignal{
			{Label: "price objection", Phrases: []string{"too expensive", "price is", "over budget", "budget", "costs too much", "cheaper"}},
			{Label: "competitor mention", Phrases: []string{"competitor", "already using", "already have a", "other vendor", "switching from"}},
			{Label: "no interest", Phrases: []string{"not interested", "no interest", "don't need", "do not need"}},
			{Label: "stalling", Phrases: []string{"think about it", "call back later", "get back to you", "not the right time", "maybe next quarter"}},
			{Label: "no authority", Phrases: []string{"not the decision maker", "ask my boss", "need approval", "check with my manager"}},
			{Label: "brush-off", Phrases: []string{"send me an email", "send some information", "just send", "no time"}},
			{Label: "trust concern", Phrases: []string{"never heard of", "too risky", "need references", "proof"}},
		},
	}
}

// LoadSignals loads the objection-signal list from a YAML file, falling back
// to the built-in defaults when path is empty.
func LoadSignals(path string) (*SignalsConfig, error) {
	if path == "" {
		return DefaultSignals(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signals file: %w", err)
	}

	var cfg SignalsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse signals YAML: %w", err)
	}
	if len(cfg.Signals) == 0 {
		return DefaultSignals(), nil
	}

	return &cfg, nil
}
