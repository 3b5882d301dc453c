package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"quantcore/internal/risk"
	"quantcore/internal/strategy"
)

// Preset is a named strategy configuration entry in YAML.
type Preset struct {
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	Parameters map[string]any `yaml:"parameters"`
}

// StrategiesFile is the top-level YAML structure.
type StrategiesFile struct {
	Watchlist []string        `yaml:"watchlist"`
	Default   string          `yaml:"default"`
	Presets   []Preset        `yaml:"presets"`
	Risk      risk.Parameters `yaml:"risk"`
}

// LoadStrategies reads the strategies file. A missing file is not an
// error; built-in defaults are returned instead.
func LoadStrategies(path string) (*StrategiesFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaultStrategies(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read strategies file: %w", err)
	}

	var file StrategiesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse strategies file: %w", err)
	}

	if file.Risk == (risk.Parameters{}) {
		file.Risk = risk.DefaultParameters()
	}
	if err := file.Risk.Validate(); err != nil {
		return nil, fmt.Errorf("risk parameters: %w", err)
	}
	if len(file.Watchlist) == 0 {
		file.Watchlist = defaultStrategies().Watchlist
	}
	if file.Default == "" {
		file.Default = strategy.TypeSMACross
	}
	return &file, nil
}

// DefaultConfig resolves the file's default strategy into a runnable
// configuration, falling back to the preset matching the default type.
func (f *StrategiesFile) DefaultConfig() strategy.Config {
	for _, p := range f.Presets {
		if p.Name == f.Default || p.Type == f.Default {
			return strategy.Config{Type: p.Type, Parameters: p.Parameters}
		}
	}
	return strategy.Config{Type: f.Default}
}

func defaultStrategies() *StrategiesFile {
	return &StrategiesFile{
		Watchlist: []string{"AAPL", "MSFT", "GOOGL"},
		Default:   strategy.TypeSMACross,
		Risk:      risk.DefaultParameters(),
	}
}
