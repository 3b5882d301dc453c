// Package strategy turns a price series plus strategy parameters into a
// directional regime per bar and the discrete trade events derived from
// regime changes. Generation is a pure function of its inputs: no I/O and
// no state carried between calls.
package strategy

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Regime is the directional bias a strategy assigns at a point in time.
type Regime int

const (
	Bearish Regime = -1
	Neutral Regime = 0
	Bullish Regime = 1
)

// Event is the discrete trade action derived from a regime change.
type Event int

const (
	EventSell Event = -2
	EventHold Event = 0
	EventBuy  Event = 2
)

// String returns BUY/SELL/HOLD for logging and persistence.
func (e Event) String() string {
	switch {
	case e > 0:
		return "BUY"
	case e < 0:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Point is one timestamped entry of a signal series.
type Point struct {
	Time   time.Time `json:"time"`
	Close  float64   `json:"close"`
	Regime Regime    `json:"regime"`
	Event  Event     `json:"event"`
}

// SignalSeries is the per-instrument output of signal generation, aligned
// 1:1 with the price series it was derived from.
type SignalSeries struct {
	Symbol string  `json:"symbol"`
	Points []Point `json:"points"`
}

// Last returns the most recent point; ok is false for an empty series.
func (s SignalSeries) Last() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Config selects a strategy type and carries its numeric parameters.
// Parameters use the same keys in YAML presets and API requests.
type Config struct {
	Type       string         `json:"type" yaml:"type"`
	Parameters map[string]any `json:"parameters" yaml:"parameters"`
}

// Strategy type identifiers.
const (
	TypeSMACross  = "sma_crossover"
	TypeRSI       = "rsi"
	TypeMACD      = "macd"
	TypeBollinger = "bollinger_bands"
)

// ConfigError reports an invalid strategy configuration. It is fatal:
// callers must surface it immediately and never retry.
type ConfigError struct {
	Type   string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("invalid strategy config: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s config: %s", e.Type, e.Reason)
}

// ErrInsufficientData marks a series too short for the strategy's warm-up
// window. Callers should skip the instrument and proceed with the rest.
var ErrInsufficientData = errors.New("insufficient price history")

// rule is the internal, validated form of a Config.
type rule interface {
	// warmup is the number of leading bars forced Neutral before the
	// strategy has enough history to hold an opinion.
	warmup() int
	// regimes computes the full-series directional bias from closes.
	// Entries inside the warm-up span are overwritten by the caller.
	regimes(closes []float64) []Regime
}

// decodeParams maps generic parameters onto a typed parameter struct.
func decodeParams(params map[string]any, dst any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// rule validates the config and builds the typed strategy rule.
func (c Config) rule() (rule, error) {
	switch c.Type {
	case TypeSMACross:
		var p SMACrossParams
		if err := decodeParams(c.Parameters, &p); err != nil {
			return nil, &ConfigError{Type: c.Type, Reason: err.Error()}
		}
		p.applyDefaults()
		return p.rule()
	case TypeRSI:
		var p RSIParams
		if err := decodeParams(c.Parameters, &p); err != nil {
			return nil, &ConfigError{Type: c.Type, Reason: err.Error()}
		}
		p.applyDefaults()
		return p.rule()
	case TypeMACD:
		var p MACDParams
		if err := decodeParams(c.Parameters, &p); err != nil {
			return nil, &ConfigError{Type: c.Type, Reason: err.Error()}
		}
		p.applyDefaults()
		return p.rule()
	case TypeBollinger:
		var p BollingerParams
		if err := decodeParams(c.Parameters, &p); err != nil {
			return nil, &ConfigError{Type: c.Type, Reason: err.Error()}
		}
		p.applyDefaults()
		return p.rule()
	default:
		return nil, &ConfigError{Reason: fmt.Sprintf("unknown strategy type %q", c.Type)}
	}
}

// Validate checks the config without generating anything.
func (c Config) Validate() error {
	_, err := c.rule()
	return err
}

// Description advertises a strategy type and its default parameters.
type Description struct {
	Type     string         `json:"type"`
	Name     string         `json:"name"`
	Defaults map[string]any `json:"defaults"`
}

// Available lists the supported strategy types with their defaults.
func Available() []Description {
	return []Description{
		{Type: TypeSMACross, Name: "Simple Moving Average Crossover", Defaults: map[string]any{
			"short_window": 20, "long_window": 50,
		}},
		{Type: TypeRSI, Name: "Relative Strength Index", Defaults: map[string]any{
			"window": 14, "overbought": 70, "oversold": 30,
		}},
		{Type: TypeMACD, Name: "MACD (Moving Average Convergence Divergence)", Defaults: map[string]any{
			"fast_period": 12, "slow_period": 26, "signal_period": 9,
		}},
		{Type: TypeBollinger, Name: "Bollinger Bands", Defaults: map[string]any{
			"window": 20, "num_std": 2.0,
		}},
	}
}
