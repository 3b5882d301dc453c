package strategy

import (
	"quantcore/internal/indicators"
)

// MACDParams configures the MACD trend strategy: Bullish when the MACD line
// is above its signal line with a positive histogram, Bearish when below
// with a negative histogram, Neutral otherwise.
type MACDParams struct {
	FastPeriod   int `json:"fast_period"`
	SlowPeriod   int `json:"slow_period"`
	SignalPeriod int `json:"signal_period"`
}

func (p *MACDParams) applyDefaults() {
	if p.FastPeriod == 0 && p.SlowPeriod == 0 && p.SignalPeriod == 0 {
		p.FastPeriod = 12
		p.SlowPeriod = 26
		p.SignalPeriod = 9
	}
}

func (p MACDParams) rule() (rule, error) {
	if p.FastPeriod <= 0 || p.SlowPeriod <= 0 || p.SignalPeriod <= 0 {
		return nil, &ConfigError{Type: TypeMACD, Reason: "periods must be positive"}
	}
	if p.FastPeriod >= p.SlowPeriod {
		return nil, &ConfigError{Type: TypeMACD, Reason: "fast_period must be smaller than slow_period"}
	}
	return macdRule{p}, nil
}

type macdRule struct {
	p MACDParams
}

func (r macdRule) warmup() int { return r.p.SlowPeriod }

func (r macdRule) regimes(closes []float64) []Regime {
	res := indicators.MACD(closes, r.p.FastPeriod, r.p.SlowPeriod, r.p.SignalPeriod)

	out := make([]Regime, len(closes))
	for i := range closes {
		macd := res.MACD.Values[i]
		signal := res.Signal.Values[i]
		hist := res.Histogram.Values[i]
		switch {
		case macd > signal && hist > 0:
			out[i] = Bullish
		case macd < signal && hist < 0:
			out[i] = Bearish
		}
	}
	return out
}
