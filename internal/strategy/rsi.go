package strategy

import (
	"quantcore/internal/indicators"
)

// RSIParams configures the mean-reversion RSI strategy: Bullish when RSI
// drops below the oversold threshold, Bearish above the overbought
// threshold, Neutral in between.
type RSIParams struct {
	Window     int     `json:"window"`
	Overbought float64 `json:"overbought"`
	Oversold   float64 `json:"oversold"`
}

func (p *RSIParams) applyDefaults() {
	if p.Window == 0 && p.Overbought == 0 && p.Oversold == 0 {
		p.Window = 14
		p.Overbought = 70
		p.Oversold = 30
	}
}

func (p RSIParams) rule() (rule, error) {
	if p.Window <= 0 || p.Overbought <= 0 || p.Oversold <= 0 {
		return nil, &ConfigError{Type: TypeRSI, Reason: "window and thresholds must be positive"}
	}
	if p.Oversold >= p.Overbought {
		return nil, &ConfigError{Type: TypeRSI, Reason: "oversold must be below overbought"}
	}
	return rsiRule{p}, nil
}

type rsiRule struct {
	p RSIParams
}

func (r rsiRule) warmup() int { return r.p.Window }

func (r rsiRule) regimes(closes []float64) []Regime {
	rsi := indicators.RSI(closes, r.p.Window)

	out := make([]Regime, len(closes))
	for i := range closes {
		v, ok := rsi.At(i)
		if !ok {
			continue
		}
		switch {
		case v < r.p.Oversold:
			out[i] = Bullish
		case v > r.p.Overbought:
			out[i] = Bearish
		}
	}
	return out
}
