package strategy

import (
	"quantcore/internal/indicators"
)

// SMACrossParams configures the moving-average crossover strategy:
// Bullish while the short SMA is above the long SMA, Bearish otherwise.
// There is no Neutral state once the warm-up window has passed.
type SMACrossParams struct {
	ShortWindow int `json:"short_window"`
	LongWindow  int `json:"long_window"`
}

func (p *SMACrossParams) applyDefaults() {
	if p.ShortWindow == 0 && p.LongWindow == 0 {
		p.ShortWindow = 20
		p.LongWindow = 50
	}
}

func (p SMACrossParams) rule() (rule, error) {
	if p.ShortWindow <= 0 || p.LongWindow <= 0 {
		return nil, &ConfigError{Type: TypeSMACross, Reason: "windows must be positive"}
	}
	if p.ShortWindow >= p.LongWindow {
		return nil, &ConfigError{Type: TypeSMACross, Reason: "short_window must be smaller than long_window"}
	}
	return smaCrossRule{p}, nil
}

type smaCrossRule struct {
	p SMACrossParams
}

func (r smaCrossRule) warmup() int { return r.p.LongWindow }

func (r smaCrossRule) regimes(closes []float64) []Regime {
	short := indicators.SMA(closes, r.p.ShortWindow)
	long := indicators.SMA(closes, r.p.LongWindow)

	out := make([]Regime, len(closes))
	for i := range closes {
		if !short.Valid[i] || !long.Valid[i] {
			continue
		}
		if short.Values[i] > long.Values[i] {
			out[i] = Bullish
		} else {
			out[i] = Bearish
		}
	}
	return out
}
