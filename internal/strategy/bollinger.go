package strategy

import (
	"quantcore/internal/indicators"
)

// BollingerParams configures the Bollinger Bands reversion strategy:
// Bullish when the close touches or breaks the lower band, Bearish at the
// upper band, Neutral inside the bands.
type BollingerParams struct {
	Window int     `json:"window"`
	NumStd float64 `json:"num_std"`
}

func (p *BollingerParams) applyDefaults() {
	if p.Window == 0 && p.NumStd == 0 {
		p.Window = 20
		p.NumStd = 2.0
	}
}

func (p BollingerParams) rule() (rule, error) {
	if p.Window <= 0 || p.NumStd <= 0 {
		return nil, &ConfigError{Type: TypeBollinger, Reason: "window and num_std must be positive"}
	}
	return bollingerRule{p}, nil
}

type bollingerRule struct {
	p BollingerParams
}

func (r bollingerRule) warmup() int { return r.p.Window }

func (r bollingerRule) regimes(closes []float64) []Regime {
	bands := indicators.Bollinger(closes, r.p.Window, r.p.NumStd)

	out := make([]Regime, len(closes))
	for i, c := range closes {
		lower, ok := bands.Lower.At(i)
		if !ok {
			continue
		}
		upper, _ := bands.Upper.At(i)
		switch {
		case c <= lower:
			out[i] = Bullish
		case c >= upper:
			out[i] = Bearish
		}
	}
	return out
}
