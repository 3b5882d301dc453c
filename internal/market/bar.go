package market

import (
	"errors"
	"fmt"
	"time"
)

// Bar represents a single OHLCV candle.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is a time-ordered price history for one instrument.
// Timestamps must be strictly increasing; Validate enforces this.
type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

var (
	// ErrNoData means the provider answered but has nothing for the
	// requested symbol/range.
	ErrNoData = errors.New("no market data for requested range")
	// ErrUnavailable means the provider itself could not be reached.
	ErrUnavailable = errors.New("market data provider unavailable")
)

// Validate checks the series preconditions: non-empty and strictly
// ascending timestamps with no duplicates.
func (s Series) Validate() error {
	if len(s.Bars) == 0 {
		return fmt.Errorf("series %s: %w", s.Symbol, ErrNoData)
	}
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Time.After(s.Bars[i-1].Time) {
			return fmt.Errorf("series %s: non-increasing timestamp at index %d (%s after %s)",
				s.Symbol, i, s.Bars[i].Time, s.Bars[i-1].Time)
		}
	}
	return nil
}

// Closes returns the close prices aligned with Bars.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// LastClose returns the most recent close price, or 0 for an empty series.
func (s Series) LastClose() float64 {
	if len(s.Bars) == 0 {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}
