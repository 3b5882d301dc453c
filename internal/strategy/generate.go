package strategy

import (
	"fmt"
	"sync"

	"quantcore/internal/market"
)

// Generate derives the full signal series for one instrument. It is a pure
// function of the price series and config: validation failures return a
// *ConfigError, series problems return ErrInsufficientData or the series'
// own precondition error.
func Generate(series market.Series, cfg Config) (SignalSeries, error) {
	r, err := cfg.rule()
	if err != nil {
		return SignalSeries{}, err
	}
	if err := series.Validate(); err != nil {
		return SignalSeries{}, err
	}
	if len(series.Bars) <= r.warmup() {
		return SignalSeries{}, fmt.Errorf("%s: %w: need more than %d bars, have %d",
			series.Symbol, ErrInsufficientData, r.warmup(), len(series.Bars))
	}

	regimes := r.regimes(series.Closes())
	for i := 0; i < r.warmup(); i++ {
		regimes[i] = Neutral
	}

	out := SignalSeries{
		Symbol: series.Symbol,
		Points: make([]Point, len(series.Bars)),
	}
	for i, bar := range series.Bars {
		p := Point{
			Time:   bar.Time,
			Close:  bar.Close,
			Regime: regimes[i],
		}
		if i > 0 {
			p.Event = eventFromDelta(int(regimes[i]) - int(regimes[i-1]))
		}
		out.Points[i] = p
	}
	return out, nil
}

// eventFromDelta maps a regime change onto a trade event. The strategies
// defined here only produce deltas of magnitude 0 or 1; a magnitude-2 flip
// (Bearish straight to Bullish) is clamped to the sign of the delta so a
// hard reversal still trades in the indicated direction.
func eventFromDelta(delta int) Event {
	switch {
	case delta > 0:
		return EventBuy
	case delta < 0:
		return EventSell
	default:
		return EventHold
	}
}

// GenerateAll computes signal series for many instruments concurrently.
// The config is validated once up front; a bad config fails the whole call.
// Per-instrument data problems are collected in failed and the remaining
// instruments proceed.
func GenerateAll(data map[string]market.Series, cfg Config) (signals map[string]SignalSeries, failed map[string]error, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	signals = make(map[string]SignalSeries, len(data))
	failed = make(map[string]error)

	for symbol, series := range data {
		wg.Add(1)
		go func(symbol string, series market.Series) {
			defer wg.Done()
			s, genErr := Generate(series, cfg)
			mu.Lock()
			defer mu.Unlock()
			if genErr != nil {
				failed[symbol] = genErr
				return
			}
			signals[symbol] = s
		}(symbol, series)
	}
	wg.Wait()
	return signals, failed, nil
}
