package market

import (
	"context"
	"math/rand"
	"time"
)

// MockProvider generates random-walk daily bars for local development,
// so the engine and API can run without an upstream data service.
type MockProvider struct {
	StartPrice float64
	Step       float64
	Seed       int64
}

// GetBars synthesizes one bar per day over [start, end].
func (m *MockProvider) GetBars(_ context.Context, symbol string, start, end time.Time, _ string) (Series, error) {
	if !end.After(start) {
		return Series{}, ErrNoData
	}

	price := m.StartPrice
	if price == 0 {
		price = 100.0
	}
	step := m.Step
	if step == 0 {
		step = 1.0
	}
	seed := m.Seed
	if seed == 0 {
		seed = int64(len(symbol)) + start.Unix()
	}
	rng := rand.New(rand.NewSource(seed))

	s := Series{Symbol: symbol}
	for ts := start.Truncate(24 * time.Hour); !ts.After(end); ts = ts.Add(24 * time.Hour) {
		open := price
		price += (rng.Float64()*2 - 1) * step
		if price < step {
			price = step
		}
		high := open
		if price > high {
			high = price
		}
		low := open
		if price < low {
			low = price
		}
		s.Bars = append(s.Bars, Bar{
			Time:   ts,
			Open:   open,
			High:   high + rng.Float64()*step/2,
			Low:    low - rng.Float64()*step/2,
			Close:  price,
			Volume: 1000 + rng.Float64()*9000,
		})
	}
	if len(s.Bars) == 0 {
		return Series{}, ErrNoData
	}
	return s, nil
}
