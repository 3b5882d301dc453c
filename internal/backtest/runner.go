package backtest

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// Run replays the instruments' trade events against a single cash pool in
// one sequential pass over the shared time index.
//
// The replay is full-reinvestment, no leverage, no shorting: each BUY
// allocates weight * cash-at-start-of-step and converts it fully to shares
// at that bar's close; each SELL liquidates the whole position. Because
// every BUY in a step draws from the pre-step cash pool and weights sum to
// 1, the step is deterministic regardless of instrument order and can never
// drive cash negative.
//
// weights may be nil for equal weighting; otherwise it must cover every
// instrument and sum to 1.
func Run(instruments map[string]Instrument, initialCash float64, weights map[string]float64) (*Result, error) {
	if len(instruments) == 0 {
		return nil, fmt.Errorf("backtest: no instruments")
	}
	if initialCash <= 0 {
		return nil, fmt.Errorf("backtest: initial cash must be positive, got %v", initialCash)
	}

	symbols := make([]string, 0, len(instruments))
	for s := range instruments {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	if err := checkAlignment(symbols, instruments); err != nil {
		return nil, err
	}
	w, err := resolveWeights(symbols, weights)
	if err != nil {
		return nil, err
	}

	first := instruments[symbols[0]]
	steps := len(first.Series.Bars)

	ledger := make([]LedgerRow, 0, steps)
	ledger = append(ledger, LedgerRow{
		Time:  first.Series.Bars[0].Time,
		Cash:  initialCash,
		Total: initialCash,
	})

	shares := make(map[string]float64, len(symbols))
	var trades []TradeRecord

	for i := 1; i < steps; i++ {
		cashBefore := ledger[i-1].Cash
		cash := cashBefore
		holdings := 0.0

		for _, symbol := range symbols {
			inst := instruments[symbol]
			point := inst.Signals.Points[i]
			price := inst.Series.Bars[i].Close

			switch {
			case point.Event > 0 && price > 0: // BUY: convert this step's allocation to shares
				alloc := cashBefore * w[symbol]
				if alloc <= 0 {
					holdings += shares[symbol] * price
					continue
				}
				qty := alloc / price
				shares[symbol] = qty
				cash -= alloc
				holdings += alloc
				trades = append(trades, TradeRecord{
					ID:     uuid.NewString(),
					Time:   point.Time,
					Symbol: symbol,
					Action: "BUY",
					Shares: qty,
					Price:  price,
					Value:  alloc,
				})

			case point.Event < 0: // SELL: liquidate the whole position
				qty := shares[symbol]
				if qty <= 0 {
					continue
				}
				proceeds := qty * price
				cash += proceeds
				shares[symbol] = 0
				trades = append(trades, TradeRecord{
					ID:     uuid.NewString(),
					Time:   point.Time,
					Symbol: symbol,
					Action: "SELL",
					Shares: qty,
					Price:  price,
					Value:  proceeds,
				})

			default: // HOLD: mark to market
				holdings += shares[symbol] * price
			}
		}

		ledger = append(ledger, LedgerRow{
			Time:     first.Series.Bars[i].Time,
			Cash:     cash,
			Holdings: holdings,
			Total:    cash + holdings,
		})
	}

	res := &Result{
		Ledger: ledger,
		Trades: trades,
	}
	res.Metrics = computeMetrics(ledger)
	res.Stats = computeTradeStats(trades, ledger)
	return res, nil
}

// checkAlignment verifies every instrument shares the common time index:
// same length, same timestamps, and signals aligned with bars.
func checkAlignment(symbols []string, instruments map[string]Instrument) error {
	ref := instruments[symbols[0]].Series.Bars
	if len(ref) == 0 {
		return fmt.Errorf("backtest: %s has an empty price series", symbols[0])
	}

	for _, symbol := range symbols {
		inst := instruments[symbol]
		if err := inst.Series.Validate(); err != nil {
			return fmt.Errorf("backtest: %w", err)
		}
		if len(inst.Series.Bars) != len(ref) {
			return fmt.Errorf("backtest: %s has %d bars, expected %d", symbol, len(inst.Series.Bars), len(ref))
		}
		if len(inst.Signals.Points) != len(ref) {
			return fmt.Errorf("backtest: %s signals length %d does not match %d bars", symbol, len(inst.Signals.Points), len(ref))
		}
		for i := range ref {
			if !inst.Series.Bars[i].Time.Equal(ref[i].Time) {
				return fmt.Errorf("backtest: %s timestamp mismatch at index %d", symbol, i)
			}
		}
	}
	return nil
}

// resolveWeights defaults to equal weighting and checks provided weights
// cover every instrument and sum to 1.
func resolveWeights(symbols []string, weights map[string]float64) (map[string]float64, error) {
	if weights == nil {
		w := make(map[string]float64, len(symbols))
		for _, s := range symbols {
			w[s] = 1.0 / float64(len(symbols))
		}
		return w, nil
	}

	sum := 0.0
	for _, s := range symbols {
		v, ok := weights[s]
		if !ok {
			return nil, fmt.Errorf("backtest: missing weight for %s", s)
		}
		if v < 0 {
			return nil, fmt.Errorf("backtest: negative weight for %s", s)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-6 {
		return nil, fmt.Errorf("backtest: weights sum to %v, expected 1", sum)
	}
	return weights, nil
}
