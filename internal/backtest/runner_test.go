package backtest

import (
	"math"
	"strings"
	"testing"
	"time"

	"quantcore/internal/market"
	"quantcore/internal/strategy"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// inst builds an aligned instrument from closes and per-bar events.
func inst(symbol string, closes []float64, events []strategy.Event) Instrument {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, len(closes))
	points := make([]strategy.Point, len(closes))
	for i, c := range closes {
		ts := base.AddDate(0, 0, i)
		bars[i] = market.Bar{Time: ts, Open: c, High: c, Low: c, Close: c}
		points[i] = strategy.Point{Time: ts, Close: c, Event: events[i]}
	}
	return Instrument{
		Series:  market.Series{Symbol: symbol, Bars: bars},
		Signals: strategy.SignalSeries{Symbol: symbol, Points: points},
	}
}

const (
	hold = strategy.EventHold
	buy  = strategy.EventBuy
	sell = strategy.EventSell
)

func assertLedgerIdentity(t *testing.T, ledger []LedgerRow) {
	t.Helper()
	for i, row := range ledger {
		if !almostEqual(row.Total, row.Cash+row.Holdings) {
			t.Errorf("row %d: total %v != cash %v + holdings %v", i, row.Total, row.Cash, row.Holdings)
		}
		if row.Cash < -1e-9 {
			t.Errorf("row %d: negative cash %v", i, row.Cash)
		}
	}
}

func TestRunSingleInstrument(t *testing.T) {
	instruments := map[string]Instrument{
		"AAPL": inst("AAPL", []float64{10, 10, 20}, []strategy.Event{hold, buy, hold}),
	}
	res, err := Run(instruments, 1000, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	assertLedgerIdentity(t, res.Ledger)
	if len(res.Ledger) != 3 {
		t.Fatalf("got %d ledger rows, want 3", len(res.Ledger))
	}

	// BUY converts the full allocation to 100 shares at $10.
	if !almostEqual(res.Ledger[1].Cash, 0) || !almostEqual(res.Ledger[1].Holdings, 1000) {
		t.Errorf("row 1 = %+v, want cash 0 holdings 1000", res.Ledger[1])
	}
	// HOLD marks the 100 shares to market at $20.
	if !almostEqual(res.Ledger[2].Total, 2000) {
		t.Errorf("final total = %v, want 2000", res.Ledger[2].Total)
	}

	if len(res.Trades) != 1 || res.Trades[0].Action != "BUY" {
		t.Fatalf("trades = %+v, want single BUY", res.Trades)
	}
	if !almostEqual(res.Trades[0].Shares, 100) || !almostEqual(res.Trades[0].Price, 10) {
		t.Errorf("trade = %+v, want 100 shares at $10", res.Trades[0])
	}

	if res.Stats.WinRate != 100 {
		t.Errorf("win rate = %v, want 100 for a profitable run", res.Stats.WinRate)
	}
	if res.Stats.TotalBuys != 1 || res.Stats.AvgBuyPrice != 10 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestRunBuyAllocatesFromPreStepCash(t *testing.T) {
	// Both symbols buy on the same step: each gets half the pre-step cash,
	// so the outcome is independent of iteration order.
	instruments := map[string]Instrument{
		"AAPL": inst("AAPL", []float64{10, 10}, []strategy.Event{hold, buy}),
		"MSFT": inst("MSFT", []float64{50, 50}, []strategy.Event{hold, buy}),
	}
	res, err := Run(instruments, 10000, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	assertLedgerIdentity(t, res.Ledger)
	row := res.Ledger[1]
	if !almostEqual(row.Cash, 0) || !almostEqual(row.Holdings, 10000) {
		t.Errorf("row 1 = %+v, want fully invested", row)
	}

	for _, tr := range res.Trades {
		if !almostEqual(tr.Value, 5000) {
			t.Errorf("%s trade value = %v, want 5000", tr.Symbol, tr.Value)
		}
	}
	if len(res.Trades) != 2 {
		t.Errorf("got %d trades, want 2", len(res.Trades))
	}
}

func TestRunSellLiquidatesFully(t *testing.T) {
	instruments := map[string]Instrument{
		"AAPL": inst("AAPL", []float64{10, 10, 25}, []strategy.Event{hold, buy, sell}),
	}
	res, err := Run(instruments, 1000, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	assertLedgerIdentity(t, res.Ledger)
	final := res.Ledger[2]
	if !almostEqual(final.Cash, 2500) || !almostEqual(final.Holdings, 0) {
		t.Errorf("final row = %+v, want cash 2500 holdings 0", final)
	}

	if len(res.Trades) != 2 {
		t.Fatalf("got %d trades, want BUY then SELL", len(res.Trades))
	}
	sellTrade := res.Trades[1]
	if sellTrade.Action != "SELL" || !almostEqual(sellTrade.Shares, 100) || !almostEqual(sellTrade.Value, 2500) {
		t.Errorf("sell trade = %+v", sellTrade)
	}
	if res.Stats.TotalSells != 1 || !almostEqual(res.Stats.AvgSellPrice, 25) {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestRunSellWithoutPositionRecordsNoTrade(t *testing.T) {
	instruments := map[string]Instrument{
		"AAPL": inst("AAPL", []float64{10, 10}, []strategy.Event{hold, sell}),
	}
	res, err := Run(instruments, 1000, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Errorf("trades = %+v, want none", res.Trades)
	}
	if !almostEqual(res.Ledger[1].Cash, 1000) {
		t.Errorf("cash = %v, want untouched", res.Ledger[1].Cash)
	}
}

func TestRunBuyWithNoCashRecordsNoTrade(t *testing.T) {
	// The first BUY consumes all cash; the second allocates from an empty
	// pool and must mark the existing position to market instead.
	instruments := map[string]Instrument{
		"AAPL": inst("AAPL", []float64{10, 10, 20}, []strategy.Event{hold, buy, buy}),
	}
	res, err := Run(instruments, 1000, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	assertLedgerIdentity(t, res.Ledger)
	if len(res.Trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(res.Trades))
	}
	if !almostEqual(res.Ledger[2].Total, 2000) {
		t.Errorf("final total = %v, want shares marked at $20", res.Ledger[2].Total)
	}
}

func TestRunExplicitWeights(t *testing.T) {
	instruments := map[string]Instrument{
		"AAPL": inst("AAPL", []float64{10, 10}, []strategy.Event{hold, buy}),
		"MSFT": inst("MSFT", []float64{50, 50}, []strategy.Event{hold, buy}),
	}
	weights := map[string]float64{"AAPL": 0.75, "MSFT": 0.25}

	res, err := Run(instruments, 10000, weights)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	byValue := map[string]float64{}
	for _, tr := range res.Trades {
		byValue[tr.Symbol] = tr.Value
	}
	if !almostEqual(byValue["AAPL"], 7500) || !almostEqual(byValue["MSFT"], 2500) {
		t.Errorf("trade values = %v, want 7500/2500 split", byValue)
	}
}

func TestRunWeightErrors(t *testing.T) {
	instruments := map[string]Instrument{
		"AAPL": inst("AAPL", []float64{10, 10}, []strategy.Event{hold, buy}),
		"MSFT": inst("MSFT", []float64{50, 50}, []strategy.Event{hold, buy}),
	}

	tests := []struct {
		name    string
		weights map[string]float64
		wantMsg string
	}{
		{"missing symbol", map[string]float64{"AAPL": 1}, "missing weight"},
		{"wrong sum", map[string]float64{"AAPL": 0.6, "MSFT": 0.6}, "sum"},
		{"negative weight", map[string]float64{"AAPL": 1.5, "MSFT": -0.5}, "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(instruments, 10000, tt.weights)
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %v, want contains %q", err, tt.wantMsg)
			}
		})
	}
}

func TestRunRejectsMisalignedInstruments(t *testing.T) {
	aligned := inst("AAPL", []float64{10, 10, 10}, []strategy.Event{hold, hold, hold})

	t.Run("length mismatch", func(t *testing.T) {
		short := inst("MSFT", []float64{50, 50}, []strategy.Event{hold, hold})
		_, err := Run(map[string]Instrument{"AAPL": aligned, "MSFT": short}, 1000, nil)
		if err == nil {
			t.Error("expected length mismatch error")
		}
	})

	t.Run("timestamp mismatch", func(t *testing.T) {
		shifted := inst("MSFT", []float64{50, 50, 50}, []strategy.Event{hold, hold, hold})
		for i := range shifted.Series.Bars {
			shifted.Series.Bars[i].Time = shifted.Series.Bars[i].Time.Add(time.Hour)
			shifted.Signals.Points[i].Time = shifted.Series.Bars[i].Time
		}
		_, err := Run(map[string]Instrument{"AAPL": aligned, "MSFT": shifted}, 1000, nil)
		if err == nil || !strings.Contains(err.Error(), "timestamp") {
			t.Errorf("err = %v, want timestamp mismatch", err)
		}
	})

	t.Run("signals shorter than bars", func(t *testing.T) {
		broken := inst("MSFT", []float64{50, 50, 50}, []strategy.Event{hold, hold, hold})
		broken.Signals.Points = broken.Signals.Points[:2]
		_, err := Run(map[string]Instrument{"AAPL": aligned, "MSFT": broken}, 1000, nil)
		if err == nil || !strings.Contains(err.Error(), "signals") {
			t.Errorf("err = %v, want signals length error", err)
		}
	})
}

func TestRunInputValidation(t *testing.T) {
	if _, err := Run(nil, 1000, nil); err == nil {
		t.Error("expected error for no instruments")
	}

	instruments := map[string]Instrument{
		"AAPL": inst("AAPL", []float64{10, 10}, []strategy.Event{hold, hold}),
	}
	if _, err := Run(instruments, 0, nil); err == nil {
		t.Error("expected error for non-positive cash")
	}
	if _, err := Run(instruments, -5, nil); err == nil {
		t.Error("expected error for negative cash")
	}
}

func TestRunLosingRunHasZeroWinRate(t *testing.T) {
	instruments := map[string]Instrument{
		"AAPL": inst("AAPL", []float64{10, 10, 5}, []strategy.Event{hold, buy, sell}),
	}
	res, err := Run(instruments, 1000, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Stats.WinRate != 0 {
		t.Errorf("win rate = %v, want 0 for a losing run", res.Stats.WinRate)
	}
	if res.Metrics.MaxDrawdown <= 0 {
		t.Errorf("max drawdown = %v, want positive", res.Metrics.MaxDrawdown)
	}
}
