// Package backtest replays trade events against a cash/holdings ledger and
// derives the performance statistics of the run.
package backtest

import (
	"time"

	"quantcore/internal/market"
	"quantcore/internal/strategy"
)

// Instrument pairs a price series with the signal series derived from it.
// Both must be aligned 1:1 on the same time index.
type Instrument struct {
	Series  market.Series
	Signals strategy.SignalSeries
}

// LedgerRow is one timestamped snapshot of the simulated portfolio.
// Total == Cash + Holdings holds exactly for every row by construction.
type LedgerRow struct {
	Time     time.Time `json:"time"`
	Cash     float64   `json:"cash"`
	Holdings float64   `json:"holdings"`
	Total    float64   `json:"total"`
}

// TradeRecord is one executed trade in the append-only trade log.
type TradeRecord struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"time"`
	Symbol string    `json:"symbol"`
	Action string    `json:"action"` // BUY or SELL
	Shares float64   `json:"shares"`
	Price  float64   `json:"price"`
	Value  float64   `json:"value"`
}

// Metrics are the headline performance numbers of a run.
type Metrics struct {
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// TradeStats aggregates the trade log. WinRate is a portfolio-level proxy:
// 100 when the run's ending total exceeds its starting total, otherwise 0.
// It deliberately does not measure per-trade P&L.
type TradeStats struct {
	TotalTrades  int     `json:"total_trades"`
	WinRate      float64 `json:"win_rate"`
	AvgTrade     float64 `json:"avg_trade"`
	TotalBuys    int     `json:"total_buys"`
	TotalSells   int     `json:"total_sells"`
	AvgBuyPrice  float64 `json:"avg_buy_price"`
	AvgSellPrice float64 `json:"avg_sell_price"`
}

// Result is the full outcome of a backtest run.
type Result struct {
	Ledger  []LedgerRow   `json:"ledger"`
	Trades  []TradeRecord `json:"trades"`
	Metrics Metrics       `json:"metrics"`
	Stats   TradeStats    `json:"stats"`
}

// FinalValue returns the run's ending portfolio total.
func (r *Result) FinalValue() float64 {
	if len(r.Ledger) == 0 {
		return 0
	}
	return r.Ledger[len(r.Ledger)-1].Total
}
