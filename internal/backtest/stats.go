package backtest

import (
	"quantcore/internal/stats"
)

// computeMetrics derives Sharpe and max drawdown from the ledger's total
// column. Degenerate inputs (empty, zero variance, monotone growth) yield 0.
func computeMetrics(ledger []LedgerRow) Metrics {
	totals := make([]float64, len(ledger))
	for i, row := range ledger {
		totals[i] = row.Total
	}
	returns := stats.Returns(totals)
	return Metrics{
		SharpeRatio: stats.SharpeRatio(returns),
		MaxDrawdown: stats.MaxDrawdown(totals),
	}
}

// computeTradeStats aggregates the trade log. The win rate is the
// documented portfolio-level proxy: 100 when the run ended above its
// starting value, else 0.
func computeTradeStats(trades []TradeRecord, ledger []LedgerRow) TradeStats {
	if len(trades) == 0 {
		return TradeStats{}
	}

	var (
		totalValue   float64
		buys, sells  int
		buySum       float64
		sellSum      float64
	)
	for _, t := range trades {
		totalValue += t.Value
		if t.Action == "BUY" {
			buys++
			buySum += t.Price
		} else {
			sells++
			sellSum += t.Price
		}
	}

	s := TradeStats{
		TotalTrades: len(trades),
		AvgTrade:    totalValue / float64(len(trades)),
		TotalBuys:   buys,
		TotalSells:  sells,
	}
	if buys > 0 {
		s.AvgBuyPrice = buySum / float64(buys)
	}
	if sells > 0 {
		s.AvgSellPrice = sellSum / float64(sells)
	}

	if len(ledger) > 0 && ledger[len(ledger)-1].Total > ledger[0].Total {
		s.WinRate = 100.0
	}
	return s
}
