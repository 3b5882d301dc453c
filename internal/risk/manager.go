// Package risk gates every prospective trade, simulated or live: position
// sizing, validation, the transaction cost model, the daily loss switch,
// and the aggregate risk summary.
package risk

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"quantcore/internal/stats"
)

// Manager applies the configured Parameters. It is stateless apart from
// them and safe for concurrent use.
type Manager struct {
	params Parameters
	logger *zap.Logger
}

// NewManager builds a risk manager. Parameters must already be validated.
func NewManager(params Parameters, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{params: params, logger: logger}
}

// Params returns a copy of the active parameters.
func (m *Manager) Params() Parameters { return m.params }

// SizeInput carries the inputs of a position-size calculation. Volatility
// and PortfolioValue are optional; zero means unknown.
type SizeInput struct {
	AvailableCash  float64
	Price          float64
	Volatility     float64
	PortfolioValue float64
}

// SizePosition returns the number of (fractional) shares to buy. The base
// size is AvailableCash * MaxPositionFraction; a known volatility scales it
// down by max(0.5, 1-2v), and a known portfolio value caps the position at
// PortfolioValue * MaxPositionFraction.
func (m *Manager) SizePosition(in SizeInput) float64 {
	if in.Price <= 0 || in.AvailableCash <= 0 {
		return 0
	}

	value := in.AvailableCash * m.params.MaxPositionFraction

	if in.Volatility > 0 {
		adjustment := math.Max(0.5, 1-2*in.Volatility)
		value *= adjustment
	}
	if in.PortfolioValue > 0 {
		if limit := in.PortfolioValue * m.params.MaxPositionFraction; value > limit {
			value = limit
		}
	}

	return value / in.Price
}

// ValidateTrade decides whether a prospective trade may execute. A false
// result is a normal negative outcome, not an error; reason explains the
// single check that failed.
func (m *Manager) ValidateTrade(symbol string, shares, price float64, side Side, availableCash float64, positions map[string]float64) (bool, string) {
	tradeValue := math.Abs(shares * price)

	if side == SideBuy && tradeValue > availableCash {
		return false, fmt.Sprintf("insufficient cash: need $%.2f, have $%.2f", tradeValue, availableCash)
	}

	if side == SideSell {
		held := positions[symbol]
		if shares > held {
			return false, fmt.Sprintf("insufficient shares: selling %.4f, holding %.4f", shares, held)
		}
	}

	if tradeValue < m.params.MinTradeValue {
		return false, fmt.Sprintf("trade too small: $%.2f", tradeValue)
	}

	if side == SideBuy {
		positionValue := (positions[symbol] + shares) * price
		if positionValue > availableCash*m.params.MaxPositionFraction {
			return false, fmt.Sprintf("position too large: $%.2f", positionValue)
		}
	}

	return true, "trade valid"
}

// TransactionCost models commission plus slippage, symmetric for both sides.
func (m *Manager) TransactionCost(tradeValue float64, _ Side) float64 {
	return tradeValue * (m.params.CommissionRate + m.params.SlippageRate)
}

// DailyLossBreached reports whether today's realized loss exceeds the daily
// limit. Callers must halt new entries when true, never force-liquidate.
func (m *Manager) DailyLossBreached(dailyPnL, portfolioValue float64) bool {
	if portfolioValue <= 0 {
		return false
	}
	loss := math.Max(0, -dailyPnL)
	breached := loss/portfolioValue > m.params.MaxDailyLossFraction
	if breached {
		m.logger.Warn("daily loss limit breached",
			zap.Float64("daily_pnl", dailyPnL),
			zap.Float64("portfolio_value", portfolioValue),
			zap.Float64("limit", m.params.MaxDailyLossFraction))
	}
	return breached
}

// Summarize computes the aggregate risk view from a portfolio value history
// and the current positions marked at the given prices.
func (m *Manager) Summarize(totals []float64, positions map[string]float64, prices map[string]float64) Summary {
	returns := stats.Returns(totals)

	exposure := 0.0
	count := 0
	for symbol, shares := range positions {
		if shares == 0 {
			continue
		}
		count++
		exposure += math.Abs(shares * prices[symbol])
	}

	return Summary{
		Volatility:    stats.AnnualizedVolatility(returns),
		SharpeRatio:   stats.SharpeRatio(returns),
		MaxDrawdown:   stats.MaxDrawdown(totals),
		VaR95:         stats.VaR95(returns),
		Exposure:      exposure,
		PositionCount: count,
	}
}
