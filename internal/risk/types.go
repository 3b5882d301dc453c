package risk

import "fmt"

// Side identifies the direction of a prospective trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Parameters are the process-wide risk limits, loaded once at startup and
// immutable for the duration of a run.
type Parameters struct {
	// MaxPositionFraction caps a single position as a fraction of
	// available cash (and of portfolio value when known).
	MaxPositionFraction float64 `yaml:"max_position_fraction" json:"max_position_fraction"`
	// MaxDailyLossFraction is the daily loss threshold as a fraction of
	// portfolio value beyond which new entries are halted.
	MaxDailyLossFraction float64 `yaml:"max_daily_loss_fraction" json:"max_daily_loss_fraction"`
	CommissionRate       float64 `yaml:"commission_rate" json:"commission_rate"`
	SlippageRate         float64 `yaml:"slippage_rate" json:"slippage_rate"`
	MinTradeValue        float64 `yaml:"min_trade_value" json:"min_trade_value"`
}

// DefaultParameters mirrors the shipped configuration: 10% position cap,
// 2% daily loss limit, 10bps commission and slippage, $10 minimum trade.
func DefaultParameters() Parameters {
	return Parameters{
		MaxPositionFraction:  0.10,
		MaxDailyLossFraction: 0.02,
		CommissionRate:       0.001,
		SlippageRate:         0.001,
		MinTradeValue:        10.0,
	}
}

// Validate rejects non-positive limits. Rates may be zero (free trading)
// but never negative.
func (p Parameters) Validate() error {
	if p.MaxPositionFraction <= 0 || p.MaxPositionFraction > 1 {
		return fmt.Errorf("max_position_fraction must be in (0, 1], got %v", p.MaxPositionFraction)
	}
	if p.MaxDailyLossFraction <= 0 || p.MaxDailyLossFraction > 1 {
		return fmt.Errorf("max_daily_loss_fraction must be in (0, 1], got %v", p.MaxDailyLossFraction)
	}
	if p.CommissionRate < 0 || p.SlippageRate < 0 {
		return fmt.Errorf("commission_rate and slippage_rate must be non-negative")
	}
	if p.MinTradeValue < 0 {
		return fmt.Errorf("min_trade_value must be non-negative, got %v", p.MinTradeValue)
	}
	return nil
}

// Summary is the read-only aggregate risk view of a portfolio history.
type Summary struct {
	Volatility    float64 `json:"volatility"`
	SharpeRatio   float64 `json:"sharpe_ratio"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	VaR95         float64 `json:"var_95"`
	Exposure      float64 `json:"exposure"`
	PositionCount int     `json:"position_count"`
}
