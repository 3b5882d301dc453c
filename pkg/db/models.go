package db

import "time"

// Run is a persisted backtest run summary.
type Run struct {
	ID           string    `json:"id"`
	Symbols      string    `json:"symbols"`
	StrategyType string    `json:"strategy_type"`
	Parameters   string    `json:"parameters"`
	InitialCash  float64   `json:"initial_cash"`
	FinalValue   float64   `json:"final_value"`
	SharpeRatio  float64   `json:"sharpe_ratio"`
	MaxDrawdown  float64   `json:"max_drawdown"`
	WinRate      float64   `json:"win_rate"`
	TotalTrades  int       `json:"total_trades"`
	CreatedAt    time.Time `json:"created_at"`
}

// Trade is one executed simulated trade belonging to a run.
type Trade struct {
	ID     string    `json:"id"`
	RunID  string    `json:"run_id"`
	Time   time.Time `json:"time"`
	Symbol string    `json:"symbol"`
	Action string    `json:"action"`
	Shares float64   `json:"shares"`
	Price  float64   `json:"price"`
	Value  float64   `json:"value"`
}

// LedgerPoint is one row of a run's portfolio value history.
type LedgerPoint struct {
	RunID    string    `json:"run_id"`
	Time     time.Time `json:"time"`
	Cash     float64   `json:"cash"`
	Holdings float64   `json:"holdings"`
	Total    float64   `json:"total"`
}

// Fill is an executed paper order from the live trading loop.
type Fill struct {
	OrderID   string    `json:"order_id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Qty       float64   `json:"qty"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}
