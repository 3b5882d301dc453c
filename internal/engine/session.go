// Package engine runs the live paper-trading loop: fetch bars, generate
// signals, gate trades through risk, execute fills, and track the paper
// portfolio across cycles.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"quantcore/internal/events"
	"quantcore/internal/market"
	"quantcore/internal/order"
	"quantcore/internal/risk"
	"quantcore/internal/stats"
	"quantcore/internal/strategy"
)

// Settings configures a live session.
type Settings struct {
	Watchlist    []string
	Strategy     strategy.Config
	Interval     time.Duration // delay between successful cycles
	ErrorBackoff time.Duration // delay after a failed cycle
	LookbackDays int
	Timeframe    string
	InitialCash  float64
}

func (s *Settings) applyDefaults() {
	if s.Interval <= 0 {
		s.Interval = 60 * time.Second
	}
	if s.ErrorBackoff <= 0 {
		s.ErrorBackoff = 300 * time.Second
	}
	if s.LookbackDays <= 0 {
		s.LookbackDays = 100
	}
	if s.Timeframe == "" {
		s.Timeframe = "1d"
	}
	if s.InitialCash <= 0 {
		s.InitialCash = 10000
	}
}

// Portfolio is a point-in-time view of the paper account.
type Portfolio struct {
	Cash       float64            `json:"cash"`
	Positions  map[string]float64 `json:"positions"`
	Values     map[string]float64 `json:"position_values"`
	TotalValue float64            `json:"total_value"`
	DailyPnL   float64            `json:"daily_pnl"`
	Halted     bool               `json:"halted"`
	Cycles     int                `json:"cycles"`
	LastCycle  time.Time          `json:"last_cycle"`
	Running    bool               `json:"running"`
}

// CycleReport is published on the bus after every completed cycle.
type CycleReport struct {
	Cycle      int       `json:"cycle"`
	Time       time.Time `json:"time"`
	TotalValue float64   `json:"total_value"`
	Trades     int       `json:"trades"`
	Halted     bool      `json:"halted"`
}

// Rejection describes a trade the risk manager turned down.
type Rejection struct {
	Symbol string  `json:"symbol"`
	Side   string  `json:"side"`
	Shares float64 `json:"shares"`
	Price  float64 `json:"price"`
	Reason string  `json:"reason"`
}

// Session owns the live loop's state. All exported methods are safe for
// concurrent use with a running loop.
type Session struct {
	provider market.Provider
	riskMgr  *risk.Manager
	executor order.Executor
	bus      *events.Bus
	logger   *zap.Logger

	mu        sync.Mutex
	settings  Settings
	cash      float64
	positions map[string]float64
	prices    map[string]float64
	equity    []float64
	day       time.Time
	dayStart  float64
	halted    bool
	cycles    int
	lastCycle time.Time
	running   bool
}

// NewSession builds a stopped session. Settings are validated when the
// loop starts or when Configure is called.
func NewSession(provider market.Provider, riskMgr *risk.Manager, executor order.Executor, bus *events.Bus, logger *zap.Logger, settings Settings) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings.applyDefaults()
	return &Session{
		provider:  provider,
		riskMgr:   riskMgr,
		executor:  executor,
		bus:       bus,
		logger:    logger,
		settings:  settings,
		cash:      settings.InitialCash,
		positions: make(map[string]float64),
		prices:    make(map[string]float64),
		equity:    []float64{settings.InitialCash},
	}
}

// Configure replaces the watchlist and strategy. It rejects invalid
// strategy configurations instead of letting the loop discover them.
func (s *Session) Configure(watchlist []string, cfg strategy.Config) error {
	if len(watchlist) == 0 {
		return errors.New("watchlist is empty")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Watchlist = append([]string(nil), watchlist...)
	s.settings.Strategy = cfg
	s.logger.Info("session reconfigured",
		zap.Strings("watchlist", watchlist),
		zap.String("strategy", cfg.Type))
	return nil
}

// Run executes trading cycles until ctx is cancelled. Failed cycles wait
// ErrorBackoff instead of Interval before retrying; state survives cycle
// failures untouched.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("session already running")
	}
	if err := s.settings.Strategy.Validate(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("session strategy: %w", err)
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("live session started",
		zap.Strings("watchlist", s.watchlist()),
		zap.String("strategy", s.strategyConfig().Type))

	for {
		interval, backoff := s.delays()
		delay := interval
		if err := s.cycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			s.logger.Error("trading cycle failed", zap.Error(err))
			delay = backoff
		}

		select {
		case <-ctx.Done():
			s.logger.Info("live session stopped")
			return nil
		case <-time.After(delay):
		}
	}
}

// cycle runs one pass over the watchlist. Per-symbol data problems are
// skipped with a warning; a provider outage fails the whole cycle.
func (s *Session) cycle(ctx context.Context) error {
	now := time.Now().UTC()
	s.rollDay(now)

	s.mu.Lock()
	watchlist := append([]string(nil), s.settings.Watchlist...)
	cfg := s.settings.Strategy
	lookback := s.settings.LookbackDays
	timeframe := s.settings.Timeframe
	s.mu.Unlock()
	start := now.AddDate(0, 0, -lookback)

	trades := 0
	sort.Strings(watchlist)
	for _, symbol := range watchlist {
		if err := ctx.Err(); err != nil {
			return err
		}

		series, err := s.provider.GetBars(ctx, symbol, start, now, timeframe)
		if errors.Is(err, market.ErrNoData) {
			s.logger.Warn("no bars for symbol", zap.String("symbol", symbol))
			continue
		}
		if err != nil {
			return fmt.Errorf("fetch %s: %w", symbol, err)
		}

		signals, err := strategy.Generate(series, cfg)
		if errors.Is(err, strategy.ErrInsufficientData) {
			s.logger.Warn("insufficient history", zap.String("symbol", symbol), zap.Int("bars", len(series.Bars)))
			continue
		}
		if err != nil {
			return fmt.Errorf("signals for %s: %w", symbol, err)
		}

		last, ok := signals.Last()
		price := series.LastClose()
		s.markPrice(symbol, price)

		if !ok || last.Event == strategy.EventHold {
			continue
		}
		if s.bus != nil {
			s.bus.Publish(events.TopicSignal, map[string]any{
				"symbol": symbol,
				"event":  last.Event.String(),
				"price":  price,
				"time":   last.Time,
			})
		}

		executed, err := s.act(ctx, symbol, last.Event, price, series)
		if err != nil {
			return err
		}
		if executed {
			trades++
		}
	}

	s.finishCycle(now, trades)
	return nil
}

// act sizes, validates, and executes one signal. A risk rejection is a
// normal outcome and never an error.
func (s *Session) act(ctx context.Context, symbol string, event strategy.Event, price float64, series market.Series) (bool, error) {
	s.mu.Lock()
	cash := s.cash
	held := s.positions[symbol]
	halted := s.halted
	total := s.totalValueLocked()
	positions := make(map[string]float64, len(s.positions))
	for k, v := range s.positions {
		positions[k] = v
	}
	s.mu.Unlock()

	var side risk.Side
	var sideName string
	var shares float64

	switch {
	case event > 0:
		if halted {
			s.logger.Warn("buy suppressed, daily loss limit active", zap.String("symbol", symbol))
			return false, nil
		}
		side, sideName = risk.SideBuy, "BUY"
		vol := stats.StdDev(stats.Returns(series.Closes()))
		shares = s.riskMgr.SizePosition(risk.SizeInput{
			AvailableCash:  cash,
			Price:          price,
			Volatility:     vol,
			PortfolioValue: total,
		})
	case event < 0:
		side, sideName = risk.SideSell, "SELL"
		shares = held
	}

	if shares <= 0 {
		return false, nil
	}

	ok, reason := s.riskMgr.ValidateTrade(symbol, shares, price, side, cash, positions)
	if !ok {
		s.logger.Info("trade rejected",
			zap.String("symbol", symbol),
			zap.String("side", sideName),
			zap.Float64("shares", shares),
			zap.String("reason", reason))
		if s.bus != nil {
			s.bus.Publish(events.TopicRejection, Rejection{
				Symbol: symbol, Side: sideName, Shares: shares, Price: price, Reason: reason,
			})
		}
		return false, nil
	}

	fill, err := s.executor.Submit(ctx, order.Request{
		Symbol: symbol,
		Side:   sideName,
		Qty:    shares,
		Price:  price,
	})
	if err != nil {
		return false, fmt.Errorf("submit %s %s: %w", sideName, symbol, err)
	}

	s.applyFill(fill)
	return true, nil
}

// applyFill updates cash and positions for a confirmed fill, net of the
// modeled transaction cost.
func (s *Session) applyFill(fill order.Fill) {
	value := fill.Qty * fill.Price
	side := risk.SideBuy
	if fill.Side == "SELL" {
		side = risk.SideSell
	}
	cost := s.riskMgr.TransactionCost(value, side)

	s.mu.Lock()
	defer s.mu.Unlock()

	if side == risk.SideBuy {
		s.cash -= value + cost
		s.positions[fill.Symbol] += fill.Qty
	} else {
		s.cash += value - cost
		s.positions[fill.Symbol] -= fill.Qty
		if s.positions[fill.Symbol] <= 0 {
			delete(s.positions, fill.Symbol)
		}
	}
	s.prices[fill.Symbol] = fill.Price
}

func (s *Session) markPrice(symbol string, price float64) {
	if price <= 0 {
		return
	}
	s.mu.Lock()
	s.prices[symbol] = price
	s.mu.Unlock()
}

// finishCycle records equity, checks the daily loss switch, and publishes
// the cycle report.
func (s *Session) finishCycle(now time.Time, trades int) {
	s.mu.Lock()
	total := s.totalValueLocked()
	s.equity = append(s.equity, total)
	s.cycles++
	s.lastCycle = now

	dailyPnL := total - s.dayStart
	if !s.halted && s.riskMgr.DailyLossBreached(dailyPnL, total) {
		s.halted = true
		if s.bus != nil {
			s.bus.Publish(events.TopicRiskAlert, map[string]any{
				"daily_pnl":       dailyPnL,
				"portfolio_value": total,
			})
		}
	}
	halted := s.halted
	cycle := s.cycles
	s.mu.Unlock()

	s.logger.Info("cycle complete",
		zap.Int("cycle", cycle),
		zap.Float64("total_value", total),
		zap.Int("trades", trades),
		zap.Bool("halted", halted))

	if s.bus != nil {
		s.bus.Publish(events.TopicCycle, CycleReport{
			Cycle:      cycle,
			Time:       now,
			TotalValue: total,
			Trades:     trades,
			Halted:     halted,
		})
	}
}

// rollDay resets the daily loss tracking at the first cycle of a new UTC day.
func (s *Session) rollDay(now time.Time) {
	day := now.Truncate(24 * time.Hour)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !day.Equal(s.day) {
		s.day = day
		s.dayStart = s.totalValueLocked()
		s.halted = false
	}
}

// Snapshot returns the current portfolio view.
func (s *Session) Snapshot() Portfolio {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions := make(map[string]float64, len(s.positions))
	values := make(map[string]float64, len(s.positions))
	for symbol, shares := range s.positions {
		positions[symbol] = shares
		values[symbol] = shares * s.prices[symbol]
	}

	total := s.totalValueLocked()
	return Portfolio{
		Cash:       s.cash,
		Positions:  positions,
		Values:     values,
		TotalValue: total,
		DailyPnL:   total - s.dayStart,
		Halted:     s.halted,
		Cycles:     s.cycles,
		LastCycle:  s.lastCycle,
		Running:    s.running,
	}
}

// RiskSummary computes the aggregate risk view over the session's equity
// history and open positions.
func (s *Session) RiskSummary() risk.Summary {
	s.mu.Lock()
	equity := append([]float64(nil), s.equity...)
	positions := make(map[string]float64, len(s.positions))
	prices := make(map[string]float64, len(s.prices))
	for k, v := range s.positions {
		positions[k] = v
	}
	for k, v := range s.prices {
		prices[k] = v
	}
	s.mu.Unlock()

	return s.riskMgr.Summarize(equity, positions, prices)
}

// Running reports whether the loop is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Session) totalValueLocked() float64 {
	total := s.cash
	for symbol, shares := range s.positions {
		total += shares * s.prices[symbol]
	}
	return total
}

func (s *Session) watchlist() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.settings.Watchlist...)
}

func (s *Session) strategyConfig() strategy.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Strategy
}

func (s *Session) delays() (interval, backoff time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Interval, s.settings.ErrorBackoff
}
