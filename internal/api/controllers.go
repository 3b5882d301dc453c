package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"quantcore/internal/backtest"
	"quantcore/internal/engine"
	"quantcore/internal/market"
	"quantcore/internal/order"
	"quantcore/internal/strategy"
	"quantcore/pkg/db"
)

type backtestRequest struct {
	Symbols      []string           `json:"symbols" binding:"required,min=1"`
	Strategy     strategy.Config    `json:"strategy" binding:"required"`
	Start        string             `json:"start"` // YYYY-MM-DD, optional
	End          string             `json:"end"`   // YYYY-MM-DD, optional
	LookbackDays int                `json:"lookback_days"`
	InitialCash  float64            `json:"initial_cash"`
	Weights      map[string]float64 `json:"weights"`
	Timeframe    string             `json:"timeframe"`
}

type previewRequest struct {
	Symbol       string          `json:"symbol" binding:"required,min=1"`
	Strategy     strategy.Config `json:"strategy" binding:"required"`
	LookbackDays int             `json:"lookback_days"`
	Timeframe    string          `json:"timeframe"`
}

type configureRequest struct {
	Watchlist []string        `json:"watchlist" binding:"required,min=1"`
	Strategy  strategy.Config `json:"strategy" binding:"required"`
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func (r *backtestRequest) window() (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if r.End != "" {
		t, err := time.Parse("2006-01-02", r.End)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("end must be YYYY-MM-DD")
		}
		end = t
	}

	if r.Start != "" {
		t, err := time.Parse("2006-01-02", r.Start)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("start must be YYYY-MM-DD")
		}
		if !t.Before(end) {
			return time.Time{}, time.Time{}, errors.New("start must precede end")
		}
		return t, end, nil
	}

	lookback := r.LookbackDays
	if lookback <= 0 {
		lookback = 100
	}
	return end.AddDate(0, 0, -lookback), end, nil
}

// runBacktest fetches bars, generates signals, replays the simulation,
// persists the run, and returns the full result.
func (s *Server) runBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Strategy.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	start, end, err := req.window()
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	initialCash := req.InitialCash
	if initialCash <= 0 {
		initialCash = s.Defaults.InitialCash
	}
	timeframe := req.Timeframe
	if timeframe == "" {
		timeframe = "1d"
	}

	ctx := c.Request.Context()
	data := make(map[string]market.Series, len(req.Symbols))
	skipped := make(map[string]string)
	for _, symbol := range req.Symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		series, err := s.Provider.GetBars(ctx, symbol, start, end, timeframe)
		if errors.Is(err, market.ErrNoData) {
			skipped[symbol] = "no data"
			continue
		}
		if err != nil {
			respondError(c, http.StatusBadGateway, "market data unavailable: "+err.Error())
			return
		}
		data[symbol] = series
	}
	if len(data) == 0 {
		respondError(c, http.StatusBadRequest, "no market data for any requested symbol")
		return
	}

	signals, failed, err := strategy.GenerateAll(data, req.Strategy)
	for symbol, genErr := range failed {
		skipped[symbol] = genErr.Error()
		delete(data, symbol)
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(signals) == 0 {
		respondError(c, http.StatusBadRequest, "no symbol had enough history for the strategy")
		return
	}

	instruments := make(map[string]backtest.Instrument, len(signals))
	for symbol, sig := range signals {
		instruments[symbol] = backtest.Instrument{Series: data[symbol], Signals: sig}
	}

	result, err := backtest.Run(instruments, initialCash, req.Weights)
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	runID := s.persistRun(ctx, req, instruments, initialCash, result)

	c.JSON(http.StatusOK, gin.H{
		"run_id":        runID,
		"initial_cash":  initialCash,
		"final_value":   result.FinalValue(),
		"return_pct":    (result.FinalValue() - initialCash) / initialCash * 100,
		"metrics":       result.Metrics,
		"stats":         result.Stats,
		"trades":        result.Trades,
		"ledger":        result.Ledger,
		"skipped":       skipped,
		"symbols":       sortedKeys(instruments),
		"strategy_type": req.Strategy.Type,
	})
}

// persistRun stores the run; persistence failures are logged, not fatal.
func (s *Server) persistRun(ctx context.Context, req backtestRequest, instruments map[string]backtest.Instrument, initialCash float64, result *backtest.Result) string {
	if s.Store == nil {
		return ""
	}

	runID := uuid.NewString()
	params, _ := json.Marshal(req.Strategy.Parameters)

	run := db.Run{
		ID:           runID,
		Symbols:      strings.Join(sortedKeys(instruments), ","),
		StrategyType: req.Strategy.Type,
		Parameters:   string(params),
		InitialCash:  initialCash,
		FinalValue:   result.FinalValue(),
		SharpeRatio:  result.Metrics.SharpeRatio,
		MaxDrawdown:  result.Metrics.MaxDrawdown,
		WinRate:      result.Stats.WinRate,
		TotalTrades:  result.Stats.TotalTrades,
		CreatedAt:    time.Now().UTC(),
	}

	trades := make([]db.Trade, len(result.Trades))
	for i, t := range result.Trades {
		trades[i] = db.Trade{
			ID: t.ID, RunID: runID, Time: t.Time, Symbol: t.Symbol,
			Action: t.Action, Shares: t.Shares, Price: t.Price, Value: t.Value,
		}
	}
	ledger := make([]db.LedgerPoint, len(result.Ledger))
	for i, row := range result.Ledger {
		ledger[i] = db.LedgerPoint{
			RunID: runID, Time: row.Time, Cash: row.Cash,
			Holdings: row.Holdings, Total: row.Total,
		}
	}

	if err := s.Store.SaveRun(ctx, run, trades, ledger); err != nil {
		s.Logger.Warn("backtest run not persisted", zap.String("run_id", runID), zap.Error(err))
		return ""
	}
	return runID
}

func sortedKeys(instruments map[string]backtest.Instrument) []string {
	keys := make([]string, 0, len(instruments))
	for k := range instruments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Server) getStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": strategy.Available()})
}

// previewSignals returns the regime and event series for one symbol
// without running a simulation.
func (s *Server) previewSignals(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Strategy.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	lookback := req.LookbackDays
	if lookback <= 0 {
		lookback = 100
	}
	timeframe := req.Timeframe
	if timeframe == "" {
		timeframe = "1d"
	}

	end := time.Now().UTC()
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	series, err := s.Provider.GetBars(c.Request.Context(), symbol, end.AddDate(0, 0, -lookback), end, timeframe)
	if errors.Is(err, market.ErrNoData) {
		respondError(c, http.StatusNotFound, "no data for "+symbol)
		return
	}
	if err != nil {
		respondError(c, http.StatusBadGateway, "market data unavailable: "+err.Error())
		return
	}

	signals, err := strategy.Generate(series, req.Strategy)
	if errors.Is(err, strategy.ErrInsufficientData) {
		respondError(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	buys, sells := 0, 0
	for _, p := range signals.Points {
		switch {
		case p.Event > 0:
			buys++
		case p.Event < 0:
			sells++
		}
	}

	last, _ := signals.Last()
	c.JSON(http.StatusOK, gin.H{
		"symbol":      symbol,
		"points":      signals.Points,
		"last_event":  last.Event.String(),
		"last_close":  last.Close,
		"last_regime": last.Regime,
		"buy_events":  buys,
		"sell_events": sells,
	})
}

// startTrading launches a fresh live session with the server defaults.
func (s *Server) startTrading(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil && s.session.Running() {
		respondError(c, http.StatusConflict, "trading session already running")
		return
	}

	executor := order.NewPaperExecutor(s.Store, s.Bus, s.Logger)
	session := engine.NewSession(s.Provider, s.RiskMgr, executor, s.Bus, s.Logger, s.Defaults)

	ctx, cancel := context.WithCancel(context.Background())
	s.session = session
	s.cancel = cancel

	go func() {
		if err := session.Run(ctx); err != nil {
			s.Logger.Error("live session exited", zap.Error(err))
		}
	}()

	c.JSON(http.StatusOK, gin.H{
		"status":    "started",
		"watchlist": s.Defaults.Watchlist,
		"strategy":  s.Defaults.Strategy.Type,
	})
}

func (s *Server) stopTrading(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		respondError(c, http.StatusConflict, "no trading session running")
		return
	}
	s.cancel()
	s.cancel = nil

	c.JSON(http.StatusOK, gin.H{
		"status":    "stopped",
		"portfolio": s.session.Snapshot(),
	})
}

// configureTrading updates the watchlist and strategy, for the running
// session when there is one and for future sessions either way.
func (s *Server) configureTrading(c *gin.Context) {
	var req configureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Strategy.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	for i, symbol := range req.Watchlist {
		req.Watchlist[i] = strings.ToUpper(strings.TrimSpace(symbol))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.Defaults.Watchlist = req.Watchlist
	s.Defaults.Strategy = req.Strategy
	if s.session != nil {
		if err := s.session.Configure(req.Watchlist, req.Strategy); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "configured",
		"watchlist": req.Watchlist,
		"strategy":  req.Strategy.Type,
	})
}

func (s *Server) getPortfolio(c *gin.Context) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session == nil {
		c.JSON(http.StatusOK, engine.Portfolio{
			Cash:       s.Defaults.InitialCash,
			TotalValue: s.Defaults.InitialCash,
			Positions:  map[string]float64{},
			Values:     map[string]float64{},
		})
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) getRisk(c *gin.Context) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	resp := gin.H{"parameters": s.RiskMgr.Params()}
	if session != nil {
		resp["summary"] = session.RiskSummary()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listRuns(c *gin.Context) {
	if s.Store == nil {
		respondError(c, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	runs, err := s.Store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) getRun(c *gin.Context) {
	if s.Store == nil {
		respondError(c, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	id := c.Param("id")
	run, err := s.Store.GetRun(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		respondError(c, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	trades, err := s.Store.ListRunTrades(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	ledger, err := s.Store.ListRunLedger(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"run": run, "trades": trades, "ledger": ledger})
}
