// Package api exposes the HTTP surface: backtests, signal previews, the
// live session lifecycle, risk views, persisted runs, and the event stream.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quantcore/internal/engine"
	"quantcore/internal/events"
	"quantcore/internal/market"
	"quantcore/internal/risk"
	"quantcore/pkg/db"
)

// Server wires HTTP endpoints around the engine.
type Server struct {
	Router   *gin.Engine
	Bus      *events.Bus
	Store    *db.Store
	RiskMgr  *risk.Manager
	Provider market.Provider
	Logger   *zap.Logger
	Defaults engine.Settings

	mu      sync.Mutex
	session *engine.Session
	cancel  context.CancelFunc
}

// Options carries the server's tunables.
type Options struct {
	RateLimitRPS float64
	Timeout      time.Duration
}

// NewServer builds the router with the full middleware stack and routes.
func NewServer(bus *events.Bus, store *db.Store, riskMgr *risk.Manager, provider market.Provider, defaults engine.Settings, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(newIPLimiters(opts.RateLimitRPS, 0), logger))
	r.Use(TimeoutMiddleware(opts.Timeout))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:   r,
		Bus:      bus,
		Store:    store,
		RiskMgr:  riskMgr,
		Provider: provider,
		Logger:   logger,
		Defaults: defaults,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.POST("/backtest", s.runBacktest)
		api.GET("/strategies", s.getStrategies)
		api.POST("/signals/preview", s.previewSignals)

		api.POST("/trading/start", s.startTrading)
		api.POST("/trading/stop", s.stopTrading)
		api.POST("/trading/configure", s.configureTrading)
		api.GET("/trading/portfolio", s.getPortfolio)

		api.GET("/risk", s.getRisk)
		api.GET("/runs", s.listRuns)
		api.GET("/runs/:id", s.getRun)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}

// StopSession cancels any running live session; used on shutdown.
func (s *Server) StopSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
