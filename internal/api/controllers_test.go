package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"quantcore/internal/engine"
	"quantcore/internal/events"
	"quantcore/internal/market"
	"quantcore/internal/risk"
	"quantcore/internal/strategy"
	"quantcore/pkg/db"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	defaults := engine.Settings{
		Watchlist: []string{"AAPL"},
		Strategy: strategy.Config{
			Type:       strategy.TypeSMACross,
			Parameters: map[string]any{"short_window": 5, "long_window": 15},
		},
		InitialCash: 10000,
		Interval:    time.Hour, // one cycle per test session
	}

	srv := NewServer(
		events.NewBus(),
		store,
		risk.NewManager(risk.DefaultParameters(), nil),
		&market.MockProvider{},
		defaults,
		nil,
		Options{},
	)
	t.Cleanup(srv.StopSession)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestGetStrategies(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/strategies", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Strategies []strategy.Description `json:"strategies"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Strategies) != 4 {
		t.Errorf("got %d strategies, want 4", len(resp.Strategies))
	}
}

func TestRunBacktest(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/backtest", map[string]any{
		"symbols": []string{"AAPL", "MSFT"},
		"strategy": map[string]any{
			"type":       strategy.TypeSMACross,
			"parameters": map[string]any{"short_window": 5, "long_window": 15},
		},
		"lookback_days": 100,
		"initial_cash":  10000,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		RunID      string   `json:"run_id"`
		FinalValue float64  `json:"final_value"`
		Symbols    []string `json:"symbols"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RunID == "" {
		t.Error("run was not persisted")
	}
	if resp.FinalValue <= 0 {
		t.Errorf("final value = %v, want positive", resp.FinalValue)
	}
	if len(resp.Symbols) != 2 {
		t.Errorf("symbols = %v, want both", resp.Symbols)
	}

	// The persisted run is retrievable with its trades and ledger.
	w = doJSON(t, srv, http.MethodGet, "/api/runs/"+resp.RunID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get run status = %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/runs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list runs status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), resp.RunID) {
		t.Error("run missing from list")
	}
}

func TestRunBacktestRejectsBadConfig(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "short window not below long",
			body: map[string]any{
				"symbols": []string{"AAPL"},
				"strategy": map[string]any{
					"type":       strategy.TypeSMACross,
					"parameters": map[string]any{"short_window": 50, "long_window": 20},
				},
			},
		},
		{
			name: "unknown strategy type",
			body: map[string]any{
				"symbols":  []string{"AAPL"},
				"strategy": map[string]any{"type": "astrology"},
			},
		},
		{
			name: "no symbols",
			body: map[string]any{
				"symbols":  []string{},
				"strategy": map[string]any{"type": strategy.TypeSMACross},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, srv, http.MethodPost, "/api/backtest", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestPreviewSignals(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/signals/preview", map[string]any{
		"symbol": "aapl",
		"strategy": map[string]any{
			"type":       strategy.TypeRSI,
			"parameters": map[string]any{"window": 14},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Symbol    string `json:"symbol"`
		LastEvent string `json:"last_event"`
		Points    []any  `json:"points"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Symbol != "AAPL" {
		t.Errorf("symbol = %s, want normalized AAPL", resp.Symbol)
	}
	switch resp.LastEvent {
	case "BUY", "SELL", "HOLD":
	default:
		t.Errorf("last_event = %q", resp.LastEvent)
	}
	if len(resp.Points) == 0 {
		t.Error("no signal points returned")
	}
}

func TestTradingLifecycle(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/trading/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d, body = %s", w.Code, w.Body.String())
	}

	// Give the loop a moment to mark itself running.
	time.Sleep(50 * time.Millisecond)

	w = doJSON(t, srv, http.MethodPost, "/api/trading/start", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("second start status = %d, want 409", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/trading/portfolio", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("portfolio status = %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodPost, "/api/trading/configure", map[string]any{
		"watchlist": []string{"msft", "googl"},
		"strategy": map[string]any{
			"type":       strategy.TypeRSI,
			"parameters": map[string]any{"window": 10},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("configure status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "MSFT") {
		t.Error("watchlist symbols not normalized to upper case")
	}

	w = doJSON(t, srv, http.MethodPost, "/api/trading/stop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stop status = %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodPost, "/api/trading/stop", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("second stop status = %d, want 409", w.Code)
	}
}

func TestConfigureRejectsInvalidStrategy(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/trading/configure", map[string]any{
		"watchlist": []string{"AAPL"},
		"strategy": map[string]any{
			"type":       strategy.TypeRSI,
			"parameters": map[string]any{"window": -3},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/runs/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetRisk(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/risk", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "max_position_fraction") {
		t.Errorf("parameters missing from response: %s", w.Body.String())
	}
}
