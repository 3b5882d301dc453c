package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client fetches OHLCV bars from a REST data service.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient builds a rate-limited REST client.
func NewClient(baseURL, apiKey string, rps float64, logger *zap.Logger) *Client {
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		logger:     logger,
	}
}

type barRow struct {
	Time   int64   `json:"t"` // unix seconds
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
}

// GetBars fetches bars for symbol in [start, end]. A reachable service with
// an empty result maps to ErrNoData; transport failures map to ErrUnavailable.
func (c *Client) GetBars(ctx context.Context, symbol string, start, end time.Time, timeframe string) (Series, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Series{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("start", start.UTC().Format(time.RFC3339))
	params.Set("end", end.UTC().Format(time.RFC3339))
	if timeframe != "" {
		params.Set("timeframe", timeframe)
	}

	u := fmt.Sprintf("%s/v1/bars?%s", c.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Series{}, err
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return Series{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return Series{}, fmt.Errorf("%s %s..%s: %w", symbol, start.Format("2006-01-02"), end.Format("2006-01-02"), ErrNoData)
	case res.StatusCode != http.StatusOK:
		return Series{}, fmt.Errorf("%w: bars status %d", ErrUnavailable, res.StatusCode)
	}

	var rows []barRow
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return Series{}, fmt.Errorf("%w: decode bars: %v", ErrUnavailable, err)
	}
	if len(rows) == 0 {
		return Series{}, fmt.Errorf("%s %s..%s: %w", symbol, start.Format("2006-01-02"), end.Format("2006-01-02"), ErrNoData)
	}

	s := Series{Symbol: symbol, Bars: make([]Bar, 0, len(rows))}
	for _, r := range rows {
		s.Bars = append(s.Bars, Bar{
			Time:   time.Unix(r.Time, 0).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}

	if err := s.Validate(); err != nil {
		return Series{}, err
	}
	if c.logger != nil {
		c.logger.Debug("fetched bars", zap.String("symbol", symbol), zap.Int("count", len(s.Bars)))
	}
	return s, nil
}
