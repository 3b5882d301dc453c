package market

import (
	"context"
	"time"
)

// Provider supplies historical OHLCV series. Implementations must return
// ErrNoData when the symbol/range has no bars and ErrUnavailable when the
// upstream source cannot be reached, so callers can tell a data gap from an
// outage.
type Provider interface {
	GetBars(ctx context.Context, symbol string, start, end time.Time, timeframe string) (Series, error)
}
