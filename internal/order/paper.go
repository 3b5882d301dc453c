package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quantcore/internal/events"
	"quantcore/pkg/db"
)

// PaperExecutor fills every order immediately at the request's reference
// price. Fills are persisted and published on the bus so the rest of the
// system exercises the same paths as a real venue would.
type PaperExecutor struct {
	store  *db.Store
	bus    *events.Bus
	logger *zap.Logger
}

// NewPaperExecutor builds a paper executor; store and bus may be nil in tests.
func NewPaperExecutor(store *db.Store, bus *events.Bus, logger *zap.Logger) *PaperExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaperExecutor{store: store, bus: bus, logger: logger}
}

// Submit simulates an immediate fill.
func (p *PaperExecutor) Submit(ctx context.Context, req Request) (Fill, error) {
	side := strings.ToUpper(req.Side)
	if side != "BUY" && side != "SELL" {
		return Fill{}, fmt.Errorf("paper executor: invalid side %q", req.Side)
	}
	if req.Qty <= 0 {
		return Fill{}, fmt.Errorf("paper executor: quantity must be positive, got %v", req.Qty)
	}
	if req.Price <= 0 {
		return Fill{}, fmt.Errorf("paper executor: missing reference price for %s", req.Symbol)
	}

	fill := Fill{
		OrderID: uuid.NewString(),
		Symbol:  req.Symbol,
		Side:    side,
		Qty:     req.Qty,
		Price:   req.Price,
		Time:    time.Now().UTC(),
	}

	if p.store != nil {
		rec := db.Fill{
			OrderID:   fill.OrderID,
			Symbol:    fill.Symbol,
			Side:      fill.Side,
			Qty:       fill.Qty,
			Price:     fill.Price,
			CreatedAt: fill.Time,
		}
		if err := p.store.InsertFill(ctx, rec); err != nil {
			// Persistence problems must not block the simulated fill.
			p.logger.Warn("paper fill not persisted", zap.Error(err))
		}
	}

	if p.bus != nil {
		p.bus.Publish(events.TopicOrderFilled, fill)
	}

	p.logger.Info("paper fill",
		zap.String("order_id", fill.OrderID),
		zap.String("symbol", fill.Symbol),
		zap.String("side", fill.Side),
		zap.Float64("qty", fill.Qty),
		zap.Float64("price", fill.Price))

	return fill, nil
}
