// Package order defines the order-execution boundary. The engine only ever
// talks to the Executor interface; the risk gate has already run by the
// time a Request reaches it.
package order

import (
	"context"
	"time"
)

// Request is a validated, sized order handed to an executor.
type Request struct {
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"` // BUY or SELL
	Qty         float64 `json:"qty"`
	Price       float64 `json:"price"` // reference price for simulated fills
	TimeInForce string  `json:"time_in_force"`
}

// Fill confirms an executed order.
type Fill struct {
	OrderID string    `json:"order_id"`
	Symbol  string    `json:"symbol"`
	Side    string    `json:"side"`
	Qty     float64   `json:"qty"`
	Price   float64   `json:"price"`
	Time    time.Time `json:"time"`
}

// Executor submits orders to an execution venue. Errors are transient from
// the engine's perspective: the cycle logs, backs off, and retries later;
// they never corrupt engine state.
type Executor interface {
	Submit(ctx context.Context, req Request) (Fill, error)
}
