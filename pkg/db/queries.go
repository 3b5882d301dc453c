package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveRun writes a run summary plus its trades and ledger in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, trades []Trade, ledger []LedgerPoint) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs
			(id, symbols, strategy_type, parameters, initial_cash, final_value,
			 sharpe_ratio, max_drawdown, win_rate, total_trades, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Symbols, run.StrategyType, run.Parameters, run.InitialCash,
		run.FinalValue, run.SharpeRatio, run.MaxDrawdown, run.WinRate,
		run.TotalTrades, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, t := range trades {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO backtest_trades (id, run_id, ts, symbol, action, shares, price, value)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, run.ID, t.Time, t.Symbol, t.Action, t.Shares, t.Price, t.Value)
		if err != nil {
			return fmt.Errorf("insert trade: %w", err)
		}
	}

	for _, p := range ledger {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO backtest_ledger (run_id, ts, cash, holdings, total)
			VALUES (?, ?, ?, ?, ?)`,
			run.ID, p.Time, p.Cash, p.Holdings, p.Total)
		if err != nil {
			return fmt.Errorf("insert ledger row: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun returns one run by id, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, symbols, strategy_type, parameters, initial_cash, final_value,
		       sharpe_ratio, max_drawdown, win_rate, total_trades, created_at
		FROM backtest_runs WHERE id = ?`, id).Scan(
		&r.ID, &r.Symbols, &r.StrategyType, &r.Parameters, &r.InitialCash,
		&r.FinalValue, &r.SharpeRatio, &r.MaxDrawdown, &r.WinRate,
		&r.TotalTrades, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, symbols, strategy_type, parameters, initial_cash, final_value,
		       sharpe_ratio, max_drawdown, win_rate, total_trades, created_at
		FROM backtest_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Symbols, &r.StrategyType, &r.Parameters,
			&r.InitialCash, &r.FinalValue, &r.SharpeRatio, &r.MaxDrawdown,
			&r.WinRate, &r.TotalTrades, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListRunTrades returns a run's trades in execution order.
func (s *Store) ListRunTrades(ctx context.Context, runID string) ([]Trade, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, run_id, ts, symbol, action, shares, price, value
		FROM backtest_trades WHERE run_id = ? ORDER BY ts`, runID)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		var t Trade
		if err := rows.Scan(&t.ID, &t.RunID, &t.Time, &t.Symbol, &t.Action,
			&t.Shares, &t.Price, &t.Value); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ListRunLedger returns a run's portfolio value history in time order.
func (s *Store) ListRunLedger(ctx context.Context, runID string) ([]LedgerPoint, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT run_id, ts, cash, holdings, total
		FROM backtest_ledger WHERE run_id = ? ORDER BY ts`, runID)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var points []LedgerPoint
	for rows.Next() {
		var p LedgerPoint
		if err := rows.Scan(&p.RunID, &p.Time, &p.Cash, &p.Holdings, &p.Total); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// InsertFill records an executed paper order.
func (s *Store) InsertFill(ctx context.Context, f Fill) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO fills (order_id, symbol, side, qty, price, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.OrderID, f.Symbol, f.Side, f.Qty, f.Price, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert fill: %w", err)
	}
	return nil
}

// ListFills returns the most recent fills, newest first.
func (s *Store) ListFills(ctx context.Context, limit int) ([]Fill, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT order_id, symbol, side, qty, price, created_at
		FROM fills ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list fills: %w", err)
	}
	defer rows.Close()

	var fills []Fill
	for rows.Next() {
		var f Fill
		if err := rows.Scan(&f.OrderID, &f.Symbol, &f.Side, &f.Qty, &f.Price, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fill: %w", err)
		}
		fills = append(fills, f)
	}
	return fills, rows.Err()
}
