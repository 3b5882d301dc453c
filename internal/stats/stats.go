// Package stats holds the numeric routines shared by the backtester and the
// risk manager: returns, annualized Sharpe, drawdown, and value-at-risk.
// Every function tolerates empty input and degenerate distributions by
// returning 0 instead of dividing by zero.
package stats

import (
	"math"
	"sort"
)

// TradingDaysPerYear is the annualization factor for daily returns.
const TradingDaysPerYear = 252

// Returns computes period-over-period percentage changes of a value series.
// The result has len(values)-1 entries; zero-valued denominators are skipped.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		out = append(out, (values[i]-values[i-1])/values[i-1])
	}
	return out
}

// Mean returns the arithmetic mean, 0 for empty input.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the sample standard deviation (n-1 denominator),
// 0 when fewer than two samples exist.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := Mean(xs)
	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(xs)-1))
}

// SharpeRatio annualizes mean/stddev of daily returns by sqrt(252).
// Empty or zero-variance input yields 0.
func SharpeRatio(returns []float64) float64 {
	sd := StdDev(returns)
	if sd == 0 {
		return 0
	}
	return Mean(returns) / sd * math.Sqrt(TradingDaysPerYear)
}

// AnnualizedVolatility scales the sample stddev of daily returns by sqrt(252).
func AnnualizedVolatility(returns []float64) float64 {
	return StdDev(returns) * math.Sqrt(TradingDaysPerYear)
}

// MaxDrawdown returns the largest peak-to-trough decline of a value series
// as a fraction of the running peak. Empty or monotonically non-decreasing
// input yields 0.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// VaR95 returns the 5th percentile of the return distribution using linear
// interpolation between order statistics, 0 for empty input.
func VaR95(returns []float64) float64 {
	return Percentile(returns, 0.05)
}

// Percentile computes the q-th quantile (0..1) with linear interpolation.
func Percentile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
