package indicators

import "math"

// SMA computes the simple moving average of the trailing window closes.
// The first window-1 entries are invalid.
func SMA(closes []float64, window int) Line {
	out := newLine(len(closes))
	if window <= 0 {
		return out
	}

	sum := 0.0
	for i, c := range closes {
		sum += c
		if i >= window {
			sum -= closes[i-window]
		}
		if i >= window-1 {
			out.Values[i] = sum / float64(window)
			out.Valid[i] = true
		}
	}
	return out
}

// EMA computes an exponential moving average with smoothing factor
// 2/(span+1), seeded with the first close. Entries before span-1 are
// treated as warm-up and flagged invalid.
func EMA(closes []float64, span int) Line {
	out := newLine(len(closes))
	if span <= 0 || len(closes) == 0 {
		return out
	}

	alpha := 2.0 / (float64(span) + 1.0)
	ema := closes[0]
	for i, c := range closes {
		if i > 0 {
			ema = alpha*c + (1-alpha)*ema
		}
		out.Values[i] = ema
		out.Valid[i] = i >= span-1
	}
	return out
}

// rollingStdDev computes the trailing sample standard deviation (n-1
// denominator, matching the convention of the statistics module) over
// window closes. Invalid before window-1; zero when window < 2.
func rollingStdDev(closes []float64, window int) Line {
	out := newLine(len(closes))
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(closes); i++ {
		out.Valid[i] = true
		if window < 2 {
			continue
		}
		start := i - window + 1
		mean := 0.0
		for _, c := range closes[start : i+1] {
			mean += c
		}
		mean /= float64(window)

		variance := 0.0
		for _, c := range closes[start : i+1] {
			d := c - mean
			variance += d * d
		}
		out.Values[i] = math.Sqrt(variance / float64(window-1))
	}
	return out
}
