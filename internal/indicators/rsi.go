package indicators

// RSI computes the Relative Strength Index over a rolling window of price
// deltas: RS = avg gain / avg loss, RSI = 100 - 100/(1+RS). When the average
// loss over the window is zero there was no price decline, so RSI is 100 by
// definition rather than an undefined division.
// The first `window` entries are invalid (the delta at index 0 does not exist).
func RSI(closes []float64, window int) Line {
	out := newLine(len(closes))
	if window <= 0 || len(closes) < 2 {
		return out
	}

	for i := window; i < len(closes); i++ {
		gain := 0.0
		loss := 0.0
		for j := i - window + 1; j <= i; j++ {
			change := closes[j] - closes[j-1]
			if change > 0 {
				gain += change
			} else {
				loss -= change
			}
		}
		gain /= float64(window)
		loss /= float64(window)

		out.Valid[i] = true
		if loss == 0 {
			out.Values[i] = 100
			continue
		}
		rs := gain / loss
		out.Values[i] = 100 - (100 / (1 + rs))
	}
	return out
}
