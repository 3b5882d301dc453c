package indicators

// MACDResult bundles the MACD line, its signal line, and the histogram.
type MACDResult struct {
	MACD      Line
	Signal    Line
	Histogram Line
}

// MACD computes MACD = EMA(fast) - EMA(slow), the signal line as an EMA of
// the MACD over signalSpan, and the histogram as MACD - signal. The MACD
// line becomes valid with the slow EMA; the signal line and histogram need
// signalSpan-1 additional points.
func MACD(closes []float64, fast, slow, signalSpan int) MACDResult {
	n := len(closes)
	res := MACDResult{
		MACD:      newLine(n),
		Signal:    newLine(n),
		Histogram: newLine(n),
	}
	if fast <= 0 || slow <= 0 || signalSpan <= 0 || n == 0 {
		return res
	}

	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	for i := 0; i < n; i++ {
		res.MACD.Values[i] = fastEMA.Values[i] - slowEMA.Values[i]
		res.MACD.Valid[i] = fastEMA.Valid[i] && slowEMA.Valid[i]
	}

	signal := EMA(res.MACD.Values, signalSpan)
	warm := slow + signalSpan - 2
	for i := 0; i < n; i++ {
		res.Signal.Values[i] = signal.Values[i]
		res.Signal.Valid[i] = i >= warm
		res.Histogram.Values[i] = res.MACD.Values[i] - signal.Values[i]
		res.Histogram.Valid[i] = res.Signal.Valid[i]
	}
	return res
}
