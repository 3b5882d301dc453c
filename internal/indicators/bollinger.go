package indicators

// Bands holds the three Bollinger lines.
type Bands struct {
	Middle Line
	Upper  Line
	Lower  Line
}

// Bollinger computes middle = SMA(window) and upper/lower bands at
// middle ± numStd * rolling standard deviation over the same window.
func Bollinger(closes []float64, window int, numStd float64) Bands {
	n := len(closes)
	b := Bands{
		Middle: SMA(closes, window),
		Upper:  newLine(n),
		Lower:  newLine(n),
	}

	std := rollingStdDev(closes, window)
	for i := 0; i < n; i++ {
		if !b.Middle.Valid[i] || !std.Valid[i] {
			continue
		}
		spread := numStd * std.Values[i]
		b.Upper.Values[i] = b.Middle.Values[i] + spread
		b.Upper.Valid[i] = true
		b.Lower.Values[i] = b.Middle.Values[i] - spread
		b.Lower.Valid[i] = true
	}
	return b
}
