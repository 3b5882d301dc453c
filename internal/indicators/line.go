// Package indicators provides stateless rolling and exponential computations
// over a close-price series. Every function returns output aligned 1:1 with
// its input; entries inside the warm-up span are flagged invalid instead of
// being reported as zero.
package indicators

// Line is an indicator output aligned with its input series. Valid[i]
// reports whether enough history existed at index i.
type Line struct {
	Values []float64
	Valid  []bool
}

func newLine(n int) Line {
	return Line{
		Values: make([]float64, n),
		Valid:  make([]bool, n),
	}
}

// At returns the value at i and whether it is inside the valid span.
func (l Line) At(i int) (float64, bool) {
	if i < 0 || i >= len(l.Values) || !l.Valid[i] {
		return 0, false
	}
	return l.Values[i], true
}

// Len returns the number of points in the line.
func (l Line) Len() int { return len(l.Values) }
