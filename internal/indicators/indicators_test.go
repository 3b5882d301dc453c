package indicators

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	line := SMA(closes, 3)

	if _, ok := line.At(0); ok {
		t.Error("index 0 should be inside warm-up")
	}
	if _, ok := line.At(1); ok {
		t.Error("index 1 should be inside warm-up")
	}

	want := []float64{2, 3, 4} // means of {1,2,3}, {2,3,4}, {3,4,5}
	for i, w := range want {
		got, ok := line.At(i + 2)
		if !ok {
			t.Fatalf("index %d should be valid", i+2)
		}
		if !almostEqual(got, w) {
			t.Errorf("SMA[%d] = %v, want %v", i+2, got, w)
		}
	}
}

func TestSMAWindowOne(t *testing.T) {
	closes := []float64{7, 8, 9}
	line := SMA(closes, 1)
	for i, c := range closes {
		got, ok := line.At(i)
		if !ok || got != c {
			t.Errorf("SMA(1)[%d] = %v/%v, want %v/true", i, got, ok, c)
		}
	}
}

func TestEMA(t *testing.T) {
	closes := []float64{10, 20, 30}
	line := EMA(closes, 2) // alpha = 2/3, seeded with 10

	// index 0: 10; index 1: 2/3*20 + 1/3*10 = 50/3; index 2: 2/3*30 + 1/3*50/3
	want := []float64{10, 50.0 / 3, 2.0/3*30 + 1.0/3*50/3}
	for i, w := range want {
		if !almostEqual(line.Values[i], w) {
			t.Errorf("EMA[%d] = %v, want %v", i, line.Values[i], w)
		}
	}
	if line.Valid[0] {
		t.Error("index 0 should be warm-up for span 2")
	}
	if !line.Valid[1] || !line.Valid[2] {
		t.Error("indices 1 and 2 should be valid")
	}
}

func TestRSI(t *testing.T) {
	t.Run("all gains yields 100", func(t *testing.T) {
		line := RSI([]float64{1, 2, 3, 4, 5}, 2)
		got, ok := line.At(4)
		if !ok || got != 100 {
			t.Errorf("RSI = %v/%v, want 100/true", got, ok)
		}
	})

	t.Run("all losses yields 0", func(t *testing.T) {
		line := RSI([]float64{5, 4, 3, 2, 1}, 2)
		got, ok := line.At(4)
		if !ok || got != 0 {
			t.Errorf("RSI = %v/%v, want 0/true", got, ok)
		}
	})

	t.Run("balanced gains and losses yields 50", func(t *testing.T) {
		// Deltas over window 2 at index 2: +1 then -1.
		line := RSI([]float64{10, 11, 10}, 2)
		got, ok := line.At(2)
		if !ok || !almostEqual(got, 50) {
			t.Errorf("RSI = %v/%v, want 50/true", got, ok)
		}
	})

	t.Run("warm-up spans window indices", func(t *testing.T) {
		line := RSI([]float64{1, 2, 3, 4, 5}, 3)
		for i := 0; i < 3; i++ {
			if line.Valid[i] {
				t.Errorf("index %d should be invalid", i)
			}
		}
		if !line.Valid[3] {
			t.Error("index 3 should be valid")
		}
	})
}

func TestMACDValiditySpans(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	res := MACD(closes, 12, 26, 9)

	if res.MACD.Valid[24] {
		t.Error("MACD should be invalid before the slow EMA warms up")
	}
	if !res.MACD.Valid[25] {
		t.Error("MACD should be valid once the slow EMA warms up")
	}

	warm := 26 + 9 - 2
	if res.Signal.Valid[warm-1] {
		t.Errorf("signal should be invalid at %d", warm-1)
	}
	if !res.Signal.Valid[warm] || !res.Histogram.Valid[warm] {
		t.Errorf("signal and histogram should be valid at %d", warm)
	}

	for i := range closes {
		if !almostEqual(res.Histogram.Values[i], res.MACD.Values[i]-res.Signal.Values[i]) {
			t.Fatalf("histogram[%d] != macd - signal", i)
		}
	}
}

func TestMACDRisingTrendIsPositive(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 * math.Pow(1.01, float64(i))
	}
	res := MACD(closes, 12, 26, 9)

	last := len(closes) - 1
	if v, ok := res.MACD.At(last); !ok || v <= 0 {
		t.Errorf("MACD on a rising series = %v/%v, want positive", v, ok)
	}
}

func TestBollinger(t *testing.T) {
	closes := []float64{10, 10, 10, 10, 10}
	b := Bollinger(closes, 3, 2)

	// Flat series: zero deviation, all bands collapse onto the mean.
	for i := 2; i < len(closes); i++ {
		mid, ok := b.Middle.At(i)
		if !ok || mid != 10 {
			t.Fatalf("middle[%d] = %v/%v", i, mid, ok)
		}
		up, _ := b.Upper.At(i)
		lo, _ := b.Lower.At(i)
		if up != 10 || lo != 10 {
			t.Errorf("bands[%d] = %v/%v, want collapsed at 10", i, up, lo)
		}
	}
}

func TestBollingerSpread(t *testing.T) {
	closes := []float64{10, 20, 30}
	b := Bollinger(closes, 3, 2)

	// mean 20, sample stddev of {10,20,30} = 10.
	up, ok := b.Upper.At(2)
	if !ok || !almostEqual(up, 40) {
		t.Errorf("upper = %v/%v, want 40", up, ok)
	}
	lo, ok := b.Lower.At(2)
	if !ok || !almostEqual(lo, 0) {
		t.Errorf("lower = %v/%v, want 0", lo, ok)
	}
	if b.Upper.Valid[1] {
		t.Error("bands should be invalid inside warm-up")
	}
}

func TestEmptyInputs(t *testing.T) {
	for name, line := range map[string]Line{
		"sma":  SMA(nil, 5),
		"ema":  EMA(nil, 5),
		"rsi":  RSI(nil, 5),
		"std":  rollingStdDev(nil, 5),
		"zero": SMA([]float64{1, 2}, 0),
	} {
		if line.Len() > 2 {
			t.Errorf("%s: unexpected length %d", name, line.Len())
		}
		for i := 0; i < line.Len(); i++ {
			if line.Valid[i] {
				t.Errorf("%s: index %d should be invalid", name, i)
			}
		}
	}
}
