package vocana

import (
	"math"
	"testing"
)

func TestERBScaleRoundtrip(t *testing.T) {
	for _, f := range []float64{50, 200, 1000, 4000, 16000} {
		erb := ToERBScale(f)
		back := FromERBScale(erb)
		if math.Abs(back-f) > 1e-6 {
			t.Fatalf("freq %v: roundtrip got %v", f, back)
		}
	}
}

func TestERBFilterbankRowsSumToOne(t *testing.T) {
	cfg := DefaultConfig()
	fb := NewERBFilterbank(cfg)
	if fb.Bands() != cfg.ERBBands {
		t.Fatalf("expected %d bands, got %d", cfg.ERBBands, fb.Bands())
	}
	for b, row := range fb.rows {
		var sum float64
		for _, v := range row {
			sum += v
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Fatalf("row %d: sum = %v, want 1", b, sum)
		}
	}
}

func TestERBFilterbankCentersIncrease(t *testing.T) {
	cfg := DefaultConfig()
	fb := NewERBFilterbank(cfg)
	for i := 1; i < len(fb.centers); i++ {
		if fb.centers[i] <= fb.centers[i-1] {
			t.Fatalf("centers not strictly increasing at %d: %v <= %v", i, fb.centers[i], fb.centers[i-1])
		}
	}
}

func TestERBExtractBinMismatchYieldsZeroRow(t *testing.T) {
	cfg := DefaultConfig()
	fb := NewERBFilterbank(cfg)

	re := [][]float64{make([]float64, fb.bins-1)}
	im := [][]float64{make([]float64, fb.bins-1)}
	out := fb.Extract(re, im)
	if len(out) != 1 || len(out[0]) != fb.bands {
		t.Fatalf("unexpected extract shape")
	}
	for _, v := range out[0] {
		if v != 0 {
			t.Fatalf("expected zero row on bin mismatch, got %v", v)
		}
	}
}

func TestNormalizeERBZeroMeanUnitScale(t *testing.T) {
	e := [][]float64{{1, 2, 3, 4}}
	out := NormalizeERB(e, 1.0)

	var mean float64
	for _, v := range out[0] {
		mean += v
	}
	mean /= float64(len(out[0]))
	if math.Abs(mean) > 1e-9 {
		t.Fatalf("expected ~zero mean, got %v", mean)
	}
}
