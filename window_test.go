package vocana

import (
	"math"
	"testing"
)

func TestHannWindowCOLA(t *testing.T) {
	n := 960
	hop := n / 2
	w := hannWindow(n)

	// w is root-Hann, so w[i]^2 is the plain periodic Hann window;
	// summed at 50% hop it satisfies the classic Hann COLA identity
	// and is exactly 1 over the interior away from the edges.
	frames := 8
	total := make([]float64, frames*hop+n)
	for f := 0; f < frames; f++ {
		start := f * hop
		for i := 0; i < n; i++ {
			total[start+i] += w[i] * w[i]
		}
	}

	mid := len(total) / 2
	ref := total[mid]
	if math.Abs(ref-1.0) > 1e-9 {
		t.Fatalf("expected window-sum constant to equal 1, got %v", ref)
	}
	for i := n; i < len(total)-n; i++ {
		if math.Abs(total[i]-ref) > 1e-5 {
			t.Fatalf("window-sum not constant at %d: got %v want %v", i, total[i], ref)
		}
	}
}

func TestHannWindowShape(t *testing.T) {
	w := hannWindow(8)
	if w[0] != 0 {
		t.Fatalf("expected w[0] == 0, got %v", w[0])
	}
	for _, v := range w {
		if v < 0 || v > 1 {
			t.Fatalf("hann sample out of [0,1]: %v", v)
		}
	}
}
