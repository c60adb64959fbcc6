package vocana

import (
	"math"
	"testing"
)

func TestMaskFromTensorShapeMismatch(t *testing.T) {
	tn := Tensor{Shape: []int64{4}, Data: []float32{1, 2, 3, 4}}
	if _, err := MaskFromTensor(tn, 2, 3); !Is(err, ErrorKindShapeMismatch) {
		t.Fatalf("expected ErrorKindShapeMismatch, got %v", err)
	}
}

func TestDFCoefficientsFromTensorShapeMismatch(t *testing.T) {
	tn := Tensor{Shape: []int64{6}, Data: make([]float32, 6)}
	if _, err := DFCoefficientsFromTensor(tn, 1, 2, 5); !Is(err, ErrorKindShapeMismatch) {
		t.Fatalf("expected ErrorKindShapeMismatch, got %v", err)
	}
}

func TestApplyDeepFilterIdentityPreservesSpectrum(t *testing.T) {
	tTotal, k, bands, order := 3, 4, 2, 5
	spec := Spectrum{T: tTotal, K: k, Re: make([][]float64, tTotal), Im: make([][]float64, tTotal)}
	for frame := 0; frame < tTotal; frame++ {
		spec.Re[frame] = []float64{1, 2, 3, 4}
		spec.Im[frame] = []float64{0.1, 0.2, 0.3, 0.4}
	}
	wantRe0, wantIm0 := spec.Re[1][0], spec.Im[1][0]

	mask := Mask{T: tTotal, K: k, Gain: make([][]float64, tTotal)}
	for frame := range mask.Gain {
		mask.Gain[frame] = []float64{1, 1, 1, 1}
	}

	center := order / 2
	taps := make([][][]float64, tTotal)
	for frame := range taps {
		bandTaps := make([][]float64, bands)
		for b := range bandTaps {
			row := make([]float64, order)
			row[center] = 1
			bandTaps[b] = row
		}
		taps[frame] = bandTaps
	}
	coefs := DFCoefficients{T: tTotal, Bands: bands, Order: order, Taps: taps}

	if err := ApplyDeepFilter(spec, mask, coefs, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(spec.Re[1][0]-wantRe0) > 1e-9 || math.Abs(spec.Im[1][0]-wantIm0) > 1e-9 {
		t.Fatalf("identity filter should preserve interior frame: got (%v,%v) want (%v,%v)",
			spec.Re[1][0], spec.Im[1][0], wantRe0, wantIm0)
	}
	// Bins beyond coefs.Bands are masked but not deep-filtered.
	if spec.Re[1][3] != 4 {
		t.Fatalf("expected bin beyond df_bands to be left at masked value 4, got %v", spec.Re[1][3])
	}
}

func TestApplyDeepFilterSingleFrameCollapsesToCenterTap(t *testing.T) {
	k, bands, order := 2, 1, 5
	spec := Spectrum{T: 1, K: k, Re: [][]float64{{5, 7}}, Im: [][]float64{{0, 0}}}
	mask := Mask{T: 1, K: k, Gain: [][]float64{{1, 1}}}

	taps := make([]float64, order)
	for i := range taps {
		taps[i] = 1 // every tap weight 1; only the center tap has a valid neighbor for T=1
	}
	coefs := DFCoefficients{T: 1, Bands: bands, Order: order, Taps: [][][]float64{{taps}}}

	if err := ApplyDeepFilter(spec, mask, coefs, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Re[0][0] != 5 {
		t.Fatalf("expected single-frame deep filter to collapse to the center tap value 5, got %v", spec.Re[0][0])
	}
}

func TestApplyDeepFilterShapeMismatch(t *testing.T) {
	spec := Spectrum{T: 1, K: 2, Re: [][]float64{{1, 2}}, Im: [][]float64{{0, 0}}}
	mask := Mask{T: 2, K: 2, Gain: [][]float64{{1, 1}, {1, 1}}}
	coefs := DFCoefficients{T: 1, Bands: 1, Order: 1, Taps: [][][]float64{{{1}}}}

	if err := ApplyDeepFilter(spec, mask, coefs, false); !Is(err, ErrorKindShapeMismatch) {
		t.Fatalf("expected ErrorKindShapeMismatch, got %v", err)
	}
}
