package vocana

// Spectrum is a T x K complex spectrum, time-major.
type Spectrum struct {
	T, K   int
	Re, Im [][]float64
}

// Mask is a T x K tensor of real gains produced by the ERB decoder.
type Mask struct {
	T, K int
	Gain [][]float64
}

// DFCoefficients is a T x Bands x Order tensor of real-valued FIR
// taps, one length-Order filter per (frame, low-frequency bin).
type DFCoefficients struct {
	T, Bands, Order int
	Taps            [][][]float64
}

// checkedMul3 multiplies three non-negative ints using int64
// arithmetic and reports whether the product overflows a non-negative
// int, per spec §4.5's "integer offset arithmetic must be
// overflow-checked" numerical safeguard.
func checkedMul3(a, b, c int) (int, bool) {
	prod := int64(a) * int64(b) * int64(c)
	if prod < 0 || prod > int64(int(^uint(0)>>1)) {
		return 0, false
	}
	return int(prod), true
}

// MaskFromTensor validates and decodes a backend Tensor as a Mask of
// shape [T, K]. Returns ErrorKindShapeMismatch if the element count
// does not match T*K exactly.
func MaskFromTensor(tn Tensor, t, k int) (Mask, error) {
	want, ok := checkedMul3(t, k, 1)
	if !ok || len(tn.Data) != want {
		return Mask{}, newError(ErrorKindShapeMismatch, "deepfilter.mask_from_tensor", "mask element count does not match T*K")
	}
	gain := make([][]float64, t)
	for i := 0; i < t; i++ {
		row := make([]float64, k)
		for j := 0; j < k; j++ {
			row[j] = float64(tn.Data[i*k+j])
		}
		gain[i] = row
	}
	return Mask{T: t, K: k, Gain: gain}, nil
}

// DFCoefficientsFromTensor validates and decodes a backend Tensor as
// DFCoefficients of shape [T, Bands, Order]. Returns
// ErrorKindShapeMismatch if the element count does not match
// T*Bands*Order exactly, or if that product overflows.
func DFCoefficientsFromTensor(tn Tensor, t, bands, order int) (DFCoefficients, error) {
	want, ok := checkedMul3(t, bands, order)
	if !ok || len(tn.Data) != want {
		return DFCoefficients{}, newError(ErrorKindShapeMismatch, "deepfilter.coefs_from_tensor", "coefficient element count does not match T*Bands*Order")
	}
	taps := make([][][]float64, t)
	for i := 0; i < t; i++ {
		bandTaps := make([][]float64, bands)
		for b := 0; b < bands; b++ {
			row := make([]float64, order)
			base := (i*bands + b) * order
			for o := 0; o < order; o++ {
				row[o] = float64(tn.Data[base+o])
			}
			bandTaps[b] = row
		}
		taps[i] = bandTaps
	}
	return DFCoefficients{T: t, Bands: bands, Order: order, Taps: taps}, nil
}

// ApplyDeepFilter is the C5 Deep Filtering Kernel. It mutates spec in
// place:
//
//  1. ERB masking: spec.Re[t][k] *= mask.Gain[t][k], likewise Im.
//  2. Deep filtering: for each (t, b) with b < coefs.Bands, the new
//     complex value is the centered (or, if causal, lookback-only) FIR
//     sum described in spec §4.5, applied to the post-mask spectrum.
//     Bins >= coefs.Bands are left unchanged after step 1.
//
// causal resolves spec open question #2 (see Config.Causal).
func ApplyDeepFilter(spec Spectrum, mask Mask, coefs DFCoefficients, causal bool) error {
	if spec.T != mask.T || spec.K != mask.K {
		return newError(ErrorKindShapeMismatch, "deepfilter.apply", "mask shape does not match spectrum shape")
	}
	if coefs.T != spec.T {
		return newError(ErrorKindShapeMismatch, "deepfilter.apply", "coefficient frame count does not match spectrum")
	}

	for t := 0; t < spec.T; t++ {
		for k := 0; k < spec.K; k++ {
			spec.Re[t][k] *= mask.Gain[t][k]
			spec.Im[t][k] *= mask.Gain[t][k]
		}
	}

	if coefs.Bands == 0 || coefs.Order == 0 {
		return nil
	}

	h := coefs.Order / 2
	kMax := coefs.Order - 1
	if causal {
		kMax = h
	}

	// Snapshot the post-mask values the filter reads from, since the
	// FIR taps across time and writing in place would read
	// already-filtered neighbors.
	srcRe := make([][]float64, spec.T)
	srcIm := make([][]float64, spec.T)
	for t := 0; t < spec.T; t++ {
		srcRe[t] = append([]float64(nil), spec.Re[t][:min(coefs.Bands, spec.K)]...)
		srcIm[t] = append([]float64(nil), spec.Im[t][:min(coefs.Bands, spec.K)]...)
	}

	bands := min(coefs.Bands, spec.K)
	for t := 0; t < spec.T; t++ {
		for b := 0; b < bands; b++ {
			var accRe, accIm float64
			taps := coefs.Taps[t][b]
			for k := 0; k <= kMax; k++ {
				srcT := t - h + k
				if srcT < 0 || srcT >= spec.T {
					continue
				}
				c := taps[k]
				accRe += c * srcRe[srcT][b]
				accIm += c * srcIm[srcT][b]
			}
			spec.Re[t][b] = accRe
			spec.Im[t][b] = accIm
		}
	}
	return nil
}
