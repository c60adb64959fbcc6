package vocana

import "math"

const spectralFeatureEpsilon = 1e-6

// SpectralFeature is the C4 Spectral Feature Extractor's output: for
// each frame, the first B_df complex bins as a two-channel tensor
// (channel 0 real, channel 1 imaginary).
type SpectralFeature struct {
	Bands int // B_df
	// Re, Im are T x Bands.
	Re [][]float64
	Im [][]float64
}

// ExtractSpectral selects the first B_df complex bins per frame. If a
// frame has fewer than bands bins, it is right-padded with zeros.
func ExtractSpectral(re, im [][]float64, bands int) SpectralFeature {
	t := len(re)
	out := SpectralFeature{Bands: bands, Re: make([][]float64, t), Im: make([][]float64, t)}
	for frame := 0; frame < t; frame++ {
		r := make([]float64, bands)
		i := make([]float64, bands)
		n := len(re[frame])
		if n > bands {
			n = bands
		}
		copy(r, re[frame][:n])
		if len(im[frame]) < n {
			n = len(im[frame])
		}
		copy(i, im[frame][:n])
		out.Re[frame] = r
		out.Im[frame] = i
	}
	return out
}

// NormalizeSpectral applies the per-frame magnitude-only,
// unit-scale normalization described in spec §4.4: per frame, compute
// per-bin magnitude, its mean and variance, then scale BOTH channels
// by alpha/std. The mean is NOT subtracted — this is deliberately
// asymmetric with NormalizeERB (spec open question #1).
func NormalizeSpectral(s SpectralFeature, alpha float64) SpectralFeature {
	out := SpectralFeature{Bands: s.Bands, Re: make([][]float64, len(s.Re)), Im: make([][]float64, len(s.Im))}
	for t := range s.Re {
		re := s.Re[t]
		im := s.Im[t]
		n := len(re)
		mag := make([]float64, n)
		var meanMag float64
		for b := 0; b < n; b++ {
			mag[b] = math.Sqrt(math.Max(re[b]*re[b]+im[b]*im[b], 0))
			meanMag += mag[b]
		}
		if n > 0 {
			meanMag /= float64(n)
		}
		var variance float64
		for b := 0; b < n; b++ {
			variance += mag[b] * mag[b]
		}
		if n > 0 {
			variance = variance/float64(n) - meanMag*meanMag
		}
		std := math.Sqrt(math.Max(variance, spectralFeatureEpsilon))
		scale := alpha / std

		outRe := make([]float64, n)
		outIm := make([]float64, n)
		for b := 0; b < n; b++ {
			outRe[b] = re[b] * scale
			outIm[b] = im[b] * scale
		}
		out.Re[t] = outRe
		out.Im[t] = outIm
	}
	return out
}
