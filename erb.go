package vocana

import "math"

const erbFeatureEpsilon = 1e-6

// ToERBScale converts a frequency in Hz to the Glasberg & Moore (1990)
// ERB scale.
func ToERBScale(freqHz float64) float64 {
	return 21.4 * math.Log10(1+0.00437*freqHz)
}

// FromERBScale is the inverse of ToERBScale.
func FromERBScale(erb float64) float64 {
	return (math.Pow(10, erb/21.4) - 1) / 0.00437
}

// erbBandwidth is b(f), the Glasberg & Moore equivalent rectangular
// bandwidth at center frequency f.
func erbBandwidth(freqHz float64) float64 {
	return 24.7 * (0.00437*freqHz + 1)
}

// ERBFilterbank is the C3 ERB filterbank: a B_erb x K matrix of
// non-negative triangular filters with unit row-sum, built once at
// startup from the Glasberg & Moore ERB scale and shared read-only
// thereafter.
type ERBFilterbank struct {
	bands int
	bins  int
	// rows[b][k]
	rows [][]float64
	// centers holds the Hz center frequency of each band, strictly
	// increasing.
	centers []float64
}

// NewERBFilterbank builds the filterbank for the given config.
func NewERBFilterbank(cfg Config) *ERBFilterbank {
	k := cfg.Bins()
	binFreq := make([]float64, k)
	for i := 0; i < k; i++ {
		binFreq[i] = float64(i) * float64(cfg.SampleRate) / float64(cfg.FFTSize)
	}

	fMin := cfg.MinFreqHz
	fMax := cfg.EffectiveMaxFreq()
	erbMin := ToERBScale(fMin)
	erbMax := ToERBScale(fMax)

	centers := make([]float64, cfg.ERBBands)
	for b := 0; b < cfg.ERBBands; b++ {
		var frac float64
		if cfg.ERBBands > 1 {
			frac = float64(b) / float64(cfg.ERBBands-1)
		}
		centers[b] = FromERBScale(erbMin + frac*(erbMax-erbMin))
	}

	rows := make([][]float64, cfg.ERBBands)
	for b, fc := range centers {
		bw := erbBandwidth(fc)
		row := make([]float64, k)
		var sum float64
		for ki, f := range binFreq {
			v := 1 - math.Abs(f-fc)/bw
			if v < 0 {
				v = 0
			}
			row[ki] = v
			sum += v
		}
		if sum > 0 {
			for ki := range row {
				row[ki] /= sum
			}
		}
		rows[b] = row
	}

	fb := &ERBFilterbank{bands: cfg.ERBBands, bins: k, rows: rows, centers: centers}
	fb.validate()
	return fb
}

// validate enforces the §3 filterbank invariants: all finite,
// non-negative, rows summing to 1 (or all-zero). Construction-time
// violations indicate a configuration bug and panic.
func (fb *ERBFilterbank) validate() {
	for b, row := range fb.rows {
		var sum float64
		for _, v := range row {
			if !isFinite(v) || v < 0 {
				panic("vocana: erb: filterbank entry non-finite or negative")
			}
			sum += v
		}
		if sum > 0 && math.Abs(sum-1) > 1e-6 {
			panic("vocana: erb: filterbank row does not sum to 1")
		}
		if b > 0 && fb.centers[b] <= fb.centers[b-1] {
			panic("vocana: erb: filterbank centers must strictly increase")
		}
	}
}

// Bands returns B_erb.
func (fb *ERBFilterbank) Bands() int { return fb.bands }

// Extract projects a T x K magnitude spectrum onto the filterbank,
// returning a T x B_erb energy tensor (one row per frame, time-major).
// A frame whose re or im row does not have exactly K bins yields an
// all-zero row of B_erb values, so the frame count is preserved; such a
// frame is not logged.
func (fb *ERBFilterbank) Extract(re, im [][]float64) [][]float64 {
	t := len(re)
	out := make([][]float64, t)
	for frame := 0; frame < t; frame++ {
		if len(re[frame]) != fb.bins || len(im[frame]) != fb.bins {
			out[frame] = make([]float64, fb.bands)
			continue
		}
		mag := make([]float64, fb.bins)
		for k := 0; k < fb.bins; k++ {
			r, i := re[frame][k], im[frame][k]
			mag[k] = math.Sqrt(math.Max(r*r+i*i, 0))
		}
		e := make([]float64, fb.bands)
		for b, row := range fb.rows {
			var acc float64
			for k, h := range row {
				acc += h * mag[k]
			}
			e[b] = acc
		}
		out[frame] = e
	}
	return out
}

// NormalizeERB applies the per-frame mean-subtracted, std-normalized
// scaling described in spec §4.3: for each frame independently,
// E'[t,b] = alpha * (E[t,b] - mean_t) / std_t, with std clamped by
// erbFeatureEpsilon.
func NormalizeERB(e [][]float64, alpha float64) [][]float64 {
	out := make([][]float64, len(e))
	for t, row := range e {
		n := len(row)
		normed := make([]float64, n)
		if n == 0 {
			out[t] = normed
			continue
		}
		var mean float64
		for _, v := range row {
			mean += v
		}
		mean /= float64(n)

		var variance float64
		for _, v := range row {
			d := v - mean
			variance += d * d
		}
		variance /= float64(n)
		std := math.Sqrt(math.Max(variance, erbFeatureEpsilon))

		for b, v := range row {
			normed[b] = alpha * (v - mean) / std
		}
		out[t] = normed
	}
	return out
}
