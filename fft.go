package vocana

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Plan is the FFT Plan capability (C1): a mixed-radix complex FFT
// keyed on a fixed size N2 (gonum's CmplxFFT, not a hand-rolled
// radix-2 transform, so N2 need not be a power of two). It is
// cold-set at construction (the twiddle-factor table gonum builds
// inside NewCmplxFFT) and hot-read thereafter; Forward/Inverse reuse
// an internal scratch buffer under a lock so repeated calls allocate
// nothing beyond what the caller already owns.
//
// Forward and Inverse both operate on caller-supplied (re, im)
// buffers of length exactly N2 and write results into caller-supplied
// output buffers of the same length — this lets the STFT Engine (C2)
// hold one pair of scratch buffers for the lifetime of the pipeline
// instead of allocating per frame.
type Plan struct {
	n int

	mu         sync.Mutex
	fft        *fourier.CmplxFFT
	scratchIn  []complex128
	scratchOut []complex128
}

// NewPlan constructs a Plan for FFTs of size n. n must be positive;
// this is a construction-time invariant and panics on violation.
// Unlike a hand-rolled radix-2 Cooley-Tukey transform, gonum's
// CmplxFFT is a mixed-radix implementation and does not require n to
// be a power of two, so the spec's own default N_fft of 960 (which is
// not a power of two) is a legal plan size.
func NewPlan(n int) *Plan {
	if n <= 0 {
		panic("vocana: fft: size must be positive")
	}
	return &Plan{
		n:          n,
		fft:        fourier.NewCmplxFFT(n),
		scratchIn:  make([]complex128, n),
		scratchOut: make([]complex128, n),
	}
}

// Size returns N2.
func (p *Plan) Size() int { return p.n }

// Forward computes the forward DFT of (inRe, inIm), writing the
// result into (outRe, outIm). All four slices must have length
// exactly Size(); Forward panics otherwise, matching the plan's
// fixed-size contract.
func (p *Plan) Forward(inRe, inIm, outRe, outIm []float64) {
	p.checkLen(inRe, inIm, outRe, outIm)

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < p.n; i++ {
		p.scratchIn[i] = complex(inRe[i], inIm[i])
	}
	coeffs := p.fft.Coefficients(p.scratchOut, p.scratchIn)
	for i, c := range coeffs {
		outRe[i] = real(c)
		outIm[i] = imag(c)
	}
}

// Inverse computes the UNSCALED inverse DFT of (inRe, inIm), writing
// the result into (outRe, outIm). Scaling by 1/Size() is the caller's
// responsibility (spec §4.1). Implemented via the standard
// conjugate-FFT-conjugate identity so the same cold-set forward plan
// serves both directions:
//
//	IDFT_unscaled(X)[n] = conj( DFT( conj(X) ) )[n]
func (p *Plan) Inverse(inRe, inIm, outRe, outIm []float64) {
	p.checkLen(inRe, inIm, outRe, outIm)

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < p.n; i++ {
		p.scratchIn[i] = complex(inRe[i], -inIm[i])
	}
	coeffs := p.fft.Coefficients(p.scratchOut, p.scratchIn)
	for i, c := range coeffs {
		outRe[i] = real(c)
		outIm[i] = -imag(c)
	}
}

func (p *Plan) checkLen(slices ...[]float64) {
	for _, s := range slices {
		if len(s) != p.n {
			panic("vocana: fft: buffer length must equal plan size")
		}
	}
}
