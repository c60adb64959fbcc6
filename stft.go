package vocana

import (
	"math"
	"sync"

	"go.uber.org/zap"
)

const windowSumEpsilon = 1e-10

// STFTEngine is the STFT Engine capability (C2): windowed framing with
// forward/inverse short-time Fourier transform, constant-overlap-add
// reconstruction, and window-sum normalization. An engine owns a
// peak-1 root-Hann window table (applied as both analysis and
// synthesis window, see hannWindow), an FFT Plan, and scratch buffers
// sized to N2; Forward/Inverse serialize on an internal lock because
// the scratch buffers are reused across calls (spec §4.2, §5).
type STFTEngine struct {
	fftSize int // N_fft == N2
	hopSize int // N_hop
	bins    int // K

	window []float64

	plan    *Plan
	log     *zap.Logger
	metrics *Metrics

	mu        sync.Mutex
	frameRe   []float64 // N2 scratch: windowed time-domain frame
	frameIm   []float64 // N2 scratch: always zero on entry to forward
	freqRe    []float64 // N2 scratch: full FFT output (forward)
	freqIm    []float64 // N2 scratch: full FFT output (forward)
	synthRe   []float64 // N2 scratch: Hermitian-expanded spectrum (inverse)
	synthIm   []float64 // N2 scratch: Hermitian-expanded spectrum (inverse)
	timeRe    []float64 // N2 scratch: time-domain IFFT output (inverse)
	timeIm    []float64 // N2 scratch: time-domain IFFT output (inverse)
}

// NewSTFTEngine constructs an STFTEngine for the given config and FFT
// plan. The plan's size must equal cfg.FFTSize. metrics may be nil.
func NewSTFTEngine(cfg Config, plan *Plan, log *zap.Logger, metrics *Metrics) *STFTEngine {
	if plan.Size() != cfg.FFTSize {
		panic("vocana: stft: plan size must equal fft_size")
	}
	if log == nil {
		log = zap.NewNop()
	}
	n2 := cfg.FFTSize
	return &STFTEngine{
		fftSize: n2,
		hopSize: cfg.HopSize,
		bins:    cfg.Bins(),
		window:  hannWindow(n2),
		plan:    plan,
		log:     log,
		metrics: metrics,
		frameRe: make([]float64, n2),
		frameIm: make([]float64, n2),
		freqRe:  make([]float64, n2),
		freqIm:  make([]float64, n2),
		synthRe: make([]float64, n2),
		synthIm: make([]float64, n2),
		timeRe:  make([]float64, n2),
		timeIm:  make([]float64, n2),
	}
}

// Forward runs the forward STFT of audio, returning T x K real/imag
// arrays (time-major). Returns (nil, nil) if len(audio) < N_fft.
func (s *STFTEngine) Forward(audio []float64) (re, im [][]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(audio) < s.fftSize {
		return nil, nil
	}
	t := 1 + (len(audio)-s.fftSize)/s.hopSize

	re = make([][]float64, t)
	im = make([][]float64, t)

	for frame := 0; frame < t; frame++ {
		start := frame * s.hopSize
		for i := 0; i < s.fftSize; i++ {
			s.frameRe[i] = audio[start+i] * s.window[i]
			s.frameIm[i] = 0
		}

		s.plan.Forward(s.frameRe, s.frameIm, s.freqRe, s.freqIm)

		frameRe := make([]float64, s.bins)
		frameIm := make([]float64, s.bins)
		nonFinite := 0
		for k := 0; k < s.bins; k++ {
			if !isFinite(s.freqRe[k]) || !isFinite(s.freqIm[k]) {
				nonFinite++
				continue
			}
			frameRe[k] = s.freqRe[k]
			frameIm[k] = s.freqIm[k]
		}
		if nonFinite > 0 {
			s.log.Warn("non-finite forward FFT output, frame zeroed", zap.Int("frame", frame))
			for k := range frameRe {
				frameRe[k] = 0
				frameIm[k] = 0
			}
			s.metrics.observeNonFiniteFixup("stft_forward", nonFinite)
		}
		re[frame] = frameRe
		im[frame] = frameIm
	}
	return re, im
}

// Inverse runs the inverse STFT of a T x K spectrum, returning the
// overlap-added, window-sum-normalized time-domain signal of length
// (T-1)*N_hop + N_fft. Returns nil if len(re) == 0.
func (s *STFTEngine) Inverse(re, im [][]float64) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := len(re)
	if t == 0 {
		return nil
	}
	outLen := (t-1)*s.hopSize + s.fftSize
	if outLen <= 0 {
		return nil
	}

	output := make([]float64, outLen)
	windowSum := make([]float64, outLen)

	for frame := 0; frame < t; frame++ {
		frameRe := re[frame]
		frameIm := im[frame]
		if len(frameRe) != s.bins || len(frameIm) != s.bins {
			s.log.Warn("stft inverse: frame bin count mismatch, skipped", zap.Int("frame", frame))
			continue
		}

		for i := range s.synthRe {
			s.synthRe[i] = 0
			s.synthIm[i] = 0
		}
		for k := 0; k < s.bins; k++ {
			s.synthRe[k] = frameRe[k]
			s.synthIm[k] = frameIm[k]
		}
		for i := 1; i < s.bins-1; i++ {
			s.synthRe[s.fftSize-i] = frameRe[i]
			s.synthIm[s.fftSize-i] = -frameIm[i]
		}

		s.plan.Inverse(s.synthRe, s.synthIm, s.timeRe, s.timeIm)

		start := frame * s.hopSize
		scale := 1.0 / float64(s.fftSize)
		for i := 0; i < s.fftSize; i++ {
			v := s.timeRe[i] * scale
			if !isFinite(v) {
				v = 0
				s.metrics.observeNonFiniteFixup("stft_inverse_time", 1)
			}
			idx := start + i
			output[idx] += v * s.window[i]
			windowSum[idx] += s.window[i] * s.window[i]
		}
	}

	for i := 0; i < outLen; i++ {
		ws := windowSum[i]
		if ws <= windowSumEpsilon {
			output[i] = 0
			continue
		}
		output[i] /= math.Max(ws, windowSumEpsilon)
		if !isFinite(output[i]) {
			output[i] = 0
			s.metrics.observeNonFiniteFixup("stft_inverse_normalize", 1)
		}
	}

	return output
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
