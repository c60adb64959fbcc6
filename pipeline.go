package vocana

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PipelineState reports the coarse lifecycle state described in spec
// §4.6. It is derived, not stored: Fresh means neither the overlap
// buffer nor the neural state bundle hold anything yet; Streaming
// means at least one of them does; Error reflects only the outcome of
// the most recent call and is never sticky.
type PipelineState int

const (
	StateFresh PipelineState = iota
	StateStreaming
	StateError
)

func (s PipelineState) String() string {
	switch s {
	case StateFresh:
		return "Fresh"
	case StateStreaming:
		return "Streaming"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Pipeline is the Enhancement Pipeline capability (C6): the
// frame-synchronous orchestrator that sequences STFT, feature
// extraction, encoder/decoder inference, masking, deep filtering, and
// ISTFT, and maintains the cross-call overlap buffer and neural state.
//
// Two independent locks guard pipeline state, per spec §5:
// processingMu covers scratch buffers, the feature extractors, the
// STFT engine, the overlap buffer, and the last-call-failed flag;
// stateMu covers the neural state bundle. Reset acquires each
// independently, never nested.
type Pipeline struct {
	cfg     Config
	backend ModelTriple
	metrics *Metrics
	log     Logging

	stft  *STFTEngine
	erbFB *ERBFilterbank

	processingMu sync.Mutex
	overlap      []float64

	stateMu  sync.Mutex
	state    map[string]Tensor
	hasState bool

	lastFailed bool
}

// NewPipeline constructs a Pipeline from an explicit Config and an
// already-wired ModelTriple. metrics may be nil.
func NewPipeline(cfg Config, backend ModelTriple, log Logging, metrics *Metrics) *Pipeline {
	cfg.Validate()
	plan := NewPlan(cfg.FFTSize)
	return &Pipeline{
		cfg:     cfg,
		backend: backend,
		metrics: metrics,
		log:     log,
		stft:    NewSTFTEngine(cfg, plan, log.Named(ChannelSTFT), metrics),
		erbFB:   NewERBFilterbank(cfg),
	}
}

// ModelFactory constructs a single InferenceBackend from a model's raw
// bytes, as loaded by a ModelLoader. Callers supply this since model
// parsing and native inference are outside this spec's scope (see
// NativeBackend); tests typically ignore the bytes and return a
// MockBackend.
type ModelFactory func(modelName string, data []byte) (InferenceBackend, error)

// NewPipelineWithDefaultModels loads enc.onnx / erb_dec.onnx /
// df_dec.onnx from an allowlisted bundle directory via loader, builds
// the three backends through factory, and constructs a Pipeline.
func NewPipelineWithDefaultModels(cfg Config, loader *ModelLoader, bundleDir string, factory ModelFactory, log Logging, metrics *Metrics) (*Pipeline, error) {
	bytes, err := loader.Load(bundleDir)
	if err != nil {
		return nil, err
	}
	enc, err := factory("encoder", bytes.Encoder)
	if err != nil {
		return nil, wrapError(ErrorKindModelLoadFailed, "pipeline.with_default_models", "failed to construct encoder backend", err)
	}
	erbDec, err := factory("erb_decoder", bytes.ERBDec)
	if err != nil {
		return nil, wrapError(ErrorKindModelLoadFailed, "pipeline.with_default_models", "failed to construct erb decoder backend", err)
	}
	dfDec, err := factory("df_decoder", bytes.DFDec)
	if err != nil {
		return nil, wrapError(ErrorKindModelLoadFailed, "pipeline.with_default_models", "failed to construct df decoder backend", err)
	}
	return NewPipeline(cfg, ModelTriple{Encoder: enc, ERBDec: erbDec, DFDec: dfDec}, log, metrics), nil
}

// Reset clears the neural state bundle and the overlap buffer
// atomically with respect to each other's lock, returning the
// pipeline to the Fresh state. Reset is infallible.
func (p *Pipeline) Reset() {
	p.processingMu.Lock()
	p.overlap = nil
	p.lastFailed = false
	p.processingMu.Unlock()

	p.stateMu.Lock()
	p.state = nil
	p.hasState = false
	p.stateMu.Unlock()
}

// State reports the pipeline's current coarse lifecycle state.
func (p *Pipeline) State() PipelineState {
	p.processingMu.Lock()
	lastFailed := p.lastFailed
	overlapNonEmpty := len(p.overlap) > 0
	p.processingMu.Unlock()

	if lastFailed {
		return StateError
	}

	p.stateMu.Lock()
	hasState := p.hasState
	p.stateMu.Unlock()

	if overlapNonEmpty || hasState {
		return StateStreaming
	}
	return StateFresh
}

// setLastFailed records the outcome of the most recent Process call.
// It is guarded by processingMu rather than a dedicated lock: every
// caller that needs a consistent view of lastFailed already reads or
// writes it alongside the overlap buffer (Reset, State), and spec §5
// names exactly two pipeline locks.
func (p *Pipeline) setLastFailed(failed bool) {
	p.processingMu.Lock()
	p.lastFailed = failed
	p.processingMu.Unlock()
}

// Process runs a single pipeline call end to end and returns exactly
// HopSize samples of enhanced audio, per spec §4.6.
func (p *Pipeline) Process(audio []float64) ([]float64, error) {
	out, err := p.process(audio)
	if err != nil {
		p.setLastFailed(true)
		if e, ok := err.(*Error); ok {
			p.metrics.observeRejected(e.Kind)
		}
		return nil, err
	}
	p.setLastFailed(false)
	return out, nil
}

// ProcessTimed wraps Process and reports its wall-clock latency.
func (p *Pipeline) ProcessTimed(audio []float64) ([]float64, time.Duration, error) {
	start := time.Now()
	out, err := p.Process(audio)
	elapsed := time.Since(start)
	p.metrics.observeLatencySeconds(elapsed.Seconds())
	return out, elapsed, err
}

func (p *Pipeline) process(audio []float64) ([]float64, error) {
	reqID := uuid.NewString()
	log := p.log.Named(ChannelPipeline)

	if err := p.validateInput(audio); err != nil {
		log.Warn("process: input validation failed", zap.String("req_id", reqID), zap.Error(err))
		return nil, err
	}

	p.processingMu.Lock()
	defer p.processingMu.Unlock()

	re, im := p.stft.Forward(audio)
	if len(re) == 0 {
		return nil, newError(ErrorKindInvalidAudioLength, "pipeline.process", "audio too short to produce any STFT frame")
	}
	t := len(re)
	k := p.cfg.Bins()
	for _, frame := range re {
		if len(frame) != k {
			return nil, newError(ErrorKindShapeMismatch, "pipeline.process", "stft forward frame did not have K bins")
		}
	}

	erbRaw := p.erbFB.Extract(re, im)
	erbFeat := NormalizeERB(erbRaw, p.cfg.ERBAlpha)

	specRaw := ExtractSpectral(re, im, p.cfg.DFBands)
	specFeat := NormalizeSpectral(specRaw, p.cfg.SpectralAlpha)

	encOut, err := p.backend.Encoder.Run(map[string]Tensor{
		"erb_feat":  encodeERBTensor(erbFeat),
		"spec_feat": encodeSpectralTensor(specFeat),
	})
	if err != nil {
		return nil, wrapError(ErrorKindProcessingFailed, "pipeline.process", "encoder run failed", err)
	}
	if err := verifyStateKeys(encOut); err != nil {
		return nil, err
	}

	p.stateMu.Lock()
	p.state = cloneTensorMap(encOut)
	p.hasState = true
	p.stateMu.Unlock()

	erbDecOut, err := p.backend.ERBDec.Run(encOut)
	if err != nil {
		return nil, wrapError(ErrorKindProcessingFailed, "pipeline.process", "erb decoder run failed", err)
	}
	maskTensor, ok := erbDecOut["m"]
	if !ok {
		return nil, newError(ErrorKindMissingOutput, "pipeline.process", "erb decoder output missing key m")
	}
	mask, err := MaskFromTensor(maskTensor, t, k)
	if err != nil {
		return nil, err
	}
	if !allFinite(maskTensor.Data) {
		return nil, newError(ErrorKindInvalidNumeric, "pipeline.process", "erb decoder produced non-finite mask values")
	}

	dfDecOut, err := p.backend.DFDec.Run(encOut)
	if err != nil {
		return nil, wrapError(ErrorKindProcessingFailed, "pipeline.process", "df decoder run failed", err)
	}
	coefsTensor, ok := dfDecOut["coefs"]
	if !ok {
		return nil, newError(ErrorKindMissingOutput, "pipeline.process", "df decoder output missing key coefs")
	}
	coefs, err := DFCoefficientsFromTensor(coefsTensor, t, p.cfg.DFBands, p.cfg.DFOrder)
	if err != nil {
		return nil, err
	}
	if !allFinite(coefsTensor.Data) {
		return nil, newError(ErrorKindInvalidNumeric, "pipeline.process", "df decoder produced non-finite coefficient values")
	}

	spectrum := Spectrum{T: t, K: k, Re: re, Im: im}
	if err := ApplyDeepFilter(spectrum, mask, coefs, p.cfg.Causal); err != nil {
		return nil, err
	}

	// Overlap-add the new ISTFT block onto the retained tail of the
	// previous call's output rather than concatenating: the new block
	// is time-aligned with the buffer starting at index 0 (the caller
	// slides its window by exactly one hop between calls), so the
	// buffer's steady-state length stays N_fft-N_hop. Each block was
	// already normalized by its own window sum, so within the first hop
	// the two are weighted by their squared-window shares (w[i]^2 for
	// the new block's head, w[hop+i]^2 for the old tail) instead of
	// being summed outright, which would double the signal.
	istft := p.stft.Inverse(spectrum.Re, spectrum.Im)
	hop := p.cfg.HopSize
	w := p.stft.window
	overlapLen := len(p.overlap)
	for i := 0; i < overlapLen && i < len(istft); i++ {
		if i < hop {
			istft[i] = w[i]*w[i]*istft[i] + w[hop+i]*w[hop+i]*p.overlap[i]
		} else {
			istft[i] += p.overlap[i]
		}
	}
	if len(istft) < overlapLen {
		istft = append(istft, p.overlap[len(istft):]...)
	}
	p.overlap = istft

	var out []float64
	if len(p.overlap) < hop {
		out = make([]float64, hop)
		copy(out[hop-len(p.overlap):], p.overlap)
		p.overlap = p.overlap[:0]
	} else {
		out = append([]float64(nil), p.overlap[:hop]...)
		p.overlap = append([]float64(nil), p.overlap[hop:]...)
	}

	p.metrics.observeFrames(t)
	return out, nil
}

// ProcessBuffer is the chunked convenience entry point: a sliding
// window of stride HopSize is fed through Process. Every window is
// exactly FFTSize long; once the input runs out before filling one,
// the remainder is reflect-padded to FFTSize. The loop keeps sliding
// by HopSize (not jumping straight to the end) until the whole input
// has a corresponding output hop, so a remainder longer than one hop
// is still covered in full rather than truncated to a single hop.
func (p *Pipeline) ProcessBuffer(audio []float64) ([]float64, error) {
	fftSize := p.cfg.FFTSize
	hop := p.cfg.HopSize

	if len(audio) < fftSize {
		return append([]float64(nil), audio...), nil
	}

	out := make([]float64, 0, len(audio))
	pos := 0
	for pos < len(audio) {
		end := pos + fftSize
		var window []float64
		if end <= len(audio) {
			window = audio[pos:end]
		} else {
			window = reflectPad(audio[pos:], fftSize)
		}

		hopOut, err := p.Process(window)
		if err != nil {
			p.log.Named(ChannelPipeline).Warn("process_buffer: chunk failed, passing through original samples",
				zap.Error(err), zap.Int("pos", pos))
			hopOut = append([]float64(nil), window[:hop]...)
		}

		take := min(hop, len(audio)-pos)
		take = min(take, len(hopOut))
		out = append(out, hopOut[:take]...)
		pos += hop
	}
	return out, nil
}

func (p *Pipeline) validateInput(audio []float64) error {
	n := len(audio)
	maxSamples := int(float64(p.cfg.SampleRate) * p.cfg.MaxDurationSeconds)
	if n < p.cfg.FFTSize || n > maxSamples {
		return newError(ErrorKindInvalidAudioLength, "pipeline.validate_input", "audio length out of bounds")
	}
	for _, s := range audio {
		if !isFinite(s) || math.Abs(s) > p.cfg.MaxAmplitude {
			return newError(ErrorKindInvalidAudioValues, "pipeline.validate_input", "audio contains non-finite or over-amplitude samples")
		}
	}
	return nil
}

func verifyStateKeys(state map[string]Tensor) error {
	for _, key := range EncoderStateKeys {
		tn, ok := state[key]
		if !ok {
			return newError(ErrorKindMissingOutput, "pipeline.verify_state", "encoder output missing required key "+key)
		}
		if err := tn.validate(); err != nil {
			return err
		}
	}
	return nil
}

func cloneTensorMap(m map[string]Tensor) map[string]Tensor {
	out := make(map[string]Tensor, len(m))
	for k, v := range m {
		shape := append([]int64(nil), v.Shape...)
		data := append([]float32(nil), v.Data...)
		out[k] = Tensor{Shape: shape, Data: data}
	}
	return out
}

func allFinite(data []float32) bool {
	for _, v := range data {
		if !isFinite(float64(v)) {
			return false
		}
	}
	return true
}

func encodeERBTensor(e [][]float64) Tensor {
	t := len(e)
	b := 0
	if t > 0 {
		b = len(e[0])
	}
	data := make([]float32, 0, t*b)
	for _, row := range e {
		for _, v := range row {
			data = append(data, float32(v))
		}
	}
	return Tensor{Shape: []int64{1, 1, int64(t), int64(b)}, Data: data}
}

func encodeSpectralTensor(s SpectralFeature) Tensor {
	t := len(s.Re)
	b := s.Bands
	data := make([]float32, 0, 2*t*b)
	for _, row := range s.Re {
		for _, v := range row {
			data = append(data, float32(v))
		}
	}
	for _, row := range s.Im {
		for _, v := range row {
			data = append(data, float32(v))
		}
	}
	return Tensor{Shape: []int64{1, 2, int64(t), int64(b)}, Data: data}
}

// reflectIndex maps an arbitrary non-negative offset j onto [0, n)
// using reflect (mirror, no edge repeat) boundary semantics, matching
// numpy.pad(mode="reflect") for a 1-D array of length n.
func reflectIndex(j, n int) int {
	if n <= 1 {
		return 0
	}
	period := 2 * (n - 1)
	j = j % period
	if j < 0 {
		j += period
	}
	if j < n {
		return j
	}
	return period - j
}

func reflectPad(x []float64, target int) []float64 {
	n := len(x)
	out := make([]float64, target)
	for i := 0; i < target; i++ {
		out[i] = x[reflectIndex(i, n)]
	}
	return out
}
