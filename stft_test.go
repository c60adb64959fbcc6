package vocana

import (
	"math"
	"testing"
)

func testConfig() Config {
	cfg := DefaultConfig()
	return cfg
}

func TestSTFTForwardShortAudioReturnsNil(t *testing.T) {
	cfg := testConfig()
	plan := NewPlan(cfg.FFTSize)
	engine := NewSTFTEngine(cfg, plan, nil, nil)

	re, im := engine.Forward(make([]float64, cfg.FFTSize-1))
	if re != nil || im != nil {
		t.Fatalf("expected nil, nil for audio shorter than fft_size")
	}
}

func TestSTFTRoundtripSilence(t *testing.T) {
	cfg := testConfig()
	plan := NewPlan(cfg.FFTSize)
	engine := NewSTFTEngine(cfg, plan, nil, nil)

	audio := make([]float64, cfg.FFTSize*4)
	re, im := engine.Forward(audio)
	out := engine.Inverse(re, im)

	for i, v := range out {
		if math.Abs(v) > 1e-9 {
			t.Fatalf("sample %d: expected ~0, got %v", i, v)
		}
	}
}

func TestSTFTRoundtripTone(t *testing.T) {
	cfg := testConfig()
	plan := NewPlan(cfg.FFTSize)
	engine := NewSTFTEngine(cfg, plan, nil, nil)

	n := cfg.FFTSize*6 + cfg.HopSize
	audio := make([]float64, n)
	for i := range audio {
		audio[i] = 0.3 * math.Sin(2*math.Pi*220*float64(i)/float64(cfg.SampleRate))
	}

	re, im := engine.Forward(audio)
	out := engine.Inverse(re, im)

	// Interior samples (away from the first/last frame's edge taper)
	// should closely reconstruct the original signal.
	margin := cfg.FFTSize
	for i := margin; i < len(out)-margin && i < len(audio); i++ {
		if math.Abs(out[i]-audio[i]) > 1e-6 {
			t.Fatalf("sample %d: expected %v, got %v", i, audio[i], out[i])
		}
	}
}

func TestSTFTInverseSkipsMismatchedFrame(t *testing.T) {
	cfg := testConfig()
	plan := NewPlan(cfg.FFTSize)
	engine := NewSTFTEngine(cfg, plan, nil, nil)

	bins := cfg.Bins()
	re := [][]float64{make([]float64, bins), make([]float64, bins+1)}
	im := [][]float64{make([]float64, bins), make([]float64, bins+1)}

	out := engine.Inverse(re, im)
	if len(out) != cfg.FFTSize+cfg.HopSize {
		t.Fatalf("unexpected output length %d", len(out))
	}
}

func TestNewSTFTEnginePanicsOnPlanSizeMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for mismatched plan size")
		}
	}()
	cfg := testConfig()
	plan := NewPlan(cfg.FFTSize * 2)
	NewSTFTEngine(cfg, plan, nil, nil)
}
