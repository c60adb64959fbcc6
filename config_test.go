package vocana

import (
	"strings"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	DefaultConfig().Validate() // must not panic
}

func TestConfigValidatePanicsOnBadHopSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	cfg := DefaultConfig()
	cfg.HopSize = cfg.FFTSize
	cfg.Validate()
}

func TestConfigValidatePanicsOnOddFFTSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	cfg := DefaultConfig()
	cfg.FFTSize = 961
	cfg.HopSize = 480
	cfg.Validate()
}

func TestConfigValidateAcceptsNonPowerOfTwoFFTSize(t *testing.T) {
	// The spec's own default (960) is not a power of two; Validate must
	// not reject it.
	cfg := DefaultConfig()
	cfg.FFTSize = 960
	cfg.HopSize = 480
	cfg.Validate()
}

func TestConfigValidatePanicsOnEvenDFOrder(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	cfg := DefaultConfig()
	cfg.DFOrder = 4
	cfg.Validate()
}

func TestConfigBinsAndEffectiveMaxFreq(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Bins(); got != cfg.FFTSize/2+1 {
		t.Fatalf("expected %d bins, got %d", cfg.FFTSize/2+1, got)
	}
	cfg.MaxFreqHz = float64(cfg.SampleRate) * 10
	if got := cfg.EffectiveMaxFreq(); got != float64(cfg.SampleRate)/2 {
		t.Fatalf("expected clamping to nyquist, got %v", got)
	}
}

func TestLoadConfigAppliesDefaultsForOmittedFields(t *testing.T) {
	yaml := "sample_rate: 16000\n"
	cfg, err := LoadConfig(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SampleRate != 16000 {
		t.Fatalf("expected overridden sample_rate, got %d", cfg.SampleRate)
	}
	if cfg.FFTSize != DefaultConfig().FFTSize {
		t.Fatalf("expected default fft_size to survive, got %d", cfg.FFTSize)
	}
}
