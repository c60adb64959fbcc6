package vocana

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the immutable configuration of an enhancement pipeline.
// A Config is validated once at construction time and never mutated
// afterwards; build a new Config (and a new Pipeline) to change
// parameters.
type Config struct {
	// SampleRate is F_s in Hz. Default 48000.
	SampleRate int `yaml:"sample_rate"`

	// FFTSize is N_fft, the analysis window / FFT length. Must be
	// positive and even (Hermitian reconstruction mirrors bin i onto
	// N_fft-i); the underlying FFT plan is mixed-radix and does not
	// require a power of two. Default 960.
	FFTSize int `yaml:"fft_size"`

	// HopSize is N_hop, the analysis stride. Must equal FFTSize/2.
	// Default 480.
	HopSize int `yaml:"hop_size"`

	// ERBBands is B_erb, the number of ERB filterbank rows. Default 32.
	ERBBands int `yaml:"erb_bands"`

	// DFBands is B_df, the number of low-frequency bins the deep
	// filter operates on. Default 96.
	DFBands int `yaml:"df_bands"`

	// DFOrder is N_df, the deep-filter FIR length. Must be odd.
	// Default 5.
	DFOrder int `yaml:"df_order"`

	// MinFreqHz is f_min for the ERB scale. Default 50.
	MinFreqHz float64 `yaml:"min_freq_hz"`

	// MaxFreqHz is f_max for the ERB scale; clamped to SampleRate/2.
	// Default 20000.
	MaxFreqHz float64 `yaml:"max_freq_hz"`

	// ERBAlpha is the normalization scale applied to ERB features.
	// Default 0.9.
	ERBAlpha float64 `yaml:"erb_alpha"`

	// SpectralAlpha is the normalization scale applied to spectral
	// (deep-filter) features. Default 0.6.
	SpectralAlpha float64 `yaml:"spectral_alpha"`

	// MaxDurationSeconds bounds the longest audio buffer `Process`
	// will accept, D_max in spec terms. Default 3600.
	MaxDurationSeconds float64 `yaml:"max_duration_seconds"`

	// MaxAmplitude bounds |sample| for input validation, A_max.
	// Default 10.0.
	MaxAmplitude float64 `yaml:"max_amplitude"`

	// Causal resolves the deep-filter centering open question: when
	// true, only the causal (lookback) half of the FIR is applied in
	// the single-frame online path; when false (default), the filter
	// keeps its literal centered definition and lookahead taps see
	// zero in the online path.
	Causal bool `yaml:"causal"`
}

// DefaultConfig returns the spec's default parameter set.
func DefaultConfig() Config {
	return Config{
		SampleRate:         48000,
		FFTSize:            960,
		HopSize:            480,
		ERBBands:           32,
		DFBands:            96,
		DFOrder:            5,
		MinFreqHz:          50,
		MaxFreqHz:          20000,
		ERBAlpha:           0.9,
		SpectralAlpha:      0.6,
		MaxDurationSeconds: 3600,
		MaxAmplitude:       10.0,
		Causal:             false,
	}
}

// Validate enforces the §3 invariants. It is called by NewPipeline and
// panics on violation: these are construction-time configuration bugs,
// not runtime conditions a caller can recover from by retrying.
func (c Config) Validate() {
	if c.SampleRate <= 0 {
		panic("vocana: config: sample_rate must be positive")
	}
	if c.FFTSize <= 0 || c.FFTSize%2 != 0 {
		panic("vocana: config: fft_size must be a positive even number")
	}
	if c.HopSize != c.FFTSize/2 {
		panic("vocana: config: hop_size must equal fft_size/2 (COLA requires 50% overlap)")
	}
	if c.DFOrder <= 0 || c.DFOrder%2 == 0 {
		panic("vocana: config: df_order must be odd")
	}
	if c.ERBBands <= 0 {
		panic("vocana: config: erb_bands must be positive")
	}
	if c.DFBands <= 0 {
		panic("vocana: config: df_bands must be positive")
	}
	if c.MinFreqHz <= 0 || c.MaxFreqHz <= c.MinFreqHz {
		panic("vocana: config: min_freq_hz must be positive and less than max_freq_hz")
	}
	if c.MaxDurationSeconds <= 0 {
		panic("vocana: config: max_duration_seconds must be positive")
	}
	if c.MaxAmplitude <= 0 {
		panic("vocana: config: max_amplitude must be positive")
	}
}

// Bins returns K, the number of positive-frequency bins.
func (c Config) Bins() int { return c.FFTSize/2 + 1 }

// EffectiveMaxFreq clamps MaxFreqHz to the Nyquist frequency.
func (c Config) EffectiveMaxFreq() float64 {
	nyquist := float64(c.SampleRate) / 2
	if c.MaxFreqHz > nyquist {
		return nyquist
	}
	return c.MaxFreqHz
}

// LoadConfig reads and validates a YAML-encoded Config from r,
// applying DefaultConfig for any zero-valued field the document
// omits.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, wrapError(ErrorKindProcessingFailed, "config.load", "failed to decode yaml config", err)
	}
	cfg.Validate()
	return cfg, nil
}

// LoadConfigFile loads a Config from a YAML file at path.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, wrapError(ErrorKindProcessingFailed, "config.load_file", "failed to open config file", err)
	}
	defer f.Close()
	return LoadConfig(f)
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
