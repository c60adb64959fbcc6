package vocana

import "go.uber.org/zap"

// Logger channel names, matching spec §6. Each channel is a separate
// *zap.Logger obtained via Logging.Named.
const (
	ChannelML       = "ml"
	ChannelSTFT     = "stft"
	ChannelERB      = "erb"
	ChannelSpectral = "spec"
	ChannelDF       = "df"
	ChannelPipeline = "pipeline"
)

// Logging is the Logger capability: a process-wide base logger that
// hands out named child loggers for each subsystem channel. It is
// safe to share across pipelines.
type Logging struct {
	base *zap.Logger
}

// NewLogging wraps an existing *zap.Logger as the Logger capability.
// Passing nil is equivalent to NopLogging().
func NewLogging(base *zap.Logger) Logging {
	if base == nil {
		base = zap.NewNop()
	}
	return Logging{base: base}
}

// NopLogging returns a Logger capability that discards everything,
// the construction-time default so the engine never requires a
// logging backend to run.
func NopLogging() Logging {
	return Logging{base: zap.NewNop()}
}

// Named returns the *zap.Logger for a given channel.
func (l Logging) Named(channel string) *zap.Logger {
	if l.base == nil {
		return zap.NewNop()
	}
	return l.base.Named(channel)
}
