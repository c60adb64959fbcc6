package vocana

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the distinct failure modes a pipeline call can
// produce. Callers should switch on Kind rather than matching on
// error strings.
type ErrorKind int

const (
	// ErrorKindUnknown is never returned by this package; it is the
	// zero value so a forgotten Kind assignment is easy to spot.
	ErrorKindUnknown ErrorKind = iota

	// ErrorKindModelLoadFailed indicates a missing, oversized,
	// untrusted, or unparseable model file, or backend init failure.
	ErrorKindModelLoadFailed

	// ErrorKindInvalidAudioLength indicates |audio| < N_fft or
	// |audio| > F_s * MaxDuration.
	ErrorKindInvalidAudioLength

	// ErrorKindInvalidAudioValues indicates NaN, infinity, or
	// over-amplitude samples in the input.
	ErrorKindInvalidAudioValues

	// ErrorKindShapeMismatch indicates a tensor, spectrum, mask, or
	// coefficient array did not have the expected shape.
	ErrorKindShapeMismatch

	// ErrorKindMissingOutput indicates a required named tensor was
	// absent from a backend result.
	ErrorKindMissingOutput

	// ErrorKindInvalidNumeric indicates non-finite values in decoder
	// output that cannot be safely substituted.
	ErrorKindInvalidNumeric

	// ErrorKindProcessingFailed is the catch-all for internal
	// invariant violations that don't fit a more specific kind.
	ErrorKindProcessingFailed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindModelLoadFailed:
		return "ModelLoadFailed"
	case ErrorKindInvalidAudioLength:
		return "InvalidAudioLength"
	case ErrorKindInvalidAudioValues:
		return "InvalidAudioValues"
	case ErrorKindShapeMismatch:
		return "ShapeMismatch"
	case ErrorKindMissingOutput:
		return "MissingOutput"
	case ErrorKindInvalidNumeric:
		return "InvalidNumeric"
	case ErrorKindProcessingFailed:
		return "ProcessingFailed"
	default:
		return "Unknown"
	}
}

// Error is the error type returned from every fallible operation in
// this package. Op names the failing operation ("process",
// "stft.forward", "model_loader.open", ...); Err, when non-nil, wraps
// an underlying cause.
type Error struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vocana: %s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("vocana: %s: %s: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func newError(kind ErrorKind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func wrapError(kind ErrorKind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: cause}
}
