// Package processor defines the uniform capability every pipeline stage
// exposes: asynchronously consume a frame and produce zero or more output
// frames, observing a shared per-session context.
package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/voxrelay/agentcore/pkg/frame"
)

// Processor is implemented by every pipeline stage — VAD, STT, grammar,
// translation, compliance, PII redaction, LLM, the LLM→TTS streamer, and so
// on. No inheritance: each stage is composed into a pipeline by the
// orchestrator (internal/pipeline).
//
// Implementations must not block the calling goroutine on CPU-heavy work;
// offload it to a dedicated worker pool of the implementation's own, and
// must not retain f or ctx after Process returns.
type Processor interface {
	// Name returns a static identifier used in tracing and metrics.
	Name() string

	// Process consumes one frame under an exclusive borrow of ctx and
	// returns an ordered list of output frames, or a classified error.
	//
	// The default behavior for any frame variant the processor does not
	// recognize is pass-through: return []frame.Frame{f}, nil unchanged,
	// so later stages still receive it in order.
	Process(ctx context.Context, pctx *frame.ProcessorContext, f frame.Frame) ([]frame.Frame, error)
}

// Error is the classified failure a Processor returns. The orchestrator
// inspects Kind to decide whether to retry, drop-and-continue, or shut down
// (spec §4.2, §7).
type Error struct {
	Processor string
	Kind      frame.ErrorKind
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Processor, kindLabel(e.Kind), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func kindLabel(k frame.ErrorKind) string {
	switch k {
	case frame.ErrorTransient:
		return "transient"
	case frame.ErrorValidation:
		return "validation"
	case frame.ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Transient wraps err as a TransientBackend failure: a remote dependency is
// temporarily unavailable. The orchestrator retries up to a bounded count
// with exponential backoff before surfacing a recoverable error frame.
func Transient(processorName string, err error) error {
	return &Error{Processor: processorName, Kind: frame.ErrorTransient, Err: err}
}

// Validation wraps err as a failure where the input frame violates a
// precondition. The orchestrator reports it and drops the offending frame;
// the pipeline continues.
func Validation(processorName string, err error) error {
	return &Error{Processor: processorName, Kind: frame.ErrorValidation, Err: err}
}

// Fatal wraps err as an unrecoverable failure. The orchestrator shuts the
// pipeline down after draining.
func Fatal(processorName string, err error) error {
	return &Error{Processor: processorName, Kind: frame.ErrorFatal, Err: err}
}

// ClassifyErr extracts the classification and message from err, defaulting
// to Fatal for errors not produced by Transient/Validation/Fatal — an
// unclassified failure is treated as the most conservative case.
func ClassifyErr(err error) (kind frame.ErrorKind, processorName, message string) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, pe.Processor, pe.Err.Error()
	}
	return frame.ErrorFatal, "", err.Error()
}
