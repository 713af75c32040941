package pipeline

import (
	"fmt"

	"github.com/voxrelay/agentcore/internal/observe"
	"github.com/voxrelay/agentcore/pkg/processor"
)

// Builder accumulates an ordered list of processors and instantiates a
// [Pipeline] from them.
type Builder struct {
	stages   []processor.Processor
	capacity int
	metrics  *observe.Metrics
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Add appends a processor to the end of the chain. Passing a nil processor
// is a no-op, so optional stages can be added unconditionally by callers
// (see [StandardVoiceStages]).
func (b *Builder) Add(p processor.Processor) *Builder {
	if p == nil {
		return b
	}
	b.stages = append(b.stages, p)
	return b
}

// Capacity overrides the bounded channel size between stages.
func (b *Builder) Capacity(n int) *Builder {
	b.capacity = n
	return b
}

// Metrics overrides the [observe.Metrics] instance the pipeline records
// into.
func (b *Builder) Metrics(m *observe.Metrics) *Builder {
	b.metrics = m
	return b
}

// Build validates the accumulated stage list and returns a runnable
// Pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if len(b.stages) == 0 {
		return nil, fmt.Errorf("pipeline: builder has no stages")
	}
	return New(b.stages, b.capacity, b.metrics), nil
}

// StandardVoiceStages names the processors accepted by
// [BuildStandardVoicePipeline], per spec §4.3. VAD, STT, LLM, and
// TTSStreamer are required; the rest are optional text-stage processors —
// a nil field is simply skipped, never substituted with a no-op.
type StandardVoiceStages struct {
	VAD         processor.Processor // required
	STT         processor.Processor // required
	Grammar     processor.Processor // optional
	TranslateIn processor.Processor // optional: incoming translation, source → pivot language
	Compliance  processor.Processor // optional
	PII         processor.Processor // optional
	LLM         processor.Processor // required
	TranslateOut processor.Processor // optional: outgoing translation, pivot → target language
	TTSStreamer processor.Processor // required: the LLM→TTS streamer (internal/streaming)
}

// BuildStandardVoicePipeline wires the standard voice topology: VAD → STT →
// [grammar] → [incoming translation] → [compliance] → [PII redaction] → LLM
// → [outgoing translation] → TTS streamer. Required stages missing returns an error; optional stages
// left nil are skipped so the chain stays contiguous.
func BuildStandardVoicePipeline(stages StandardVoiceStages, opts ...func(*Builder)) (*Pipeline, error) {
	if stages.VAD == nil {
		return nil, fmt.Errorf("pipeline: standard voice builder requires a VAD processor")
	}
	if stages.STT == nil {
		return nil, fmt.Errorf("pipeline: standard voice builder requires an STT processor")
	}
	if stages.LLM == nil {
		return nil, fmt.Errorf("pipeline: standard voice builder requires an LLM processor")
	}
	if stages.TTSStreamer == nil {
		return nil, fmt.Errorf("pipeline: standard voice builder requires a TTS streamer processor")
	}

	b := NewBuilder().
		Add(stages.VAD).
		Add(stages.STT).
		Add(stages.Grammar).
		Add(stages.TranslateIn).
		Add(stages.Compliance).
		Add(stages.PII).
		Add(stages.LLM).
		Add(stages.TranslateOut).
		Add(stages.TTSStreamer)

	for _, opt := range opts {
		opt(b)
	}
	return b.Build()
}
