// Package frame defines the tagged-union message that flows between pipeline
// processors, and the per-session context a processor exclusively borrows
// while handling one.
//
// A [Frame] is constructed once by its producing processor with every
// required field populated and is never mutated afterwards; it moves from
// stage to stage through bounded channels (see internal/pipeline) and a
// processor must not retain a reference to one after [processor.Processor.Process]
// returns.
package frame

import "time"

// Kind tags which variant of the Frame union is populated. Only the fields
// documented for a Kind are meaningful; all others are zero.
type Kind int

const (
	// KindAudioInput carries raw PCM audio captured from the client.
	KindAudioInput Kind = iota
	// KindAudioOutput carries synthesized PCM audio to be played to the client.
	KindAudioOutput

	// KindTranscriptPartial carries an interim, non-authoritative transcript.
	KindTranscriptPartial
	// KindTranscriptFinal carries the authoritative transcript for a user turn.
	KindTranscriptFinal

	// KindGrammarCorrected carries text after grammar/phonetic correction.
	KindGrammarCorrected
	// KindTranslated carries text translated from one language to another.
	KindTranslated
	// KindComplianceChecked carries text annotated with a compliance result.
	KindComplianceChecked
	// KindPIIRedacted carries text with personally identifying information removed.
	KindPIIRedacted

	// KindLLMChunk carries one streamed token/segment of an in-progress completion.
	KindLLMChunk
	// KindLLMComplete marks the end of an LLM completion; Text holds any final remainder.
	KindLLMComplete
	// KindToolCall carries a tool invocation requested by the language model.
	KindToolCall
	// KindToolResult carries the result of executing a ToolCall.
	KindToolResult

	// KindUserSpeaking indicates VAD has detected the user has begun speaking.
	KindUserSpeaking
	// KindUserSilence indicates VAD has detected a period of silence.
	KindUserSilence
	// KindBargeIn indicates the user spoke over the agent and synthesis should stop.
	KindBargeIn
	// KindEndOfTurn marks the end of the agent's current turn. Terminal.
	KindEndOfTurn
	// KindStateChange carries a ConversationState transition.
	KindStateChange

	// KindError carries a classified processor failure.
	KindError
	// KindMetrics carries a processor timing/event observation.
	KindMetrics
	// KindCustom carries a named, opaque payload for extension processors.
	KindCustom
)

// String returns the stable short identifier used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindAudioInput:
		return "audio_input"
	case KindAudioOutput:
		return "audio_output"
	case KindTranscriptPartial:
		return "transcript_partial"
	case KindTranscriptFinal:
		return "transcript_final"
	case KindGrammarCorrected:
		return "grammar_corrected"
	case KindTranslated:
		return "translated"
	case KindComplianceChecked:
		return "compliance_checked"
	case KindPIIRedacted:
		return "pii_redacted"
	case KindLLMChunk:
		return "llm_chunk"
	case KindLLMComplete:
		return "llm_complete"
	case KindToolCall:
		return "tool_call"
	case KindToolResult:
		return "tool_result"
	case KindUserSpeaking:
		return "user_speaking"
	case KindUserSilence:
		return "user_silence"
	case KindBargeIn:
		return "barge_in"
	case KindEndOfTurn:
		return "end_of_turn"
	case KindStateChange:
		return "state_change"
	case KindError:
		return "error"
	case KindMetrics:
		return "metrics"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// AudioSamples is raw PCM audio plus its format, shared by KindAudioInput and
// KindAudioOutput. Samples are 16-bit signed, matching the external contract
// in spec §6: normalization uses divisor 32768.0 and clamped multiplier 32767.0.
type AudioSamples struct {
	Samples     []int16
	SampleRate  uint32
	Channels    uint16
	TimestampMs uint64
}

// ToolCall is a single tool/function invocation requested by the language model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolResult is the outcome of executing a ToolCall.
type ToolResult struct {
	CallID  string
	Content string
	Err     string
}

// ErrorKind classifies a processor failure. See package processor for the
// canonical error type that carries this classification.
type ErrorKind int

const (
	ErrorTransient ErrorKind = iota
	ErrorValidation
	ErrorFatal
)

// Frame is the sole inter-processor message: a tagged union over every
// variant named in spec §3. Exactly the fields documented for Kind are
// meaningful.
type Frame struct {
	Kind Kind

	// Audio (KindAudioInput, KindAudioOutput)
	Audio AudioSamples

	// Text-bearing variants (Transcript*, GrammarCorrected, Translated,
	// ComplianceChecked, PIIRedacted, LLMChunk, LLMComplete, Custom name payload).
	Text string

	// Lang is the detected/target language for Transcript* and Translated frames.
	Lang string
	// FromLang/ToLang are populated for KindTranslated only.
	FromLang string
	ToLang   string

	// Confidence is the STT confidence score for Transcript* frames, [0,1].
	Confidence float64

	// ComplianceResult carries the outcome for KindComplianceChecked.
	ComplianceResult string

	Call   ToolCall
	Result ToolResult

	// SilenceDuration is populated for KindUserSilence.
	SilenceDuration time.Duration

	// AtWord is populated for KindBargeIn: the tts_word_index at the moment of
	// interruption, or nil if the agent was not yet speaking any word.
	AtWord *int

	// State is populated for KindStateChange.
	State ConversationState

	// Error fields (KindError)
	ErrProcessor  string
	ErrMessage    string
	ErrRecoverable bool

	// Metrics fields (KindMetrics)
	MetricsProcessor string
	MetricsEvent     string
	MetricsDurationMs float64
	MetricsMetadata   map[string]any

	// Custom fields (KindCustom)
	CustomName    string
	CustomPayload any
}

// TypeName returns the stable short identifier for this frame's Kind, used
// in logs and metrics.
func (f Frame) TypeName() string { return f.Kind.String() }

// IsTerminal reports whether this frame ends the current turn: EndOfTurn, or
// a non-recoverable Error.
func (f Frame) IsTerminal() bool {
	if f.Kind == KindEndOfTurn {
		return true
	}
	if f.Kind == KindError && !f.ErrRecoverable {
		return true
	}
	return false
}

// NewAudioInput constructs a KindAudioInput frame.
func NewAudioInput(samples []int16, sampleRate uint32, channels uint16, timestampMs uint64) Frame {
	return Frame{Kind: KindAudioInput, Audio: AudioSamples{Samples: samples, SampleRate: sampleRate, Channels: channels, TimestampMs: timestampMs}}
}

// NewAudioOutput constructs a KindAudioOutput frame.
func NewAudioOutput(samples []int16, sampleRate uint32, channels uint16, timestampMs uint64) Frame {
	return Frame{Kind: KindAudioOutput, Audio: AudioSamples{Samples: samples, SampleRate: sampleRate, Channels: channels, TimestampMs: timestampMs}}
}

// NewTranscriptPartial constructs a KindTranscriptPartial frame.
func NewTranscriptPartial(text, lang string, confidence float64) Frame {
	return Frame{Kind: KindTranscriptPartial, Text: text, Lang: lang, Confidence: confidence}
}

// NewTranscriptFinal constructs a KindTranscriptFinal frame.
func NewTranscriptFinal(text, lang string, confidence float64) Frame {
	return Frame{Kind: KindTranscriptFinal, Text: text, Lang: lang, Confidence: confidence}
}

// NewLLMChunk constructs a KindLLMChunk frame.
func NewLLMChunk(text string) Frame { return Frame{Kind: KindLLMChunk, Text: text} }

// NewLLMComplete constructs a KindLLMComplete frame.
func NewLLMComplete(text string) Frame { return Frame{Kind: KindLLMComplete, Text: text} }

// NewEndOfTurn constructs a KindEndOfTurn frame.
func NewEndOfTurn() Frame { return Frame{Kind: KindEndOfTurn} }

// NewBargeIn constructs a KindBargeIn frame. atWord is nil when the agent had
// not yet started speaking any word of the current sentence.
func NewBargeIn(atWord *int) Frame { return Frame{Kind: KindBargeIn, AtWord: atWord} }

// NewError constructs a KindError frame.
func NewError(processor, message string, recoverable bool) Frame {
	return Frame{Kind: KindError, ErrProcessor: processor, ErrMessage: message, ErrRecoverable: recoverable}
}

// NewMetrics constructs a KindMetrics frame.
func NewMetrics(processor, event string, durationMs float64, metadata map[string]any) Frame {
	return Frame{Kind: KindMetrics, MetricsProcessor: processor, MetricsEvent: event, MetricsDurationMs: durationMs, MetricsMetadata: metadata}
}

// NewCustom constructs a KindCustom frame.
func NewCustom(name string, payload any) Frame { return Frame{Kind: KindCustom, CustomName: name, CustomPayload: payload} }
