package stages

import (
	"context"
	"fmt"

	"github.com/voxrelay/agentcore/pkg/frame"
	"github.com/voxrelay/agentcore/pkg/processor"
	"github.com/voxrelay/agentcore/pkg/provider/llm"
	"github.com/voxrelay/agentcore/pkg/types"
)

// Direction selects which leg of the bilingual pivot a TranslateStage
// handles, per spec §4.3's optional incoming/outgoing translation stages.
type Direction int

const (
	// DirectionIn translates GrammarCorrected text from InputLanguage to
	// PivotLanguage before it reaches the language model.
	DirectionIn Direction = iota
	// DirectionOut translates the language model's completed text from
	// PivotLanguage to OutputLanguage before it reaches TTS.
	DirectionOut
)

// TranslateStage uses the configured LLM provider as a translation backend —
// the pack carries no dedicated machine-translation API, and prompting the
// same model already wired for completions is the teacher's own pattern for
// auxiliary text transforms (see internal/transcript/llmcorrect, which
// prompts an llm.Provider for correction rather than a dedicated service).
type TranslateStage struct {
	provider  llm.Provider
	direction Direction
	pivot     string
}

// NewTranslateStage constructs a TranslateStage. pivot is the shared
// intermediate language all text stages between VAD/STT and TTS operate in
// (e.g. "en") when InputLanguage/OutputLanguage differ from it.
func NewTranslateStage(provider llm.Provider, direction Direction, pivot string) *TranslateStage {
	return &TranslateStage{provider: provider, direction: direction, pivot: pivot}
}

// Name implements processor.Processor.
func (s *TranslateStage) Name() string {
	if s.direction == DirectionIn {
		return "translate-in"
	}
	return "translate-out"
}

// Process implements processor.Processor.
func (s *TranslateStage) Process(ctx context.Context, pctx *frame.ProcessorContext, f frame.Frame) ([]frame.Frame, error) {
	var from, to string
	switch s.direction {
	case DirectionIn:
		// Grammar correction is optional — accept either its output or a
		// bare final transcript so TranslateIn works whether or not a
		// Grammar stage precedes it in the chain.
		if f.Kind != frame.KindGrammarCorrected && f.Kind != frame.KindTranscriptFinal {
			return []frame.Frame{f}, nil
		}
		from, to = pctx.InputLanguage, s.pivot
	case DirectionOut:
		if f.Kind != frame.KindLLMComplete {
			return []frame.Frame{f}, nil
		}
		from, to = s.pivot, pctx.OutputLanguage
	}

	if from == "" || to == "" || from == to {
		return []frame.Frame{f}, nil
	}

	translated, err := s.translate(ctx, f.Text, from, to)
	if err != nil {
		return nil, processor.Transient(s.Name(), fmt.Errorf("translate: %w", err))
	}

	out := f
	out.Text = translated
	out.FromLang = from
	out.ToLang = to
	if s.direction == DirectionIn {
		// Downstream compliance/PII/LLM stages key off KindTranslated when
		// incoming translation ran; DirectionOut keeps KindLLMComplete so
		// the TTS streamer (internal/streaming.Streamer) still recognizes it.
		out.Kind = frame.KindTranslated
	}
	return []frame.Frame{out}, nil
}

func (s *TranslateStage) translate(ctx context.Context, text, from, to string) (string, error) {
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: fmt.Sprintf("Translate the user's message from %s to %s. Respond with only the translation, no commentary.", from, to),
		Messages:     []types.Message{{Role: "user", Content: text}},
		Temperature:  0,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
