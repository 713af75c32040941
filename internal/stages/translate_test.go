package stages

import (
	"context"
	"testing"

	"github.com/voxrelay/agentcore/pkg/frame"
	"github.com/voxrelay/agentcore/pkg/provider/llm"
	llmmock "github.com/voxrelay/agentcore/pkg/provider/llm/mock"
)

func TestTranslateStageInTranslatesToPivot(t *testing.T) {
	provider := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "Hola"}}
	stage := NewTranslateStage(provider, DirectionIn, "es")
	pctx := frame.NewProcessorContext("sess-1")
	pctx.InputLanguage = "en"

	in := frame.Frame{Kind: frame.KindGrammarCorrected, Text: "Hello"}
	out, err := stage.Process(context.Background(), pctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Kind != frame.KindTranslated {
		t.Fatalf("expected one Translated frame, got %+v", out)
	}
	if out[0].Text != "Hola" || out[0].FromLang != "en" || out[0].ToLang != "es" {
		t.Errorf("unexpected translated frame: %+v", out[0])
	}
}

func TestTranslateStageOutKeepsLLMCompleteKind(t *testing.T) {
	provider := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "Bonjour"}}
	stage := NewTranslateStage(provider, DirectionOut, "en")
	pctx := frame.NewProcessorContext("sess-1")
	pctx.OutputLanguage = "fr"

	in := frame.NewLLMComplete("Hello")
	out, err := stage.Process(context.Background(), pctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Kind != frame.KindLLMComplete {
		t.Fatalf("expected DirectionOut to preserve KindLLMComplete for the TTS streamer, got %+v", out)
	}
	if out[0].Text != "Bonjour" {
		t.Errorf("expected translated text, got %q", out[0].Text)
	}
}

func TestTranslateStageSkipsWhenLanguagesMatch(t *testing.T) {
	provider := &llmmock.Provider{}
	stage := NewTranslateStage(provider, DirectionIn, "en")
	pctx := frame.NewProcessorContext("sess-1")
	pctx.InputLanguage = "en"

	in := frame.Frame{Kind: frame.KindGrammarCorrected, Text: "Hello"}
	out, err := stage.Process(context.Background(), pctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(provider.CompleteCalls) != 0 {
		t.Errorf("expected no translation call when languages match")
	}
	if out[0].Kind != frame.KindGrammarCorrected {
		t.Errorf("expected pass-through frame, got %+v", out[0])
	}
}
