package stages

import (
	"context"
	"testing"

	"github.com/voxrelay/agentcore/internal/domain"
	"github.com/voxrelay/agentcore/internal/session"
	"github.com/voxrelay/agentcore/pkg/frame"
	"github.com/voxrelay/agentcore/pkg/provider/llm"
	llmmock "github.com/voxrelay/agentcore/pkg/provider/llm/mock"
)

func TestLLMStageStreamsChunksThenComplete(t *testing.T) {
	provider := &llmmock.Provider{
		StreamChunks: []llm.Chunk{
			{Text: "Hello"},
			{Text: " there."},
			{FinishReason: "stop"},
		},
	}
	cfg := &domain.MasterDomainConfig{Prompts: &domain.PromptsConfig{System: "Be helpful."}}
	stage := NewLLMStage(provider, cfg, nil)
	pctx := frame.NewProcessorContext("sess-1")

	in := frame.Frame{Kind: frame.KindPIIRedacted, Text: "Hi there"}
	out, err := stage.Process(context.Background(), pctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 2 chunk frames + 1 complete frame, got %d: %+v", len(out), out)
	}
	if out[0].Kind != frame.KindLLMChunk || out[0].Text != "Hello" {
		t.Errorf("unexpected first chunk: %+v", out[0])
	}
	if out[1].Kind != frame.KindLLMChunk || out[1].Text != " there." {
		t.Errorf("unexpected second chunk: %+v", out[1])
	}
	if out[2].Kind != frame.KindLLMComplete {
		t.Errorf("expected terminal LLMComplete frame, got %+v", out[2])
	}
	if len(provider.StreamCalls) != 1 {
		t.Fatalf("expected exactly one StreamCompletion call, got %d", len(provider.StreamCalls))
	}
	if provider.StreamCalls[0].Req.SystemPrompt != "Be helpful." {
		t.Errorf("expected system prompt from domain config, got %q", provider.StreamCalls[0].Req.SystemPrompt)
	}
	if pctx.Conversation.Len() != 2 {
		t.Errorf("expected user+agent turn recorded, got %d entries", pctx.Conversation.Len())
	}
}

func TestLLMStageIgnoresUnrelatedFrames(t *testing.T) {
	provider := &llmmock.Provider{}
	stage := NewLLMStage(provider, &domain.MasterDomainConfig{}, nil)
	pctx := frame.NewProcessorContext("sess-1")

	in := frame.NewTranscriptPartial("still talking", "en", 0.5)
	out, err := stage.Process(context.Background(), pctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Kind != frame.KindTranscriptPartial {
		t.Fatalf("expected pass-through, got %+v", out)
	}
	if len(provider.StreamCalls) != 0 {
		t.Errorf("expected no LLM call for a non-final frame")
	}
}

func TestLLMStageWithContextManagerTracksBudget(t *testing.T) {
	provider := &llmmock.Provider{
		StreamChunks: []llm.Chunk{{Text: "Ok."}, {FinishReason: "stop"}},
	}
	ctxMgr := session.NewContextManager(session.ContextManagerConfig{
		MaxTokens:  1000,
		Summariser: session.NewLLMSummariser(provider),
	})
	stage := NewLLMStage(provider, &domain.MasterDomainConfig{}, ctxMgr)
	pctx := frame.NewProcessorContext("sess-1")

	in := frame.Frame{Kind: frame.KindGrammarCorrected, Text: "Hi"}
	if _, err := stage.Process(context.Background(), pctx, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctxMgr.TokenEstimate() == 0 {
		t.Errorf("expected ContextManager to have recorded turn tokens")
	}
	if len(ctxMgr.Messages()) != 2 {
		t.Errorf("expected user+assistant messages tracked, got %d", len(ctxMgr.Messages()))
	}
}
