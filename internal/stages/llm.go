package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/voxrelay/agentcore/internal/domain"
	"github.com/voxrelay/agentcore/internal/session"
	"github.com/voxrelay/agentcore/pkg/frame"
	"github.com/voxrelay/agentcore/pkg/memory"
	"github.com/voxrelay/agentcore/pkg/processor"
	"github.com/voxrelay/agentcore/pkg/provider/llm"
	"github.com/voxrelay/agentcore/pkg/types"
)

// acceptedKinds are the frame kinds that can carry a finalized user turn into
// the LLM stage. Compliance/PII/translation are optional pipeline stages, so
// the LLM stage accepts whichever kind the last active upstream stage left
// behind, per internal/pipeline.BuildStandardVoicePipeline's ordering.
var acceptedKinds = map[frame.Kind]bool{
	frame.KindPIIRedacted:       true,
	frame.KindComplianceChecked: true,
	frame.KindTranslated:        true,
	frame.KindGrammarCorrected:  true,
	frame.KindTranscriptFinal:   true,
}

// LLMStage turns a finalized, corrected/translated user turn into a streamed
// agent response. It maintains conversation history both on
// ProcessorContext.Conversation (for transcript consumers) and, if a
// ContextManager was supplied, for context-window budget enforcement across
// the session's lifetime.
type LLMStage struct {
	provider llm.Provider
	view     *domain.LLMView
	ctxMgr   *session.ContextManager
}

// NewLLMStage constructs an LLMStage. ctxMgr may be nil, in which case the
// stage replays the full ProcessorContext.Conversation on every turn instead
// of enforcing a token budget.
func NewLLMStage(provider llm.Provider, cfg *domain.MasterDomainConfig, ctxMgr *session.ContextManager) *LLMStage {
	return &LLMStage{provider: provider, view: domain.NewLLMView(cfg), ctxMgr: ctxMgr}
}

// Name implements processor.Processor.
func (s *LLMStage) Name() string { return "llm" }

// Process implements processor.Processor.
func (s *LLMStage) Process(ctx context.Context, pctx *frame.ProcessorContext, f frame.Frame) ([]frame.Frame, error) {
	if !acceptedKinds[f.Kind] {
		return []frame.Frame{f}, nil
	}

	userText := f.Text
	if userText == "" {
		return nil, nil
	}

	pctx.Conversation.Append(memory.TranscriptEntry{
		SpeakerName: "user",
		Text:        userText,
		Timestamp:   time.Now(),
	})

	messages, err := s.turnMessages(ctx, pctx, userText)
	if err != nil {
		return nil, processor.Transient(s.Name(), fmt.Errorf("llm: build turn messages: %w", err))
	}

	chunks, err := s.provider.StreamCompletion(ctx, llm.CompletionRequest{
		SystemPrompt: s.view.SystemPrompt(),
		Messages:     messages,
	})
	if err != nil {
		return nil, processor.Transient(s.Name(), fmt.Errorf("llm: stream completion: %w", err))
	}

	var out []frame.Frame
	var full string
	for chunk := range chunks {
		if chunk.FinishReason == "error" {
			return nil, processor.Transient(s.Name(), fmt.Errorf("llm: provider reported a stream error"))
		}
		if chunk.Text == "" {
			continue
		}
		full += chunk.Text
		out = append(out, frame.NewLLMChunk(chunk.Text))
	}
	out = append(out, frame.NewLLMComplete(""))

	pctx.Conversation.Append(memory.TranscriptEntry{
		SpeakerName: "agent",
		Text:        full,
		IsNPC:       true,
		Timestamp:   time.Now(),
	})
	if s.ctxMgr != nil {
		if err := s.ctxMgr.AddMessages(ctx, llm.Message{Role: "assistant", Content: full}); err != nil {
			return nil, processor.Transient(s.Name(), fmt.Errorf("llm: record assistant turn: %w", err))
		}
	}

	return out, nil
}

// turnMessages returns the message list to send this turn: ContextManager's
// budget-managed history when configured (userText was already appended to
// pctx.Conversation by the caller, and is appended here too so both views
// stay in sync), otherwise a full replay of ProcessorContext.Conversation.
func (s *LLMStage) turnMessages(ctx context.Context, pctx *frame.ProcessorContext, userText string) ([]types.Message, error) {
	if s.ctxMgr == nil {
		return s.conversationMessages(pctx), nil
	}

	if err := s.ctxMgr.AddMessages(ctx, llm.Message{Role: "user", Content: userText}); err != nil {
		return nil, err
	}
	return toTypesMessages(s.ctxMgr.Messages()), nil
}

// conversationMessages builds the message list directly from the shared
// transcript when no ContextManager was configured for this session.
func (s *LLMStage) conversationMessages(pctx *frame.ProcessorContext) []types.Message {
	entries := pctx.Conversation.Entries()
	msgs := make([]types.Message, 0, len(entries))
	for _, e := range entries {
		role := "user"
		if e.IsNPC {
			role = "assistant"
		}
		msgs = append(msgs, types.Message{Role: role, Content: e.Text})
	}
	return msgs
}

// toTypesMessages converts ContextManager's llm.Message history into the
// types.Message shape the Provider interface consumes. The two types are
// structurally identical but distinct named types, so the conversion is a
// straight field copy.
func toTypesMessages(msgs []llm.Message) []types.Message {
	out := make([]types.Message, len(msgs))
	for i, m := range msgs {
		toolCalls := make([]types.ToolCall, len(m.ToolCalls))
		for j, tc := range m.ToolCalls {
			toolCalls[j] = types.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}
		}
		out[i] = types.Message{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCalls:  toolCalls,
			ToolCallID: m.ToolCallID,
		}
	}
	return out
}
