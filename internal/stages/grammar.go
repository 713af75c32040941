package stages

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/voxrelay/agentcore/internal/domain"
	"github.com/voxrelay/agentcore/internal/transcript"
	"github.com/voxrelay/agentcore/pkg/frame"
	"github.com/voxrelay/agentcore/pkg/processor"
	"github.com/voxrelay/agentcore/pkg/types"
)

var wordBoundaryCache sync.Map // term (lowercase) -> *regexp.Regexp

// replaceWord substitutes every case-insensitive, word-boundary match of
// term in text with canonical.
func replaceWord(text, term, canonical string) string {
	key := strings.ToLower(term)
	re, ok := wordBoundaryCache.Load(key)
	if !ok {
		compiled, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		if err != nil {
			return text
		}
		re, _ = wordBoundaryCache.LoadOrStore(key, compiled)
	}
	return re.(*regexp.Regexp).ReplaceAllString(text, canonical)
}

// GrammarStage corrects STT output against the domain's configured
// vocabulary (phonetic corrections, terminology) before the transcript
// reaches translation or the language model. It only acts on
// TranscriptFinal frames — partials are left uncorrected since they are not
// authoritative and will be superseded.
type GrammarStage struct {
	pipeline transcript.Pipeline
	llm      *domain.LLMView
	entities []string
}

// NewGrammarStage constructs a GrammarStage. entities is the set of proper
// nouns the correction pipeline's phonetic matcher should recognize (e.g.
// brand/product names pulled from the domain config).
func NewGrammarStage(pipeline transcript.Pipeline, cfg *domain.MasterDomainConfig, entities []string) *GrammarStage {
	return &GrammarStage{pipeline: pipeline, llm: domain.NewLLMView(cfg), entities: entities}
}

// Name implements processor.Processor.
func (s *GrammarStage) Name() string { return "grammar" }

// Process implements processor.Processor.
func (s *GrammarStage) Process(ctx context.Context, pctx *frame.ProcessorContext, f frame.Frame) ([]frame.Frame, error) {
	if f.Kind != frame.KindTranscriptFinal {
		return []frame.Frame{f}, nil
	}

	text := s.applyTerminology(f.Text)
	corrected, err := s.pipeline.Correct(ctx, types.Transcript{Text: text, IsFinal: true, Confidence: f.Confidence}, s.entities)
	if err != nil {
		return nil, processor.Transient(s.Name(), fmt.Errorf("grammar: correct: %w", err))
	}

	out := frame.Frame{Kind: frame.KindGrammarCorrected, Text: corrected.Corrected, Lang: f.Lang, Confidence: f.Confidence}
	return []frame.Frame{out}, nil
}

// applyTerminology substitutes any domain-specific terminology aliases
// configured in vocabulary.yaml before phonetic/LLM correction runs.
func (s *GrammarStage) applyTerminology(text string) string {
	for term, canonical := range s.llm.Terminology() {
		text = replaceWord(text, term, canonical)
	}
	return text
}
