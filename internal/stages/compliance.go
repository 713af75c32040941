package stages

import (
	"context"
	"strings"

	"github.com/voxrelay/agentcore/internal/domain"
	"github.com/voxrelay/agentcore/pkg/frame"
)

// ComplianceStage checks the user turn's text (GrammarCorrected or
// Translated frames) against the domain's forbidden phrase list, annotating
// the frame with a ComplianceResult rather than editing the text itself.
// LLMStage accepts the annotated frame but does not read ComplianceResult;
// a flagged turn is answered like any other.
type ComplianceStage struct {
	cfg *domain.ComplianceConfig
}

// NewComplianceStage constructs a ComplianceStage. A nil cfg degrades to a
// pass-through annotator that always reports "ok".
func NewComplianceStage(cfg *domain.MasterDomainConfig) *ComplianceStage {
	if cfg == nil {
		return &ComplianceStage{}
	}
	return &ComplianceStage{cfg: cfg.Compliance}
}

// Name implements processor.Processor.
func (s *ComplianceStage) Name() string { return "compliance" }

// Process implements processor.Processor.
func (s *ComplianceStage) Process(ctx context.Context, pctx *frame.ProcessorContext, f frame.Frame) ([]frame.Frame, error) {
	if f.Kind != frame.KindGrammarCorrected && f.Kind != frame.KindTranslated {
		return []frame.Frame{f}, nil
	}

	result := "ok"
	if s.cfg != nil {
		lower := strings.ToLower(f.Text)
		for _, phrase := range s.cfg.ForbiddenPhrases {
			if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
				result = "forbidden_phrase:" + phrase
				break
			}
		}
	}

	out := f
	out.Kind = frame.KindComplianceChecked
	out.ComplianceResult = result
	return []frame.Frame{out}, nil
}
