package stages

import (
	"context"
	"regexp"

	"github.com/voxrelay/agentcore/pkg/frame"
)

// PIIStage redacts personally identifying information from compliance-
// checked text before it reaches the language model. It never blocks a
// frame — it rewrites Text in place and re-tags the frame as PIIRedacted.
type PIIStage struct {
	patterns []piiPattern
}

// NewPIIStage constructs a PIIStage over the default pattern set.
func NewPIIStage() *PIIStage {
	return &PIIStage{patterns: defaultPIIPatterns}
}

// Name implements processor.Processor.
func (s *PIIStage) Name() string { return "pii-redaction" }

// Process implements processor.Processor.
func (s *PIIStage) Process(ctx context.Context, pctx *frame.ProcessorContext, f frame.Frame) ([]frame.Frame, error) {
	if f.Kind != frame.KindComplianceChecked {
		return []frame.Frame{f}, nil
	}

	text := f.Text
	for _, p := range s.patterns {
		text = p.pattern.ReplaceAllString(text, p.placeholder)
	}

	out := f
	out.Kind = frame.KindPIIRedacted
	out.Text = text
	return []frame.Frame{out}, nil
}

// piiPattern is a named PII detection pattern with its redaction placeholder.
type piiPattern struct {
	name        string
	pattern     *regexp.Regexp
	placeholder string
}

// defaultPIIPatterns are the built-in PII detection patterns: email, credit
// card, SSN, phone, and IPv4 address.
var defaultPIIPatterns = []piiPattern{
	{name: "email", pattern: regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), placeholder: "[EMAIL]"},
	{name: "credit_card", pattern: regexp.MustCompile(`\b(?:[0-9]{4}[-\s]?){3}[0-9]{4}\b`), placeholder: "[CREDIT_CARD]"},
	{name: "ssn", pattern: regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`), placeholder: "[SSN]"},
	{name: "phone", pattern: regexp.MustCompile(`(\+?1[-.\s]?)?\(?[0-9]{3}\)?[-.\s][0-9]{3}[-.\s]?[0-9]{4}`), placeholder: "[PHONE]"},
	{name: "ip_address", pattern: regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`), placeholder: "[IP_ADDRESS]"},
}
