package stages

import (
	"context"
	"strings"
	"testing"

	"github.com/voxrelay/agentcore/pkg/frame"
)

func TestPIIStageRedactsEmailAndPhone(t *testing.T) {
	stage := NewPIIStage()
	pctx := frame.NewProcessorContext("sess-1")

	in := frame.Frame{
		Kind: frame.KindComplianceChecked,
		Text: "Reach me at jane.doe@example.com or 555-123-4567.",
	}
	out, err := stage.Process(context.Background(), pctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Kind != frame.KindPIIRedacted {
		t.Fatalf("expected one PIIRedacted frame, got %+v", out)
	}
	if strings.Contains(out[0].Text, "jane.doe@example.com") {
		t.Errorf("expected email to be redacted, got %q", out[0].Text)
	}
	if !strings.Contains(out[0].Text, "[EMAIL]") {
		t.Errorf("expected [EMAIL] placeholder, got %q", out[0].Text)
	}
	if !strings.Contains(out[0].Text, "[PHONE]") {
		t.Errorf("expected [PHONE] placeholder, got %q", out[0].Text)
	}
}

func TestPIIStageIgnoresUnrelatedFrames(t *testing.T) {
	stage := NewPIIStage()
	pctx := frame.NewProcessorContext("sess-1")

	in := frame.NewTranscriptFinal("no pii here", "en", 0.9)
	out, err := stage.Process(context.Background(), pctx, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Kind != frame.KindTranscriptFinal {
		t.Fatalf("expected pass-through, got %+v", out)
	}
}
