package streaming

import (
	"context"
	"testing"
	"time"

	"github.com/voxrelay/agentcore/pkg/frame"
)

func TestInterruptStagePassesThroughWhileAgentSilent(t *testing.T) {
	stage := NewInterruptStage(NewHandler(Immediate, 200, 500), nil)
	pctx := frame.NewProcessorContext("sess-1")

	out, err := stage.Process(context.Background(), pctx, frame.Frame{Kind: frame.KindUserSpeaking})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Kind != frame.KindUserSpeaking {
		t.Fatalf("expected pass-through with no BargeIn while idle, got %v", out)
	}
}

func TestInterruptStageEmitsBargeInAndClearsAgentSpeaking(t *testing.T) {
	now := time.Unix(100, 0)
	clock := func() time.Time { return now }
	stage := NewInterruptStage(NewHandler(Immediate, 200, 500), clock)
	pctx := frame.NewProcessorContext("sess-1")

	pctx.AgentSpeaking = true
	pctx.TTSWordIndex = 3

	// Prime the stage with a non-speech frame so AgentStartSpeaking is
	// recorded now, before any speech tick — otherwise the first speech tick
	// would coincide with the start time and trip the crosstalk tie-break.
	if _, err := stage.Process(context.Background(), pctx, frame.Frame{Kind: frame.KindUserSilence}); err != nil {
		t.Fatal(err)
	}
	now = now.Add(100 * time.Millisecond) // past crosstalk window from AgentStartSpeaking

	// Drive enough speech ticks to exceed the 200ms minimum.
	var lastOut []frame.Frame
	for i := 0; i < 12; i++ {
		now = now.Add(20 * time.Millisecond)
		out, err := stage.Process(context.Background(), pctx, frame.Frame{Kind: frame.KindUserSpeaking})
		if err != nil {
			t.Fatal(err)
		}
		lastOut = out
		if len(out) == 2 {
			break
		}
	}

	if len(lastOut) != 2 {
		t.Fatalf("expected [UserSpeaking, BargeIn] once threshold crossed, got %v", lastOut)
	}
	if lastOut[1].Kind != frame.KindBargeIn {
		t.Fatalf("expected second frame to be BargeIn, got %v", lastOut[1].Kind)
	}
	if lastOut[1].AtWord == nil || *lastOut[1].AtWord != 3 {
		t.Errorf("BargeIn.AtWord = %v, want pointer to 3", lastOut[1].AtWord)
	}
	if pctx.AgentSpeaking {
		t.Error("AgentSpeaking must be false after BargeIn is emitted")
	}
}

func TestInterruptStageSilenceUsesFrameDurationNotWallClock(t *testing.T) {
	// The clock does not advance between the speech frame and the later
	// silence frame, simulating a UserSilence frame that sat in an upstream
	// channel for a while before this stage dequeued it — wall-clock dt
	// between those Process calls reads 0 even though the VAD-reported
	// SilenceDuration on the frame is large. The stage must use
	// f.SilenceDuration, not a wall-clock gap, for the silence path.
	now := time.Unix(200, 0)
	clock := func() time.Time { return now }
	stage := NewInterruptStage(NewHandler(Immediate, 200, 500), clock)
	pctx := frame.NewProcessorContext("sess-1")
	pctx.AgentSpeaking = true

	// Enter UserInterrupting without crossing the confirm threshold.
	if _, err := stage.Process(context.Background(), pctx, frame.Frame{Kind: frame.KindUserSilence}); err != nil {
		t.Fatal(err)
	}
	// Move past the 50ms crosstalk window after agent speech start, which
	// would otherwise confirm the barge-in immediately.
	now = now.Add(100 * time.Millisecond)
	out, err := stage.Process(context.Background(), pctx, frame.Frame{Kind: frame.KindUserSpeaking})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected no BargeIn yet (dt=100ms, below min_speech), got %v", out)
	}
	if stage.handler.State() != UserInterrupting {
		t.Fatalf("state = %v, want UserInterrupting", stage.handler.State())
	}

	// A silence frame reporting a long VAD-observed gap must still be
	// honored as a false-positive recovery back to AgentSpeaking even though
	// the wall clock has not moved since the speech frame.
	silence := frame.Frame{Kind: frame.KindUserSilence, SilenceDuration: 800 * time.Millisecond}
	if _, err := stage.Process(context.Background(), pctx, silence); err != nil {
		t.Fatal(err)
	}
	if stage.handler.State() != AgentSpeaking {
		t.Fatalf("state = %v, want AgentSpeaking after silence recovery", stage.handler.State())
	}
}

func TestInterruptStageIgnoresUnrelatedFrames(t *testing.T) {
	stage := NewInterruptStage(NewHandler(Immediate, 200, 500), nil)
	pctx := frame.NewProcessorContext("sess-1")
	in := frame.NewLLMChunk("hello")
	out, err := stage.Process(context.Background(), pctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Kind != frame.KindLLMChunk {
		t.Fatalf("expected pass-through, got %v", out)
	}
}
