package streaming

import (
	"context"
	"testing"

	"github.com/voxrelay/agentcore/pkg/frame"
)

type fakeSynth struct {
	calls []string
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.calls = append(f.calls, text)
	return []byte{0, 0, 1, 0}, nil // 2 int16 samples, non-empty
}

func TestStreamerEmitsAudioPerSentenceThenEndOfTurn(t *testing.T) {
	synth := &fakeSynth{}
	s := NewStreamer(synth, NewDetector(), 22050, 1)
	pctx := frame.NewProcessorContext("sess-1")

	var got []frame.Frame
	chunks := []string{"Hello wor", "ld. How are", " you?"}
	for _, c := range chunks {
		outs, err := s.Process(context.Background(), pctx, frame.NewLLMChunk(c))
		if err != nil {
			t.Fatalf("Process chunk %q: %v", c, err)
		}
		got = append(got, outs...)
	}
	final, err := s.Process(context.Background(), pctx, frame.NewLLMComplete(""))
	if err != nil {
		t.Fatalf("Process LLMComplete: %v", err)
	}
	got = append(got, final...)

	if len(got) != 3 {
		t.Fatalf("got %d frames, want 3 (2 AudioOutput + EndOfTurn); frames=%v", len(got), got)
	}
	if got[0].Kind != frame.KindAudioOutput || got[1].Kind != frame.KindAudioOutput {
		t.Fatalf("expected first two frames to be AudioOutput, got %v, %v", got[0].Kind, got[1].Kind)
	}
	if got[2].Kind != frame.KindEndOfTurn {
		t.Fatalf("expected final frame EndOfTurn, got %v", got[2].Kind)
	}
	wantCalls := []string{"Hello world.", "How are you?"}
	if len(synth.calls) != len(wantCalls) {
		t.Fatalf("synth calls = %v, want %v", synth.calls, wantCalls)
	}
	for i := range wantCalls {
		if synth.calls[i] != wantCalls[i] {
			t.Errorf("synth call[%d] = %q, want %q", i, synth.calls[i], wantCalls[i])
		}
	}
	if pctx.TTSWordIndex != 5 {
		t.Errorf("TTSWordIndex = %d, want 5", pctx.TTSWordIndex)
	}
	if pctx.AgentSpeaking {
		t.Error("AgentSpeaking should be false after EndOfTurn")
	}
}

func TestStreamerHindiSentence(t *testing.T) {
	synth := &fakeSynth{}
	s := NewStreamer(synth, NewDetector(), 22050, 1)
	pctx := frame.NewProcessorContext("sess-1")

	outs1, err := s.Process(context.Background(), pctx, frame.NewLLMChunk("नमस्ते। कैसे हो?"))
	if err != nil {
		t.Fatal(err)
	}
	outs2, err := s.Process(context.Background(), pctx, frame.NewLLMComplete(""))
	if err != nil {
		t.Fatal(err)
	}
	all := append(outs1, outs2...)
	if len(all) != 3 {
		t.Fatalf("got %d frames, want 3; frames=%v", len(all), all)
	}
	want := []string{"नमस्ते।", "कैसे हो?"}
	for i := range want {
		if synth.calls[i] != want[i] {
			t.Errorf("synth call[%d] = %q, want %q", i, synth.calls[i], want[i])
		}
	}
	if all[2].Kind != frame.KindEndOfTurn {
		t.Error("expected EndOfTurn as final frame")
	}
}

func TestStreamerPassesThroughUnknownFrames(t *testing.T) {
	s := NewStreamer(&fakeSynth{}, NewDetector(), 22050, 1)
	pctx := frame.NewProcessorContext("sess-1")
	in := frame.NewTranscriptFinal("hi", "en", 0.9)
	out, err := s.Process(context.Background(), pctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Kind != frame.KindTranscriptFinal {
		t.Errorf("expected pass-through, got %v", out)
	}
}
