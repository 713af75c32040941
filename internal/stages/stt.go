package stages

import (
	"context"
	"fmt"

	"github.com/voxrelay/agentcore/pkg/audio"
	"github.com/voxrelay/agentcore/pkg/frame"
	"github.com/voxrelay/agentcore/pkg/processor"
	"github.com/voxrelay/agentcore/pkg/provider/stt"
)

// STTStage adapts an already-opened [stt.SessionHandle] to the processor
// contract: every AudioInput frame is forwarded to the session, and any
// transcripts already waiting on the session's Partials/Finals channels are
// drained non-blockingly and turned into TranscriptPartial/TranscriptFinal
// frames before the audio frame itself is passed through.
type STTStage struct {
	session stt.SessionHandle
	lang    string
}

// NewSTTStage constructs an STTStage over an already-opened session.
func NewSTTStage(session stt.SessionHandle, lang string) *STTStage {
	return &STTStage{session: session, lang: lang}
}

// Name implements processor.Processor.
func (s *STTStage) Name() string { return "stt" }

// Process implements processor.Processor.
func (s *STTStage) Process(ctx context.Context, pctx *frame.ProcessorContext, f frame.Frame) ([]frame.Frame, error) {
	if f.Kind != frame.KindAudioInput {
		return []frame.Frame{f}, nil
	}

	pcm := audio.Int16ToBytesLE(f.Audio.Samples)
	if err := s.session.SendAudio(pcm); err != nil {
		return nil, processor.Transient(s.Name(), fmt.Errorf("stt: send audio: %w", err))
	}

	out := s.drain(pctx)
	out = append(out, f)
	return out, nil
}

// drain collects every transcript already available on the session's
// channels without blocking. When both channels have a transcript ready,
// select picks between them at random, so the relative order of partials
// and finals within a single drain pass is not defined.
func (s *STTStage) drain(pctx *frame.ProcessorContext) []frame.Frame {
	var out []frame.Frame
	for {
		select {
		case t, ok := <-s.session.Partials():
			if !ok {
				return out
			}
			out = append(out, frame.NewTranscriptPartial(t.Text, s.lang, t.Confidence))
		case t, ok := <-s.session.Finals():
			if !ok {
				return out
			}
			pctx.TurnText += t.Text
			out = append(out, frame.NewTranscriptFinal(t.Text, s.lang, t.Confidence))
		default:
			return out
		}
	}
}
