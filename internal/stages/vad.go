// Package stages adapts the teacher's provider backends (pkg/provider/...)
// and business-rule subsystems (internal/transcript, internal/domain) into
// concrete processor.Processor implementations, so the standard voice
// topology built by internal/pipeline.BuildStandardVoicePipeline can
// actually be constructed end to end.
package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/voxrelay/agentcore/pkg/audio"
	"github.com/voxrelay/agentcore/pkg/frame"
	"github.com/voxrelay/agentcore/pkg/processor"
	"github.com/voxrelay/agentcore/pkg/provider/vad"
	"github.com/voxrelay/agentcore/pkg/types"
)

// VADStage adapts a single [vad.SessionHandle] to the processor contract. It
// passes every AudioInput frame through unchanged (so STT still receives raw
// audio) and additionally emits a UserSpeaking frame on speech start (once
// per utterance) and on every speech-continue event, and a UserSilence frame
// carrying one frame's duration on every speech-end or silence event.
type VADStage struct {
	session    vad.SessionHandle
	frameBytes int
	speaking   bool
}

// NewVADStage constructs a VADStage over an already-opened session. frameCfg
// must match the Config the session was created with.
func NewVADStage(session vad.SessionHandle, frameCfg vad.Config) *VADStage {
	bytesPerFrame := frameCfg.SampleRate * frameCfg.FrameSizeMs / 1000 * 2
	return &VADStage{session: session, frameBytes: bytesPerFrame}
}

// Name implements processor.Processor.
func (s *VADStage) Name() string { return "vad" }

// Process implements processor.Processor.
func (s *VADStage) Process(ctx context.Context, pctx *frame.ProcessorContext, f frame.Frame) ([]frame.Frame, error) {
	if f.Kind != frame.KindAudioInput {
		return []frame.Frame{f}, nil
	}

	pcm := audio.Int16ToBytesLE(f.Audio.Samples)
	event, err := s.session.ProcessFrame(pcm)
	if err != nil {
		return nil, processor.Transient(s.Name(), fmt.Errorf("vad: process frame: %w", err))
	}

	out := []frame.Frame{f}
	switch event.Type {
	case types.VADSpeechStart:
		if !s.speaking {
			s.speaking = true
			out = append(out, frame.Frame{Kind: frame.KindUserSpeaking})
		}
	case types.VADSpeechContinue:
		out = append(out, frame.Frame{Kind: frame.KindUserSpeaking})
	case types.VADSpeechEnd, types.VADSilence:
		s.speaking = false
		out = append(out, frame.Frame{Kind: frame.KindUserSilence, SilenceDuration: durationFromBytes(s.frameBytes, f.Audio.SampleRate)})
	}
	return out, nil
}

func durationFromBytes(frameBytes int, sampleRate uint32) (d time.Duration) {
	if frameBytes <= 0 || sampleRate == 0 {
		return 0
	}
	samples := frameBytes / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
