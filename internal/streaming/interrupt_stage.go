package streaming

import (
	"context"
	"time"

	"github.com/voxrelay/agentcore/pkg/frame"
)

// Clock abstracts time.Now so tests can drive Tick deterministically without
// real sleeps.
type Clock func() time.Time

// InterruptStage adapts [Handler] to the processor contract: it watches
// UserSpeaking/UserSilence frames produced by VAD, tracks when the agent
// starts/stops speaking via context.AgentSpeaking transitions, and emits
// BargeIn frames into the pipeline so every downstream stage (TTS, logging)
// reacts uniformly — an interrupt is a message, not an out-of-band signal
// (spec §9).
type InterruptStage struct {
	handler *Handler
	clock   Clock
	lastTick time.Time

	wasAgentSpeaking bool
}

// NewInterruptStage constructs an InterruptStage. clock defaults to
// time.Now when nil.
func NewInterruptStage(handler *Handler, clock Clock) *InterruptStage {
	if clock == nil {
		clock = time.Now
	}
	return &InterruptStage{handler: handler, clock: clock}
}

// Name implements processor.Processor.
func (s *InterruptStage) Name() string { return "interrupt-handler" }

// Process implements processor.Processor.
func (s *InterruptStage) Process(ctx context.Context, pctx *frame.ProcessorContext, f frame.Frame) ([]frame.Frame, error) {
	s.syncAgentSpeaking(pctx)

	switch f.Kind {
	case frame.KindUserSpeaking:
		return s.tick(pctx, f, true, s.wallClockDelta())
	case frame.KindUserSilence:
		// SilenceDuration is the VAD-reported duration carried on the frame
		// itself, so it reflects actual silence rather than however long the
		// frame happened to sit in an upstream channel before this stage
		// dequeued it. Still advance the wall-clock baseline so a subsequent
		// UserSpeaking frame's dt is measured from now, not from before the
		// silence.
		s.wallClockDelta()
		return s.tick(pctx, f, false, f.SilenceDuration)
	default:
		return []frame.Frame{f}, nil
	}
}

// wallClockDelta returns the elapsed time since the previous tick and resets
// the baseline. Used for KindUserSpeaking, which carries no VAD-reported
// duration of its own — only KindUserSilence does (SilenceDuration).
func (s *InterruptStage) wallClockDelta() time.Duration {
	now := s.clock()
	var dt time.Duration
	if !s.lastTick.IsZero() {
		dt = now.Sub(s.lastTick)
	}
	s.lastTick = now
	return dt
}

// syncAgentSpeaking notices context.AgentSpeaking edge transitions driven by
// the TTS streamer elsewhere in the pipeline and informs the handler.
func (s *InterruptStage) syncAgentSpeaking(pctx *frame.ProcessorContext) {
	now := s.clock()
	if pctx.AgentSpeaking && !s.wasAgentSpeaking {
		s.handler.AgentStartSpeaking(now)
	} else if !pctx.AgentSpeaking && s.wasAgentSpeaking {
		s.handler.AgentStopSpeaking()
	}
	s.wasAgentSpeaking = pctx.AgentSpeaking
}

func (s *InterruptStage) tick(pctx *frame.ProcessorContext, f frame.Frame, isSpeech bool, dt time.Duration) ([]frame.Frame, error) {
	now := s.clock()
	action := s.handler.Tick(now, isSpeech, dt)
	if action == StopNone {
		return []frame.Frame{f}, nil
	}

	wordIdx := pctx.TTSWordIndex
	bargeIn := frame.NewBargeIn(&wordIdx)
	pctx.AgentSpeaking = false
	s.wasAgentSpeaking = false
	return []frame.Frame{f, bargeIn}, nil
}
