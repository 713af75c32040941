package streaming

import "time"

// State is the interrupt handler's current phase, per spec §4.4.
type State int

const (
	// Idle: the agent is not speaking; VAD events are ignored.
	Idle State = iota
	// AgentSpeaking: the agent is synthesizing/playing audio.
	AgentSpeaking
	// UserInterrupting: speech was detected while the agent was speaking;
	// the handler is accumulating duration before committing to a stop.
	UserInterrupting
)

// InterruptMode selects how aggressively to stop the agent on barge-in.
type InterruptMode int

const (
	Immediate InterruptMode = iota
	SentenceBoundary
	WordBoundary
)

// StopAction is what the pipeline should do in response to a confirmed
// barge-in.
type StopAction int

const (
	// StopNone: no action — speech has not yet crossed the confirmation threshold.
	StopNone StopAction = iota
	// StopNow: stop synthesis immediately and discard already-queued audio.
	StopNow
	// StopAtSentence: let the in-flight sentence finish, then stop.
	StopAtSentence
	// StopAtWord: stop at the next word boundary.
	StopAtWord
)

// crosstalkWindow is the tie-break window from spec §4.4: speech detected
// within this long of the agent starting to speak is treated as Immediate
// regardless of the configured mode (likely mic crosstalk).
const crosstalkWindow = 50 * time.Millisecond

// Handler is the barge-in state machine attached to the VAD output stream.
// It is not safe for concurrent use — the orchestrator serializes frame
// delivery per session, so a single goroutine drives Tick.
type Handler struct {
	mode           InterruptMode
	minSpeech      time.Duration
	silenceTimeout time.Duration

	state            State
	agentSpeechStart time.Time
	accumulated      time.Duration
	fired            bool
}

// NewHandler constructs a Handler. minSpeechMs and silenceTimeoutMs default
// to 200 and 500 respectively when zero, per spec §4.4.
func NewHandler(mode InterruptMode, minSpeechMs, silenceTimeoutMs int) *Handler {
	if minSpeechMs <= 0 {
		minSpeechMs = 200
	}
	if silenceTimeoutMs <= 0 {
		silenceTimeoutMs = 500
	}
	return &Handler{
		mode:           mode,
		minSpeech:      time.Duration(minSpeechMs) * time.Millisecond,
		silenceTimeout: time.Duration(silenceTimeoutMs) * time.Millisecond,
	}
}

// AgentStartSpeaking transitions the handler to AgentSpeaking and records
// the start time used for the crosstalk tie-break.
func (h *Handler) AgentStartSpeaking(now time.Time) {
	h.state = AgentSpeaking
	h.agentSpeechStart = now
	h.accumulated = 0
	h.fired = false
}

// AgentStopSpeaking returns the handler to Idle, e.g. once EndOfTurn fires
// normally (no barge-in occurred).
func (h *Handler) AgentStopSpeaking() {
	h.state = Idle
	h.accumulated = 0
}

// State returns the handler's current phase.
func (h *Handler) State() State { return h.state }

// Tick processes one VAD observation — isSpeech for the interval ending at
// now, lasting dt — and returns the action to take, if any.
func (h *Handler) Tick(now time.Time, isSpeech bool, dt time.Duration) StopAction {
	switch h.state {
	case Idle:
		return StopNone

	case AgentSpeaking:
		if !isSpeech {
			return StopNone
		}
		h.state = UserInterrupting
		h.accumulated = dt
		if now.Sub(h.agentSpeechStart) <= crosstalkWindow {
			return h.confirm(true)
		}
		if h.accumulated >= h.minSpeech {
			return h.confirm(false)
		}
		return StopNone

	case UserInterrupting:
		if isSpeech {
			h.accumulated += dt
			if !h.fired && h.accumulated >= h.minSpeech {
				return h.confirm(false)
			}
			return StopNone
		}
		// speech=false without exceeding the minimum: false-positive recovery.
		if !h.fired {
			h.state = AgentSpeaking
			h.accumulated = 0
		}
		return StopNone
	}
	return StopNone
}

// confirm commits to a stop action exactly once per AgentSpeaking episode.
// forceImmediate is set by the crosstalk tie-break, which overrides the
// configured mode.
func (h *Handler) confirm(forceImmediate bool) StopAction {
	h.fired = true
	h.state = Idle
	if forceImmediate {
		return StopNow
	}
	switch h.mode {
	case Immediate:
		return StopNow
	case WordBoundary:
		return StopAtWord
	case SentenceBoundary:
		return StopAtSentence
	default:
		return StopNow
	}
}
