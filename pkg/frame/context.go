package frame

import (
	"sync"

	"github.com/voxrelay/agentcore/pkg/memory"
)

// Conversation is the shared, multi-reader/single-writer turn history behind
// ProcessorContext.Conversation. Any processor may read it (e.g. a metrics
// sink building a transcript view); writes are taken under a write lock.
// Per spec §5, callers must never hold the write lock across a suspension
// point (an await / channel operation) — Append and the accessor methods
// below are the only sanctioned ways to touch it for exactly that reason.
type Conversation struct {
	mu      sync.RWMutex
	entries []memory.TranscriptEntry
}

// Append adds one entry to the conversation under a write lock.
func (c *Conversation) Append(e memory.TranscriptEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

// Entries returns a snapshot copy of the conversation so far. Safe for
// concurrent readers; the returned slice is owned by the caller.
func (c *Conversation) Entries() []memory.TranscriptEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]memory.TranscriptEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of recorded entries.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ProcessorContext is per-session mutable state exclusively borrowed by one
// processor at a time while it handles a single frame. The orchestrator
// serializes frame delivery per session, so the exclusivity invariant holds
// without an explicit lock on the struct itself — only Conversation (which
// may be read concurrently by sinks outside the processing path) needs one.
type ProcessorContext struct {
	SessionID      string
	InputLanguage  string
	OutputLanguage string

	Conversation *Conversation

	// Metadata is a free-form, string-keyed map for cross-processor hints
	// (e.g. an intent detector leaves a detected intent for downstream stages).
	Metadata map[string]any

	// TurnText accumulates the current user turn's transcript text.
	TurnText string

	// AgentSpeaking is true while TTS audio for the agent's turn is still
	// being produced or played. A processor emitting BargeIn must set this
	// false before returning (spec §4.1 invariant).
	AgentSpeaking bool

	// TTSWordIndex is the whitespace-token count of agent speech synthesized
	// so far in the current turn, advanced by the LLM→TTS streamer and read
	// by the interrupt handler to stamp BargeIn.AtWord.
	TTSWordIndex int
}

// NewProcessorContext creates a fresh per-session context.
func NewProcessorContext(sessionID string) *ProcessorContext {
	return &ProcessorContext{
		SessionID:    sessionID,
		Conversation: &Conversation{},
		Metadata:     make(map[string]any),
	}
}

// NewTurn resets per-turn state, ready for the next user utterance, per
// spec §3's ProcessorContext lifecycle.
func (c *ProcessorContext) NewTurn() {
	c.TurnText = ""
	c.AgentSpeaking = false
	c.TTSWordIndex = 0
}
