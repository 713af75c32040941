// Package streaming implements the latency-critical path of the voice
// pipeline: sentence-boundary detection across scripts, LLM-chunk-to-TTS
// streaming, and the barge-in interrupt state machine (spec §4.4).
package streaming

// Detector finds sentence boundaries in a stream of text. It is stateless:
// given a string it returns the byte offset just past the first sentence
// terminator, or ok=false if none is present. Offsets are byte-based but
// boundary-safe — a terminator rune is never split across the returned
// offset, so multi-byte scripts (Devanagari, Arabic, …) are handled
// correctly without special-casing.
//
// The terminator set is configurable per spec §4.4: adding a language's
// terminator is an O(1) set insert, never a code change.
type Detector struct {
	terminators map[rune]struct{}
}

// DefaultTerminators is the minimum terminator set required by spec §4.4:
// Latin '.', '!', '?', Devanagari danda '।' and double danda '॥', and the
// Arabic question mark '؟' and full stop '۔'.
var DefaultTerminators = []rune{'.', '!', '?', '।', '॥', '؟', '۔'}

// NewDetector returns a Detector seeded with [DefaultTerminators] plus any
// extra runes supplied by the caller (e.g. domain-specific terminators
// loaded from configuration).
func NewDetector(extra ...rune) *Detector {
	d := &Detector{terminators: make(map[rune]struct{}, len(DefaultTerminators)+len(extra))}
	for _, r := range DefaultTerminators {
		d.terminators[r] = struct{}{}
	}
	for _, r := range extra {
		d.terminators[r] = struct{}{}
	}
	return d
}

// Add registers r as an additional sentence terminator. O(1).
func (d *Detector) Add(r rune) { d.terminators[r] = struct{}{} }

// IsTerminator reports whether r is a configured sentence terminator.
func (d *Detector) IsTerminator(r rune) bool {
	_, ok := d.terminators[r]
	return ok
}

// FindBoundary returns the byte offset just past the first sentence
// terminator in s, and true if one was found. The offset always lands on a
// code-point boundary since it is derived from ranging over s as runes.
func (d *Detector) FindBoundary(s string) (int, bool) {
	for i, r := range s {
		if d.IsTerminator(r) {
			return i + runeLen(r), true
		}
	}
	return 0, false
}

// runeLen returns the UTF-8 encoded byte length of r without allocating.
func runeLen(r rune) int {
	switch {
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < 0x10000:
		return 3
	default:
		return 4
	}
}
