package streaming

import "strings"

// Accumulator turns a stream of text fragments into complete sentences. It
// is stateful: Add feeds one fragment and returns every sentence the
// accumulated buffer newly completes; Flush returns any residual text.
//
// Invariant (spec §8): the concatenation of every sentence ever returned by
// Add plus the Flush residual equals the concatenation of all Add inputs,
// modulo whitespace trimmed at sentence boundaries.
type Accumulator struct {
	detector *Detector
	buf      strings.Builder
}

// NewAccumulator returns an Accumulator that splits sentences using d.
func NewAccumulator(d *Detector) *Accumulator {
	return &Accumulator{detector: d}
}

// Add appends chunk to the internal buffer and returns every sentence newly
// completed by it, in order. Add("") returns nil and leaves the buffer
// untouched.
func (a *Accumulator) Add(chunk string) []string {
	if chunk == "" {
		return nil
	}
	a.buf.WriteString(chunk)

	var sentences []string
	for {
		rest := a.buf.String()
		idx, ok := a.detector.FindBoundary(rest)
		if !ok {
			break
		}
		sentence := strings.TrimSpace(rest[:idx])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		a.buf.Reset()
		a.buf.WriteString(rest[idx:])
	}
	return sentences
}

// Flush returns any residual buffered text, trimmed, and clears the buffer.
// Returns "" if nothing remains.
func (a *Accumulator) Flush() string {
	residual := strings.TrimSpace(a.buf.String())
	a.buf.Reset()
	return residual
}
