package streaming

import (
	"context"
	"fmt"
	"strings"

	"github.com/voxrelay/agentcore/pkg/audio"
	"github.com/voxrelay/agentcore/pkg/frame"
	"github.com/voxrelay/agentcore/pkg/processor"
	"github.com/voxrelay/agentcore/pkg/provider/tts"
	"github.com/voxrelay/agentcore/pkg/types"
)

// Synthesizer is the narrow capability the Streamer needs from a TTS
// backend: turn one complete sentence into PCM audio. ProviderSynthesizer
// adapts the richer streaming [tts.Provider] contract to this shape.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ProviderSynthesizer adapts a [tts.Provider] — whose native contract
// streams text fragments in and audio bytes out — into the one-sentence-in,
// one-clip-out [Synthesizer] shape the Streamer drives.
type ProviderSynthesizer struct {
	Provider tts.Provider
	Voice    types.VoiceProfile
}

// Synthesize sends text as a single-element, immediately-closed text stream
// and concatenates every audio chunk the provider emits in response.
func (s *ProviderSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	textCh := make(chan string, 1)
	textCh <- text
	close(textCh)

	audioCh, err := s.Provider.SynthesizeStream(ctx, textCh, s.Voice)
	if err != nil {
		return nil, err
	}
	var out []byte
	for chunk := range audioCh {
		out = append(out, chunk...)
	}
	return out, nil
}

// Streamer is the LLM→TTS streaming processor (spec §4.4). On each
// LLMChunk it feeds the sentence accumulator and synthesizes every newly
// completed sentence immediately, so the first sentence is audible before
// the model has finished producing the rest of the response. On
// LLMComplete it flushes the residual, emits a final AudioOutput if
// non-empty, and terminates the turn.
type Streamer struct {
	synth      Synthesizer
	acc        *Accumulator
	sampleRate uint32
	channels   uint16
}

// NewStreamer constructs a Streamer. sampleRate/channels describe the PCM
// format the synthesizer produces (used to stamp outgoing AudioOutput frames).
func NewStreamer(synth Synthesizer, detector *Detector, sampleRate uint32, channels uint16) *Streamer {
	return &Streamer{
		synth:      synth,
		acc:        NewAccumulator(detector),
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// Name implements processor.Processor.
func (s *Streamer) Name() string { return "tts-streamer" }

// Process implements processor.Processor.
func (s *Streamer) Process(ctx context.Context, pctx *frame.ProcessorContext, f frame.Frame) ([]frame.Frame, error) {
	switch f.Kind {
	case frame.KindLLMChunk:
		return s.synthesizeNewSentences(ctx, pctx, s.acc.Add(f.Text))

	case frame.KindLLMComplete:
		var out []frame.Frame
		if f.Text != "" {
			completed, err := s.synthesizeNewSentences(ctx, pctx, s.acc.Add(f.Text))
			if err != nil {
				return nil, err
			}
			out = append(out, completed...)
		}
		if residual := s.acc.Flush(); residual != "" {
			af, err := s.synthesizeSentence(ctx, pctx, residual)
			if err != nil {
				return nil, err
			}
			out = append(out, af)
		}
		out = append(out, frame.NewEndOfTurn())
		pctx.AgentSpeaking = false
		return out, nil

	default:
		return []frame.Frame{f}, nil
	}
}

func (s *Streamer) synthesizeNewSentences(ctx context.Context, pctx *frame.ProcessorContext, sentences []string) ([]frame.Frame, error) {
	out := make([]frame.Frame, 0, len(sentences))
	for _, sentence := range sentences {
		af, err := s.synthesizeSentence(ctx, pctx, sentence)
		if err != nil {
			return out, err
		}
		out = append(out, af)
	}
	return out, nil
}

// synthesizeSentence synthesizes one sentence, emits an AudioOutput frame,
// and advances context.agent_speaking / tts_word_index per spec §4.4.
func (s *Streamer) synthesizeSentence(ctx context.Context, pctx *frame.ProcessorContext, sentence string) (frame.Frame, error) {
	pcm, err := s.synth.Synthesize(ctx, sentence)
	if err != nil {
		return frame.Frame{}, processor.Transient(s.Name(), fmt.Errorf("synthesize sentence: %w", err))
	}
	pctx.AgentSpeaking = true
	pctx.TTSWordIndex += wordCount(sentence)

	samples := audio.BytesToInt16LE(pcm)
	return frame.NewAudioOutput(samples, s.sampleRate, s.channels, 0), nil
}

// wordCount counts whitespace-separated tokens, matching spec §4.4's
// definition of tts_word_index.
func wordCount(s string) int {
	return len(strings.Fields(s))
}
