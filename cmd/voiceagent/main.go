// Command voiceagent is the entry point for the real-time voice-conversation
// agent core. It loads a domain configuration, instantiates the provider
// backends the domain's pipeline needs, assembles the standard voice
// topology, and runs it until shutdown.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/voxrelay/agentcore/internal/config"
	"github.com/voxrelay/agentcore/internal/domain"
	"github.com/voxrelay/agentcore/internal/pipeline"
	"github.com/voxrelay/agentcore/internal/session"
	"github.com/voxrelay/agentcore/internal/stages"
	"github.com/voxrelay/agentcore/internal/streaming"
	"github.com/voxrelay/agentcore/internal/transcript"
	"github.com/voxrelay/agentcore/internal/transcript/phonetic"
	"github.com/voxrelay/agentcore/pkg/frame"
	"github.com/voxrelay/agentcore/pkg/provider/llm"
	"github.com/voxrelay/agentcore/pkg/provider/llm/anyllm"
	"github.com/voxrelay/agentcore/pkg/provider/llm/openai"
	"github.com/voxrelay/agentcore/pkg/provider/stt"
	"github.com/voxrelay/agentcore/pkg/provider/stt/deepgram"
	"github.com/voxrelay/agentcore/pkg/provider/stt/whisper"
	"github.com/voxrelay/agentcore/pkg/provider/tts"
	"github.com/voxrelay/agentcore/pkg/provider/tts/coqui"
	"github.com/voxrelay/agentcore/pkg/provider/tts/elevenlabs"
	"github.com/voxrelay/agentcore/pkg/provider/vad"
	vadmock "github.com/voxrelay/agentcore/pkg/provider/vad/mock"
)

// Exit codes per spec §6: a clean shutdown, a configuration/validation
// failure, a required ML capability unreachable at startup, and an internal
// fatal error surfacing after the pipeline was already running.
const (
	exitOK = iota
	exitConfig
	exitCapabilityUnreachable
	exitFatal
)

// pivotLanguage is the language the LLM itself converses in; TranslateIn
// brings transcripts to it, TranslateOut carries the response back to the
// caller's language.
const pivotLanguage = "en"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML provider/infrastructure configuration file")
	flag.Parse()

	domainID := os.Getenv("DOMAIN_ID")
	if domainID == "" {
		fmt.Fprintln(os.Stderr, "voiceagent: DOMAIN_ID environment variable is required")
		return exitConfig
	}
	dataDir := os.Getenv("VOICE_AGENT_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voiceagent: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voiceagent: %v\n", err)
		}
		return exitConfig
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	domainCfg, err := domain.Load(domainID, dataDir)
	if err != nil {
		slog.Error("domain configuration failed to load", "domain", domainID, "data_dir", dataDir, "err", err)
		return exitConfig
	}
	slog.Info("domain configuration loaded", "domain", domainID, "data_dir", dataDir)

	reg := config.NewRegistry()
	registerRealProviders(reg)

	deps, err := wireProviders(cfg, reg, domainCfg)
	if err != nil {
		slog.Error("required capability unreachable at startup", "err", err)
		return exitCapabilityUnreachable
	}
	defer deps.Close()

	pl, err := assemblePipeline(deps, domainCfg)
	if err != nil {
		slog.Error("failed to assemble pipeline", "err", err)
		return exitCapabilityUnreachable
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pctx := frame.NewProcessorContext(domainID)
	pctx.InputLanguage = deps.inputLang
	pctx.OutputLanguage = deps.outputLang

	sink, unsub := pl.Subscribe()
	defer unsub()
	fatal := make(chan error, 1)
	go watchForFatal(sink, fatal)

	pl.Start(ctx, pctx)
	slog.Info("voice agent pipeline running — press Ctrl+C to shut down", "domain", domainID)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping…")
		pl.Shutdown()
		pl.Wait()
		slog.Info("goodbye")
		return exitOK
	case err := <-fatal:
		slog.Error("pipeline stopped on a fatal error", "err", err)
		pl.Wait()
		return exitFatal
	}
}

// watchForFatal drains the pipeline's broadcast output — required of every
// subscriber so the tail stage never blocks — and reports the first
// non-recoverable error frame it sees. The pipeline has already begun its
// own shutdown by the time such a frame is forwarded (see
// internal/pipeline.Pipeline.handleFrame), so this goroutine only needs to
// surface that fact to run's exit-code decision.
func watchForFatal(frames <-chan frame.Frame, fatal chan<- error) {
	for f := range frames {
		if f.Kind == frame.KindError && !f.ErrRecoverable {
			select {
			case fatal <- fmt.Errorf("%s: %s", f.ErrProcessor, f.ErrMessage):
			default:
			}
		}
	}
}

// ── Provider wiring ───────────────────────────────────────────────────────

// registerRealProviders registers every concrete provider backend this
// binary ships with. A name absent from ValidProviderNames' ecosystem (no
// in-tree Silero binding yet) falls back to the mock so local runs without
// live credentials can still exercise the full topology.
func registerRealProviders(reg *config.Registry) {
	reg.RegisterLLM("openai", func(e config.ProviderEntry) (llm.Provider, error) {
		return openai.New(e.APIKey, e.Model)
	})
	for _, name := range []string{"anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"} {
		name := name
		reg.RegisterLLM(name, func(e config.ProviderEntry) (llm.Provider, error) {
			return anyllm.New(name, e.Model)
		})
	}

	reg.RegisterSTT("deepgram", func(e config.ProviderEntry) (stt.Provider, error) {
		return deepgram.New(e.APIKey)
	})
	reg.RegisterSTT("whisper", func(e config.ProviderEntry) (stt.Provider, error) {
		return whisper.New(e.BaseURL)
	})

	reg.RegisterTTS("elevenlabs", func(e config.ProviderEntry) (tts.Provider, error) {
		return elevenlabs.New(e.APIKey)
	})
	reg.RegisterTTS("coqui", func(e config.ProviderEntry) (tts.Provider, error) {
		return coqui.New(e.BaseURL)
	})

	reg.RegisterVAD("silero", func(e config.ProviderEntry) (vad.Engine, error) {
		return &vadmock.Engine{Session: &vadmock.Session{}}, nil
	})
}

// providerDeps holds every backend the pipeline stages need, plus the
// already-opened per-process sessions (STT, VAD) that must be closed on
// shutdown.
type providerDeps struct {
	llm llm.Provider
	stt stt.SessionHandle
	vad vad.SessionHandle
	tts tts.Provider

	vadCfg vad.Config

	inputLang  string
	outputLang string

	closers []func() error
}

func (d *providerDeps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			slog.Warn("error closing provider session", "err", err)
		}
	}
}

// wireProviders instantiates the required LLM/STT/VAD/TTS backends named in
// cfg and opens their per-process sessions. Any missing or unreachable
// required provider is the "capability unreachable at startup" failure
// class from spec §6 — exit code 2.
func wireProviders(cfg *config.Config, reg *config.Registry, domainCfg *domain.MasterDomainConfig) (*providerDeps, error) {
	deps := &providerDeps{
		inputLang:  pivotLanguage,
		outputLang: pivotLanguage,
	}
	if domainCfg.Domain != nil {
		if lang, ok := domainCfg.Domain.Variables["input_language"]; ok && lang != "" {
			deps.inputLang = lang
		}
		if lang, ok := domainCfg.Domain.Variables["output_language"]; ok && lang != "" {
			deps.outputLang = lang
		}
	}

	if cfg.Providers.LLM.Name == "" {
		return nil, fmt.Errorf("providers.llm is not configured")
	}
	llmProvider, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	deps.llm = llmProvider

	if cfg.Providers.VAD.Name == "" {
		return nil, fmt.Errorf("providers.vad is not configured")
	}
	vadEngine, err := reg.CreateVAD(cfg.Providers.VAD)
	if err != nil {
		return nil, fmt.Errorf("vad provider %q: %w", cfg.Providers.VAD.Name, err)
	}
	deps.vadCfg = vad.Config{SampleRate: 16000, FrameSizeMs: 20, SpeechThreshold: 0.5, SilenceThreshold: 0.35}
	vadSession, err := vadEngine.NewSession(deps.vadCfg)
	if err != nil {
		return nil, fmt.Errorf("vad session: %w", err)
	}
	deps.vad = vadSession
	deps.closers = append(deps.closers, vadSession.Close)

	if cfg.Providers.STT.Name == "" {
		return nil, fmt.Errorf("providers.stt is not configured")
	}
	sttProvider, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return nil, fmt.Errorf("stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	sttSession, err := sttProvider.StartStream(context.Background(), stt.StreamConfig{
		SampleRate: 16000,
		Channels:   1,
		Language:   deps.inputLang,
	})
	if err != nil {
		return nil, fmt.Errorf("stt stream: %w", err)
	}
	deps.stt = sttSession
	deps.closers = append(deps.closers, sttSession.Close)

	if cfg.Providers.TTS.Name == "" {
		return nil, fmt.Errorf("providers.tts is not configured")
	}
	ttsProvider, err := reg.CreateTTS(cfg.Providers.TTS)
	if err != nil {
		return nil, fmt.Errorf("tts provider %q: %w", cfg.Providers.TTS.Name, err)
	}
	deps.tts = ttsProvider

	return deps, nil
}

// assemblePipeline wires the provider sessions and domain configuration into
// the standard voice topology (internal/pipeline.BuildStandardVoicePipeline).
func assemblePipeline(deps *providerDeps, domainCfg *domain.MasterDomainConfig) (*pipeline.Pipeline, error) {
	var entities []string
	if domainCfg.EntityTypes != nil {
		entities = append(entities, domainCfg.EntityTypes.CompetitorTypes...)
		entities = append(entities, domainCfg.EntityTypes.SegmentTypes...)
	}

	var matcher transcript.PhoneticMatcher
	if len(entities) > 0 {
		matcher = phonetic.New()
	}
	correctionPipeline := transcript.NewPipeline(transcript.WithPhoneticMatcher(matcher))

	var ctxMgr *session.ContextManager
	if domainCfg.Prompts != nil && domainCfg.Prompts.MaxContextTokens > 0 {
		ctxMgr = session.NewContextManager(session.ContextManagerConfig{
			MaxTokens:  domainCfg.Prompts.MaxContextTokens,
			Summariser: session.NewLLMSummariser(deps.llm),
		})
	}

	detector := streaming.NewDetector()
	synth := &streaming.ProviderSynthesizer{Provider: deps.tts}
	streamer := streaming.NewStreamer(synth, detector, 24000, 1)

	standard := pipeline.StandardVoiceStages{
		VAD:          stages.NewVADStage(deps.vad, deps.vadCfg),
		STT:          stages.NewSTTStage(deps.stt, deps.inputLang),
		Grammar:      stages.NewGrammarStage(correctionPipeline, domainCfg, entities),
		TranslateIn:  stages.NewTranslateStage(deps.llm, stages.DirectionIn, pivotLanguage),
		Compliance:   stages.NewComplianceStage(domainCfg),
		PII:          stages.NewPIIStage(),
		LLM:          stages.NewLLMStage(deps.llm, domainCfg, ctxMgr),
		TranslateOut: stages.NewTranslateStage(deps.llm, stages.DirectionOut, pivotLanguage),
		TTSStreamer:  streamer,
	}

	// BuildStandardVoicePipeline's fixed stage list has no slot for the
	// barge-in handler — it only reacts to UserSpeaking/UserSilence frames
	// that every other stage already passes through untouched, so it is
	// appended after TTSStreamer via the builder opts instead.
	interrupt := streaming.NewInterruptStage(streaming.NewHandler(streaming.Immediate, 0, 0), nil)
	pl, err := pipeline.BuildStandardVoicePipeline(standard, func(b *pipeline.Builder) {
		b.Add(interrupt)
	})
	if err != nil {
		return nil, err
	}
	return pl, nil
}

// ── Logger ───────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
