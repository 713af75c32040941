// Package pipeline wires processors into a directed chain over bounded
// channels, drives each as a concurrent task, and owns lifecycle: start,
// drain, shutdown. It implements spec §4.3 (Pipeline Orchestrator).
package pipeline

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/voxrelay/agentcore/internal/observe"
	"github.com/voxrelay/agentcore/pkg/frame"
	"github.com/voxrelay/agentcore/pkg/processor"
)

// DefaultCapacity is the default bounded channel size between adjacent
// stages, per spec §4.3.
const DefaultCapacity = 100

// retryDelays are the base backoff delays for TransientBackend retries,
// jittered ±20% at use, per spec §4.3/§7.
var retryDelays = []time.Duration{100 * time.Millisecond, 250 * time.Millisecond, 600 * time.Millisecond}

// ShutdownGrace is the target bound within which every stage task must react
// to the shutdown signal (spec §5).
const ShutdownGrace = 250 * time.Millisecond

// Pipeline is a linear ordered sequence of processors connected by bounded
// channels: one input channel (external feed), one channel between each
// adjacent pair of stages, and a broadcast output for downstream consumers
// (transport, logging sinks).
type Pipeline struct {
	stages   []processor.Processor
	capacity int
	metrics  *observe.Metrics

	channels []chan frame.Frame // len(stages)+1; channels[i] feeds stages[i]

	subsMu sync.Mutex
	subs   []chan frame.Frame

	cancel context.CancelFunc
	wg     sync.WaitGroup

	started bool
	mu      sync.Mutex
}

// New constructs a Pipeline from an ordered, non-empty list of stages.
// Capacity <= 0 uses [DefaultCapacity]. metrics may be nil, in which case
// [observe.DefaultMetrics] is used.
func New(stages []processor.Processor, capacity int, metrics *observe.Metrics) *Pipeline {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	p := &Pipeline{stages: stages, capacity: capacity, metrics: metrics}
	p.channels = make([]chan frame.Frame, len(stages)+1)
	for i := range p.channels {
		p.channels[i] = make(chan frame.Frame, capacity)
	}
	return p
}

// Input returns the external audio-feed channel. Sends block on backpressure
// while the channel is full. The channel never drops frames: after shutdown
// the first stage stops reading, and a send to a full channel then blocks.
func (p *Pipeline) Input() chan<- frame.Frame { return p.channels[0] }

// Subscribe registers a new broadcast output consumer (transport, a logging
// sink, a metrics collector) and returns its channel plus an unsubscribe
// func. Every subscriber must keep draining its channel or it will
// eventually block the tail stage.
func (p *Pipeline) Subscribe() (<-chan frame.Frame, func()) {
	ch := make(chan frame.Frame, p.capacity)
	p.subsMu.Lock()
	p.subs = append(p.subs, ch)
	p.subsMu.Unlock()

	unsub := func() {
		p.subsMu.Lock()
		defer p.subsMu.Unlock()
		for i, s := range p.subs {
			if s == ch {
				p.subs = append(p.subs[:i], p.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, unsub
}

// Start spawns one task per stage, each serializing frame delivery for pctx
// (so the processor's exclusive context borrow holds). Start is idempotent;
// calling it twice is a no-op.
func (p *Pipeline) Start(ctx context.Context, pctx *frame.ProcessorContext) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i, stage := range p.stages {
		i, stage := i, stage
		in := p.channels[i]
		out := p.channels[i+1]
		isTail := i == len(p.stages)-1

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.runStage(runCtx, stage, pctx, in, out, isTail)
		}()
	}
}

// runStage drives a single processor until its input channel closes or the
// shutdown signal fires.
func (p *Pipeline) runStage(ctx context.Context, stage processor.Processor, pctx *frame.ProcessorContext, in <-chan frame.Frame, out chan frame.Frame, isTail bool) {
	for {
		select {
		case <-ctx.Done():
			p.drain(in, stage, pctx, out, isTail)
			if isTail {
				p.closeSubs()
			}
			return
		case f, ok := <-in:
			if !ok {
				if isTail {
					p.closeSubs()
				} else {
					close(out)
				}
				return
			}
			if p.handleFrame(ctx, stage, pctx, f, out, isTail) {
				// fatal: stop accepting new work, but let the cancel
				// propagate instead of closing channels twice.
				return
			}
		}
	}
}

// drain accepts frames already in flight up to [ShutdownGrace] after
// shutdown begins, per spec §4.3's cooperative cancellation: "each task
// completes its current frame, drains its input channel up to a deadline,
// and exits."
func (p *Pipeline) drain(in <-chan frame.Frame, stage processor.Processor, pctx *frame.ProcessorContext, out chan frame.Frame, isTail bool) {
	deadline := time.After(ShutdownGrace)
	for {
		select {
		case <-deadline:
			return
		case f, ok := <-in:
			if !ok {
				return
			}
			p.handleFrame(context.Background(), stage, pctx, f, out, isTail)
		}
	}
}

// handleFrame processes one frame through stage (with retry/backoff for
// transient failures), forwards its outputs, and reports whether the stage
// hit a Fatal error and the orchestrator should begin shutdown.
func (p *Pipeline) handleFrame(ctx context.Context, stage processor.Processor, pctx *frame.ProcessorContext, f frame.Frame, out chan frame.Frame, isTail bool) (fatal bool) {
	start := time.Now()
	outFrames, err := p.processWithRetry(ctx, stage, pctx, f)
	p.metrics.RecordStageDuration(ctx, stage.Name(), time.Since(start).Seconds())

	if err != nil {
		kind, procName, msg := processor.ClassifyErr(err)
		if procName == "" {
			procName = stage.Name()
		}
		p.metrics.RecordStageError(ctx, stage.Name(), errKindLabel(kind))
		slog.Warn("pipeline: stage failed", "stage", stage.Name(), "kind", errKindLabel(kind), "error", msg)

		switch kind {
		case frame.ErrorFatal:
			p.forward(frame.NewError(procName, msg, false), out, isTail)
			p.Shutdown()
			return true
		default:
			// Transient (exhausted) and Validation both drop the offending
			// frame and surface a recoverable error frame; the pipeline continues.
			p.forward(frame.NewError(procName, msg, true), out, isTail)
			return false
		}
	}

	for _, of := range outFrames {
		p.forward(of, out, isTail)
	}
	return false
}

// processWithRetry retries a TransientBackend failure up to 3 times with
// jittered backoff (100/250/600ms ±20%) before giving up, per spec §4.3/§7.
func (p *Pipeline) processWithRetry(ctx context.Context, stage processor.Processor, pctx *frame.ProcessorContext, f frame.Frame) ([]frame.Frame, error) {
	outFrames, err := stage.Process(ctx, pctx, f)
	if err == nil {
		return outFrames, nil
	}
	kind, _, _ := processor.ClassifyErr(err)
	if kind != frame.ErrorTransient {
		return nil, err
	}

	for attempt, base := range retryDelays {
		p.metrics.RecordStageRetry(ctx, stage.Name(), attempt+1)
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(jitter(base)):
		}
		outFrames, retryErr := stage.Process(ctx, pctx, f)
		if retryErr == nil {
			return outFrames, nil
		}
		err = retryErr
		if k, _, _ := processor.ClassifyErr(retryErr); k != frame.ErrorTransient {
			return nil, retryErr
		}
	}
	return nil, err
}

// jitter applies ±20% jitter to a base delay.
func jitter(base time.Duration) time.Duration {
	factor := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(base) * factor)
}

// forward sends f downstream: to the next stage's input channel, or — for
// the tail stage — broadcast to every subscriber. Sends always block,
// preserving backpressure, including while the pipeline is shutting down.
func (p *Pipeline) forward(f frame.Frame, out chan frame.Frame, isTail bool) {
	if !isTail {
		out <- f
		return
	}
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for _, s := range p.subs {
		s <- f
	}
}

func (p *Pipeline) closeSubs() {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for _, s := range p.subs {
		close(s)
	}
	p.subs = nil
}

// Shutdown broadcasts the cooperative cancellation signal. Every stage task
// completes its current frame, drains up to [ShutdownGrace], and exits.
// Shutdown does not block; call Wait to block until every stage has exited.
func (p *Pipeline) Shutdown() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until every stage task has exited.
func (p *Pipeline) Wait() { p.wg.Wait() }

func errKindLabel(k frame.ErrorKind) string {
	switch k {
	case frame.ErrorTransient:
		return "transient"
	case frame.ErrorValidation:
		return "validation"
	case frame.ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}
