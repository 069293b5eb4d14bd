package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/powergrid/internal/config"
	"github.com/gyaneshwarpardhi/powergrid/internal/event"
	"github.com/gyaneshwarpardhi/powergrid/internal/grid"
	"github.com/gyaneshwarpardhi/powergrid/internal/metrics"
	"github.com/gyaneshwarpardhi/powergrid/internal/relay"
	"github.com/gyaneshwarpardhi/powergrid/internal/sim"
)

// Result statuses.
const (
	StatusOK        = "ok"
	StatusRejected  = "rejected"
	StatusInvariant = "invariant_violation"
)

// ErrQueueFull is returned when the update queue cannot take more work.
var ErrQueueFull = errors.New("update queue full")

// EventResult is the outcome of applying a single event.
type EventResult struct {
	EventID    string         `json:"event_id"`
	Type       event.Type     `json:"type"`
	Status     string         `json:"status"`
	DurationMs int64          `json:"duration_ms"`
	Network    grid.NetworkID `json:"network,omitempty"`
	Satisfied  bool           `json:"satisfied,omitempty"`
	Drawn      float64        `json:"drawn,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Engine is the simulation's update loop. Every event and every read runs
// on one worker goroutine, which is the only goroutine touching the world.
type Engine struct {
	world  *sim.World
	pool   *workerPool[*work]
	conf   *config.EngineConf
	logger *slog.Logger

	tickStop chan struct{}
	tickWG   sync.WaitGroup
	stopOnce sync.Once
}

type work struct {
	ev      *event.Event
	fn      func(*sim.World)
	resultC chan *EventResult
	done    chan struct{}
}

// New creates an Engine over world using conf and starts the worker.
// A positive TickIntervalMs also starts periodic tick events.
func New(ctx context.Context, world *sim.World, conf config.EngineConf, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		world:    world,
		conf:     &conf,
		logger:   logger,
		tickStop: make(chan struct{}),
	}
	e.pool = newWorkerPool[*work](ctx, 1, conf.QueueDepth, e.process)

	if conf.TickIntervalMs > 0 {
		interval := time.Duration(conf.TickIntervalMs) * time.Millisecond
		e.tickWG.Add(1)
		go e.tickLoop(ctx, interval)
	}
	return e
}

func (e *Engine) tickLoop(ctx context.Context, interval time.Duration) {
	defer e.tickWG.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			e.ProcessAsync(&event.Event{
				ID:         uuid.New().String(),
				Type:       event.Tick,
				Seconds:    interval.Seconds(),
				OccurredAt: time.Now(),
			})
		case <-e.tickStop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ProcessSync applies an event and waits for its result.
func (e *Engine) ProcessSync(ctx context.Context, ev *event.Event) (*EventResult, error) {
	resultC := make(chan *EventResult, 1)
	if !e.pool.Submit(&work{ev: ev, resultC: resultC}) {
		metrics.EventsDropped.Inc()
		return nil, fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.conf.QueueDepth)
	}
	metrics.EventsEnqueued.Inc()

	timeout := time.Duration(e.conf.EventTimeoutMs) * time.Millisecond
	select {
	case res := <-resultC:
		return res, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("event processing timeout after %v", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProcessAsync enqueues an event. Returns false if the queue is full.
func (e *Engine) ProcessAsync(ev *event.Event) bool {
	if !e.pool.Submit(&work{ev: ev}) {
		metrics.EventsDropped.Inc()
		return false
	}
	metrics.EventsEnqueued.Inc()
	return true
}

// Inspect runs fn on the worker, between events, and waits for it.
func (e *Engine) Inspect(ctx context.Context, fn func(*sim.World)) error {
	done := make(chan struct{})
	if !e.pool.Submit(&work{fn: fn, done: done}) {
		metrics.EventsDropped.Inc()
		return fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.conf.QueueDepth)
	}
	timeout := time.Duration(e.conf.EventTimeoutMs) * time.Millisecond
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("inspect timeout after %v", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SwapWorld replaces the world (used on hot-reload). The old world is
// closed once no event can reach it any more. On error w was not installed
// and never will be, so the caller still owns it.
func (e *Engine) SwapWorld(ctx context.Context, w *sim.World) error {
	var claimed atomic.Bool
	err := e.Inspect(ctx, func(old *sim.World) {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		e.world = w
		old.Close()
	})
	if err != nil && claimed.CompareAndSwap(false, true) {
		return err
	}
	// The swap ran, possibly after Inspect stopped waiting.
	return nil
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

func (e *Engine) process(_ context.Context, w *work) {
	if w.fn != nil {
		w.fn(e.world)
		close(w.done)
		return
	}
	res := e.apply(w.ev)
	if w.resultC != nil {
		w.resultC <- res
	}
}

func (e *Engine) apply(ev *event.Event) *EventResult {
	start := time.Now()
	res := &EventResult{EventID: ev.ID, Type: ev.Type, Status: StatusOK}

	var err error
	switch ev.Type {
	case event.Connect:
		if err = e.world.Connect(relay.ID(ev.From), relay.ID(ev.To)); err == nil {
			if r, ok := e.world.Relay(relay.ID(ev.From)); ok {
				res.Network, _ = e.world.Grid().NetworkOf(r)
			}
		}
	case event.Disconnect:
		err = e.world.Disconnect(relay.ID(ev.From))
	case event.Destroy:
		err = e.world.Destroy(relay.ID(ev.Relay))
	case event.Draw:
		res.Satisfied, res.Drawn, err = e.world.Draw(relay.ID(ev.Relay), ev.Amount)
	case event.Tick:
		e.world.Tick(ev.Seconds)
	default:
		err = fmt.Errorf("unknown event type %q", ev.Type)
	}

	if err != nil {
		res.Error = err.Error()
		if grid.IsInvariant(err) {
			res.Status = StatusInvariant
			e.logger.Error("grid invariant violated", "event_id", ev.ID, "type", ev.Type, "err", err)
		} else {
			res.Status = StatusRejected
			e.logger.Warn("event rejected", "event_id", ev.ID, "type", ev.Type, "err", err)
		}
	}

	elapsed := time.Since(start)
	res.DurationMs = elapsed.Milliseconds()
	metrics.EventProcessingDuration.Observe(float64(elapsed.Microseconds()) / 1000)
	metrics.EventsProcessed.WithLabelValues(string(ev.Type), res.Status).Inc()
	return res
}

// Shutdown stops ticking, drains the queue and closes the world. Work
// submitted afterwards is refused. It is safe to call more than once.
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		close(e.tickStop)
		e.tickWG.Wait()
		e.pool.Drain()
		if e.world != nil {
			e.world.Close()
		}
	})
}
