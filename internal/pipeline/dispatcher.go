package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one finished pipeline run.
type Job struct {
	Kind    Kind
	Tick    uint64
	Results []Result
	Err     error
	Elapsed time.Duration
}

// Dispatcher runs at most one pipeline batch at a time on a background
// goroutine. Submit never blocks the tick: when a batch is still in flight the
// new one is dropped and the bodies keep their current velocities.
type Dispatcher struct {
	p   Pipeline
	log *zap.Logger

	mu      sync.Mutex
	busy    bool
	done    *Job
	skipped uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(p Pipeline, log *zap.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{p: p, log: log, ctx: ctx, cancel: cancel}
}

func (d *Dispatcher) Kind() Kind { return d.p.Kind() }

// Submit starts a batch for tick. The dispatcher takes ownership of in.
// Returns false if a previous batch is still running or unpolled.
func (d *Dispatcher) Submit(tick uint64, in []Input, dt float64) bool {
	d.mu.Lock()
	if d.busy || d.done != nil {
		d.skipped++
		d.mu.Unlock()
		return false
	}
	d.busy = true
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		start := time.Now()
		rows, err := d.p.Compute(d.ctx, in, dt)
		job := &Job{Kind: d.p.Kind(), Tick: tick, Results: rows, Err: err, Elapsed: time.Since(start)}
		if err != nil {
			d.log.Warn("力場計算失敗",
				zap.Stringer("pipeline", d.p.Kind()),
				zap.Uint64("tick", tick),
				zap.Error(err))
		}
		d.mu.Lock()
		d.busy = false
		d.done = job
		d.mu.Unlock()
	}()
	return true
}

// Poll returns the finished batch exactly once, or nil if none is ready.
func (d *Dispatcher) Poll() *Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	job := d.done
	d.done = nil
	return job
}

// Skipped returns how many submissions were dropped because a batch was busy.
func (d *Dispatcher) Skipped() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.skipped
}

// Close cancels any running batch and waits for it to return.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}
