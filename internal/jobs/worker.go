package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// maxBackoffFactor caps how far repeated failures stretch the interval.
const maxBackoffFactor = 8

// JobProcessor runs one unit of background work.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker runs a JobProcessor every interval, or sooner when triggered. After
// consecutive failures the wait doubles up to maxBackoffFactor times the
// interval, and drops back to the interval after a success.
type Worker struct {
	name      string
	processor JobProcessor
	interval  time.Duration
	logger    *zap.Logger

	trigger chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

func NewWorker(name string, processor JobProcessor, interval time.Duration, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		name:      name,
		processor: processor,
		interval:  interval,
		logger:    logger.With(zap.String("worker", name)),
		trigger:   make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Trigger requests a run as soon as the worker is idle. Requests made while a
// run is pending collapse into one.
func (w *Worker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Start blocks until ctx is done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	failures := 0
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	w.logger.Info("worker started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped", zap.String("reason", "context cancelled"))
			return
		case <-w.stop:
			w.logger.Info("worker stopped", zap.String("reason", "stop signal"))
			return
		case <-w.trigger:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
		}

		failures = w.run(ctx, failures)
		timer.Reset(w.wait(failures))
	}
}

func (w *Worker) run(ctx context.Context, failures int) int {
	start := time.Now()
	if err := w.processor.ProcessJobs(ctx); err != nil {
		failures++
		w.logger.Error("job run failed",
			zap.Error(err),
			zap.Int("consecutive_failures", failures),
			zap.Duration("elapsed", time.Since(start)),
		)
		return failures
	}
	return 0
}

func (w *Worker) wait(failures int) time.Duration {
	factor := 1
	for i := 0; i < failures && factor < maxBackoffFactor; i++ {
		factor *= 2
	}
	return w.interval * time.Duration(factor)
}

// Stop ends the loop and waits for it. Call it at most once, after Start.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}
