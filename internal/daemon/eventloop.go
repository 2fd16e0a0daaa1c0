package daemon

import (
	"context"
	"time"
)

// maintenanceInterval is how often queue depth is sampled into metrics.
const maintenanceInterval = 30 * time.Second

// EventLoop samples queue state periodically while the daemon runs.
type EventLoop struct {
	daemon *Daemon
}

// NewEventLoop creates a new event loop
func NewEventLoop(d *Daemon) *EventLoop {
	return &EventLoop{daemon: d}
}

// Run blocks until ctx is canceled, sampling on each tick.
func (e *EventLoop) Run(ctx context.Context) {
	e.daemon.logger.Info().Msg("Event loop started")

	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.daemon.logger.Info().Msg("Event loop stopping")
			return
		case <-ticker.C:
			e.sample()
		}
	}
}

// sample publishes queue depth to metrics and logs busy lanes.
func (e *EventLoop) sample() {
	queued, running := 0, 0
	for name, st := range e.daemon.queue.Stats() {
		queued += st.Queued
		running += st.Running
		if st.Queued > 0 || st.Running > 0 {
			e.daemon.logger.Debug().
				Str("lane", name).
				Int("queued", st.Queued).
				Int("running", st.Running).
				Msg("Lane busy")
		}
	}

	e.daemon.metrics.QueueTasksQueued.Set(float64(queued))
	e.daemon.metrics.QueueTasksRunning.Set(float64(running))
}

// HandleShutdown waits for in-flight replies and ingestions to finish.
func (e *EventLoop) HandleShutdown() {
	e.daemon.logger.Info().Msg("Handling graceful shutdown")

	if !e.daemon.queue.Drain(5 * time.Second) {
		e.daemon.logger.Warn().Msg("Timed out waiting for active tasks")
		return
	}

	e.daemon.logger.Info().Msg("All active tasks completed")
}
