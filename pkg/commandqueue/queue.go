package commandqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Task is a unit of work executed on a lane.
type Task func(ctx context.Context) (interface{}, error)

type result struct {
	value interface{}
	err   error
}

// Pending is a handle to a submitted task.
type Pending struct {
	done <-chan result
}

// Wait blocks until the task has run and returns its outcome.
func (p *Pending) Wait() (interface{}, error) {
	r := <-p.done
	return r.value, r.err
}

// resolved builds a handle that is already settled.
func resolved(r result) *Pending {
	ch := make(chan result, 1)
	ch <- r
	return &Pending{done: ch}
}

// job couples a task with its submission context and result slot.
type job struct {
	id   string
	ctx  context.Context
	task Task
	done chan result
	at   time.Time
}

// lane holds the FIFO backlog and the concurrency budget for one key.
type lane struct {
	mu      sync.Mutex
	backlog []*job
	slots   int
	active  int
}

// LaneStats is a point-in-time snapshot of one lane.
type LaneStats struct {
	Queued  int
	Running int
	Slots   int
}

// CommandQueue executes tasks grouped into named lanes. Each lane is a
// FIFO queue with its own concurrency budget; a lane defaults to a
// single slot, which makes it a strict serial queue.
type CommandQueue struct {
	mu     sync.Mutex
	lanes  map[string]*lane
	seq    uint64
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	dedup  *dedupCache
	logger zerolog.Logger
}

// New creates an empty queue. Lanes come into existence on first use.
func New(logger zerolog.Logger) *CommandQueue {
	ctx, cancel := context.WithCancel(context.Background())

	return &CommandQueue{
		lanes:  make(map[string]*lane),
		ctx:    ctx,
		cancel: cancel,
		dedup:  newDedupCache(5 * time.Minute),
		logger: logger,
	}
}

// Submit appends the task to the lane's backlog and returns a handle
// without waiting for execution. The append happens on the caller's
// goroutine, so two Submit calls made in sequence keep their order
// within the lane.
func (cq *CommandQueue) Submit(ctx context.Context, name string, task Task) *Pending {
	if ctx == nil {
		ctx = context.Background()
	}

	ln, id := cq.admit(name)

	j := &job{
		id:   id,
		ctx:  ctx,
		task: task,
		done: make(chan result, 1),
		at:   time.Now(),
	}

	ln.mu.Lock()
	ln.backlog = append(ln.backlog, j)
	depth := len(ln.backlog)
	ln.mu.Unlock()

	cq.logger.Debug().
		Str("lane", name).
		Str("job", id).
		Int("depth", depth).
		Msg("Task submitted")

	cq.dispatch(name, ln)

	return &Pending{done: j.done}
}

// Enqueue submits the task and blocks until it completes.
func (cq *CommandQueue) Enqueue(ctx context.Context, name string, task Task) (interface{}, error) {
	return cq.Submit(ctx, name, task).Wait()
}

// SubmitDedup behaves like Submit but remembers the outcome under
// requestID. A repeated requestID inside the dedup window resolves to
// the remembered outcome without running the task again.
func (cq *CommandQueue) SubmitDedup(ctx context.Context, name, requestID string, task Task) *Pending {
	if requestID == "" {
		return cq.Submit(ctx, name, task)
	}

	if cached, ok := cq.dedup.Get(requestID); ok {
		cq.logger.Debug().
			Str("lane", name).
			Str("request", requestID).
			Msg("Duplicate request, resolving from cache")
		return resolved(cached)
	}

	return cq.Submit(ctx, name, func(ctx context.Context) (interface{}, error) {
		value, err := task(ctx)
		cq.dedup.Set(requestID, result{value: value, err: err})
		return value, err
	})
}

// EnqueueDedup submits with deduplication and blocks until done.
func (cq *CommandQueue) EnqueueDedup(ctx context.Context, name, requestID string, task Task) (interface{}, error) {
	return cq.SubmitDedup(ctx, name, requestID, task).Wait()
}

// admit returns the lane for name, creating it with one slot on first
// use, and hands out the next job ID.
func (cq *CommandQueue) admit(name string) (*lane, string) {
	cq.mu.Lock()
	defer cq.mu.Unlock()

	ln, ok := cq.lanes[name]
	if !ok {
		ln = &lane{slots: 1}
		cq.lanes[name] = ln
	}
	cq.seq++

	return ln, fmt.Sprintf("%s#%d", name, cq.seq)
}

// dispatch starts backlog jobs while the lane has free slots.
func (cq *CommandQueue) dispatch(name string, ln *lane) {
	ln.mu.Lock()
	defer ln.mu.Unlock()

	for ln.active < ln.slots && len(ln.backlog) > 0 {
		j := ln.backlog[0]
		ln.backlog = ln.backlog[1:]
		ln.active++

		cq.wg.Add(1)
		go cq.run(name, ln, j)
	}
}

// run executes one job, settles its handle and triggers the next
// dispatch round for the lane.
func (cq *CommandQueue) run(name string, ln *lane, j *job) {
	defer cq.wg.Done()

	// The job context is additionally canceled when the queue closes.
	runCtx, cancel := context.WithCancel(j.ctx)
	detach := context.AfterFunc(cq.ctx, cancel)

	value, err := j.task(runCtx)

	detach()
	cancel()

	elapsed := time.Since(j.at)

	ln.mu.Lock()
	ln.active--
	ln.mu.Unlock()

	j.done <- result{value: value, err: err}
	close(j.done)

	if err != nil {
		cq.logger.Error().
			Str("lane", name).
			Str("job", j.id).
			Dur("elapsed", elapsed).
			Err(err).
			Msg("Task failed")
	} else {
		cq.logger.Debug().
			Str("lane", name).
			Str("job", j.id).
			Dur("elapsed", elapsed).
			Msg("Task done")
	}

	cq.dispatch(name, ln)
}

// Resize sets the lane's concurrency budget, creating the lane when it
// does not exist yet.
func (cq *CommandQueue) Resize(name string, slots int) {
	if slots < 1 {
		slots = 1
	}

	cq.mu.Lock()
	ln, ok := cq.lanes[name]
	if !ok {
		cq.lanes[name] = &lane{slots: slots}
		cq.mu.Unlock()
		return
	}
	cq.mu.Unlock()

	ln.mu.Lock()
	grew := slots > ln.slots
	ln.slots = slots
	ln.mu.Unlock()

	cq.logger.Info().Str("lane", name).Int("slots", slots).Msg("Lane resized")

	if grew {
		cq.dispatch(name, ln)
	}
}

// Stats snapshots every lane.
func (cq *CommandQueue) Stats() map[string]LaneStats {
	cq.mu.Lock()
	defer cq.mu.Unlock()

	out := make(map[string]LaneStats, len(cq.lanes))
	for name, ln := range cq.lanes {
		ln.mu.Lock()
		out[name] = LaneStats{
			Queued:  len(ln.backlog),
			Running: ln.active,
			Slots:   ln.slots,
		}
		ln.mu.Unlock()
	}
	return out
}

// Drain waits until every lane is idle or the timeout elapses.
func (cq *CommandQueue) Drain(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for {
		idle := true
		for _, st := range cq.Stats() {
			if st.Queued > 0 || st.Running > 0 {
				idle = false
				break
			}
		}
		if idle {
			return true
		}
		if time.Now().After(deadline) {
			cq.logger.Warn().Dur("timeout", timeout).Msg("Queue did not drain in time")
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// Close cancels running tasks and waits for them to finish.
func (cq *CommandQueue) Close() error {
	cq.dedup.Stop()
	cq.cancel()
	cq.wg.Wait()
	return nil
}
