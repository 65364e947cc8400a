// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package discovery

import (
	"context"
	"sync"

	log "github.com/hpe-storage/iscsid/logger"
)

// worker is the goroutine envelope shared by all four Method
// implementations: a wake channel it blocks on (the Go analogue of
// iscsi_thread_send_wakeup's condvar signal); the owning Coordinator
// is handed to the goroutine at start so RunOnce can reach the
// registry, store, and collaborators. Unlike a single Coordinator-wide goroutine set,
// each worker starts and stops independently, so Disable can take one
// method's goroutine down without touching the other three.
type worker struct {
	method Method
	wake   chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func newWorker(m Method) *worker {
	return &worker{method: m, wake: make(chan struct{}, 1)}
}

// isRunning reports whether this worker's goroutine is currently
// started.
func (w *worker) isRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// start begins the worker's goroutine if it isn't already running.
func (w *worker) start(c *Coordinator) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	go w.loop(ctx, c)
}

// stop cancels the worker's goroutine and waits for it to exit. A
// worker that isn't running is a no-op.
func (w *worker) stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

// signal wakes the worker if it is idle; a pending wakeup already
// queued is not doubled, matching the original's single pending-wakeup
// semantics.
func (w *worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// loop is the worker's goroutine body: wait for a wakeup, emit a
// START event, run one discovery pass if the store still lists the
// method as enabled (otherwise log and skip it), emit an END event,
// then mark the barrier bit done. START strictly precedes the pass and
// the pass strictly precedes END, satisfying the ordering every caller
// of Poke depends on.
func (w *worker) loop(ctx context.Context, c *Coordinator) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
			name := w.method.Name()
			c.sink.DiscoveryStart(name)
			enabled, err := c.store.GetDiscoveryMethods(ctx)
			switch {
			case err != nil:
				log.Warnf("discovery: %s pass skipped, failed to read enabled methods: %s", name, err.Error())
			case !enabled.Has(w.method.Bit()):
				log.Infof("discovery: %s is not enabled, pass skipped", name)
			default:
				if err := w.method.RunOnce(ctx, c); err != nil {
					log.Warnf("discovery: %s pass failed: %s", name, err.Error())
				}
			}
			c.sink.DiscoveryEnd(name)
			c.markMethodDone(w.method.Bit())
		}
	}
}
