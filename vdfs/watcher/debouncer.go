package watcher

import (
	"sync"
	"time"
)

// Batch is the set of events that arrived for one watched root while its
// debounce window was open.
type Batch struct {
	Key    string
	Events []Event
}

type pendingBatch struct {
	events []Event
	first  time.Time
	timer  *time.Timer
}

// Debouncer coalesces events per key. A batch is released once no event has
// arrived for delay, or maxDelay after its first event, whichever is sooner.
type Debouncer struct {
	delay    time.Duration
	maxDelay time.Duration
	out      chan Batch
	done     chan struct{}

	mu      sync.Mutex
	closed  bool
	pending map[string]*pendingBatch
	wg      sync.WaitGroup
}

// NewDebouncer creates a debouncer. A maxDelay shorter than delay is raised
// to delay.
func NewDebouncer(delay, maxDelay time.Duration, queueCapacity int) *Debouncer {
	if maxDelay < delay {
		maxDelay = delay
	}
	return &Debouncer{
		delay:    delay,
		maxDelay: maxDelay,
		out:      make(chan Batch, queueCapacity),
		done:     make(chan struct{}),
		pending:  make(map[string]*pendingBatch),
	}
}

// Add files ev under key and restarts the key's quiet timer.
func (d *Debouncer) Add(key string, ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	batch, ok := d.pending[key]
	if !ok {
		batch = &pendingBatch{first: time.Now()}
		d.pending[key] = batch
	}
	batch.events = append(batch.events, ev)

	wait := d.delay
	if remaining := d.maxDelay - time.Since(batch.first); remaining < wait {
		wait = remaining
	}
	if wait < 0 {
		wait = 0
	}
	if batch.timer != nil {
		batch.timer.Stop()
	}
	batch.timer = time.AfterFunc(wait, func() { d.flush(key, batch) })
}

// Batches returns the channel released batches are sent on. It is closed by
// Close.
func (d *Debouncer) Batches() <-chan Batch {
	return d.out
}

func (d *Debouncer) flush(key string, batch *pendingBatch) {
	d.mu.Lock()
	if d.closed || d.pending[key] != batch {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.wg.Add(1)
	d.mu.Unlock()
	defer d.wg.Done()

	select {
	case d.out <- Batch{Key: key, Events: batch.events}:
	case <-d.done:
	}
}

// Close drops pending batches, waits for in-flight sends and closes the
// output channel.
func (d *Debouncer) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, batch := range d.pending {
		if batch.timer != nil {
			batch.timer.Stop()
		}
	}
	d.pending = nil
	close(d.done)
	d.mu.Unlock()

	d.wg.Wait()
	close(d.out)
}
