package watch

import (
	"context"
	"sync"
	"time"
)

// Debouncer collapses bursts of triggers per key. A key fires once no new
// trigger for it has arrived within the delay. Fired keys queue in firing
// order until Next takes them; a key already queued is not queued twice.
type Debouncer struct {
	delay time.Duration
	ready chan struct{}

	mu      sync.Mutex
	timers  map[string]*time.Timer
	queue   []string
	queued  map[string]bool
	stopped bool
}

// NewDebouncer returns a Debouncer with the given delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:  delay,
		ready:  make(chan struct{}, 1),
		timers: make(map[string]*time.Timer),
		queued: make(map[string]bool),
	}
}

// Trigger starts or restarts the timer for key.
func (d *Debouncer) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.delay, func() { d.fire(key) })
}

func (d *Debouncer) fire(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	delete(d.timers, key)
	if d.queued[key] {
		return
	}
	d.queued[key] = true
	d.queue = append(d.queue, key)

	select {
	case d.ready <- struct{}{}:
	default:
	}
}

// Next blocks until a key fires or ctx is done. ok is false when ctx ended
// first.
func (d *Debouncer) Next(ctx context.Context) (key string, ok bool) {
	for {
		if key, ok := d.pop(); ok {
			return key, true
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-d.ready:
		}
	}
}

func (d *Debouncer) pop() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return "", false
	}
	key := d.queue[0]
	d.queue = d.queue[1:]
	delete(d.queued, key)
	return key, true
}

// Pending reports how many keys are still inside their delay.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Stop cancels every pending timer and drops queued keys.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
	d.queue = nil
	d.queued = make(map[string]bool)
}
