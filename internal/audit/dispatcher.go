package audit

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"
)

// Config controls queueing. With DropIfFull an event that finds the queue
// full is discarded; otherwise Emit waits for room or for ctx.
type Config struct {
	BufferSize int
	DropIfFull bool
}

// Dispatcher hands events to a sink on one background goroutine, in emit
// order. Lost events are counted per event type.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	queue      chan Event
	done       chan struct{}

	// mu orders sends against Close so nothing is sent on a closed queue.
	mu     sync.RWMutex
	closed bool

	dropMu sync.Mutex
	drops  map[string]uint64
	total  atomic.Uint64
	panics atomic.Uint64
}

// NewDispatcher returns nil when sink is nil; every method is nil-safe.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if sink == nil {
		return nil
	}
	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, max(cfg.BufferSize, 1)),
		done:       make(chan struct{}),
		drops:      map[string]uint64{},
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for event := range d.queue {
		d.deliver(event)
	}
}

// deliver keeps a panicking sink from taking the worker down.
func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if recover() != nil {
			d.panics.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. Events emitted after Close are ignored; events that
// cannot be queued are counted as dropped.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.drop(event.EventType)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event.EventType)
	}
}

func (d *Dispatcher) drop(eventType string) {
	d.total.Add(1)
	d.dropMu.Lock()
	d.drops[eventType]++
	d.dropMu.Unlock()
}

// Close stops accepting events and returns once the queue has drained into
// the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.total.Load()
}

// DroppedByType returns a copy of the drop counts keyed by event type.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	out := map[string]uint64{}
	if d == nil {
		return out
	}
	d.dropMu.Lock()
	defer d.dropMu.Unlock()
	maps.Copy(out, d.drops)
	return out
}

// SinkPanics counts events whose delivery panicked inside the sink.
func (d *Dispatcher) SinkPanics() uint64 {
	if d == nil {
		return 0
	}
	return d.panics.Load()
}
