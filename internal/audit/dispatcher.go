package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher asynchronously forwards audit events to a sink. A nil
// dispatcher is valid and drops everything, so disabled auditing costs the
// caller nothing.
type Dispatcher struct {
	sink  Sink
	queue chan Event
	block bool

	mu     sync.RWMutex
	closed bool

	finished chan struct{}
	dropped  atomic.Uint64
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:     sink,
		queue:    make(chan Event, cfg.BufferSize),
		block:    !cfg.DropIfFull,
		finished: make(chan struct{}),
	}
	go d.deliver()
	return d
}

// deliver runs until the queue is closed. Closing the queue lets the range
// drain whatever Close left buffered before the worker exits.
func (d *Dispatcher) deliver() {
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
	close(d.finished)
}

// Emit enqueues an event for delivery. When the buffer is full it either
// blocks until the worker catches up or, with DropIfFull, counts the event
// as dropped and returns immediately.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}

	// The read lock keeps Close from closing the queue mid-send.
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if !d.block {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
	}
}

// Close stops intake, finishes delivering buffered events, and waits for
// the worker to exit. Safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.finished
}

// Dropped reports how many events were discarded because the buffer was
// full while DropIfFull was set.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
