package audit

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher moves guard and session events off the caller's goroutine and
// into a Sink. A nil *Dispatcher is a valid disabled dispatcher.
type Dispatcher struct {
	sink     Sink
	queue    chan Event
	dropFull bool

	stop     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
	closing  atomic.Bool

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewDispatcher returns nil when cfg.Enabled is false.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size < 1 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:     sink,
		queue:    make(chan Event, size),
		dropFull: cfg.DropIfFull,
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.finished)

	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		default:
			return
		}
	}
}

// deliver isolates the loop from a misbehaving sink.
func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("goGuard: audit sink panicked on %s: %v", ev.EventType, r)
		}
	}()
	d.sink.Emit(context.Background(), ev)
	d.delivered.Add(1)
}

// Emit queues ev. In drop mode a full queue counts a drop and returns at
// once; otherwise Emit waits for room until ctx is done.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropFull {
		select {
		case d.queue <- ev:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- ev:
	case <-d.stop:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close flushes what is queued and waits for the goroutine to exit.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.closing.Store(true)
		close(d.stop)
	})
	<-d.finished
}

// Dropped counts events lost to a full queue or an expired context.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered counts events handed to the sink without a panic.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
