package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled bool
	// Shards is the number of delivery goroutines. Events are routed by
	// client id, so one client's events stay ordered.
	Shards int
	// BufferSize is the queue length of each shard.
	BufferSize int
	// DropIfFull drops an event when its shard queue is full. Otherwise Emit
	// waits for room or for ctx to end.
	DropIfFull bool
}

// Dispatcher relays events to a sink off the request path.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	shards     []chan Event

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	dropped atomic.Uint64
	byForm  sync.Map // form -> *atomic.Uint64
}

// NewDispatcher starts a dispatcher. It returns nil when cfg.Enabled is
// false; a nil Dispatcher accepts and ignores every call.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		shards:     make([]chan Event, max(cfg.Shards, 1)),
	}
	for i := range d.shards {
		d.shards[i] = make(chan Event, max(cfg.BufferSize, 1))
		d.wg.Add(1)
		go d.deliver(d.shards[i])
	}
	return d
}

func (d *Dispatcher) deliver(queue <-chan Event) {
	defer d.wg.Done()
	for event := range queue {
		d.sink.Emit(context.Background(), event)
	}
}

func (d *Dispatcher) shardFor(clientID string) chan Event {
	if len(d.shards) == 1 {
		return d.shards[0]
	}
	return d.shards[xxhash.Sum64String(clientID)%uint64(len(d.shards))]
}

// Emit queues event on its client's shard. Events emitted after Close are
// ignored.
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

	queue := d.shardFor(event.ClientID)
	if d.dropIfFull {
		select {
		case queue <- event:
		default:
			d.drop(event.Form)
		}
		return
	}

	select {
	case queue <- event:
	case <-ctx.Done():
		d.drop(event.Form)
	}
}

func (d *Dispatcher) drop(form string) {
	d.dropped.Add(1)
	v, ok := d.byForm.Load(form)
	if !ok {
		v, _ = d.byForm.LoadOrStore(form, new(atomic.Uint64))
	}
	v.(*atomic.Uint64).Add(1)
}

// Close delivers every queued event and stops the shards. It is safe to call
// more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, queue := range d.shards {
			close(queue)
		}
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// Dropped returns the total number of dropped events.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByForm returns dropped event counts keyed by form. Forms without
// drops are absent.
func (d *Dispatcher) DroppedByForm() map[string]uint64 {
	out := map[string]uint64{}
	if d == nil {
		return out
	}
	d.byForm.Range(func(k, v any) bool {
		out[k.(string)] = v.(*atomic.Uint64).Load()
		return true
	})
	return out
}
