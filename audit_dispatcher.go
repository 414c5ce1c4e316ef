package goSession

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
)

// auditDispatcher moves events off request goroutines. A single worker
// delivers them in order; Close flushes whatever is queued.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool
	log        logr.Logger

	// mu guards queue against a send racing its close.
	mu     sync.RWMutex
	queue  chan AuditEvent
	closed bool

	worker  sync.WaitGroup
	dropped atomic.Uint64
}

// newAuditDispatcher returns nil when auditing is off or there is nowhere
// to send events. All methods accept a nil receiver.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink, log logr.Logger) *auditDispatcher {
	if !cfg.Enabled || sink == nil {
		return nil
	}
	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		log:        log,
		queue:      make(chan AuditEvent, max(cfg.BufferSize, 1)),
	}
	d.worker.Add(1)
	go d.deliver()
	return d
}

func (d *auditDispatcher) deliver() {
	defer d.worker.Done()
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues event. When the queue is full it either drops the event or
// waits for room or for ctx to end.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
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
			if n := d.dropped.Add(1); n == 1 || n%1000 == 0 {
				d.log.Info("audit queue full, dropping events", "dropped", n)
			}
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

// Close stops intake and waits for queued events to reach the sink. Later
// calls are no-ops.
func (d *auditDispatcher) Close() {
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
	d.worker.Wait()
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
