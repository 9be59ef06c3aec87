package goEMS

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// auditDispatcher decouples session transitions from the audit sink. The
// worker owns every sink call so a slow sink never stalls a setter.
type auditDispatcher struct {
	cfg       AuditConfig
	sink      AuditSink
	logger    *slog.Logger
	queue     chan AuditEvent
	stop      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, logger *slog.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		queue:  make(chan AuditEvent, cfg.BufferSize),
		stop:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *auditDispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		default:
			return
		}
	}
}

func (d *auditDispatcher) deliver(event AuditEvent) {
	ctx := context.Background()
	if d.cfg.SinkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.SinkTimeout)
		defer cancel()
	}
	d.sink.Emit(ctx, event)
}

// Emit queues event for the sink. With DropIfFull set a full queue drops the
// event and counts it; otherwise Emit waits for room or for ctx.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			if n := d.dropped.Add(1); n == 1 || n%100 == 0 {
				d.logger.Warn("audit queue full, dropping events", "dropped", n, "event_type", event.EventType)
			}
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close stops accepting events, drains the queue into the sink and waits
// for the worker. It gives up waiting after timeout when timeout > 0.
func (d *auditDispatcher) Close(timeout time.Duration) {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)

		finished := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(finished)
		}()
		if timeout <= 0 {
			<-finished
			return
		}
		select {
		case <-finished:
		case <-time.After(timeout):
			d.logger.Warn("audit drain timed out", "timeout", timeout)
		}
	})
}

// Dropped returns how many events were discarded because the queue was full.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
