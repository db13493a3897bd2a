package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Worker drains a bounded queue of records into a Sink from a single
// background goroutine, decoupling audit latency and failures from the
// collaboration event path.
type Worker struct {
	sink   Sink
	queue  chan Record
	stop   chan struct{}
	done   chan struct{}
	closed atomic.Bool

	writeTimeout time.Duration
	logger       *slog.Logger

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	// QueueSize is the bounded queue capacity. Default: 1024.
	QueueSize int

	// WriteTimeout bounds each sink write. Default: 5 seconds.
	WriteTimeout time.Duration
}

// NewWorker starts a worker draining into sink.
func NewWorker(sink Sink, config *WorkerConfig, logger *slog.Logger) *Worker {
	if config == nil {
		config = &WorkerConfig{}
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 1024
	}
	writeTimeout := config.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Worker{
		sink:         sink,
		queue:        make(chan Record, queueSize),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		logger:       logger.With("component", "audit"),
	}
	go w.run()
	return w
}

// Submit queues a record for persistence. It never blocks: when the
// queue is full or the worker is closed, the record is dropped and
// Submit returns false. Safe to call concurrently with Close; session
// goroutines may still be handling messages while the process shuts
// down.
func (w *Worker) Submit(rec Record) bool {
	if w.closed.Load() {
		return false
	}
	select {
	case w.queue <- rec:
		return true
	default:
		w.dropped.Add(1)
		w.logger.Warn("audit queue full, record dropped",
			"annotation_id", rec.AnnotationID,
			"action", rec.Action)
		return false
	}
}

// Close stops accepting records, drains the queue, and closes the sink.
// The queue channel is never closed, so a Submit racing Close can at
// worst enqueue a record that is silently discarded.
func (w *Worker) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(w.stop)
	<-w.done
	return w.sink.Close()
}

// Stats reports lifetime worker counters.
func (w *Worker) Stats() (written, dropped, failed uint64) {
	return w.written.Load(), w.dropped.Load(), w.failed.Load()
}

func (w *Worker) run() {
	defer close(w.done)

	for {
		select {
		case rec := <-w.queue:
			w.write(rec)

		case <-w.stop:
			for {
				select {
				case rec := <-w.queue:
					w.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (w *Worker) write(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	err := w.sink.Write(ctx, rec)
	cancel()
	if err != nil {
		// Logged and forgotten: audit failures never propagate to
		// clients and are never retried inline.
		w.failed.Add(1)
		w.logger.Error("audit write failed",
			"annotation_id", rec.AnnotationID,
			"action", rec.Action,
			"error", err)
		return
	}
	w.written.Add(1)
}
