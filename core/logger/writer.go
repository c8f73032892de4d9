package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// logOp is either a line to write or, when flush is non-nil, a flush barrier.
type logOp struct {
	line  []byte
	flush chan error
}

// asyncWriter serializes log output to one or more sinks through a single
// background goroutine. Writes and flush barriers share one queue, so a
// Flush observes every line enqueued before it.
type asyncWriter struct {
	ops  chan logOp
	done chan struct{}
	once sync.Once

	mu       sync.Mutex
	sinks    []*bufio.Writer
	writeErr error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		ops:  make(chan logOp, 256),
		done: make(chan struct{}),
	}
	for _, sink := range writers {
		if sink != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(sink, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for op := range w.ops {
		if op.flush != nil {
			op.flush <- w.flushSinks()
			continue
		}
		if len(op.line) == 0 {
			continue
		}
		if err := w.writeSinks(op.line); err != nil {
			w.recordErr(err)
		}
	}
	_ = w.flushSinks()
}

// Write enqueues the payload; when the queue is full it blocks rather than
// dropping the line.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.firstErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	line := make([]byte, len(p))
	copy(line, p)
	w.ops <- logOp{line: line}
	return nil
}

// Flush waits for all previously enqueued lines to reach the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.firstErr(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	w.ops <- logOp{flush: ack}
	return <-ack
}

// Close drains the queue and reports the first write error encountered.
func (w *asyncWriter) Close() error {
	w.once.Do(func() { close(w.ops) })
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) writeSinks(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sink := range w.sinks {
		if _, err := sink.Write(line); err != nil {
			return err
		}
		if err := sink.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushSinks() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, sink := range w.sinks {
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) firstErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeErr
}

func (w *asyncWriter) recordErr(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writeErr == nil {
		w.writeErr = err
	}
}
