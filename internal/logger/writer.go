package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

const lineQueueDepth = 512

// sink wraps one output with its buffer and its own error state. A broken
// file sink must not silence stdout, so sinks fail independently.
type sink struct {
	buf    *bufio.Writer
	broken error
}

func (s *sink) write(p []byte) {
	if s.broken != nil {
		return
	}
	if _, err := s.buf.Write(p); err != nil {
		s.broken = err
		return
	}
	if err := s.buf.Flush(); err != nil {
		s.broken = err
	}
}

func (s *sink) flush() error {
	if s.broken != nil {
		return s.broken
	}
	if err := s.buf.Flush(); err != nil {
		s.broken = err
	}
	return s.broken
}

// lineWriter decouples log production from sink IO: lines are queued and
// fanned out from a single goroutine, so a slow disk delays logging instead
// of interleaving it. The queue blocks when full; losing lines under load is
// worse than brief backpressure.
type lineWriter struct {
	lines   chan []byte
	syncReq chan chan error
	drained chan struct{}

	mu     sync.Mutex
	closed bool
	sinks  []*sink
}

func newLineWriter(outputs []io.Writer, bufSize int) *lineWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	sinks := make([]*sink, 0, len(outputs))
	for _, out := range outputs {
		if out == nil {
			continue
		}
		sinks = append(sinks, &sink{buf: bufio.NewWriterSize(out, bufSize)})
	}
	w := &lineWriter{
		lines:   make(chan []byte, lineQueueDepth),
		syncReq: make(chan chan error),
		drained: make(chan struct{}),
		sinks:   sinks,
	}
	go w.fanOut()
	return w
}

func (w *lineWriter) fanOut() {
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.flushSinks()
				close(w.drained)
				return
			}
			if len(line) > 0 {
				for _, s := range w.sinks {
					s.write(line)
				}
			}
		case ack := <-w.syncReq:
			ack <- w.flushSinks()
		}
	}
}

// Write queues one line for fan-out. The line is copied because slog reuses
// its buffers.
func (w *lineWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	line := make([]byte, len(p))
	copy(line, p)

	// The lock spans the channel send so Close cannot slip in between the
	// closed check and the send. fanOut never takes the lock, so a full
	// queue drains regardless.
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errWriterClosed
	}
	w.lines <- line
	return nil
}

// Flush forces every sink buffer out and reports broken sinks.
func (w *lineWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.syncReq <- ack:
		return <-ack
	case <-w.drained:
		return errWriterClosed
	}
}

// Close drains queued lines, flushes, and reports broken sinks.
func (w *lineWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.drained
		return nil
	}
	w.closed = true
	close(w.lines)
	w.mu.Unlock()

	<-w.drained
	var errs []error
	for _, s := range w.sinks {
		if s.broken != nil {
			errs = append(errs, s.broken)
		}
	}
	return errors.Join(errs...)
}

func (w *lineWriter) flushSinks() error {
	var errs []error
	for _, s := range w.sinks {
		if err := s.flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
