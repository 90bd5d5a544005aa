package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
)

// ErrSinkClosed is returned when writing to a sink after Close.
var ErrSinkClosed = errors.New("sink closed")

// Sink receives the relay's output fragments.
// Write blocks until the fragment is accepted or ctx is done.
type Sink interface {
	Write(ctx context.Context, chunk string) error
	Close() error
}

// ChanSink delivers fragments over a channel. The relay suspends whenever
// the consumer falls behind by more than the channel buffer.
type ChanSink struct {
	ch   chan string
	once sync.Once
}

// NewChanSink creates a channel sink with the given buffer size.
func NewChanSink(buffer int) *ChanSink {
	return &ChanSink{ch: make(chan string, buffer)}
}

// C returns the receive side. It is closed when the relay closes the sink.
func (s *ChanSink) C() <-chan string {
	return s.ch
}

// Write implements Sink.
func (s *ChanSink) Write(ctx context.Context, chunk string) error {
	select {
	case s.ch <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements Sink. Only the relay may call it.
func (s *ChanSink) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}

// WriterSink writes fragments to an io.Writer and flushes after each one
// when the writer supports it, as http.ResponseWriter does.
type WriterSink struct {
	mu      sync.Mutex
	w       io.Writer
	closed  bool
	written bool
}

// NewWriterSink wraps w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Write implements Sink.
func (s *WriterSink) Write(ctx context.Context, chunk string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	if _, err := io.WriteString(s.w, chunk); err != nil {
		return err
	}
	s.written = true
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// Written reports whether any fragment reached the writer.
func (s *WriterSink) Written() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Close implements Sink. The underlying writer is not closed.
func (s *WriterSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
