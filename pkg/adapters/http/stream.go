package http

import (
	"net/http"
)

// streamWriter commits the plain text streaming headers on the first write
// and flushes through the response controller.
type streamWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func newStreamWriter(w http.ResponseWriter) *streamWriter {
	return &streamWriter{w: w, rc: http.NewResponseController(w)}
}

// Begin sends the status line and headers if nothing was written yet.
func (s *streamWriter) Begin() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("X-Content-Type-Options", "nosniff")
	s.w.WriteHeader(http.StatusOK)
}

// Started reports whether the headers were sent.
func (s *streamWriter) Started() bool {
	return s.started
}

func (s *streamWriter) Write(p []byte) (int, error) {
	s.Begin()
	return s.w.Write(p)
}

// Flush implements http.Flusher.
func (s *streamWriter) Flush() {
	_ = s.rc.Flush()
}
