package agent

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/weave/pkg/domain"
)

// Scripted replays a fixed sequence of events.
type Scripted struct {
	// Events are sent in order by Stream.
	Events []domain.AgentEvent
	// Messages are returned by Complete.
	Messages []domain.Message
	// StartErr fails both Stream and Complete before anything is produced.
	StartErr error
	// Delay is waited before each event.
	Delay time.Duration
	// Hold keeps the stream open after the last event until ctx is done.
	Hold bool

	mu        sync.Mutex
	requests  []domain.AgentRequest
	cancelled bool
}

// NewScripted creates a scripted agent that streams events.
func NewScripted(events ...domain.AgentEvent) *Scripted {
	return &Scripted{Events: events}
}

// Stream implements ports.Agent.
func (s *Scripted) Stream(ctx context.Context, req domain.AgentRequest) (<-chan domain.AgentEvent, error) {
	s.record(req)
	if s.StartErr != nil {
		return nil, s.StartErr
	}

	ch := make(chan domain.AgentEvent)
	go func() {
		defer close(ch)
		for _, ev := range s.Events {
			if s.Delay > 0 {
				select {
				case <-time.After(s.Delay):
				case <-ctx.Done():
					s.markCancelled()
					return
				}
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				s.markCancelled()
				return
			}
		}
		if s.Hold {
			<-ctx.Done()
			s.markCancelled()
		}
	}()
	return ch, nil
}

// Complete implements ports.Agent.
func (s *Scripted) Complete(ctx context.Context, req domain.AgentRequest) ([]domain.Message, error) {
	s.record(req)
	if s.StartErr != nil {
		return nil, s.StartErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.Message, len(s.Messages))
	copy(out, s.Messages)
	return out, nil
}

// Requests returns every request received so far.
func (s *Scripted) Requests() []domain.AgentRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AgentRequest(nil), s.requests...)
}

// Cancelled reports whether a stream observed its context being cancelled.
func (s *Scripted) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *Scripted) record(req domain.AgentRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
}

func (s *Scripted) markCancelled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}
