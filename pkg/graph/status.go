package graph

import (
	"fmt"
	"sort"

	"github.com/aretw0/weave/pkg/domain"
)

// MarkRunning moves a node into the running bucket.
func (s *Store) MarkRunning(id string) error {
	return s.transition(id, domain.StatusRunning)
}

// StartRun marks a node running unless it already is. It is the atomic
// entry point for a run; MarkRunning never fails on a running node.
func (s *Store) StartRun(id string) error {
	s.mu.Lock()
	if s.indexOf(id) < 0 {
		s.mu.Unlock()
		return notFound(id)
	}
	if s.statusLocked(id) == domain.StatusRunning {
		s.mu.Unlock()
		return domain.NewError(domain.KindValidation, fmt.Sprintf("node %q", id), domain.ErrNodeRunning)
	}
	ev, _ := s.setStatusLocked(id, domain.StatusRunning)
	s.version++
	listeners := s.listeners
	s.mu.Unlock()

	s.logger.Debug("node status changed", "graph_id", s.id, "node_id", id, "status", domain.StatusRunning, "previous", ev.Previous)
	notify(listeners, ev)
	return nil
}

// MarkSuccess moves a node into the success bucket.
func (s *Store) MarkSuccess(id string) error {
	return s.transition(id, domain.StatusSuccess)
}

// MarkError moves a node into the error bucket.
func (s *Store) MarkError(id string) error {
	return s.transition(id, domain.StatusError)
}

// ResetStatus removes a node from every bucket, making it idle.
func (s *Store) ResetStatus(id string) error {
	return s.transition(id, domain.StatusIdle)
}

// Status returns the execution status of a node. Unknown ids are idle.
func (s *Store) Status(id string) domain.NodeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked(id)
}

// Bucket returns the sorted ids currently holding status st.
// Idle has no bucket and returns the nodes absent from all three.
func (s *Store) Bucket(st domain.NodeStatus) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	switch st {
	case domain.StatusRunning:
		out = keys(s.running)
	case domain.StatusSuccess:
		out = keys(s.success)
	case domain.StatusError:
		out = keys(s.failed)
	case domain.StatusIdle:
		for _, n := range s.nodes {
			if s.statusLocked(n.ID) == domain.StatusIdle {
				out = append(out, n.ID)
			}
		}
		sort.Strings(out)
	}
	return out
}

func (s *Store) transition(id string, st domain.NodeStatus) error {
	s.mu.Lock()
	if s.indexOf(id) < 0 {
		s.mu.Unlock()
		return notFound(id)
	}
	ev, changed := s.setStatusLocked(id, st)
	if changed {
		s.version++
	}
	listeners := s.listeners
	s.mu.Unlock()

	if changed {
		s.logger.Debug("node status changed", "graph_id", s.id, "node_id", id, "status", st, "previous", ev.Previous)
		notify(listeners, ev)
	}
	return nil
}

// setStatusLocked clears id from all buckets and adds it to the one for st.
func (s *Store) setStatusLocked(id string, st domain.NodeStatus) (domain.StatusEvent, bool) {
	prev := s.statusLocked(id)
	delete(s.running, id)
	delete(s.success, id)
	delete(s.failed, id)

	switch st {
	case domain.StatusRunning:
		s.running[id] = struct{}{}
	case domain.StatusSuccess:
		s.success[id] = struct{}{}
	case domain.StatusError:
		s.failed[id] = struct{}{}
	}

	ev := domain.StatusEvent{
		GraphID:   s.id,
		NodeID:    id,
		Status:    st,
		Previous:  prev,
		Timestamp: s.now(),
	}
	return ev, prev != st
}

func (s *Store) statusLocked(id string) domain.NodeStatus {
	if _, ok := s.running[id]; ok {
		return domain.StatusRunning
	}
	if _, ok := s.success[id]; ok {
		return domain.StatusSuccess
	}
	if _, ok := s.failed[id]; ok {
		return domain.StatusError
	}
	return domain.StatusIdle
}

func notify(listeners []StatusListener, ev domain.StatusEvent) {
	for _, fn := range listeners {
		fn(ev)
	}
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
