package relay

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/weave/pkg/domain"
)

// Mode selects how a run delivers its output.
type Mode string

const (
	ModeStreaming Mode = "streaming"
	ModeBuffered  Mode = "buffered"
)

// FallbackLine is the only text a client sees about an upstream failure.
const FallbackLine = "An error occurred while processing your request. Please try again later."

// State is a stage of the relay state machine.
type State string

const (
	StateIdle     State = "idle"
	StateOpened   State = "opened"
	StateEmitting State = "emitting"
	StateClosed   State = "closed"
)

// Session is the ephemeral state of one relay run.
// It is owned by a single consumer goroutine and is not safe for concurrent use.
type Session struct {
	ID   string
	Mode Mode

	state     State
	output    strings.Builder
	toolsUsed map[string]struct{}
	announced bool
	txHash    string

	pending string
	carry   []byte
	chunks  int
}

// NewSession creates an idle session.
func NewSession(id string, mode Mode) *Session {
	return &Session{
		ID:        id,
		Mode:      mode,
		state:     StateIdle,
		toolsUsed: make(map[string]struct{}),
	}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Output returns everything forwarded so far.
func (s *Session) Output() string { return s.output.String() }

// ToolsUsed returns the announced tool names in sorted order.
func (s *Session) ToolsUsed() []string {
	out := make([]string, 0, len(s.toolsUsed))
	for name := range s.toolsUsed {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// TxHash returns the announced transaction hash, if any.
func (s *Session) TxHash() string { return s.txHash }

// Chunks returns the number of fragments forwarded.
func (s *Session) Chunks() int { return s.chunks }

// step is the outcome of feeding one event into the session.
type step struct {
	fragments []string
	// toolStarted and txHash report announcements made by this event.
	toolStarted string
	txHash      string
	toolEnded   string
	done        bool
	failed      bool
}

// feed applies one upstream event and returns the fragments to forward, in order.
func (s *Session) feed(ev domain.AgentEvent) step {
	var st step
	if len(s.carry) > 0 && (ev.Type != domain.EventContentDelta || len(ev.Bytes) == 0) {
		// Held back bytes can no longer be completed; keep them in arrival order.
		s.pending += strings.ToValidUTF8(string(s.carry), "\uFFFD")
		s.carry = nil
	}
	switch ev.Type {
	case domain.EventContentDelta:
		st.fragments = s.appendText(s.deltaText(ev))

	case domain.EventToolStart:
		name := strings.TrimSpace(ev.Tool)
		if name == "" || name == domain.UndefinedTool {
			break
		}
		if _, seen := s.toolsUsed[name]; seen {
			break
		}
		s.toolsUsed[name] = struct{}{}
		st.toolStarted = name
		st.fragments = append(s.flushPending(), fmt.Sprintf("\n\nUsing tool: %s\n\n", name))

	case domain.EventToolEnd:
		st.toolEnded = strings.TrimSpace(ev.Tool)
		if s.announced {
			break
		}
		hash, ok := transactionHash(ev.Result)
		if !ok {
			break
		}
		s.announced = true
		s.txHash = hash
		st.txHash = hash
		st.fragments = append(s.flushPending(), fmt.Sprintf("\n\nTransaction successful!\nTransaction hash: %s\n\n", hash))

	case domain.EventStreamError:
		st.fragments = s.Drain()
		line := FallbackLine
		if s.output.Len() > 0 || len(st.fragments) > 0 {
			line = "\n\n" + line
		}
		st.fragments = append(st.fragments, line)
		st.done, st.failed = true, true

	case domain.EventStreamEnd:
		st.fragments = s.Drain()
		st.done = true
	}
	return st
}

// Drain releases any held back text. It is called once the stream ends.
func (s *Session) Drain() []string {
	if len(s.carry) > 0 {
		s.pending += strings.ToValidUTF8(string(s.carry), "�")
		s.carry = nil
	}
	return s.flushPending()
}

// commit records a forwarded fragment.
func (s *Session) commit(fragment string) {
	s.output.WriteString(fragment)
	s.chunks++
	s.state = StateEmitting
}

func (s *Session) deltaText(ev domain.AgentEvent) string {
	switch {
	case len(ev.Bytes) > 0:
		buf := append(s.carry, ev.Bytes...)
		complete, partial := splitRune(buf)
		s.carry = append([]byte(nil), partial...)
		return strings.ToValidUTF8(string(complete), "�")
	case len(ev.Parts) > 0:
		var b strings.Builder
		for _, p := range ev.Parts {
			if p.Text != nil {
				b.WriteString(*p.Text)
			}
		}
		return b.String()
	default:
		return ev.Text
	}
}

// appendText transforms pending+text and holds back an open marker tail.
func (s *Session) appendText(text string) []string {
	if text == "" {
		return nil
	}
	buf := Transform(s.pending + text)
	cut := splitOpen(buf)
	if len(buf)-cut > maxHold {
		cut = len(buf)
	}
	s.pending = buf[cut:]
	if cut == 0 {
		return nil
	}
	return []string{buf[:cut]}
}

func (s *Session) flushPending() []string {
	if s.pending == "" {
		return nil
	}
	out := s.pending
	s.pending = ""
	return []string{out}
}
