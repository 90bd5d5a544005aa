package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
)

const (
	streamEndpoint   = "/stream"
	completeEndpoint = "/complete"
	maxEventSize     = 1 << 20
)

// RemoteOption configures a Remote agent.
type RemoteOption func(*Remote)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		r.client = c
	}
}

// WithTimeout bounds Complete calls. Streams are bounded by their context only.
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		r.timeout = d
	}
}

// WithRemoteLogger sets the logger.
func WithRemoteLogger(l *slog.Logger) RemoteOption {
	return func(r *Remote) {
		r.logger = l
	}
}

// Remote is an agent reached over HTTP.
//
// POST {baseURL}/stream answers with one JSON encoded domain.AgentEvent per
// line. POST {baseURL}/complete answers with {"messages": [...]}.
// A 503 response means the agent runtime is still initialising.
type Remote struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewRemote creates a remote agent.
func NewRemote(baseURL string, opts ...RemoteOption) *Remote {
	r := &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		timeout: 2 * time.Minute,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stream implements ports.Agent.
func (r *Remote) Stream(ctx context.Context, req domain.AgentRequest) (<-chan domain.AgentEvent, error) {
	resp, err := r.post(ctx, streamEndpoint, req)
	if err != nil {
		return nil, err
	}

	ch := make(chan domain.AgentEvent)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var ev domain.AgentEvent
			if err := json.Unmarshal(line, &ev); err != nil {
				r.logger.Warn("malformed agent event", "error", err)
				send(ctx, ch, domain.StreamError("malformed agent event"))
				return
			}
			if !send(ctx, ch, ev) {
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			send(ctx, ch, domain.StreamError(err.Error()))
		}
	}()
	return ch, nil
}

// Complete implements ports.Agent.
func (r *Remote) Complete(ctx context.Context, req domain.AgentRequest) ([]domain.Message, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	resp, err := r.post(ctx, completeEndpoint, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode agent completion: %w", err)
	}
	return body.Messages, nil
}

func (r *Remote) post(ctx context.Context, endpoint string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode agent request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("agent request failed: %w", err)
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		resp.Body.Close()
		return nil, ports.ErrAgentNotReady
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("agent returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

func send(ctx context.Context, ch chan<- domain.AgentEvent, ev domain.AgentEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
