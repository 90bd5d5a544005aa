package agent

import (
	"context"
	"strings"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/google/uuid"
)

// Echo answers every invocation with the last user message, one line per
// event. It is used when no remote agent is configured.
type Echo struct{}

// Stream implements ports.Agent.
func (Echo) Stream(ctx context.Context, req domain.AgentRequest) (<-chan domain.AgentEvent, error) {
	lines := strings.SplitAfter(lastUserMessage(req), "\n")

	ch := make(chan domain.AgentEvent)
	go func() {
		defer close(ch)
		for _, line := range lines {
			if line == "" {
				continue
			}
			select {
			case ch <- domain.ContentDelta(line):
			case <-ctx.Done():
				return
			}
		}
		select {
		case ch <- domain.StreamEnd():
		case <-ctx.Done():
		}
	}()
	return ch, nil
}

// Complete implements ports.Agent.
func (Echo) Complete(ctx context.Context, req domain.AgentRequest) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []domain.Message{{
		ID:      uuid.NewString(),
		Role:    domain.RoleAssistant,
		Content: lastUserMessage(req),
	}}, nil
}

func lastUserMessage(req domain.AgentRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == domain.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}
