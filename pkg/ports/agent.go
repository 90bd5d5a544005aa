package ports

import (
	"context"
	"errors"

	"github.com/aretw0/weave/pkg/domain"
)

// ErrAgentNotReady is returned by agents whose runtime has not finished
// initialising. Callers surface it as an initialization failure.
var ErrAgentNotReady = errors.New("agent not ready")

// Agent is the AI agent collaborator.
type Agent interface {
	// Stream starts an invocation and returns its event sequence.
	// An error means the invocation could not be established.
	// The channel is closed when the invocation ends; implementations must
	// stop sending once ctx is cancelled.
	Stream(ctx context.Context, req domain.AgentRequest) (<-chan domain.AgentEvent, error)

	// Complete runs the invocation to completion and returns the resulting messages.
	Complete(ctx context.Context, req domain.AgentRequest) ([]domain.Message, error)
}
