package runner

import (
	"context"
	"fmt"

	"github.com/aretw0/weave/pkg/domain"
)

// Interceptor is a policy consulted before a tool run reaches the agent.
// Returning an error blocks the run.
type Interceptor func(ctx context.Context, meta domain.ToolMetadata) error

// MultiInterceptor chains multiple interceptors. The first error wins.
func MultiInterceptor(interceptors ...Interceptor) Interceptor {
	return func(ctx context.Context, meta domain.ToolMetadata) error {
		for _, interceptor := range interceptors {
			if interceptor == nil {
				continue
			}
			if err := interceptor(ctx, meta); err != nil {
				return err
			}
		}
		return nil
	}
}

// AllowTools only lets the named tools through.
func AllowTools(names ...string) Interceptor {
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}
	return func(ctx context.Context, meta domain.ToolMetadata) error {
		if _, ok := allowed[meta.ToolName]; !ok {
			return domain.NewError(domain.KindValidation, fmt.Sprintf("tool %q is not allowed", meta.ToolName), nil)
		}
		return nil
	}
}

// MaxCalls rejects runs that ask for more than limit calls.
func MaxCalls(limit int) Interceptor {
	return func(ctx context.Context, meta domain.ToolMetadata) error {
		if meta.CallCount > limit {
			return domain.NewError(domain.KindValidation, fmt.Sprintf("callCount %d exceeds limit %d", meta.CallCount, limit), nil)
		}
		return nil
	}
}

// AutoApprove allows everything.
func AutoApprove() Interceptor {
	return func(ctx context.Context, meta domain.ToolMetadata) error {
		return nil
	}
}
