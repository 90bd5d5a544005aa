package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/weave/pkg/domain"
)

// AuditHooks logs every run and tool announcement.
func AuditHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_start",
				"graph_id", e.GraphID,
				"node_id", e.NodeID,
				"tool_name", e.ToolName,
				"streaming", e.Streaming,
			)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			attrs := []any{
				"graph_id", e.GraphID,
				"node_id", e.NodeID,
				"tool_name", e.ToolName,
				"outcome", e.Outcome,
				"duration", e.Duration,
			}
			if e.Err != nil {
				logger.WarnContext(ctx, "run_end", append(attrs, "err", e.Err)...)
				return
			}
			logger.InfoContext(ctx, "run_end", attrs...)
		},
		OnToolStart: func(ctx context.Context, e *domain.ToolEvent) {
			logger.InfoContext(ctx, "tool_start", "tool_name", e.ToolName)
		},
		OnToolResult: func(ctx context.Context, e *domain.ToolEvent) {
			logger.InfoContext(ctx, "tool_result", "tool_name", e.ToolName, "tx_hash", e.TxHash)
		},
	}
}
