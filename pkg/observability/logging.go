package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/slotflow/pkg/domain"
)

// LogHooks returns lifecycle hooks that write structured debug logs for
// every event. Turn completions are logged at info.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "conversation_id", e.ConversationID, "node", e.Node)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			attrs := []any{"conversation_id", e.ConversationID, "node", e.Node, "duration", e.Duration}
			if len(e.NewErrors) > 0 {
				attrs = append(attrs, "new_errors", e.NewErrors)
			}
			if e.Err != nil {
				attrs = append(attrs, "error", e.Err)
			}
			logger.DebugContext(ctx, "node_leave", attrs...)
		},
		OnCallAttempt: func(ctx context.Context, e *domain.CallEvent) {
			logger.DebugContext(ctx, "call_attempt",
				"conversation_id", e.ConversationID,
				"node", e.Node,
				"method", e.Method,
				"url", e.URL,
				"attempt", e.Attempt,
				"status", e.StatusCode,
				"error", e.Err,
			)
		},
		OnTurnComplete: func(ctx context.Context, e *domain.TurnEvent) {
			attrs := []any{
				"conversation_id", e.ConversationID,
				"paused", e.Paused,
				"errors", e.Errors,
				"duration", e.Duration,
			}
			if e.Err != nil {
				logger.WarnContext(ctx, "turn_failed", append(attrs, "error", e.Err)...)
				return
			}
			logger.InfoContext(ctx, "turn_complete", attrs...)
		},
	}
}
