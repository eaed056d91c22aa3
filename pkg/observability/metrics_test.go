package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnNodeLeave(ctx, &domain.NodeEvent{Node: "extract_name", Duration: time.Millisecond})
	hooks.OnNodeLeave(ctx, &domain.NodeEvent{Node: "scan_name", NewErrors: []string{"scan_failed_name"}})
	hooks.OnNodeLeave(ctx, &domain.NodeEvent{Node: "fetch", Err: errors.New("boom")})
	hooks.OnCallAttempt(ctx, &domain.CallEvent{Node: "fetch", StatusCode: 503})
	hooks.OnCallAttempt(ctx, &domain.CallEvent{Node: "fetch", StatusCode: 503})
	hooks.OnTurnComplete(ctx, &domain.TurnEvent{Paused: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NodeRuns.WithLabelValues("extract_name", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NodeRuns.WithLabelValues("scan_name", "tagged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NodeRuns.WithLabelValues("fetch", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorTags.WithLabelValues("scan_name")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CallAttempts.WithLabelValues("fetch", "503")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("paused")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestLogHooks_MergeWithMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, slog.LevelDebug, logging.FormatText)
	m := observability.NewMetrics(nil)

	hooks := m.Hooks().Merge(observability.LogHooks(logger))
	hooks.OnTurnComplete(context.Background(), &domain.TurnEvent{
		EventBase: domain.EventBase{ConversationID: "c1"},
	})

	assert.Contains(t, buf.String(), "turn_complete")
	assert.Contains(t, buf.String(), "conversation_id=c1")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("completed")))
}
