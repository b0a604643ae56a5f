package reminder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/subtrack/internal/model"
)

func TestNoop_Logs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := NewNoop(zap.New(core))
	ctx := context.Background()

	sub := model.Subscription{ID: model.DemoID("x"), RenewalDate: model.Date{Year: 2025, Month: 1, Day: 2}}
	require.NoError(t, n.Schedule(ctx, sub, []int{7, 1}))
	require.NoError(t, n.Cancel(ctx, sub.ID))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "reminders scheduled", entries[0].Message)
	require.Equal(t, "demo-x", entries[0].ContextMap()["id"])
	require.Equal(t, "reminders cancelled", entries[1].Message)

	require.NoError(t, NewNoop(nil).Cancel(ctx, sub.ID))
}
