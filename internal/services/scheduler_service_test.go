package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatchDueRunsOnlyDueTasks(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	taskRepo := &fakeTaskRepo{}
	scheduler := &schedulerService{repo: taskRepo, now: clock.Now}
	dispatcher := &TaskDispatcher{repo: taskRepo, handlers: make(map[string]TaskHandler), now: clock.Now}

	var ran []string
	dispatcher.Register("ping", func(_ context.Context, payload map[string]any) error {
		name, _ := payload["name"].(string)
		ran = append(ran, name)
		return nil
	})

	ctx := context.Background()
	require.NoError(t, scheduler.Schedule(ctx, time.Minute, "ping", map[string]any{"name": "soon"}))
	require.NoError(t, scheduler.Schedule(ctx, time.Hour, "ping", map[string]any{"name": "later"}))

	// Nothing due yet.
	require.NoError(t, dispatcher.DispatchDue(ctx))
	require.Empty(t, ran)

	clock.Advance(2 * time.Minute)
	require.NoError(t, dispatcher.DispatchDue(ctx))
	require.Equal(t, []string{"soon"}, ran)
	require.Equal(t, 1, taskRepo.pending())

	clock.Advance(time.Hour)
	require.NoError(t, dispatcher.DispatchDue(ctx))
	require.Equal(t, []string{"soon", "later"}, ran)
	require.Equal(t, 0, taskRepo.pending())
}

func TestDispatchDueSwallowsHandlerErrors(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	taskRepo := &fakeTaskRepo{}
	scheduler := &schedulerService{repo: taskRepo, now: clock.Now}
	dispatcher := &TaskDispatcher{repo: taskRepo, handlers: make(map[string]TaskHandler), now: clock.Now}

	dispatcher.Register("boom", func(context.Context, map[string]any) error {
		return errors.New("handler failed")
	})

	ctx := context.Background()
	require.NoError(t, scheduler.Schedule(ctx, 0, "boom", nil))
	require.NoError(t, scheduler.Schedule(ctx, 0, "unregistered", nil))

	clock.Advance(time.Second)
	require.NoError(t, dispatcher.DispatchDue(ctx))

	// Claimed rows are gone even when their handlers fail or are unknown.
	require.Equal(t, 0, taskRepo.pending())
}
