package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_collector/internal/domain"
)

type fakeCollector struct {
	mu        sync.Mutex
	calls     int
	deadlines []bool
	err       error
	called    chan struct{}
}

func (f *fakeCollector) Collect(ctx context.Context) ([]domain.SourceResult, error) {
	f.mu.Lock()
	f.calls++
	_, ok := ctx.Deadline()
	f.deadlines = append(f.deadlines, ok)
	f.mu.Unlock()

	select {
	case f.called <- struct{}{}:
	default:
	}

	if f.err != nil {
		return nil, f.err
	}
	return []domain.SourceResult{
		{SourceID: 1, SourceName: "Hacker News", ArticlesCollected: 2, Status: domain.StatusSuccess},
		{SourceID: 2, SourceName: "Geek News", Status: domain.StatusFailed, ErrorMessage: "Network error"},
	}, nil
}

func (f *fakeCollector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunsImmediatelyAndOnTick(t *testing.T) {
	collector := &fakeCollector{called: make(chan struct{}, 10)}
	s := NewScheduler(collector, 10*time.Millisecond, time.Second, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-collector.called:
		case <-time.After(2 * time.Second):
			t.Fatal("collector was not invoked")
		}
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, collector.callCount(), 3)
}

func TestScheduler_RunHasDeadline(t *testing.T) {
	collector := &fakeCollector{called: make(chan struct{}, 1)}
	s := NewScheduler(collector, time.Hour, time.Minute, discardLogger())

	s.runCollect(context.Background())

	require.Equal(t, 1, collector.callCount())
	assert.True(t, collector.deadlines[0])
}

func TestScheduler_CollectErrorDoesNotStopLoop(t *testing.T) {
	collector := &fakeCollector{err: errors.New("list active sources: connection refused"), called: make(chan struct{}, 10)}
	s := NewScheduler(collector, 10*time.Millisecond, time.Second, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Start(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case <-collector.called:
		case <-time.After(2 * time.Second):
			t.Fatal("collector was not invoked again after an error")
		}
	}
}
