package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

type countingRunner struct {
	mu      sync.Mutex
	runs    int
	block   chan struct{}
	started chan struct{}
}

func (r *countingRunner) Run(_ context.Context) (aggregator.RunSummary, error) {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	return aggregator.RunSummary{RunID: "test"}, nil
}

func (r *countingRunner) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func TestStartFiresImmediateRun(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{started: make(chan struct{}, 1)}
	s := New(runner, 24, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("startup run never fired")
	}
	require.Equal(t, 1, runner.Runs())
}

func TestRunOnceSkipsOverlappingTick(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := New(runner, 24, zap.NewNop())

	go s.runOnce(context.Background())
	<-runner.started

	// A second tick while the first run is in flight must be dropped.
	s.runOnce(context.Background())
	require.Equal(t, 1, runner.Runs())

	close(runner.block)
}

func TestRunOnceHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{}
	s := New(runner, 24, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.runOnce(ctx)
	require.Zero(t, runner.Runs())
}
