package job

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rosterbridge/rosterbridge/internal/engine/logic"
)

type blockingRunner struct {
	mu      sync.Mutex
	started chan struct{}
	release chan struct{}
	runs    int
	err     error
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) RunPass(context.Context) error {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
	select {
	case r.started <- struct{}{}:
	default:
	}
	<-r.release
	return r.err
}

func (r *blockingRunner) runCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func TestRunOnceSkipsOverlappingTicks(t *testing.T) {
	runner := newBlockingRunner()
	s := NewScheduler("@every 1h", runner)

	done := make(chan bool)
	go func() {
		done <- s.RunOnce(context.Background())
	}()

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("first pass never started")
	}

	// a tick arriving mid-pass must be dropped, not queued
	assert.False(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, runner.runCount())

	close(runner.release)
	assert.True(t, <-done)

	// once the pass finishes, the next tick runs again
	assert.True(t, s.RunOnce(context.Background()))
	assert.Equal(t, 2, runner.runCount())
}

func TestRunOnceSwallowsPassErrors(t *testing.T) {
	runner := newBlockingRunner()
	runner.err = logic.ErrNoCustodianOrg
	close(runner.release)

	s := NewScheduler("@every 1h", runner)
	assert.True(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, runner.runCount())
}
