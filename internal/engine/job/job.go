package job

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/robfig/cron"

	"github.com/rosterbridge/rosterbridge/internal/engine/logic"
	"github.com/rosterbridge/rosterbridge/pkg/log"
)

// PassRunner is the slice of the reconciler the scheduler needs.
type PassRunner interface {
	RunPass(ctx context.Context) error
}

// Scheduler fires reconciliation passes on a cron schedule. Passes never
// overlap: a tick that arrives while a pass is still running is skipped.
type Scheduler struct {
	spec    string
	runner  PassRunner
	cron    *cron.Cron
	running atomic.Bool
}

func NewScheduler(spec string, runner PassRunner) *Scheduler {
	return &Scheduler{
		spec:   spec,
		runner: runner,
		cron:   cron.New(),
	}
}

// Start registers the pass job and starts the cron loop.
func (s *Scheduler) Start() error {
	err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Infow("reconciliation scheduler started", "cron", s.spec)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunOnce runs a single pass if none is in flight. Returns false when the
// tick was skipped because a previous pass is still running.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		log.Warn("previous reconciliation pass still running, skipping tick")
		return false
	}
	defer s.running.Store(false)

	if err := s.runner.RunPass(ctx); err != nil {
		if errors.Is(err, logic.ErrNoCustodianOrg) {
			// nothing will succeed until an operator fixes the setting
			log.Errorw("reconciliation halted: custodian organisation is not configured")
			return true
		}
		log.Errorw("reconciliation pass failed", "error", err)
	}
	return true
}
