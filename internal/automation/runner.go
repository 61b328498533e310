// Package automation drives the unattended sweep that advances
// time-based financial state: savings contributions, auto-pay bills, and
// lock maturation, in that order. The runner is an injectable periodic
// task with an explicit lifecycle; RunOnce is pure batch work so tests
// can drive it deterministically.
package automation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LerianStudio/lib-uncommons/v2/uncommons/cron"
	"go.uber.org/zap"

	"github.com/olumayowa/walletcore/internal/bills"
	"github.com/olumayowa/walletcore/internal/escrow"
	"github.com/olumayowa/walletcore/internal/savings"
)

// DefaultSchedule fires once a day at midnight UTC.
const DefaultSchedule = "0 0 * * *"

type Runner struct {
	savings  *savings.Engine
	bills    *bills.Engine
	escrow   *escrow.Engine
	schedule cron.Schedule
	log      *zap.Logger
	now      func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stop      chan struct{}
	done      chan struct{}
}

func NewRunner(savingsEngine *savings.Engine, billEngine *bills.Engine, escrowEngine *escrow.Engine, schedule cron.Schedule, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		savings:  savingsEngine,
		bills:    billEngine,
		escrow:   escrowEngine,
		schedule: schedule,
		log:      log,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetClock overrides the runner clock.
func (r *Runner) SetClock(now func() time.Time) { r.now = now }

// RunOnce executes one full sweep. The three passes run sequentially;
// items within a pass are isolated in their own units of work, so one bad
// record never aborts the pass or the run.
func (r *Runner) RunOnce(ctx context.Context) {
	now := r.now()
	r.log.Info("automation runner started", zap.Time("at", now))

	r.savings.ProcessDue(ctx, now)
	r.bills.ProcessAutoPay(ctx, now)
	if _, err := r.escrow.MatureLocks(ctx, now); err != nil {
		r.log.Error("mature locks", zap.Error(err))
	}

	r.log.Info("automation runner finished")
}

// Start launches the periodic loop: one sweep immediately, then one per
// schedule tick, until Stop is called or ctx is canceled.
func (r *Runner) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		r.started.Store(true)
		go r.loop(ctx)
	})
}

// Stop halts the loop and waits for any in-flight sweep to finish.
// Stopping a runner that was never started is a no-op.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	if r.started.Load() {
		<-r.done
	}
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	r.RunOnce(ctx)

	for {
		next, err := r.schedule.Next(r.now())
		if err != nil {
			r.log.Error("compute next run", zap.Error(err))
			return
		}

		timer := time.NewTimer(next.Sub(r.now()))
		select {
		case <-timer.C:
			r.RunOnce(ctx)
		case <-r.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}
