package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/princeprakhar/travel-review-backend/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Sweeper runs one cleanup pass over expired temporary images.
type Sweeper interface {
	CleanupTemporaryImages(ctx context.Context) (SweepResult, error)
}

// Reaper runs a Sweeper on a fixed interval in a single background goroutine.
// Start and Stop are idempotent.
type Reaper struct {
	sweeper  Sweeper
	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewReaper(sweeper Sweeper, interval time.Duration) *Reaper {
	return &Reaper{
		sweeper:  sweeper,
		interval: interval,
	}
}

// Start launches the sweep loop. Calling Start on a running reaper is a no-op.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		reaperLog().Debug("already running")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.loop(loopCtx, r.done)

	reaperLog().WithField("interval", r.interval.String()).Info("temporary image reaper started")
}

// Stop cancels the loop and waits for an in-flight sweep to return. Stopping a
// reaper that is not running is safe.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel, done := r.cancel, r.done
	r.running = false
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	cancel()
	<-done
	reaperLog().Info("temporary image reaper stopped")
}

func (r *Reaper) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// loop exits when its context ends, either through Stop or because the
// parent context passed to Start was cancelled. In the latter case the reaper
// marks itself stopped so a later Start launches a fresh loop.
func (r *Reaper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer r.release(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// release clears the running state if it still belongs to the loop owning done.
func (r *Reaper) release(done chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != done {
		return
	}
	r.cancel()
	r.running = false
	r.cancel = nil
	r.done = nil
}

// RunOnce performs a single sweep. Errors and panics are logged, never
// propagated, so the schedule keeps running.
func (r *Reaper) RunOnce(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			reaperLog().WithField("panic", fmt.Sprint(rec)).Error("temporary image sweep panicked")
		}
	}()

	result, err := r.sweeper.CleanupTemporaryImages(ctx)
	if err != nil {
		reaperLog().WithError(err).Error("temporary image sweep failed")
		return
	}

	reaperLog().WithFields(logger.Fields{
		"candidates": result.Candidates,
		"reaped":     result.Reaped,
		"skipped":    result.Skipped,
		"failed":     result.Failed,
	}).Info("temporary image sweep finished")
}

func reaperLog() *logrus.Entry {
	return logger.WithComponent("reaper")
}
