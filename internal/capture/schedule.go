package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	appLog "eventboard/internal/log"
)

// CaptureFunc performs one capture. CapturePNG is the production value.
type CaptureFunc func(ctx context.Context, opts Options) error

// Scheduler runs captures on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	cron    *cron.Cron
	opts    Options
	capture CaptureFunc

	mu      sync.Mutex
	running bool
}

// NewScheduler parses spec (standard 5-field cron) and prepares a scheduler.
func NewScheduler(spec string, opts Options, fn CaptureFunc) (*Scheduler, error) {
	if fn == nil {
		fn = CapturePNG
	}
	s := &Scheduler{
		cron:    cron.New(),
		opts:    opts,
		capture: fn,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("capture: invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the schedule until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	appLog.Info("snapshot schedule started", "url", s.opts.URL, "out", s.opts.OutputPath)
	s.cron.Start()
	go func() {
		<-ctx.Done()
		stopped := s.cron.Stop()
		<-stopped.Done()
		appLog.Info("snapshot schedule stopped")
	}()
}

// RunOnce performs a single capture unless one is already in flight. It
// reports whether a capture ran.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		appLog.Debug("snapshot skipped; previous capture still running")
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if err := s.capture(ctx, s.opts); err != nil {
		appLog.Error("snapshot capture failed", err, "url", s.opts.URL)
		return true
	}
	appLog.Info("snapshot captured", "out", s.opts.OutputPath)
	return true
}
