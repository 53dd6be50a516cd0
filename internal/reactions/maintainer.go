package reactions

import (
	"context"
	"sync"
	"time"

	"github.com/abelbrown/reactions/internal/logging"
)

// Maintainer runs periodic cache upkeep for a Service.
// Context cancellation is the only stop mechanism.
type Maintainer struct {
	svc      *Service
	interval time.Duration
	warm     bool
	wg       sync.WaitGroup
}

// NewMaintainer creates a Maintainer sweeping every svc.Settings().SweepInterval.
// With warmFeeds set it also rewrites the curated feed entry on each tick.
func NewMaintainer(svc *Service, warmFeeds bool) *Maintainer {
	return &Maintainer{svc: svc, interval: svc.Settings().SweepInterval, warm: warmFeeds}
}

// Start begins background upkeep. Call with a cancellable context.
func (m *Maintainer) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.tick(ctx)
			}
		}
	}()
}

// Wait blocks until the background goroutine exits.
// Call after canceling the context passed to Start.
func (m *Maintainer) Wait() {
	m.wg.Wait()
}

func (m *Maintainer) tick(ctx context.Context) {
	if _, err := m.svc.Sweep(ctx); err != nil {
		logging.Warn("cache sweep failed", "error", err)
	}
	if m.warm {
		if err := m.svc.RefreshCurated(ctx); err != nil {
			logging.Warn("curated feed refresh failed", "error", err)
		}
	}
}

// StartSweeper starts a Maintainer without feed warming and returns it.
func (s *Service) StartSweeper(ctx context.Context) *Maintainer {
	m := NewMaintainer(s, false)
	m.Start(ctx)
	return m
}
