// Package scheduler runs the periodic maintenance jobs of the API process.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/educator/core"
)

// StaleRetrier recomputes the performances flagged as stale.
type StaleRetrier interface {
	RetryStale(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	retrier StaleRetrier
	logger  core.Logger
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

func New(conf *core.Config, retrier StaleRetrier, logger core.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		retrier: retrier,
		logger:  logger,
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(conf.Scheduler.RecomputeSpec, s.RetryStale); err != nil {
		return nil, errors.Wrapf(err, "scheduling stale performance retries (%q)", conf.Scheduler.RecomputeSpec)
	}
	return s, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for the running jobs to finish, at most until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RetryStale is a single run of the retry job. Overlapping runs are skipped.
func (s *Scheduler) RetryStale() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	fixed, err := s.retrier.RetryStale(ctx)
	if err != nil {
		s.logger.Error(fmt.Sprintf("retrying stale performances: %v", err), err)
		return
	}
	if fixed > 0 {
		s.logger.Info(fmt.Sprintf("recomputed %d stale performances", fixed))
	}
}
