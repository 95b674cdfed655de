package scheduler

import (
	"context"
	"io/ioutil"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educator/core"
	logsvc "github.com/trezcool/educator/services/logger"
)

type retrierFunc func(ctx context.Context) (int, error)

func (f retrierFunc) RetryStale(ctx context.Context) (int, error) { return f(ctx) }

func newTestScheduler(t *testing.T, spec string, retrier StaleRetrier) (*Scheduler, error) {
	conf := core.NewTestConfig()
	conf.Scheduler.RecomputeSpec = spec
	return New(conf, retrier, logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{name: "every", spec: "@every 5m"},
		{name: "cron expression", spec: "*/10 * * * *"},
		{name: "invalid", spec: "every five minutes", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestScheduler(t, tt.spec, retrierFunc(func(context.Context) (int, error) { return 0, nil }))
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScheduler_RetryStale(t *testing.T) {
	var calls int32
	s, err := newTestScheduler(t, "@every 1h", retrierFunc(func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return 2, nil
	}))
	require.NoError(t, err)

	s.RetryStale()
	s.RetryStale()
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestScheduler_RetryStale_SkipsOverlappingRuns(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int32
	s, err := newTestScheduler(t, "@every 1h", retrierFunc(func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
		}
		return 0, errors.New("store down")
	}))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.RetryStale()
		close(done)
	}()
	<-started
	s.RetryStale() // skipped
	close(release)
	<-done

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := newTestScheduler(t, "@every 1h", retrierFunc(func(context.Context) (int, error) { return 0, nil }))
	require.NoError(t, err)
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.NoError(t, ctx.Err())
}
