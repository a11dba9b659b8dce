package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskmap/pkg/logger"
)

func TestRegisterRejectsBadSpec(t *testing.T) {
	s := New(logger.NewLogger())
	err := s.Register("bad", "not a cron spec", func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}

func TestJobMutexSkipsOverlap(t *testing.T) {
	s := New(logger.NewLogger())

	var started atomic.Int32
	release := make(chan struct{})

	s.RegisterManual("slow", func(ctx context.Context) error {
		started.Add(1)
		<-release
		return nil
	})

	job := s.jobs["slow"]
	go s.execute(job)

	require.Eventually(t, func() bool { return started.Load() == 1 }, time.Second, 5*time.Millisecond)

	// a second trigger while the first instance runs must skip
	s.execute(job)
	assert.Equal(t, int32(1), started.Load())

	close(release)
	require.Eventually(t, func() bool {
		job.mu.Lock()
		defer job.mu.Unlock()
		return !job.running
	}, time.Second, 5*time.Millisecond)

	// after completion the job runs again
	s.execute(job)
	assert.Equal(t, int32(2), started.Load())
}

func TestControlDispatch(t *testing.T) {
	s := New(logger.NewLogger())

	var ran atomic.Int32
	s.RegisterManual("consolidate", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})

	s.Start()
	defer s.Stop(time.Second)

	s.Control() <- Command{Name: "run_consolidate"}

	require.Eventually(t, func() bool { return ran.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestControlDispatchIntegratorName(t *testing.T) {
	s := New(logger.NewLogger())

	var ran atomic.Int32
	s.RegisterManual("integrate_events", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})

	s.Start()
	defer s.Stop(time.Second)

	s.Control() <- Command{Name: "run_integrator", Arg: "events"}

	require.Eventually(t, func() bool { return ran.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestStopIsIdempotentWithNoJobs(t *testing.T) {
	s := New(logger.NewLogger())
	s.Start()
	s.Stop(100 * time.Millisecond)
	s.Stop(100 * time.Millisecond)
}
