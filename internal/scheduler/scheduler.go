// Package scheduler triggers pipeline components on cron rules and serves
// the internal control channel. Each job holds a mutex: an instance that
// misses its window because the previous run is still going skips rather
// than piling up.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"riskmap/pkg/logger"
)

// Job is a named unit of scheduled work.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error

	mu      sync.Mutex
	running bool
}

// Command is one control-channel instruction.
type Command struct {
	Name string // run_fetch | run_enrich | run_integrator | run_consolidate | reload_sources | shutdown
	Arg  string // integrator name or source-set tag, command dependent
}

// Scheduler owns the cron runner and the control channel consumer.
type Scheduler struct {
	cron     *cron.Cron
	jobs     map[string]*Job
	logger   *logger.Logger
	control  chan Command
	shutdown chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. Jobs are registered before Start.
func New(log *logger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     cron.New(),
		jobs:     make(map[string]*Job),
		logger:   log.With("component", "scheduler"),
		control:  make(chan Command, 16),
		shutdown: make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register adds a job to the cron table.
func (s *Scheduler) Register(name, spec string, run func(ctx context.Context) error) error {
	job := &Job{Name: name, Spec: spec, Run: run}
	s.jobs[name] = job

	_, err := s.cron.AddFunc(spec, func() {
		s.execute(job)
	})
	if err != nil {
		return err
	}
	s.logger.Info("job registered", "job", name, "schedule", spec)
	return nil
}

// RegisterManual adds a job reachable only through the control channel,
// with no cron entry.
func (s *Scheduler) RegisterManual(name string, run func(ctx context.Context) error) {
	s.jobs[name] = &Job{Name: name, Run: run}
	s.logger.Info("job registered", "job", name, "schedule", "manual")
}

// execute runs a job unless an instance is already running.
func (s *Scheduler) execute(job *Job) {
	job.mu.Lock()
	if job.running {
		job.mu.Unlock()
		s.logger.Warn("job still running, skipping window", "job", job.Name)
		return
	}
	job.running = true
	job.mu.Unlock()

	defer func() {
		job.mu.Lock()
		job.running = false
		job.mu.Unlock()
	}()

	started := time.Now()
	if err := job.Run(s.ctx); err != nil {
		s.logger.Error("job failed", "job", job.Name, "duration", time.Since(started).String(), "error", err.Error())
		return
	}
	s.logger.Debug("job completed", "job", job.Name, "duration", time.Since(started).String())
}

// Control returns the channel handlers push commands into.
func (s *Scheduler) Control() chan<- Command {
	return s.control
}

// Start launches the cron runner and the control consumer.
func (s *Scheduler) Start() {
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ctx.Done():
				return
			case cmd := <-s.control:
				s.dispatch(cmd)
			}
		}
	}()

	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// ShutdownRequests delivers shutdown commands received over the control
// channel; the supervisor treats them like a termination signal.
func (s *Scheduler) ShutdownRequests() <-chan struct{} {
	return s.shutdown
}

// dispatch maps a control command onto its job and runs it immediately.
func (s *Scheduler) dispatch(cmd Command) {
	name := cmd.Name
	switch name {
	case "shutdown":
		s.logger.Warn("shutdown requested over control channel")
		select {
		case s.shutdown <- struct{}{}:
		default:
		}
		return
	case "run_integrator":
		name = "integrate_" + cmd.Arg
	case "run_fetch":
		name = "fetch"
	case "run_enrich":
		name = "enrich"
	case "run_consolidate":
		name = "consolidate"
	case "reload_sources":
		name = "reload_sources"
	}

	job, ok := s.jobs[name]
	if !ok {
		s.logger.Warn("control command for unknown job", "command", cmd.Name, "arg", cmd.Arg)
		return
	}
	s.logger.Info("control command accepted", "job", name)
	go s.execute(job)
}

// Stop drains in-flight jobs up to the grace window, then returns.
func (s *Scheduler) Stop(grace time.Duration) {
	cronCtx := s.cron.Stop() // no new firings; returns ctx done when jobs finish

	select {
	case <-cronCtx.Done():
	case <-time.After(grace):
		s.logger.Warn("grace window expired, aborting in-flight jobs")
	}

	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}
