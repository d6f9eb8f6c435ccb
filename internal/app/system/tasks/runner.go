// Package tasks runs scheduled background jobs on cron expressions: nightly
// bundle backups and local store maintenance.
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunOnce for a name that was never registered.
var ErrUnknownJob = errors.New("tasks: unknown job")

// Job is one scheduled task. Schedule takes a standard 5-field cron
// expression or a @-descriptor ("@daily", "@every 1h").
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Runner executes registered jobs on their schedules.
type Runner struct {
	logger *zap.Logger
	cron   *cron.Cron
	jobs   []Job

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// New creates a runner. Schedules are evaluated in local time, matching the
// day boundaries the tracker uses.
func New(logger *zap.Logger) *Runner {
	return &Runner{
		logger: logger,
		cron:   cron.New(cron.WithLocation(time.Local)),
	}
}

// Register adds a job. Must be called before Start; an invalid schedule is
// reported at Start.
func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
}

// Start schedules every registered job and begins the cron loop.
func (r *Runner) Start() error {
	r.ctx, r.cancel = context.WithCancel(context.Background())

	for _, job := range r.jobs {
		job := job
		_, err := r.cron.AddFunc(job.Schedule, func() {
			r.execute(job)
		})
		if err != nil {
			return err
		}
	}
	r.cron.Start()
	r.logger.Info("background task runner started",
		zap.Int("job_count", len(r.jobs)))
	return nil
}

// Stop halts scheduling and waits for in-flight jobs, up to ctx's deadline.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}
	stopped := r.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		r.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("background task runner stopped gracefully")
		return nil
	case <-ctx.Done():
		r.logger.Warn("background task runner shutdown timed out")
		return ctx.Err()
	}
}

// Names lists the registered job names in registration order.
func (r *Runner) Names() []string {
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = job.Name
	}
	return names
}

// RunOnce executes a registered job immediately, outside its schedule.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	for _, job := range r.jobs {
		if job.Name == name {
			return job.Run(ctx)
		}
	}
	return ErrUnknownJob
}

func (r *Runner) execute(job Job) {
	r.running.Add(1)
	defer r.running.Done()

	start := time.Now()
	r.logger.Debug("job starting", zap.String("job", job.Name))

	if err := job.Run(r.ctx); err != nil {
		if r.ctx.Err() != nil {
			r.logger.Debug("job cancelled during shutdown",
				zap.String("job", job.Name),
				zap.Duration("duration", time.Since(start)))
			return
		}
		r.logger.Error("job failed",
			zap.String("job", job.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}

	r.logger.Debug("job completed",
		zap.String("job", job.Name),
		zap.Duration("duration", time.Since(start)))
}
