package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jjenkins/billpulse/internal/logger"
)

// DefaultJobTimeout bounds a job run when Job.Timeout is zero.
const DefaultJobTimeout = 5 * time.Minute

// Job is a recurring task. Each run is canceled once Timeout elapses.
type Job struct {
	Name    string
	Every   time.Duration
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

func (j Job) timeout() time.Duration {
	if j.Timeout > 0 {
		return j.Timeout
	}
	return DefaultJobTimeout
}

// Scheduler runs jobs on fixed intervals. Jobs never overlap: a job whose
// tick arrives while another runs waits for it to finish.
type Scheduler struct {
	jobs []Job
	log  *logger.Logger
	mu   sync.Mutex
}

func NewScheduler(log *logger.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs, log: log}
}

// Run blocks until ctx is canceled. Job errors are logged, not returned.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, job := range s.jobs {
		s.log.Info("Scheduled job", map[string]interface{}{
			"job":     job.Name,
			"every":   job.Every.String(),
			"timeout": job.timeout().String(),
		})
		g.Go(func() error {
			ticker := time.NewTicker(job.Every)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					s.runJob(ctx, job)
				}
			}
		})
	}

	return g.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, job.timeout())
	defer cancel()

	start := time.Now()
	s.log.Info("Running job", map[string]interface{}{"job": job.Name})

	if err := job.Run(runCtx); err != nil {
		s.log.Error("Job failed", err, map[string]interface{}{
			"job":         job.Name,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return
	}

	s.log.Info("Job completed", map[string]interface{}{
		"job":         job.Name,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}
