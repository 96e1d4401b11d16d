package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/ssMMiles/easy-roles/pkg/log"
)

// Task is a periodic job body. Errors are logged, not retried; the job
// keeps its schedule either way.
type Task func() error

// Cancel stops a scheduled job.
type Cancel func()

type job struct {
	name     string
	interval time.Duration
	task     Task
	stop     chan struct{}
	once     sync.Once
}

func (j *job) cancel() {
	j.once.Do(func() { close(j.stop) })
}

// Scheduler runs named jobs on fixed intervals. Jobs run on their own
// goroutines; a slow run delays only its own next tick.
type Scheduler struct {
	mu     sync.Mutex
	jobs   []*job
	logger *log.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *log.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Every registers a job that first runs one interval from now and then
// repeats. The returned Cancel is idempotent.
func (s *Scheduler) Every(name string, interval time.Duration, t Task) Cancel {
	j := &job{name: name, interval: interval, task: t, stop: make(chan struct{})}

	s.mu.Lock()
	s.jobs = append(s.jobs, j)
	s.mu.Unlock()

	go s.loop(j)

	return j.cancel
}

// StopAll cancels every registered job. Safe to call more than once.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = nil
	s.mu.Unlock()

	for _, j := range jobs {
		j.cancel()
	}
}

func (s *Scheduler) loop(j *job) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(j)
		case <-j.stop:
			return
		}
	}
}

func (s *Scheduler) runOnce(j *job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("job", j.name).Error(fmt.Sprintf("Scheduled job panicked: %v", r))
		}
	}()

	if err := j.task(); err != nil {
		s.logger.WithField("job", j.name).ErrorWithErr("Scheduled job failed", err)
	}
}
