package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler runs a named job at a fixed interval until the context is
// cancelled.
type Scheduler struct {
	name     string
	interval time.Duration
	job      func(ctx context.Context) error
}

func NewScheduler(name string, interval time.Duration, job func(ctx context.Context) error) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		job:      job,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.job(ctx); err != nil {
				logrus.WithError(err).WithField("job", s.name).Error("scheduled job failed")
			}
		case <-ctx.Done():
			return
		}
	}
}
