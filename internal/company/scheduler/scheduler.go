// Package scheduler runs the periodic maintenance jobs of the service.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/gartstein/companyhub/internal/company/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reminder notifies users about invites that have been pending too long.
type Reminder interface {
	SendReminders(ctx context.Context, olderThan time.Duration, now time.Time) (int, error)
}

type Config struct {
	// ReminderSpec is a six field cron expression evaluated in UTC.
	ReminderSpec  string
	ReminderAfter time.Duration
	// JobTimeout bounds a single run.
	JobTimeout time.Duration
}

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron     *cron.Cron
	cfg      Config
	reminder Reminder
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewScheduler(cfg Config, reminder Reminder, m *metrics.Metrics, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		// UTC with seconds precision
		cron:     cron.New(cron.WithLocation(time.UTC), cron.WithSeconds()),
		cfg:      cfg,
		reminder: reminder,
		metrics:  m,
		logger:   logger.Named("scheduler"),
		now:      time.Now,
	}

	if _, err := s.cron.AddFunc(cfg.ReminderSpec, func() { s.RunReminders(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", cfg.ReminderSpec, err)
	}
	return s, nil
}

// RunReminders performs one reminder pass and records its outcome.
func (s *Scheduler) RunReminders(ctx context.Context) {
	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
		defer cancel()
	}

	sent, err := s.reminder.SendReminders(ctx, s.cfg.ReminderAfter, s.now())
	s.metrics.ReminderRun(sent, err)
	if err != nil {
		s.logger.Error("Reminder job failed", zap.Int("sent", sent), zap.Error(err))
		return
	}
	s.logger.Info("Reminder job finished", zap.Int("sent", sent))
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting cron scheduler", zap.String("reminders", s.cfg.ReminderSpec))
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron scheduler stopped")
}
