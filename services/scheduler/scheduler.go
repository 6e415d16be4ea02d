// Package scheduler runs the periodic calendar jobs of the API process.
package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/services/metrics"
)

const (
	DefaultReminderSpec = "@every 1m"
	DefaultSyncSpec     = "@every 15m"

	jobTimeout = 5 * time.Minute
)

// Jobs are the calendar operations run on a schedule.
type Jobs interface {
	DispatchDueReminders(ctx context.Context) (int, error)
	SyncAssignmentsToCalendar(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron   *cron.Cron
	jobs   Jobs
	logger core.Logger
}

// New registers the reminder and sync jobs. Empty specs fall back to the defaults.
func New(conf core.SchedulerConfig, jobs Jobs, logger core.Logger) (*Scheduler, error) {
	clog := cronLogger{logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		),
		jobs:   jobs,
		logger: logger,
	}

	reminderSpec, syncSpec := conf.ReminderSpec, conf.SyncSpec
	if reminderSpec == "" {
		reminderSpec = DefaultReminderSpec
	}
	if syncSpec == "" {
		syncSpec = DefaultSyncSpec
	}
	if _, err := s.cron.AddFunc(reminderSpec, s.dispatchReminders); err != nil {
		return nil, errors.Wrapf(err, "scheduling reminders (%q)", reminderSpec)
	}
	if _, err := s.cron.AddFunc(syncSpec, s.syncAssignments); err != nil {
		return nil, errors.Wrapf(err, "scheduling assignment sync (%q)", syncSpec)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("scheduler: starting")
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("scheduler: stopping")
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for running jobs")
	}
}

func (s *Scheduler) dispatchReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.jobs.DispatchDueReminders(ctx)
	metrics.RemindersSent.Add(float64(n))
	if err != nil {
		s.logger.Error("scheduler: dispatching reminders", err)
		return
	}
	if n > 0 {
		s.logger.Info("scheduler: reminders sent", map[string]interface{}{"count": n})
	}
}

func (s *Scheduler) syncAssignments() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.jobs.SyncAssignmentsToCalendar(ctx)
	metrics.SyncedEvents.Add(float64(n))
	if err != nil {
		s.logger.Error("scheduler: syncing assignments", err)
		return
	}
	if n > 0 {
		s.logger.Info("scheduler: assignment events created", map[string]interface{}{"count": n})
	}
}

// cronLogger adapts core.Logger to cron.Logger
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{err}, keysAndValues...)...)
}
