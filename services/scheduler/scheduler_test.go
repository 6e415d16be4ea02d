package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
)

type fakeJobs struct {
	mu        sync.Mutex
	reminders int
	syncs     int
	err       error
}

func (j *fakeJobs) DispatchDueReminders(context.Context) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.reminders++
	return 2, j.err
}

func (j *fakeJobs) SyncAssignmentsToCalendar(context.Context) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.syncs++
	return 0, j.err
}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	infos  []string
}

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Warn(string, ...interface{})  {}
func (l *recordingLogger) Fatal(string, ...interface{}) {}

func (l *recordingLogger) Info(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		conf    core.SchedulerConfig
		wantErr bool
	}{
		{name: "defaults", conf: core.SchedulerConfig{}},
		{name: "cron specs", conf: core.SchedulerConfig{ReminderSpec: "*/5 * * * *", SyncSpec: "@hourly"}},
		{name: "bad reminder spec", conf: core.SchedulerConfig{ReminderSpec: "every minute"}, wantErr: true},
		{name: "bad sync spec", conf: core.SchedulerConfig{SyncSpec: "* * *"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.conf, &fakeJobs{}, &recordingLogger{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, s.cron.Entries(), 2)
		})
	}
}

func TestScheduler_jobs(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		jobs, logger := &fakeJobs{}, &recordingLogger{}
		s, err := New(core.SchedulerConfig{}, jobs, logger)
		require.NoError(t, err)

		s.dispatchReminders()
		s.syncAssignments()

		assert.Equal(t, 1, jobs.reminders)
		assert.Equal(t, 1, jobs.syncs)
		assert.Equal(t, []string{"scheduler: reminders sent"}, logger.infos)
		assert.Empty(t, logger.errors)
	})

	t.Run("failures are logged", func(t *testing.T) {
		jobs, logger := &fakeJobs{err: errors.New("db down")}, &recordingLogger{}
		s, err := New(core.SchedulerConfig{}, jobs, logger)
		require.NoError(t, err)

		s.dispatchReminders()
		s.syncAssignments()

		assert.Equal(t, []string{"scheduler: dispatching reminders", "scheduler: syncing assignments"}, logger.errors)
	})
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := New(core.SchedulerConfig{}, &fakeJobs{}, &recordingLogger{})
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
