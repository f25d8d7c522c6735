package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gartstein/companyhub/internal/company/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type MockReminder struct {
	mock.Mock
}

func (m *MockReminder) SendReminders(ctx context.Context, olderThan time.Duration, now time.Time) (int, error) {
	args := m.Called(ctx, olderThan, now)
	return args.Int(0), args.Error(1)
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(Config{ReminderSpec: "every day"}, new(MockReminder), nil, zaptest.NewLogger(t))
	assert.Error(t, err)

	// five field expressions need the seconds field
	_, err = NewScheduler(Config{ReminderSpec: "0 0 * * *"}, new(MockReminder), nil, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestRunReminders(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	reminder := new(MockReminder)
	reminder.On("SendReminders", mock.Anything, 24*time.Hour, fixed).Return(3, nil).Once()
	reminder.On("SendReminders", mock.Anything, 24*time.Hour, fixed).Return(1, errors.New("db down")).Once()

	core, logs := observer.New(zap.InfoLevel)
	m := metrics.New()
	s, err := NewScheduler(Config{ReminderSpec: "0 0 0 * * *", ReminderAfter: 24 * time.Hour, JobTimeout: time.Second}, reminder, m, zap.New(core))
	require.NoError(t, err)
	s.now = func() time.Time { return fixed }

	s.RunReminders(context.Background())
	s.RunReminders(context.Background())

	reminder.AssertExpectations(t)
	assert.Equal(t, float64(4), testutil.ToFloat64(m.RemindersSentTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReminderRunsTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReminderRunsTotal.WithLabelValues("error")))
	assert.Equal(t, 1, logs.FilterMessage("Reminder job finished").Len())
	assert.Equal(t, 1, logs.FilterMessage("Reminder job failed").Len())
}

func TestSchedulerFiresJob(t *testing.T) {
	done := make(chan struct{}, 1)
	reminder := new(MockReminder)
	reminder.On("SendReminders", mock.Anything, time.Hour, mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case done <- struct{}{}:
			default:
			}
		}).
		Return(0, nil)

	s, err := NewScheduler(Config{ReminderSpec: "* * * * * *", ReminderAfter: time.Hour}, reminder, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("reminder job did not run")
	}
}
