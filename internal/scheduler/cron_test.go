package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotrisk/internal/config"
	"plotrisk/internal/types"
)

type recordingDispatcher struct {
	mu       sync.Mutex
	payloads []JobPayload
	triggers []string
	err      error
}

func (d *recordingDispatcher) Run(ctx context.Context, p JobPayload) (*JobResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, p)
	d.triggers = append(d.triggers, types.GetTrigger(ctx))
	if d.err != nil {
		return nil, d.err
	}
	return &JobResult{Task: p.Task}, nil
}

func TestEntriesFromConfig(t *testing.T) {
	cfg := config.JobsConfig{
		ScheduleForecast:  "0 * * * *",
		ScheduleArchive:   "",
		ScheduleRecompute: "30 6 * * *",
		RecomputeMode:     "PROACTIVE",
	}

	entries := EntriesFromConfig(cfg)
	require.Len(t, entries, 2)
	assert.Equal(t, TaskWeatherUpdate, entries[0].Payload.Task)
	assert.Equal(t, TaskRiskRecompute, entries[1].Payload.Task)
	assert.Equal(t, types.ModeProactive, entries[1].Payload.Mode)
}

func TestScheduler_AddRejectsBadEntries(t *testing.T) {
	s := NewScheduler(&recordingDispatcher{}, ist, 0, nil)

	_, err := s.Add(Entry{Spec: "not a cron", Payload: JobPayload{Task: TaskDailyArchive}})
	assert.Error(t, err)

	_, err = s.Add(Entry{Spec: "@hourly", Payload: JobPayload{Task: "dance"}})
	assert.Equal(t, types.ErrCodeValidationInvalidTask, types.CodeOf(err))

	assert.Empty(t, s.Entries())
}

func TestScheduler_FiresWithSchedulerTrigger(t *testing.T) {
	d := &recordingDispatcher{}
	s := NewScheduler(d, ist, time.Minute, nil)

	id, err := s.Add(Entry{Spec: "0 1 * * *", Payload: JobPayload{Task: TaskDailyArchive}})
	require.NoError(t, err)

	s.cron.Entry(id).WrappedJob.Run()

	require.Len(t, d.payloads, 1)
	assert.Equal(t, TaskDailyArchive, d.payloads[0].Task)
	assert.Equal(t, TriggerScheduler, d.triggers[0])
}

func TestScheduler_FireSwallowsErrors(t *testing.T) {
	d := &recordingDispatcher{err: types.NewAppError(types.ErrCodeConflictJobRunning, "busy", nil)}
	s := NewScheduler(d, ist, 0, nil)
	id, err := s.Add(Entry{Spec: "@every 1h", Payload: JobPayload{Task: TaskWeatherUpdate}})
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.cron.Entry(id).WrappedJob.Run() })

	d.err = errors.New("provider down")
	assert.NotPanics(t, func() { s.cron.Entry(id).WrappedJob.Run() })
	assert.Len(t, d.payloads, 2)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(&recordingDispatcher{}, time.UTC, 0, nil)
	_, err := s.Add(Entry{Spec: "@daily", Payload: JobPayload{Task: TaskRiskRecompute}})
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
