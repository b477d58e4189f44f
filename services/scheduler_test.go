package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingJobs struct {
	scans, dispatches int
	limit             int
	err               error
}

func (j *countingJobs) Scan(context.Context) (ScanResult, error) {
	j.scans++
	return ScanResult{Reminders: 1}, j.err
}

func (j *countingJobs) SendPending(_ context.Context, limit int) (BatchResult, error) {
	j.dispatches++
	j.limit = limit
	return BatchResult{}, j.err
}

func TestNewScheduler_RejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(&countingJobs{}, "not a spec", "*/15 * * * *", 50, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule scan")

	_, err = NewScheduler(&countingJobs{}, "0 9 * * *", "every now and then", 50, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule dispatch")
}

func TestScheduler_Runs(t *testing.T) {
	jobs := &countingJobs{}
	s, err := NewScheduler(jobs, "0 9 * * *", "*/15 * * * *", 25, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)

	s.RunScan()
	s.RunDispatch()
	assert.Equal(t, 1, jobs.scans)
	assert.Equal(t, 1, jobs.dispatches)
	assert.Equal(t, 25, jobs.limit)

	jobs.err = errBoom
	s.RunScan()
	s.RunDispatch()
	assert.Equal(t, 2, jobs.scans)

	s.Start()
	s.Stop(context.Background())
}
