package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jehnsen/coop-lending/internal/application/dto"
)

type mockSweepRunner struct {
	mu          sync.Mutex
	executeFunc func(ctx context.Context, req dto.PenaltySweepRequest) (dto.PenaltySweepResponse, error)
	requests    []dto.PenaltySweepRequest
}

func (m *mockSweepRunner) Execute(ctx context.Context, req dto.PenaltySweepRequest) (dto.PenaltySweepResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.executeFunc != nil {
		return m.executeFunc(ctx, req)
	}
	return dto.PenaltySweepResponse{}, nil
}

func (m *mockSweepRunner) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewPenaltySweepScheduler_InvalidSpec(t *testing.T) {
	_, err := NewPenaltySweepScheduler("every tuesday-ish", 0, &mockSweepRunner{}, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid penalty sweep schedule")
}

func TestPenaltySweepScheduler_RunOnceUsesUTCDate(t *testing.T) {
	runner := &mockSweepRunner{}
	s, err := NewPenaltySweepScheduler("", 0, runner, discardLogger())
	require.NoError(t, err)

	manila := time.FixedZone("PHT", 8*3600)
	s.now = func() time.Time { return time.Date(2026, 3, 2, 5, 30, 0, 0, manila) }

	s.RunOnce(context.Background())

	require.Len(t, runner.requests, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), runner.requests[0].AsOf)
	assert.Empty(t, runner.requests[0].TenantID, "sweeps every tenant")
}

func TestPenaltySweepScheduler_RunOnceAppliesTimeout(t *testing.T) {
	var deadline time.Time
	runner := &mockSweepRunner{
		executeFunc: func(ctx context.Context, _ dto.PenaltySweepRequest) (dto.PenaltySweepResponse, error) {
			deadline, _ = ctx.Deadline()
			return dto.PenaltySweepResponse{}, errors.New("db down")
		},
	}
	s, err := NewPenaltySweepScheduler("@hourly", time.Minute, runner, discardLogger())
	require.NoError(t, err)

	s.RunOnce(context.Background())
	assert.False(t, deadline.IsZero())
}

func TestPenaltySweepScheduler_StartFiresAndStops(t *testing.T) {
	runner := &mockSweepRunner{}
	s, err := NewPenaltySweepScheduler("@every 1s", 0, runner, discardLogger())
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return runner.calls() > 0 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
