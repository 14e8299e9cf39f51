// Package scheduler runs periodic lending jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jehnsen/coop-lending/internal/application/dto"
)

// DefaultSweepSpec runs the sweep once a day at midnight UTC.
const DefaultSweepSpec = "@daily"

// SweepRunner is satisfied by *usecase.PenaltySweepUseCase.
type SweepRunner interface {
	Execute(ctx context.Context, req dto.PenaltySweepRequest) (dto.PenaltySweepResponse, error)
}

// PenaltySweepScheduler triggers the penalty sweep for all tenants. A run
// that is still going when the next tick fires makes that tick a no-op.
type PenaltySweepScheduler struct {
	cron    *cron.Cron
	runner  SweepRunner
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewPenaltySweepScheduler parses spec and registers the sweep. timeout
// bounds one run; zero means no bound.
func NewPenaltySweepScheduler(spec string, timeout time.Duration, runner SweepRunner, logger *slog.Logger) (*PenaltySweepScheduler, error) {
	if spec == "" {
		spec = DefaultSweepSpec
	}

	cl := cronLogger{logger: logger}
	s := &PenaltySweepScheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner:  runner,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}

	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid penalty sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing the schedule in the background.
func (s *PenaltySweepScheduler) Start() {
	s.cron.Start()
	s.logger.Info("penalty sweep scheduler started")
}

// Stop halts the schedule and waits for a running sweep, up to ctx.
func (s *PenaltySweepScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("penalty sweep still running at shutdown")
	}
}

// RunOnce sweeps every tenant as of today's UTC date.
func (s *PenaltySweepScheduler) RunOnce(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	now := s.now().UTC()
	asOf := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	resp, err := s.runner.Execute(ctx, dto.PenaltySweepRequest{AsOf: asOf})
	if err != nil {
		s.logger.Error("penalty sweep failed", "as_of", asOf.Format(time.DateOnly), "error", err)
		return
	}
	if resp.Failures > 0 {
		s.logger.Warn("penalty sweep finished with failures",
			"as_of", asOf.Format(time.DateOnly),
			"failures", resp.Failures,
			"loans", resp.LoansScanned,
		)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
