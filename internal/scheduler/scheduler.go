// Package scheduler fires the daily report on a cron schedule in a fixed timezone.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/and161185/kesef/internal/errs"
)

// Reporter sends the daily report for the given moment.
type Reporter interface {
	Send(ctx context.Context, now time.Time) (bool, error)
}

// Scheduler owns one cron entry for the daily report. It never triggers scraping.
type Scheduler struct {
	cron     *cron.Cron
	reporter Reporter
	loc      *time.Location
	timeout  time.Duration
	log      *zap.Logger

	mu    sync.Mutex
	entry cron.EntryID
	spec  string
}

// New builds a stopped scheduler evaluating specs in loc.
func New(reporter Reporter, loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.Named("scheduler")
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger{logger}),
			cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
		),
		reporter: reporter,
		loc:      loc,
		timeout:  2 * time.Minute,
		log:      logger,
	}
}

// Schedule replaces the report entry with spec, a standard five-field cron expression.
func (s *Scheduler) Schedule(spec string) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("%w: cron %q: %v", errs.ErrValidation, spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	s.entry = s.cron.Schedule(sched, cron.FuncJob(s.run))
	s.spec = spec
	s.log.Info("daily report scheduled", zap.String("cron", spec), zap.String("tz", s.loc.String()))
	return nil
}

// ScheduleDaily runs the report every day at hour:minute local time.
func (s *Scheduler) ScheduleDaily(hour, minute int) error {
	return s.Schedule(DailySpec(hour, minute))
}

// DailySpec is the cron expression for a daily run at hour:minute.
func DailySpec(hour, minute int) string {
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

// Spec returns the active cron expression.
func (s *Scheduler) Spec() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// Next returns the next planned run, zero when nothing is scheduled.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	id := s.entry
	s.mu.Unlock()
	if id == 0 {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler and waits for a running report or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	now := time.Now().In(s.loc)
	sent, err := s.reporter.Send(ctx, now)
	switch {
	case err != nil:
		s.log.Error("daily report failed", zap.Error(err))
	case !sent:
		s.log.Warn("daily report not delivered")
	default:
		s.log.Info("daily report sent")
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ l *zap.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().With(zap.Error(err)).Errorw(msg, keysAndValues...)
}
