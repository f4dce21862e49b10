package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// messagePruner is the subset of store.MessageStore that RetentionJob requires.
type messagePruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob deletes chat messages older than the retention window on a
// cron schedule.
type RetentionJob struct {
	messages  messagePruner
	retention time.Duration
	cron      *cron.Cron
	logger    *slog.Logger
	now       func() time.Time
}

func NewRetentionJob(messages messagePruner, retention time.Duration, schedule string, logger *slog.Logger) (*RetentionJob, error) {
	cl := cronLogger{logger: logger}
	j := &RetentionJob{
		messages:  messages,
		retention: retention,
		logger:    logger,
		now:       time.Now,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	if _, err := j.cron.AddFunc(schedule, func() {
		if _, err := j.RunOnce(context.Background()); err != nil {
			logger.Error("chat retention prune failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	return j, nil
}

// RunOnce prunes immediately and returns the number of messages removed.
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.retention)
	n, err := j.messages.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.logger.Info("pruned chat messages", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

func (j *RetentionJob) Start() { j.cron.Start() }

// Stop halts the schedule and waits for a running prune or ctx.
func (j *RetentionJob) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
