package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	specScanEventPrune = "0 15 3 * * *"
	specSessionGauge   = "*/30 * * * * *"
)

type RetentionTask interface {
	PruneScanEvents()
}

type SessionGaugeTask interface {
	RefreshActiveSessions()
}

type Deps struct {
	RetentionJob    RetentionTask
	SessionGaugeJob SessionGaugeTask
}

// NewScheduler registers housekeeping only. Promotion windows expire by
// timestamp comparison and never need a timer.
func NewScheduler(deps Deps, logger *zap.Logger) *cron.Cron {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))

	if deps.RetentionJob != nil {
		addFunc(c, specScanEventPrune, "scan_events.prune", logger, deps.RetentionJob.PruneScanEvents)
	}
	if deps.SessionGaugeJob != nil {
		addFunc(c, specSessionGauge, "sessions.refresh_gauge", logger, deps.SessionGaugeJob.RefreshActiveSessions)
	}

	return c
}

func addFunc(c *cron.Cron, spec string, name string, logger *zap.Logger, fn func()) {
	if c == nil || fn == nil {
		return
	}

	if _, err := c.AddFunc(spec, func() {
		defer recoverJobPanic(name, logger)
		start := time.Now()
		fn()
		logger.Debug("scheduler job finished", zap.String("job", name), zap.Duration("cost", time.Since(start)))
	}); err != nil {
		logger.Error("register scheduler job failed",
			zap.String("job", name),
			zap.String("spec", spec),
			zap.Error(err),
		)
	}
}

func recoverJobPanic(jobName string, logger *zap.Logger) {
	if logger == nil {
		return
	}

	if recovered := recover(); recovered != nil {
		logger.Error("scheduler job panic recovered",
			zap.String("job", jobName),
			zap.Any("panic", recovered),
		)
	}
}
