package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/topmuch/qrsell-sub001/internal/clock"
	"github.com/topmuch/qrsell-sub001/internal/metrics"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

type SessionGaugeJob struct {
	sessionRepo repository.ScanSessionRepository
	clock       clock.Clock
	logger      *zap.Logger
}

func NewSessionGaugeJob(sessionRepo repository.ScanSessionRepository, clk clock.Clock, logger *zap.Logger) *SessionGaugeJob {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionGaugeJob{
		sessionRepo: sessionRepo,
		clock:       clock.OrSystem(clk),
		logger:      logger,
	}
}

func (j *SessionGaugeJob) RefreshActiveSessions() {
	if j == nil || j.sessionRepo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := j.sessionRepo.CountActive(ctx, j.clock.Now())
	if err != nil {
		j.logger.Warn("count active sessions failed", zap.Error(err))
		return
	}
	metrics.SetActiveSessions(count)
}
