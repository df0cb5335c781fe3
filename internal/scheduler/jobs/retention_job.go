package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/topmuch/qrsell-sub001/internal/clock"
	"github.com/topmuch/qrsell-sub001/internal/metrics"
	"github.com/topmuch/qrsell-sub001/internal/repository"
)

const defaultScanEventRetention = 30 * 24 * time.Hour

// RetentionJob deletes scan events older than the retention period. Trending
// only looks at a short trailing window, so old events carry no signal.
type RetentionJob struct {
	scanRepo  repository.ScanEventRepository
	retention time.Duration
	clock     clock.Clock
	logger    *zap.Logger
}

func NewRetentionJob(
	scanRepo repository.ScanEventRepository,
	retention time.Duration,
	clk clock.Clock,
	logger *zap.Logger,
) *RetentionJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retention <= 0 {
		retention = defaultScanEventRetention
	}

	return &RetentionJob{
		scanRepo:  scanRepo,
		retention: retention,
		clock:     clock.OrSystem(clk),
		logger:    logger,
	}
}

func (j *RetentionJob) PruneScanEvents() {
	if j == nil || j.scanRepo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cutoff := j.clock.Now().Add(-j.retention)
	deleted, err := j.scanRepo.DeleteBefore(ctx, cutoff)
	if err != nil {
		j.logger.Warn("prune scan events failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return
	}

	metrics.AddScanEventsPruned(deleted)
	if deleted > 0 {
		j.logger.Info("scan events pruned", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
}
