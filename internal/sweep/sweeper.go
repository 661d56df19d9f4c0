package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Expirer releases holds past their TTL; satisfied by the reservation
// service.
type Expirer interface {
	ExpireDue(ctx context.Context, limit int) (int, error)
}

// Sweeper periodically expires stale holds. Each release goes through the
// same per-variant transaction path as any other mutator; the sweeper has
// no shortcut into the counters.
type Sweeper struct {
	expirer   Expirer
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

func New(expirer Expirer, interval time.Duration, batchSize int, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		expirer:   expirer,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := s.expirer.ExpireDue(ctx, s.batchSize)
			if err != nil {
				s.logger.Warn("expiry sweep failed", zap.Error(err))
				continue
			}
			if released > 0 {
				s.logger.Info("expired stale holds", zap.Int("released", released))
			}
		}
	}
}
