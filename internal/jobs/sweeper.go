package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"marketready/internal/store"
)

// Sweeper removes rows that are only kept for auditing the happy path:
// expired invitations and consumed or stale nonces.
type Sweeper struct {
	Store  *store.Store
	Logger *zap.Logger
}

func NewSweeper(st *store.Store, logger *zap.Logger) *Sweeper {
	return &Sweeper{Store: st, Logger: logger.With(zap.String("namespace", "jobs.sweeper"))}
}

// Run executes one sweep. Errors are logged, not returned; the next tick
// retries anyway.
func (s *Sweeper) Run(ctx context.Context) {
	invitations, err := s.Store.PurgeExpiredInvitations(ctx)
	if err != nil {
		s.Logger.Error("failed to purge expired invitations", zap.Error(err))
	} else if invitations > 0 {
		s.Logger.Info("purged expired invitations", zap.Int64("count", invitations))
	}

	nonces, err := s.Store.PurgeStaleNonces(ctx)
	if err != nil {
		s.Logger.Error("failed to purge stale nonces", zap.Error(err))
	} else if nonces > 0 {
		s.Logger.Info("purged stale nonces", zap.Int64("count", nonces))
	}
}

// Schedule registers the hourly sweep on the given cron runner.
func (s *Sweeper) Schedule(c *cron.Cron) error {
	_, err := c.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.Run(ctx)
	})
	return err
}
