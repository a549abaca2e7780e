package scheduler

import (
	"context"
	"time"

	"github.com/linkboard/linkboard/internal/logger"
)

const (
	// DefaultRetentionMaxAge is the age past which activity records
	// become prunable.
	DefaultRetentionMaxAge = 90 * 24 * time.Hour

	// DefaultRetentionKeep is how many recent records per list survive
	// pruning regardless of age.
	DefaultRetentionKeep = 50
)

// PruneStore is the persistence surface retention sweeps.
type PruneStore interface {
	PruneActivities(ctx context.Context, cutoff time.Time, keep int) (int64, error)
}

// RetentionSweeper periodically prunes old activity records. The ledger
// stays append-only from the application's point of view; only this
// sweeper ever removes rows.
type RetentionSweeper struct {
	store    PruneStore
	logger   logger.Logger
	interval time.Duration
	maxAge   time.Duration
	keep     int
	stopCh   chan struct{}
}

// NewRetentionSweeper creates a retention sweeper
func NewRetentionSweeper(
	store PruneStore,
	log logger.Logger,
	interval time.Duration,
	maxAge time.Duration,
	keep int,
) *RetentionSweeper {
	if maxAge <= 0 {
		maxAge = DefaultRetentionMaxAge
	}
	if keep <= 0 {
		keep = DefaultRetentionKeep
	}

	return &RetentionSweeper{
		store:    store,
		logger:   log,
		interval: interval,
		maxAge:   maxAge,
		keep:     keep,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (rs *RetentionSweeper) Start(ctx context.Context) error {
	// Run immediately on start
	if err := rs.Sweep(ctx); err != nil {
		rs.logger.Warn("initial retention sweep failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(rs.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := rs.Sweep(ctx); err != nil {
					rs.logger.Error("retention sweep failed",
						logger.Error(err))
				}
			case <-rs.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper
func (rs *RetentionSweeper) Stop() {
	close(rs.stopCh)
}

// Sweep prunes activity records older than maxAge, always keeping the
// most recent records of each list.
func (rs *RetentionSweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-rs.maxAge)

	pruned, err := rs.store.PruneActivities(ctx, cutoff, rs.keep)
	if err != nil {
		return err
	}

	if pruned > 0 {
		rs.logger.Info("retention sweep completed",
			logger.Int("pruned", int(pruned)),
			logger.String("cutoff", cutoff.Format(time.RFC3339)))
	} else {
		rs.logger.Debug("no activity records to prune")
	}
	return nil
}
