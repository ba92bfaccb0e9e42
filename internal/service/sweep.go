package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// sweepBatch caps how many expired records are loaded per query
const sweepBatch = 500

// SweepExpired deletes every record that expired before the registry's
// current time, together with its object. It returns how many were removed.
func (r *Registry) SweepExpired(ctx context.Context) (int, error) {
	now := r.now()
	removed := 0

	for {
		entries, err := r.Expired(ctx, now, sweepBatch)
		if err != nil {
			return removed, err
		}

		if len(entries) == 0 {
			break
		}

		for _, e := range entries {
			if err := r.Delete(ctx, e.ID); err != nil {
				return removed, fmt.Errorf("failed to delete expired file %s, %w", e.ID, err)
			}

			removed++
		}

		if len(entries) < sweepBatch {
			break
		}
	}

	if removed > 0 {
		sweptTotal.Add(float64(removed))
	}

	return removed, nil
}

// StartExpirySweep schedules SweepExpired on the given cron spec
// (for example "@every 1h" or "0 3 * * *"). The returned cron is already
// running, call Stop on shutdown.
func StartExpirySweep(spec string, r *Registry) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		n, err := r.SweepExpired(ctx)
		if err != nil {
			zap.L().Error("Expiry sweep failed", zap.Int("removed", n), zap.Error(err))
			return
		}

		zap.L().Debug("Expiry sweep finished", zap.Int("removed", n))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q, %w", spec, err)
	}

	c.Start()
	zap.L().Debug("Expiry sweep attached", zap.String("schedule", spec))

	return c, nil
}
