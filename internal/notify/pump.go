package notify

import (
	"context"
	"time"

	"github.com/toeserve/presenced/internal/metrics"
	"github.com/toeserve/presenced/internal/store"
)

// Pump is the persistence pump (spec §4.8): a cooperative background task
// that sleeps cfg.PumpInterval, drains up to cfg.PumpBatchSize dirty users,
// and calls UserService.SaveBatch. It never exits on its own; Pump returns
// only when ctx is cancelled, after performing one final drain so no
// mutation is lost on shutdown (spec §5, §9).
func (c *Core) Pump(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.drainOnce(ctx)
		case <-ctx.Done():
			c.drainOnce(context.Background())
			return
		}
	}
}

func (c *Core) drainOnce(ctx context.Context) {
	dirty := c.drainDirty(c.cfg.PumpBatchSize)
	if len(dirty) == 0 {
		return
	}

	batch := make([]store.UserSave, 0, len(dirty))
	for uuid, detail := range dirty {
		user, err := c.users.Get(ctx, uuid)
		if err != nil || user == nil {
			c.log.WithError(err).WithField("uuid", uuid).Warn("pump: failed to resolve dirty user")
			continue
		}
		batch = append(batch, store.UserSave{User: user, Detail: detail})
	}

	if err := c.users.SaveBatch(ctx, batch); err != nil {
		c.log.WithError(err).Error("pump: save_batch failed")
		metrics.PumpErrorsTotal.Inc()
		return
	}
	metrics.PumpDrainsTotal.Inc()
}
