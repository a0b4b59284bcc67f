// Package meshstats tracks routing counters and periodically reports them.
package meshstats

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/meshbus/meshbus/internal/meshlog"
)

// Counters are atomic routing counters shared by a bus's hot path.
type Counters struct {
	Routed     atomic.Uint64
	Broadcasts atomic.Uint64
	Dropped    atomic.Uint64
}

// Snapshot is a point-in-time copy of Counters suitable for printing.
type Snapshot struct {
	Routed     uint64
	Broadcasts uint64
	Dropped    uint64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Routed:     c.Routed.Load(),
		Broadcasts: c.Broadcasts.Load(),
		Dropped:    c.Dropped.Load(),
	}
}

// StartReporter logs a snapshot of c every interval until ctx is done.
func StartReporter(ctx context.Context, name string, c *Counters, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s := c.Snapshot()
				meshlog.Debug("%s: routed=%d broadcasts=%d dropped=%d", name, s.Routed, s.Broadcasts, s.Dropped)
			}
		}
	}()
}
