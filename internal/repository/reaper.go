package repository

import (
	"context"
	"log"
	"time"
)

// Reaper periodically sweeps terminal records past the retention window.
type Reaper struct {
	store    RecordStore
	interval time.Duration
	logger   *log.Logger
}

func NewReaper(store RecordStore, interval time.Duration, logger *log.Logger) *Reaper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Reaper{store: store, interval: interval, logger: logger}
}

func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := r.store.SweepExpired(ctx, time.Now().UTC())
			if err != nil {
				if r.logger != nil {
					r.logger.Printf("record sweep failed: %v", err)
				}
				continue
			}
			if count > 0 && r.logger != nil {
				r.logger.Printf("record sweep expired %d records", count)
			}
		}
	}
}
