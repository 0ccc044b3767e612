// Package janitor periodically drops idle sessions on a cron schedule.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/alexschlessinger/companion/internal/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Store is the part of the session store the janitor needs
type Store interface {
	Expire(now time.Time) int
	Len() int
}

type Janitor struct {
	store   Store
	metrics *metrics.Metrics
	now     func() time.Time
	cron    *cron.Cron
}

// New schedules sweeps of store. schedule accepts standard five-field
// expressions and descriptors such as "@every 1m".
func New(schedule string, store Store, m *metrics.Metrics) (*Janitor, error) {
	j := &Janitor{
		store:   store,
		metrics: m,
		now:     time.Now,
		cron:    cron.New(),
	}
	if _, err := j.cron.AddFunc(schedule, func() { j.Sweep() }); err != nil {
		return nil, fmt.Errorf("invalid expiry schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Sweep expires idle sessions once and returns how many were removed
func (j *Janitor) Sweep() int {
	removed := j.store.Expire(j.now())
	j.metrics.SessionsExpiredAdd(removed)
	j.metrics.SetActive(j.store.Len())
	zap.S().Debugw("janitor_sweep", "removed", removed)
	return removed
}

// Run sweeps on schedule until ctx is done, then waits for a running sweep
func (j *Janitor) Run(ctx context.Context) error {
	j.cron.Start()
	<-ctx.Done()
	<-j.cron.Stop().Done()
	return nil
}
