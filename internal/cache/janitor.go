package cache

import (
	"fmt"
	"sort"

	"github.com/robfig/cron/v3"

	"github.com/wolfman30/sms-router/pkg/logging"
)

// Janitor periodically sweeps registered managers. Correctness never depends
// on it; it only bounds memory held by expired entries.
type Janitor struct {
	cron     *cron.Cron
	sweepers map[string]Sweeper
	logger   *logging.Logger
}

// NewJanitor schedules a sweep of every manager on the given cron schedule
// (for example "@every 1m").
func NewJanitor(schedule string, sweepers map[string]Sweeper, logger *logging.Logger) (*Janitor, error) {
	if logger == nil {
		logger = logging.Default()
	}
	j := &Janitor{
		cron:     cron.New(),
		sweepers: sweepers,
		logger:   logger,
	}
	if _, err := j.cron.AddFunc(schedule, func() { j.SweepAll() }); err != nil {
		return nil, fmt.Errorf("cache: invalid sweep schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start begins the schedule in its own goroutine.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// SweepAll runs one sweep over every manager and returns the total evicted.
func (j *Janitor) SweepAll() int {
	names := make([]string, 0, len(j.sweepers))
	for name := range j.sweepers {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 0
	for _, name := range names {
		removed := j.sweepers[name].Sweep()
		total += removed
		if removed > 0 {
			j.logger.Debug("cache sweep", "cache", name, "evicted", removed, "active", j.sweepers[name].Stats().ActiveKeys)
		}
	}
	return total
}
