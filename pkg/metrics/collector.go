package metrics

import (
	"time"
)

// Source is the subset of the registry the collector needs. It is satisfied
// by *registry.Registry; declared here instead of imported to keep pkg/metrics
// free of a dependency on pkg/registry.
type Source interface {
	ServiceStateCounts() map[string]int
	TaskStateCounts() map[string]int
	SubscriberCount() int
}

// Collector periodically samples a Source and updates the gauge metrics.
type Collector struct {
	source Source
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(source Source) *Collector {
	return &Collector{
		source: source,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics every 15 seconds.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	for state, count := range c.source.ServiceStateCounts() {
		ServicesTotal.WithLabelValues(state).Set(float64(count))
	}

	for state, count := range c.source.TaskStateCounts() {
		TasksTotal.WithLabelValues(state).Set(float64(count))
	}

	SubscribersTotal.Set(float64(c.source.SubscriberCount()))
}
