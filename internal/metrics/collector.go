package metrics

import (
	"context"
	"time"

	"audio-merger/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats(ctx context.Context) (Stats, error)
}

// connectionReporter is implemented by providers that also publish
// connection pool gauges.
type connectionReporter interface {
	UpdateDBMetrics()
}

// Stats holds the current storage statistics
type Stats struct {
	Sessions     int
	Clips        int
	Merges       int
	StorageBytes int64
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := c.statsProvider.GetStats(ctx)
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	ActiveSessions.Set(float64(stats.Sessions))
	StorageBytes.Set(float64(stats.StorageBytes))
	if r, ok := c.statsProvider.(connectionReporter); ok {
		r.UpdateDBMetrics()
	}

	logging.Debug("Metrics collected: sessions=%d, clips=%d, merges=%d, bytes=%d",
		stats.Sessions, stats.Clips, stats.Merges, stats.StorageBytes)
}
