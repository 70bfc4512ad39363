package metrics

import (
	"time"

	"clip-worker/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics
type Stats struct {
	ScratchFiles      int
	ScratchBytes      int64
	TranscoderRunning int
	DBFileSizes       map[string]int64
	DBOpenConnections int
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
	// Collect immediately on start
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

	stats := c.statsProvider.GetStats()

	ScratchDirFiles.Set(float64(stats.ScratchFiles))
	ScratchDirBytes.Set(float64(stats.ScratchBytes))
	TranscoderProcessesRunning.Set(float64(stats.TranscoderRunning))
	DBConnectionsOpen.Set(float64(stats.DBOpenConnections))
	for file, size := range stats.DBFileSizes {
		DBSizeBytes.WithLabelValues(file).Set(float64(size))
	}

	logging.Debug("Metrics collected: scratch_files=%d, scratch_bytes=%d, transcoders=%d",
		stats.ScratchFiles, stats.ScratchBytes, stats.TranscoderRunning)
}
