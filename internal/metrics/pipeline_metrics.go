package metrics

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Stage names one timed step of a summary run.
type Stage string

const (
	StageLoadCards Stage = "load_cards"
	StageLoadGames Stage = "load_games"
	StageCompute   Stage = "compute"
	StageExport    Stage = "export"
	StagePersist   Stage = "persist"
	StageReport    Stage = "report"
	StageTotal     Stage = "total"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageLoadCards, StageLoadGames, StageCompute, StageExport, StagePersist, StageReport, StageTotal}

// PipelineMetrics tracks stage latencies and run counters.
type PipelineMetrics struct {
	latency map[Stage]*Histogram

	RunsStarted     atomic.Uint64
	RunsFailed      atomic.Uint64
	GamesProcessed  atomic.Uint64
	DecksSummarized atomic.Uint64
	UnknownCards    atomic.Uint64

	startTime time.Time
	mu        sync.RWMutex
}

// NewPipelineMetrics creates a new metrics collector.
func NewPipelineMetrics() *PipelineMetrics {
	m := &PipelineMetrics{
		latency:   make(map[Stage]*Histogram, len(Stages)),
		startTime: time.Now(),
	}
	for _, s := range Stages {
		m.latency[s] = NewHistogram(1000)
	}
	return m
}

// Record adds a duration sample for a stage. Unknown stages get their own
// histogram on first use.
func (m *PipelineMetrics) Record(stage Stage, d time.Duration) {
	m.mu.RLock()
	h, ok := m.latency[stage]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		if h, ok = m.latency[stage]; !ok {
			h = NewHistogram(1000)
			m.latency[stage] = h
		}
		m.mu.Unlock()
	}
	h.Record(d)
}

// Time starts timing a stage; call the returned func when it ends.
//
//	defer m.Time(metrics.StageCompute)()
func (m *PipelineMetrics) Time(stage Stage) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		d := time.Since(start)
		m.Record(stage, d)
		return d
	}
}

// Latency returns the histogram for a stage, or nil if none was recorded.
func (m *PipelineMetrics) Latency(stage Stage) *Histogram {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latency[stage]
}

// PipelineStats contains the computed statistics from metrics.
type PipelineStats struct {
	Latency map[Stage]LatencyStats `json:"latency"`

	RunsStarted     uint64  `json:"runs_started"`
	RunsFailed      uint64  `json:"runs_failed"`
	RunSuccessRate  float64 `json:"run_success_rate"` // percentage
	GamesProcessed  uint64  `json:"games_processed"`
	DecksSummarized uint64  `json:"decks_summarized"`
	UnknownCards    uint64  `json:"unknown_cards"`

	Uptime string `json:"uptime"`
}

// LatencyStats contains statistics for a latency histogram.
type LatencyStats struct {
	Mean  float64 `json:"mean"` // milliseconds
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// GetStats returns a snapshot of the current statistics.
func (m *PipelineMetrics) GetStats() *PipelineStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &PipelineStats{
		Latency:         make(map[Stage]LatencyStats, len(m.latency)),
		RunsStarted:     m.RunsStarted.Load(),
		RunsFailed:      m.RunsFailed.Load(),
		GamesProcessed:  m.GamesProcessed.Load(),
		DecksSummarized: m.DecksSummarized.Load(),
		UnknownCards:    m.UnknownCards.Load(),
		Uptime:          time.Since(m.startTime).Round(time.Second).String(),
	}
	for stage, h := range m.latency {
		if h.Count() > 0 {
			stats.Latency[stage] = h.Stats()
		}
	}
	if stats.RunsStarted > 0 {
		stats.RunSuccessRate = float64(stats.RunsStarted-stats.RunsFailed) / float64(stats.RunsStarted) * 100
	}
	return stats
}

// WriteSummary prints one line per recorded stage, in execution order.
func (s *PipelineStats) WriteSummary(w io.Writer) error {
	for _, stage := range Stages {
		l, ok := s.Latency[stage]
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "  %-12s %9.1f ms (n=%d, p95 %.1f ms)\n", stage, l.Mean, l.Count, l.P95); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "  games %d, decks %d, unknown cards %d\n", s.GamesProcessed, s.DecksSummarized, s.UnknownCards)
	return err
}

// Reset clears all metrics.
func (m *PipelineMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, h := range m.latency {
		h.Reset()
	}
	m.RunsStarted.Store(0)
	m.RunsFailed.Store(0)
	m.GamesProcessed.Store(0)
	m.DecksSummarized.Store(0)
	m.UnknownCards.Store(0)
	m.startTime = time.Now()
}
