// Package metrics records pipeline stage latencies and counters.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// DefaultMaxSamples bounds a histogram created with a non-positive size.
const DefaultMaxSamples = 10000

// Histogram tracks a distribution of duration values and calculates percentiles.
type Histogram struct {
	samples []float64 // duration in milliseconds
	mu      sync.RWMutex
	maxSize int
}

// NewHistogram creates a new histogram with a maximum sample size.
// When maxSize is exceeded, oldest samples are removed.
func NewHistogram(maxSize int) *Histogram {
	if maxSize <= 0 {
		maxSize = DefaultMaxSamples
	}
	return &Histogram{
		samples: make([]float64, 0, min(maxSize, 1024)),
		maxSize: maxSize,
	}
}

// Record adds a duration sample to the histogram.
func (h *Histogram) Record(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples = append(h.samples, float64(d.Microseconds())/1000.0)

	if len(h.samples) > h.maxSize {
		// Drop the oldest fifth so trimming is not done on every sample.
		removeCount := max(h.maxSize/5, 1)
		h.samples = append(h.samples[:0], h.samples[removeCount:]...)
	}
}

// Count returns the number of samples held.
func (h *Histogram) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.samples)
}

// Mean returns the average duration in milliseconds.
func (h *Histogram) Mean() float64 {
	return h.Stats().Mean
}

// Percentile returns the value at percentile p (0-100) in milliseconds,
// interpolating linearly between samples.
func (h *Histogram) Percentile(p float64) float64 {
	h.mu.RLock()
	sorted := h.sortedLocked()
	h.mu.RUnlock()
	return percentile(sorted, p)
}

// Stats summarizes the histogram in a single pass over a sorted copy.
func (h *Histogram) Stats() LatencyStats {
	h.mu.RLock()
	sorted := h.sortedLocked()
	h.mu.RUnlock()

	if len(sorted) == 0 {
		return LatencyStats{}
	}

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return LatencyStats{
		Mean:  sum / float64(len(sorted)),
		P50:   percentile(sorted, 50),
		P95:   percentile(sorted, 95),
		P99:   percentile(sorted, 99),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Count: len(sorted),
	}
}

// Reset clears all samples.
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = h.samples[:0]
}

func (h *Histogram) sortedLocked() []float64 {
	sorted := make([]float64, len(h.samples))
	copy(sorted, h.samples)
	sort.Float64s(sorted)
	return sorted
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	fraction := index - float64(lower)
	return sorted[lower]*(1-fraction) + sorted[upper]*fraction
}
