package metrics

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestHistogramStats(t *testing.T) {
	h := NewHistogram(100)
	for i := 1; i <= 5; i++ {
		h.Record(time.Duration(i) * time.Millisecond)
	}

	stats := h.Stats()
	if stats.Count != 5 {
		t.Errorf("expected 5 samples, got %d", stats.Count)
	}
	if stats.Mean != 3 {
		t.Errorf("expected mean 3, got %v", stats.Mean)
	}
	if stats.Min != 1 || stats.Max != 5 {
		t.Errorf("expected min 1 max 5, got %v %v", stats.Min, stats.Max)
	}
	if p := h.Percentile(50); p != 3 {
		t.Errorf("expected p50 3, got %v", p)
	}
	if p := h.Percentile(25); p != 2 {
		t.Errorf("expected p25 2, got %v", p)
	}
	if p := h.Percentile(90); p < 4.5 || p > 4.7 {
		t.Errorf("expected interpolated p90 near 4.6, got %v", p)
	}
}

func TestHistogramEmpty(t *testing.T) {
	h := NewHistogram(0)
	if h.Mean() != 0 || h.Percentile(99) != 0 {
		t.Error("empty histogram should report zeros")
	}
	if h.maxSize != DefaultMaxSamples {
		t.Errorf("expected default size, got %d", h.maxSize)
	}
}

func TestHistogramTrimsOldest(t *testing.T) {
	h := NewHistogram(10)
	for i := 0; i < 11; i++ {
		h.Record(time.Duration(i) * time.Millisecond)
	}
	if h.Count() != 9 {
		t.Fatalf("expected 9 samples after trim, got %d", h.Count())
	}
	if lowest := h.Stats().Min; lowest != 2 {
		t.Errorf("expected oldest samples dropped, min is %v", lowest)
	}

	h.Reset()
	if h.Count() != 0 {
		t.Error("expected empty histogram after reset")
	}
}

func TestPipelineMetrics(t *testing.T) {
	m := NewPipelineMetrics()

	m.RunsStarted.Add(4)
	m.RunsFailed.Add(1)
	m.DecksSummarized.Add(10)
	m.Record(StageCompute, 20*time.Millisecond)
	m.Record(StageCompute, 40*time.Millisecond)
	stop := m.Time(StageExport)
	if d := stop(); d < 0 {
		t.Errorf("negative duration %v", d)
	}
	m.Record(Stage("custom"), time.Millisecond)

	stats := m.GetStats()
	if stats.RunSuccessRate != 75 {
		t.Errorf("expected 75%% success, got %v", stats.RunSuccessRate)
	}
	if got := stats.Latency[StageCompute]; got.Count != 2 || got.Mean != 30 {
		t.Errorf("unexpected compute latency: %+v", got)
	}
	if _, ok := stats.Latency[StageExport]; !ok {
		t.Error("expected export latency recorded")
	}
	if _, ok := stats.Latency[StageLoadCards]; ok {
		t.Error("stages without samples should be omitted")
	}
	if _, ok := stats.Latency["custom"]; !ok {
		t.Error("expected custom stage recorded")
	}

	var buf bytes.Buffer
	if err := stats.WriteSummary(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "compute") || !strings.Contains(out, "decks 10") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	if strings.Index(out, "compute") > strings.Index(out, "export") {
		t.Errorf("stages should print in execution order:\n%s", out)
	}

	m.Reset()
	if s := m.GetStats(); s.RunsStarted != 0 || len(s.Latency) != 0 {
		t.Errorf("expected cleared metrics, got %+v", s)
	}
}

func TestPipelineMetricsConcurrent(t *testing.T) {
	m := NewPipelineMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record(StageLoadGames, time.Millisecond)
				m.GamesProcessed.Add(1)
			}
		}()
	}
	wg.Wait()

	stats := m.GetStats()
	if stats.GamesProcessed != 800 {
		t.Errorf("expected 800 games, got %d", stats.GamesProcessed)
	}
	if stats.Latency[StageLoadGames].Count != 800 {
		t.Errorf("expected 800 samples, got %d", stats.Latency[StageLoadGames].Count)
	}
}
