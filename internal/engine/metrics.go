package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	GenerateRequests     atomic.Int64
	TranscriptRequests   atomic.Int64
	PrimaryFetches       atomic.Int64
	LookupFetches        atomic.Int64
	SyntheticTranscripts atomic.Int64
	LLMCalls             atomic.Int64
	LLMErrors            atomic.Int64
	PrimaryFallbacks     atomic.Int64
	LookupFallbacks      atomic.Int64
	TimestampFallbacks   atomic.Int64
	TimestampRepairs     atomic.Int64
	SummaryFallbacks     atomic.Int64
}

// Registry holds the Prometheus collectors served on /metrics.
var Registry = prometheus.NewRegistry()

var stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "ytstamps",
	Name:      "stage_duration_seconds",
	Help:      "Latency of pipeline stages.",
	Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
}, []string{"stage", "outcome"})

var fallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ytstamps",
	Name:      "fallbacks_total",
	Help:      "Recovered failures by layer.",
}, []string{"layer"})

func init() {
	Registry.MustRegister(stageDuration, fallbacksTotal)
}

// ObserveStage records the latency of a stage that started at start.
func ObserveStage(stage string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	stageDuration.WithLabelValues(stage, outcome).Observe(time.Since(start).Seconds())
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"generate_requests":     metrics.GenerateRequests.Load(),
		"transcript_requests":   metrics.TranscriptRequests.Load(),
		"primary_fetches":       metrics.PrimaryFetches.Load(),
		"lookup_fetches":        metrics.LookupFetches.Load(),
		"synthetic_transcripts": metrics.SyntheticTranscripts.Load(),
		"llm_calls":             metrics.LLMCalls.Load(),
		"llm_errors":            metrics.LLMErrors.Load(),
		"primary_fallbacks":     metrics.PrimaryFallbacks.Load(),
		"lookup_fallbacks":      metrics.LookupFallbacks.Load(),
		"timestamp_fallbacks":   metrics.TimestampFallbacks.Load(),
		"timestamp_repairs":     metrics.TimestampRepairs.Load(),
		"summary_fallbacks":     metrics.SummaryFallbacks.Load(),
		"cache_hits":            hits,
		"cache_misses":          misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"generate_requests", "transcript_requests",
		"primary_fetches", "lookup_fetches", "synthetic_transcripts",
		"llm_calls", "llm_errors",
		"primary_fallbacks", "lookup_fallbacks",
		"timestamp_fallbacks", "timestamp_repairs", "summary_fallbacks",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// IncrFallback counts a recovered failure for layer.
func IncrFallback(layer string) {
	fallbacksTotal.WithLabelValues(layer).Inc()
	switch layer {
	case LayerPrimary:
		metrics.PrimaryFallbacks.Add(1)
	case LayerLookup:
		metrics.LookupFallbacks.Add(1)
	case LayerSynthetic:
		metrics.SyntheticTranscripts.Add(1)
	case LayerTimestampsLLM, LayerTimestampParse:
		metrics.TimestampFallbacks.Add(1)
	case LayerTimestampFix:
		metrics.TimestampRepairs.Add(1)
	case LayerSummaryLLM:
		metrics.SummaryFallbacks.Add(1)
	}
}

// Incrementors for sources/ and stampserver/ sub-packages.
func IncrGenerate()           { metrics.GenerateRequests.Add(1) }
func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrPrimaryFetch()       { metrics.PrimaryFetches.Add(1) }
func IncrLookupFetch()        { metrics.LookupFetches.Add(1) }
