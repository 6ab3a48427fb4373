// Package stats aggregates handling latency and body-size metrics for the
// inspection server using HDR histograms.
package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds: 1 microsecond to 1 hour for latency, 1 byte to 1 GiB for
// body sizes, 3 significant figures.
const (
	latencyMin     = 1
	latencyMax     = 3600_000_000
	sizeMin        = 1
	sizeMax        = 1 << 30
	histogramFigs  = 3
	maxTrackedKeys = 64
)

// Engine collects metrics about handled requests.
//
// Counters use atomic operations; histograms are mutex protected. Safe for
// concurrent use by every in-flight request handler.
type Engine struct {
	latencyHist *hdrhistogram.Histogram
	latencyMu   sync.Mutex

	sizeHist *hdrhistogram.Histogram
	sizeMu   sync.Mutex

	totalRequests atomic.Int64
	totalBytes    atomic.Int64

	methodCounts   map[string]*atomic.Int64
	methodCountsMu sync.RWMutex

	startTime   time.Time
	startTimeMu sync.RWMutex
}

// NewEngine creates a metrics engine ready to record.
func NewEngine() *Engine {
	return &Engine{
		latencyHist:  hdrhistogram.New(latencyMin, latencyMax, histogramFigs),
		sizeHist:     hdrhistogram.New(sizeMin, sizeMax, histogramFigs),
		methodCounts: make(map[string]*atomic.Int64),
		startTime:    time.Now(),
	}
}

// Record registers one handled request.
func (e *Engine) Record(method string, latency time.Duration, bodyBytes int64) {
	e.totalRequests.Add(1)
	e.totalBytes.Add(bodyBytes)

	e.latencyMu.Lock()
	e.latencyHist.RecordValue(latency.Microseconds())
	e.latencyMu.Unlock()

	if bodyBytes > 0 {
		e.sizeMu.Lock()
		e.sizeHist.RecordValue(bodyBytes)
		e.sizeMu.Unlock()
	}

	e.methodCounter(method).Add(1)
}

func (e *Engine) methodCounter(method string) *atomic.Int64 {
	e.methodCountsMu.RLock()
	counter, ok := e.methodCounts[method]
	e.methodCountsMu.RUnlock()
	if ok {
		return counter
	}

	e.methodCountsMu.Lock()
	defer e.methodCountsMu.Unlock()

	if counter, ok = e.methodCounts[method]; ok {
		return counter
	}
	// Cap the map so hostile clients can't grow it without bound with
	// made-up methods.
	if len(e.methodCounts) >= maxTrackedKeys {
		counter = &atomic.Int64{}
		return counter
	}
	counter = &atomic.Int64{}
	e.methodCounts[method] = counter
	return counter
}

// LatencySummary holds latency percentiles in milliseconds.
type LatencySummary struct {
	MinMs  float64 `json:"minMs"`
	MeanMs float64 `json:"meanMs"`
	P50Ms  float64 `json:"p50Ms"`
	P90Ms  float64 `json:"p90Ms"`
	P99Ms  float64 `json:"p99Ms"`
	MaxMs  float64 `json:"maxMs"`
}

// SizeSummary holds body-size percentiles in bytes.
type SizeSummary struct {
	Min  int64   `json:"min"`
	Mean float64 `json:"mean"`
	P50  int64   `json:"p50"`
	P90  int64   `json:"p90"`
	P99  int64   `json:"p99"`
	Max  int64   `json:"max"`
}

// Snapshot is a point-in-time view of the collected metrics.
type Snapshot struct {
	UptimeSeconds float64          `json:"uptimeSeconds"`
	TotalRequests int64            `json:"totalRequests"`
	TotalBytes    int64            `json:"totalBytes"`
	ByMethod      map[string]int64 `json:"byMethod"`
	Latency       LatencySummary   `json:"latency"`
	BodySize      SizeSummary      `json:"bodySize"`
}

// Snapshot returns the current metrics. Percentiles are zero until at least
// one request has been recorded.
func (e *Engine) Snapshot() Snapshot {
	e.startTimeMu.RLock()
	started := e.startTime
	e.startTimeMu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(started).Seconds(),
		TotalRequests: e.totalRequests.Load(),
		TotalBytes:    e.totalBytes.Load(),
		ByMethod:      make(map[string]int64),
	}

	e.methodCountsMu.RLock()
	for method, counter := range e.methodCounts {
		snap.ByMethod[method] = counter.Load()
	}
	e.methodCountsMu.RUnlock()

	e.latencyMu.Lock()
	if e.latencyHist.TotalCount() > 0 {
		snap.Latency = LatencySummary{
			MinMs:  microsToMillis(e.latencyHist.Min()),
			MeanMs: e.latencyHist.Mean() / 1000.0,
			P50Ms:  microsToMillis(e.latencyHist.ValueAtQuantile(50)),
			P90Ms:  microsToMillis(e.latencyHist.ValueAtQuantile(90)),
			P99Ms:  microsToMillis(e.latencyHist.ValueAtQuantile(99)),
			MaxMs:  microsToMillis(e.latencyHist.Max()),
		}
	}
	e.latencyMu.Unlock()

	e.sizeMu.Lock()
	if e.sizeHist.TotalCount() > 0 {
		snap.BodySize = SizeSummary{
			Min:  e.sizeHist.Min(),
			Mean: e.sizeHist.Mean(),
			P50:  e.sizeHist.ValueAtQuantile(50),
			P90:  e.sizeHist.ValueAtQuantile(90),
			P99:  e.sizeHist.ValueAtQuantile(99),
			Max:  e.sizeHist.Max(),
		}
	}
	e.sizeMu.Unlock()

	return snap
}

// Reset clears all metrics and restarts the uptime clock.
func (e *Engine) Reset() {
	e.latencyMu.Lock()
	e.latencyHist.Reset()
	e.latencyMu.Unlock()

	e.sizeMu.Lock()
	e.sizeHist.Reset()
	e.sizeMu.Unlock()

	e.totalRequests.Store(0)
	e.totalBytes.Store(0)

	e.methodCountsMu.Lock()
	e.methodCounts = make(map[string]*atomic.Int64)
	e.methodCountsMu.Unlock()

	e.startTimeMu.Lock()
	e.startTime = time.Now()
	e.startTimeMu.Unlock()
}

func microsToMillis(v int64) float64 {
	return float64(v) / 1000.0
}
