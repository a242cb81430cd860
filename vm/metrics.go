package vm

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Histogram tracks latency distribution with percentile support
type Histogram struct {
	samples []float64 // Latencies in microseconds
	mu      sync.RWMutex
	maxSize int // Maximum samples to retain
	sorted  bool
}

// NewHistogram creates a new histogram with a max sample size
func NewHistogram(maxSize int) *Histogram {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &Histogram{
		samples: make([]float64, 0, maxSize),
		maxSize: maxSize,
		sorted:  true,
	}
}

// Record adds a latency sample (in microseconds)
func (h *Histogram) Record(latencyUs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// At capacity: drop the oldest sample
	if len(h.samples) >= h.maxSize {
		copy(h.samples, h.samples[1:])
		h.samples = h.samples[:len(h.samples)-1]
	}

	h.samples = append(h.samples, latencyUs)
	h.sorted = false
}

// Percentile calculates the given percentile (0-100)
func (h *Histogram) Percentile(p float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) == 0 {
		return 0
	}

	if !h.sorted {
		sort.Float64s(h.samples)
		h.sorted = true
	}

	rank := (p / 100.0) * float64(len(h.samples)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	if lower == upper {
		return h.samples[lower]
	}

	// Linear interpolation between lower and upper
	weight := rank - float64(lower)
	return h.samples[lower]*(1-weight) + h.samples[upper]*weight
}

// Mean calculates the average latency
func (h *Histogram) Mean() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.samples) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range h.samples {
		sum += v
	}
	return sum / float64(len(h.samples))
}

// Count returns the number of samples
func (h *Histogram) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.samples)
}

// HistogramSnapshot holds percentile statistics at a point in time
type HistogramSnapshot struct {
	Count int
	Mean  float64
	P50   float64
	P95   float64
	P99   float64
}

// Snapshot captures current histogram statistics
func (h *Histogram) Snapshot() HistogramSnapshot {
	return HistogramSnapshot{
		Count: h.Count(),
		Mean:  h.Mean(),
		P50:   h.Percentile(50),
		P95:   h.Percentile(95),
		P99:   h.Percentile(99),
	}
}

// Stats holds the counters of one simulation run.
//
// residentCount is the authoritative frame occupancy: the fault handler
// claims a free frame only while it is below the frame count.
type Stats struct {
	pageFaults       atomic.Uint64
	diskReads        atomic.Uint64
	diskWrites       atomic.Uint64
	residentCount    atomic.Int64
	evictions        atomic.Uint64
	protectionFaults atomic.Uint64

	faultLatency *Histogram // Time spent servicing a miss

	startTime time.Time
}

// NewStats creates a zeroed statistics record
func NewStats() *Stats {
	return &Stats{
		faultLatency: NewHistogram(10000),
		startTime:    time.Now(),
	}
}

func (s *Stats) recordPageFault()       { s.pageFaults.Add(1) }
func (s *Stats) recordDiskRead()        { s.diskReads.Add(1) }
func (s *Stats) recordDiskWrite()       { s.diskWrites.Add(1) }
func (s *Stats) recordEviction()        { s.evictions.Add(1) }
func (s *Stats) recordProtectionFault() { s.protectionFaults.Add(1) }
func (s *Stats) recordResident()        { s.residentCount.Add(1) }

func (s *Stats) recordFaultLatency(d time.Duration) {
	s.faultLatency.Record(float64(d.Microseconds()))
}

// Getters

func (s *Stats) PageFaults() uint64 {
	return s.pageFaults.Load()
}

func (s *Stats) DiskReads() uint64 {
	return s.diskReads.Load()
}

func (s *Stats) DiskWrites() uint64 {
	return s.diskWrites.Load()
}

func (s *Stats) ResidentCount() int {
	return int(s.residentCount.Load())
}

func (s *Stats) Evictions() uint64 {
	return s.evictions.Load()
}

// ProtectionFaults counts clean pages upgraded to dirty on first write
func (s *Stats) ProtectionFaults() uint64 {
	return s.protectionFaults.Load()
}

// FaultLatency returns a snapshot of miss service latency
func (s *Stats) FaultLatency() HistogramSnapshot {
	return s.faultLatency.Snapshot()
}

// LogStats logs the run summary using structured logging
func (s *Stats) LogStats(logger *slog.Logger) {
	latency := s.FaultLatency()

	logger.Info("Simulation statistics",
		slog.Group("faults",
			slog.Uint64("page_faults", s.PageFaults()),
			slog.Uint64("protection_faults", s.ProtectionFaults()),
			slog.Uint64("evictions", s.Evictions()),
			slog.Int("resident", s.ResidentCount()),
		),
		slog.Group("disk",
			slog.Uint64("reads", s.DiskReads()),
			slog.Uint64("writes", s.DiskWrites()),
		),
		slog.Group("fault_latency_us",
			slog.Int("count", latency.Count),
			slog.Float64("mean", latency.Mean),
			slog.Float64("p50", latency.P50),
			slog.Float64("p95", latency.P95),
			slog.Float64("p99", latency.P99),
		),
		slog.Duration("elapsed", time.Since(s.startTime)),
	)
}
