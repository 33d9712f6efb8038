package profiler

import (
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Stats is one reporting window of a Profiler.
type Stats struct {
	Programs int
	Failures int
	Calls    int

	// Rate is programs transpiled per second over the window.
	Rate float64

	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// Profiler tracks transpile throughput and memory statistics.
// Outputs stats to the logger at a configurable interval. Safe for use by concurrent
// batch workers.
type Profiler struct {
	mu sync.Mutex

	logger         *slog.Logger
	programs       int
	failures       int
	calls          int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second and the logger to slog.Default().
//
// Parameters:
//   - logger: the destination of the periodic stats, may be nil
//   - interval: the reporting interval, zero for the default
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(logger *slog.Logger, interval time.Duration) *Profiler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		logger:         logger,
		lastTime:       time.Now(),
		updateInterval: interval,
	}
}

// Record should be called once per transpiled program.
// Logs performance statistics when the update interval has elapsed.
//
// Parameters:
//   - calls: the number of library calls the program inlined
//   - err: the program's transpile error, nil on success
//
// Returns:
//   - bool: true if stats were logged by this call, false otherwise
func (p *Profiler) Record(calls int, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.programs++
	p.calls += calls
	if err != nil {
		p.failures++
	}
	if time.Since(p.lastTime) < p.updateInterval {
		return false
	}
	p.report()
	return true
}

// Flush logs and resets whatever the current window has accumulated, regardless of the
// interval. Call it once a batch completes.
//
// Returns:
//   - Stats: the flushed window
func (p *Profiler) Flush() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.report()
}

func (p *Profiler) report() Stats {
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime).Seconds()
	if elapsed <= 0 {
		elapsed = 1e-9
	}

	runtime.ReadMemStats(&p.memStats)
	// Alloc: live heap. TotalAlloc: cumulative, tracks churn. Sys: process footprint.
	s := Stats{
		Programs:    p.programs,
		Failures:    p.failures,
		Calls:       p.calls,
		Rate:        float64(p.programs) / elapsed,
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
		GCCount:     p.memStats.NumGC,
	}

	if s.GCCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		s.LastPauseUs = p.memStats.PauseNs[(s.GCCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if s.GCCount-startIdx > 256 {
			startIdx = s.GCCount - 256
		}
		for i := startIdx; i < s.GCCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > s.MaxPauseUs {
				s.MaxPauseUs = pause
			}
		}
	}

	p.logger.Info("profiler",
		slog.Int("programs", s.Programs),
		slog.Int("failures", s.Failures),
		slog.Int("calls_inlined", s.Calls),
		slog.Float64("programs_per_sec", s.Rate),
		slog.Float64("heap_mb", s.HeapMB),
		slog.Float64("alloc_rate_mb_s", s.AllocRateMB),
		slog.Uint64("gc", uint64(s.GCCount)),
		slog.Uint64("gc_last_pause_us", s.LastPauseUs),
		slog.Uint64("gc_max_pause_us", s.MaxPauseUs),
		slog.Float64("sys_mb", s.SysMB),
	)

	p.programs, p.failures, p.calls = 0, 0, 0
	p.lastTime = currentTime
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return s
}
