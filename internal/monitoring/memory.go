package monitoring

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// MemoryStats is one runtime memory sample
type MemoryStats struct {
	HeapAlloc     uint64    `json:"heap_alloc_bytes"`
	HeapSys       uint64    `json:"heap_sys_bytes"`
	HeapInuse     uint64    `json:"heap_inuse_bytes"`
	HeapObjects   uint64    `json:"heap_objects"`
	Mallocs       uint64    `json:"mallocs"`
	GCCPUFraction float64   `json:"gc_cpu_fraction"`
	NumGC         uint32    `json:"num_gc"`
	NumGoroutine  int       `json:"num_goroutine"`
	Timestamp     time.Time `json:"timestamp"`
}

// MemoryMonitor samples heap and goroutine counts on an interval and keeps a
// short history. A growing heap after long uptimes usually means the analytics
// cache or a shot list is holding more than it should.
type MemoryMonitor struct {
	interval   time.Duration
	maxHistory int
	warnHeap   uint64 // heap size that triggers a warning log
	logger     *Logger

	mu      sync.RWMutex
	history []MemoryStats
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryMonitor creates a monitor that warns once the heap passes warnHeap bytes.
// warnHeap 0 disables the warning.
func NewMemoryMonitor(interval time.Duration, warnHeap uint64, logger *Logger) *MemoryMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &MemoryMonitor{
		interval:   interval,
		maxHistory: 120,
		warnHeap:   warnHeap,
		logger:     logger,
		stop:       make(chan struct{}),
	}
}

// Start takes a first sample and keeps sampling in a goroutine until Stop
func (mm *MemoryMonitor) Start() {
	mm.Collect()

	go func() {
		ticker := time.NewTicker(mm.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				mm.Collect()
			case <-mm.stop:
				return
			}
		}
	}()
}

// Stop ends sampling. Safe to call more than once.
func (mm *MemoryMonitor) Stop() {
	mm.once.Do(func() { close(mm.stop) })
}

// Collect records one sample and returns it
func (mm *MemoryMonitor) Collect() MemoryStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	sample := MemoryStats{
		HeapAlloc:     mem.HeapAlloc,
		HeapSys:       mem.HeapSys,
		HeapInuse:     mem.HeapInuse,
		HeapObjects:   mem.HeapObjects,
		Mallocs:       mem.Mallocs,
		GCCPUFraction: mem.GCCPUFraction,
		NumGC:         mem.NumGC,
		NumGoroutine:  runtime.NumGoroutine(),
		Timestamp:     time.Now(),
	}

	mm.mu.Lock()
	mm.history = append(mm.history, sample)
	if len(mm.history) > mm.maxHistory {
		mm.history = mm.history[len(mm.history)-mm.maxHistory:]
	}
	mm.mu.Unlock()

	if mm.warnHeap > 0 && sample.HeapAlloc > mm.warnHeap && mm.logger != nil {
		mm.logger.SystemLogger("memory_pressure", fmt.Sprintf(
			"heap:%dMB threshold:%dMB goroutines:%d",
			sample.HeapAlloc/(1024*1024), mm.warnHeap/(1024*1024), sample.NumGoroutine))
	}

	return sample
}

// GetStats reports the latest sample plus rates derived from the history
func (mm *MemoryMonitor) GetStats() map[string]interface{} {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	if len(mm.history) == 0 {
		return map[string]interface{}{"history_count": 0}
	}

	latest := mm.history[len(mm.history)-1]
	oldest := mm.history[0]

	heapUtilization := float64(0)
	if latest.HeapSys > 0 {
		heapUtilization = float64(latest.HeapInuse) / float64(latest.HeapSys)
	}

	mallocRate := float64(0)
	if span := latest.Timestamp.Sub(oldest.Timestamp).Seconds(); span > 0 {
		mallocRate = float64(latest.Mallocs-oldest.Mallocs) / span
	}

	return map[string]interface{}{
		"heap_alloc_mb":       latest.HeapAlloc / (1024 * 1024),
		"heap_inuse_mb":       latest.HeapInuse / (1024 * 1024),
		"heap_objects":        latest.HeapObjects,
		"num_gc":              latest.NumGC,
		"num_goroutine":       latest.NumGoroutine,
		"gc_cpu_fraction":     latest.GCCPUFraction,
		"heap_utilization":    heapUtilization,
		"malloc_rate_per_sec": mallocRate,
		"history_count":       len(mm.history),
		"sampled_at":          latest.Timestamp.Format(time.RFC3339),
	}
}
