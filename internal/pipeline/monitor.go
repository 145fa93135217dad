package pipeline

import (
	"runtime"
)

// RuntimeStats is a point-in-time view of process resources, reported next to
// the validation counters.
type RuntimeStats struct {
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	HeapInuseBytes uint64 `json:"heap_inuse_bytes"`
	SysBytes       uint64 `json:"sys_bytes"`
	NumGC          uint32 `json:"num_gc"`
	Goroutines     int    `json:"goroutines"`
	MaxProcs       int    `json:"gomaxprocs"`
}

// ReadRuntimeStats samples the Go runtime. It stops the world briefly.
func ReadRuntimeStats() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return RuntimeStats{
		HeapAllocBytes: m.HeapAlloc,
		HeapInuseBytes: m.HeapInuse,
		SysBytes:       m.Sys,
		NumGC:          m.NumGC,
		Goroutines:     runtime.NumGoroutine(),
		MaxProcs:       runtime.GOMAXPROCS(0),
	}
}
