package util

import "runtime"

// GetHeapAllocMB returns the live heap in MiB, as reported on /health.
func GetHeapAllocMB() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc / 1024 / 1024
}
