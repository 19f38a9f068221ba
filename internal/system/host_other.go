//go:build !linux

package system

import (
	"fmt"
	"runtime"
)

// DiskUsage is only supported on Linux.
func (Real) DiskUsage(string) (DiskUsage, error) {
	return DiskUsage{}, fmt.Errorf("disk usage is not supported on %s", runtime.GOOS)
}

// MemoryTotal is only supported on Linux.
func (Real) MemoryTotal() (uint64, error) {
	return 0, fmt.Errorf("memory detection is not supported on %s", runtime.GOOS)
}
