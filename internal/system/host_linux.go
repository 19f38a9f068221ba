//go:build linux

package system

import "golang.org/x/sys/unix"

// DiskUsage reports capacity of the filesystem containing path.
func (Real) DiskUsage(path string) (DiskUsage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return DiskUsage{}, err
	}
	bsize := uint64(st.Bsize)
	return DiskUsage{
		Total: st.Blocks * bsize,
		Free:  st.Bavail * bsize,
	}, nil
}

// MemoryTotal reports installed RAM in bytes.
func (Real) MemoryTotal() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, err
	}
	return uint64(info.Totalram) * uint64(info.Unit), nil
}
