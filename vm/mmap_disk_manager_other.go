//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package vm

import (
	"errors"
)

// MmapDiskManager is unavailable on this platform
type MmapDiskManager struct {
	DiskManager
}

// NewMmapDiskManager reports that memory-mapped disks need mmap support
func NewMmapDiskManager(path string, nblocks, blockSize int) (*MmapDiskManager, error) {
	return nil, ErrDiskCreate("NewMmapDiskManager", path, errors.New("mmap backing store requires linux or a BSD-derived host"))
}
