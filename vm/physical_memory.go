//go:build linux || darwin || freebsd || netbsd || openbsd

package vm

import (
	"golang.org/x/sys/unix"
)

// PhysicalMemory holds the contents of every frame, one page per frame
type PhysicalMemory struct {
	data     []byte
	pageSize int
}

// NewPhysicalMemory maps nframes*pageSize bytes of anonymous memory
func NewPhysicalMemory(nframes, pageSize int) (*PhysicalMemory, error) {
	data, err := unix.Mmap(-1, 0, nframes*pageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, ErrMemoryMap("NewPhysicalMemory", err)
	}
	return &PhysicalMemory{data: data, pageSize: pageSize}, nil
}

// Close releases the mapping
func (pm *PhysicalMemory) Close() error {
	if pm.data == nil {
		return nil
	}
	err := unix.Munmap(pm.data)
	pm.data = nil
	return err
}
