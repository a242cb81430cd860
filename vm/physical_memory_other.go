//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package vm

// PhysicalMemory holds the contents of every frame, one page per frame
type PhysicalMemory struct {
	data     []byte
	pageSize int
}

// NewPhysicalMemory allocates nframes*pageSize zeroed bytes
func NewPhysicalMemory(nframes, pageSize int) (*PhysicalMemory, error) {
	return &PhysicalMemory{data: make([]byte, nframes*pageSize), pageSize: pageSize}, nil
}

func (pm *PhysicalMemory) Close() error {
	pm.data = nil
	return nil
}
