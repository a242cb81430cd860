package vm

// Frame returns the bytes of one frame, at offset frame*pageSize
func (pm *PhysicalMemory) Frame(frame int) []byte {
	offset := frame * pm.pageSize
	return pm.data[offset : offset+pm.pageSize : offset+pm.pageSize]
}

// FrameCount returns the number of frames in memory
func (pm *PhysicalMemory) FrameCount() int {
	return len(pm.data) / pm.pageSize
}

// PageSize returns the frame size in bytes
func (pm *PhysicalMemory) PageSize() int {
	return pm.pageSize
}
