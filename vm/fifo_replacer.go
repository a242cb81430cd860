package vm

// FIFOReplacer evicts frames in the order they were filled.
//
// The hand moves over frame indices, not pages. It advances once per frame
// claimed during warm-up, which brings it back to frame 0 when memory first
// fills, and once per eviction afterwards.
type FIFOReplacer struct {
	pt   *PageTable
	hand int
}

// NewFIFOReplacer creates a FIFO replacer with the hand at frame 0
func NewFIFOReplacer(pt *PageTable) *FIFOReplacer {
	return &FIFOReplacer{pt: pt}
}

// Admit advances the hand past a newly filled frame
func (f *FIFOReplacer) Admit(frame int) {
	f.hand = (f.hand + 1) % f.pt.FrameCount()
}

// Victim returns the page in the frame under the hand, skipping free frames
func (f *FIFOReplacer) Victim() Victim {
	nframes := f.pt.FrameCount()

	for i := 0; i < nframes; i++ {
		if _, ok := f.pt.PageAtFrame(f.hand); ok {
			v := victimAt(f.pt, "FIFOReplacer.Victim", f.hand)
			f.hand = (f.hand + 1) % nframes
			return v
		}
		f.hand = (f.hand + 1) % nframes
	}

	invariantViolation("FIFOReplacer.Victim", "all %d frames are free", nframes)
	return Victim{}
}

// Hand returns the next frame considered for eviction
func (f *FIFOReplacer) Hand() int {
	return f.hand
}

func (f *FIFOReplacer) Name() Policy {
	return PolicyFIFO
}
