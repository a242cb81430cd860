package vm

// Direction is the sweep direction of the bidirectional clock hand
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// BidirectionalClockReplacer sweeps frames 0 -> F-1, then F-1 -> 0, and so on.
//
// It uses the same frame scan as FIFO but the hand reverses whenever it lands
// on frame 0 or frame F-1. The hand stays at frame 0 during warm-up, so the
// first sweep starts at the first frame filled.
type BidirectionalClockReplacer struct {
	pt        *PageTable
	hand      int
	direction Direction
}

// NewBidirectionalClockReplacer creates a replacer sweeping forward from frame 0
func NewBidirectionalClockReplacer(pt *PageTable) *BidirectionalClockReplacer {
	return &BidirectionalClockReplacer{
		pt:        pt,
		direction: Forward,
	}
}

func (c *BidirectionalClockReplacer) Admit(frame int) {}

// Victim returns the page in the frame under the hand, then moves the hand
func (c *BidirectionalClockReplacer) Victim() Victim {
	nframes := c.pt.FrameCount()

	for i := 0; i < nframes; i++ {
		if _, ok := c.pt.PageAtFrame(c.hand); ok {
			v := victimAt(c.pt, "BidirectionalClockReplacer.Victim", c.hand)
			c.step()
			return v
		}
		c.step()
	}

	invariantViolation("BidirectionalClockReplacer.Victim", "all %d frames are free", nframes)
	return Victim{}
}

// step moves the hand one frame and reverses at either boundary
func (c *BidirectionalClockReplacer) step() {
	nframes := c.pt.FrameCount()
	c.hand = floorMod(c.hand+int(c.direction), nframes)
	if c.hand == 0 || c.hand == nframes-1 {
		c.direction = -c.direction
	}
}

// Hand returns the next frame considered for eviction
func (c *BidirectionalClockReplacer) Hand() int {
	return c.hand
}

// Direction returns the current sweep direction
func (c *BidirectionalClockReplacer) Direction() Direction {
	return c.direction
}

func (c *BidirectionalClockReplacer) Name() Policy {
	return PolicyCustom
}

// floorMod is a modulo whose result is always in [0, m)
func floorMod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
