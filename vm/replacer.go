package vm

// Policy names a page replacement algorithm
type Policy string

const (
	PolicyRandom Policy = "rand"
	PolicyFIFO   Policy = "fifo"
	PolicyCustom Policy = "custom" // Bidirectional clock
)

// ParsePolicy validates a policy name
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(name); p {
	case PolicyRandom, PolicyFIFO, PolicyCustom:
		return p, nil
	default:
		return "", ErrUnknownPolicy("ParsePolicy", name)
	}
}

// Victim is the resident page chosen for eviction
type Victim struct {
	Page  int
	Frame int
	Dirty bool // Must be written back before the frame is reused
}

// Replacer interface for page replacement policies.
// Implementations only select; the fault handler does all I/O and accounting.
type Replacer interface {
	// Admit is called when a free frame is claimed during warm-up
	Admit(frame int)

	// Victim selects a resident page to evict and advances scan state.
	// Only called when every frame is occupied.
	Victim() Victim

	// Name returns the policy name
	Name() Policy
}

// NewReplacer creates a replacer for the given policy over a page table
func NewReplacer(policy Policy, pt *PageTable, seed int64) (Replacer, error) {
	switch policy {
	case PolicyRandom:
		return NewRandomReplacer(pt, seed), nil
	case PolicyFIFO:
		return NewFIFOReplacer(pt), nil
	case PolicyCustom:
		return NewBidirectionalClockReplacer(pt), nil
	default:
		return nil, ErrUnknownPolicy("NewReplacer", string(policy))
	}
}

// victimAt builds the victim for a frame that must be owned
func victimAt(pt *PageTable, op string, frame int) Victim {
	page, ok := pt.PageAtFrame(frame)
	if !ok {
		invariantViolation(op, "frame %d has no resident page", frame)
	}
	mapped, state := pt.Entry(page)
	if state == Unmapped || mapped != frame {
		invariantViolation(op, "page %d in frame %d has entry (frame %d, %s)", page, frame, mapped, state)
	}
	return Victim{Page: page, Frame: frame, Dirty: state == ResidentDirty}
}
