package vm

import (
	"math/rand"
)

// maxRandomDrawsPerPage bounds the redraw loop. With at least one resident
// page the chance of exhausting npages*64 draws is below e^-64.
const maxRandomDrawsPerPage = 64

// RandomReplacer evicts a uniformly random resident page
type RandomReplacer struct {
	pt  *PageTable
	rng *rand.Rand
}

// NewRandomReplacer creates a random replacer with a fixed seed
func NewRandomReplacer(pt *PageTable, seed int64) *RandomReplacer {
	return &RandomReplacer{
		pt:  pt,
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (r *RandomReplacer) Admit(frame int) {}

// Victim draws pages in [0, npages) until one is resident
func (r *RandomReplacer) Victim() Victim {
	npages := r.pt.PageCount()
	limit := npages * maxRandomDrawsPerPage

	for i := 0; i < limit; i++ {
		page := r.rng.Intn(npages)
		frame, state := r.pt.Entry(page)
		if state != Unmapped {
			return Victim{Page: page, Frame: frame, Dirty: state == ResidentDirty}
		}
	}

	invariantViolation("RandomReplacer.Victim", "no resident page after %d draws", limit)
	return Victim{}
}

func (r *RandomReplacer) Name() Policy {
	return PolicyRandom
}
