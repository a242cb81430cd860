package vm

import (
	"errors"
	"testing"
)

const testPageSize = 512

// memStore is an in-memory BackingStore that counts calls and can fail on demand
type memStore struct {
	blocks    [][]byte
	blockSize int
	reads     int
	writes    int
	failRead  error
	failWrite error
	closed    bool
}

func newMemStore(nblocks, blockSize int) *memStore {
	blocks := make([][]byte, nblocks)
	for i := range blocks {
		blocks[i] = make([]byte, blockSize)
	}
	return &memStore{blocks: blocks, blockSize: blockSize}
}

func (m *memStore) ReadBlock(block int, dst []byte) error {
	if m.failRead != nil {
		return ErrDiskRead("memStore.ReadBlock", block, m.failRead)
	}
	if block < 0 || block >= len(m.blocks) {
		return ErrInvalidPageID("memStore.ReadBlock", block, len(m.blocks))
	}
	m.reads++
	copy(dst, m.blocks[block])
	return nil
}

func (m *memStore) WriteBlock(block int, src []byte) error {
	if m.failWrite != nil {
		return ErrDiskWrite("memStore.WriteBlock", block, m.failWrite)
	}
	if block < 0 || block >= len(m.blocks) {
		return ErrInvalidPageID("memStore.WriteBlock", block, len(m.blocks))
	}
	m.writes++
	copy(m.blocks[block], src)
	return nil
}

func (m *memStore) BlockCount() int { return len(m.blocks) }
func (m *memStore) BlockSize() int  { return m.blockSize }
func (m *memStore) Close() error    { m.closed = true; return nil }

// testRig is a fault handler and address space over an in-memory disk
type testRig struct {
	pt       *PageTable
	memory   *PhysicalMemory
	disk     *memStore
	replacer Replacer
	stats    *Stats
	handler  *FaultHandler
	space    *AddressSpace
}

func newTestRig(t *testing.T, npages, nframes int, policy Policy) *testRig {
	t.Helper()

	pt, err := NewPageTable(npages, nframes)
	if err != nil {
		t.Fatalf("Failed to create page table: %v", err)
	}

	memory, err := NewPhysicalMemory(nframes, testPageSize)
	if err != nil {
		t.Fatalf("Failed to create physical memory: %v", err)
	}
	t.Cleanup(func() { memory.Close() })

	replacer, err := NewReplacer(policy, pt, 42)
	if err != nil {
		t.Fatalf("Failed to create replacer: %v", err)
	}

	disk := newMemStore(npages, testPageSize)
	stats := NewStats()
	handler := NewFaultHandler(pt, memory, disk, replacer, stats, nil)

	space, err := NewAddressSpace(pt, memory, handler.HandleFault)
	if err != nil {
		t.Fatalf("Failed to create address space: %v", err)
	}

	return &testRig{
		pt:       pt,
		memory:   memory,
		disk:     disk,
		replacer: replacer,
		stats:    stats,
		handler:  handler,
		space:    space,
	}
}

// checkInvariants asserts occupancy and injectivity of the page table
func (r *testRig) checkInvariants(t *testing.T) {
	t.Helper()

	if err := r.handler.CheckInvariants(); err != nil {
		t.Fatalf("Invariant check failed: %v", err)
	}

	seen := make(map[int]int)
	for page := 0; page < r.pt.PageCount(); page++ {
		frame, state := r.pt.Entry(page)
		if state == Unmapped {
			continue
		}
		if other, dup := seen[frame]; dup {
			t.Fatalf("Frame %d claimed by pages %d and %d", frame, other, page)
		}
		seen[frame] = page
	}
}

// expectInvariantPanic runs fn and fails unless it panics with an invariant violation
func expectInvariantPanic(t *testing.T, fn func()) {
	t.Helper()

	defer func() {
		t.Helper()
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("Expected invariant violation panic, got %v", r)
		}
		if !errors.Is(err, &VMError{Code: ErrCodeInvariantViolation}) {
			t.Fatalf("Expected invariant violation, got %v", err)
		}
	}()

	fn()
}
