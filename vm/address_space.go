package vm

import (
	"fmt"
	"sync"
)

// Memory is the byte-addressable view of virtual memory given to workloads
type Memory interface {
	Load(addr int) byte
	Store(addr int, b byte)
	Len() int
}

// FaultFunc services a fault on a page
type FaultFunc func(page int) error

// faultAbort carries a fault handler error out of Load or Store
type faultAbort struct {
	err error
}

// AddressSpace translates virtual addresses through a page table.
//
// A load needs the page readable and a store needs it writable. Otherwise the
// fault function is called and translation retried. A store to an unmapped
// page therefore faults twice: once to load it clean, once to make it dirty.
type AddressSpace struct {
	pt       *PageTable
	memory   *PhysicalMemory
	pageSize int
	onFault  FaultFunc
	mutex    sync.Mutex
}

// NewAddressSpace creates an address space of pt.PageCount() pages
func NewAddressSpace(pt *PageTable, memory *PhysicalMemory, onFault FaultFunc) (*AddressSpace, error) {
	if memory.FrameCount() != pt.FrameCount() {
		return nil, ErrInvalidConfig("NewAddressSpace",
			fmt.Sprintf("page table has %d frames, memory has %d", pt.FrameCount(), memory.FrameCount()))
	}
	return &AddressSpace{
		pt:       pt,
		memory:   memory,
		pageSize: memory.PageSize(),
		onFault:  onFault,
	}, nil
}

// Len returns the size of virtual memory in bytes
func (as *AddressSpace) Len() int {
	return as.pt.PageCount() * as.pageSize
}

// PageSize returns the page size in bytes
func (as *AddressSpace) PageSize() int {
	return as.pageSize
}

// Load reads the byte at addr
func (as *AddressSpace) Load(addr int) byte {
	as.mutex.Lock()
	defer as.mutex.Unlock()

	frame, offset := as.translate(addr, false)
	return as.memory.Frame(frame)[offset]
}

// Store writes the byte at addr
func (as *AddressSpace) Store(addr int, b byte) {
	as.mutex.Lock()
	defer as.mutex.Unlock()

	frame, offset := as.translate(addr, true)
	as.memory.Frame(frame)[offset] = b
}

// translate resolves addr to a frame and offset, faulting as needed.
// A load is satisfied after at most one fault, a store after at most two.
func (as *AddressSpace) translate(addr int, write bool) (int, int) {
	const op = "AddressSpace.translate"

	if addr < 0 || addr >= as.Len() {
		panic(NewVMError(ErrCodeInvalidPageID, op, fmt.Sprintf("address %d out of range [0, %d)", addr, as.Len()), nil))
	}

	page, offset := addr/as.pageSize, addr%as.pageSize

	maxFaults := 1
	if write {
		maxFaults = 2
	}

	for faults := 0; ; faults++ {
		frame, state := as.pt.Entry(page)
		if (write && state.Writable()) || (!write && state.Readable()) {
			return frame, offset
		}
		if faults == maxFaults {
			invariantViolation(op, "page %d still %s after %d faults", page, state, faults)
		}
		if err := as.onFault(page); err != nil {
			panic(faultAbort{err: err})
		}
	}
}

// Run calls fn with the address space and returns the first fault handler
// error, which aborts fn. Invariant violations are not recovered.
func (as *AddressSpace) Run(fn func(mem Memory)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			abort, ok := r.(faultAbort)
			if !ok {
				panic(r)
			}
			err = abort.err
		}
	}()

	fn(as)
	return nil
}
