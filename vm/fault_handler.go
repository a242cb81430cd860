package vm

import (
	"log/slog"
	"sync"
	"time"
)

// FaultHandler resolves every fault raised by the address space.
//
// A fault on a clean page is a write upgrade: the page becomes dirty in place.
// A fault on an unmapped page is a miss: the page is read into a free frame,
// or into the frame of a victim chosen by the replacer after writing the
// victim back if it is dirty. All state changes happen under one mutex.
type FaultHandler struct {
	pt       *PageTable
	memory   *PhysicalMemory
	disk     BackingStore
	replacer Replacer
	stats    *Stats
	logger   *slog.Logger
	scratch  []byte // Incoming page, copied into the frame once the read succeeds
	mutex    sync.Mutex
}

// NewFaultHandler wires a handler to its collaborators. A nil logger discards output.
func NewFaultHandler(pt *PageTable, memory *PhysicalMemory, disk BackingStore, replacer Replacer, stats *Stats, logger *slog.Logger) *FaultHandler {
	if logger == nil {
		logger = discardLogger()
	}
	return &FaultHandler{
		pt:       pt,
		memory:   memory,
		disk:     disk,
		replacer: replacer,
		stats:    stats,
		logger:   logger,
		scratch:  make([]byte, memory.PageSize()),
	}
}

// HandleFault services a fault on page
func (h *FaultHandler) HandleFault(page int) error {
	const op = "FaultHandler.HandleFault"

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if page < 0 || page >= h.pt.PageCount() {
		return ErrInvalidPageID(op, page, h.pt.PageCount())
	}

	frame, state := h.pt.Entry(page)

	switch state {
	case ResidentClean:
		h.pt.SetEntry(page, frame, ResidentDirty)
		h.stats.recordProtectionFault()
		h.logger.Debug("write upgrade", "page", page, "frame", frame)
		return nil

	case ResidentDirty:
		// Already writable: nothing to do
		return nil
	}

	start := time.Now()
	h.stats.recordPageFault()

	if resident := h.stats.ResidentCount(); resident < h.pt.FrameCount() {
		if err := h.loadFreeFrame(page, resident); err != nil {
			return err
		}
	} else if err := h.replace(page); err != nil {
		return err
	}

	h.stats.recordFaultLatency(time.Since(start))
	return nil
}

// loadFreeFrame reads page into the next unclaimed frame. Frames are claimed
// in order, so the next free frame is the current resident count.
func (h *FaultHandler) loadFreeFrame(page, frame int) error {
	if owner, ok := h.pt.PageAtFrame(frame); ok {
		invariantViolation("FaultHandler.loadFreeFrame", "resident count %d but frame %d holds page %d", frame, frame, owner)
	}

	if err := h.disk.ReadBlock(page, h.memory.Frame(frame)); err != nil {
		return err
	}
	h.stats.recordDiskRead()

	h.pt.SetEntry(page, frame, ResidentClean)
	h.stats.recordResident()
	h.replacer.Admit(frame)

	h.logger.Debug("page fault", "page", page, "frame", frame, "free", true)
	return nil
}

// replace evicts the replacer's victim and reads page into its frame
func (h *FaultHandler) replace(page int) error {
	const op = "FaultHandler.replace"

	victim := h.replacer.Victim()

	frame, state := h.pt.Entry(victim.Page)
	if state == Unmapped || frame != victim.Frame || victim.Page == page {
		invariantViolation(op, "victim page %d frame %d has entry (frame %d, %s)", victim.Page, victim.Frame, frame, state)
	}
	if victim.Dirty != (state == ResidentDirty) {
		invariantViolation(op, "victim page %d reported dirty=%t but is %s", victim.Page, victim.Dirty, state)
	}

	buf := h.memory.Frame(victim.Frame)

	if victim.Dirty {
		if err := h.disk.WriteBlock(victim.Page, buf); err != nil {
			return err
		}
		h.stats.recordDiskWrite()
		// The block now matches the frame
		h.pt.SetEntry(victim.Page, victim.Frame, ResidentClean)
	}

	if err := h.disk.ReadBlock(page, h.scratch); err != nil {
		return err
	}
	h.stats.recordDiskRead()

	h.pt.SetEntry(victim.Page, 0, Unmapped)
	copy(buf, h.scratch)

	h.pt.SetEntry(page, victim.Frame, ResidentClean)
	h.stats.recordEviction()

	h.logger.Debug("page fault",
		"page", page,
		"frame", victim.Frame,
		"evicted", victim.Page,
		"dirty", victim.Dirty,
		"policy", h.replacer.Name(),
	)
	return nil
}

// Stats returns the run statistics
func (h *FaultHandler) Stats() *Stats {
	return h.stats
}

// CheckInvariants verifies that the resident count matches the page table
// and does not exceed the frame count
func (h *FaultHandler) CheckInvariants() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	resident := h.pt.ResidentPages()
	if resident != h.stats.ResidentCount() {
		return NewVMError(ErrCodeInvariantViolation, "FaultHandler.CheckInvariants",
			"resident count disagrees with page table", nil)
	}
	if resident > h.pt.FrameCount() {
		return NewVMError(ErrCodeInvariantViolation, "FaultHandler.CheckInvariants",
			"more resident pages than frames", nil)
	}
	return nil
}
