package vm

import (
	"fmt"
	"io"
)

// PageState is the residency state of a virtual page
type PageState uint8

const (
	Unmapped      PageState = iota // Not in any frame
	ResidentClean                  // Loaded, readable only
	ResidentDirty                  // Loaded and written since
)

func (s PageState) String() string {
	switch s {
	case Unmapped:
		return "unmapped"
	case ResidentClean:
		return "clean"
	case ResidentDirty:
		return "dirty"
	default:
		return fmt.Sprintf("PageState(%d)", uint8(s))
	}
}

// Readable reports whether a load can be satisfied without a fault
func (s PageState) Readable() bool { return s != Unmapped }

// Writable reports whether a store can be satisfied without a fault
func (s PageState) Writable() bool { return s == ResidentDirty }

type pageEntry struct {
	frame int
	state PageState
}

// PageTable maps virtual pages to physical frames.
//
// owners is the reverse map: owners[f] is the page resident in frame f, or -1.
// SetEntry keeps both directions in step, so the page->frame mapping stays
// injective and finding the page in a frame is a lookup.
type PageTable struct {
	entries []pageEntry
	owners  []int
}

// NewPageTable creates a table with every page unmapped
func NewPageTable(npages, nframes int) (*PageTable, error) {
	if npages <= 0 {
		return nil, ErrInvalidConfig("NewPageTable", fmt.Sprintf("number of pages must be positive, got %d", npages))
	}
	if nframes <= 0 {
		return nil, ErrInvalidConfig("NewPageTable", fmt.Sprintf("number of frames must be positive, got %d", nframes))
	}

	owners := make([]int, nframes)
	for i := range owners {
		owners[i] = -1
	}

	return &PageTable{
		entries: make([]pageEntry, npages),
		owners:  owners,
	}, nil
}

// PageCount returns the number of virtual pages
func (pt *PageTable) PageCount() int {
	return len(pt.entries)
}

// FrameCount returns the number of physical frames
func (pt *PageTable) FrameCount() int {
	return len(pt.owners)
}

// Entry returns the frame and state of a page. The frame is meaningless
// when the page is unmapped.
func (pt *PageTable) Entry(page int) (int, PageState) {
	if page < 0 || page >= len(pt.entries) {
		panic(ErrInvalidPageID("PageTable.Entry", page, len(pt.entries)))
	}
	e := pt.entries[page]
	return e.frame, e.state
}

// SetEntry updates a page. Setting a page resident in a frame owned by a
// different resident page is an invariant violation.
func (pt *PageTable) SetEntry(page, frame int, state PageState) {
	const op = "PageTable.SetEntry"

	if page < 0 || page >= len(pt.entries) {
		panic(ErrInvalidPageID(op, page, len(pt.entries)))
	}

	old := pt.entries[page]
	if old.state != Unmapped && pt.owners[old.frame] == page {
		pt.owners[old.frame] = -1
	}

	if state == Unmapped {
		pt.entries[page] = pageEntry{}
		return
	}

	if frame < 0 || frame >= len(pt.owners) {
		panic(ErrInvalidFrameID(op, frame, len(pt.owners)))
	}
	if owner := pt.owners[frame]; owner != -1 && owner != page {
		invariantViolation(op, "frame %d already holds page %d, cannot map page %d", frame, owner, page)
	}

	pt.owners[frame] = page
	pt.entries[page] = pageEntry{frame: frame, state: state}
}

// PageAtFrame returns the page resident in a frame
func (pt *PageTable) PageAtFrame(frame int) (int, bool) {
	if frame < 0 || frame >= len(pt.owners) {
		panic(ErrInvalidFrameID("PageTable.PageAtFrame", frame, len(pt.owners)))
	}
	page := pt.owners[frame]
	return page, page != -1
}

// ResidentPages counts pages that are not unmapped
func (pt *PageTable) ResidentPages() int {
	n := 0
	for _, e := range pt.entries {
		if e.state != Unmapped {
			n++
		}
	}
	return n
}

// Print writes one line per page: number, state and frame
func (pt *PageTable) Print(w io.Writer) error {
	for page, e := range pt.entries {
		var err error
		if e.state == Unmapped {
			_, err = fmt.Fprintf(w, "page %06d: %-9s\n", page, e.state)
		} else {
			_, err = fmt.Fprintf(w, "page %06d: %-9s frame %d\n", page, e.state, e.frame)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
