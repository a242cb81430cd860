package vm

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Simulator owns every component of one simulation run
type Simulator struct {
	config   *Config
	pt       *PageTable
	memory   *PhysicalMemory
	disk     BackingStore
	replacer Replacer
	stats    *Stats
	handler  *FaultHandler
	space    *AddressSpace
	logger   *slog.Logger
}

// NewSimulator builds a simulator from a validated configuration.
// The virtual disk is created fresh and removed by Close.
func NewSimulator(config *Config, logger *slog.Logger) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = discardLogger()
	}

	policy, err := ParsePolicy(config.Policy)
	if err != nil {
		return nil, err
	}

	pt, err := NewPageTable(config.Pages, config.Frames)
	if err != nil {
		return nil, err
	}

	disk, err := openBackingStore(config)
	if err != nil {
		return nil, err
	}

	memory, err := NewPhysicalMemory(config.Frames, config.PageSize)
	if err != nil {
		disk.Close()
		return nil, err
	}

	replacer, err := NewReplacer(policy, pt, config.Seed)
	if err != nil {
		memory.Close()
		disk.Close()
		return nil, err
	}

	stats := NewStats()
	handler := NewFaultHandler(pt, memory, disk, replacer, stats, logger)

	space, err := NewAddressSpace(pt, memory, handler.HandleFault)
	if err != nil {
		memory.Close()
		disk.Close()
		return nil, err
	}

	logger.Info("simulator ready",
		"pages", config.Pages,
		"frames", config.Frames,
		"page_size", config.PageSize,
		"policy", policy,
		"backing_store", config.BackingStore,
		"compression", config.Compression,
	)

	return &Simulator{
		config:   config,
		pt:       pt,
		memory:   memory,
		disk:     disk,
		replacer: replacer,
		stats:    stats,
		handler:  handler,
		space:    space,
		logger:   logger,
	}, nil
}

func openBackingStore(config *Config) (BackingStore, error) {
	var (
		disk BackingStore
		err  error
	)

	switch config.BackingStore {
	case "mmap":
		disk, err = NewMmapDiskManager(config.DiskFile, config.Pages, config.PageSize)
	default:
		disk, err = NewDiskManager(config.DiskFile, config.Pages, config.PageSize)
	}
	if err != nil {
		return nil, err
	}

	algorithm, err := ParseCompressionType(config.Compression)
	if err != nil {
		disk.Close()
		return nil, err
	}
	if algorithm == CompressionNone {
		return disk, nil
	}

	compressed, err := NewCompressedStore(disk, algorithm)
	if err != nil {
		disk.Close()
		return nil, err
	}
	return compressed, nil
}

// Run executes a workload against virtual memory
func (s *Simulator) Run(workload func(mem Memory)) error {
	if err := s.space.Run(workload); err != nil {
		return fmt.Errorf("workload aborted: %w", err)
	}

	if err := s.handler.CheckInvariants(); err != nil {
		return err
	}

	if s.config.EnableMetrics {
		s.stats.LogStats(s.logger)
		if cs, ok := s.disk.(*CompressedStore); ok {
			cstats := cs.Stats()
			s.logger.Info("compression statistics",
				"blocks_written", cstats.TotalPages,
				"compressed", cstats.CompressedPages,
				"ratio", cstats.GetCompressionRatio(),
			)
		}
	}
	return nil
}

// Memory returns the virtual memory view
func (s *Simulator) Memory() Memory {
	return s.space
}

// Stats returns the run statistics
func (s *Simulator) Stats() *Stats {
	return s.stats
}

// PageTable returns the page table
func (s *Simulator) PageTable() *PageTable {
	return s.pt
}

// Replacer returns the active replacement policy
func (s *Simulator) Replacer() Replacer {
	return s.replacer
}

// Report writes the fault and disk counters
func (s *Simulator) Report(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"Status ---------------------------\n"+
			"Page Faults: %d\n"+
			"Disk Reads: %d\n"+
			"Disk Writes: %d\n"+
			"----------------------------------\n",
		s.stats.PageFaults(), s.stats.DiskReads(), s.stats.DiskWrites())
	return err
}

// Close releases physical memory and removes the virtual disk
func (s *Simulator) Close() error {
	return errors.Join(s.memory.Close(), s.disk.Close())
}
