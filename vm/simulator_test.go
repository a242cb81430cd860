package vm

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testConfig(t *testing.T, pages, frames int, policy Policy) *Config {
	t.Helper()
	config := DefaultConfig()
	config.Pages = pages
	config.Frames = frames
	config.PageSize = testPageSize
	config.Policy = string(policy)
	config.DiskFile = filepath.Join(t.TempDir(), "vdisk")
	return config
}

// scanWorkload writes every byte then reads it back twice
func scanWorkload(t *testing.T) func(mem Memory) {
	return func(mem Memory) {
		for i := 0; i < mem.Len(); i++ {
			mem.Store(i, byte(i%251))
		}
		for pass := 0; pass < 2; pass++ {
			for i := 0; i < mem.Len(); i++ {
				if got := mem.Load(i); got != byte(i%251) {
					t.Fatalf("Address %d: expected %d, got %d", i, byte(i%251), got)
				}
			}
		}
	}
}

func TestSimulatorRun(t *testing.T) {
	for _, policy := range []Policy{PolicyRandom, PolicyFIFO, PolicyCustom} {
		t.Run(string(policy), func(t *testing.T) {
			sim, err := NewSimulator(testConfig(t, 12, 4, policy), nil)
			if err != nil {
				t.Fatalf("Failed to create simulator: %v", err)
			}
			defer sim.Close()

			if err := sim.Run(scanWorkload(t)); err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			stats := sim.Stats()
			if stats.PageFaults() < 12 {
				t.Errorf("Expected at least one fault per page, got %d", stats.PageFaults())
			}
			if stats.DiskReads() != stats.PageFaults() {
				t.Errorf("Expected one read per miss, got %d reads for %d faults", stats.DiskReads(), stats.PageFaults())
			}
			if stats.DiskWrites() > stats.Evictions() {
				t.Errorf("More writes (%d) than evictions (%d)", stats.DiskWrites(), stats.Evictions())
			}
			if sim.PageTable().ResidentPages() != 4 {
				t.Errorf("Expected 4 resident pages, got %d", sim.PageTable().ResidentPages())
			}
			if sim.Replacer().Name() != policy {
				t.Errorf("Expected policy %s, got %s", policy, sim.Replacer().Name())
			}
		})
	}
}

func TestSimulatorAllResident(t *testing.T) {
	sim, err := NewSimulator(testConfig(t, 4, 4, PolicyFIFO), nil)
	if err != nil {
		t.Fatalf("Failed to create simulator: %v", err)
	}
	defer sim.Close()

	if err := sim.Run(scanWorkload(t)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats := sim.Stats()
	if stats.PageFaults() != 4 || stats.DiskReads() != 4 || stats.DiskWrites() != 0 {
		t.Errorf("Expected 4/4/0, got %d/%d/%d", stats.PageFaults(), stats.DiskReads(), stats.DiskWrites())
	}
}

func TestSimulatorBackingStores(t *testing.T) {
	tests := []struct {
		name         string
		backingStore string
		compression  string
	}{
		{"file", "file", "none"},
		{"file lz4", "file", "lz4"},
		{"file snappy", "file", "snappy"},
		{"mmap", "mmap", "none"},
		{"mmap lz4", "mmap", "lz4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig(t, 10, 3, PolicyCustom)
			config.BackingStore = tt.backingStore
			config.Compression = tt.compression

			sim, err := NewSimulator(config, nil)
			if err != nil {
				if tt.backingStore == "mmap" && IsErrorCode(err, ErrCodeDiskCreateFailed) {
					t.Skipf("mmap unavailable: %v", err)
				}
				t.Fatalf("Failed to create simulator: %v", err)
			}
			defer sim.Close()

			if err := sim.Run(scanWorkload(t)); err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if sim.Stats().DiskWrites() == 0 {
				t.Error("Expected dirty pages written back")
			}
		})
	}
}

func TestSimulatorReport(t *testing.T) {
	sim, err := NewSimulator(testConfig(t, 4, 2, PolicyFIFO), nil)
	if err != nil {
		t.Fatalf("Failed to create simulator: %v", err)
	}
	defer sim.Close()

	err = sim.Run(func(mem Memory) {
		for page := 0; page < 4; page++ {
			mem.Store(page*testPageSize, 1)
		}
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var buf bytes.Buffer
	if err := sim.Report(&buf); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	want := "Status ---------------------------\n" +
		"Page Faults: 4\n" +
		"Disk Reads: 4\n" +
		"Disk Writes: 2\n" +
		"----------------------------------\n"
	if buf.String() != want {
		t.Errorf("Unexpected report:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestSimulatorLogsMetrics(t *testing.T) {
	config := testConfig(t, 6, 2, PolicyFIFO)
	config.EnableMetrics = true
	config.Compression = "snappy"

	var logs bytes.Buffer
	sim, err := NewSimulator(config, NewLogger(&logs, "info"))
	if err != nil {
		t.Fatalf("Failed to create simulator: %v", err)
	}
	defer sim.Close()

	if err := sim.Run(scanWorkload(t)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out := logs.String()
	for _, want := range []string{"component=virtmem", "Simulation statistics", "compression statistics"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in logs: %s", want, out)
		}
	}
}

func TestSimulatorCloseRemovesDisk(t *testing.T) {
	config := testConfig(t, 4, 2, PolicyRandom)

	sim, err := NewSimulator(config, nil)
	if err != nil {
		t.Fatalf("Failed to create simulator: %v", err)
	}

	if _, err := os.Stat(config.DiskFile); err != nil {
		t.Fatalf("Expected disk file to exist: %v", err)
	}

	if err := sim.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(config.DiskFile); !os.IsNotExist(err) {
		t.Errorf("Expected disk file removed, stat err = %v", err)
	}
}

func TestNewSimulatorErrors(t *testing.T) {
	config := testConfig(t, 4, 2, PolicyFIFO)
	config.Policy = "lru"
	if _, err := NewSimulator(config, nil); !IsErrorCode(err, ErrCodeUnknownPolicy) {
		t.Errorf("Expected unknown policy error, got %v", err)
	}

	config = testConfig(t, 4, 2, PolicyFIFO)
	config.DiskFile = filepath.Join(t.TempDir(), "missing", "vdisk")
	if _, err := NewSimulator(config, nil); !IsErrorCode(err, ErrCodeDiskCreateFailed) {
		t.Errorf("Expected disk create error, got %v", err)
	}
}

func TestSimulatorRunAbortsOnDiskError(t *testing.T) {
	sim, err := NewSimulator(testConfig(t, 4, 1, PolicyFIFO), nil)
	if err != nil {
		t.Fatalf("Failed to create simulator: %v", err)
	}
	defer sim.Close()

	// Pull the disk out from under the simulator
	boom := errors.New("unplugged")
	sim.handler.disk = &memStore{blocks: make([][]byte, 4), blockSize: testPageSize, failRead: boom}

	err = sim.Run(func(mem Memory) { mem.Load(0) })
	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped disk error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "workload aborted") {
		t.Errorf("Unexpected error text: %v", err)
	}
}
