package vm

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// diskFactories opens each file-backed BackingStore implementation
func diskFactories() map[string]func(path string, nblocks, blockSize int) (BackingStore, error) {
	return map[string]func(string, int, int) (BackingStore, error){
		"file": func(path string, nblocks, blockSize int) (BackingStore, error) {
			return NewDiskManager(path, nblocks, blockSize)
		},
		"mmap": func(path string, nblocks, blockSize int) (BackingStore, error) {
			return NewMmapDiskManager(path, nblocks, blockSize)
		},
	}
}

func TestDiskManagerReadWriteBlock(t *testing.T) {
	for name, open := range diskFactories() {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "disk")

			dm, err := open(path, 4, testPageSize)
			if err != nil {
				t.Skipf("Backing store unavailable: %v", err)
			}
			defer dm.Close()

			if dm.BlockCount() != 4 || dm.BlockSize() != testPageSize {
				t.Errorf("Expected 4 blocks of %d bytes, got %d of %d", testPageSize, dm.BlockCount(), dm.BlockSize())
			}

			data1 := make([]byte, testPageSize)
			data2 := make([]byte, testPageSize)
			for i := range data1 {
				data1[i] = byte(i % 256)
				data2[i] = byte((i + 128) % 256)
			}

			if err := dm.WriteBlock(1, data1); err != nil {
				t.Fatalf("Failed to write block 1: %v", err)
			}
			if err := dm.WriteBlock(3, data2); err != nil {
				t.Fatalf("Failed to write block 3: %v", err)
			}

			buf := make([]byte, testPageSize)
			if err := dm.ReadBlock(1, buf); err != nil {
				t.Fatalf("Failed to read block 1: %v", err)
			}
			if !bytes.Equal(buf, data1) {
				t.Error("Block 1 data mismatch")
			}

			if err := dm.ReadBlock(3, buf); err != nil {
				t.Fatalf("Failed to read block 3: %v", err)
			}
			if !bytes.Equal(buf, data2) {
				t.Error("Block 3 data mismatch")
			}

			// Never-written blocks read as zeros
			if err := dm.ReadBlock(0, buf); err != nil {
				t.Fatalf("Failed to read block 0: %v", err)
			}
			if !bytes.Equal(buf, make([]byte, testPageSize)) {
				t.Error("Expected fresh block to be zeroed")
			}
		})
	}
}

func TestDiskManagerBounds(t *testing.T) {
	for name, open := range diskFactories() {
		t.Run(name, func(t *testing.T) {
			dm, err := open(filepath.Join(t.TempDir(), "disk"), 2, testPageSize)
			if err != nil {
				t.Skipf("Backing store unavailable: %v", err)
			}
			defer dm.Close()

			buf := make([]byte, testPageSize)
			if err := dm.ReadBlock(2, buf); err == nil {
				t.Error("Expected error reading past the last block")
			}
			if err := dm.WriteBlock(-1, buf); err == nil {
				t.Error("Expected error writing a negative block")
			}
			if err := dm.WriteBlock(0, buf[:10]); err == nil {
				t.Error("Expected error writing a short buffer")
			}
		})
	}
}

func TestDiskManagerFreshAndRemoved(t *testing.T) {
	for name, open := range diskFactories() {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "disk")

			// Stale content from an earlier run must not survive
			if err := os.WriteFile(path, bytes.Repeat([]byte{0xFF}, 4*testPageSize), 0644); err != nil {
				t.Fatalf("Failed to seed file: %v", err)
			}

			dm, err := open(path, 2, testPageSize)
			if err != nil {
				t.Skipf("Backing store unavailable: %v", err)
			}

			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("Disk file missing: %v", err)
			}
			if info.Size() != 2*testPageSize {
				t.Errorf("Expected file size %d, got %d", 2*testPageSize, info.Size())
			}

			buf := make([]byte, testPageSize)
			if err := dm.ReadBlock(0, buf); err != nil {
				t.Fatalf("Failed to read block: %v", err)
			}
			if buf[0] != 0 {
				t.Error("Expected truncated disk to read zeros")
			}

			if err := dm.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Errorf("Expected disk file removed on close, stat err = %v", err)
			}

			// Closing twice is harmless
			if err := dm.Close(); err != nil {
				t.Errorf("Second close failed: %v", err)
			}
		})
	}
}

func TestNewDiskManagerErrors(t *testing.T) {
	if _, err := NewDiskManager(filepath.Join(t.TempDir(), "disk"), 0, testPageSize); err == nil {
		t.Error("Expected error for zero blocks")
	}

	_, err := NewDiskManager(filepath.Join(t.TempDir(), "missing", "disk"), 4, testPageSize)
	if !IsErrorCode(err, ErrCodeDiskCreateFailed) {
		t.Errorf("Expected disk create error, got %v", err)
	}
}
