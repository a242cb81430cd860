package vm

import (
	"fmt"
	"os"
	"sync"
)

// BackingStore is a block device with one block per virtual page.
// A block written on eviction is exactly what a later read returns.
type BackingStore interface {
	ReadBlock(block int, dst []byte) error
	WriteBlock(block int, src []byte) error
	BlockCount() int
	BlockSize() int
	Close() error
}

// DiskManager stores blocks in a regular file sized nblocks*blockSize.
// The file lives for one run: Close removes it.
type DiskManager struct {
	file      *os.File
	path      string
	nblocks   int
	blockSize int
	mutex     sync.Mutex
}

// NewDiskManager creates a fresh virtual disk of nblocks zeroed blocks
func NewDiskManager(path string, nblocks, blockSize int) (*DiskManager, error) {
	const op = "NewDiskManager"

	if nblocks <= 0 || blockSize <= 0 {
		return nil, ErrInvalidConfig(op, fmt.Sprintf("invalid disk geometry %d x %d", nblocks, blockSize))
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, ErrDiskCreate(op, path, err)
	}

	if err := file.Truncate(int64(nblocks) * int64(blockSize)); err != nil {
		file.Close()
		os.Remove(path)
		return nil, ErrDiskCreate(op, path, err)
	}

	return &DiskManager{
		file:      file,
		path:      path,
		nblocks:   nblocks,
		blockSize: blockSize,
	}, nil
}

func (dm *DiskManager) checkBlock(op string, block int, buf []byte) error {
	if block < 0 || block >= dm.nblocks {
		return ErrInvalidPageID(op, block, dm.nblocks)
	}
	if len(buf) != dm.blockSize {
		return fmt.Errorf("%s: block buffer must be exactly %d bytes, got %d", op, dm.blockSize, len(buf))
	}
	return nil
}

// ReadBlock reads a block into dst
func (dm *DiskManager) ReadBlock(block int, dst []byte) error {
	if err := dm.checkBlock("DiskManager.ReadBlock", block, dst); err != nil {
		return err
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	offset := int64(block) * int64(dm.blockSize)
	if _, err := dm.file.ReadAt(dst, offset); err != nil {
		return ErrDiskRead("DiskManager.ReadBlock", block, err)
	}
	return nil
}

// WriteBlock writes src to a block
func (dm *DiskManager) WriteBlock(block int, src []byte) error {
	if err := dm.checkBlock("DiskManager.WriteBlock", block, src); err != nil {
		return err
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	offset := int64(block) * int64(dm.blockSize)
	if _, err := dm.file.WriteAt(src, offset); err != nil {
		return ErrDiskWrite("DiskManager.WriteBlock", block, err)
	}
	return nil
}

func (dm *DiskManager) BlockCount() int {
	return dm.nblocks
}

func (dm *DiskManager) BlockSize() int {
	return dm.blockSize
}

// Close closes and removes the disk file
func (dm *DiskManager) Close() error {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if dm.file == nil {
		return nil
	}

	err := dm.file.Close()
	dm.file = nil
	if rmErr := os.Remove(dm.path); err == nil && rmErr != nil && !os.IsNotExist(rmErr) {
		err = rmErr
	}
	return err
}
