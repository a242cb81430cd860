package vm

import (
	"fmt"
	"sync"
)

// CompressedStore compresses blocks on their way to another BackingStore.
//
// Blocks that do not compress well are stored raw. Which blocks hold a
// compressed image is tracked in memory, so raw page contents are never
// mistaken for a header.
type CompressedStore struct {
	inner      BackingStore
	algorithm  CompressionType
	compressed []bool
	stats      PageCompressionStats
	mutex      sync.Mutex
}

// NewCompressedStore wraps inner with the given algorithm
func NewCompressedStore(inner BackingStore, algorithm CompressionType) (*CompressedStore, error) {
	if algorithm != CompressionLZ4 && algorithm != CompressionSnappy {
		return nil, NewVMError(ErrCodeCompressionFailed, "NewCompressedStore",
			fmt.Sprintf("unsupported compression type: %s", algorithm), nil)
	}
	if inner.BlockSize() <= CompressedHeaderSize+MinCompressionThreshold {
		return nil, NewVMError(ErrCodeCompressionFailed, "NewCompressedStore",
			fmt.Sprintf("block size %d too small for compression", inner.BlockSize()), nil)
	}

	return &CompressedStore{
		inner:      inner,
		algorithm:  algorithm,
		compressed: make([]bool, inner.BlockCount()),
	}, nil
}

// WriteBlock compresses src and writes it to the inner store
func (cs *CompressedStore) WriteBlock(block int, src []byte) error {
	const op = "CompressedStore.WriteBlock"

	if block < 0 || block >= len(cs.compressed) {
		return ErrInvalidPageID(op, block, len(cs.compressed))
	}

	cp, err := CompressPage(src, cs.algorithm)
	if err != nil {
		return NewVMError(ErrCodeCompressionFailed, op, fmt.Sprintf("failed to compress block %d", block), err)
	}

	image := src
	if cp.CompressionType != CompressionNone {
		image, err = SerializeCompressedPage(cp, cs.inner.BlockSize())
		if err != nil {
			return NewVMError(ErrCodeCompressionFailed, op, fmt.Sprintf("failed to serialize block %d", block), err)
		}
	}

	if err := cs.inner.WriteBlock(block, image); err != nil {
		return err
	}

	cs.mutex.Lock()
	cs.compressed[block] = cp.CompressionType != CompressionNone
	cs.stats.AddCompression(cp)
	cs.mutex.Unlock()

	return nil
}

// ReadBlock reads a block and decompresses it into dst if needed
func (cs *CompressedStore) ReadBlock(block int, dst []byte) error {
	const op = "CompressedStore.ReadBlock"

	if block < 0 || block >= len(cs.compressed) {
		return ErrInvalidPageID(op, block, len(cs.compressed))
	}

	if err := cs.inner.ReadBlock(block, dst); err != nil {
		return err
	}

	cs.mutex.Lock()
	isCompressed := cs.compressed[block]
	cs.mutex.Unlock()

	if !isCompressed {
		return nil
	}

	cp, err := DeserializeCompressedPage(dst)
	if err != nil {
		return ErrDiskRead(op, block, err)
	}
	data, err := DecompressPage(cp)
	if err != nil {
		return ErrDiskRead(op, block, err)
	}
	if len(data) != len(dst) {
		return ErrDiskRead(op, block, fmt.Errorf("decompressed %d bytes into %d byte block", len(data), len(dst)))
	}
	copy(dst, data)
	return nil
}

func (cs *CompressedStore) BlockCount() int {
	return cs.inner.BlockCount()
}

func (cs *CompressedStore) BlockSize() int {
	return cs.inner.BlockSize()
}

// Stats returns a copy of the compression statistics
func (cs *CompressedStore) Stats() PageCompressionStats {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()
	return cs.stats
}

// Close closes the inner store
func (cs *CompressedStore) Close() error {
	return cs.inner.Close()
}
