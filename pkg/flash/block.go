package flash

import (
	"fmt"
)

// BlockDevice is the block interface of TinyGo's machine.Flash. Offsets are
// relative to the start of the device.
type BlockDevice interface {
	ReadAt(p []byte, off int64) (n int, err error)
	WriteAt(p []byte, off int64) (n int, err error)
	Size() int64
	WriteBlockSize() int64
	EraseBlockSize() int64
	EraseBlocks(start, len int64) error
}

// Block adapts a BlockDevice. Its address space starts at zero and its
// sectors are the device erase blocks.
type Block struct {
	dev  BlockDevice
	geom Geometry
}

var _ Device = (*Block)(nil)

// NewBlock wraps dev. The size is truncated to whole erase blocks.
func NewBlock(dev BlockDevice) *Block {
	sector := uint32(dev.EraseBlockSize())
	size := uint32(min(dev.Size(), 1<<32-int64(sector)))
	return &Block{
		dev: dev,
		geom: Geometry{
			Size:       size - size%sector,
			SectorSize: sector,
		},
	}
}

// Geometry returns the device geometry.
func (b *Block) Geometry() Geometry {
	return b.geom
}

func (b *Block) EraseSector(sector uint32) error {
	if _, err := checkSector(b.geom, sector); err != nil {
		return err
	}
	if err := b.dev.EraseBlocks(int64(sector), 1); err != nil {
		return fmt.Errorf("erase sector %d: %w", sector, err)
	}
	return nil
}

func (b *Block) Write(addr uint32, data []byte) error {
	if err := checkRange(b.geom, "write", addr, len(data)); err != nil {
		return err
	}
	if _, err := b.dev.WriteAt(data, int64(addr)); err != nil {
		return fmt.Errorf("write %d bytes at 0x%08x: %w", len(data), addr, err)
	}
	return nil
}

func (b *Block) Read(addr uint32, data []byte) error {
	if err := checkRange(b.geom, "read", addr, len(data)); err != nil {
		return err
	}
	if _, err := b.dev.ReadAt(data, int64(addr)); err != nil {
		return fmt.Errorf("read %d bytes at 0x%08x: %w", len(data), addr, err)
	}
	return nil
}
