// Package flash provides the byte-addressable, sector-erasable devices the
// ring store persists records to.
//
// Flash bits can only be cleared by a write. Erasing a sector sets every byte
// of it back to 0xFF.
package flash

import (
	"errors"
	"fmt"
)

// Erased is the value of every byte of an erased sector.
const Erased = 0xFF

var (
	ErrOutOfRange = errors.New("flash access out of range")
	ErrNotErased  = errors.New("flash write to non-erased bytes")
	ErrReadOnly   = errors.New("flash device is read-only")
)

// Geometry describes the logical address space of a device.
type Geometry struct {
	Base       uint32 // First addressable byte
	Size       uint32 // Number of addressable bytes
	SectorSize uint32 // Erase unit
}

// DefaultGeometry is the file system partition of a 4 MB ESP8266 module.
var DefaultGeometry = Geometry{
	Base:       0x03000000,
	Size:       0xFA000,
	SectorSize: 0x1000,
}

// End returns the address just past the last addressable byte.
func (g Geometry) End() uint32 {
	return g.Base + g.Size
}

// Contains reports whether [addr, addr+n) lies within the device.
func (g Geometry) Contains(addr uint32, n int) bool {
	return addr >= g.Base && uint64(addr)+uint64(n) <= uint64(g.End())
}

// SectorAddr returns the address of the given absolute sector index.
func (g Geometry) SectorAddr(sector uint32) uint32 {
	return sector * g.SectorSize
}

// Sector returns the absolute index of the sector holding addr.
func (g Geometry) Sector(addr uint32) uint32 {
	return addr / g.SectorSize
}

// Validate checks that the geometry describes whole, aligned sectors.
func (g Geometry) Validate() error {
	switch {
	case g.SectorSize == 0:
		return fmt.Errorf("invalid flash geometry: zero sector size")
	case g.Base%g.SectorSize != 0:
		return fmt.Errorf("invalid flash geometry: base 0x%x not aligned to sector size 0x%x", g.Base, g.SectorSize)
	case g.Size%g.SectorSize != 0:
		return fmt.Errorf("invalid flash geometry: size 0x%x not a multiple of sector size 0x%x", g.Size, g.SectorSize)
	case uint64(g.Base)+uint64(g.Size) > 1<<32:
		return fmt.Errorf("invalid flash geometry: end overflows 32-bit address space")
	}
	return nil
}

// Device is a raw flash device. Addresses are absolute within the logical
// address space described by Geometry, sectors are absolute indices
// (address / SectorSize). Operations are not retried.
type Device interface {
	Geometry() Geometry
	EraseSector(sector uint32) error
	Write(addr uint32, data []byte) error
	Read(addr uint32, data []byte) error
}

func checkSector(g Geometry, sector uint32) (uint32, error) {
	addr := g.SectorAddr(sector)
	if sector > (1<<32-1)/g.SectorSize || !g.Contains(addr, int(g.SectorSize)) {
		return 0, fmt.Errorf("erase sector %d: %w", sector, ErrOutOfRange)
	}
	return addr, nil
}

func checkRange(g Geometry, op string, addr uint32, n int) error {
	if !g.Contains(addr, n) {
		return fmt.Errorf("%s %d bytes at 0x%08x: %w", op, n, addr, ErrOutOfRange)
	}
	return nil
}

func isErased(data []byte) bool {
	for _, b := range data {
		if b != Erased {
			return false
		}
	}
	return true
}
