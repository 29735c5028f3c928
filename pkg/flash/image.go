//go:build !tinygo

package flash

import (
	"fmt"

	"golang.org/x/exp/mmap"
)

// Image is a read-only device over a dumped flash image, memory-mapped so that
// large dumps can be inspected without loading them.
type Image struct {
	geom Geometry
	r    *mmap.ReaderAt
}

var _ Device = (*Image)(nil)

// OpenImage maps the image at path. The geometry size is clamped to the image
// length.
func OpenImage(path string, g Geometry) (*Image, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to map flash image: %w", err)
	}

	if n := uint32(r.Len()); n < g.Size {
		g.Size = n - n%g.SectorSize
	}

	return &Image{geom: g, r: r}, nil
}

// Geometry returns the device geometry.
func (m *Image) Geometry() Geometry {
	return m.geom
}

// EraseSector always fails.
func (m *Image) EraseSector(sector uint32) error {
	return fmt.Errorf("erase sector %d: %w", sector, ErrReadOnly)
}

// Write always fails.
func (m *Image) Write(addr uint32, data []byte) error {
	return fmt.Errorf("write %d bytes at 0x%08x: %w", len(data), addr, ErrReadOnly)
}

// Read copies len(data) bytes at addr into data.
func (m *Image) Read(addr uint32, data []byte) error {
	if err := checkRange(m.geom, "read", addr, len(data)); err != nil {
		return err
	}
	if _, err := m.r.ReadAt(data, int64(addr-m.geom.Base)); err != nil {
		return fmt.Errorf("read %d bytes at 0x%08x: %w", len(data), addr, err)
	}
	return nil
}

// Close unmaps the image.
func (m *Image) Close() error {
	return m.r.Close()
}
