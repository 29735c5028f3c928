package flash

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// File is a flash device persisted in an image file, so that successive
// processes observe the same memory like successive wake cycles of the
// microcontroller.
type File struct {
	geom Geometry

	mu sync.Mutex
	f  *os.File
}

var _ Device = (*File)(nil)

// OpenFile opens or creates the image at path. A new or short image is
// extended with erased bytes up to the geometry size.
func OpenFile(path string, g Geometry) (*File, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open flash image: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat flash image: %w", err)
	}

	if size := info.Size(); size < int64(g.Size) {
		pad := bytes.Repeat([]byte{Erased}, int(int64(g.Size)-size))
		if _, err := f.WriteAt(pad, size); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to initialize flash image: %w", err)
		}
	}

	return &File{geom: g, f: f}, nil
}

// Geometry returns the device geometry.
func (d *File) Geometry() Geometry {
	return d.geom
}

// EraseSector sets every byte of the sector to 0xFF.
func (d *File) EraseSector(sector uint32) error {
	addr, err := checkSector(d.geom, sector)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.f.WriteAt(bytes.Repeat([]byte{Erased}, int(d.geom.SectorSize)), d.offset(addr)); err != nil {
		return fmt.Errorf("erase sector %d: %w", sector, err)
	}
	return nil
}

// Write programs data at addr. Every target byte must be erased.
func (d *File) Write(addr uint32, data []byte) error {
	if err := checkRange(d.geom, "write", addr, len(data)); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	current := make([]byte, len(data))
	if _, err := d.f.ReadAt(current, d.offset(addr)); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("write %d bytes at 0x%08x: %w", len(data), addr, err)
	}
	if !isErased(current) {
		return fmt.Errorf("write %d bytes at 0x%08x: %w", len(data), addr, ErrNotErased)
	}

	if _, err := d.f.WriteAt(data, d.offset(addr)); err != nil {
		return fmt.Errorf("write %d bytes at 0x%08x: %w", len(data), addr, err)
	}
	return nil
}

// Read copies len(data) bytes at addr into data.
func (d *File) Read(addr uint32, data []byte) error {
	if err := checkRange(d.geom, "read", addr, len(data)); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.f.ReadAt(data, d.offset(addr)); err != nil {
		return fmt.Errorf("read %d bytes at 0x%08x: %w", len(data), addr, err)
	}
	return nil
}

// Sync flushes the image to stable storage.
func (d *File) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.f.Sync()
}

// Close closes the image file.
func (d *File) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.f.Close()
}

func (d *File) offset(addr uint32) int64 {
	return int64(addr - d.geom.Base)
}
