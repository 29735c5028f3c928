package flash

import (
	"bytes"
	"fmt"
	"sync"
)

// Sim is an in-memory flash device. It starts fully erased and, like real
// NOR flash, rejects writes to bytes that were not erased first.
type Sim struct {
	geom Geometry

	mu     sync.RWMutex
	memory []byte
	erases int
}

var _ Device = (*Sim)(nil)

// NewSim creates an erased simulated device.
func NewSim(g Geometry) *Sim {
	s := &Sim{
		geom:   g,
		memory: make([]byte, g.Size),
	}
	s.Reset()
	return s
}

// Reset erases the whole device and clears the erase counter.
func (s *Sim) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(s.memory, bytes.Repeat([]byte{Erased}, len(s.memory)))
	s.erases = 0
}

// Geometry returns the device geometry.
func (s *Sim) Geometry() Geometry {
	return s.geom
}

// EraseSector sets every byte of the sector to 0xFF.
func (s *Sim) EraseSector(sector uint32) error {
	addr, err := checkSector(s.geom, sector)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	off := addr - s.geom.Base
	for i := range s.geom.SectorSize {
		s.memory[off+i] = Erased
	}
	s.erases++
	return nil
}

// Write programs data at addr. Every target byte must be erased.
func (s *Sim) Write(addr uint32, data []byte) error {
	if err := checkRange(s.geom, "write", addr, len(data)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	off := addr - s.geom.Base
	if !isErased(s.memory[off : off+uint32(len(data))]) {
		return fmt.Errorf("write %d bytes at 0x%08x: %w", len(data), addr, ErrNotErased)
	}
	copy(s.memory[off:], data)
	return nil
}

// Read copies len(data) bytes at addr into data.
func (s *Sim) Read(addr uint32, data []byte) error {
	if err := checkRange(s.geom, "read", addr, len(data)); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	copy(data, s.memory[addr-s.geom.Base:])
	return nil
}

// Erases returns the number of sector erases since creation or the last Reset.
func (s *Sim) Erases() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.erases
}

// Poke overwrites memory without the erased check. It is used to simulate
// corruption and partially written records.
func (s *Sim) Poke(addr uint32, data []byte) error {
	if err := checkRange(s.geom, "poke", addr, len(data)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	copy(s.memory[addr-s.geom.Base:], data)
	return nil
}
