// Package ring implements a circular log of fixed-size records on a flash
// region.
//
// The region is made of whole sectors. The sector following the newest record
// is always erased ahead of time, so after a reboot the log boundaries can be
// recovered by looking for transitions between erased and written slots. A
// slot is erased when its first four bytes read 0xFFFFFFFF; records must never
// start with that pattern.
package ring

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/itohio/goaqim/pkg/flash"
)

// CountUnknown is returned by Count before the region was scanned.
const CountUnknown = -1

// sentinelSize is the number of leading bytes checked to detect erased slots.
const sentinelSize = 4

const noAddr = ^uint32(0)

var (
	ErrInsufficientFlash = errors.New("less than two sectors available for the store")
	ErrRegionInUse       = errors.New("flash region already in use by another store")
	ErrRecordSize        = errors.New("invalid record size")
	ErrNoSample          = errors.New("no sample at index")
	ErrNotScanned        = errors.New("store not scanned")
	ErrClosed            = errors.New("store is closed")
)

// Option configures a Store.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger sets the logger used to report erases and failures.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// Store is a circular log of records of type T. T must have a fixed binary
// size of at least four bytes dividing the sector size; records are stored
// little-endian.
//
// Only one Store may own a given byte range of a device at a time.
type Store[T any] struct {
	dev  flash.Device
	log  *slog.Logger
	size uint32

	start      uint32
	length     uint32
	sectorSize uint32

	mu      sync.RWMutex
	first   uint32
	last    uint32
	scanned bool
	empty   bool
	closed  bool
}

// New creates a store of capacity records on dev, starting offset bytes past
// the device base. The offset is rounded up to a sector boundary and the
// region is sized to at least two and at most all remaining sectors. The
// region is claimed until Close.
func New[T any](dev flash.Device, capacity int, offset uint32, opts ...Option) (*Store[T], error) {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	var zero T
	g := dev.Geometry()
	size := binary.Size(zero)
	if size < sentinelSize || g.SectorSize == 0 || g.SectorSize%uint32(size) != 0 {
		return nil, fmt.Errorf("%w: %d bytes for sector size %d", ErrRecordSize, size, g.SectorSize)
	}

	sector := uint64(g.SectorSize)
	off := (uint64(offset) + sector - 1) / sector * sector
	if off > uint64(g.Size) || uint64(g.Size)-off < 2*sector {
		return nil, fmt.Errorf("%w: offset 0x%x, device size 0x%x", ErrInsufficientFlash, offset, g.Size)
	}
	available := uint64(g.Size) - off

	length := uint64(size) * uint64(max(capacity, 0))
	length = max(length, 2*sector)
	length = min(length, available)
	length = (length + sector - 1) / sector * sector

	s := &Store[T]{
		dev:        dev,
		log:        o.log,
		size:       uint32(size),
		start:      g.Base + uint32(off),
		length:     uint32(length),
		sectorSize: g.SectorSize,
		first:      noAddr,
		last:       noAddr,
	}

	if err := claim(dev, s.start, s.End()); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNew is like New but panics on error.
func MustNew[T any](dev flash.Device, capacity int, offset uint32, opts ...Option) *Store[T] {
	s, err := New[T](dev, capacity, offset, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Close releases the region. The store is unusable afterwards.
func (s *Store[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	release(s.dev, s.start)
	return nil
}

// Begin scans the region to recover the oldest and newest records. When erase
// is true the whole region is erased first.
func (s *Store[T]) Begin(erase bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.first, s.last = noAddr, noAddr
	s.scanned, s.empty = false, false

	if erase {
		sector := s.start / s.sectorSize
		for i := range s.SectorsInUse() {
			if err := s.dev.EraseSector(sector + uint32(i)); err != nil {
				return fmt.Errorf("failed to erase store: %w", err)
			}
		}
		s.log.Info("store erased", "start", s.start, "sectors", s.SectorsInUse())
	}

	slots := s.length / s.size
	written := make([]bool, slots)
	anyWritten := false
	buf := make([]byte, sentinelSize)
	for i := range slots {
		if err := s.dev.Read(s.start+i*s.size, buf); err != nil {
			return fmt.Errorf("failed to scan store: %w", err)
		}
		written[i] = !isSentinel(buf)
		anyWritten = anyWritten || written[i]
	}

	for i := range slots {
		// The region is circular: slot 0 follows the final slot.
		prev := written[(i+slots-1)%slots]
		addr := s.start + i*s.size
		if s.first == noAddr && !prev && written[i] {
			s.first = addr
		}
		if s.last == noAddr && prev && !written[i] {
			if i == 0 {
				s.last = s.End() - s.size
			} else {
				s.last = addr - s.size
			}
		}
	}

	switch {
	case !anyWritten:
		s.empty = true
		s.first, s.last = noAddr, noAddr
	case s.first == noAddr:
		// Every slot is written.
		s.first = s.start
		s.last = s.End() - s.size
	case s.last == noAddr:
		s.last = s.End() - s.size
	}
	s.scanned = true

	s.log.Debug("store scanned", "empty", s.empty, "first", s.first, "last", s.last)
	return nil
}

// Count returns the number of stored records, CountUnknown before Begin.
func (s *Store[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count()
}

func (s *Store[T]) count() int {
	switch {
	case !s.scanned:
		return CountUnknown
	case s.empty:
		return 0
	}
	span := s.last - s.first
	if s.last < s.first {
		span = s.length + s.last - s.first
	}
	return int(span/s.size) + 1
}

// ReadSample reads the record at index, 0 being the newest.
func (s *Store[T]) ReadSample(index int) (T, error) {
	var v T

	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= s.count() {
		return v, fmt.Errorf("%w %d", ErrNoSample, index)
	}

	addr := s.last - uint32(index)*s.size
	if s.last < s.start+uint32(index)*s.size {
		addr += s.length
	}

	buf := make([]byte, s.size)
	if err := s.dev.Read(addr, buf); err != nil {
		return v, fmt.Errorf("failed to read sample %d: %w", index, err)
	}
	if _, err := binary.Decode(buf, binary.LittleEndian, &v); err != nil {
		return v, fmt.Errorf("failed to decode sample %d: %w", index, err)
	}
	return v, nil
}

// StoreSample appends v, recycling the oldest sector when the region is full.
// When the write lands on the last slot of a sector, the next sector is erased
// so that the end of the log stays detectable. Both the write and the erase
// are attempted and their errors are joined.
func (s *Store[T]) StoreSample(v T) error {
	buf := make([]byte, s.size)
	if _, err := binary.Encode(buf, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("failed to encode sample: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return ErrClosed
	case !s.scanned:
		return ErrNotScanned
	}

	if s.empty {
		s.first, s.last = s.start, s.start
		s.empty = false
	} else {
		s.last = s.wrap(s.last + s.size)
	}

	var werr, eerr error
	if err := s.dev.Write(s.last, buf); err != nil {
		werr = fmt.Errorf("failed to write sample at 0x%08x: %w", s.last, err)
		s.log.Error("error writing to flash", "addr", s.last, "err", err)
	}

	next := s.wrap(s.last + s.size)
	nextSector := next / s.sectorSize
	if s.last/s.sectorSize != nextSector {
		if s.first/s.sectorSize == nextSector {
			s.first = s.wrap(next + s.sectorSize)
		}
		if err := s.dev.EraseSector(nextSector); err != nil {
			eerr = fmt.Errorf("failed to erase sector %d: %w", nextSector, err)
			s.log.Error("error erasing sector", "sector", nextSector, "err", err)
		} else {
			s.log.Debug("sector erased", "addr", next)
		}
	}

	return errors.Join(werr, eerr)
}

// SectorsInUse returns the number of sectors of the region.
func (s *Store[T]) SectorsInUse() int {
	return int(s.length / s.sectorSize)
}

// NominalCapacity returns how many records the store keeps at least: one
// sector is always erased ahead of the newest record.
func (s *Store[T]) NominalCapacity() int {
	return (s.SectorsInUse() - 1) * int(s.sectorSize/s.size)
}

// RecordSize returns the binary size of T.
func (s *Store[T]) RecordSize() int { return int(s.size) }

// Start returns the address of the region.
func (s *Store[T]) Start() uint32 { return s.start }

// Length returns the size of the region in bytes.
func (s *Store[T]) Length() uint32 { return s.length }

// End returns the address just past the region.
func (s *Store[T]) End() uint32 { return s.start + s.length }

// SectorSize returns the erase unit of the device.
func (s *Store[T]) SectorSize() uint32 { return s.sectorSize }

// First returns the address of the oldest record.
func (s *Store[T]) First() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.first
}

// Last returns the address of the newest record.
func (s *Store[T]) Last() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Scanned reports whether Begin completed.
func (s *Store[T]) Scanned() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanned
}

// Empty reports whether the scanned region holds no record.
func (s *Store[T]) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.empty
}

func (s *Store[T]) wrap(addr uint32) uint32 {
	if addr >= s.End() {
		addr -= s.length
	}
	return addr
}

func isSentinel(b []byte) bool {
	return b[0] == flash.Erased && b[1] == flash.Erased && b[2] == flash.Erased && b[3] == flash.Erased
}
