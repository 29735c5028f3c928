package ring

import (
	"fmt"
	"log/slog"
	"strings"
)

// Info is a snapshot of the store layout and cursors.
type Info struct {
	RecordSize      int
	Start           uint32
	Length          uint32
	SectorSize      uint32
	Sectors         int
	NominalCapacity int
	Scanned         bool
	Empty           bool
	First           uint32
	Last            uint32
	Count           int
}

// Info returns a snapshot of the store.
func (s *Store[T]) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		RecordSize:      int(s.size),
		Start:           s.start,
		Length:          s.length,
		SectorSize:      s.sectorSize,
		Sectors:         s.SectorsInUse(),
		NominalCapacity: s.NominalCapacity(),
		Scanned:         s.scanned,
		Empty:           s.empty,
		First:           s.first,
		Last:            s.last,
		Count:           s.count(),
	}
}

// LogValue implements slog.LogValuer.
func (i Info) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("record_size", i.RecordSize),
		slog.String("start", fmt.Sprintf("0x%08X", i.Start)),
		slog.String("length", fmt.Sprintf("0x%08X", i.Length)),
		slog.Int("sectors", i.Sectors),
		slog.Int("capacity", i.NominalCapacity),
		slog.Bool("scanned", i.Scanned),
	}
	if i.Scanned {
		attrs = append(attrs,
			slog.String("first", fmt.Sprintf("0x%08X", i.First)),
			slog.String("last", fmt.Sprintf("0x%08X", i.Last)),
			slog.Int("count", i.Count),
		)
	}
	return slog.GroupValue(attrs...)
}

func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sample Size               : %d\n", i.RecordSize)
	fmt.Fprintf(&b, "Flash Storage Start       : 0x%08X\n", i.Start)
	fmt.Fprintf(&b, "Flash Storage Length      : 0x%08X\n", i.Length)
	fmt.Fprintf(&b, "Number of Sectors in Use  : %d\n", i.Sectors)
	fmt.Fprintf(&b, "Capacity (in samples)     : %d\n", i.NominalCapacity)
	if !i.Scanned {
		b.WriteString("Flash not scanned yet!\n")
		return b.String()
	}
	if i.Empty {
		b.WriteString("First Sample Addr         : N/A\n")
		b.WriteString("Last Sample Addr          : N/A\n")
	} else {
		fmt.Fprintf(&b, "First Sample Addr         : 0x%08X\n", i.First)
		fmt.Fprintf(&b, "Last Sample Addr          : 0x%08X\n", i.Last)
	}
	fmt.Fprintf(&b, "Number of Samples         : %d\n", i.Count)
	return b.String()
}
