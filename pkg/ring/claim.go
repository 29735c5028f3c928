package ring

import (
	"fmt"
	"sync"

	"github.com/itohio/goaqim/pkg/flash"
)

type span struct {
	start, end uint32
}

var (
	claimsMu sync.Mutex
	claims   = map[flash.Device][]span{}
)

// owner returns the innermost device, so that a decorated device and the
// device it wraps share their claims.
func owner(dev flash.Device) flash.Device {
	for {
		u, ok := dev.(interface{ Unwrap() flash.Device })
		if !ok {
			return dev
		}
		dev = u.Unwrap()
	}
}

func claim(dev flash.Device, start, end uint32) error {
	claimsMu.Lock()
	defer claimsMu.Unlock()

	dev = owner(dev)
	for _, c := range claims[dev] {
		if start < c.end && c.start < end {
			return fmt.Errorf("%w: 0x%08x-0x%08x overlaps 0x%08x-0x%08x", ErrRegionInUse, start, end, c.start, c.end)
		}
	}
	claims[dev] = append(claims[dev], span{start, end})
	return nil
}

func release(dev flash.Device, start uint32) {
	claimsMu.Lock()
	defer claimsMu.Unlock()

	dev = owner(dev)
	spans := claims[dev]
	for i, c := range spans {
		if c.start == start {
			spans = append(spans[:i], spans[i+1:]...)
			break
		}
	}
	if len(spans) == 0 {
		delete(claims, dev)
		return
	}
	claims[dev] = spans
}
