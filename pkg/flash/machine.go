//go:build tinygo

package flash

import "machine"

// OnChip returns the microcontroller's data flash.
func OnChip() *Block {
	return NewBlock(machine.Flash)
}
