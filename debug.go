// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package pqf

import "fmt"

// SlotAt exposes one slot's decoded metadata and remainder for
// diagnostic tools (internal/check's consistency walker, the CLI's
// describe/dump commands). It performs no writes.
func (f *Filter) SlotAt(i uint64) (occupied, continuation, shifted bool, remainder uint64) {
	e := f.read(i)
	return e.occupied(), e.continuation(), e.shifted(), e.remainder()
}

// DebugDump prints a textual summary of the filter's slot array.
func (f *Filter) DebugDump(full bool) {
	fmt.Printf("quotient filter: %d slots (%d q bits, %d r bits), %d entries (%.3f loaded)\n",
		f.maxSize, f.q, f.r, f.entries, float64(f.entries)/float64(f.maxSize))
	if !full {
		return
	}
	fmt.Printf("  slot      O C S remainder\n")
	skipped := 0
	for i := uint64(0); i < f.maxSize; i++ {
		o, c, s, r := f.SlotAt(i)
		if !o && !c && !s {
			skipped++
			continue
		}
		if skipped > 0 {
			fmt.Printf("          ...\n")
			skipped = 0
		}
		fmt.Printf("%8d  %d %d %d %x\n", i, b2i(o), b2i(c), b2i(s), r)
	}
	if skipped > 0 {
		fmt.Printf("          ...\n")
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
