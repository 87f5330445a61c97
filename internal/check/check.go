// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

// Package check implements a read-only consistency walker: two passes
// over a filter's slots that re-derive every structural invariant
// (no orphaned continuation bits, ascending remainders within a run, one
// run per occupied bit, entry count matching non-empty slots) from
// scratch, for use in tests and the CLI's "check" subcommand. It walks a
// filter (a *pqf.Filter or *pqf.Snapshot) through its SlotAt accessor
// rather than owning its own bitset-backed table, and does not import
// package pqf, so pqf's own tests can use it.
package check

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Slots is the read-only view of a filter that Walk needs. *pqf.Filter
// and *pqf.Snapshot both satisfy it.
type Slots interface {
	Size() uint64
	Entries() uint64
	SlotAt(i uint64) (occupied, continuation, shifted bool, remainder uint64)
}

// Violation describes one invariant failure found while walking a
// filter.
type Violation struct {
	Slot    uint64
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("slot %d: %s", v.Slot, v.Message)
}

// Walk re-derives every structural invariant of a quotient filter in two
// scans of f's slots: the first checks per-slot bits and counts entries,
// the second walks the run of each occupied quotient. A bitset.BitSet
// tracks which slot indices have already been claimed as the first slot
// of some run, so duplicate claims ("one run per occupied bit") are
// caught during that second scan rather than by a third one.
func Walk(f Slots) []Violation {
	var violations []Violation
	size := f.Size()
	claimed := bitset.New(uint(size))
	runsFound := uint64(0)
	nonEmpty := uint64(0)
	occupiedCount := uint64(0)

	for i := uint64(0); i < size; i++ {
		occupied, continuation, shifted, remainder := f.SlotAt(i)
		empty := !occupied && !continuation && !shifted

		if empty && remainder != 0 {
			violations = append(violations, Violation{i, "empty slot has non-zero remainder"})
		}
		if continuation && !shifted {
			violations = append(violations, Violation{i, "continuation bit set without shifted bit"})
		}
		if continuation {
			prevO, prevC, prevS, _ := f.SlotAt(decr(i, size))
			if !prevO && !prevC && !prevS {
				violations = append(violations, Violation{i, "continuation slot's predecessor is empty"})
			}
		}
		if !empty {
			nonEmpty++
		}
		if occupied {
			occupiedCount++
		}
	}

	if nonEmpty != f.Entries() {
		violations = append(violations, Violation{0,
			fmt.Sprintf("entries=%d but %d non-empty slots found", f.Entries(), nonEmpty)})
	}

	// Walk each occupied quotient's run and confirm ascending
	// remainders with no slot claimed by two different quotients.
	usage := map[uint64]uint64{}
	for i := uint64(0); i < size; i++ {
		occupied, _, _, _ := f.SlotAt(i)
		if !occupied {
			continue
		}
		runStart := findRun(f, i, size)
		if claimed.Test(uint(runStart)) {
			violations = append(violations, Violation{runStart,
				fmt.Sprintf("slot claimed as run start by both quotient %d and %d", i, usage[runStart])})
			continue
		}
		usage[runStart] = i
		claimed.Set(uint(runStart))
		runsFound++

		s := runStart
		lastRem := int64(-1)
		for {
			_, _, _, rem := f.SlotAt(s)
			if int64(rem) <= lastRem {
				violations = append(violations, Violation{s, "run remainders are not strictly ascending"})
			}
			lastRem = int64(rem)
			s = incr(s, size)
			_, cont, _, _ := f.SlotAt(s)
			if !cont {
				break
			}
		}
	}

	if occupiedCount != runsFound {
		violations = append(violations, Violation{0,
			fmt.Sprintf("%d occupied bits set but %d distinct runs found", occupiedCount, runsFound)})
	}

	return violations
}

func incr(i, size uint64) uint64 {
	i++
	if i >= size {
		i = 0
	}
	return i
}

func decr(i, size uint64) uint64 {
	if i == 0 {
		return size - 1
	}
	return i - 1
}

// findRun mirrors pqf's unexported run navigator so the checker can
// validate it does not have to trust the filter's own findRun.
func findRun(f Slots, fq, size uint64) uint64 {
	b := fq
	for {
		_, _, shifted, _ := f.SlotAt(b)
		if !shifted {
			break
		}
		b = decr(b, size)
	}
	s := b
	for b != fq {
		s = incr(s, size)
		for {
			_, cont, _, _ := f.SlotAt(s)
			if !cont {
				break
			}
			s = incr(s, size)
		}
		b = incr(b, size)
		for {
			occ, _, _, _ := f.SlotAt(b)
			if occ {
				break
			}
			b = incr(b, size)
		}
	}
	return s
}
