// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package pqf

// Iterator yields every fingerprint stored in a filter exactly once, in
// an order that is deterministic for a given filter state but is not
// necessarily insertion order. Its state lives entirely on the caller's
// stack — nothing in Filter points back to an Iterator — so it is safe
// to iterate one filter while mutating another, which is exactly what
// Merge does.
type Iterator struct {
	f        *Filter
	index    uint64
	quotient uint64
	visited  uint64
	done     bool
}

// NewIterator starts an iteration over f.
func NewIterator(f *Filter) *Iterator {
	it := &Iterator{f: f}
	if f.entries == 0 {
		it.done = true
		return it
	}
	start := uint64(0)
	for !f.read(start).isClusterStart() {
		start = incr(start, f.maxSize)
	}
	it.index = start
	return it
}

// Done reports whether every entry has been visited.
func (it *Iterator) Done() bool {
	return it.visited == it.f.entries
}

// Next returns the next (q+r)-bit fingerprint. Calling Next on a done
// iterator is a precondition violation, not a recoverable error — the
// original C reference calls abort() here, and this implementation
// panics to match.
func (it *Iterator) Next() uint64 {
	if it.Done() {
		panic("pqf: Next called on a done iterator")
	}
	f := it.f
	for {
		e := f.read(it.index)

		if e.isClusterStart() {
			it.quotient = it.index
		} else if e.isRunStart() {
			q := it.quotient
			for {
				q = incr(q, f.maxSize)
				if f.read(q).occupied() {
					break
				}
			}
			it.quotient = q
		}

		it.index = incr(it.index, f.maxSize)

		if !e.empty() {
			hash := (it.quotient << f.r) | e.remainder()
			it.visited++
			return hash
		}
	}
}
