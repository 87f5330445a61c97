// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package pqf

import "github.com/go-pqf/pqf/internal/store"

// Insert adds hash to the filter, inside its own transaction. It
// returns false, without mutating anything, only when the filter was
// already at capacity (maxSize entries) before the call; otherwise it
// always succeeds, including as a no-op when the fingerprint was
// already present. Only the low q+r bits of hash are used.
func (f *Filter) Insert(hash uint64) bool {
	if f.entries >= f.maxSize {
		return false
	}

	txn := f.pool.Begin()
	f.insertInTxn(txn, hash)
	f.writeHeader(txn)
	_ = txn.Commit()
	return true
}

// insertInTxn performs Insert's mutation against an already-open
// transaction, without writing the header or committing. The caller
// (Insert, or Merge across many inserts) is responsible for both, so
// that a run of inserts can share one outer transaction. The caller
// must already have checked f.entries < f.maxSize.
func (f *Filter) insertInTxn(txn *store.Txn, hash uint64) {
	fq := quotient(hash, f.r, f.indexMask)
	fr := remainderOf(hash, f.rMask)

	f.table.LogSlot(txn, fq)
	tfq := f.read(fq)

	if tfq.empty() {
		f.table.Set(txn, fq, uint64(newElt(fr).withOccupied(true)))
		f.entries++
		return
	}

	// Mark the canonical slot occupied before descending, so find_run
	// can rely on it even for a run that hasn't been created yet.
	extendingRun := tfq.occupied()
	if !extendingRun {
		f.table.Set(txn, fq, uint64(tfq.withOccupied(true)))
	}

	start := f.findRun(fq)
	s := start
	entry := newElt(fr)

	if extendingRun {
		for {
			e := f.read(s)
			rem := e.remainder()
			if rem == fr {
				// duplicate fingerprint: no-op, but the occupied-bit
				// flip above (if any) is still committed.
				return
			}
			if rem > fr {
				break
			}
			s = incr(s, f.maxSize)
			if !f.read(s).continuation() {
				break
			}
		}
		if s == start {
			f.table.LogSlot(txn, start)
			head := f.read(start)
			f.table.Set(txn, start, uint64(head.withContinuation(true)))
		} else {
			entry = entry.withContinuation(true)
		}
	}

	if s != fq {
		entry = entry.withShifted(true)
	}

	f.insertShift(txn, s, entry)
	f.entries++
}

// insertShift writes new at s, ripple-shifting whatever was already
// there (and everything after it, transitively) one slot to the right
// until an empty slot absorbs the chain. Grounded on the original C
// reference's insert_into: the occupied bit belongs to the slot index,
// not to the value passing through it, so each displaced value swaps
// its occupied bit with the incoming one before being written further
// along.
func (f *Filter) insertShift(txn *store.Txn, s uint64, new elt) {
	curr := new
	for {
		f.table.LogSlot(txn, s)
		prev := f.read(s)
		empty := prev.empty()
		if !empty {
			prev = prev.withShifted(true)
			if prev.occupied() {
				curr = curr.withOccupied(true)
				prev = prev.withOccupied(false)
			}
		}
		f.table.Set(txn, s, uint64(curr))
		if empty {
			return
		}
		curr = prev
		s = incr(s, f.maxSize)
	}
}
