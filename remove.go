// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package pqf

import "github.com/go-pqf/pqf/internal/store"

// Remove deletes hash from the filter if present, inside its own
// transaction. Removing a hash that was never inserted is a permissible
// no-op that returns true. Remove rejects (returns false, without
// mutating anything) if hash has any bit set above position q+r —
// otherwise an over-wide hash could delete a narrower, colliding
// fingerprint out from under a caller who never inserted it, turning a
// false positive into a silent false negative.
func (f *Filter) Remove(hash uint64) bool {
	if hash>>(f.q+f.r) != 0 {
		return false
	}

	fq := quotient(hash, f.r, f.indexMask)
	fr := remainderOf(hash, f.rMask)
	tfq := f.read(fq)

	if !tfq.occupied() || f.entries == 0 {
		return true
	}

	start := f.findRun(fq)
	s := start
	var rem uint64
	for {
		rem = f.read(s).remainder()
		if rem == fr {
			break
		}
		if rem > fr {
			return true
		}
		s = incr(s, f.maxSize)
		if !f.read(s).continuation() {
			break
		}
	}
	if rem != fr {
		return true
	}

	var kill elt
	if s == fq {
		kill = tfq
	} else {
		kill = f.read(s)
	}
	replaceRunStart := kill.isRunStart()

	txn := f.pool.Begin()

	if replaceRunStart {
		next := f.read(incr(s, f.maxSize))
		if !next.continuation() {
			f.table.LogSlot(txn, fq)
			f.table.Set(txn, fq, uint64(tfq.withOccupied(false)))
		}
	}

	f.deleteEntry(txn, s, fq)

	if replaceRunStart {
		next := f.read(s)
		updated := next
		if next.continuation() {
			updated = updated.withContinuation(false)
		}
		if s == fq && updated.isRunStart() {
			updated = updated.withShifted(false)
		}
		if updated != next {
			f.table.LogSlot(txn, s)
			f.table.Set(txn, s, uint64(updated))
		}
	}

	f.entries--
	f.writeHeader(txn)
	_ = txn.Commit()
	return true
}

// deleteEntry clears the entry at s and slides the rest of its cluster
// one slot left, fixing up occupied/shifted bits of anything that
// lands back in its canonical slot along the way. Grounded on the
// original C reference's delete_entry; quot tracks, lazily, which
// quotient's run is currently being sled into place.
func (f *Filter) deleteEntry(txn *store.Txn, s, quot uint64) {
	curr := f.read(s)
	sp := incr(s, f.maxSize)
	orig := s

	for {
		next := f.read(sp)
		currOccupied := curr.occupied()

		if next.empty() || next.isClusterStart() || sp == orig {
			f.table.LogSlot(txn, s)
			f.table.Set(txn, s, 0)
			return
		}

		updated := next
		if next.isRunStart() {
			for {
				quot = incr(quot, f.maxSize)
				if f.read(quot).occupied() {
					break
				}
			}
			if currOccupied && quot == s {
				updated = updated.withShifted(false)
			}
		}

		if currOccupied {
			updated = updated.withOccupied(true)
		} else {
			updated = updated.withOccupied(false)
		}
		f.table.LogSlot(txn, s)
		f.table.Set(txn, s, uint64(updated))

		s = sp
		sp = incr(sp, f.maxSize)
		curr = next
	}
}
