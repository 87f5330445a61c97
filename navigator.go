// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package pqf

// read returns the logical slot value at i: the raw table entry
// reinterpreted as metadata bits plus remainder.
func (f *Filter) read(i uint64) elt {
	return elt(f.table.Get(i))
}

// findRun locates the first slot of the run belonging to quotient fq.
// Precondition: slot(fq) has its occupied bit set.
func (f *Filter) findRun(fq uint64) uint64 {
	return findRunAt(fq, f.maxSize, f.read)
}

// findRunAt is findRun's logic against any read closure, so the
// read-only Snapshot can walk runs the same way Filter does without a
// second struct to keep in sync. Grounded on the original C reference's
// find_run_index: walk left to the start of the enclosing cluster, then
// walk two cursors right in lockstep — one hopping whole runs, one
// hopping to each occupied quotient — until the occupied cursor reaches
// fq.
func findRunAt(fq, maxSize uint64, read func(uint64) elt) uint64 {
	b := fq
	for read(b).shifted() {
		b = decr(b, maxSize)
	}

	s := b
	for b != fq {
		s = incr(s, maxSize)
		for read(s).continuation() {
			s = incr(s, maxSize)
		}
		b = incr(b, maxSize)
		for !read(b).occupied() {
			b = incr(b, maxSize)
		}
	}
	return s
}
