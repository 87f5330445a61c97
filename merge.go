// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package pqf

import "github.com/go-pqf/pqf/internal/store"

// Merge builds a new filter under outName containing every fingerprint
// stored in a or b. The new filter is sized with q_out = 1 +
// max(q_a, q_b) and r_out = max(r_a, r_b), which guarantees at least as
// much capacity as a and b's combined entry counts (exactly as much when
// q_a == q_b and both are full) — so, for any pair of legal inputs, none
// of the inserts below can fail on capacity. The entries copied in are
// the inputs' (q+r)-bit fingerprints as the iterators yield them.
// Merge leaves a and b unmodified. init(out) and every inner insert run
// inside one outer transaction, so out either ends up bound to outName
// holding the full union of a and b, or the whole attempt is rolled
// back and outName is left exactly as it was.
func Merge(pool *store.Pool, root *store.Root, outName string, a, b *Filter) (*Filter, error) {
	qOut := 1 + maxUint(a.q, b.q)
	rOut := maxUint(a.r, b.r)

	txn := pool.Begin()
	out := initInTxn(txn, pool, root, outName, qOut, rOut)

	for _, src := range [2]*Filter{a, b} {
		it := NewIterator(src)
		for !it.Done() {
			out.insertInTxn(txn, it.Next())
		}
	}
	out.writeHeader(txn)

	if err := txn.Commit(); err != nil {
		return nil, ErrPoolExhausted
	}
	return out, nil
}

func maxUint(a, b uint) uint {
	if a > b {
		return a
	}
	return b
}
