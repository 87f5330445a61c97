// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

// Package pqf implements a persistent quotient filter: an
// approximate-membership structure with no false negatives whose
// mutating operations are crash-atomic because every byte range they
// touch is logged to a store.Pool transaction before being changed.
//
// The filter never hashes its input; callers supply a 64-bit
// fingerprint (the low q+r bits are the ones that matter) and own
// picking a hash function, exactly as the original pmemobj-backed
// reference this package is modeled on does.
package pqf

import (
	"encoding/binary"

	"github.com/go-pqf/pqf/internal/store"
	"github.com/go-pqf/pqf/internal/table"
)

// headerSize is the fixed on-disk size of a filter's header object:
// five uint64 fields (Q, R, Entries, MaxSize, TableHandle).
const headerSize = 5 * 8

// Filter is a handle to a persistent quotient filter. Its parameters
// (q, r) are immutable between Init and Destroy.
type Filter struct {
	pool   *store.Pool
	header store.Handle
	table  *table.Table

	q, r     uint
	elemBits uint

	maxSize   uint64
	indexMask uint64
	rMask     uint64

	entries uint64
}

// QBits reports the number of quotient bits the filter was initialized
// with.
func (f *Filter) QBits() uint { return f.q }

// RBits reports the number of remainder bits the filter was
// initialized with.
func (f *Filter) RBits() uint { return f.r }

// Size reports the number of slots in the filter (2^q).
func (f *Filter) Size() uint64 { return f.maxSize }

// Entries reports the number of distinct fingerprints currently stored.
func (f *Filter) Entries() uint64 { return f.entries }

// TableSize reports ceil(2^q * (r+3) / 8), the number of bytes the
// slot array occupies.
func TableSize(q, r uint) uint64 {
	return table.SizeBytes(r+3, uint64(1)<<q)
}

// Init allocates a brand-new filter with capacity 2^q inside pool,
// binds it to name in root, and commits. On any failure the pool is
// left exactly as it was before the call.
func Init(pool *store.Pool, root *store.Root, name string, q, r uint) (*Filter, error) {
	if q == 0 || r == 0 || q+r > 64 {
		return nil, ErrInvalidParams
	}

	txn := pool.Begin()
	f := initInTxn(txn, pool, root, name, q, r)

	if err := txn.Commit(); err != nil {
		return nil, ErrPoolExhausted
	}
	return f, nil
}

// initInTxn performs Init's work against an already-open transaction,
// leaving the caller responsible for committing (or aborting) it. Merge
// uses this so that init(out) and every inner insert share one outer
// transaction instead of each committing independently.
func initInTxn(txn *store.Txn, pool *store.Pool, root *store.Root, name string, q, r uint) *Filter {
	_, tbl := table.Alloc(txn, r+3, uint64(1)<<q)
	headerHandle := txn.Alloc(headerSize)

	f := &Filter{
		pool:      pool,
		header:    headerHandle,
		table:     tbl,
		q:         q,
		r:         r,
		elemBits:  r + 3,
		maxSize:   uint64(1) << q,
		indexMask: mask(q),
		rMask:     mask(r),
		entries:   0,
	}
	f.writeHeader(txn)
	root.Put(txn, name, headerHandle)
	return f
}

// Open rebinds a filter previously Init'd under name in root.
func Open(pool *store.Pool, root *store.Root, name string) (*Filter, error) {
	h, ok := root.Bind(name)
	if !ok {
		return nil, ErrNotFound
	}
	f := &Filter{pool: pool, header: h}
	tableHandle := f.readHeader()
	f.table = table.Open(pool, tableHandle, f.elemBits, f.maxSize)
	return f, nil
}

func (f *Filter) headerBytes() []byte {
	return f.pool.Bytes(f.header)[:headerSize]
}

func (f *Filter) writeHeader(txn *store.Txn) {
	txn.LogRange(f.header, 0, headerSize)
	buf := f.pool.Bytes(f.header)[:headerSize]
	binary.LittleEndian.PutUint64(buf[0:8], uint64(f.q))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(f.r))
	binary.LittleEndian.PutUint64(buf[16:24], f.entries)
	binary.LittleEndian.PutUint64(buf[24:32], f.maxSize)
	binary.LittleEndian.PutUint64(buf[32:40], uint64(f.table.Handle()))
}

// readHeader loads the header fields from disk and returns the table's
// handle, which the caller (Open) uses to bind f.table.
func (f *Filter) readHeader() store.Handle {
	buf := f.headerBytes()
	f.q = uint(binary.LittleEndian.Uint64(buf[0:8]))
	f.r = uint(binary.LittleEndian.Uint64(buf[8:16]))
	f.entries = binary.LittleEndian.Uint64(buf[16:24])
	f.maxSize = binary.LittleEndian.Uint64(buf[24:32])
	tableHandle := store.Handle(binary.LittleEndian.Uint64(buf[32:40]))
	f.elemBits = f.r + 3
	f.indexMask = mask(f.q)
	f.rMask = mask(f.r)
	return tableHandle
}

func mask(bits uint) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}

// Clear resets the table and entry count to empty, in one transaction.
func (f *Filter) Clear() {
	txn := f.pool.Begin()
	f.table.Clear(txn)
	f.entries = 0
	f.writeHeader(txn)
	_ = txn.Commit()
}

// Destroy frees the filter's table payload. The Filter must not be used
// afterward.
func (f *Filter) Destroy() {
	txn := f.pool.Begin()
	txn.Free(f.table.Handle(), table.SizeBytes(f.elemBits, f.maxSize))
	_ = txn.Commit()
}
