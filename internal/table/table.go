// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

// Package table implements the quotient filter's bit-packed slot array:
// reading and writing an (r+3)-bit slot that may straddle two 64-bit
// words, directly against bytes owned by a store.Pool so that every
// write happens inside the pool's byte-addressable, transactionally
// logged arena. The bit math follows the classic get_elem/set_elem
// approach used by bit-packed quotient filter slot arrays.
package table

import (
	"encoding/binary"

	"github.com/go-pqf/pqf/internal/store"
)

const bitsPerWord = 64

// Table is a fixed-width, fixed-length array of bits-wide slots backed
// by a pool allocation. pool only needs to hand back byte views, so a
// read-only store.SnapshotPool can back a Table exactly as a writable
// store.Pool does.
type Table struct {
	pool  store.ByteSource
	h     store.Handle
	bits  uint
	size  uint64
	words uint64
}

// SizeBytes reports ceil(size*bits/8), the on-disk size of a table with
// this slot width and slot count.
func SizeBytes(bits uint, size uint64) uint64 {
	bitsTotal := size * uint64(bits)
	return (bitsTotal + 7) / 8
}

// wordsRequired is the number of 64-bit words actually allocated: one
// more than SizeBytes rounds to, so that the final slot's two-word read
// never runs past the end of the allocation, the same guard packed.go
// uses ("words = (count*bits)/64 + 1").
func wordsRequired(bits uint, size uint64) uint64 {
	return (size*uint64(bits))/bitsPerWord + 1
}

// Alloc reserves a fresh, zero-filled table of the given slot width and
// slot count inside txn and returns it bound to its new handle.
func Alloc(txn *store.Txn, bits uint, size uint64) (store.Handle, *Table) {
	words := wordsRequired(bits, size)
	h := txn.Alloc(words * 8)
	return h, &Table{pool: txn.Pool(), h: h, bits: bits, size: size, words: words}
}

// Open binds to a table that already exists at h.
func Open(pool store.ByteSource, h store.Handle, bits uint, size uint64) *Table {
	return &Table{pool: pool, h: h, bits: bits, size: size, words: wordsRequired(bits, size)}
}

// Size reports the number of slots in the table.
func (t *Table) Size() uint64 { return t.size }

// Handle returns the pool handle backing this table, for callers (such
// as a filter header) that need to persist it themselves.
func (t *Table) Handle() store.Handle { return t.h }

func (t *Table) wordBytes(word uint64) []byte {
	b := t.pool.Bytes(t.h)
	return b[word*8 : word*8+8]
}

// Get reads slot idx's raw bits-wide value.
func (t *Table) Get(idx uint64) uint64 {
	bitpos := idx * uint64(t.bits)
	word := bitpos / bitsPerWord
	bitoff := bitpos % bitsPerWord

	lo := binary.LittleEndian.Uint64(t.wordBytes(word))
	val := lo >> bitoff

	spill := int64(bitoff) + int64(t.bits) - bitsPerWord
	if spill > 0 {
		hi := binary.LittleEndian.Uint64(t.wordBytes(word + 1))
		mask := (uint64(1) << uint(spill)) - 1
		val |= (hi & mask) << (uint64(t.bits) - uint64(spill))
	}
	return val & elemMask(t.bits)
}

// Set writes val (masked to bits wide) into slot idx. The caller must
// have already logged the affected word range with txn.LogRange; Set
// itself only performs the read-modify-write.
func (t *Table) Set(txn *store.Txn, idx uint64, val uint64) {
	val &= elemMask(t.bits)
	bitpos := idx * uint64(t.bits)
	word := bitpos / bitsPerWord
	bitoff := bitpos % bitsPerWord

	loBytes := t.wordBytes(word)
	lo := binary.LittleEndian.Uint64(loBytes)
	loMask := elemMask(t.bits) << bitoff
	lo = (lo &^ loMask) | ((val << bitoff) & loMask)
	binary.LittleEndian.PutUint64(loBytes, lo)

	spill := int64(bitoff) + int64(t.bits) - bitsPerWord
	if spill > 0 {
		hiBytes := t.wordBytes(word + 1)
		hi := binary.LittleEndian.Uint64(hiBytes)
		hiMask := (uint64(1) << uint(spill)) - 1
		hi = (hi &^ hiMask) | (val >> (uint64(t.bits) - uint64(spill)) & hiMask)
		binary.LittleEndian.PutUint64(hiBytes, hi)
	}
}

// LogSlot logs the word range slot idx lives in so a subsequent Set is
// part of the transaction's undo/redo set.
func (t *Table) LogSlot(txn *store.Txn, idx uint64) {
	bitpos := idx * uint64(t.bits)
	word := bitpos / bitsPerWord
	bitoff := bitpos % bitsPerWord
	n := uint64(8)
	if int64(bitoff)+int64(t.bits)-bitsPerWord > 0 {
		n = 16
	}
	txn.LogRange(t.h, word*8, n)
}

// Clear logs and zeroes the whole table in one range.
func (t *Table) Clear(txn *store.Txn) {
	txn.LogRange(t.h, 0, t.words*8)
	b := t.pool.Bytes(t.h)[:t.words*8]
	for i := range b {
		b[i] = 0
	}
}

func elemMask(bits uint) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}
