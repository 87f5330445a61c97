// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package pqf

import (
	"encoding/binary"

	"github.com/go-pqf/pqf/internal/store"
	"github.com/go-pqf/pqf/internal/table"
)

// Snapshot is a read-only, lock-free view of a filter as of its pool's
// last checkpoint: it opens the checkpoint file directly instead of
// taking the pool's flock, so a reader never blocks on or contends with
// a live writer. The tradeoff is staleness: a Snapshot can lag the most
// recently committed insert or remove by up to one checkpoint interval,
// since it never consults the write-ahead log.
type Snapshot struct {
	pool   *store.SnapshotPool
	header store.Handle
	table  *table.Table

	q, r, elemBits uint
	maxSize        uint64
	indexMask      uint64
	rMask          uint64
	entries        uint64
}

// OpenSnapshot opens path's last checkpoint read-only and binds to the
// filter registered under name. It returns ErrNotFound if the checkpoint
// has no such binding.
func OpenSnapshot(path, name string) (*Snapshot, error) {
	pool, err := store.OpenSnapshotPool(path)
	if err != nil {
		return nil, err
	}
	if pool.Empty() {
		return nil, ErrNotFound
	}
	root := store.OpenSnapshotRoot(pool)
	h, ok := root.Bind(name)
	if !ok {
		return nil, ErrNotFound
	}

	s := &Snapshot{pool: pool, header: h}
	s.readHeader()
	return s, nil
}

func (s *Snapshot) readHeader() {
	buf := s.pool.Bytes(s.header)[:headerSize]
	s.q = uint(binary.LittleEndian.Uint64(buf[0:8]))
	s.r = uint(binary.LittleEndian.Uint64(buf[8:16]))
	s.entries = binary.LittleEndian.Uint64(buf[16:24])
	s.maxSize = binary.LittleEndian.Uint64(buf[24:32])
	tableHandle := store.Handle(binary.LittleEndian.Uint64(buf[32:40]))
	s.elemBits = s.r + 3
	s.indexMask = mask(s.q)
	s.rMask = mask(s.r)
	s.table = table.Open(s.pool, tableHandle, s.elemBits, s.maxSize)
}

// QBits reports the number of quotient bits the filter was initialized
// with.
func (s *Snapshot) QBits() uint { return s.q }

// RBits reports the number of remainder bits the filter was initialized
// with.
func (s *Snapshot) RBits() uint { return s.r }

// Size reports the number of slots in the filter (2^q).
func (s *Snapshot) Size() uint64 { return s.maxSize }

// Entries reports the number of distinct fingerprints as of the last
// checkpoint.
func (s *Snapshot) Entries() uint64 { return s.entries }

func (s *Snapshot) read(i uint64) elt {
	return elt(s.table.Get(i))
}

func (s *Snapshot) findRun(fq uint64) uint64 {
	return findRunAt(fq, s.maxSize, s.read)
}

// MayContain reports whether hash may have been inserted, as of the
// snapshot's checkpoint. It shares Filter.MayContain's run-walk logic
// via the mayContain helper rather than duplicating it.
func (s *Snapshot) MayContain(hash uint64) bool {
	return mayContain(hash, s.r, s.indexMask, s.rMask, s.maxSize, s.read, s.findRun)
}

// SlotAt reports raw slot i's metadata bits and remainder, the same
// accessor Filter exposes for internal/check's consistency walker.
func (s *Snapshot) SlotAt(i uint64) (occupied, continuation, shifted bool, remainder uint64) {
	e := s.read(i)
	return e.occupied(), e.continuation(), e.shifted(), e.remainder()
}
