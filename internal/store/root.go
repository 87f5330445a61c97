package store

import "encoding/binary"

// rootSlotSize reserves generous room for a handful of named handles —
// this pool only ever roots one or two filters at a time.
const rootSlotSize = 4096

const rootEntrySize = 2 + 40 + 8 // name length + name + handle

// Root is the caller-persisted root object: a small table of name ->
// Handle bindings that lets a process rebind a filter handle after
// reopening the pool, mirroring libpmemobj's practice of a fixed set of
// named TOIDs reachable from a pool's root. pool only needs to satisfy
// ByteSource, so the same Root type also binds read-only names inside a
// SnapshotPool (see OpenSnapshotRoot).
type Root struct {
	pool   ByteSource
	handle Handle
}

// OpenRoot binds to the pool's root object, allocating it (at a fixed,
// always-first offset) if this is a brand-new pool.
func OpenRoot(pool *Pool) (*Root, error) {
	if len(pool.arena) == 0 {
		txn := pool.Begin()
		h := txn.Alloc(rootSlotSize)
		if err := txn.Commit(); err != nil {
			return nil, err
		}
		return &Root{pool: pool, handle: h}, nil
	}
	return &Root{pool: pool, handle: 0}, nil
}

type rootEntry struct {
	name   string
	handle Handle
}

func (r *Root) entries() []rootEntry {
	buf := r.pool.Bytes(r.handle)[:rootSlotSize]
	var out []rootEntry
	off := 0
	for off+rootEntrySize <= rootSlotSize {
		nameLen := binary.LittleEndian.Uint16(buf[off : off+2])
		if nameLen == 0 {
			break
		}
		name := string(buf[off+2 : off+2+int(nameLen)])
		h := binary.LittleEndian.Uint64(buf[off+2+40 : off+2+40+8])
		out = append(out, rootEntry{name: name, handle: Handle(h)})
		off += rootEntrySize
	}
	return out
}

// OpenSnapshotRoot binds to the root object inside a read-only
// SnapshotPool, for name lookups only. There is no Txn to obtain against
// a SnapshotPool, so Put can never be called meaningfully on the result.
func OpenSnapshotRoot(pool *SnapshotPool) *Root {
	return &Root{pool: pool, handle: 0}
}

// Bind looks up name's handle. The second return is false if no such
// name has been bound.
func (r *Root) Bind(name string) (Handle, bool) {
	for _, e := range r.entries() {
		if e.name == name {
			return e.handle, true
		}
	}
	return 0, false
}

// Put binds name to h as part of txn, overwriting any existing binding
// for name. The root slot has fixed capacity; Put panics if it is full,
// which a caller can only hit by rooting far more filters than this
// pool is meant for.
func (r *Root) Put(txn *Txn, name string, h Handle) {
	if len(name) > 40 {
		panic("store: root entry name too long")
	}
	existing := r.entries()
	replaced := false
	for i, e := range existing {
		if e.name == name {
			existing[i].handle = h
			replaced = true
			break
		}
	}
	if !replaced {
		existing = append(existing, rootEntry{name: name, handle: h})
	}

	buf := make([]byte, rootSlotSize)
	off := 0
	for _, e := range existing {
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(e.name)))
		copy(buf[off+2:off+2+len(e.name)], e.name)
		binary.LittleEndian.PutUint64(buf[off+2+40:off+2+40+8], uint64(e.handle))
		off += rootEntrySize
	}

	txn.LogRange(r.handle, 0, rootSlotSize)
	copy(txn.pool.Bytes(r.handle)[:rootSlotSize], buf)
}
