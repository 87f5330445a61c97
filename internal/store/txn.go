package store

// undo is a snapshot of a byte range taken before mutation so Abort can
// restore it verbatim.
type undo struct {
	offset uint64
	old    []byte
}

// allocUndo remembers how long the arena was before a Txn grew it, so
// Abort can cut the growth back off.
type allocUndo struct {
	priorLen uint64
}

// Txn is a transaction scope over a Pool: every byte range about to be
// mutated must be logged with LogRange first, so that Abort can restore
// the pool to its pre-transaction state and a successful Commit can
// describe exactly what changed to the write-ahead log.
type Txn struct {
	pool *Pool
	id   uint64

	undoLog    []undo
	allocUndos []allocUndo
	touched    []walRange

	onCommit []func()
	onAbort  []func()

	done bool
}

// Pool returns the pool this transaction runs against.
func (t *Txn) Pool() *Pool { return t.pool }

// LogRange snapshots the current contents of h[offset:offset+length]
// before the caller overwrites them. It must be called before every
// mutation; calling it more than once for overlapping ranges is safe,
// though this implementation does not deduplicate the extra snapshot.
func (t *Txn) LogRange(h Handle, offset, length uint64) {
	abs := uint64(h) + offset
	old := append([]byte(nil), t.pool.arena[abs:abs+length]...)
	t.undoLog = append(t.undoLog, undo{offset: abs, old: old})
	t.touched = append(t.touched, walRange{offset: abs, data: make([]byte, length)})
}

// Alloc reserves a fresh, zero-filled byte range from the pool and
// returns a handle to it. The new range is implicitly part of this
// transaction's redo set; on Abort the arena is truncated back to its
// pre-Alloc length.
func (t *Txn) Alloc(size uint64) Handle {
	priorLen := uint64(len(t.pool.arena))
	h := t.pool.grow(size)
	t.allocUndos = append(t.allocUndos, allocUndo{priorLen: priorLen})
	t.touched = append(t.touched, walRange{offset: uint64(h), data: make([]byte, size)})
	return h
}

// Free zeroes h's bytes and logs the range for undo. This pool never
// reclaims freed space for reuse (see DESIGN.md); it is a bump allocator
// whose only "free" is making the bytes read back as zero.
func (t *Txn) Free(h Handle, size uint64) {
	t.LogRange(h, 0, size)
	abs := uint64(h)
	for i := uint64(0); i < size; i++ {
		t.pool.arena[abs+i] = 0
	}
}

// OnCommit registers a callback run after a successful Commit.
func (t *Txn) OnCommit(fn func()) {
	t.onCommit = append(t.onCommit, fn)
}

// OnAbort registers a callback run after Abort (including an Abort
// triggered by Commit's own I/O failure).
func (t *Txn) OnAbort(fn func()) {
	t.onAbort = append(t.onAbort, fn)
}

// Commit durably records every logged range's current contents to the
// write-ahead log and, once the log has grown past checkpointThreshold,
// folds it back into the checkpoint snapshot. A crash after Commit
// returns is guaranteed to preserve all of this transaction's effects;
// a crash before is guaranteed to preserve none of them.
func (t *Txn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true

	for i := range t.touched {
		abs := t.touched[i].offset
		copy(t.touched[i].data, t.pool.arena[abs:abs+uint64(len(t.touched[i].data))])
	}

	if len(t.touched) > 0 {
		rec := walRecord{txnID: t.id, ranges: t.touched}
		if err := appendRecord(t.pool.wal, rec); err != nil {
			t.rollback()
			return err
		}
		t.pool.walBytes += int64(len(rec.encode()))
	}

	if t.pool.walBytes >= checkpointThreshold {
		if err := t.pool.checkpoint(); err != nil {
			return err
		}
	}

	for _, fn := range t.onCommit {
		fn()
	}
	return nil
}

// Abort undoes every logged mutation and every allocation this
// transaction made, in reverse order, and runs the registered abort
// callbacks. Nothing from an aborted transaction was ever written to
// the write-ahead log.
func (t *Txn) Abort() {
	if t.done {
		return
	}
	t.done = true
	t.rollback()
}

func (t *Txn) rollback() {
	for i := len(t.undoLog) - 1; i >= 0; i-- {
		u := t.undoLog[i]
		copy(t.pool.arena[u.offset:u.offset+uint64(len(u.old))], u.old)
	}
	for i := len(t.allocUndos) - 1; i >= 0; i-- {
		t.pool.arena = t.pool.arena[:t.allocUndos[i].priorLen]
	}
	for _, fn := range t.onAbort {
		fn()
	}
}
