package store

import (
	"fmt"
	"os"
)

// checkpointThreshold bounds how large the WAL is allowed to grow before
// a Commit folds it back into the checkpoint snapshot. Keeping it small
// favors fast recovery (little to replay) over commit latency, which
// suits a filter whose mutating operations are already small.
const checkpointThreshold = 1 << 20 // 1 MiB

// ByteSource is the minimal read surface internal/table needs to back a
// slot array. Both a live, writable Pool and a read-only SnapshotPool
// satisfy it, so the same Table type serves reads from either one.
type ByteSource interface {
	Bytes(Handle) []byte
}

// Pool is the persistent-memory pool collaborator: a byte-addressable
// arena, checkpointed to a snapshot file and protected between
// checkpoints by a write-ahead log, with flock-based single-writer
// exclusion across processes.
type Pool struct {
	path    string
	walPath string

	lock *fileLock
	wal  *os.File

	arena    []byte
	walBytes int64
	nextTxn  uint64
	closed   bool
}

// Open opens or creates a pool at path. If a prior process crashed
// mid-transaction, any WAL record that did not finish writing (and
// checksumming) is discarded; every record that did is replayed over
// the last checkpoint before Open returns.
func Open(path string) (*Pool, error) {
	lock, err := acquireLock(path)
	if err != nil {
		return nil, err
	}

	arena, err := readSnapshot(path)
	if err != nil {
		_ = lock.release()
		return nil, err
	}

	walPath := path + ".wal"
	wal, err := os.OpenFile(walPath, os.O_CREATE|os.O_RDWR, filePerms)
	if err != nil {
		_ = lock.release()
		return nil, fmt.Errorf("store: open wal: %w", err)
	}

	arena, applied, err := replayWAL(wal, arena)
	if err != nil {
		_ = wal.Close()
		_ = lock.release()
		return nil, err
	}

	p := &Pool{
		path:    path,
		walPath: walPath,
		lock:    lock,
		wal:     wal,
		arena:   arena,
	}

	if applied > 0 {
		// fold the replayed records back into the checkpoint so a
		// second crash during the next session has a clean baseline.
		if err := p.checkpoint(); err != nil {
			_ = wal.Close()
			_ = lock.release()
			return nil, err
		}
	} else if err := resetWAL(wal); err != nil {
		_ = wal.Close()
		_ = lock.release()
		return nil, err
	}

	return p, nil
}

// Bytes returns a direct-addressed view of h's bytes. The slice aliases
// the pool's arena: writes through it are only crash-safe when made
// inside a transaction that has logged the same range with LogRange.
func (p *Pool) Bytes(h Handle) []byte {
	return p.arena[h:]
}

func (p *Pool) grow(n uint64) Handle {
	offset := Handle(len(p.arena))
	p.arena = append(p.arena, make([]byte, n)...)
	return offset
}

func (p *Pool) checkpoint() error {
	if err := writeSnapshot(p.path, p.arena); err != nil {
		return err
	}
	if err := resetWAL(p.wal); err != nil {
		return err
	}
	p.walBytes = 0
	return nil
}

// Close flushes any pending WAL growth into a checkpoint and releases
// the pool's exclusive lock.
func (p *Pool) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.walBytes > 0 {
		if err := p.checkpoint(); err != nil {
			_ = p.wal.Close()
			_ = p.lock.release()
			return err
		}
	}
	if err := p.wal.Close(); err != nil {
		_ = p.lock.release()
		return err
	}
	return p.lock.release()
}

// Begin opens a new transaction against the pool.
func (p *Pool) Begin() *Txn {
	p.nextTxn++
	return &Txn{pool: p, id: p.nextTxn}
}
