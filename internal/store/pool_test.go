package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenCreatesEmptyPool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	p, err := Open(path)
	assert.NoError(t, err)
	defer p.Close()
	assert.Equal(t, 0, len(p.arena))
}

func TestCommitSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	p, err := Open(path)
	assert.NoError(t, err)

	txn := p.Begin()
	h := txn.Alloc(8)
	txn.LogRange(h, 0, 8)
	copy(p.Bytes(h)[:8], []byte("deadbeef"))
	assert.NoError(t, txn.Commit())
	assert.NoError(t, p.Close())

	p2, err := Open(path)
	assert.NoError(t, err)
	defer p2.Close()
	assert.Equal(t, []byte("deadbeef"), p2.Bytes(h)[:8])
}

func TestOpenRefusesSecondWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	p, err := Open(path)
	assert.NoError(t, err)
	defer p.Close()

	lock, err := acquireLock(path)
	assert.Error(t, err)
	assert.Nil(t, lock)
}

func TestCheckpointFoldsWALBackIn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	p, err := Open(path)
	assert.NoError(t, err)

	txn := p.Begin()
	h := txn.Alloc(4)
	txn.LogRange(h, 0, 4)
	copy(p.Bytes(h)[:4], []byte("abcd"))
	assert.NoError(t, txn.Commit())

	assert.NoError(t, p.checkpoint())
	assert.Equal(t, int64(0), p.walBytes)
	// walBytes is 0, so Close adds no checkpoint of its own; it only
	// releases the lock that a second Open would otherwise wait on.
	assert.NoError(t, p.Close())

	p2, err := Open(path)
	assert.NoError(t, err)
	defer p2.Close()
	assert.Equal(t, []byte("abcd"), p2.Bytes(h)[:4])
}
