// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package pqf

import (
	"path/filepath"
	"testing"

	"github.com/go-pqf/pqf/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestOpenSnapshotSeesEverythingAsOfLastCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	pool, err := store.Open(path)
	assert.NoError(t, err)

	root, err := store.OpenRoot(pool)
	assert.NoError(t, err)
	f, err := Init(pool, root, "test", 6, 8)
	assert.NoError(t, err)

	for _, s := range testStrings {
		f.Insert(hashOf(s))
	}
	assert.NoError(t, pool.Close()) // folds the WAL into a checkpoint

	snap, err := OpenSnapshot(path, "test")
	assert.NoError(t, err)
	assert.Equal(t, f.QBits(), snap.QBits())
	assert.Equal(t, f.RBits(), snap.RBits())
	assert.Equal(t, f.Entries(), snap.Entries())

	for _, s := range testStrings {
		assert.True(t, snap.MayContain(hashOf(s)), "%q missing from snapshot", s)
	}
	assert.False(t, snap.MayContain(hashOf("never-inserted")))
}

func TestOpenSnapshotBeforeAnyCheckpointFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	_, err := OpenSnapshot(path, "test")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenSnapshotUnknownNameFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	pool, err := store.Open(path)
	assert.NoError(t, err)
	root, err := store.OpenRoot(pool)
	assert.NoError(t, err)
	_, err = Init(pool, root, "test", 4, 8)
	assert.NoError(t, err)
	assert.NoError(t, pool.Close())

	_, err = OpenSnapshot(path, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestOpenSnapshotIsStaleUntilNextCheckpoint captures the documented
// tradeoff directly: a Snapshot opened before a later checkpoint stays
// frozen at the entry count it saw, even once the live pool has moved
// past it.
func TestOpenSnapshotIsStaleUntilNextCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	pool, err := store.Open(path)
	assert.NoError(t, err)
	root, err := store.OpenRoot(pool)
	assert.NoError(t, err)
	f, err := Init(pool, root, "test", 6, 8)
	assert.NoError(t, err)

	f.Insert(hashOf("red"))
	assert.NoError(t, pool.Close())

	before, err := OpenSnapshot(path, "test")
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), before.Entries())

	pool2, err := store.Open(path)
	assert.NoError(t, err)
	root2, err := store.OpenRoot(pool2)
	assert.NoError(t, err)
	f2, err := Open(pool2, root2, "test")
	assert.NoError(t, err)
	f2.Insert(hashOf("blue"))
	assert.NoError(t, pool2.Close())

	after, err := OpenSnapshot(path, "test")
	assert.NoError(t, err)

	assert.Equal(t, uint64(1), before.Entries()) // unchanged: already opened
	assert.Equal(t, uint64(2), after.Entries())  // fresh open sees the new checkpoint
	assert.False(t, before.MayContain(hashOf("blue")))
	assert.True(t, after.MayContain(hashOf("blue")))
}

func TestSnapshotSlotAtMatchesFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	pool, err := store.Open(path)
	assert.NoError(t, err)
	root, err := store.OpenRoot(pool)
	assert.NoError(t, err)
	f, err := Init(pool, root, "test", 5, 8)
	assert.NoError(t, err)
	for _, s := range testStrings {
		f.Insert(hashOf(s))
	}
	assert.NoError(t, pool.Close())

	snap, err := OpenSnapshot(path, "test")
	assert.NoError(t, err)

	pool2, err := store.Open(path)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = pool2.Close() })
	root2, err := store.OpenRoot(pool2)
	assert.NoError(t, err)
	reopened, err := Open(pool2, root2, "test")
	assert.NoError(t, err)

	for i := uint64(0); i < snap.Size(); i++ {
		wantO, wantC, wantS, wantR := reopened.SlotAt(i)
		gotO, gotC, gotS, gotR := snap.SlotAt(i)
		assert.Equal(t, wantO, gotO, "slot %d occupied", i)
		assert.Equal(t, wantC, gotC, "slot %d continuation", i)
		assert.Equal(t, wantS, gotS, "slot %d shifted", i)
		assert.Equal(t, wantR, gotR, "slot %d remainder", i)
	}
}
