// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package pqf

import (
	"path/filepath"
	"testing"

	"github.com/go-pqf/pqf/internal/check"
	"github.com/go-pqf/pqf/internal/randhash"
	"github.com/go-pqf/pqf/internal/store"
	"github.com/stretchr/testify/assert"
)

// testStrings mirrors the kind of short, varied token set a real caller
// would insert: punctuation, repeats, and mixed case/length.
var testStrings = []string{
	"red", "yellow", "orange", "blue", "green", "indigo", "violet",
	"a", "a", "ab", "abc", "quotient", "remainder", "filter!",
	"5", "5.5", "90mb", "(fast)", "I", "I'm", "I've",
}

func newTestFilter(t *testing.T, q, r uint) (*Filter, *store.Pool) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pqf")
	pool, err := store.Open(path)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	root, err := store.OpenRoot(pool)
	assert.NoError(t, err)

	f, err := Init(pool, root, "test", q, r)
	assert.NoError(t, err)
	return f, pool
}

func hashOf(s string) uint64 {
	return randhash.Murmur64([]byte(s))
}

func assertConsistent(t *testing.T, f *Filter) {
	t.Helper()
	violations := check.Walk(f)
	for _, v := range violations {
		t.Errorf("invariant violation: %s", v.String())
	}
}

func TestInitRejectsInvalidParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	pool, err := store.Open(path)
	assert.NoError(t, err)
	defer pool.Close()
	root, err := store.OpenRoot(pool)
	assert.NoError(t, err)

	_, err = Init(pool, root, "bad", 0, 8)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = Init(pool, root, "bad", 4, 0)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = Init(pool, root, "bad", 40, 40)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestInitThenOpenRebinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	pool, err := store.Open(path)
	assert.NoError(t, err)
	defer pool.Close()
	root, err := store.OpenRoot(pool)
	assert.NoError(t, err)

	_, err = Init(pool, root, "colors", 6, 8)
	assert.NoError(t, err)

	reopened, err := Open(pool, root, "colors")
	assert.NoError(t, err)
	assert.Equal(t, uint(6), reopened.QBits())
	assert.Equal(t, uint(8), reopened.RBits())
}

func TestOpenUnknownNameFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	pool, err := store.Open(path)
	assert.NoError(t, err)
	defer pool.Close()
	root, err := store.OpenRoot(pool)
	assert.NoError(t, err)

	_, err = Open(pool, root, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertThenMayContain(t *testing.T) {
	f, _ := newTestFilter(t, 6, 8)
	for _, s := range testStrings {
		assert.True(t, f.Insert(hashOf(s)))
	}
	assertConsistent(t, f)
	for _, s := range testStrings {
		assert.True(t, f.MayContain(hashOf(s)), "%q missing after insertion", s)
	}
}

func TestMayContainFalseForNeverInserted(t *testing.T) {
	f, _ := newTestFilter(t, 6, 8)
	f.Insert(hashOf("red"))
	assert.False(t, f.MayContain(hashOf("completely-different-and-absent")))
}

func TestInsertIsIdempotent(t *testing.T) {
	f, _ := newTestFilter(t, 6, 8)
	h := hashOf("repeat-me")
	assert.True(t, f.Insert(h))
	before := f.Entries()
	assert.True(t, f.Insert(h))
	assert.Equal(t, before, f.Entries())
	assertConsistent(t, f)
}

func TestInsertRejectsWhenFull(t *testing.T) {
	f, _ := newTestFilter(t, 2, 4) // 4 slots
	for i := uint64(0); i < f.Size(); i++ {
		assert.True(t, f.Insert(i))
	}
	assert.False(t, f.Insert(uint64(f.Size())))
	assert.Equal(t, f.Size(), f.Entries())
}

func TestClearResetsToEmpty(t *testing.T) {
	f, _ := newTestFilter(t, 6, 8)
	for _, s := range testStrings {
		f.Insert(hashOf(s))
	}
	f.Clear()
	assert.Equal(t, uint64(0), f.Entries())
	for _, s := range testStrings {
		assert.False(t, f.MayContain(hashOf(s)))
	}
	assertConsistent(t, f)
}

func TestFilterSurvivesPoolReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	pool, err := store.Open(path)
	assert.NoError(t, err)
	root, err := store.OpenRoot(pool)
	assert.NoError(t, err)

	f, err := Init(pool, root, "colors", 6, 8)
	assert.NoError(t, err)
	distinct := map[string]bool{} // testStrings repeats "a"; duplicates are not counted
	for _, s := range testStrings {
		f.Insert(hashOf(s))
		distinct[s] = true
	}
	assert.NoError(t, pool.Close())

	pool2, err := store.Open(path)
	assert.NoError(t, err)
	defer pool2.Close()
	root2, err := store.OpenRoot(pool2)
	assert.NoError(t, err)

	reopened, err := Open(pool2, root2, "colors")
	assert.NoError(t, err)
	assert.Equal(t, uint64(len(distinct)), reopened.Entries())
	for _, s := range testStrings {
		assert.True(t, reopened.MayContain(hashOf(s)), "%q missing after reopen", s)
	}
	assertConsistent(t, reopened)
}

func TestTableSizeMatchesDescribe(t *testing.T) {
	q, r := uint(6), uint(8)
	assert.Equal(t, TableSize(q, r), Describe(q, r).TableBytes)
}
