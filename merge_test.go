// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package pqf

import (
	"path/filepath"
	"testing"

	"github.com/go-pqf/pqf/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMergeContainsEverythingFromBothInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	pool, err := store.Open(path)
	assert.NoError(t, err)
	defer pool.Close()
	root, err := store.OpenRoot(pool)
	assert.NoError(t, err)

	a, err := Init(pool, root, "a", 5, 8)
	assert.NoError(t, err)
	b, err := Init(pool, root, "b", 5, 8)
	assert.NoError(t, err)

	setA := testStrings[:len(testStrings)/2]
	setB := testStrings[len(testStrings)/2:]
	for _, s := range setA {
		a.Insert(hashOf(s))
	}
	for _, s := range setB {
		b.Insert(hashOf(s))
	}

	merged, err := Merge(pool, root, "merged", a, b)
	assert.NoError(t, err)
	assertConsistent(t, merged)

	// merged holds the inputs' (5+8)-bit fingerprints, re-inserted into a
	// wider quotient, so it is queried with those fingerprints.
	for _, s := range testStrings {
		fp := hashOf(s) & mask(a.q+a.r)
		assert.True(t, merged.MayContain(fp), "%q missing from merge", s)
	}

	// a and b are untouched.
	for _, s := range setA {
		assert.True(t, a.MayContain(hashOf(s)))
	}
	for _, s := range setB {
		assert.True(t, b.MayContain(hashOf(s)))
	}
}

func TestMergeSizesOutputAboveCombinedCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	pool, err := store.Open(path)
	assert.NoError(t, err)
	defer pool.Close()
	root, err := store.OpenRoot(pool)
	assert.NoError(t, err)

	a, err := Init(pool, root, "a", 4, 8)
	assert.NoError(t, err)
	b, err := Init(pool, root, "b", 6, 8)
	assert.NoError(t, err)

	merged, err := Merge(pool, root, "merged", a, b)
	assert.NoError(t, err)
	assert.Equal(t, uint(7), merged.QBits()) // 1 + max(4, 6)
	assert.Equal(t, uint(8), merged.RBits())  // max(8, 8)
}

func TestMergeBoundToOutNameIsOpenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pqf")
	pool, err := store.Open(path)
	assert.NoError(t, err)
	defer pool.Close()
	root, err := store.OpenRoot(pool)
	assert.NoError(t, err)

	a, err := Init(pool, root, "a", 4, 8)
	assert.NoError(t, err)
	b, err := Init(pool, root, "b", 4, 8)
	assert.NoError(t, err)
	a.Insert(hashOf("red"))

	_, err = Merge(pool, root, "merged", a, b)
	assert.NoError(t, err)

	reopened, err := Open(pool, root, "merged")
	assert.NoError(t, err)
	assert.True(t, reopened.MayContain(hashOf("red")))
}
