// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package pqf

import (
	"testing"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-pqf/pqf/internal/store"
)

// BenchmarkBloomFilterLookup gives a reference point for MayContain's
// cost against a plain in-memory bloom filter holding the same set.
func BenchmarkBloomFilterLookup(b *testing.B) {
	bf := bloom.NewWithEstimates(uint(len(testStrings)), 0.0001)
	for _, s := range testStrings {
		bf.AddString(s)
	}
	n := len(testStrings)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bf.TestString(testStrings[i%n])
	}
}

func BenchmarkFilterMayContain(b *testing.B) {
	path := b.TempDir() + "/bench.pqf"
	pool, err := store.Open(path)
	if err != nil {
		b.Fatal(err)
	}
	defer pool.Close()

	root, err := store.OpenRoot(pool)
	if err != nil {
		b.Fatal(err)
	}
	f, err := Init(pool, root, "bench", 10, 8)
	if err != nil {
		b.Fatal(err)
	}
	for _, s := range testStrings {
		f.Insert(hashOf(s))
	}
	n := len(testStrings)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.MayContain(hashOf(testStrings[i%n]))
	}
}
