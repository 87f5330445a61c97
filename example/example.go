// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package main

import (
	"fmt"
	"os"

	"github.com/go-pqf/pqf"
	"github.com/go-pqf/pqf/internal/randhash"
	"github.com/go-pqf/pqf/internal/store"
)

func main() {
	// Sizing: pick q/r ahead of time from an expected entry count,
	// the same way a caller would size a batch-loaded filter.
	fmt.Printf("Example of analyzing size requirements:\n")
	sizing := pqf.Describe(pqf.Recommend(1_000_000, 8))
	fmt.Printf("a million-entry filter would need: %s (%.1f%% loaded)\n",
		sizing, sizing.ExpectedLoading(1_000_000))

	path := "example.pqf"
	defer os.Remove(path)
	defer os.Remove(path + ".wal")

	pool, err := store.Open(path)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	root, err := store.OpenRoot(pool)
	if err != nil {
		panic(err)
	}

	fmt.Printf("\nExample of loading and using a small persistent filter:\n")
	data := []string{"red", "yellow", "orange", "blue"}

	q, r := pqf.Recommend(uint64(len(data)), 8)
	f, err := pqf.Init(pool, root, "colors", q, r)
	if err != nil {
		panic(err)
	}

	for _, color := range data {
		f.Insert(randhash.Murmur64([]byte(color)))
	}

	for _, color := range []string{
		"red", "orange", "yellow", "green", "blue", "indigo", "violet",
	} {
		fmt.Printf("%s: %t\n", color, f.MayContain(randhash.Murmur64([]byte(color))))
	}

	// Dump the whole filter in textual form.
	f.DebugDump(true)

	// Reopen the pool in a fresh process-like handle and confirm the
	// filter survives, rebound from the root object rather than a
	// pointer kept around in memory.
	if err := pool.Close(); err != nil {
		panic(err)
	}
	pool, err = store.Open(path)
	if err != nil {
		panic(err)
	}
	root, err = store.OpenRoot(pool)
	if err != nil {
		panic(err)
	}
	reopened, err := pqf.Open(pool, root, "colors")
	if err != nil {
		panic(err)
	}
	fmt.Printf("after reopen, red: %t\n", reopened.MayContain(randhash.Murmur64([]byte("red"))))

	// Remove rejects bits above q+r, so pass only the fingerprint bits.
	redFP := randhash.Murmur64([]byte("red")) & (uint64(1)<<(reopened.QBits()+reopened.RBits()) - 1)
	reopened.Remove(redFP)
	fmt.Printf("after remove, red: %t\n", reopened.MayContain(randhash.Murmur64([]byte("red"))))
}
