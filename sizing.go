// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package pqf

import "fmt"

// MaxLoadingFactor bounds how full a filter should be allowed to get
// before lookups and inserts start walking long clusters; Recommend
// uses it to turn an expected entry count into quotient bits.
const MaxLoadingFactor = 0.65

// Recommend returns the (q, r) a caller should pass to Init to hold
// expectedEntries fingerprints at roughly MaxLoadingFactor occupancy,
// using rBits bits of remainder. It never recommends q below 2 (the
// minimum useful quotient width) nor q+r above 64.
func Recommend(expectedEntries uint64, rBits uint) (q, r uint) {
	q = uint(2)
	for x := uint64(1) << q; float64(x)*MaxLoadingFactor < float64(expectedEntries); x = uint64(1) << q {
		q++
	}
	r = rBits
	if q+r > 64 {
		r = 64 - q
	}
	return q, r
}

// Sizing reports the capacity and space characteristics of a (q, r)
// configuration without constructing a filter, for CLI/operator use.
type Sizing struct {
	QBits, RBits uint
	BucketCount  uint64
	TableBytes   uint64
}

// Describe computes a Sizing for (q, r).
func Describe(q, r uint) Sizing {
	return Sizing{
		QBits:       q,
		RBits:       r,
		BucketCount: uint64(1) << q,
		TableBytes:  TableSize(q, r),
	}
}

// ExpectedLoading reports the percentage loading expectedEntries would
// produce in a filter sized with s.QBits.
func (s Sizing) ExpectedLoading(expectedEntries uint64) float64 {
	return 100 * float64(expectedEntries) / float64(s.BucketCount)
}

func (s Sizing) String() string {
	return fmt.Sprintf("%d quotient bits (%d buckets), %d remainder bits, %s table",
		s.QBits, s.BucketCount, s.RBits, humanBytes(s.TableBytes))
}

func humanBytes(n uint64) string {
	v := float64(n)
	unit := "bytes"
	for _, u := range []string{"KB", "MB", "GB"} {
		if v < 1024 {
			break
		}
		v /= 1024
		unit = u
	}
	if v < 10 {
		return fmt.Sprintf("%0.2f %s", v, unit)
	} else if v < 100 {
		return fmt.Sprintf("%0.1f %s", v, unit)
	}
	return fmt.Sprintf("%0.0f %s", v, unit)
}
