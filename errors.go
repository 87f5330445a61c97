// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package pqf

import "errors"

// Sentinel errors surfaced on the handful of paths that need to tell
// "bad parameters" apart from "allocator exhausted" — Insert, Remove and
// MayContain stay plain booleans per their table of inputs/results, but
// Init and Merge can fail for more than one reason and callers that want
// to log which one can check these with errors.Is. ErrFull and
// ErrMalformedHash name, rather than return, the two conditions behind
// Insert's and Remove's false cases, so a caller wrapping either in its
// own non-boolean API has a sentinel to attach instead of inventing one.
var (
	// ErrInvalidParams is returned by Init when q == 0, r == 0, or
	// q+r > 64.
	ErrInvalidParams = errors.New("pqf: invalid q/r parameters")
	// ErrFull names the condition behind Insert's false return: the
	// filter already held maxSize entries before the call.
	ErrFull = errors.New("pqf: filter at capacity")
	// ErrMalformedHash names the condition behind Remove's false
	// return: hash has a bit set above position q+r, so honoring it
	// could delete a narrower, colliding fingerprint the caller never
	// inserted.
	ErrMalformedHash = errors.New("pqf: hash has bits set above q+r")
	// ErrPoolExhausted is returned by Init or Merge when the transaction
	// holding the new allocation fails to commit to the pool. The pool's
	// Alloc itself never fails.
	ErrPoolExhausted = errors.New("pqf: pool allocation failed")
	// ErrNotFound is returned by Open when the root has no binding for
	// the requested name.
	ErrNotFound = errors.New("pqf: no filter bound to that name")
)
