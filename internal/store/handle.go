// Package store implements the persistent-memory pool collaborator that
// pqf's durability envelope is built on: typed allocation, byte-range
// undo-logging, and crash-atomic transactions, backed by an in-memory
// arena checkpointed to disk and a write-ahead log for the interval
// between checkpoints.
package store

// Handle is a byte offset into a Pool's arena, not an address. The arena
// is checkpointed and replayed byte for byte, so a handle keeps its
// numeric value across a close and reopen, and handles may be stored
// inside the pool (Root and pqf's filter header both do). The []byte
// view that Bytes returns for a handle is what must be derived again
// after a reopen. A Root (see root.go) gives callers a name to find a
// handle by after a restart.
type Handle uint64
