package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/natefinch/atomic"
)

// snapshotMagic/Version frame the checkpoint file the same way
// serialize.go's QFHeader frames a quotient filter: a fixed magic,
// a version, then the payload.
var snapshotMagic = [4]byte{'P', 'Q', 'F', 'S'}

const snapshotVersion = uint32(1)

func writeSnapshot(path string, arena []byte) error {
	var buf bytes.Buffer
	buf.Write(snapshotMagic[:])
	_ = binary.Write(&buf, binary.LittleEndian, snapshotVersion)
	_ = binary.Write(&buf, binary.LittleEndian, uint64(len(arena)))
	buf.Write(arena)
	_ = binary.Write(&buf, binary.LittleEndian, crc32.ChecksumIEEE(arena))

	// atomic.WriteFile replaces the checkpoint file in one rename so a
	// crash mid-write never leaves a partially-written snapshot behind,
	// the same guarantee calvinalkan-agent-task relies on for its
	// binary cache file.
	return atomic.WriteFile(path, &buf)
}

// SnapshotPool is a read-only, lock-free view of a pool as of its last
// checkpoint. It never opens the WAL and never takes the flock a writer
// holds, so opening one cannot block on or contend with a live writer,
// traded off against only ever seeing data as fresh as the last
// checkpoint rather than the latest committed transaction.
type SnapshotPool struct {
	arena []byte
}

// OpenSnapshotPool reads path's checkpoint file directly into memory.
// It returns a nil arena, no error, for a pool that has never
// checkpointed (mirroring readSnapshot's own not-yet-written case).
func OpenSnapshotPool(path string) (*SnapshotPool, error) {
	arena, err := readSnapshot(path)
	if err != nil {
		return nil, err
	}
	return &SnapshotPool{arena: arena}, nil
}

// Bytes returns a read-only view of h's bytes. Writing through it does
// not corrupt the underlying file (the bytes were copied into memory by
// OpenSnapshotPool) but does defeat the point of a read-only view.
func (p *SnapshotPool) Bytes(h Handle) []byte {
	return p.arena[h:]
}

// Empty reports whether the pool has never checkpointed, in which case
// there is no root object (or anything else) to read yet.
func (p *SnapshotPool) Empty() bool {
	return len(p.arena) == 0
}

func readSnapshot(path string) (arena []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	if magic != snapshotMagic {
		return nil, fmt.Errorf("store: bad snapshot magic in %s", path)
	}
	var version uint32
	if err := binary.Read(f, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("store: snapshot version mismatch in %s: got %d, want %d", path, version, snapshotVersion)
	}
	var length uint64
	if err := binary.Read(f, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, err
	}
	var sum uint32
	if err := binary.Read(f, binary.LittleEndian, &sum); err != nil {
		return nil, err
	}
	if crc32.ChecksumIEEE(data) != sum {
		return nil, fmt.Errorf("store: checksum mismatch reading snapshot %s", path)
	}
	return data, nil
}
