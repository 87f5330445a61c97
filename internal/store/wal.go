package store

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"
)

// walMagic marks the start of a write-ahead log file, mirroring the
// fixed magic/version header calvinalkan-agent-task's binary cache uses
// before trusting the bytes that follow it.
var walMagic = [4]byte{'P', 'Q', 'F', 'W'}

// walRange is one byte range touched by a committed transaction, carrying
// the post-mutation bytes so replay can redo it against a stale snapshot.
type walRange struct {
	offset uint64
	data   []byte
}

type walRecord struct {
	txnID  uint64
	ranges []walRange
}

// encode serializes a record without its length prefix or trailing
// checksum; those are added by appendRecord/replayWAL.
func (r walRecord) encode() []byte {
	buf := make([]byte, 0, 64)
	tmp := make([]byte, 8)

	binary.LittleEndian.PutUint64(tmp, r.txnID)
	buf = append(buf, tmp...)

	binary.LittleEndian.PutUint32(tmp[:4], uint32(len(r.ranges)))
	buf = append(buf, tmp[:4]...)

	for _, rg := range r.ranges {
		binary.LittleEndian.PutUint64(tmp, rg.offset)
		buf = append(buf, tmp...)
		binary.LittleEndian.PutUint32(tmp[:4], uint32(len(rg.data)))
		buf = append(buf, tmp[:4]...)
		buf = append(buf, rg.data...)
	}
	return buf
}

func decodeWALRecord(b []byte) (walRecord, bool) {
	if len(b) < 12 {
		return walRecord{}, false
	}
	r := walRecord{txnID: binary.LittleEndian.Uint64(b[0:8])}
	n := binary.LittleEndian.Uint32(b[8:12])
	off := 12
	for i := uint32(0); i < n; i++ {
		if off+12 > len(b) {
			return walRecord{}, false
		}
		offset := binary.LittleEndian.Uint64(b[off : off+8])
		length := binary.LittleEndian.Uint32(b[off+8 : off+12])
		off += 12
		if off+int(length) > len(b) {
			return walRecord{}, false
		}
		data := append([]byte(nil), b[off:off+int(length)]...)
		off += int(length)
		r.ranges = append(r.ranges, walRange{offset: offset, data: data})
	}
	if off != len(b) {
		return walRecord{}, false
	}
	return r, true
}

// appendRecord writes one length-prefixed, checksummed record to the WAL
// and fsyncs it. A crash after the fsync returns leaves the record fully
// durable; a crash during the write leaves a truncated tail that
// replayWAL discards.
func appendRecord(f *os.File, rec walRecord) error {
	payload := rec.encode()
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(payload)))
	sum := crc32.ChecksumIEEE(payload)
	sumBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sumBuf, sum)

	if _, err := f.Write(lenBuf); err != nil {
		return err
	}
	if _, err := f.Write(payload); err != nil {
		return err
	}
	if _, err := f.Write(sumBuf); err != nil {
		return err
	}
	return f.Sync()
}

// replayWAL reads every well-formed, checksum-valid record in order and
// applies its ranges to arena, growing it with zero fill as needed. The
// first record that fails to parse or checksum — the tail of a write
// interrupted by a crash — stops replay without error.
func replayWAL(f *os.File, arena []byte) ([]byte, int, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return arena, 0, err
	}
	var magic [4]byte
	n, err := io.ReadFull(f, magic[:])
	if err != nil || n < 4 || magic != walMagic {
		// empty or missing magic: nothing to replay.
		return arena, 0, nil
	}

	r := bufio.NewReader(f)
	applied := 0
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			break
		}
		length := binary.LittleEndian.Uint32(lenBuf[:])
		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			break
		}
		var sumBuf [4]byte
		if _, err := io.ReadFull(r, sumBuf[:]); err != nil {
			break
		}
		want := binary.LittleEndian.Uint32(sumBuf[:])
		if crc32.ChecksumIEEE(payload) != want {
			break
		}
		rec, ok := decodeWALRecord(payload)
		if !ok {
			break
		}
		for _, rg := range rec.ranges {
			end := rg.offset + uint64(len(rg.data))
			if end > uint64(len(arena)) {
				grown := make([]byte, end)
				copy(grown, arena)
				arena = grown
			}
			copy(arena[rg.offset:end], rg.data)
		}
		applied++
	}
	return arena, applied, nil
}

func resetWAL(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := f.Write(walMagic[:]); err != nil {
		return err
	}
	return f.Sync()
}
