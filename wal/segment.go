// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file implements the segmented WAL's on-disk segment format (spec
// §3.3, §4.3, §6.3), generalizing the WAL record layout of the teacher's
// pkg/metricstore/walCheckpoint.go (magic-prefixed, CRC32-protected binary
// records) to a segmented, LSN-ordered log with a checksum-covered header.
//
// # Segment file layout
//
//	header (fixed size, see segmentHeader)
//	entry 0
//	entry 1
//	...
//
// # Entry layout (little-endian, fixed order)
//
//	lsn (u64) | entry_size (u32) | crc32 (u32) | kind (u32) |
//	timestamp_ms (u64) | payload (entry_size bytes)
//
// crc32 covers payload only; the entry header is checked structurally
// (kind in range, size fits remaining segment) rather than checksummed,
// matching spec §4.3.
package wal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/syloe1/kv-db-sub001/kvdberr"
)

const (
	segmentMagic   uint32 = 0x57414C53 // "WALS"
	segmentVersion uint32 = 1

	// segmentHeaderSize is the fixed on-disk size of segmentHeader:
	// magic,version(4+4) + segment_id,start_lsn,end_lsn(8*3) +
	// entry_count(4) + segment_bytes(8) + created_ms(8) +
	// header_crc32,data_crc32(4+4) + reserved[6]*4.
	segmentHeaderSize = 4 + 4 + 8 + 8 + 8 + 4 + 8 + 8 + 4 + 4 + 6*4
)

// EntryKind mirrors spec §3.3's WALEntry.kind.
type EntryKind uint32

const (
	KindPut EntryKind = iota
	KindDel
	KindTxnBegin
	KindTxnCommit
	KindTxnAbort
)

func (k EntryKind) valid() bool { return k <= KindTxnAbort }

// Entry is one WALEntry (spec §3.3).
type Entry struct {
	LSN         uint64
	Kind        EntryKind
	TimestampMs uint64
	Payload     []byte
	CRC32       uint32
}

// segmentHeader is the segment file's fixed-size header (spec §3.3, §6.3).
type segmentHeader struct {
	Magic        uint32
	Version      uint32
	SegmentID    uint64
	StartLSN     uint64
	EndLSN       uint64
	EntryCount   uint32
	SegmentBytes uint64
	CreatedMs    uint64
	HeaderCRC32  uint32
	DataCRC32    uint32
	Reserved     [6]uint32
}

func segmentPath(dir string, id uint64) string {
	return filepath.Join(dir, fmt.Sprintf("wal_segment_%d.seg", id))
}

func encodeHeader(h segmentHeader) []byte {
	buf := make([]byte, segmentHeaderSize)
	off := 0
	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[off:], v)
		off += 4
	}
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[off:], v)
		off += 8
	}
	putU32(h.Magic)
	putU32(h.Version)
	putU64(h.SegmentID)
	putU64(h.StartLSN)
	putU64(h.EndLSN)
	putU32(h.EntryCount)
	putU64(h.SegmentBytes)
	putU64(h.CreatedMs)
	putU32(h.HeaderCRC32)
	putU32(h.DataCRC32)
	for _, r := range h.Reserved {
		putU32(r)
	}
	return buf
}

// headerCRCRegion returns the header bytes with the header_crc32 field
// zeroed, matching spec §3.3: "header_crc32 covers the header with the
// crc32 field zeroed/excluded".
func headerCRCRegion(h segmentHeader) []byte {
	h.HeaderCRC32 = 0
	return encodeHeader(h)
}

func decodeHeader(buf []byte) (segmentHeader, error) {
	if len(buf) < segmentHeaderSize {
		return segmentHeader{}, fmt.Errorf("%w: short segment header", kvdberr.ErrCorrupted)
	}
	var h segmentHeader
	off := 0
	getU32 := func() uint32 {
		v := binary.LittleEndian.Uint32(buf[off:])
		off += 4
		return v
	}
	getU64 := func() uint64 {
		v := binary.LittleEndian.Uint64(buf[off:])
		off += 8
		return v
	}
	h.Magic = getU32()
	h.Version = getU32()
	h.SegmentID = getU64()
	h.StartLSN = getU64()
	h.EndLSN = getU64()
	h.EntryCount = getU32()
	h.SegmentBytes = getU64()
	h.CreatedMs = getU64()
	h.HeaderCRC32 = getU32()
	h.DataCRC32 = getU32()
	for i := range h.Reserved {
		h.Reserved[i] = getU32()
	}
	if h.Magic != segmentMagic {
		return segmentHeader{}, fmt.Errorf("%w: bad segment magic", kvdberr.ErrCorrupted)
	}
	if h.Version > segmentVersion {
		return segmentHeader{}, fmt.Errorf("%w: segment version %d newer than supported %d", kvdberr.ErrCorrupted, h.Version, segmentVersion)
	}
	if crc32.ChecksumIEEE(headerCRCRegion(h)) != h.HeaderCRC32 {
		return segmentHeader{}, fmt.Errorf("%w: segment header checksum mismatch", kvdberr.ErrCorrupted)
	}
	return h, nil
}

func encodeEntry(e Entry) []byte {
	buf := make([]byte, 8+4+4+4+8+len(e.Payload))
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], e.LSN)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(e.Payload)))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], e.CRC32)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(e.Kind))
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], e.TimestampMs)
	off += 8
	copy(buf[off:], e.Payload)
	return buf
}

// readEntry reads one entry from r. io.EOF at the very start of an entry
// means "no more entries". Any other truncation or CRC mismatch returns
// ErrPartialSegment so the caller can stop replay for this segment without
// failing the whole log (spec §4.3 failure semantics).
func readEntry(r io.Reader, remaining int64) (Entry, int64, error) {
	hdr := make([]byte, 8+4+4+4+8)
	n, err := io.ReadFull(r, hdr)
	if err == io.EOF && n == 0 {
		return Entry{}, remaining, io.EOF
	}
	if err != nil {
		return Entry{}, remaining, fmt.Errorf("%w: truncated entry header", kvdberr.ErrPartialSegment)
	}
	off := 0
	lsn := binary.LittleEndian.Uint64(hdr[off:])
	off += 8
	size := binary.LittleEndian.Uint32(hdr[off:])
	off += 4
	crc := binary.LittleEndian.Uint32(hdr[off:])
	off += 4
	kind := binary.LittleEndian.Uint32(hdr[off:])
	off += 4
	ts := binary.LittleEndian.Uint64(hdr[off:])

	if !EntryKind(kind).valid() {
		return Entry{}, remaining, fmt.Errorf("%w: kind %d out of range", kvdberr.ErrPartialSegment, kind)
	}
	if int64(size) > remaining-int64(len(hdr)) {
		return Entry{}, remaining, fmt.Errorf("%w: entry size %d exceeds remaining segment bytes", kvdberr.ErrPartialSegment, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Entry{}, remaining, fmt.Errorf("%w: truncated entry payload", kvdberr.ErrPartialSegment)
	}
	if crc32.ChecksumIEEE(payload) != crc {
		return Entry{}, remaining, fmt.Errorf("%w: entry crc32 mismatch at lsn %d", kvdberr.ErrPartialSegment, lsn)
	}

	e := Entry{LSN: lsn, Kind: EntryKind(kind), TimestampMs: ts, Payload: payload, CRC32: crc}
	return e, remaining - int64(len(hdr)) - int64(size), nil
}

func openForRead(dir string, id uint64) (*os.File, segmentHeader, error) {
	f, err := os.Open(segmentPath(dir, id))
	if err != nil {
		return nil, segmentHeader{}, err
	}
	buf := make([]byte, segmentHeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		f.Close()
		return nil, segmentHeader{}, fmt.Errorf("%w: %v", kvdberr.ErrCorrupted, err)
	}
	h, err := decodeHeader(buf)
	if err != nil {
		f.Close()
		return nil, segmentHeader{}, err
	}
	return f, h, nil
}
