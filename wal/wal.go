// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wal implements the segmented write-ahead log (spec §3.3, §4.3,
// §6.3): append-only, split into fixed-capacity segments, each with a
// checksum-covered header and CRC32-protected entries, handing out
// monotone LSNs on every write.
//
// Concurrency follows spec §5: a single mutex serializes append + LSN
// assignment so the tail stays linear and lsn stays strictly monotone.
package wal

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/syloe1/kv-db-sub001/kvdberr"
)

// DefaultMaxSegmentSize bounds a segment's entry payload area before
// rollover is triggered. Overridable via Options for tests (spec §8 scenario 2
// sets it to 1 KiB).
const DefaultMaxSegmentSize = 64 * 1024 * 1024

// Options configures a WAL instance.
type Options struct {
	Dir            string
	MaxSegmentSize int64
	// AutoFlush controls whether every write fsyncs the active segment
	// before returning. Default false: the spec (§9) leaves the default to
	// the implementer and only requires the policy to be documented and
	// testable. With AutoFlush off, the caller accepts losing at most one
	// segment's unflushed tail on crash (spec §5).
	AutoFlush bool
}

// WAL is a segmented write-ahead log.
type WAL struct {
	dir            string
	maxSegmentSize int64
	autoFlush      bool

	mu            sync.Mutex
	currentLSN    uint64
	nextSegmentID uint64
	active        *os.File
	activeHeader  segmentHeader
	activeBytes   int64 // bytes written to the active segment's entry area so far
}

// Open opens (or creates) a WAL rooted at opts.Dir, replaying wal_state.meta
// to recover currentLSN/nextSegmentID, and opens or creates the active
// (last, unsealed) segment.
func Open(opts Options) (*WAL, error) {
	if opts.MaxSegmentSize <= 0 {
		opts.MaxSegmentSize = DefaultMaxSegmentSize
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}

	w := &WAL{dir: opts.Dir, maxSegmentSize: opts.MaxSegmentSize, autoFlush: opts.AutoFlush}

	st, err := loadState(opts.Dir)
	if err != nil {
		return nil, err
	}
	w.currentLSN = st.CurrentLSN
	w.nextSegmentID = st.NextSegmentID
	if w.nextSegmentID == 0 {
		w.nextSegmentID = 1
	}

	if err := w.openOrCreateActive(); err != nil {
		return nil, err
	}
	cclog.Infof("[WAL]> opened at %s, current_lsn=%d, active_segment=%d", opts.Dir, w.currentLSN, w.activeHeader.SegmentID)
	return w, nil
}

func (w *WAL) openOrCreateActive() error {
	id := w.nextSegmentID
	path := segmentPath(w.dir, id)
	if _, err := os.Stat(path); err == nil {
		// A previous run left an active (unsealed) segment; reopen for append.
		f, h, err := openForRead(w.dir, id)
		if err != nil {
			return err
		}
		f.Close()
		fw, err := os.OpenFile(path, os.O_RDWR, 0o644)
		if err != nil {
			return err
		}
		if _, err := fw.Seek(int64(segmentHeaderSize)+int64(h.SegmentBytes), io.SeekStart); err != nil {
			fw.Close()
			return err
		}
		w.active = fw
		w.activeHeader = h
		w.activeBytes = int64(h.SegmentBytes)
		return nil
	}
	return w.createSegment(id)
}

func (w *WAL) createSegment(id uint64) error {
	h := segmentHeader{
		Magic:     segmentMagic,
		Version:   segmentVersion,
		SegmentID: id,
		StartLSN:  w.currentLSN + 1,
		EndLSN:    w.currentLSN,
		CreatedMs: uint64(time.Now().UnixMilli()),
	}
	h.HeaderCRC32 = crc32.ChecksumIEEE(headerCRCRegion(h))

	f, err := os.OpenFile(segmentPath(w.dir, id), os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(encodeHeader(h)); err != nil {
		f.Close()
		return err
	}
	w.active = f
	w.activeHeader = h
	w.activeBytes = 0
	return nil
}

// Write appends a new entry of the given kind and payload, assigning it the
// next LSN. It rotates the active segment first if the entry would overflow
// MaxSegmentSize (spec §4.3, §8 boundary: rollover never loses the entry).
func (w *WAL) Write(kind EntryKind, payload []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entrySize := int64(8 + 4 + 4 + 4 + 8 + len(payload))
	if w.activeBytes+entrySize > w.maxSegmentSize {
		if err := w.sealCurrentLocked(); err != nil {
			return 0, err
		}
	}

	lsn := w.currentLSN + 1
	e := Entry{
		LSN:         lsn,
		Kind:        kind,
		TimestampMs: uint64(time.Now().UnixMilli()),
		Payload:     payload,
		CRC32:       crc32.ChecksumIEEE(payload),
	}
	buf := encodeEntry(e)
	if _, err := w.active.Write(buf); err != nil {
		return 0, err
	}
	w.activeBytes += int64(len(buf))
	w.activeHeader.EntryCount++
	w.activeHeader.EndLSN = lsn
	w.currentLSN = lsn

	if w.autoFlush {
		if err := w.active.Sync(); err != nil {
			return 0, err
		}
	}
	if err := saveState(w.dir, walState{CurrentLSN: w.currentLSN, NextSegmentID: w.nextSegmentID}); err != nil {
		return 0, err
	}
	return lsn, nil
}

// SealCurrent finalizes the active segment and opens a fresh one (spec §4.3).
func (w *WAL) SealCurrent() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sealCurrentLocked()
}

func (w *WAL) sealCurrentLocked() error {
	h := w.activeHeader
	h.SegmentBytes = uint64(w.activeBytes)

	// data_crc32 covers the concatenation of serialized entries (spec §3.3).
	if _, err := w.active.Seek(int64(segmentHeaderSize), io.SeekStart); err != nil {
		return err
	}
	data := make([]byte, w.activeBytes)
	if _, err := io.ReadFull(w.active, data); err != nil {
		return err
	}
	h.DataCRC32 = crc32.ChecksumIEEE(data)
	h.HeaderCRC32 = crc32.ChecksumIEEE(headerCRCRegion(h))

	if _, err := w.active.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.active.Write(encodeHeader(h)); err != nil {
		return err
	}
	if err := w.active.Sync(); err != nil {
		return err
	}
	if err := w.active.Close(); err != nil {
		return err
	}
	cclog.Infof("[WAL]> sealed segment %d (lsn %d..%d, %d entries)", h.SegmentID, h.StartLSN, h.EndLSN, h.EntryCount)

	w.nextSegmentID++
	if err := saveState(w.dir, walState{CurrentLSN: w.currentLSN, NextSegmentID: w.nextSegmentID}); err != nil {
		return err
	}
	return w.createSegment(w.nextSegmentID)
}

// Close seals bookkeeping and releases the active segment's file handle
// without sealing it (a not-yet-full segment stays Open across restarts).
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == nil {
		return nil
	}
	h := w.activeHeader
	h.SegmentBytes = uint64(w.activeBytes)
	if _, err := w.active.Seek(int64(segmentHeaderSize), io.SeekStart); err != nil {
		return err
	}
	data := make([]byte, w.activeBytes)
	if _, err := io.ReadFull(w.active, data); err != nil {
		return err
	}
	h.DataCRC32 = crc32.ChecksumIEEE(data)
	h.HeaderCRC32 = crc32.ChecksumIEEE(headerCRCRegion(h))
	if _, err := w.active.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.active.Write(encodeHeader(h)); err != nil {
		return err
	}
	if err := w.active.Sync(); err != nil {
		return err
	}
	return w.active.Close()
}

// CurrentLSN returns the last assigned LSN (non-blocking per spec §5).
func (w *WAL) CurrentLSN() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentLSN
}

// SegmentIDs lists every segment file present in the WAL directory,
// ascending, for use by the recovery and backup managers.
func (w *WAL) SegmentIDs() ([]uint64, error) { return w.segmentIDs() }

func (w *WAL) segmentIDs() ([]uint64, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	for _, e := range entries {
		var id uint64
		if _, err := fmt.Sscanf(e.Name(), "wal_segment_%d.seg", &id); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// SegmentReport describes one segment's replay outcome, used by both
// EntriesSince and the recovery manager.
type SegmentReport struct {
	SegmentID   uint64
	Entries     []Entry
	LastGoodLSN uint64
	Err         error // non-nil => PartialSegment or Corrupted, see spec §4.3
}

// ReadSegment reads every readable entry from segment id in order, stopping
// at the first truncated/CRC-failing entry (PartialSegment) without
// aborting the whole log. A corrupt header aborts only this segment
// (Corrupted), not the whole log (spec §4.3).
func (w *WAL) ReadSegment(id uint64) SegmentReport {
	f, h, err := openForRead(w.dir, id)
	if err != nil {
		return SegmentReport{SegmentID: id, Err: fmt.Errorf("%w: %v", kvdberr.ErrCorrupted, err)}
	}
	defer f.Close()

	remaining := int64(h.SegmentBytes)
	if remaining == 0 {
		// Unsealed/active segment: scan to EOF instead of trusting segment_bytes.
		info, statErr := f.Stat()
		if statErr == nil {
			remaining = info.Size() - int64(segmentHeaderSize)
		}
	}

	var entries []Entry
	var lastGood uint64
	for {
		e, rem, err := readEntry(f, remaining)
		remaining = rem
		if err == io.EOF {
			break
		}
		if err != nil {
			return SegmentReport{SegmentID: id, Entries: entries, LastGoodLSN: lastGood, Err: err}
		}
		entries = append(entries, e)
		lastGood = e.LSN
	}
	return SegmentReport{SegmentID: id, Entries: entries, LastGoodLSN: lastGood}
}

// EntriesSince returns every entry with lsn >= lsn, across segments, in LSN
// order (spec §4.3). Corrupted segments are skipped with a logged warning
// rather than failing the whole iteration.
func (w *WAL) EntriesSince(lsn uint64) ([]Entry, error) {
	ids, err := w.segmentIDs()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, id := range ids {
		rep := w.ReadSegment(id)
		if rep.Err != nil {
			cclog.Warnf("[WAL]> segment %d: %v", id, rep.Err)
		}
		for _, e := range rep.Entries {
			if e.LSN >= lsn {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

// Cleanup removes sealed segments whose end_lsn < minLSNToKeep (spec §4.3).
// The active (not yet sealed) segment is never removed.
func (w *WAL) Cleanup(minLSNToKeep uint64) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ids, err := w.segmentIDs()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		if id == w.activeHeader.SegmentID {
			continue
		}
		_, h, err := openForRead(w.dir, id)
		if err != nil {
			continue
		}
		if h.EndLSN < minLSNToKeep {
			if err := os.Remove(segmentPath(w.dir, id)); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// ResetTo rewinds the WAL tip to targetLSN, discarding every entry with
// lsn > targetLSN, so that the next Write hands out targetLSN+1. Used by a
// point-in-time restore after a checkpoint image has been reloaded into a
// fresh memtable: the WAL must forget the writes the restore is rolling
// back, not merely replay fewer of them.
//
// The segment straddling targetLSN (if any) is rewritten in place with a
// recomputed header/CRCs and reopened as the new active segment; every
// segment after it held only entries beyond targetLSN and is removed
// outright.
func (w *WAL) ResetTo(targetLSN uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if targetLSN > w.currentLSN {
		return fmt.Errorf("wal: reset target lsn %d is ahead of current lsn %d", targetLSN, w.currentLSN)
	}

	if w.active != nil {
		if err := w.active.Close(); err != nil {
			return err
		}
		w.active = nil
	}

	ids, err := w.segmentIDs()
	if err != nil {
		return err
	}

	var activeID uint64
	var activeEntries []Entry
	found := false
	rewritten := false

	for _, id := range ids {
		rep := w.ReadSegment(id)
		if rep.Err != nil {
			return fmt.Errorf("%w: cannot reset past corrupted segment %d", kvdberr.ErrCorrupted, id)
		}

		cut := len(rep.Entries)
		for i, e := range rep.Entries {
			if e.LSN > targetLSN {
				cut = i
				break
			}
		}
		if cut == len(rep.Entries) {
			// Every entry here is at or before the target; this segment
			// becomes the candidate active segment, but a later segment may
			// still straddle the target and take over. Its on-disk header
			// may be stale (SegmentBytes==0) if it's the live/unsealed
			// segment, so it still needs rewriting below if chosen.
			activeID, activeEntries, found, rewritten = id, rep.Entries, true, false
			continue
		}

		if err := w.rewriteSegmentToLSN(id, rep.Entries[:cut]); err != nil {
			return err
		}
		activeID, found, rewritten = id, true, true
		break
	}

	if !found {
		return fmt.Errorf("wal: no segment found to reset to lsn %d", targetLSN)
	}
	if !rewritten {
		// The chosen segment needed no entries dropped, but its on-disk
		// header may still be inaccurate (stale/zero SegmentBytes) if it
		// was the live segment; rewrite it with its full entry set so the
		// reopen below seeks to the right offset.
		if err := w.rewriteSegmentToLSN(activeID, activeEntries); err != nil {
			return err
		}
	}

	for _, id := range ids {
		if id > activeID {
			if err := os.Remove(segmentPath(w.dir, id)); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}

	w.nextSegmentID = activeID
	w.currentLSN = targetLSN
	if err := w.openOrCreateActive(); err != nil {
		return err
	}
	if err := saveState(w.dir, walState{CurrentLSN: w.currentLSN, NextSegmentID: w.nextSegmentID}); err != nil {
		return err
	}
	cclog.Infof("[WAL]> reset to lsn=%d (active_segment=%d)", targetLSN, activeID)
	return nil
}

// rewriteSegmentToLSN overwrites segment id on disk so it holds exactly
// kept, recomputing its header (EndLSN, EntryCount, SegmentBytes, both
// CRCs) the same way sealCurrentLocked does for a normally-sealed segment.
func (w *WAL) rewriteSegmentToLSN(id uint64, kept []Entry) error {
	hf, orig, err := openForRead(w.dir, id)
	if err != nil {
		return err
	}
	hf.Close()

	data := make([]byte, 0, len(kept)*32)
	for _, e := range kept {
		data = append(data, encodeEntry(e)...)
	}

	h := orig
	h.EntryCount = uint32(len(kept))
	h.SegmentBytes = uint64(len(data))
	if len(kept) > 0 {
		h.EndLSN = kept[len(kept)-1].LSN
	} else {
		h.EndLSN = h.StartLSN - 1
	}
	h.DataCRC32 = crc32.ChecksumIEEE(data)
	h.HeaderCRC32 = crc32.ChecksumIEEE(headerCRCRegion(h))

	f, err := os.OpenFile(segmentPath(w.dir, id), os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(encodeHeader(h)); err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// ValidationResult is returned by ValidateAll (spec §4.3).
type ValidationResult struct {
	OK             bool
	CorruptedIDs   []uint64
}

// ValidateAll checks every segment's header and data CRCs.
func (w *WAL) ValidateAll() ValidationResult {
	ids, _ := w.segmentIDs()
	var bad []uint64
	for _, id := range ids {
		if err := w.validateSegment(id); err != nil {
			bad = append(bad, id)
		}
	}
	return ValidationResult{OK: len(bad) == 0, CorruptedIDs: bad}
}

func (w *WAL) validateSegment(id uint64) error {
	f, h, err := openForRead(w.dir, id)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Seek(int64(segmentHeaderSize), io.SeekStart); err != nil {
		return err
	}
	data := make([]byte, h.SegmentBytes)
	if _, err := io.ReadFull(f, data); err != nil {
		// Active/unsealed segments have SegmentBytes==0 in their header;
		// nothing to validate against for those.
		if h.SegmentBytes == 0 {
			return nil
		}
		return fmt.Errorf("%w: %v", kvdberr.ErrCorrupted, err)
	}
	if h.SegmentBytes > 0 && crc32.ChecksumIEEE(data) != h.DataCRC32 {
		return fmt.Errorf("%w: segment %d data checksum mismatch", kvdberr.ErrCorrupted, id)
	}
	return nil
}

// Dir exposes the WAL directory, used by the recovery/checkpoint managers.
func (w *WAL) Dir() string { return w.dir }

// SegmentFilePath is exported for tooling that wants to inspect segment
// files directly (e.g. the backup manager's file-level LSN tracker).
func SegmentFilePath(dir string, id uint64) string { return segmentPath(dir, id) }
