// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package engine is the control plane (spec §4.9, §5): it owns the WAL,
// memtable, and index manager, dispatches committed mutations to all three
// in LSN order, issues snapshot tokens, and emits change tuples to the
// external change-stream collaborator. It generalizes the teacher's
// MemoryStore-as-front-door pattern (pkg/memorystore/memorystore.go,
// pkg/memorystore/ingest.go: a single struct fronting a buffer tree plus an
// optional checkpoint/archive pipeline) to this engine's memtable + WAL +
// index set + checkpoint/backup pipeline.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/syloe1/kv-db-sub001/backup"
	"github.com/syloe1/kv-db-sub001/checkpoint"
	"github.com/syloe1/kv-db-sub001/index"
	"github.com/syloe1/kv-db-sub001/internal/obs"
	"github.com/syloe1/kv-db-sub001/memtable"
	"github.com/syloe1/kv-db-sub001/query"
	"github.com/syloe1/kv-db-sub001/recovery"
	"github.com/syloe1/kv-db-sub001/value"
	"github.com/syloe1/kv-db-sub001/wal"
)

// Options configures an Engine (spec §4.9, §6.3, §6.4).
type Options struct {
	WALDir            string
	WALMaxSegmentSize int64
	WALAutoFlush      bool
	CheckpointDir     string
	ChangeStreamSize  int

	// Metrics is optional; a nil value disables metrics collection (every
	// *obs.Metrics method is a no-op on nil).
	Metrics *obs.Metrics
}

// Engine is the single-node control plane tying the durable WAL, the MVCC
// memtable, and the index set together (spec §4.9).
type Engine struct {
	w    *wal.WAL
	mem  *memtable.Memtable
	idx  *index.Manager
	ckpt *checkpoint.Manager
	ckptWorker *checkpoint.Worker
	stream *ChangeStream
	metrics *obs.Metrics

	// backupTracker is nil unless SetBackupTracker was called; when set, every
	// commit and checkpoint touches the relevant durable file in it so an
	// external backup.Manager can resolve incremental file sets.
	backupTracker *backup.FileTracker

	commitMu sync.Mutex // serializes commit_tx: LSN assignment, WAL append, memtable+index apply

	// committedLSN is the snapshot GetSnapshot hands out: the LSN of the
	// last *fully applied* transaction, advanced exactly once per commit
	// after every op in it has reached the WAL and memtable. e.w.CurrentLSN
	// moves once per op inside commit's loop, so reading it directly would
	// let a concurrent snapshot land mid-transaction. An atomic rather than
	// commitMu itself keeps GetSnapshot non-blocking (spec §5).
	committedLSN atomic.Uint64
}

// SetBackupTracker attaches the file tracker of an external backup.Manager
// so the engine keeps it current as WAL segments and checkpoints are
// written. Pass nil to detach.
func (e *Engine) SetBackupTracker(t *backup.FileTracker) {
	e.backupTracker = t
}

// Open recovers an Engine rooted at opts.WALDir/opts.CheckpointDir: it
// replays the latest checkpoint (if any) plus the WAL tail from that
// checkpoint's LSN forward (spec §4.4, §4.5). The index set starts empty;
// callers re-issue CreateIndex after Open, which repopulates from the now-
// recovered memtable.
func Open(opts Options) (*Engine, error) {
	w, err := wal.Open(wal.Options{Dir: opts.WALDir, MaxSegmentSize: opts.WALMaxSegmentSize, AutoFlush: opts.WALAutoFlush})
	if err != nil {
		return nil, err
	}

	ckpt, err := checkpoint.Open(opts.CheckpointDir)
	if err != nil {
		w.Close()
		return nil, err
	}

	mem := memtable.New()
	fromLSN := uint64(0)
	if meta, ok, err := ckpt.Latest(); err != nil {
		w.Close()
		return nil, err
	} else if ok {
		_, entries, err := ckpt.Restore(meta.ID)
		if err != nil {
			w.Close()
			return nil, err
		}
		for _, e := range entries {
			mem.Put(e.Key, e.Value, meta.LSN)
		}
		fromLSN = meta.LSN
		cclog.Infof("[Engine]> restored checkpoint id=%d lsn=%d records=%d", meta.ID, meta.LSN, len(entries))
	}

	segIDs, err := w.SegmentIDs()
	if err != nil {
		w.Close()
		return nil, err
	}
	rm := recovery.New(w)
	report, err := rm.RecoverFromCrash(context.Background(), segIDs, fromLSN, func(e wal.Entry) error {
		return applyWALEntry(mem, e)
	})
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("engine: replaying wal: %w", err)
	}
	cclog.Infof("[Engine]> recovered %d wal entries up to lsn=%d (skipped segments: %v)",
		report.EntriesApplied, report.LastLSN, report.SkippedSegments)

	opts.Metrics.AddRecoveredEntries(report.EntriesApplied)
	opts.Metrics.AddCorruptedSegments(len(report.SkippedSegments))
	opts.Metrics.SetLSN(w.CurrentLSN())

	stream := NewChangeStream(opts.ChangeStreamSize)
	stream.SetDropHook(opts.Metrics.IncChangeStreamDrop)

	eng := &Engine{
		w:       w,
		mem:     mem,
		idx:     index.NewManager(),
		ckpt:    ckpt,
		stream:  stream,
		metrics: opts.Metrics,
	}
	eng.committedLSN.Store(w.CurrentLSN())
	return eng, nil
}

func applyWALEntry(mem *memtable.Memtable, e wal.Entry) error {
	switch e.Kind {
	case wal.KindPut:
		key, v, err := decodePutPayload(e.Payload)
		if err != nil {
			return err
		}
		mem.Put(key, v, e.LSN)
	case wal.KindDel:
		key, err := decodeDelPayload(e.Payload)
		if err != nil {
			return err
		}
		mem.Delete(key, e.LSN)
	}
	return nil
}

// BeginTx starts a new buffered transaction (spec §4.9: "begin_tx").
func (e *Engine) BeginTx() *Tx {
	return &Tx{eng: e}
}

// commit is the atomic core of Tx.Commit (spec §4.9, §5): every op gets a
// fresh LSN, a WAL entry, a memtable apply, and index maintenance, all
// under commitMu so snapshots see either all of a transaction's effects or
// none of them.
func (e *Engine) commit(ops []bufferedOp) (uint64, error) {
	if len(ops) == 0 {
		return e.GetSnapshot(), nil
	}

	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	var lastLSN uint64
	for _, op := range ops {
		oldVal, oldOK := e.mem.Get(op.key, e.w.CurrentLSN())

		switch op.kind {
		case opPut:
			payload := encodePutPayload(op.key, op.value)
			lsn, err := e.w.Write(wal.KindPut, payload)
			if err != nil {
				return 0, err
			}
			e.metrics.AddWALBytes(len(payload))
			e.mem.Put(op.key, op.value, lsn)
			if err := e.idx.Sync(op.key, oldVal, oldOK, op.value, true, valueExtractor{}); err != nil {
				return 0, err
			}
			e.stream.Publish(ChangeTuple{Key: op.key, Old: oldVal, New: op.value, Kind: ChangePut, LSN: lsn})
			lastLSN = lsn

		case opDelete:
			payload := encodeDelPayload(op.key)
			lsn, err := e.w.Write(wal.KindDel, payload)
			if err != nil {
				return 0, err
			}
			e.metrics.AddWALBytes(len(payload))
			e.mem.Delete(op.key, lsn)
			if oldOK {
				if err := e.idx.Sync(op.key, oldVal, true, value.TypedValue{}, false, valueExtractor{}); err != nil {
					return 0, err
				}
			}
			e.stream.Publish(ChangeTuple{Key: op.key, Old: oldVal, Kind: ChangeDelete, LSN: lsn})
			lastLSN = lsn
		}
	}
	e.committedLSN.Store(lastLSN)
	e.metrics.SetLSN(lastLSN)
	e.trackActiveSegment(lastLSN)
	return lastLSN, nil
}

// GetSnapshot returns the current max committed LSN (spec §4.9: "returns
// the current max committed LSN"). Non-blocking (spec §5) and safe against
// an in-flight multi-op commit: committedLSN only moves once, after commit
// has applied every op in the transaction, so a reader never observes a
// partially-applied Tx (spec §4.9, §5).
func (e *Engine) GetSnapshot() uint64 {
	return e.committedLSN.Load()
}

// ReleaseSnapshot retires a snapshot token obtained from GetSnapshot (spec
// §6.5). The engine keeps every version forever (spec §2.3: reclamation is
// a future compaction hook, not required for correctness), so this is a
// no-op placed here as the control surface's counterpart to GetSnapshot.
func (e *Engine) ReleaseSnapshot(snap uint64) {}

// Get performs a single-key point read at snap (spec §3.2, §4.2).
func (e *Engine) Get(key string, snap uint64) (value.TypedValue, bool) {
	return e.mem.Get(key, snap)
}

// RangeScan/TypeScan pass through to the memtable (spec §4.2).
func (e *Engine) RangeScan(lo, hi string, snap uint64, limit int) []memtable.ScanEntry {
	return e.mem.RangeScan(lo, hi, snap, limit)
}

func (e *Engine) TypeScan(dtype value.Type, snap uint64, limit int) []memtable.ScanEntry {
	return e.mem.TypeScan(dtype, snap, limit)
}

// CreateIndex registers a new named index, populating it from the current
// memtable snapshot (spec §4.7).
func (e *Engine) CreateIndex(kind index.Kind, name string, fields []string, unique bool) error {
	return e.idx.CreateIndex(kind, name, fields, unique, keyspaceSource{eng: e})
}

// DropIndex removes a named index (spec §4.7).
func (e *Engine) DropIndex(name string) error {
	return e.idx.DropIndex(name)
}

// Lookup dispatches q to the named index (spec §4.7).
func (e *Engine) Lookup(name string, q index.Query) index.LookupResult {
	return e.idx.Lookup(name, q)
}

// Indexes exposes the index manager for the optimizer, which needs
// ApplicableIndexes/Len to build a plan.
func (e *Engine) Indexes() *index.Manager { return e.idx }

// ChangeStream exposes the engine's outgoing mutation tuple channel.
func (e *Engine) ChangeStream() *ChangeStream { return e.stream }

// Metrics exposes the engine's observability counters/gauges, or nil if
// Options.Metrics was not set at Open.
func (e *Engine) Metrics() *obs.Metrics { return e.metrics }

// CreateCheckpoint writes a new checkpoint image of the current snapshot
// (spec §4.5).
func (e *Engine) CreateCheckpoint(trigger, description string) (checkpoint.Meta, error) {
	meta, err := e.ckpt.Create(checkpointSource{e}, e.GetSnapshot(), trigger, description)
	if err == nil {
		e.metrics.IncCheckpoint()
		e.trackCheckpoint(e.ckpt.ImagePath(meta.ID), meta.LSN)
	}
	return meta, err
}

// RestoreCheckpoint performs a point-in-time restore to checkpoint id (spec
// §4.5, §6.5: "restore_checkpoint"): the memtable is rebuilt from exactly
// that checkpoint's image and the WAL tip is rewound to the checkpoint's
// LSN, discarding every WAL entry written after it (wal.WAL.ResetTo) rather
// than replaying forward over them the way Open's crash recovery does. The
// index set is cleared, mirroring Open's "indexes are never persisted, the
// caller re-creates them" contract. After this returns, GetSnapshot
// reflects the checkpoint's LSN and the next commit resumes at LSN+1.
//
// Held under commitMu so no commit can interleave with the rebuild;
// callers should also ensure no other goroutine is reading the engine
// concurrently, since Get/RangeScan/TypeScan/Lookup read e.mem/e.idx
// without taking commitMu themselves.
func (e *Engine) RestoreCheckpoint(id uint64) error {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	meta, entries, err := e.ckpt.Restore(id)
	if err != nil {
		return err
	}

	mem := memtable.New()
	for _, en := range entries {
		mem.Put(en.Key, en.Value, meta.LSN)
	}

	if err := e.w.ResetTo(meta.LSN); err != nil {
		return err
	}

	e.mem = mem
	e.idx = index.NewManager()
	e.committedLSN.Store(meta.LSN)
	e.metrics.SetLSN(meta.LSN)
	cclog.Infof("[Engine]> restored checkpoint id=%d lsn=%d records=%d", meta.ID, meta.LSN, len(entries))
	return nil
}

type checkpointSource struct{ eng *Engine }

func (s checkpointSource) Keys() []string { return s.eng.mem.Keys() }
func (s checkpointSource) Get(key string, snap uint64) (value.TypedValue, bool) {
	return s.eng.mem.Get(key, snap)
}
func (s checkpointSource) CurrentLSN() uint64 { return s.eng.GetSnapshot() }

// StartAutoCheckpoint launches the background checkpoint worker (spec
// §4.5: "auto_checkpoint_worker").
func (e *Engine) StartAutoCheckpoint(interval time.Duration, maxKeep int) error {
	worker, err := e.ckpt.StartAutoCheckpoint(checkpointSource{e}, interval, maxKeep)
	if err != nil {
		return err
	}
	e.ckptWorker = worker
	return nil
}

// WAL exposes the underlying WAL to callers outside the engine. The
// engine's own backup FileSource adapter reads the WAL fields directly.
func (e *Engine) WAL() *wal.WAL { return e.w }

// Close stops the auto-checkpoint worker (if running) and closes the WAL.
func (e *Engine) Close() error {
	if e.ckptWorker != nil {
		e.ckptWorker.Stop()
	}
	e.stream.Close()
	return e.w.Close()
}
