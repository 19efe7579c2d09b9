// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package recovery implements the recovery manager (spec §4.4): parallel
// per-segment scanning of the write-ahead log followed by strictly
// sequential, deterministic replay through caller-supplied callbacks. It
// generalizes the teacher's walCheckpoint.go crash-recovery routine (which
// scans a single binary file and replays numeric samples into memory
// levels) to multi-segment scanning plus a checkpoint fast-forward base.
package recovery

import (
	"context"
	"fmt"
	"sort"
	"sync"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/syloe1/kv-db-sub001/kvdberr"
	"github.com/syloe1/kv-db-sub001/wal"
)

// Apply is invoked once per WAL entry, strictly in ascending LSN order,
// during replay (spec §4.4: "sequential deterministic application").
type Apply func(e wal.Entry) error

// SegmentLister is the subset of *wal.WAL the recovery manager needs.
type SegmentLister interface {
	ReadSegment(id uint64) wal.SegmentReport
	Dir() string
}

// Manager drives crash and point-in-time recovery over a WAL.
type Manager struct {
	w SegmentLister
}

func New(w SegmentLister) *Manager {
	return &Manager{w: w}
}

// Report summarizes one recovery run.
type Report struct {
	EntriesApplied  int
	LastLSN         uint64
	SkippedSegments []uint64 // segments that failed validation; their entries after the failure point are not replayed (spec §4.4)
}

// RecoverFromCrash replays every WAL entry with lsn > checkpointLSN, in
// ascending LSN order, calling apply for each (spec §4.4:
// "recover_from_crash(checkpoint_lsn)"). Segments are scanned in parallel
// but entries are merged and replayed sequentially so apply never needs its
// own locking beyond what the caller already holds.
func (m *Manager) RecoverFromCrash(ctx context.Context, segmentIDs []uint64, checkpointLSN uint64, apply Apply) (Report, error) {
	return m.recoverUpTo(ctx, segmentIDs, checkpointLSN, nil, apply)
}

// RecoverToLSN behaves like RecoverFromCrash but stops applying entries once
// lsn > targetLSN (spec §4.4: "recover_to_lsn(target)"), useful for
// point-in-time restores.
func (m *Manager) RecoverToLSN(ctx context.Context, segmentIDs []uint64, checkpointLSN, targetLSN uint64, apply Apply) (Report, error) {
	return m.recoverUpTo(ctx, segmentIDs, checkpointLSN, &targetLSN, apply)
}

type segmentScan struct {
	report wal.SegmentReport
}

func (m *Manager) recoverUpTo(ctx context.Context, segmentIDs []uint64, fromLSN uint64, toLSN *uint64, apply Apply) (Report, error) {
	ids := append([]uint64(nil), segmentIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	scans := make([]segmentScan, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uint64) {
			defer wg.Done()
			scans[i] = segmentScan{report: m.w.ReadSegment(id)}
		}(i, id)
	}
	wg.Wait()

	var all []wal.Entry
	var skipped []uint64
	for _, s := range scans {
		if s.report.Err != nil {
			cclog.Warnf("[Recovery]> segment %d failed validation, skipping remainder: %v", s.report.SegmentID, s.report.Err)
			skipped = append(skipped, s.report.SegmentID)
		}
		all = append(all, s.report.Entries...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].LSN < all[j].LSN })

	report := Report{SkippedSegments: skipped}
	for _, e := range all {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if e.LSN <= fromLSN {
			continue
		}
		if toLSN != nil && e.LSN > *toLSN {
			break
		}
		if err := apply(e); err != nil {
			return report, fmt.Errorf("replay failed at lsn %d: %w", e.LSN, err)
		}
		report.EntriesApplied++
		report.LastLSN = e.LSN
	}
	return report, nil
}

// ValidateAll re-validates every listed segment without replaying it,
// returning the ids that failed (spec §9 supplemental integrity sweep,
// grounded on the original implementation's standalone integrity checker).
func (m *Manager) ValidateAll(segmentIDs []uint64) ([]uint64, error) {
	var bad []uint64
	for _, id := range segmentIDs {
		rep := m.w.ReadSegment(id)
		if rep.Err != nil {
			bad = append(bad, id)
		}
	}
	if len(bad) > 0 {
		return bad, fmt.Errorf("%w: %d segment(s) failed validation", kvdberr.ErrCorrupted, len(bad))
	}
	return bad, nil
}
