// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file adapts an Engine into a backup.FileSource: the engine's durable
// files are its WAL segments and checkpoint images, addressed by the
// absolute paths the wal and checkpoint packages already compute. The
// tracker is kept current by touching the newest WAL segment after every
// commit and each checkpoint image when it is written, so the backup
// manager can tell full from incremental by LSN alone.
package engine

import (
	"os"

	"github.com/syloe1/kv-db-sub001/wal"
)

// BackupSource adapts e to the backup package's FileSource interface
// (backup.Manager.CreateFull/CreateIncremental).
type BackupSource struct {
	eng *Engine
}

// BackupSource returns an adapter suitable for backup.Manager.CreateFull /
// CreateIncremental.
func (e *Engine) BackupSource() BackupSource { return BackupSource{eng: e} }

func (s BackupSource) CurrentLSN() uint64 { return s.eng.GetSnapshot() }

func (s BackupSource) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// trackActiveSegment records the currently-active WAL segment's bytes for
// the backup tracker under the just-assigned lsn, so a subsequent
// CreateIncremental picks it up if it changed since the parent backup.
func (e *Engine) trackActiveSegment(lsn uint64) {
	if e.backupTracker == nil {
		return
	}
	ids, err := e.w.SegmentIDs()
	if err != nil || len(ids) == 0 {
		return
	}
	path := wal.SegmentFilePath(e.w.Dir(), ids[len(ids)-1])
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	e.backupTracker.Touch(path, data, lsn)
}

// trackCheckpoint records a checkpoint image's current bytes for the backup
// tracker.
func (e *Engine) trackCheckpoint(path string, lsn uint64) {
	if e.backupTracker == nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	e.backupTracker.Touch(path, data, lsn)
}
