// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package kvdberr centralizes the structured error kinds the engine returns.
// Every error is a sentinel wrapped with context via fmt.Errorf("...: %w", ...)
// so callers can use errors.Is against the sentinels below while still
// getting a human-readable message.
package kvdberr

import "errors"

var (
	// Value model / codec (spec §4.1, §7)
	ErrCodec          = errors.New("kvdb: malformed codec payload")
	ErrTypeConversion = errors.New("kvdb: unsupported type conversion")

	// Memtable container ops (spec §4.2, §7)
	ErrWrongType  = errors.New("kvdb: value is not of the expected container type")
	ErrMissing    = errors.New("kvdb: key or field not present")
	ErrOutOfRange = errors.New("kvdb: index out of range")

	// WAL (spec §3.3, §4.3, §7)
	ErrSegmentSealed  = errors.New("kvdb: segment is sealed")
	ErrSegmentFull    = errors.New("kvdb: segment is full")
	ErrCorrupted      = errors.New("kvdb: corrupted data detected")
	ErrPartialSegment = errors.New("kvdb: segment replay stopped short of its end")

	// Checkpoint (spec §4.5, §7)
	ErrCheckpointCorrupted = errors.New("kvdb: checkpoint image failed integrity check")
	ErrCheckpointBusy      = errors.New("kvdb: a checkpoint is already in progress")

	// Backup (spec §4.6, §7)
	ErrBackupChainBroken  = errors.New("kvdb: backup chain is broken")
	ErrInsufficientSpace  = errors.New("kvdb: insufficient space for operation")
	ErrPermissionDenied   = errors.New("kvdb: permission denied")
	ErrBackupBusy         = errors.New("kvdb: a backup is already in progress")

	// Index (spec §4.7, §7)
	ErrIndexAlreadyExists = errors.New("kvdb: index already exists")
	ErrIndexNotFound      = errors.New("kvdb: index not found")
	ErrUniqueViolation    = errors.New("kvdb: unique index violation")

	// Optimizer (spec §4.8, §7)
	ErrUnsupportedQuery = errors.New("kvdb: condition cannot be mapped to an index kind")
)
