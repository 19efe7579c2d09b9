// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package recovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syloe1/kv-db-sub001/wal"
)

func TestRecoverFromCrashReplaysInOrder(t *testing.T) {
	dir := t.TempDir()
	w, err := wal.Open(wal.Options{Dir: dir, MaxSegmentSize: 200})
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 20; i++ {
		_, err := w.Write(wal.KindPut, []byte{byte(i)})
		require.NoError(t, err)
	}

	ids, err := w.SegmentIDs()
	require.NoError(t, err)

	m := New(w)
	var seen []uint64
	report, err := m.RecoverFromCrash(context.Background(), ids, 0, func(e wal.Entry) error {
		seen = append(seen, e.LSN)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 20, report.EntriesApplied)
	require.Equal(t, uint64(20), report.LastLSN)
	for i, lsn := range seen {
		require.Equal(t, uint64(i+1), lsn)
	}
}

func TestRecoverFromCrashSkipsAlreadyCheckpointedEntries(t *testing.T) {
	dir := t.TempDir()
	w, err := wal.Open(wal.Options{Dir: dir})
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		_, err := w.Write(wal.KindPut, []byte{byte(i)})
		require.NoError(t, err)
	}

	ids, err := w.SegmentIDs()
	require.NoError(t, err)

	m := New(w)
	var seen []uint64
	_, err = m.RecoverFromCrash(context.Background(), ids, 3, func(e wal.Entry) error {
		seen = append(seen, e.LSN)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{4, 5}, seen)
}

func TestRecoverToLSNStopsAtTarget(t *testing.T) {
	dir := t.TempDir()
	w, err := wal.Open(wal.Options{Dir: dir})
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 10; i++ {
		_, err := w.Write(wal.KindPut, []byte{byte(i)})
		require.NoError(t, err)
	}

	ids, err := w.SegmentIDs()
	require.NoError(t, err)

	m := New(w)
	var seen []uint64
	report, err := m.RecoverToLSN(context.Background(), ids, 0, 5, func(e wal.Entry) error {
		seen = append(seen, e.LSN)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 5, report.EntriesApplied)
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, seen)
}

func TestValidateAllPassesHealthySegments(t *testing.T) {
	dir := t.TempDir()
	w, err := wal.Open(wal.Options{Dir: dir})
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write(wal.KindPut, []byte("a"))
	require.NoError(t, err)

	ids, err := w.SegmentIDs()
	require.NoError(t, err)

	m := New(w)
	bad, err := m.ValidateAll(ids)
	require.NoError(t, err)
	require.Empty(t, bad)
}
