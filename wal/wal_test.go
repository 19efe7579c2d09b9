// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteAssignsMonotoneLSNs(t *testing.T) {
	w, err := Open(Options{Dir: t.TempDir()})
	require.NoError(t, err)
	defer w.Close()

	l1, err := w.Write(KindPut, []byte("a=1"))
	require.NoError(t, err)
	l2, err := w.Write(KindPut, []byte("b=2"))
	require.NoError(t, err)
	l3, err := w.Write(KindDel, []byte("a"))
	require.NoError(t, err)

	require.Equal(t, []uint64{1, 2, 3}, []uint64{l1, l2, l3})
	require.Equal(t, uint64(3), w.CurrentLSN())
}

func TestSegmentRollover(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Options{Dir: dir, MaxSegmentSize: 1024})
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 100; i++ {
		payload := make([]byte, 20)
		_, err := w.Write(KindPut, payload)
		require.NoError(t, err)
	}

	ids, err := w.segmentIDs()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(ids), 2)

	res := w.ValidateAll()
	require.True(t, res.OK, "corrupted segments: %v", res.CorruptedIDs)

	entries, err := w.EntriesSince(1)
	require.NoError(t, err)
	require.Len(t, entries, 100)
	for i, e := range entries {
		require.Equal(t, uint64(i+1), e.LSN)
	}
}

func TestSealCurrentStartsFreshSegment(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write(KindPut, []byte("x"))
	require.NoError(t, err)
	firstID := w.activeHeader.SegmentID
	require.NoError(t, w.SealCurrent())
	require.NotEqual(t, firstID, w.activeHeader.SegmentID)

	_, err = w.Write(KindPut, []byte("y"))
	require.NoError(t, err)

	entries, err := w.EntriesSince(1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestCleanupRemovesOldSealedSegments(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Options{Dir: dir, MaxSegmentSize: 200})
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 30; i++ {
		_, err := w.Write(KindPut, make([]byte, 20))
		require.NoError(t, err)
	}
	lastLSN := w.CurrentLSN()
	n, err := w.Cleanup(lastLSN)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	entries, err := w.EntriesSince(1)
	require.NoError(t, err)
	for _, e := range entries {
		require.LessOrEqual(t, e.LSN, lastLSN)
	}
}

func TestCrashRecoveryRoundtrip(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Options{Dir: dir})
	require.NoError(t, err)

	l1, _ := w.Write(KindPut, []byte("a=1"))
	l2, _ := w.Write(KindPut, []byte("b=2"))
	l3, _ := w.Write(KindDel, []byte("a"))
	require.Equal(t, []uint64{1, 2, 3}, []uint64{l1, l2, l3})
	// Simulate a crash: no SealCurrent, no graceful Close.

	w2, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	defer w2.Close()

	require.Equal(t, uint64(3), w2.CurrentLSN())
	entries, err := w2.EntriesSince(1)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}
