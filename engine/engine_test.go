// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package engine

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syloe1/kv-db-sub001/backup"
	"github.com/syloe1/kv-db-sub001/index"
	"github.com/syloe1/kv-db-sub001/value"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	eng, err := Open(Options{
		WALDir:           filepath.Join(dir, "wal"),
		CheckpointDir:    filepath.Join(dir, "checkpoints"),
		ChangeStreamSize: 16,
	})
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func TestCommitAppliesPutsAndAdvancesSnapshot(t *testing.T) {
	eng := openTestEngine(t)

	tx := eng.BeginTx()
	tx.Put("a", value.Int(1))
	tx.Put("b", value.String("hello"))
	lsn, err := tx.Commit()
	require.NoError(t, err)
	require.Equal(t, uint64(2), lsn)

	snap := eng.GetSnapshot()
	require.Equal(t, uint64(2), snap)

	v, ok := eng.Get("a", snap)
	require.True(t, ok)
	require.Equal(t, value.Int(1), v)

	v, ok = eng.Get("b", snap)
	require.True(t, ok)
	require.Equal(t, "hello", v.Str)
}

func TestSnapshotIsolationDoesNotSeeLaterCommits(t *testing.T) {
	eng := openTestEngine(t)

	tx1 := eng.BeginTx()
	tx1.Put("k", value.Int(1))
	snapAfterFirst, err := tx1.Commit()
	require.NoError(t, err)

	tx2 := eng.BeginTx()
	tx2.Put("k", value.Int(2))
	_, err = tx2.Commit()
	require.NoError(t, err)

	v, ok := eng.Get("k", snapAfterFirst)
	require.True(t, ok)
	require.Equal(t, value.Int(1), v)

	v, ok = eng.Get("k", eng.GetSnapshot())
	require.True(t, ok)
	require.Equal(t, value.Int(2), v)
}

func TestRollbackDiscardsBufferedOps(t *testing.T) {
	eng := openTestEngine(t)

	tx := eng.BeginTx()
	tx.Put("ghost", value.Int(1))
	tx.Rollback()

	_, ok := eng.Get("ghost", eng.GetSnapshot())
	require.False(t, ok)

	_, err := tx.Commit()
	require.Error(t, err)
}

func TestDeleteRemovesKeyAtNewSnapshot(t *testing.T) {
	eng := openTestEngine(t)

	tx := eng.BeginTx()
	tx.Put("x", value.Int(7))
	_, err := tx.Commit()
	require.NoError(t, err)

	tx2 := eng.BeginTx()
	tx2.Delete("x")
	snap, err := tx2.Commit()
	require.NoError(t, err)

	_, ok := eng.Get("x", snap)
	require.False(t, ok)
}

func TestReopenRecoversFromWALTail(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		WALDir:           filepath.Join(dir, "wal"),
		CheckpointDir:    filepath.Join(dir, "checkpoints"),
		ChangeStreamSize: 16,
	}

	eng, err := Open(opts)
	require.NoError(t, err)

	tx := eng.BeginTx()
	tx.Put("durable", value.String("yes"))
	tx.Put("counter", value.Int(42))
	_, err = tx.Commit()
	require.NoError(t, err)
	require.NoError(t, eng.Close())

	reopened, err := Open(opts)
	require.NoError(t, err)
	defer reopened.Close()

	snap := reopened.GetSnapshot()
	require.Equal(t, uint64(2), snap)

	v, ok := reopened.Get("durable", snap)
	require.True(t, ok)
	require.Equal(t, "yes", v.Str)

	v, ok = reopened.Get("counter", snap)
	require.True(t, ok)
	require.Equal(t, value.Int(42), v)
}

func TestReopenAfterCheckpointTruncatesReplayToTail(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		WALDir:           filepath.Join(dir, "wal"),
		CheckpointDir:    filepath.Join(dir, "checkpoints"),
		ChangeStreamSize: 16,
	}

	eng, err := Open(opts)
	require.NoError(t, err)

	tx := eng.BeginTx()
	tx.Put("pre", value.Int(1))
	_, err = tx.Commit()
	require.NoError(t, err)

	_, err = eng.CreateCheckpoint("manual", "pre-checkpoint snapshot")
	require.NoError(t, err)

	tx2 := eng.BeginTx()
	tx2.Put("post", value.Int(2))
	_, err = tx2.Commit()
	require.NoError(t, err)
	require.NoError(t, eng.Close())

	reopened, err := Open(opts)
	require.NoError(t, err)
	defer reopened.Close()

	snap := reopened.GetSnapshot()
	v, ok := reopened.Get("pre", snap)
	require.True(t, ok)
	require.Equal(t, value.Int(1), v)

	v, ok = reopened.Get("post", snap)
	require.True(t, ok)
	require.Equal(t, value.Int(2), v)
}

func TestCreateIndexPopulatesFromExistingKeys(t *testing.T) {
	eng := openTestEngine(t)

	tx := eng.BeginTx()
	tx.Put("u1", value.Map([]value.MapEntry{
		{Key: "name", Value: value.String("ada")},
		{Key: "age", Value: value.Int(30)},
	}))
	tx.Put("u2", value.Map([]value.MapEntry{
		{Key: "name", Value: value.String("grace")},
		{Key: "age", Value: value.Int(40)},
	}))
	_, err := tx.Commit()
	require.NoError(t, err)

	require.NoError(t, eng.CreateIndex(index.KindSecondary, "by_name", []string{"name"}, false))

	res := eng.Lookup("by_name", index.Query{Kind: index.QueryExact, Value: value.String("ada")})
	require.True(t, res.Success)
	require.Equal(t, []string{"u1"}, res.Keys)
}

func TestIndexTracksSubsequentMutations(t *testing.T) {
	eng := openTestEngine(t)
	require.NoError(t, eng.CreateIndex(index.KindSecondary, "by_name", []string{"name"}, false))

	tx := eng.BeginTx()
	tx.Put("u1", value.Map([]value.MapEntry{{Key: "name", Value: value.String("ada")}}))
	_, err := tx.Commit()
	require.NoError(t, err)

	res := eng.Lookup("by_name", index.Query{Kind: index.QueryExact, Value: value.String("ada")})
	require.True(t, res.Success)
	require.Equal(t, []string{"u1"}, res.Keys)

	tx2 := eng.BeginTx()
	tx2.Delete("u1")
	_, err = tx2.Commit()
	require.NoError(t, err)

	res = eng.Lookup("by_name", index.Query{Kind: index.QueryExact, Value: value.String("ada")})
	require.True(t, res.Success)
	require.Empty(t, res.Keys)
}

func TestChangeStreamEmitsCommittedTuples(t *testing.T) {
	eng := openTestEngine(t)

	tx := eng.BeginTx()
	tx.Put("k", value.Int(5))
	_, err := tx.Commit()
	require.NoError(t, err)

	select {
	case tuple := <-eng.ChangeStream().Chan():
		require.Equal(t, "k", tuple.Key)
		require.Equal(t, ChangePut, tuple.Kind)
		require.Equal(t, value.Int(5), tuple.New)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change tuple")
	}
}

func TestChangeStreamDropsOldestWhenFull(t *testing.T) {
	stream := NewChangeStream(2)
	stream.Publish(ChangeTuple{Key: "a"})
	stream.Publish(ChangeTuple{Key: "b"})
	stream.Publish(ChangeTuple{Key: "c"})

	first := <-stream.Chan()
	second := <-stream.Chan()
	require.Equal(t, "b", first.Key)
	require.Equal(t, "c", second.Key)
}

func TestRangeAndTypeScanReflectCommittedState(t *testing.T) {
	eng := openTestEngine(t)

	tx := eng.BeginTx()
	tx.Put("a", value.Int(1))
	tx.Put("b", value.Int(2))
	tx.Put("c", value.String("z"))
	_, err := tx.Commit()
	require.NoError(t, err)

	snap := eng.GetSnapshot()

	rows := eng.RangeScan("a", "b", snap, 10)
	require.Len(t, rows, 2)

	ints := eng.TypeScan(value.TypeInt, snap, 10)
	require.Len(t, ints, 2)
}

func TestRestoreCheckpointRollsBackToExactLSNAndResumesAfter(t *testing.T) {
	eng := openTestEngine(t)

	var lastPreLSN uint64
	for i := 0; i < 50; i++ {
		tx := eng.BeginTx()
		tx.Put(fmt.Sprintf("k%d", i), value.Int(int64(i)))
		lsn, err := tx.Commit()
		require.NoError(t, err)
		lastPreLSN = lsn
	}
	require.Equal(t, uint64(50), lastPreLSN)

	meta, err := eng.CreateCheckpoint("manual", "scenario 6 checkpoint")
	require.NoError(t, err)
	require.Equal(t, uint64(50), meta.LSN)

	for i := 50; i < 100; i++ {
		tx := eng.BeginTx()
		tx.Put(fmt.Sprintf("k%d", i), value.Int(int64(i)))
		_, err := tx.Commit()
		require.NoError(t, err)
	}
	require.Equal(t, uint64(100), eng.GetSnapshot())

	require.NoError(t, eng.RestoreCheckpoint(meta.ID))

	snap := eng.GetSnapshot()
	require.Equal(t, uint64(50), snap)

	for i := 0; i < 50; i++ {
		v, ok := eng.Get(fmt.Sprintf("k%d", i), snap)
		require.True(t, ok)
		require.Equal(t, value.Int(int64(i)), v)
	}
	for i := 50; i < 100; i++ {
		_, ok := eng.Get(fmt.Sprintf("k%d", i), snap)
		require.False(t, ok, "post-checkpoint write k%d must not survive restore", i)
	}

	tx := eng.BeginTx()
	tx.Put("resumed", value.Int(1))
	lsn, err := tx.Commit()
	require.NoError(t, err)
	require.Equal(t, uint64(51), lsn)
}

func TestBackupTrackerSeesCommittedWALSegment(t *testing.T) {
	eng := openTestEngine(t)

	dir := t.TempDir()
	bak, err := backup.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { bak.Close() })

	eng.SetBackupTracker(bak.Tracker())

	tx := eng.BeginTx()
	tx.Put("a", value.Int(1))
	_, err = tx.Commit()
	require.NoError(t, err)

	changed := bak.Tracker().GetChangedFilesSince(0)
	require.NotEmpty(t, changed, "committing should touch the active WAL segment in the backup tracker")

	rec, err := bak.CreateFull(eng.BackupSource())
	require.NoError(t, err)
	require.Equal(t, "full", rec.Kind)
	require.Equal(t, eng.GetSnapshot(), rec.EndLSN)

	require.NoError(t, bak.Validate(rec.ID))
}
