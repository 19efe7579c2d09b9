// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package backup

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeFileSource struct {
	lsn   uint64
	files map[string][]byte
}

func (f *fakeFileSource) CurrentLSN() uint64 { return f.lsn }

func (f *fakeFileSource) ReadFile(path string) ([]byte, error) {
	return f.files[path], nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	m, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestCreateFullThenIncrementalChain(t *testing.T) {
	m := newTestManager(t)

	src := &fakeFileSource{lsn: 10, files: map[string][]byte{
		"wal/seg_000001.log": []byte("segment one contents"),
		"checkpoints/checkpoint_1.checkpoint": []byte("checkpoint body"),
	}}
	m.Tracker().Touch("wal/seg_000001.log", src.files["wal/seg_000001.log"], 5)
	m.Tracker().Touch("checkpoints/checkpoint_1.checkpoint", src.files["checkpoints/checkpoint_1.checkpoint"], 10)

	full, err := m.CreateFull(src)
	require.NoError(t, err)
	require.Equal(t, "full", full.Kind)
	require.Equal(t, uint64(10), full.EndLSN)
	require.NoError(t, m.Validate(full.ID))

	src.lsn = 20
	src.files["wal/seg_000002.log"] = []byte("segment two contents")
	m.Tracker().Touch("wal/seg_000002.log", src.files["wal/seg_000002.log"], 15)

	inc, err := m.CreateIncremental(src, full.ID)
	require.NoError(t, err)
	require.Equal(t, "incremental", inc.Kind)
	require.Equal(t, full.EndLSN, inc.StartLSN)
	require.NoError(t, m.Validate(inc.ID))

	restored, err := m.RestoreFromChain(inc.ID)
	require.NoError(t, err)

	byPath := make(map[string][]byte)
	for _, rf := range restored {
		byPath[rf.Path] = rf.Data
	}
	require.Equal(t, []byte("segment one contents"), byPath["wal/seg_000001.log"])
	require.Equal(t, []byte("segment two contents"), byPath["wal/seg_000002.log"])
	require.Equal(t, []byte("checkpoint body"), byPath["checkpoints/checkpoint_1.checkpoint"])
}

func TestCreateIncrementalWithUnknownParentFails(t *testing.T) {
	m := newTestManager(t)
	src := &fakeFileSource{lsn: 1, files: map[string][]byte{}}
	_, err := m.CreateIncremental(src, "does-not-exist")
	require.Error(t, err)
}

func TestValidateDetectsCorruption(t *testing.T) {
	m := newTestManager(t)
	src := &fakeFileSource{lsn: 1, files: map[string][]byte{"a.log": []byte("data")}}
	m.Tracker().Touch("a.log", src.files["a.log"], 1)

	full, err := m.CreateFull(src)
	require.NoError(t, err)

	require.NoError(t, appendJunk(full.Path))
	require.Error(t, m.Validate(full.ID))
}

func TestEncryptedArchiveRoundtrips(t *testing.T) {
	m := newTestManager(t)
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	m.SetEncryptionKey(key)

	src := &fakeFileSource{lsn: 1, files: map[string][]byte{"secret.log": []byte("sensitive contents")}}
	m.Tracker().Touch("secret.log", src.files["secret.log"], 1)

	full, err := m.CreateFull(src)
	require.NoError(t, err)
	require.True(t, full.Encrypted)

	restored, err := m.RestoreFromChain(full.ID)
	require.NoError(t, err)
	require.Len(t, restored, 1)
	require.Equal(t, []byte("sensitive contents"), restored[0].Data)
}

func appendJunk(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte("junk"))
	return err
}
