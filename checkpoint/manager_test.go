// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package checkpoint

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syloe1/kv-db-sub001/value"
)

type fakeSource struct {
	data map[string]value.TypedValue
}

func (f *fakeSource) Keys() []string {
	out := make([]string, 0, len(f.data))
	for k := range f.data {
		out = append(out, k)
	}
	return out
}

func (f *fakeSource) Get(key string, _ uint64) (value.TypedValue, bool) {
	v, ok := f.data[key]
	return v, ok
}

func TestCreateAndRestoreRoundtrip(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir)
	require.NoError(t, err)

	src := &fakeSource{data: map[string]value.TypedValue{
		"a": value.Int(1),
		"b": value.String("hello"),
		"c": value.List([]value.TypedValue{value.Int(1), value.Int(2)}),
	}}

	meta, err := m.Create(src, 42, "manual", "test checkpoint")
	require.NoError(t, err)
	require.Equal(t, uint64(42), meta.LSN)
	require.Equal(t, uint64(3), meta.RecordCount)

	readMeta, entries, err := m.Restore(meta.ID)
	require.NoError(t, err)
	require.Equal(t, meta.CRC32, readMeta.CRC32)
	require.Len(t, entries, 3)

	found := make(map[string]value.TypedValue)
	for _, e := range entries {
		found[e.Key] = e.Value
	}
	require.Equal(t, int64(1), found["a"].Int)
	require.Equal(t, "hello", found["b"].Str)
	require.Len(t, found["c"].List, 2)
}

func TestRestoreDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir)
	require.NoError(t, err)

	src := &fakeSource{data: map[string]value.TypedValue{"a": value.Int(1)}}
	meta, err := m.Create(src, 1, "manual", "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(imagePath(dir, meta.ID), []byte("corrupted"), 0o644))

	_, _, err = m.Restore(meta.ID)
	require.Error(t, err)
}

func TestCleanupOldKeepsMostRecent(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir)
	require.NoError(t, err)

	src := &fakeSource{data: map[string]value.TypedValue{"a": value.Int(1)}}
	var ids []uint64
	for i := 0; i < 5; i++ {
		meta, err := m.Create(src, uint64(i), "manual", "")
		require.NoError(t, err)
		ids = append(ids, meta.ID)
	}

	removed, err := m.CleanupOld(2)
	require.NoError(t, err)
	require.Equal(t, 3, removed)

	_, _, err = m.Restore(ids[0])
	require.Error(t, err)
	_, _, err = m.Restore(ids[len(ids)-1])
	require.NoError(t, err)
}

func TestLatestReturnsHighestID(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir)
	require.NoError(t, err)

	_, ok, err := m.Latest()
	require.NoError(t, err)
	require.False(t, ok)

	src := &fakeSource{data: map[string]value.TypedValue{"a": value.Int(1)}}
	var last Meta
	for i := 0; i < 3; i++ {
		last, err = m.Create(src, uint64(i), "manual", "")
		require.NoError(t, err)
	}

	latest, ok, err := m.Latest()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, last.ID, latest.ID)
}
