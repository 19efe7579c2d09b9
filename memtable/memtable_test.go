// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package memtable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syloe1/kv-db-sub001/value"
)

func TestPutGetVisibleAtOrBeforeSnapshot(t *testing.T) {
	m := New()
	m.Put("a", value.Int(1), 1)
	m.Put("a", value.Int(2), 5)

	_, ok := m.Get("a", 0)
	require.False(t, ok)

	v, ok := m.Get("a", 1)
	require.True(t, ok)
	require.Equal(t, int64(1), v.Int)

	v, ok = m.Get("a", 4)
	require.True(t, ok)
	require.Equal(t, int64(1), v.Int)

	v, ok = m.Get("a", 5)
	require.True(t, ok)
	require.Equal(t, int64(2), v.Int)
}

func TestDeleteHidesKeyButKeepsHistory(t *testing.T) {
	m := New()
	m.Put("a", value.Int(1), 1)
	m.Delete("a", 2)

	_, ok := m.Get("a", 1)
	require.True(t, ok)

	_, ok = m.Get("a", 2)
	require.False(t, ok)
}

func TestEarlierCellsNeverMutatedInPlace(t *testing.T) {
	m := New()
	m.Put("a", value.String("first"), 1)
	first, ok := m.Get("a", 1)
	require.True(t, ok)

	m.Put("a", value.String("second"), 2)

	stillFirst, ok := m.Get("a", 1)
	require.True(t, ok)
	require.Equal(t, first.Str, stillFirst.Str)
	require.Equal(t, "first", stillFirst.Str)
}

func TestListAppendPrependSetRemove(t *testing.T) {
	m := New()
	require.NoError(t, m.ListAppend("l", value.Int(1), 1))
	require.NoError(t, m.ListAppend("l", value.Int(2), 2))
	require.NoError(t, m.ListPrepend("l", value.Int(0), 3))

	size, err := m.ListSize("l", 3)
	require.NoError(t, err)
	require.Equal(t, 3, size)

	v, err := m.ListGet("l", 0, 3)
	require.NoError(t, err)
	require.Equal(t, int64(0), v.Int)

	require.NoError(t, m.ListSet("l", 1, value.Int(99), 4))
	v, err = m.ListGet("l", 1, 4)
	require.NoError(t, err)
	require.Equal(t, int64(99), v.Int)

	require.NoError(t, m.ListRemove("l", 0, 5))
	size, err = m.ListSize("l", 5)
	require.NoError(t, err)
	require.Equal(t, 2, size)

	// earlier snapshot still sees the pre-removal list.
	size, err = m.ListSize("l", 4)
	require.NoError(t, err)
	require.Equal(t, 3, size)
}

func TestSetAddRemoveContains(t *testing.T) {
	m := New()
	require.NoError(t, m.SetAddElem("s", value.Int(1), 1))
	require.NoError(t, m.SetAddElem("s", value.Int(2), 2))
	require.NoError(t, m.SetAddElem("s", value.Int(1), 3)) // no-op dup

	size, err := m.SetSize("s", 3)
	require.NoError(t, err)
	require.Equal(t, 2, size)

	ok, err := m.SetContainsElem("s", value.Int(2), 3)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, m.SetRemoveElem("s", value.Int(2), 4))
	ok, err = m.SetContainsElem("s", value.Int(2), 4)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMapPutGetRemoveKeysSize(t *testing.T) {
	m := New()
	require.NoError(t, m.MapPutField("m", "a", value.Int(1), 1))
	require.NoError(t, m.MapPutField("m", "b", value.Int(2), 2))

	keys, err := m.MapKeys("m", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, keys)

	v, err := m.MapGetField("m", "a", 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), v.Int)

	require.NoError(t, m.MapRemoveField("m", "a", 3))
	has, err := m.MapContainsField("m", "a", 3)
	require.NoError(t, err)
	require.False(t, has)

	size, err := m.MapSize("m", 3)
	require.NoError(t, err)
	require.Equal(t, 1, size)
}

func TestContainerOpWrongTypeFails(t *testing.T) {
	m := New()
	m.Put("k", value.Int(1), 1)
	err := m.ListAppend("k", value.Int(2), 2)
	require.Error(t, err)
}

func TestRangeScanOrderedAndBounded(t *testing.T) {
	m := New()
	m.Put("b", value.Int(2), 1)
	m.Put("a", value.Int(1), 2)
	m.Put("c", value.Int(3), 3)
	m.Put("d", value.Int(4), 4)

	entries := m.RangeScan("a", "c", 4, 0)
	require.Len(t, entries, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{entries[0].Key, entries[1].Key, entries[2].Key})

	limited := m.RangeScan("a", "d", 4, 2)
	require.Len(t, limited, 2)
}

func TestTypeScanFiltersByTag(t *testing.T) {
	m := New()
	m.Put("a", value.Int(1), 1)
	m.Put("b", value.String("x"), 2)
	m.Put("c", value.Int(2), 3)

	ints := m.TypeScan(value.TypeInt, 3, 0)
	require.Len(t, ints, 2)
	for _, e := range ints {
		require.Equal(t, value.TypeInt, e.Value.Tag)
	}
}

func TestGetKeyType(t *testing.T) {
	m := New()
	m.Put("a", value.String("x"), 1)

	typ, ok := m.GetKeyType("a", 1)
	require.True(t, ok)
	require.Equal(t, value.TypeString, typ)

	_, ok = m.GetKeyType("missing", 1)
	require.False(t, ok)
}

func TestApproxBytesGrowsOnWrite(t *testing.T) {
	m := New()
	require.Equal(t, int64(0), m.ApproxBytes())
	m.Put("a", value.String("hello"), 1)
	require.Greater(t, m.ApproxBytes(), int64(0))
}
