// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syloe1/kv-db-sub001/value"
)

type fakeFieldSource struct {
	rows []FieldRow
}

func (f *fakeFieldSource) ScanField(fields []string) ([]FieldRow, error) {
	return f.rows, nil
}

func TestCreateIndexPopulatesFromSource(t *testing.T) {
	src := &fakeFieldSource{rows: []FieldRow{
		{PrimaryKey: "k1", Fields: []value.TypedValue{value.Int(10)}},
		{PrimaryKey: "k2", Fields: []value.TypedValue{value.Int(20)}},
	}}
	m := NewManager()
	require.NoError(t, m.CreateIndex(KindSecondary, "by_value", []string{"value"}, false, src))

	res := m.Lookup("by_value", Query{Kind: QueryExact, Value: value.Int(10)})
	require.True(t, res.Success)
	require.Equal(t, []string{"k1"}, res.Keys)
}

func TestCreateIndexAlreadyExists(t *testing.T) {
	src := &fakeFieldSource{}
	m := NewManager()
	require.NoError(t, m.CreateIndex(KindSecondary, "idx", nil, false, src))
	err := m.CreateIndex(KindSecondary, "idx", nil, false, src)
	require.Error(t, err)
}

func TestDropIndexNotFound(t *testing.T) {
	m := NewManager()
	err := m.DropIndex("missing")
	require.Error(t, err)
}

func TestAddRemoveUpdateIndexesMaintenanceHooks(t *testing.T) {
	src := &fakeFieldSource{}
	m := NewManager()
	require.NoError(t, m.CreateIndex(KindSecondary, "by_value", []string{"value"}, false, src))

	require.NoError(t, m.AddToIndexes(FieldRow{PrimaryKey: "k1", Fields: []value.TypedValue{value.Int(5)}}))
	res := m.Lookup("by_value", Query{Kind: QueryExact, Value: value.Int(5)})
	require.Equal(t, []string{"k1"}, res.Keys)

	require.NoError(t, m.UpdateIndexes("k1", []value.TypedValue{value.Int(5)}, "", FieldRow{PrimaryKey: "k1", Fields: []value.TypedValue{value.Int(6)}}))
	res = m.Lookup("by_value", Query{Kind: QueryExact, Value: value.Int(5)})
	require.Empty(t, res.Keys)
	res = m.Lookup("by_value", Query{Kind: QueryExact, Value: value.Int(6)})
	require.Equal(t, []string{"k1"}, res.Keys)

	m.RemoveFromIndexes("k1", []value.TypedValue{value.Int(6)}, "")
	res = m.Lookup("by_value", Query{Kind: QueryExact, Value: value.Int(6)})
	require.Empty(t, res.Keys)
}

func TestLookupUnknownIndex(t *testing.T) {
	m := NewManager()
	res := m.Lookup("missing", Query{})
	require.False(t, res.Success)
	require.Error(t, res.Error)
}

func TestApplicableIndexesMatchesByLeadingField(t *testing.T) {
	src := &fakeFieldSource{}
	m := NewManager()
	require.NoError(t, m.CreateIndex(KindSecondary, "by_name", []string{"name"}, false, src))
	require.NoError(t, m.CreateIndex(KindComposite, "by_region_city", []string{"region", "city"}, false, src))

	require.Equal(t, []string{"by_name"}, m.ApplicableIndexes("name"))
	require.Equal(t, []string{"by_region_city"}, m.ApplicableIndexes("region"))
	require.Empty(t, m.ApplicableIndexes("city"))
}
