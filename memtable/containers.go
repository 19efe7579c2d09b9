// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file implements the List/Set/Map container mutation operations of
// spec §4.2. Every mutation is read-modify-append: it reads the most recent
// cell (regardless of the caller's snapshot — container ops always act on
// latest state, like the WAL itself), builds a brand-new TypedValue with the
// edit applied, and appends it as a fresh cell at the caller-supplied seq.
// Existing cells are never mutated in place, so snapshots already issued
// keep observing their own frozen view of the container.
package memtable

import (
	"github.com/syloe1/kv-db-sub001/kvdberr"
	"github.com/syloe1/kv-db-sub001/value"
)

func emptyContainer(want value.Type) value.TypedValue {
	switch want {
	case value.TypeList:
		return value.List(nil)
	case value.TypeSet:
		return value.Set(nil)
	default:
		return value.Map(nil)
	}
}

func (m *Memtable) latestContainer(key string, want value.Type) (value.TypedValue, error) {
	cell, ok := m.readLatest(key)
	if !ok || cell.Tombstone {
		return emptyContainer(want), nil
	}
	if cell.Value.Tag != want {
		return value.TypedValue{}, kvdberr.ErrWrongType
	}
	return cell.Value, nil
}

// ListAppend appends v to the end of the list stored at key (spec §4.2).
func (m *Memtable) ListAppend(key string, v value.TypedValue, seq uint64) error {
	cur, err := m.latestContainer(key, value.TypeList)
	if err != nil {
		return err
	}
	next := value.List(append(append([]value.TypedValue(nil), cur.List...), v))
	m.appendCell(key, next, seq)
	return nil
}

// ListPrepend inserts v at the front of the list stored at key (spec §4.2).
func (m *Memtable) ListPrepend(key string, v value.TypedValue, seq uint64) error {
	cur, err := m.latestContainer(key, value.TypeList)
	if err != nil {
		return err
	}
	merged := make([]value.TypedValue, 0, len(cur.List)+1)
	merged = append(merged, v)
	merged = append(merged, cur.List...)
	m.appendCell(key, value.List(merged), seq)
	return nil
}

// ListRemove removes the element at index from the list stored at key.
func (m *Memtable) ListRemove(key string, index int, seq uint64) error {
	cur, err := m.latestContainer(key, value.TypeList)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(cur.List) {
		return kvdberr.ErrOutOfRange
	}
	next := make([]value.TypedValue, 0, len(cur.List)-1)
	next = append(next, cur.List[:index]...)
	next = append(next, cur.List[index+1:]...)
	m.appendCell(key, value.List(next), seq)
	return nil
}

// ListSet replaces the element at index in the list stored at key.
func (m *Memtable) ListSet(key string, index int, v value.TypedValue, seq uint64) error {
	cur, err := m.latestContainer(key, value.TypeList)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(cur.List) {
		return kvdberr.ErrOutOfRange
	}
	next := append([]value.TypedValue(nil), cur.List...)
	next[index] = v
	m.appendCell(key, value.List(next), seq)
	return nil
}

// ListGet returns the element at index in the list visible at snap.
func (m *Memtable) ListGet(key string, index int, snap uint64) (value.TypedValue, error) {
	cur, ok := m.Get(key, snap)
	if !ok {
		return value.TypedValue{}, kvdberr.ErrMissing
	}
	if cur.Tag != value.TypeList {
		return value.TypedValue{}, kvdberr.ErrWrongType
	}
	if index < 0 || index >= len(cur.List) {
		return value.TypedValue{}, kvdberr.ErrOutOfRange
	}
	return cur.List[index], nil
}

// ListSize returns len(list) visible at snap, or 0 if the key is missing.
func (m *Memtable) ListSize(key string, snap uint64) (int, error) {
	cur, ok := m.Get(key, snap)
	if !ok {
		return 0, nil
	}
	if cur.Tag != value.TypeList {
		return 0, kvdberr.ErrWrongType
	}
	return len(cur.List), nil
}

// SetAddElem inserts v into the set stored at key (spec §4.2).
func (m *Memtable) SetAddElem(key string, v value.TypedValue, seq uint64) error {
	cur, err := m.latestContainer(key, value.TypeSet)
	if err != nil {
		return err
	}
	m.appendCell(key, value.SetAdd(cur, v), seq)
	return nil
}

// SetRemoveElem removes v from the set stored at key.
func (m *Memtable) SetRemoveElem(key string, v value.TypedValue, seq uint64) error {
	cur, err := m.latestContainer(key, value.TypeSet)
	if err != nil {
		return err
	}
	m.appendCell(key, value.SetRemove(cur, v), seq)
	return nil
}

// SetContainsElem reports whether v is a member of the set visible at snap.
func (m *Memtable) SetContainsElem(key string, v value.TypedValue, snap uint64) (bool, error) {
	cur, ok := m.Get(key, snap)
	if !ok {
		return false, nil
	}
	if cur.Tag != value.TypeSet {
		return false, kvdberr.ErrWrongType
	}
	return value.SetContains(cur, v), nil
}

// SetSize returns |set| visible at snap, or 0 if the key is missing.
func (m *Memtable) SetSize(key string, snap uint64) (int, error) {
	cur, ok := m.Get(key, snap)
	if !ok {
		return 0, nil
	}
	if cur.Tag != value.TypeSet {
		return 0, kvdberr.ErrWrongType
	}
	return len(cur.Set), nil
}

// MapPutField sets field=v in the map stored at key (spec §4.2).
func (m *Memtable) MapPutField(key, field string, v value.TypedValue, seq uint64) error {
	cur, err := m.latestContainer(key, value.TypeMap)
	if err != nil {
		return err
	}
	m.appendCell(key, value.MapPut(cur, field, v), seq)
	return nil
}

// MapGetField returns the value of field in the map visible at snap.
func (m *Memtable) MapGetField(key, field string, snap uint64) (value.TypedValue, error) {
	cur, ok := m.Get(key, snap)
	if !ok {
		return value.TypedValue{}, kvdberr.ErrMissing
	}
	if cur.Tag != value.TypeMap {
		return value.TypedValue{}, kvdberr.ErrWrongType
	}
	v, ok := value.MapGet(cur, field)
	if !ok {
		return value.TypedValue{}, kvdberr.ErrMissing
	}
	return v, nil
}

// MapRemoveField removes field from the map stored at key.
func (m *Memtable) MapRemoveField(key, field string, seq uint64) error {
	cur, err := m.latestContainer(key, value.TypeMap)
	if err != nil {
		return err
	}
	m.appendCell(key, value.MapRemove(cur, field), seq)
	return nil
}

// MapContainsField reports whether field is present in the map visible at snap.
func (m *Memtable) MapContainsField(key, field string, snap uint64) (bool, error) {
	cur, ok := m.Get(key, snap)
	if !ok {
		return false, nil
	}
	if cur.Tag != value.TypeMap {
		return false, kvdberr.ErrWrongType
	}
	_, ok = value.MapGet(cur, field)
	return ok, nil
}

// MapKeys returns the field names of the map visible at snap, in insertion order.
func (m *Memtable) MapKeys(key string, snap uint64) ([]string, error) {
	cur, ok := m.Get(key, snap)
	if !ok {
		return nil, nil
	}
	if cur.Tag != value.TypeMap {
		return nil, kvdberr.ErrWrongType
	}
	out := make([]string, len(cur.Map))
	for i, e := range cur.Map {
		out[i] = e.Key
	}
	return out, nil
}

// MapSize returns the number of fields in the map visible at snap.
func (m *Memtable) MapSize(key string, snap uint64) (int, error) {
	cur, ok := m.Get(key, snap)
	if !ok {
		return 0, nil
	}
	if cur.Tag != value.TypeMap {
		return 0, kvdberr.ErrWrongType
	}
	return len(cur.Map), nil
}
