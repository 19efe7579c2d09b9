// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package memtable implements the typed MVCC memtable (spec §3.2, §4.2): an
// ordered map from user key to a versioned chain of cells, each read
// addressed by a snapshot LSN. It generalizes the teacher's Level/buffer
// design (pkg/metricstore/level.go, pkg/metricstore/buffer.go) — a
// sharded-lock tree of append-only chains — to an arbitrary-key ordered
// map of MVCC version chains instead of a fixed cluster/host/core
// hierarchy of float64 ring buffers.
//
// # Concurrency
//
// One RWMutex guards the top-level key map (insertion of brand-new keys);
// each chain has its own RWMutex so unrelated keys never contend (spec §5:
// "a reader/writer lock protects structural mutations to the key-level
// versioned chain"). Point writes are single-writer per key by construction
// (the control plane serializes commits), so the chain lock only needs to
// exclude readers during an append, not other writers.
package memtable

import (
	"sort"
	"sync"

	"github.com/syloe1/kv-db-sub001/value"
)

// Cell is one (seq, value|tombstone) entry in a key's version chain (spec §3.2).
type Cell struct {
	Seq       uint64
	Value     value.TypedValue
	Tombstone bool
}

type chain struct {
	mu    sync.RWMutex
	cells []Cell // ascending Seq
}

// Memtable is the MVCC in-memory table described by spec §4.2.
type Memtable struct {
	mu    sync.RWMutex
	table map[string]*chain

	approxBytes int64 // flush-trigger heuristic, spec §4.2: "need not be exact"
}

// New creates an empty Memtable.
func New() *Memtable {
	return &Memtable{table: make(map[string]*chain)}
}

func (m *Memtable) chainFor(key string, create bool) *chain {
	m.mu.RLock()
	c, ok := m.table[key]
	m.mu.RUnlock()
	if ok || !create {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.table[key]; ok {
		return c
	}
	c = &chain{}
	m.table[key] = c
	return c
}

// Put appends a new value cell at seq (spec §4.2). Writes never rewrite
// history: the cell is appended, never merged into an existing one.
func (m *Memtable) Put(key string, v value.TypedValue, seq uint64) {
	c := m.chainFor(key, true)
	c.mu.Lock()
	c.cells = append(c.cells, Cell{Seq: seq, Value: v.Clone()})
	c.mu.Unlock()
	m.addApproxBytes(key, v)
}

// Delete appends a tombstone cell at seq (spec §4.2).
func (m *Memtable) Delete(key string, seq uint64) {
	c := m.chainFor(key, true)
	c.mu.Lock()
	c.cells = append(c.cells, Cell{Seq: seq, Tombstone: true})
	c.mu.Unlock()
}

// Get returns the value visible at snap for key, or ok=false if missing or
// the highest-seq<=snap cell is a tombstone (spec §3.2).
func (m *Memtable) Get(key string, snap uint64) (value.TypedValue, bool) {
	c := m.chainFor(key, false)
	if c == nil {
		return value.TypedValue{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	cell, ok := latestAtOrBefore(c.cells, snap)
	if !ok || cell.Tombstone {
		return value.TypedValue{}, false
	}
	return cell.Value, true
}

// GetKeyType returns the variant tag visible at snap, or (TypeNull, false)
// if missing (spec §4.2 get_key_type).
func (m *Memtable) GetKeyType(key string, snap uint64) (value.Type, bool) {
	v, ok := m.Get(key, snap)
	if !ok {
		return value.TypeNull, false
	}
	return v.Tag, true
}

// latestAtOrBefore finds the cell with the largest Seq <= snap via binary
// search (cells are kept in ascending Seq order per spec §3.2).
func latestAtOrBefore(cells []Cell, snap uint64) (Cell, bool) {
	i := sort.Search(len(cells), func(i int) bool { return cells[i].Seq > snap })
	if i == 0 {
		return Cell{}, false
	}
	return cells[i-1], true
}

func (m *Memtable) addApproxBytes(key string, v value.TypedValue) {
	n := int64(len(key)) + approxValueBytes(v)
	m.mu.Lock()
	m.approxBytes += n
	m.mu.Unlock()
}

func approxValueBytes(v value.TypedValue) int64 {
	switch v.Tag {
	case value.TypeString:
		return int64(len(v.Str))
	case value.TypeBlob:
		return int64(len(v.Blob))
	case value.TypeList, value.TypeSet:
		items := v.List
		if v.Tag == value.TypeSet {
			items = v.Set
		}
		var n int64
		for _, e := range items {
			n += approxValueBytes(e)
		}
		return n + 16
	case value.TypeMap:
		var n int64
		for _, e := range v.Map {
			n += int64(len(e.Key)) + approxValueBytes(e.Value)
		}
		return n + 16
	default:
		return 16
	}
}

// ApproxBytes returns the approximate byte usage tracked for flush-trigger
// heuristics (spec §4.2: "need not be exact").
func (m *Memtable) ApproxBytes() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.approxBytes
}

// readLatest returns the most recent cell for key regardless of snapshot,
// used internally by the container-mutation read-modify-append path (spec
// §4.2: "read the most recent cell, build a new value... append as a fresh
// cell").
func (m *Memtable) readLatest(key string) (Cell, bool) {
	c := m.chainFor(key, false)
	if c == nil {
		return Cell{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.cells) == 0 {
		return Cell{}, false
	}
	return c.cells[len(c.cells)-1], true
}

// appendCell appends a freshly-built cell for key at seq, creating the
// chain if needed. Used by container mutation ops (spec §9: copy-on-write
// at cell granularity).
func (m *Memtable) appendCell(key string, v value.TypedValue, seq uint64) {
	c := m.chainFor(key, true)
	c.mu.Lock()
	c.cells = append(c.cells, Cell{Seq: seq, Value: v})
	c.mu.Unlock()
}

// Keys returns a sorted snapshot of all keys currently known to the table
// (including keys whose latest cell is a tombstone). Used by range/type scans.
func (m *Memtable) Keys() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.table))
	for k := range m.table {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys
}
