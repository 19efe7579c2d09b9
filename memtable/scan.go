// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file implements range_scan and type_scan (spec §4.2): ordered
// iteration over the key map, filtered by visibility at a snapshot and
// bounded by a result limit. Both walk the lexicographically sorted key
// list rather than maintaining a separate skip-list/B-tree, trading some
// scan throughput for the same simplicity tradeoff the teacher's in-memory
// buffers make (spec §9 explicitly allows O(log n + k) or better; a sorted
// key slice plus binary search meets that for point lookups and is linear
// in the scanned range for range_scan, which is the dominant cost anyway).
package memtable

import (
	"sort"

	"github.com/syloe1/kv-db-sub001/value"
)

// ScanEntry is one (key, value) pair surfaced by a scan.
type ScanEntry struct {
	Key   string
	Value value.TypedValue
}

// RangeScan returns up to limit entries with lo <= key <= hi (inclusive),
// visible at snap, in ascending key order. limit<=0 means unbounded.
func (m *Memtable) RangeScan(lo, hi string, snap uint64, limit int) []ScanEntry {
	keys := m.Keys()
	lower := sort.SearchStrings(keys, lo)

	out := make([]ScanEntry, 0, 16)
	for _, k := range keys[lower:] {
		if k > hi {
			break
		}
		v, ok := m.Get(k, snap)
		if !ok {
			continue
		}
		out = append(out, ScanEntry{Key: k, Value: v})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// TypeScan returns up to limit entries whose visible-at-snap value has tag
// dtype, in ascending key order. limit<=0 means unbounded.
func (m *Memtable) TypeScan(dtype value.Type, snap uint64, limit int) []ScanEntry {
	out := make([]ScanEntry, 0, 16)
	for _, k := range m.Keys() {
		v, ok := m.Get(k, snap)
		if !ok || v.Tag != dtype {
			continue
		}
		out = append(out, ScanEntry{Key: k, Value: v})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
